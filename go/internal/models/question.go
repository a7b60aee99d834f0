package models

// OptionCount is the number of answer options every question carries.
const OptionCount = 4

// Question is a single multiple-choice trivia question.
type Question struct {
	Text         string              `json:"text"`
	Options      [OptionCount]string `json:"options"`
	CorrectIndex int                 `json:"correct_index"`
}

// Valid reports whether the question has text, four options and a correct index in range.
func (q Question) Valid() bool {
	if q.Text == "" {
		return false
	}
	for _, o := range q.Options {
		if o == "" {
			return false
		}
	}
	return q.CorrectIndex >= 0 && q.CorrectIndex < OptionCount
}
