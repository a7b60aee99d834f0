package questions

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/moogle/go/clients"
	"github.com/mcdev12/moogle/go/internal/models"
)

var (
	// ErrSourceUnavailable means the question source could not be fetched.
	ErrSourceUnavailable = errors.New("question source unavailable")
	// ErrSourceMalformed means the source was fetched but holds no usable questions.
	ErrSourceMalformed = errors.New("question source malformed")
)

// MaxSheetBytes is the largest question sheet accepted.
const MaxSheetBytes = 2 << 20

var requiredColumns = [...]string{"Question", "OptionA", "OptionB", "OptionC", "OptionD", "Answer"}

// Fetcher retrieves a raw document.
type Fetcher interface {
	Get(ctx context.Context, endpoint string) ([]byte, error)
}

// Loader turns a sheet URL into a question bank.
type Loader struct {
	fetcher Fetcher
}

// NewLoader returns a Loader backed by an HTTP client with the given timeout.
func NewLoader(timeout time.Duration) *Loader {
	c := clients.NewBaseClient("")
	c.SetTimeout(timeout)
	c.SetHeader("Accept", "text/csv")
	c.SetMaxBytes(MaxSheetBytes)
	return &Loader{fetcher: c}
}

// NewLoaderWithFetcher returns a Loader reading through f.
func NewLoaderWithFetcher(f Fetcher) *Loader {
	return &Loader{fetcher: f}
}

// LoadURL fetches a CSV export and parses it.
func (l *Loader) LoadURL(ctx context.Context, rawURL string) ([]models.Question, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("csv url %q must be an absolute http(s) url: %w", rawURL, ErrSourceMalformed)
	}

	body, err := l.fetcher.Get(ctx, u.String())
	if errors.Is(err, clients.ErrBodyTooLarge) {
		return nil, fmt.Errorf("fetch %s: %w: %w", u.Redacted(), ErrSourceMalformed, err)
	}
	if err != nil {
		log.Warn().Err(err).Str("url", u.Redacted()).Msg("failed to fetch question sheet")
		return nil, fmt.Errorf("fetch %s: %w: %w", u.Redacted(), ErrSourceUnavailable, err)
	}

	qs, err := ParseCSV(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	log.Info().Str("url", u.Redacted()).Int("questions", len(qs)).Msg("question sheet loaded")
	return qs, nil
}

// ParseCSV reads a sheet with the header Question,OptionA,OptionB,OptionC,OptionD,Answer
// in any column order. Rows missing text, an option, or an A-D answer letter are skipped.
func ParseCSV(r io.Reader) ([]models.Question, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty sheet: %w", ErrSourceMalformed)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w: %w", ErrSourceMalformed, err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var out []models.Question
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w: %w", ErrSourceMalformed, err)
		}
		q, ok := rowQuestion(record, cols)
		if !ok {
			skipped++
			continue
		}
		out = append(out, q)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no valid questions parsed: %w", ErrSourceMalformed)
	}
	if skipped > 0 {
		log.Debug().Int("skipped", skipped).Int("parsed", len(out)).Msg("skipped invalid sheet rows")
	}
	return out, nil
}

// Validate checks an inline question set. Unlike a sheet, an inline set is
// rejected as a whole when any entry is invalid.
func Validate(qs []models.Question) ([]models.Question, error) {
	if len(qs) == 0 {
		return nil, fmt.Errorf("no questions given: %w", ErrSourceMalformed)
	}
	out := make([]models.Question, len(qs))
	for i, q := range qs {
		q.Text = strings.TrimSpace(q.Text)
		for j := range q.Options {
			q.Options[j] = strings.TrimSpace(q.Options[j])
		}
		if !q.Valid() {
			return nil, fmt.Errorf("question %d is incomplete: %w", i+1, ErrSourceMalformed)
		}
		out[i] = q
	}
	return out, nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		for _, want := range requiredColumns {
			if strings.EqualFold(h, want) {
				if _, dup := cols[want]; !dup {
					cols[want] = i
				}
			}
		}
	}
	var missing []string
	for _, want := range requiredColumns {
		if _, ok := cols[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv missing required headers %s: %w", strings.Join(missing, ","), ErrSourceMalformed)
	}
	return cols, nil
}

func rowQuestion(record []string, cols map[string]int) (models.Question, bool) {
	cell := func(name string) string {
		i := cols[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	q := models.Question{Text: cell("Question")}
	for i, name := range requiredColumns[1:5] {
		q.Options[i] = cell(name)
	}

	answer := strings.ToUpper(cell("Answer"))
	if len(answer) != 1 || answer[0] < 'A' || answer[0] > 'D' {
		return models.Question{}, false
	}
	q.CorrectIndex = int(answer[0] - 'A')
	return q, q.Valid()
}
