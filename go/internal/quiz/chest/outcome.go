package chest

// Kind identifies a chest outcome.
type Kind string

const (
	KindBonus   Kind = "BONUS"
	KindNothing Kind = "NOTHING"
	KindSwap    Kind = "SWAP"
	KindSteal   Kind = "STEAL_25"
	KindLoseAll Kind = "LOSE_ALL"
	KindGift    Kind = "GIFT_100"
)

// specials is the fixed set the two non-guaranteed pool slots are drawn from.
var specials = [...]Kind{KindNothing, KindSwap, KindSteal, KindLoseAll, KindGift}

// Outcome is the result of one chest draw. TargetID and Amount are filled in
// when the outcome is applied; a targeted outcome with no other player in the
// room keeps an empty TargetID.
type Outcome struct {
	Kind     Kind   `json:"kind"`
	TargetID string `json:"target_id,omitempty"`
	Amount   int    `json:"amount,omitempty"`
}

// Targeted reports whether the outcome needs another player to act on.
func (o Outcome) Targeted() bool {
	switch o.Kind {
	case KindSwap, KindSteal, KindGift:
		return true
	}
	return false
}
