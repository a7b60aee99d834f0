package chest

import (
	"math/rand/v2"
	"sort"

	"github.com/mcdev12/moogle/go/internal/models"
)

// Config holds the chest economy constants.
type Config struct {
	BonusMin     int `yaml:"bonus_min"`
	BonusMax     int `yaml:"bonus_max"`
	StealPercent int `yaml:"steal_percent"`
	GiftAmount   int `yaml:"gift_amount"`
}

// DefaultConfig returns the reference economy.
func DefaultConfig() Config {
	return Config{
		BonusMin:     100,
		BonusMax:     800,
		StealPercent: 25,
		GiftAmount:   100,
	}
}

// PoolSize is the number of candidate outcomes a draw chooses from.
const PoolSize = 3

// Pool builds the candidate outcomes: one guaranteed bonus plus two specials
// drawn uniformly with replacement, shuffled uniformly.
func Pool(rng *rand.Rand, cfg Config) [PoolSize]Outcome {
	bonus := cfg.BonusMin
	if cfg.BonusMax > cfg.BonusMin {
		bonus += rng.IntN(cfg.BonusMax - cfg.BonusMin + 1)
	}
	pool := [PoolSize]Outcome{
		{Kind: KindBonus, Amount: bonus},
		{Kind: specials[rng.IntN(len(specials))]},
		{Kind: specials[rng.IntN(len(specials))]},
	}
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool
}

// Draw picks one outcome uniformly from a freshly built pool.
func Draw(rng *rand.Rand, cfg Config) Outcome {
	pool := Pool(rng, cfg)
	return pool[rng.IntN(len(pool))]
}

// Apply folds the outcome into the roster on behalf of actorID and returns
// the outcome with its target and transferred amount filled in.
// The actor must be present in players; an absent actor leaves everything unchanged.
func Apply(rng *rand.Rand, cfg Config, o Outcome, actorID string, players map[string]*models.Player) Outcome {
	actor, ok := players[actorID]
	if !ok {
		return o
	}

	var target *models.Player
	if o.Targeted() {
		target = pickOther(rng, actorID, players)
		if target == nil {
			return Outcome{Kind: o.Kind}
		}
		o.TargetID = target.ID
	}

	switch o.Kind {
	case KindBonus:
		actor.Credit(o.Amount)
	case KindNothing:
	case KindSwap:
		actor.Balance, target.Balance = target.Balance, actor.Balance
	case KindSteal:
		stolen := target.Balance * cfg.StealPercent / 100
		target.Balance -= stolen
		actor.Credit(stolen)
		o.Amount = stolen
	case KindLoseAll:
		actor.Balance = 0
	case KindGift:
		target.Credit(cfg.GiftAmount)
		o.Amount = cfg.GiftAmount
	}
	return o
}

// pickOther chooses uniformly among every player except the actor.
// IDs are sorted first so a seeded rng gives a reproducible choice.
func pickOther(rng *rand.Rand, actorID string, players map[string]*models.Player) *models.Player {
	others := make([]string, 0, len(players))
	for id := range players {
		if id != actorID {
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		return nil
	}
	sort.Strings(others)
	return players[others[rng.IntN(len(others))]]
}
