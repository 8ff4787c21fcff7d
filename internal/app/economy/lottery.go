package economy

import (
	"math/rand"

	"github.com/taskmint/taskmint/internal/domain"
)

// ─── Lottery ────────────────────────────────────────────────────────────────
// The lottery only decides an outcome. It never writes the ledger — the
// completion engine persists the payout, so the draw and its persistence
// stay separable and independently testable.

// RandSource is the randomness the lottery draws from. *rand.Rand
// satisfies it; tests substitute a seeded generator.
type RandSource interface {
	Float64() float64
	Intn(n int) int
}

// Lottery resolves a weighted payout for privileged (Top3) completions.
type Lottery struct {
	rng               RandSource
	winProbability    float64 // chance of drawing a prize item
	consolationPoints int64   // payout when the draw misses
}

// NewLottery creates a lottery over the given random source.
func NewLottery(rng RandSource, winProbability float64, consolationPoints int64) *Lottery {
	return &Lottery{
		rng:               rng,
		winProbability:    winProbability,
		consolationPoints: consolationPoints,
	}
}

// NewDefaultLottery uses the production odds: even chance of a prize
// versus a 100-point consolation.
func NewDefaultLottery(seed int64) *Lottery {
	return NewLottery(rand.New(rand.NewSource(seed)), 0.5, 100)
}

// Resolve draws one outcome from the prize pool. A miss pays the
// consolation points; a hit selects one prize uniformly. An empty pool
// degrades to the consolation payout — a win must never grant a reward
// that does not exist.
func (l *Lottery) Resolve(prizes []domain.Reward) domain.LotteryResult {
	if l.rng.Float64() >= l.winProbability || len(prizes) == 0 {
		return domain.LotteryResult{
			Won:               false,
			ConsolationPoints: l.consolationPoints,
		}
	}

	prize := prizes[l.rng.Intn(len(prizes))]
	return domain.LotteryResult{
		Won:       true,
		PrizeID:   prize.ID,
		PrizeName: prize.Name,
	}
}
