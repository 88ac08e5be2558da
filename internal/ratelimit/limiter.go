package ratelimit

//go:generate mockgen -destination=../mocks/mock_ratelimit_store.go -package=mocks github.com/fgimenez/mythril-ci/internal/ratelimit Store

import (
	"context"
	"fmt"
	"time"

	"github.com/fgimenez/mythril-ci/internal/auth/domain"
)

// Window is one fixed-duration counting interval.
type Window struct {
	Name     string
	Duration time.Duration
}

var windows = []Window{
	{Name: "fiveMin", Duration: 5 * time.Minute},
	{Name: "oneHour", Duration: time.Hour},
	{Name: "oneDay", Duration: 24 * time.Hour},
}

// Windows returns the three counting windows in evaluation order.
func Windows() []Window {
	out := make([]Window, len(windows))
	copy(out, windows)
	return out
}

// Store atomically advances the counter for (userID, window): if no state
// exists, or now-windowStart >= the window duration, the count resets to 1
// and the window restarts at now; otherwise the count increments. The
// post-update count is returned. Implementations must perform this as a
// single conditional operation in the backing store so concurrent requests
// never lose an increment.
type Store interface {
	Increment(ctx context.Context, userID string, w Window, now time.Time) (int, error)
}

// Limits holds per-window thresholds for one tier. A post-update count may
// equal its threshold; exceeding it denies.
type Limits struct {
	FiveMin int
	OneHour int
	OneDay  int
}

func (l Limits) For(w Window) int {
	switch w.Name {
	case "fiveMin":
		return l.FiveMin
	case "oneHour":
		return l.OneHour
	default:
		return l.OneDay
	}
}

// Policy maps tiers to their thresholds. The unlimited tier has none.
type Policy struct {
	Standard Limits
	Admin    Limits
}

func (p Policy) limitsFor(tier domain.Tier) (Limits, bool) {
	switch tier {
	case domain.TierAdmin:
		return p.Admin, true
	case domain.TierUnlimited:
		return Limits{}, false
	default:
		return p.Standard, true
	}
}

type Decision struct {
	Allowed bool
	Window  string
	Limit   int
}

type Limiter struct {
	store  Store
	policy Policy
}

func New(store Store, policy Policy) *Limiter {
	return &Limiter{store: store, policy: policy}
}

// Check records the request in every window and decides whether it may
// proceed. All three counters advance even when the decision is deny and
// even for the unlimited tier; the first window whose post-update count
// exceeds its threshold is reported.
func (l *Limiter) Check(ctx context.Context, user *domain.User, now time.Time) (Decision, error) {
	limits, limited := l.policy.limitsFor(user.Tier)

	denied := Decision{Allowed: true}
	for _, w := range windows {
		count, err := l.store.Increment(ctx, user.ID, w, now)
		if err != nil {
			return Decision{}, fmt.Errorf("rate limit increment for %s: %w", w.Name, err)
		}
		if limited && denied.Allowed && count > limits.For(w) {
			denied = Decision{Allowed: false, Window: w.Name, Limit: limits.For(w)}
		}
	}

	return denied, nil
}
