// Package entitlement decides whether a user may publish another post today.
//
// The evaluator is pure: it never reads a clock or touches storage. Callers pass
// the current time and persist the returned user themselves, under the same
// per-user lock that guards payment confirmation.
package entitlement

import (
	"time"

	"github.com/spec-kit/blog-service/internal/domain"
)

// DefaultDailyPosts is the free-tier allowance per UTC calendar day.
const DefaultDailyPosts = 1

// Evaluator applies the free-tier daily post limit.
type Evaluator struct {
	dailyPosts int
}

// NewEvaluator builds an evaluator. A non-positive allowance falls back to DefaultDailyPosts.
func NewEvaluator(dailyPosts int) *Evaluator {
	if dailyPosts <= 0 {
		dailyPosts = DefaultDailyPosts
	}
	return &Evaluator{dailyPosts: dailyPosts}
}

// DailyPosts returns the configured free-tier allowance.
func (e *Evaluator) DailyPosts() int {
	return e.dailyPosts
}

// Evaluate returns the user state to persist once a new post is accepted, or
// domain.ErrDailyLimitExceeded when a free-tier user already used today's allowance.
// Subscribed users are always allowed and returned unchanged.
func (e *Evaluator) Evaluate(user domain.User, now time.Time) (domain.User, error) {
	if user.SubscriptionActive {
		return user, nil
	}

	today := domain.DateOf(now)
	count := 0
	if user.PostedOn(today) {
		count = user.PostCount
	}
	if count >= e.dailyPosts {
		return user, domain.ErrDailyLimitExceeded
	}

	user.PostCount = count + 1
	user.LastPostDate = &today
	return user, nil
}

// LimitReached reports whether Evaluate would reject the user at now.
func (e *Evaluator) LimitReached(user domain.User, now time.Time) bool {
	return !user.SubscriptionActive && user.PostedOn(now) && user.PostCount >= e.dailyPosts
}
