package domain

import "time"

// User is the account record. It is the single source of truth for entitlement state.
type User struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"password_hash"`
	FirstName          string     `json:"first_name"`
	LastName           string     `json:"last_name"`
	IsGuest            bool       `json:"is_guest"`
	SubscriptionActive bool       `json:"subscription_active"`
	LastPostDate       *time.Time `json:"last_post_date,omitempty"`
	PostCount          int        `json:"post_count"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PostedOn reports whether the user's last accepted post falls on the UTC date of day.
// A user who never posted has a nil LastPostDate and never matches.
func (u User) PostedOn(day time.Time) bool {
	if u.LastPostDate == nil {
		return false
	}
	return DateOf(*u.LastPostDate).Equal(DateOf(day))
}
