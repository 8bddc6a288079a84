package types

// Enum for user roles. A user is either a traveler looking for a guide or a
// guide offering a coverage area. Admin exists for operational tooling only.
type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	RoleTraveler UserRole = "TRAVELER"
	RoleGuide    UserRole = "GUIDE"
	RoleAdmin    UserRole = "ADMIN"
)

// Enum for match request lifecycle states
type MatchStatus string

func (s MatchStatus) String() string {
	return string(s)
}

const (
	StatusPending    MatchStatus = "PENDING"
	StatusAccepted   MatchStatus = "ACCEPTED"
	StatusRejected   MatchStatus = "REJECTED"
	StatusReviewWait MatchStatus = "REVIEW_WAIT"
)

// Terminal reports whether no further transition leaves the state.
// REVIEW_WAIT is terminal for chat purposes: review submission does not move
// the request anywhere, it only clears the session-local prompt.
func (s MatchStatus) Terminal() bool {
	return s == StatusRejected || s == StatusReviewWait
}

// Valid reports whether s is one of the known lifecycle states.
func (s MatchStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusReviewWait:
		return true
	default:
		return false
	}
}

// Enum for user account status
type UserStatus string

const (
	ActiveStatus   UserStatus = "ACTIVE"
	InActiveStatus UserStatus = "INACTIVE"
	BannedStatus   UserStatus = "BANNED"
)
