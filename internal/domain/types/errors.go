package types

import "errors"

var (
	// Validation errors, detected locally before any store write.
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrChatNotOpen       = errors.New("conversation is not open")
	ErrIncompletePolygon = errors.New("coverage area needs at least 3 points")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrInvalidMessage    = errors.New("message text is empty or too long")
	ErrOpenRequestExists = errors.New("an open request to this guide already exists")
	ErrAlreadyReviewed   = errors.New("match already reviewed")

	// Store-side errors, only observable after an attempted write or subscribe.
	ErrStoreUnavailable = errors.New("store write failed")

	ErrUserNotFound   = errors.New("user not found")
	ErrGuideNotFound  = errors.New("guide not found")
	ErrMatchNotFound  = errors.New("match request not found")
	ErrNotUniqueEmail = errors.New("email already registered")
	ErrNotFound       = errors.New("requested item not found")
)
