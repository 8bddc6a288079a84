package dto

import "github.com/torimichi/guide-match-system/pkg/validator"

type SubmitReviewRequest struct {
	MatchID string `json:"match_id"`
	Rating  int    `json:"rating"`
	Review  string `json:"review,omitempty"`
}

func (r *SubmitReviewRequest) Validate(v *validator.Validator) {
	v.Check(r.MatchID != "", "match_id", "must be provided")
	v.Check(r.Rating >= 1 && r.Rating <= 5, "rating", "must be between 1 and 5")
	v.Check(len(r.Review) <= 2000, "review", "must not be more than 2000 bytes long")
}
