package dto

import (
	"time"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/pkg/uuid"
	"github.com/torimichi/guide-match-system/pkg/validator"
)

type CreateMatchRequest struct {
	GuideID  string `json:"guide_id"`
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
	Notes    string `json:"notes,omitempty"`
}

func (r *CreateMatchRequest) ToModel() (models.MatchCreateRequest, error) {
	guideID, err := uuid.Parse(r.GuideID)
	if err != nil {
		return models.MatchCreateRequest{}, err
	}
	return models.MatchCreateRequest{
		GuideID:  guideID,
		Date:     r.Date,
		TimeSlot: r.TimeSlot,
		Notes:    r.Notes,
	}, nil
}

func (r *CreateMatchRequest) Validate(v *validator.Validator) {
	v.Check(r.GuideID != "", "guide_id", "must be provided")

	v.Check(r.Date != "", "date", "must be provided")
	if r.Date != "" {
		_, err := time.Parse("2006-01-02", r.Date)
		v.Check(err == nil, "date", "must be in yyyy-mm-dd format")
	}

	v.Check(r.TimeSlot != "", "time_slot", "must be provided")
	v.Check(len(r.Notes) <= 2000, "notes", "must not be more than 2000 bytes long")
}
