package dto

import (
	"github.com/torimichi/guide-match-system/internal/geo"
	"github.com/torimichi/guide-match-system/internal/service/profile"
	"github.com/torimichi/guide-match-system/pkg/validator"
)

type UpdateProfileRequest struct {
	Name          *string  `json:"name,omitempty"`
	Origin        *string  `json:"origin,omitempty"`
	Comment       *string  `json:"comment,omitempty"`
	AvatarURL     *string  `json:"avatar_url,omitempty"`
	GuideMode     *bool    `json:"guide_mode,omitempty"`
	Polygon       *[]Point `json:"polygon,omitempty"`
	Location      *Point   `json:"location,omitempty"`
	ClearLocation bool     `json:"clear_location,omitempty"`
}

// Point mirrors geo.Coordinate on the wire.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) ToModel() geo.Coordinate {
	return geo.Coordinate{Lat: p.Lat, Lng: p.Lng}
}

func (r *UpdateProfileRequest) ToModel() profile.ProfileUpdate {
	upd := profile.ProfileUpdate{
		Name:          r.Name,
		Origin:        r.Origin,
		Comment:       r.Comment,
		AvatarURL:     r.AvatarURL,
		GuideMode:     r.GuideMode,
		ClearLocation: r.ClearLocation,
	}
	if r.Polygon != nil {
		poly := make(geo.Polygon, 0, len(*r.Polygon))
		for _, p := range *r.Polygon {
			poly = append(poly, p.ToModel())
		}
		upd.Polygon = &poly
	}
	if r.Location != nil {
		loc := r.Location.ToModel()
		upd.Location = &loc
	}
	return upd
}

func (r *UpdateProfileRequest) Validate(v *validator.Validator) {
	if r.Name != nil {
		v.Check(*r.Name != "", "name", "must not be empty")
		v.Check(len(*r.Name) <= 500, "name", "must not be more than 500 bytes long")
	}
	if r.Comment != nil {
		v.Check(len(*r.Comment) <= 2000, "comment", "must not be more than 2000 bytes long")
	}
	if r.Location != nil {
		validatePoint(v, *r.Location, "location")
	}
	if r.Polygon != nil {
		for _, p := range *r.Polygon {
			validatePoint(v, p, "polygon")
		}
	}
	v.Check(!(r.Location != nil && r.ClearLocation), "location", "cannot both set and clear the location")
}

type PresenceRequest struct {
	Active *bool `json:"active"`
}

func (r *PresenceRequest) Validate(v *validator.Validator) {
	v.Check(r.Active != nil, "active", "must be provided")
}

type VertexRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (r *VertexRequest) ToModel() geo.Coordinate {
	return geo.Coordinate{Lat: *r.Lat, Lng: *r.Lng}
}

func (r *VertexRequest) Validate(v *validator.Validator) {
	v.Check(r.Lat != nil, "lat", "must be provided")
	v.Check(r.Lng != nil, "lng", "must be provided")
	if r.Lat != nil && r.Lng != nil {
		validatePoint(v, Point{Lat: *r.Lat, Lng: *r.Lng}, "vertex")
	}
}

func validatePoint(v *validator.Validator, p Point, key string) {
	v.Check(p.Lat >= -90 && p.Lat <= 90, key, "latitude must be between -90 and 90")
	v.Check(p.Lng >= -180 && p.Lng <= 180, key, "longitude must be between -180 and 180")
}
