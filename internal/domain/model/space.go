package model

import (
	"time"
)

type SpaceType string
type SpaceStatus string

const (
	SpaceTypePrivate SpaceType = "private"
	SpaceTypeMeeting SpaceType = "meeting"
	SpaceTypeEvent   SpaceType = "event"
	SpaceTypeDesk    SpaceType = "desk"

	SpaceStatusActive   SpaceStatus = "active"
	SpaceStatusInactive SpaceStatus = "inactive"
)

func (t SpaceType) Valid() bool {
	switch t {
	case SpaceTypePrivate, SpaceTypeMeeting, SpaceTypeEvent, SpaceTypeDesk:
		return true
	}
	return false
}

func (s SpaceStatus) Valid() bool {
	return s == SpaceStatusActive || s == SpaceStatusInactive
}

// Space is a bookable room in the catalog.
type Space struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Slug         string      `json:"slug"`
	Description  string      `json:"description"`
	Type         SpaceType   `json:"type"`
	Capacity     int         `json:"capacity"`
	PricePerHour float64     `json:"pricePerHour"`
	Amenities    []string    `json:"amenities"`
	Images       []string    `json:"images"`
	Status       SpaceStatus `json:"status"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// SpaceFilter narrows a catalog listing. Zero values mean "no constraint";
// a nil MaxPrice is unbounded while a zero MaxPrice keeps free spaces only.
type SpaceFilter struct {
	Search      string
	Type        SpaceType
	MinCapacity int
	MaxPrice    *float64
	Amenities   []string
	Status      SpaceStatus
}
