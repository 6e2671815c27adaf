package model

import (
	"time"
)

// Facets holds the distinct filter values observed across message details.
type Facets struct {
	Roles       []string  `json:"roles"`
	Services    []string  `json:"services"`
	Actions     []string  `json:"actions"`
	RefreshedAt time.Time `json:"refreshedAt"`
}
