package model

import (
	"time"

	"github.com/guregu/null/v5"
)

// KDJPoint is one row of a KDJ series. Invalid values mean "undefined", never zero.
type KDJPoint struct {
	Date time.Time
	K    null.Float
	D    null.Float
	J    null.Float
}

// Defined reports whether all three lines carry a value.
func (p KDJPoint) Defined() bool {
	return p.K.Valid && p.D.Valid && p.J.Valid
}

// KDJSnapshot is the externally visible form of a KDJ point.
type KDJSnapshot struct {
	Code string     `json:"code"`
	Date string     `json:"date"`
	K    null.Float `json:"k"`
	D    null.Float `json:"d"`
	J    null.Float `json:"j"`
}
