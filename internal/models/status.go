package models

import (
	"fmt"
	"strings"
)

// Status is the pipeline stage of a job application. It is also the key of
// a board column.
type Status string

const (
	// StatusApplied is the initial stage of every new application.
	StatusApplied Status = "Applied"
	// StatusInterview marks an application with at least one interview.
	StatusInterview Status = "Interview"
	// StatusOffer marks an application that produced an offer.
	StatusOffer Status = "Offer"
	// StatusRejected marks a closed application.
	StatusRejected Status = "Rejected"
)

// Statuses lists every valid status in board column order.
var Statuses = []Status{StatusApplied, StatusInterview, StatusOffer, StatusRejected}

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus maps any casing of a known status to its canonical form.
func ParseStatus(raw string) (Status, error) {
	trimmed := strings.TrimSpace(raw)
	for _, v := range Statuses {
		if strings.EqualFold(trimmed, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}
