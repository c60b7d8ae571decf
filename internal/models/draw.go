package models

import (
	"errors"
	"strings"
)

// Category selects which outcome table and which ledger endpoint a draw uses.
type Category string

const (
	CategoryWildcard Category = "wildcard"
	CategoryPenalty  Category = "penalty"
)

// ErrUnknownCategory is returned when a category name is not one of the known draw types.
var ErrUnknownCategory = errors.New("unknown draw category")

// Categories lists every supported category in display order.
func Categories() []Category {
	return []Category{CategoryWildcard, CategoryPenalty}
}

// ParseCategory converts a raw name (for example a URL segment) into a Category.
func ParseCategory(raw string) (Category, error) {
	want := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, c := range Categories() {
		if c == want {
			return c, nil
		}
	}
	return "", ErrUnknownCategory
}

func (c Category) String() string {
	return string(c)
}

// NormalizeTeam trims the user-supplied team name. An empty result is invalid.
func NormalizeTeam(team string) string {
	return strings.TrimSpace(team)
}

// Phase is the controller's position in the draw workflow.
type Phase string

const (
	PhaseIdle                Phase = "idle"
	PhaseVerifying           Phase = "verifying"
	PhaseVerified            Phase = "verified"
	PhaseDrawing             Phase = "drawing"
	PhaseRecorded            Phase = "recorded"
	PhaseAlreadyParticipated Phase = "already_participated"
)

// DrawState is the snapshot a presentation layer renders from.
// Error is nil when there is nothing to show.
type DrawState struct {
	Category        Category `json:"category"`
	TeamName        string   `json:"teamName"`
	IsVerifying     bool     `json:"isVerifying"`
	IsVerified      bool     `json:"isVerified"`
	IsSpinning      bool     `json:"isSpinning"`
	IsRecorded      bool     `json:"isRecorded"`
	HasParticipated bool     `json:"hasParticipated"`
	Error           *string  `json:"error"`
	Outcome         string   `json:"outcome,omitempty"`
}

// Phase derives the single workflow phase from the individual flags.
// Recorded wins over AlreadyParticipated because a completed draw also sets
// the participation flag.
func (s DrawState) Phase() Phase {
	switch {
	case s.IsRecorded:
		return PhaseRecorded
	case s.HasParticipated:
		return PhaseAlreadyParticipated
	case s.IsSpinning:
		return PhaseDrawing
	case s.IsVerifying:
		return PhaseVerifying
	case s.IsVerified:
		return PhaseVerified
	default:
		return PhaseIdle
	}
}

// LedgerEntry is one recorded draw in the shared ledger.
type LedgerEntry struct {
	Category   Category `json:"category"`
	Team       string   `json:"team"`
	Result     string   `json:"result"`
	RecordedAt int64    `json:"recordedAt"` // unix millis, UTC
}
