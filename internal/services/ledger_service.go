package services

import (
	"context"
	"errors"
	"fmt"

	"carddraw/internal/models"

	"github.com/google/logger"
)

var (
	// ErrEmptyTeam is returned when a ledger request has no team name.
	ErrEmptyTeam = errors.New("team name is required")
	// ErrInvalidResult is returned when a result is not in the category's outcome table.
	ErrInvalidResult = errors.New("result is not a valid outcome for this category")
)

// LedgerStore persists ledger entries.
type LedgerStore interface {
	LedgerEntryExists(ctx context.Context, category models.Category, team string) (bool, error)
	AppendLedgerEntry(ctx context.Context, entry models.LedgerEntry) (bool, error)
	ListLedgerEntries(ctx context.Context, category models.Category) ([]models.LedgerEntry, error)
}

// LedgerService hosts the shared ledger. It satisfies LedgerClient, so the
// draw workflow can use it in-process instead of over HTTP.
type LedgerService struct {
	store    LedgerStore
	outcomes map[models.Category]models.OutcomeTable
}

// NewLedgerService creates a LedgerService over store.
func NewLedgerService(store LedgerStore, outcomes map[models.Category]models.OutcomeTable) *LedgerService {
	return &LedgerService{store: store, outcomes: outcomes}
}

func (s *LedgerService) table(category models.Category) (models.OutcomeTable, error) {
	t, ok := s.outcomes[category]
	if !ok {
		return models.OutcomeTable{}, models.ErrUnknownCategory
	}
	return t, nil
}

// CheckExists reports whether team already has a recorded outcome in category.
func (s *LedgerService) CheckExists(ctx context.Context, category models.Category, team string) (bool, error) {
	if _, err := s.table(category); err != nil {
		return false, err
	}
	team = models.NormalizeTeam(team)
	if team == "" {
		return false, ErrEmptyTeam
	}
	exists, err := s.store.LedgerEntryExists(ctx, category, team)
	if err != nil {
		return false, fmt.Errorf("check %s ledger: %w", category, err)
	}
	return exists, nil
}

// RecordResult appends (team, result). A team that already has an entry
// keeps its first result and the call still succeeds.
func (s *LedgerService) RecordResult(ctx context.Context, category models.Category, team, result string) error {
	table, err := s.table(category)
	if err != nil {
		return err
	}
	team = models.NormalizeTeam(team)
	if team == "" {
		return ErrEmptyTeam
	}
	if !table.Contains(result) {
		return ErrInvalidResult
	}
	created, err := s.store.AppendLedgerEntry(ctx, models.LedgerEntry{
		Category: category,
		Team:     team,
		Result:   result,
	})
	if err != nil {
		return fmt.Errorf("record %s ledger: %w", category, err)
	}
	if !created {
		logger.Warningf("ledger %s: team %q already recorded, ignoring %q", category, team, result)
		return nil
	}
	logger.Infof("ledger %s: recorded %q for team %q", category, result, team)
	return nil
}

// Entries returns the category's ledger, oldest first.
func (s *LedgerService) Entries(ctx context.Context, category models.Category) ([]models.LedgerEntry, error) {
	if _, err := s.table(category); err != nil {
		return nil, err
	}
	entries, err := s.store.ListLedgerEntries(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list %s ledger: %w", category, err)
	}
	return entries, nil
}
