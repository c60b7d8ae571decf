package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"carddraw/internal/models"

	"github.com/google/logger"
)

// DeviceSession holds the mounted controllers for a single device.
type DeviceSession struct {
	Controllers  map[models.Category]*Controller
	LastActivity time.Time
}

// DrawServiceConfig holds what every controller built by a DrawService shares.
type DrawServiceConfig struct {
	Outcomes  map[models.Category]models.OutcomeTable
	Ledger    LedgerClient
	Flags     FlagStore
	KeyPrefix string
	SpinDelay time.Duration
	Delay     DelayFunc
	Slot      func(n int) int
}

// DrawService manages draw controllers for many devices.
type DrawService struct {
	cfg DrawServiceConfig
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*DeviceSession // Key: deviceID
}

// NewDrawService creates and initializes a new DrawService.
func NewDrawService(cfg DrawServiceConfig) *DrawService {
	if cfg.Outcomes == nil {
		cfg.Outcomes = models.DefaultOutcomeTables()
	}
	return &DrawService{
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*DeviceSession),
	}
}

// getSession returns a session for a device, creating one if it doesn't exist.
func (s *DrawService) getSession(deviceID string) *DeviceSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[deviceID]
	if !exists {
		session = &DeviceSession{
			Controllers: make(map[models.Category]*Controller),
		}
		s.sessions[deviceID] = session
	}
	session.LastActivity = s.now()
	return session
}

// Controller returns the device's controller for category, creating and
// mounting it on first use.
func (s *DrawService) Controller(ctx context.Context, deviceID string, category models.Category) (*Controller, error) {
	table, ok := s.cfg.Outcomes[category]
	if !ok {
		return nil, models.ErrUnknownCategory
	}
	session := s.getSession(deviceID)

	s.mu.Lock()
	ctrl, exists := session.Controllers[category]
	if exists {
		s.mu.Unlock()
		return ctrl, nil
	}
	ctrl, err := NewController(ControllerConfig{
		Category:      category,
		Outcomes:      table,
		Ledger:        s.cfg.Ledger,
		Participation: NewParticipation(s.cfg.Flags, deviceID, s.cfg.KeyPrefix),
		Delay:         s.cfg.Delay,
		SpinDelay:     s.cfg.SpinDelay,
		Slot:          s.cfg.Slot,
	})
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("new %s controller: %w", category, err)
	}
	// Mount before publishing so no caller sees an unmounted controller.
	ctrl.Mount(ctx)
	session.Controllers[category] = ctrl
	s.mu.Unlock()
	return ctrl, nil
}

// SessionCount returns the number of live device sessions.
func (s *DrawService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CleanUpInactiveSessions removes sessions idle for longer than ttl. Durable
// participation flags are untouched, so a returning device mounts fresh
// controllers that still see them.
func (s *DrawService) CleanUpInactiveSessions(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for deviceID, session := range s.sessions {
		if s.now().Sub(session.LastActivity) <= ttl || sessionBusy(session) {
			continue
		}
		delete(s.sessions, deviceID)
		removed++
	}
	if removed > 0 {
		logger.Infof("Cleaned up %d inactive device sessions", removed)
	}
	return removed
}

// ClearSession removes all in-memory state for a device.
func (s *DrawService) ClearSession(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, deviceID)
	logger.Infof("Cleared session for device: %s", deviceID)
}

func sessionBusy(session *DeviceSession) bool {
	for _, ctrl := range session.Controllers {
		st := ctrl.Snapshot()
		if st.IsVerifying || st.IsSpinning {
			return true
		}
	}
	return false
}
