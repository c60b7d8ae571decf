package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"carddraw/internal/models"

	"github.com/google/logger"
)

// User-visible messages published in DrawState.Error.
const (
	MsgEmptyTeam           = "Please enter a team name"
	MsgAlreadyParticipated = "This team has already participated!"
)

// DefaultSpinDelay is how long the controller stays in the drawing phase
// before recording, matching the card shuffle animation.
const DefaultSpinDelay = 2500 * time.Millisecond

// LedgerClient is the remote, cross-device record of draws.
type LedgerClient interface {
	CheckExists(ctx context.Context, category models.Category, team string) (bool, error)
	RecordResult(ctx context.Context, category models.Category, team, result string) error
}

// DelayFunc waits for d or until ctx is done.
type DelayFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the real-clock DelayFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ControllerConfig wires a Controller's collaborators.
type ControllerConfig struct {
	Category      models.Category
	Outcomes      models.OutcomeTable
	Ledger        LedgerClient
	Participation *Participation
	// Delay defaults to SleepContext.
	Delay     DelayFunc
	SpinDelay time.Duration
	// Slot returns a uniform integer in [0, n). Defaults to math/rand/v2.
	Slot func(n int) int
}

// Controller runs the verify, draw and record workflow for one category on
// one device. Fields are guarded by mu, which is never held across the
// ledger calls or the spin delay.
type Controller struct {
	mu sync.Mutex

	category      models.Category
	outcomes      models.OutcomeTable
	ledger        LedgerClient
	participation *Participation
	delay         DelayFunc
	spinDelay     time.Duration
	slot          func(n int) int

	teamName        string
	isVerifying     bool
	isVerified      bool
	isSpinning      bool
	isRecorded      bool
	hasParticipated bool
	errMsg          *string
	outcome         string
}

// NewController validates cfg and returns an idle controller. Call Mount
// before first use.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Outcomes.Size() == 0 {
		return nil, errors.New("outcome table is empty")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("ledger client is required")
	}
	if cfg.Delay == nil {
		cfg.Delay = SleepContext
	}
	if cfg.Slot == nil {
		cfg.Slot = rand.IntN
	}
	return &Controller{
		category:      cfg.Category,
		outcomes:      cfg.Outcomes,
		ledger:        cfg.Ledger,
		participation: cfg.Participation,
		delay:         cfg.Delay,
		spinDelay:     cfg.SpinDelay,
		slot:          cfg.Slot,
	}, nil
}

// Category returns the controller's fixed draw category.
func (c *Controller) Category() models.Category {
	return c.category
}

// Mount checks this device's participation flag. No remote call is made.
func (c *Controller) Mount(ctx context.Context) models.DrawState {
	participated := c.participation.HasParticipated(ctx, c.category)

	c.mu.Lock()
	defer c.mu.Unlock()
	if participated {
		c.hasParticipated = true
	}
	return c.snapshotLocked()
}

// SetTeamName updates the team name. It is ignored once verification has
// started, mirroring the disabled input field.
func (c *Controller) SetTeamName(name string) models.DrawState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isVerifying && !c.isVerified && !c.isSpinning && !c.isRecorded {
		c.teamName = name
	}
	return c.snapshotLocked()
}

// VerifyTeam checks the ledger for a prior draw by the current team.
//
// A failed check is treated as "not found" so the event keeps running when
// the ledger is unreachable. A call that arrives while another verify or spin
// is in flight, or after the workflow has ended, does nothing.
func (c *Controller) VerifyTeam(ctx context.Context) models.DrawState {
	c.mu.Lock()
	team := models.NormalizeTeam(c.teamName)
	if team == "" {
		c.setErrorLocked(MsgEmptyTeam)
		defer c.mu.Unlock()
		return c.snapshotLocked()
	}
	if c.isVerifying || c.isSpinning || c.isRecorded || c.hasParticipated {
		defer c.mu.Unlock()
		return c.snapshotLocked()
	}
	c.isVerifying = true
	c.errMsg = nil
	c.mu.Unlock()

	// In-flight calls run to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	exists, err := c.ledger.CheckExists(ctx, c.category, team)
	if err != nil {
		logger.Warningf("draw %s: eligibility check for team %q failed, proceeding: %v", c.category, team, err)
		exists = false
	}
	if exists {
		c.participation.MarkParticipated(ctx, c.category)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.isVerifying = false
	if exists {
		logger.Infof("draw %s: team %q already participated", c.category, team)
		c.setErrorLocked(MsgAlreadyParticipated)
		c.hasParticipated = true
		c.isVerified = false
	} else {
		c.isVerified = true
	}
	return c.snapshotLocked()
}

// SpinCard draws one outcome and records it. It only acts in the verified
// phase. Once the draw happens the workflow always ends recorded, even when
// the ledger write fails, so the same device is never offered a second draw.
func (c *Controller) SpinCard(ctx context.Context) models.DrawState {
	// Drawn before locking: LabelFor panics on a bad slot and mu must not be held then.
	label := c.outcomes.LabelFor(c.slot(c.outcomes.Size()) + 1)

	c.mu.Lock()
	if c.snapshotLocked().Phase() != models.PhaseVerified {
		defer c.mu.Unlock()
		return c.snapshotLocked()
	}
	c.isSpinning = true
	c.errMsg = nil
	team := models.NormalizeTeam(c.teamName)
	c.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	_ = c.delay(ctx, c.spinDelay)

	if err := c.ledger.RecordResult(ctx, c.category, team, label); err != nil {
		logger.Warningf("draw %s: recording %q for team %q failed, keeping result: %v", c.category, label, team, err)
	} else {
		logger.Infof("draw %s: team %q drew %q", c.category, team, label)
	}
	c.participation.MarkParticipated(ctx, c.category)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.isSpinning = false
	c.isRecorded = true
	c.hasParticipated = true
	c.outcome = label
	return c.snapshotLocked()
}

// ResetState clears the team name, verification, recorded result and error.
// The durable participation flag is left alone. It is ignored while a verify
// or spin is in flight.
func (c *Controller) ResetState() models.DrawState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isVerifying || c.isSpinning {
		return c.snapshotLocked()
	}
	c.teamName = ""
	c.isVerified = false
	c.isRecorded = false
	c.errMsg = nil
	c.outcome = ""
	return c.snapshotLocked()
}

// Snapshot returns the current published state.
func (c *Controller) Snapshot() models.DrawState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) setErrorLocked(msg string) {
	c.errMsg = &msg
}

func (c *Controller) snapshotLocked() models.DrawState {
	var errMsg *string
	if c.errMsg != nil {
		msg := *c.errMsg
		errMsg = &msg
	}
	return models.DrawState{
		Category:        c.category,
		TeamName:        c.teamName,
		IsVerifying:     c.isVerifying,
		IsVerified:      c.isVerified,
		IsSpinning:      c.isSpinning,
		IsRecorded:      c.isRecorded,
		HasParticipated: c.hasParticipated,
		Error:           errMsg,
		Outcome:         c.outcome,
	}
}
