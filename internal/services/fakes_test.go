package services

import (
	"context"
	"sync"
	"time"

	"carddraw/internal/models"
)

type recordCall struct {
	Category models.Category
	Team     string
	Result   string
}

// fakeLedger records every call and answers from its fields.
type fakeLedger struct {
	mu        sync.Mutex
	exists    bool
	checkErr  error
	recordErr error
	// block, when set, holds CheckExists until it is closed.
	block chan struct{}

	checkCalls int
	records    []recordCall
}

func (f *fakeLedger) CheckExists(_ context.Context, _ models.Category, _ string) (bool, error) {
	f.mu.Lock()
	f.checkCalls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exists, f.checkErr
}

func (f *fakeLedger) RecordResult(_ context.Context, category models.Category, team, result string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, recordCall{Category: category, Team: team, Result: result})
	return f.recordErr
}

func (f *fakeLedger) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkCalls, len(f.records)
}

// memFlags is an in-memory FlagStore with optional failures.
type memFlags struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	setErr error
}

func newMemFlags() *memFlags {
	return &memFlags{values: make(map[string]string)}
}

func (m *memFlags) GetFlag(_ context.Context, device, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	return m.values[device+"/"+key], nil
}

func (m *memFlags) SetFlag(_ context.Context, device, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[device+"/"+key] = value
	return nil
}

func (m *memFlags) get(device, key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[device+"/"+key]
}

// noDelay records requested delays without waiting.
type noDelay struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (d *noDelay) Delay(_ context.Context, dur time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dur)
	return nil
}

// errText returns the published error message, or "" when there is none.
func errText(st models.DrawState) string {
	if st.Error == nil {
		return ""
	}
	return *st.Error
}

// fixedSlot returns a slot source that always picks the given 1-based slot.
func fixedSlot(slot int) func(n int) int {
	return func(n int) int { return slot - 1 }
}
