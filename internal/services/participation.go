package services

import (
	"context"

	"carddraw/internal/models"

	"github.com/google/logger"
)

// DefaultStorageKeyPrefix prefixes the category name to form the flag key.
const DefaultStorageKeyPrefix = "codeArena_participated_"

const participatedValue = "true"

// FlagStore is a device-scoped string key/value store.
type FlagStore interface {
	GetFlag(ctx context.Context, device, key string) (string, error)
	SetFlag(ctx context.Context, device, key, value string) error
}

// Participation is the durable "this device already drew" marker, one per
// category. Storage failures are logged and never reach the caller: reads
// degrade to false and writes become no-ops.
type Participation struct {
	store  FlagStore
	device string
	prefix string
}

// NewParticipation scopes store to one device. An empty prefix uses
// DefaultStorageKeyPrefix.
func NewParticipation(store FlagStore, device, prefix string) *Participation {
	if prefix == "" {
		prefix = DefaultStorageKeyPrefix
	}
	return &Participation{store: store, device: device, prefix: prefix}
}

// StorageKey returns the flag key for category.
func (p *Participation) StorageKey(category models.Category) string {
	return p.prefix + string(category)
}

// HasParticipated returns the stored flag, false if never set or unreadable.
func (p *Participation) HasParticipated(ctx context.Context, category models.Category) bool {
	if p == nil || p.store == nil {
		return false
	}
	value, err := p.store.GetFlag(ctx, p.device, p.StorageKey(category))
	if err != nil {
		logger.Warningf("participation: read %s for device %s: %v", p.StorageKey(category), p.device, err)
		return false
	}
	return value == participatedValue
}

// MarkParticipated sets the flag. Repeated calls are harmless.
func (p *Participation) MarkParticipated(ctx context.Context, category models.Category) {
	if p == nil || p.store == nil {
		return
	}
	if err := p.store.SetFlag(ctx, p.device, p.StorageKey(category), participatedValue); err != nil {
		logger.Warningf("participation: write %s for device %s: %v", p.StorageKey(category), p.device, err)
	}
}
