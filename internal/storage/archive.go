package storage

import (
	"context"
	"log"

	"github.com/codebuildervaibhav/voice-clipboard/internal/history"
	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// Archiver exports a freshly inserted record somewhere outside the store
type Archiver interface {
	Name() string
	Archive(ctx context.Context, rec types.Record) error
}

// ArchivingStore wraps a history store and hands every inserted record to its
// archivers. Archive failures are logged and never fail the insert.
type ArchivingStore struct {
	history.Store
	archivers []Archiver
}

// NewArchivingStore wraps store. With no archivers it behaves exactly like store.
func NewArchivingStore(store history.Store, archivers ...Archiver) *ArchivingStore {
	return &ArchivingStore{Store: store, archivers: archivers}
}

// Insert stores rec, then archives it under the assigned id
func (a *ArchivingStore) Insert(ctx context.Context, rec types.Record) (string, error) {
	id, err := a.Store.Insert(ctx, rec)
	if err != nil {
		return "", err
	}

	rec.ID = id
	for _, archiver := range a.archivers {
		if err := archiver.Archive(ctx, rec); err != nil {
			log.Printf("WARNING: %s archive failed for record %s: %v", archiver.Name(), id, err)
		}
	}
	return id, nil
}
