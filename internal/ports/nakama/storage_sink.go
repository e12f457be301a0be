package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"zhajinhua/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

var ErrArchiveNotFound = errors.New("archive not found")

// ArchiveStore is the part of runtime.NakamaModule the archive sink needs.
type ArchiveStore interface {
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
}

// StorageSink persists finished games as system-owned storage objects keyed by game id.
type StorageSink struct {
	store ArchiveStore
}

// NewStorageSink creates a sink over Nakama storage.
func NewStorageSink(store ArchiveStore) *StorageSink {
	return &StorageSink{store: store}
}

// Append writes the archive once. A second write for the same game is rejected by version.
func (s *StorageSink) Append(ctx context.Context, archive ports.GameArchive) error {
	if archive.GameID == "" {
		return fmt.Errorf("game id is required")
	}
	value, err := json.Marshal(archive)
	if err != nil {
		return fmt.Errorf("failed to marshal archive: %w", err)
	}

	writes := []*runtime.StorageWrite{
		{
			Collection:      ArchiveCollection,
			Key:             archive.GameID,
			Value:           string(value),
			Version:         "*",
			PermissionRead:  runtime.STORAGE_PERMISSION_PUBLIC_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	}
	if _, err := s.store.StorageWrite(ctx, writes); err != nil {
		return fmt.Errorf("failed to store archive %s: %w", archive.GameID, err)
	}
	return nil
}

// Load reads an archive back by game id.
func (s *StorageSink) Load(ctx context.Context, gameID string) (ports.GameArchive, error) {
	objects, err := s.store.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: ArchiveCollection, Key: gameID},
	})
	if err != nil {
		return ports.GameArchive{}, fmt.Errorf("failed to read archive %s: %w", gameID, err)
	}
	if len(objects) == 0 {
		return ports.GameArchive{}, ErrArchiveNotFound
	}
	var archive ports.GameArchive
	if err := json.Unmarshal([]byte(objects[0].GetValue()), &archive); err != nil {
		return ports.GameArchive{}, fmt.Errorf("failed to unmarshal archive %s: %w", gameID, err)
	}
	return archive, nil
}

var _ ports.LogSink = (*StorageSink)(nil)
