package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/nekogravitycat/escape-room-booking/internal/room"
)

// RoomSyncer applies room seeds. room.Service satisfies it.
type RoomSyncer interface {
	Sync(ctx context.Context, seeds []room.Seed) (room.SyncResult, error)
}

// WatchRooms syncs the rooms file once, then re-syncs whenever its
// modification time moves forward. The initial load and sync errors are
// returned; later failures are logged and retried on the next change.
func WatchRooms(ctx context.Context, path string, interval time.Duration, syncer RoomSyncer, logger zerolog.Logger) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	if err := syncRooms(ctx, path, syncer); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue // transient
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				lastMod = info.ModTime()
				if err := syncRooms(ctx, path, syncer); err != nil {
					logger.Error().Err(err).Str("path", path).Msg("rooms config reload failed")
					continue
				}
				logger.Info().Str("path", path).Msg("rooms config reloaded")
			}
		}
	}()

	return nil
}

func syncRooms(ctx context.Context, path string, syncer RoomSyncer) error {
	cfg, err := LoadRoomsConfig(path)
	if err != nil {
		return err
	}
	_, err = syncer.Sync(ctx, cfg.Seeds())
	return err
}
