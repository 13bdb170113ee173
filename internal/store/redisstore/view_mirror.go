package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joeconsedine/claude-maze/internal/metrics"
)

const (
	viewKey      = "presentation:view"
	videoKey     = "presentation:video"
	writeTimeout = 2 * time.Second
	snapshotTTL  = 10 * time.Minute
)

// ViewMirror writes view snapshots to Redis. Writes are best effort and never
// sit on the coordinator's lock; callers pass the already-built snapshot.
type ViewMirror struct {
	client *redis.Client
}

func NewViewMirror(client *redis.Client) *ViewMirror {
	return &ViewMirror{client: client}
}

func (m *ViewMirror) write(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		metrics.SnapshotWritesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := m.client.Set(ctx, key, data, snapshotTTL).Err(); err != nil {
		metrics.SnapshotWritesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	metrics.SnapshotWritesTotal.WithLabelValues("ok").Inc()
	return nil
}

// PublishView mirrors the current view snapshot.
func (m *ViewMirror) PublishView(ctx context.Context, view any) error {
	return m.write(ctx, viewKey, view)
}

// PublishVideo mirrors the current video state.
func (m *ViewMirror) PublishVideo(ctx context.Context, video any) error {
	return m.write(ctx, videoKey, video)
}
