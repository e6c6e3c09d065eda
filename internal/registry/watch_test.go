package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/ml_models"
)

func TestWatchFiresOnPublish(t *testing.T) {
	r := newTestRegistry(t, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- r.Watch(ctx, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher time to register before publishing.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, r.Publish("v1", map[Kind]interface{}{
		KindTabular: &ml_models.TabularRegressor{Base: 1},
	}))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the manifest change")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on context cancellation")
	}
}

func TestWatchIgnoresArtifactWrites(t *testing.T) {
	assert.True(t, isManifestEvent("/models/manifest.yaml"))
	assert.False(t, isManifestEvent("/models/tabular_v1.cbor"))
	assert.False(t, isManifestEvent("/models/.manifest-tmp-123.yaml"))
}
