package registry

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tasktracker/internal/ml_models"
)

func newTestRegistry(t *testing.T, keep int) *Registry {
	t.Helper()
	r, err := New(t.TempDir(), keep, time.Second, zap.NewNop())
	require.NoError(t, err)
	return r
}

func TestPublishAndLoadRoundtrip(t *testing.T) {
	r := newTestRegistry(t, 3)

	model := &ml_models.TabularRegressor{
		Base:         42,
		LearningRate: 0.1,
		Stumps:       []ml_models.Stump{{Feature: 1, Threshold: 0.5, Left: -1, Right: 1}},
	}
	require.NoError(t, r.Publish("v1", map[Kind]interface{}{KindTabular: model}))

	var loaded ml_models.TabularRegressor
	require.NoError(t, r.Load(KindTabular, &loaded))
	assert.Equal(t, model.Base, loaded.Base)
	assert.Equal(t, model.Stumps, loaded.Stumps)

	version, err := r.ActiveVersion(KindTabular)
	require.NoError(t, err)
	assert.Equal(t, "v1", version)
	assert.True(t, r.Has(KindTabular))
}

func TestLoadMissingArtifact(t *testing.T) {
	r := newTestRegistry(t, 3)

	var model ml_models.TabularRegressor
	err := r.Load(KindTabular, &model)
	assert.ErrorIs(t, err, ErrArtifactMissing)
	assert.False(t, r.Has(KindTabular))
}

func TestPublishKeepsOtherKinds(t *testing.T) {
	r := newTestRegistry(t, 3)

	require.NoError(t, r.Publish("v1", map[Kind]interface{}{
		KindTabular: &ml_models.TabularRegressor{Base: 1},
		KindClasses: []string{"a", "b"},
	}))
	require.NoError(t, r.Publish("v2", map[Kind]interface{}{
		KindTabular: &ml_models.TabularRegressor{Base: 2},
	}))

	tabularVersion, err := r.ActiveVersion(KindTabular)
	require.NoError(t, err)
	assert.Equal(t, "v2", tabularVersion)

	classesVersion, err := r.ActiveVersion(KindClasses)
	require.NoError(t, err)
	assert.Equal(t, "v1", classesVersion)

	var classes []string
	require.NoError(t, r.Load(KindClasses, &classes))
	assert.Equal(t, []string{"a", "b"}, classes)
}

func TestPublishPrunesSuperseded(t *testing.T) {
	r := newTestRegistry(t, 1)

	require.NoError(t, r.Publish("v1", map[Kind]interface{}{
		KindTabular: &ml_models.TabularRegressor{Base: 1},
	}))
	require.NoError(t, r.Publish("v2", map[Kind]interface{}{
		KindTabular: &ml_models.TabularRegressor{Base: 2},
	}))

	_, err := os.Stat(r.artifactPath(KindTabular, "v1"))
	assert.True(t, os.IsNotExist(err), "superseded artifact should be removed")
	_, err = os.Stat(r.artifactPath(KindTabular, "v2"))
	assert.NoError(t, err)
}

func TestPublishEmptySet(t *testing.T) {
	r := newTestRegistry(t, 3)
	assert.Error(t, r.Publish("v1", nil))
}

func TestPublishLockBoundedWait(t *testing.T) {
	dir := t.TempDir()
	holder, err := New(dir, 3, time.Second, zap.NewNop())
	require.NoError(t, err)
	waiter, err := New(dir, 3, 150*time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	lock, err := holder.acquirePublishLock()
	require.NoError(t, err)
	defer lock.release()

	start := time.Now()
	err = waiter.Publish("v1", map[Kind]interface{}{
		KindTabular: &ml_models.TabularRegressor{Base: 1},
	})
	assert.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestPublishLockReleased(t *testing.T) {
	r := newTestRegistry(t, 3)

	lock, err := r.acquirePublishLock()
	require.NoError(t, err)
	lock.release()

	require.NoError(t, r.Publish("v1", map[Kind]interface{}{
		KindTabular: &ml_models.TabularRegressor{Base: 1},
	}))
}

func TestTimestampVersion(t *testing.T) {
	ts := time.Date(2024, 5, 17, 13, 45, 9, 0, time.UTC)
	assert.Equal(t, "20240517134509", TimestampVersion(ts))
}
