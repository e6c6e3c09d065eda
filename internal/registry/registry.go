// Package registry stores versioned model artifacts on disk and tracks
// the active version per artifact kind through a manifest file. Readers
// never lock; publishers write all version files first and repoint the
// manifest atomically, so a concurrent reader cannot observe a torn
// artifact set.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Kind identifies an artifact family.
type Kind string

const (
	KindClassifier   Kind = "classifier"
	KindVectorizer   Kind = "vectorizer"
	KindClasses      Kind = "classes"
	KindEmbedding    Kind = "embedding"
	KindTabular      Kind = "tabular"
	KindSequence     Kind = "sequence"
	KindPreprocessor Kind = "preprocessor"
)

// Version tags for non-training publications.
const (
	VersionInitial  = "initial"
	VersionFallback = "fallback"
)

// ErrArtifactMissing is returned when a kind has no active version or
// its file is absent.
var ErrArtifactMissing = errors.New("model artifact missing")

const manifestName = "manifest.yaml"

// manifest names the active version per artifact kind.
type manifest struct {
	Active    map[string]string `yaml:"active"`
	UpdatedAt time.Time         `yaml:"updated_at"`
}

// Registry is a file-backed artifact store rooted at a single directory.
type Registry struct {
	dir      string
	keep     int
	lockWait time.Duration
	logger   *zap.Logger
}

// New opens (creating if needed) a registry directory. keep bounds how
// many superseded versions per kind survive pruning.
func New(dir string, keep int, lockWait time.Duration, logger *zap.Logger) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}
	return &Registry{dir: dir, keep: keep, lockWait: lockWait, logger: logger}, nil
}

// Dir returns the registry root.
func (r *Registry) Dir() string { return r.dir }

// Has reports whether an active artifact of the kind exists on disk.
func (r *Registry) Has(kind Kind) bool {
	m, err := r.readManifest()
	if err != nil {
		return false
	}
	version, ok := m.Active[string(kind)]
	if !ok {
		return false
	}
	_, err = os.Stat(r.artifactPath(kind, version))
	return err == nil
}

// ActiveVersion returns the version the manifest points at for a kind.
func (r *Registry) ActiveVersion(kind Kind) (string, error) {
	m, err := r.readManifest()
	if err != nil {
		return "", err
	}
	version, ok := m.Active[string(kind)]
	if !ok {
		return "", ErrArtifactMissing
	}
	return version, nil
}

// Load decodes the active artifact of the kind into out.
func (r *Registry) Load(kind Kind, out interface{}) error {
	version, err := r.ActiveVersion(kind)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(r.artifactPath(kind, version))
	if errors.Is(err, os.ErrNotExist) {
		return ErrArtifactMissing
	}
	if err != nil {
		return fmt.Errorf("read artifact %s_%s: %w", kind, version, err)
	}

	if err := cbor.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode artifact %s_%s: %w", kind, version, err)
	}
	return nil
}

// Publish writes a complete artifact set under one version tag and then
// repoints the manifest. Kinds not included keep their current active
// version. Serialized against concurrent publishers by a file lock with
// a bounded wait.
func (r *Registry) Publish(version string, artifacts map[Kind]interface{}) error {
	if len(artifacts) == 0 {
		return errors.New("publish: no artifacts")
	}

	lock, err := r.acquirePublishLock()
	if err != nil {
		return err
	}
	defer lock.release()

	superseded := make(map[Kind]string)
	current, err := r.readManifest()
	if err == nil {
		for kind := range artifacts {
			if old, ok := current.Active[string(kind)]; ok && old != version {
				superseded[kind] = old
			}
		}
	}

	for kind, artifact := range artifacts {
		if err := r.writeArtifact(kind, version, artifact); err != nil {
			return err
		}
	}

	m := manifest{Active: map[string]string{}, UpdatedAt: time.Now().UTC()}
	if current != nil {
		for kind, v := range current.Active {
			m.Active[kind] = v
		}
	}
	for kind := range artifacts {
		m.Active[string(kind)] = version
	}
	if err := r.writeManifest(&m); err != nil {
		return err
	}

	r.logger.Info("Published model artifacts",
		zap.String("version", version),
		zap.Int("count", len(artifacts)))

	// Old versions are removed only after the new manifest is in place.
	for kind := range superseded {
		r.pruneKind(kind, m.Active[string(kind)])
	}
	return nil
}

// Prune removes superseded artifact files beyond the retention limit
// for every kind named in the manifest.
func (r *Registry) Prune() error {
	m, err := r.readManifest()
	if err != nil {
		return err
	}
	for kind, active := range m.Active {
		r.pruneKind(Kind(kind), active)
	}
	return nil
}

func (r *Registry) pruneKind(kind Kind, activeVersion string) {
	pattern := filepath.Join(r.dir, string(kind)+"_*.cbor")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return
	}

	type versioned struct {
		path    string
		modTime time.Time
	}
	var old []versioned
	for _, path := range files {
		if path == r.artifactPath(kind, activeVersion) {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		old = append(old, versioned{path: path, modTime: info.ModTime()})
	}

	keep := r.keep - 1 // the active version counts toward retention
	if keep < 0 {
		keep = 0
	}
	if len(old) <= keep {
		return
	}

	sort.Slice(old, func(i, j int) bool { return old[i].modTime.After(old[j].modTime) })
	for _, stale := range old[keep:] {
		if err := os.Remove(stale.path); err != nil {
			r.logger.Warn("Failed to remove stale artifact", zap.String("path", stale.path), zap.Error(err))
		} else {
			r.logger.Debug("Removed stale artifact", zap.String("path", stale.path))
		}
	}
}

func (r *Registry) artifactPath(kind Kind, version string) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s_%s.cbor", kind, version))
}

func (r *Registry) manifestPath() string {
	return filepath.Join(r.dir, manifestName)
}

func (r *Registry) writeArtifact(kind Kind, version string, artifact interface{}) error {
	data, err := cbor.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("encode artifact %s: %w", kind, err)
	}

	path := r.artifactPath(kind, version)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact %s: %w", kind, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write artifact %s: %w", kind, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync artifact %s: %w", kind, err)
	}
	return f.Close()
}

func (r *Registry) readManifest() (*manifest, error) {
	data, err := os.ReadFile(r.manifestPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrArtifactMissing
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Active == nil {
		m.Active = map[string]string{}
	}
	return &m, nil
}

// writeManifest rewrites the manifest through a temp file and rename so
// readers see either the old or the new version set, never a partial
// one.
func (r *Registry) writeManifest(m *manifest) error {
	content, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, ".manifest-tmp-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp manifest: %w", err)
	}

	if err := os.Rename(tmpName, r.manifestPath()); err != nil {
		return fmt.Errorf("rename manifest: %w", err)
	}
	return nil
}

// TimestampVersion formats a training-run version tag.
func TimestampVersion(t time.Time) string {
	return t.UTC().Format("20060102150405")
}

// isManifestEvent reports whether a filesystem event targets the
// manifest itself. The watcher ignores artifact and temp file writes.
func isManifestEvent(name string) bool {
	return strings.HasSuffix(name, manifestName)
}
