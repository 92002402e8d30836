package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when a screenshot or baseline does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidKey is returned for keys that would resolve outside the root.
var ErrInvalidKey = errors.New("invalid storage key")

// Storage directory layout, relative to the root.
const (
	BaselinesDir = "baselines"
	CurrentDir   = "current"
	DiffsDir     = "diffs"
	ManifestsDir = "manifests"

	metaSuffix = ".meta.json"
)

// Storage handles screenshot persistence on a directory tree:
//
//	baselines/<scenario>/<file>
//	current/<scenario>/<file>
//	diffs/<batch>/<scenario>/<file>
//	manifests/<batch>.json
type Storage struct {
	basePath string
}

// NewStorage creates a new storage manager
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		basePath = filepath.Join(home, ".shotcheck")
	}

	for _, dir := range []string{BaselinesDir, CurrentDir, DiffsDir, ManifestsDir} {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", dir, err)
		}
	}

	return &Storage{basePath: basePath}, nil
}

// BaselineKey returns the relative key of a baseline screenshot.
func BaselineKey(scenario, filename string) string {
	return BaselinesDir + "/" + scenario + "/" + filename
}

// CurrentKey returns the relative key of a current screenshot.
func CurrentKey(scenario, filename string) string {
	return CurrentDir + "/" + scenario + "/" + filename
}

// DiffKey returns the relative key of a diff image.
func DiffKey(batchID, scenario, filename string) string {
	return DiffsDir + "/" + SafeID(batchID) + "/" + scenario + "/" + filename
}

// ManifestKey returns the relative key of a batch manifest.
func ManifestKey(batchID string) string {
	return ManifestsDir + "/" + SafeID(batchID) + ".json"
}

// Path resolves a relative key against the root.
func (s *Storage) Path(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

// ReadCurrent loads the latest capture of a screenshot.
func (s *Storage) ReadCurrent(scenario, filename string) ([]byte, error) {
	return s.read(CurrentKey(scenario, filename))
}

// ReadBaseline loads the accepted baseline of a screenshot.
func (s *Storage) ReadBaseline(scenario, filename string) ([]byte, error) {
	return s.read(BaselineKey(scenario, filename))
}

// WriteCurrent stores a freshly captured screenshot.
func (s *Storage) WriteCurrent(scenario, filename string, data []byte) error {
	return s.write(CurrentKey(scenario, filename), data)
}

// WriteBaseline stores a baseline screenshot together with its metadata.
func (s *Storage) WriteBaseline(scenario, filename string, data []byte, meta BaselineMeta) error {
	key := BaselineKey(scenario, filename)
	if err := s.write(key, data); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	return s.write(key+metaSuffix, raw)
}

// ReadBaselineMeta loads the metadata written next to a baseline.
func (s *Storage) ReadBaselineMeta(scenario, filename string) (*BaselineMeta, error) {
	data, err := s.read(BaselineKey(scenario, filename) + metaSuffix)
	if err != nil {
		return nil, err
	}
	var meta BaselineMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return &meta, nil
}

// WriteDiff stores a diff image and returns its path.
func (s *Storage) WriteDiff(batchID, scenario, filename string, data []byte) (string, error) {
	return s.Put(DiffKey(batchID, scenario, filename), data)
}

// Put stores data under a relative key and returns its path.
func (s *Storage) Put(key string, data []byte) (string, error) {
	if err := s.write(key, data); err != nil {
		return "", err
	}
	return s.Path(key), nil
}

// resolve maps a key to a path under the root. Every slash-separated
// segment must be a plain name: no "..", ".", empty segment or backslash.
func (s *Storage) resolve(key string) (string, error) {
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." || strings.Contains(seg, `\`) {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	if !filepath.IsLocal(filepath.FromSlash(key)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return s.Path(key), nil
}

// WriteJSON stores v as indented JSON under key.
func (s *Storage) WriteJSON(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.write(key, data)
}

// ListBaselines returns every baseline key, sorted.
func (s *Storage) ListBaselines() ([]string, error) {
	root := s.Path(BaselinesDir)
	var keys []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, metaSuffix) || strings.HasSuffix(path, ".json") {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("walk baselines: %w", err)
	}

	sort.Strings(keys)
	return keys, nil
}

// DeleteBaseline removes a baseline and its metadata.
func (s *Storage) DeleteBaseline(scenario, filename string) error {
	key := BaselineKey(scenario, filename)
	for _, k := range []string{key, key + metaSuffix} {
		path, err := s.resolve(k)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove baseline: %w", err)
		}
	}
	return nil
}

func (s *Storage) read(key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (s *Storage) write(key string, data []byte) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// SafeID keeps batch ids (RFC 3339 instants with colons) usable as
// path segments on every platform.
func SafeID(id string) string {
	return strings.NewReplacer(":", "-", "/", "_", "\\", "_").Replace(id)
}
