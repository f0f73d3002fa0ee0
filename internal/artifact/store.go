// Package artifact persists a fitted model, its feature codec and a JSON
// metadata sidecar as one set.
//
// The three files are written to temporary names and renamed into place with
// the metadata last. Each file carries the run ID of the training run that
// produced it, and Load refuses a set whose run IDs disagree.
package artifact

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Veraticus/cropcast/internal/common"
	"github.com/Veraticus/cropcast/internal/features"
	"github.com/Veraticus/cropcast/internal/forest"
	"github.com/Veraticus/cropcast/internal/model"
)

// Artifact file names inside the store directory.
const (
	ModelFile    = "yield_model.gob"
	EncodersFile = "label_encoders.gob"
	MetadataFile = "model_metadata.json"
)

// Model is everything inference needs.
type Model struct {
	Forest   *forest.RandomForest
	Codec    *features.Codec
	Metadata model.Metadata
}

type modelBlob struct {
	Forest *forest.RandomForest
	RunID  string
}

type codecBlob struct {
	Codec *features.Codec
	RunID string
}

// Store reads and writes the artifact set in one directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created on first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the artifact directory.
func (s *Store) Dir() string {
	return s.dir
}

// Exists reports whether a complete artifact set appears to be present.
func (s *Store) Exists() bool {
	for _, name := range []string{ModelFile, EncodersFile, MetadataFile} {
		if _, err := os.Stat(filepath.Join(s.dir, name)); err != nil {
			return false
		}
	}
	return true
}

// Save writes m. A missing run ID is generated and written back to m.Metadata.
func (s *Store) Save(m *Model) error {
	if m == nil || m.Forest == nil || m.Codec == nil {
		return fmt.Errorf("%w: incomplete model", common.ErrPersistence)
	}
	if m.Metadata.RunID == "" {
		m.Metadata.RunID = uuid.NewString()
	}
	runID := m.Metadata.RunID

	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("%w: failed to create artifact directory: %w", common.ErrPersistence, err)
	}

	type pending struct {
		write func(io.Writer) error
		name  string
		tmp   string
	}
	files := []*pending{
		{name: ModelFile, write: func(w io.Writer) error {
			return gob.NewEncoder(w).Encode(modelBlob{RunID: runID, Forest: m.Forest})
		}},
		{name: EncodersFile, write: func(w io.Writer) error {
			return gob.NewEncoder(w).Encode(codecBlob{RunID: runID, Codec: m.Codec})
		}},
		{name: MetadataFile, write: func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(m.Metadata)
		}},
	}

	cleanup := func() {
		for _, p := range files {
			if p.tmp != "" {
				_ = os.Remove(p.tmp)
			}
		}
	}

	for _, p := range files {
		tmp, err := writeTemp(s.dir, p.name, p.write)
		if err != nil {
			cleanup()
			return fmt.Errorf("%w: %s: %w", common.ErrPersistence, p.name, err)
		}
		p.tmp = tmp
	}

	for _, p := range files {
		if err := os.Rename(p.tmp, filepath.Join(s.dir, p.name)); err != nil {
			cleanup()
			return fmt.Errorf("%w: failed to install %s: %w", common.ErrPersistence, p.name, err)
		}
		p.tmp = ""
	}
	return nil
}

func writeTemp(dir, name string, write func(io.Writer) error) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// Load reads the artifact set. It returns common.ErrModelNotFit when any file
// is absent and common.ErrPersistence when the set is unreadable or mixed.
func (s *Store) Load() (*Model, error) {
	var meta model.Metadata
	if err := s.readFile(MetadataFile, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&meta)
	}); err != nil {
		return nil, err
	}

	var mb modelBlob
	if err := s.readFile(ModelFile, func(r io.Reader) error {
		return gob.NewDecoder(r).Decode(&mb)
	}); err != nil {
		return nil, err
	}

	var cb codecBlob
	if err := s.readFile(EncodersFile, func(r io.Reader) error {
		return gob.NewDecoder(r).Decode(&cb)
	}); err != nil {
		return nil, err
	}

	if mb.RunID != meta.RunID || cb.RunID != meta.RunID {
		return nil, fmt.Errorf("%w: artifacts come from different training runs (model %s, encoders %s, metadata %s)",
			common.ErrPersistence, mb.RunID, cb.RunID, meta.RunID)
	}
	if mb.Forest == nil || cb.Codec == nil {
		return nil, fmt.Errorf("%w: artifact set is empty", common.ErrPersistence)
	}
	if mb.Forest.NFeatures != cb.Codec.Schema.Len() {
		return nil, fmt.Errorf("%w: model expects %d features, codec produces %d",
			common.ErrPersistence, mb.Forest.NFeatures, cb.Codec.Schema.Len())
	}

	return &Model{Forest: mb.Forest, Codec: cb.Codec, Metadata: meta}, nil
}

func (s *Store) readFile(name string, decode func(io.Reader) error) error {
	path := filepath.Join(s.dir, name)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s not found", common.ErrModelNotFit, path)
		}
		return fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}
	defer func() { _ = f.Close() }()

	if err := decode(f); err != nil {
		return fmt.Errorf("%w: failed to decode %s: %w", common.ErrPersistence, name, err)
	}
	return nil
}
