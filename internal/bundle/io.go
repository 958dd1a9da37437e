package bundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/abhisek/medipredict/internal/classifier"
	"github.com/abhisek/medipredict/internal/codec"
)

// Artifact file names inside a bundle directory.
const (
	ModelFile    = "model.gob"
	LabelsFile   = "labels.gob"
	MetadataFile = "model_metadata.json"
	MappingsFile = "model_mappings.json"
	AIBOMFile    = "model_bom.json"
)

// ErrMissingArtifact is returned by Load when a required file is absent.
var ErrMissingArtifact = errors.New("model artifact missing")

// Exists reports whether dir holds every required artifact file.
func Exists(dir string) bool {
	for _, name := range []string{ModelFile, LabelsFile, MetadataFile, MappingsFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// Load reads and validates the bundle stored in dir. Either all four
// artifacts load and agree with each other, or Load fails.
func Load(dir string) (*Bundle, error) {
	read := func(name string) ([]byte, error) {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, filepath.Join(dir, name))
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}

	modelRaw, err := read(ModelFile)
	if err != nil {
		return nil, err
	}
	labelsRaw, err := read(LabelsFile)
	if err != nil {
		return nil, err
	}
	metaRaw, err := read(MetadataFile)
	if err != nil {
		return nil, err
	}
	mapRaw, err := read(MappingsFile)
	if err != nil {
		return nil, err
	}

	if err := validateDocument("model_metadata", metadataSchema, metaRaw); err != nil {
		return nil, err
	}
	if err := validateDocument("model_mappings", mappingsSchema, mapRaw); err != nil {
		return nil, err
	}

	b := &Bundle{}
	if err := json.Unmarshal(metaRaw, &b.Metadata); err != nil {
		return nil, fmt.Errorf("decode %s: %w", MetadataFile, err)
	}
	if err := json.Unmarshal(mapRaw, &b.Mappings); err != nil {
		return nil, fmt.Errorf("decode %s: %w", MappingsFile, err)
	}
	b.Classifier, err = classifier.Unmarshal(modelRaw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ModelFile, err)
	}
	b.Labels = &codec.LabelCodec{}
	if err := b.Labels.UnmarshalBinary(labelsRaw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", LabelsFile, err)
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}
	logger.Debugf("loaded %s model with %d classes from %s", b.Metadata.ModelType, b.Metadata.NClasses, dir)
	return b, nil
}

// SaveOptions selects the optional files written alongside the artifacts.
type SaveOptions struct {
	// AIBOM writes a CycloneDX model card for the bundle as AIBOMFile.
	AIBOM bool
}

// Save validates b and writes it to dir without a model card.
func Save(dir string, b *Bundle) error {
	return SaveWith(dir, b, SaveOptions{})
}

// SaveWith validates b and writes it to dir. Files are written to a sibling
// temporary directory first and swapped in with a rename, so readers never
// see a half-written bundle or a model card from another bundle.
func SaveWith(dir string, b *Bundle, opts SaveOptions) error {
	if err := b.Validate(); err != nil {
		return err
	}

	files, err := b.encode()
	if err != nil {
		return err
	}
	if opts.AIBOM {
		var buf bytes.Buffer
		if err := encodeAIBOM(&buf, b); err != nil {
			return err
		}
		files[AIBOMFile] = buf.Bytes()
	}

	dir = filepath.Clean(dir)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", parent, err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+"-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	for name, data := range files {
		if err := os.WriteFile(filepath.Join(tmp, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	// Unrelated files in an existing bundle dir are kept.
	if err := copyExtras(dir, tmp, files); err != nil {
		return err
	}

	old := ""
	if _, err := os.Stat(dir); err == nil {
		old = tmp + ".old"
		if err := os.Rename(dir, old); err != nil {
			return fmt.Errorf("move aside %s: %w", dir, err)
		}
	}
	if err := os.Rename(tmp, dir); err != nil {
		if old != "" {
			_ = os.Rename(old, dir)
		}
		return fmt.Errorf("install bundle: %w", err)
	}
	if old != "" {
		_ = os.RemoveAll(old)
	}
	logger.Logf("saved model bundle to %s", dir)
	return nil
}

func (b *Bundle) encode() (map[string][]byte, error) {
	model, err := classifier.Marshal(b.Classifier)
	if err != nil {
		return nil, err
	}
	labels, err := b.Labels.MarshalBinary()
	if err != nil {
		return nil, err
	}
	meta, err := json.MarshalIndent(b.Metadata, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	maps, err := json.MarshalIndent(b.Mappings, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode mappings: %w", err)
	}
	return map[string][]byte{
		ModelFile:    model,
		LabelsFile:   labels,
		MetadataFile: meta,
		MappingsFile: maps,
	}, nil
}

func copyExtras(from, to string, skip map[string][]byte) error {
	entries, err := os.ReadDir(from)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", from, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ours := skip[e.Name()]; ours {
			continue
		}
		// A model card describes the bundle it was written with.
		if e.Name() == AIBOMFile {
			continue
		}
		data, err := os.ReadFile(filepath.Join(from, e.Name()))
		if err != nil {
			return fmt.Errorf("read %s: %w", e.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(to, e.Name()), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", e.Name(), err)
		}
	}
	return nil
}
