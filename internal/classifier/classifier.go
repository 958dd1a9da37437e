// Package classifier defines the supervised-model capability the prediction
// pipeline depends on, and the random forest that implements it.
package classifier

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Classifier is a trained (or trainable) multi-class model over dense
// numeric features. Class ids are 0..NumClasses()-1.
type Classifier interface {
	// Kind names the algorithm. It selects the decoder when a serialized
	// model is loaded.
	Kind() string

	// Fit trains on X (one row per sample) with labels y in [0, nClasses).
	Fit(X [][]float64, y []int, nClasses int) error

	// Predict returns the most likely class id for x.
	Predict(x []float64) (int, error)

	// PredictProba returns one probability per class id, summing to 1.
	PredictProba(x []float64) ([]float64, error)

	NumClasses() int
	NumFeatures() int

	// FeatureImportances returns one normalized weight per feature.
	FeatureImportances() []float64

	MarshalBinary() ([]byte, error)
}

// Decoder rebuilds a Classifier of a given kind from its MarshalBinary output.
type Decoder func(data []byte) (Classifier, error)

var (
	decodersMu sync.RWMutex
	decoders   = map[string]Decoder{}
)

// Register makes a decoder available to Unmarshal.
func Register(kind string, d Decoder) {
	decodersMu.Lock()
	defer decodersMu.Unlock()
	decoders[kind] = d
}

// Kinds lists the registered classifier kinds.
func Kinds() []string {
	decodersMu.RLock()
	defer decodersMu.RUnlock()
	out := make([]string, 0, len(decoders))
	for k := range decoders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// envelope tags a serialized model with its kind.
type envelope struct {
	Kind    string
	Payload []byte
}

// Marshal serializes c together with its kind.
func Marshal(c Classifier) ([]byte, error) {
	payload, err := c.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", c.Kind(), err)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(envelope{Kind: c.Kind(), Payload: payload}); err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a model produced by Marshal.
func Unmarshal(data []byte) (Classifier, error) {
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	decodersMu.RLock()
	d, ok := decoders[env.Kind]
	decodersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown classifier kind %q", env.Kind)
	}
	return d(env.Payload)
}

// argmax returns the index of the largest value; the first one wins ties.
func argmax(p []float64) int {
	best := 0
	for i := 1; i < len(p); i++ {
		if p[i] > p[best] {
			best = i
		}
	}
	return best
}

func checkInput(x []float64, nFeatures int) error {
	if nFeatures == 0 {
		return ErrNotFitted
	}
	if len(x) != nFeatures {
		return fmt.Errorf("got %d features, model expects %d", len(x), nFeatures)
	}
	return nil
}

// ErrNotFitted is returned when predicting with an untrained model.
var ErrNotFitted = errors.New("classifier is not fitted")
