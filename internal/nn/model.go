// Package nn evaluates the learned option scorer: a small feed-forward
// regression network that predicts an option's expected harm from the same
// inputs the deterministic calculator sees.
package nn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Layer is one dense layer. Weights are stored output-major, so W has one
// row per output unit.
type Layer struct {
	W *mat.Dense
	B *mat.VecDense
}

// HarmModel is a feed-forward network with ReLU hidden layers and a single
// linear output unit.
type HarmModel struct {
	encoder Encoder
	layers  []Layer
	mu      sync.RWMutex
}

// ModelConfig holds the architecture of a freshly initialised model.
type ModelConfig struct {
	HiddenDims []int
	Seed       uint64
}

// DefaultModelConfig matches the architecture the exporter produces.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{HiddenDims: []int{64, 32}, Seed: 1}
}

// NewHarmModel creates an untrained model with Xavier-initialised weights
// sized for enc. enc must encode at least one value.
func NewHarmModel(enc Encoder, cfg ModelConfig) *HarmModel {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	dims := append([]int{enc.Width()}, cfg.HiddenDims...)
	dims = append(dims, 1)

	m := &HarmModel{encoder: enc}
	for i := 0; i < len(dims)-1; i++ {
		in, out := dims[i], dims[i+1]
		scale := math.Sqrt(2.0 / float64(in+out))
		w := make([]float64, in*out)
		for j := range w {
			w[j] = (rng.Float64()*2 - 1) * scale
		}
		m.layers = append(m.layers, Layer{W: mat.NewDense(out, in, w), B: mat.NewVecDense(out, nil)})
	}
	return m
}

// NewHarmModelFromLayers builds a model from explicit weights.
func NewHarmModelFromLayers(enc Encoder, layers []Layer) (*HarmModel, error) {
	m := &HarmModel{encoder: enc, layers: layers}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Encoder returns the model's input encoder.
func (m *HarmModel) Encoder() *Encoder {
	return &m.encoder
}

func (m *HarmModel) validate() error {
	if err := m.encoder.Validate(); err != nil {
		return err
	}
	if len(m.layers) == 0 {
		return fmt.Errorf("model has no layers")
	}
	in := m.encoder.Width()
	for i, l := range m.layers {
		if l.W == nil || l.B == nil {
			return fmt.Errorf("layer %d is missing weights or bias", i)
		}
		r, c := l.W.Dims()
		if c != in {
			return fmt.Errorf("layer %d expects %d inputs, previous layer gives %d", i, c, in)
		}
		if l.B.Len() != r {
			return fmt.Errorf("layer %d has %d outputs but %d biases", i, r, l.B.Len())
		}
		in = r
	}
	if in != 1 {
		return fmt.Errorf("model must have a single output, has %d", in)
	}
	return nil
}

// Predict runs inference on an encoded input vector.
func (m *HarmModel) Predict(input []float64) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.layers) == 0 {
		return 0, fmt.Errorf("model has no layers")
	}
	if _, c := m.layers[0].W.Dims(); len(input) != c {
		return 0, fmt.Errorf("input has %d values, model expects %d", len(input), c)
	}

	x := mat.NewVecDense(len(input), append([]float64(nil), input...))
	for i, l := range m.layers {
		r, _ := l.W.Dims()
		h := mat.NewVecDense(r, nil)
		h.MulVec(l.W, x)
		h.AddVec(h, l.B)
		if i < len(m.layers)-1 {
			raw := h.RawVector().Data
			for j, v := range raw {
				if v < 0 {
					raw[j] = 0
				}
			}
		}
		x = h
	}
	return x.AtVec(0), nil
}

// Score encodes src and predicts its expected harm.
func (m *HarmModel) Score(src FeatureSource) (float64, error) {
	return m.Predict(m.encoder.Encode(src))
}

// GetConfig describes the loaded architecture.
func (m *HarmModel) GetConfig() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dims := []int{}
	for _, l := range m.layers {
		r, _ := l.W.Dims()
		dims = append(dims, r)
	}
	return map[string]interface{}{
		"input_dim":  m.encoder.Width(),
		"layer_dims": dims,
		"num_layers": len(m.layers),
	}
}

type layerFile struct {
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
}

type modelFile struct {
	Encoder Encoder     `json:"encoder"`
	Layers  []layerFile `json:"layers"`
}

// MarshalJSON writes the model in its bundle format.
func (m *HarmModel) MarshalJSON() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f := modelFile{Encoder: m.encoder}
	for _, l := range m.layers {
		r, _ := l.W.Dims()
		lf := layerFile{Bias: append([]float64(nil), l.B.RawVector().Data...)}
		for i := 0; i < r; i++ {
			lf.Weights = append(lf.Weights, mat.Row(nil, i, l.W))
		}
		f.Layers = append(f.Layers, lf)
	}
	return json.Marshal(f)
}

// UnmarshalJSON reads a model bundle and checks its shapes.
func (m *HarmModel) UnmarshalJSON(data []byte) error {
	var f modelFile
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}

	layers := make([]Layer, 0, len(f.Layers))
	for i, lf := range f.Layers {
		if len(lf.Weights) == 0 {
			return fmt.Errorf("layer %d has no weights", i)
		}
		cols := len(lf.Weights[0])
		if cols == 0 {
			return fmt.Errorf("layer %d has empty weight rows", i)
		}
		flat := make([]float64, 0, len(lf.Weights)*cols)
		for j, row := range lf.Weights {
			if len(row) != cols {
				return fmt.Errorf("layer %d row %d has %d weights, want %d", i, j, len(row), cols)
			}
			flat = append(flat, row...)
		}
		if len(lf.Bias) == 0 {
			return fmt.Errorf("layer %d has no bias", i)
		}
		layers = append(layers, Layer{
			W: mat.NewDense(len(lf.Weights), cols, flat),
			B: mat.NewVecDense(len(lf.Bias), append([]float64(nil), lf.Bias...)),
		})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.encoder = f.Encoder
	m.layers = layers
	return m.validate()
}

// Save writes the model bundle to disk.
func (m *HarmModel) Save(path string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// maxModelBytes caps a downloaded model bundle.
var maxModelBytes int64 = 32 << 20

// Load reads a model bundle from a file path or an http(s) URL.
func Load(ctx context.Context, src string, client *http.Client) (*HarmModel, error) {
	var data []byte
	var err error
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		data, err = fetch(ctx, src, client)
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", src, err)
	}

	m := &HarmModel{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", src, err)
	}
	return m, nil
}

func fetch(ctx context.Context, url string, client *http.Client) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxModelBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxModelBytes {
		return nil, fmt.Errorf("model bundle larger than %d bytes", maxModelBytes)
	}
	return data, nil
}
