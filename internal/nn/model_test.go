package nn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/nthompson1415/AVECapstone/internal/harm"
)

type mapSource struct {
	num map[string]float64
	cat map[string]string
}

func (s mapSource) Numeric(name string) float64     { return s.num[name] }
func (s mapSource) Categorical(name string) string { return s.cat[name] }

func certaintyEncoder() Encoder {
	return Encoder{
		Numeric: NumericSpec{Features: []string{"certainty"}, Mean: []float64{0}, Scale: []float64{1}},
	}
}

// tinyModel computes 2*relu(x) + 3*relu(-x) + 1.
func tinyModel(t *testing.T) *HarmModel {
	t.Helper()
	m, err := NewHarmModelFromLayers(certaintyEncoder(), []Layer{
		{W: mat.NewDense(2, 1, []float64{1, -1}), B: mat.NewVecDense(2, nil)},
		{W: mat.NewDense(1, 2, []float64{2, 3}), B: mat.NewVecDense(1, []float64{1})},
	})
	require.NoError(t, err)
	return m
}

func TestEncode(t *testing.T) {
	enc := Encoder{
		Numeric: NumericSpec{
			Features: []string{"age", "certainty"},
			Mean:     []float64{40, 50},
			Scale:    []float64{10, 0},
		},
		Categorical: []CategoricalSpec{
			{Feature: "severity", Categories: []string{"minor", "fatal"}},
			{Feature: "species", Categories: []string{"human", "petDog"}},
		},
	}
	require.NoError(t, enc.Validate())
	assert.Equal(t, 6, enc.Width())

	got := enc.Encode(mapSource{
		num: map[string]float64{"age": 60, "certainty": 80},
		cat: map[string]string{"severity": "fatal", "species": "dragon"},
	})
	assert.Equal(t, []float64{2, 30, 0, 1, 0, 0}, got)
}

func TestEncoderValidate(t *testing.T) {
	enc := Encoder{Numeric: NumericSpec{Features: []string{"a", "b"}, Mean: []float64{0}, Scale: []float64{1, 1}}}
	assert.Error(t, enc.Validate())

	enc = certaintyEncoder()
	enc.InputDim = 3
	assert.Error(t, enc.Validate())
}

func TestOptionFeatures(t *testing.T) {
	ped := harm.DefaultProfile()
	ped.Age = 45
	ped.Species = harm.SpeciesPetCat
	f := OptionFeatures{
		Option: harm.Option{
			Occupants:        harm.OptionSide{Count: 1, Profile: harm.DefaultProfile()},
			Pedestrians:      harm.OptionSide{Count: 2, Profile: ped},
			Severity:         harm.SeveritySerious,
			CertaintyPercent: 95,
		},
		Flags: harm.FeatureFlags{IncludeControversial: true},
		Key:   harm.KeyOptionB,
	}

	assert.Equal(t, 1.0, f.Numeric("include_controversial"))
	assert.Equal(t, 0.0, f.Numeric("include_network"))
	assert.Equal(t, 2.0, f.Numeric("pedestrians"))
	assert.Equal(t, 45.0, f.Numeric("pedestrian_age"))
	assert.Equal(t, 95.0, f.Numeric("certainty"))
	assert.Equal(t, 3.0, f.Numeric("total_people"))
	assert.InDelta(t, 42.5+40, f.Numeric("life_years_lost"), 1e-9)
	assert.Equal(t, 0.0, f.Numeric("unknown"))

	assert.Equal(t, "option2", f.Categorical("option"))
	assert.Equal(t, "Medium (+ Occupation/Health/Criminal)", f.Categorical("connectedness"))
	assert.Equal(t, "serious", f.Categorical("severity"))
	assert.Equal(t, "petCat", f.Categorical("pedestrian_species"))
	assert.Equal(t, "average", f.Categorical("occupant_job"))
	assert.Equal(t, "", f.Categorical("pedestrian_shoe_size"))
}

func TestPredict(t *testing.T) {
	m := tinyModel(t)

	got, err := m.Predict([]float64{5})
	require.NoError(t, err)
	assert.Equal(t, 11.0, got)

	got, err = m.Predict([]float64{-4})
	require.NoError(t, err)
	assert.Equal(t, 13.0, got)

	_, err = m.Predict([]float64{1, 2})
	assert.Error(t, err)
}

func TestNewHarmModelShape(t *testing.T) {
	m := NewHarmModel(certaintyEncoder(), DefaultModelConfig())
	require.NoError(t, m.validate())

	info := m.GetConfig()
	assert.Equal(t, 1, info["input_dim"])
	assert.Equal(t, []int{64, 32, 1}, info["layer_dims"])

	_, err := m.Score(mapSource{num: map[string]float64{"certainty": 0.5}})
	assert.NoError(t, err)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	m := tinyModel(t)
	require.NoError(t, m.Save(path))

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("Model file was not created")
	}

	loaded, err := Load(context.Background(), path, nil)
	require.NoError(t, err)
	got, err := loaded.Predict([]float64{5})
	require.NoError(t, err)
	assert.Equal(t, 11.0, got)
}

func TestLoadFromURL(t *testing.T) {
	m := tinyModel(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/option_scorer.json" {
			http.NotFound(w, r)
			return
		}
		data, _ := m.MarshalJSON()
		w.Write(data)
	}))
	defer srv.Close()

	loaded, err := Load(context.Background(), srv.URL+"/models/option_scorer.json", srv.Client())
	require.NoError(t, err)
	got, err := loaded.Predict([]float64{-4})
	require.NoError(t, err)
	assert.Equal(t, 13.0, got)

	_, err = Load(context.Background(), srv.URL+"/missing.json", srv.Client())
	assert.Error(t, err)
}

func TestLoadFromURLTooLarge(t *testing.T) {
	m := tinyModel(t)
	data, err := m.MarshalJSON()
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	old := maxModelBytes
	defer func() { maxModelBytes = old }()

	maxModelBytes = int64(len(data))
	_, err = Load(context.Background(), srv.URL, srv.Client())
	require.NoError(t, err)

	maxModelBytes = int64(len(data)) - 1
	_, err = Load(context.Background(), srv.URL, srv.Client())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "larger than")
}

func TestLoadRejectsBadShapes(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"no layers", `{"encoder": {"numeric": {"features": ["certainty"], "mean": [0], "scale": [1]}}, "layers": []}`},
		{"ragged", `{"encoder": {"numeric": {"features": ["certainty"], "mean": [0], "scale": [1]}}, "layers": [{"weights": [[1], [1, 2]], "bias": [0, 0]}]}`},
		{"wrong input width", `{"encoder": {"numeric": {"features": ["certainty"], "mean": [0], "scale": [1]}}, "layers": [{"weights": [[1, 2]], "bias": [0]}]}`},
		{"two outputs", `{"encoder": {"numeric": {"features": ["certainty"], "mean": [0], "scale": [1]}}, "layers": [{"weights": [[1], [2]], "bias": [0, 0]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0644))
			_, err := Load(context.Background(), path, nil)
			assert.Error(t, err)
		})
	}

	_, err := Load(context.Background(), filepath.Join(dir, "absent.json"), nil)
	assert.Error(t, err)
}
