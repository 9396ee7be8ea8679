package analyses

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nthompson1415/AVECapstone/internal/harm"
)

// WeightsDocumentType tags an exported weights file.
const WeightsDocumentType = "personal-ethics-weights"

var (
	// ErrInvalidWeightsFile is returned when a weights import is not valid
	// JSON or does not match the weights schema.
	ErrInvalidWeightsFile = errors.New("invalid weights file")
	// ErrMissingWeights is returned when a weights import has no weights.
	ErrMissingWeights = errors.New("invalid weights file: missing weights")
)

// WeightsDocument is the interchange format for personal ethics weights.
type WeightsDocument struct {
	Weights   harm.Weights `json:"weights"`
	Timestamp string       `json:"timestamp"`
	Type      string       `json:"type"`
}

// NewWeightsDocument builds a weights document stamped with the current time.
func NewWeightsDocument(w harm.Weights) WeightsDocument {
	return WeightsDocument{
		Weights:   w,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Type:      WeightsDocumentType,
	}
}

//go:embed weights.schema.json
var weightsSchema []byte

const weightsSchemaURL = "https://avecapstone.local/schemas/weights.schema.json"

var compileWeightsSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return compile(weightsSchemaURL, weightsSchema)
})

// DecodeWeights parses and validates an imported weights file. Ratings the
// file leaves out keep their default values.
func DecodeWeights(data []byte) (*WeightsDocument, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWeightsFile, err)
	}
	if w, ok := raw["weights"]; !ok || bytes.Equal(bytes.TrimSpace(w), []byte("null")) {
		return nil, ErrMissingWeights
	}

	schema, err := compileWeightsSchema()
	if err != nil {
		return nil, err
	}
	if err := validate(schema, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWeightsFile, err)
	}

	doc := WeightsDocument{Weights: harm.DefaultWeights()}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWeightsFile, err)
	}
	if err := doc.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWeightsFile, err)
	}
	doc.Type = WeightsDocumentType
	return &doc, nil
}

// EncodeWeights renders a weights document for export.
func EncodeWeights(doc WeightsDocument) ([]byte, error) {
	if err := doc.Weights.Validate(); err != nil {
		return nil, err
	}
	if doc.Type == "" {
		doc.Type = WeightsDocumentType
	}
	return json.MarshalIndent(doc, "", "  ")
}
