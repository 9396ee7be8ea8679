// Package analyses handles the scenario interchange document and the
// file-backed store of saved analyses.
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

var (
	// ErrInvalidDocument is returned when an import is not valid JSON or
	// does not match the document schema.
	ErrInvalidDocument = errors.New("invalid scenario file")
	// ErrMissingScenario is returned when an import has no scenario.
	ErrMissingScenario = errors.New("invalid scenario file: missing scenario")
)

// Document is the interchange format for a scenario, its flags and
// optionally the result it produced.
type Document struct {
	Scenario     *harm.Scenario         `json:"scenario"`
	FeatureFlags harm.FeatureFlags      `json:"featureFlags"`
	Result       *harm.ComparisonResult `json:"result,omitempty"`
	Timestamp    string                 `json:"timestamp"`
}

// NewDocument builds a document stamped with the current time.
func NewDocument(s harm.Scenario, flags harm.FeatureFlags, result *harm.ComparisonResult) Document {
	return Document{
		Scenario:     &s,
		FeatureFlags: flags,
		Result:       result,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
}

//go:embed document.schema.json
var documentSchema []byte

const schemaURL = "https://avecapstone.local/schemas/document.schema.json"

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return compile(schemaURL, documentSchema)
})

func compile(url string, schema []byte) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, bytes.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("failed to load schema %s: %w", url, err)
	}
	return c.Compile(url)
}

// validate checks data against schema, decoding numbers losslessly.
func validate(schema *jsonschema.Schema, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return schema.Validate(v)
}

// Decode parses and validates an imported document. Profiles missing
// fields get the default profile values.
func Decode(data []byte) (*Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if s, ok := raw["scenario"]; !ok || bytes.Equal(bytes.TrimSpace(s), []byte("null")) {
		return nil, ErrMissingScenario
	}

	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	if err := validate(schema, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &doc, nil
}

// Encode renders a document for export.
func Encode(doc Document) ([]byte, error) {
	if doc.Scenario == nil {
		return nil, ErrMissingScenario
	}
	return json.MarshalIndent(doc, "", "  ")
}
