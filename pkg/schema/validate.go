package schema

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed nodes.schema.json
var nodesSchemaJSON []byte

const nodesSchemaURL = "plotforge-nodes.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func nodesSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(nodesSchemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("parse node schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(nodesSchemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add node schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(nodesSchemaURL)
	})
	return compiled, compileErr
}

// ValidateNodes checks a raw nodes document against the node set schema.
// It returns nil, a *ValidationError for malformed JSON, or an *AggregateError
// listing every leaf violation.
func ValidateNodes(data []byte) error {
	sch, err := nodesSchema()
	if err != nil {
		return err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return &ValidationError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	err = sch.Validate(doc)
	if err == nil {
		return nil
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &ValidationError{Reason: err.Error()}
	}

	var errs []error
	for _, cause := range flatten(ve) {
		errs = append(errs, &ValidationError{
			Path:   strings.Join(cause.InstanceLocation, "/"),
			Reason: fmt.Sprintf("%v", cause.ErrorKind),
		})
	}
	return &AggregateError{Errors: errs}
}

// flatten recursively collects all leaf validation errors.
func flatten(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var flat []*jsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flatten(cause)...)
	}
	return flat
}
