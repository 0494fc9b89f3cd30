package agentcore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/skosovsky/agentcore/llm"
)

// ExtractMode selects how Extract obtains a structured value from the model.
type ExtractMode int

const (
	// ModeConstrained asks the completion service to emit a value of the target
	// schema directly (json_schema response format).
	ModeConstrained ExtractMode = iota
	// ModeFreeText embeds the schema in the instruction and parses the first JSON
	// object found in the reply text.
	ModeFreeText
)

// Extractor provides JSON Schema generation and two-layer validation (schema + Validatable)
// for type T without binding to the Tool interface. Use it to turn model output into a
// validated value (routing decisions, classifications) or inside custom tools.
type Extractor[T any] struct {
	schemaMap map[string]any
	resolved  *jsonschema.Resolved
	strict    bool
}

// NewExtractor creates an Extractor for type T. When strict is true, the generated schema
// has additionalProperties: false for all objects and all properties required (OpenAI Structured Outputs).
func NewExtractor[T any](strict bool) (*Extractor[T], error) {
	schemaMap, resolved, err := generateSchema[T](strict)
	if err != nil {
		return nil, err
	}
	return &Extractor[T]{
		schemaMap: schemaMap,
		resolved:  resolved,
		strict:    strict,
	}, nil
}

// Schema returns a shallow copy of the JSON Schema (top-level keys only).
// Nested maps are shared; callers must not mutate them.
func (e *Extractor[T]) Schema() map[string]any {
	return maps.Clone(e.schemaMap)
}

// ParseAndValidate deserializes argsJSON into T, runs Layer 1 (schema validation) and
// Layer 2 (`validate` struct tags, then Validatable.Validate() if T implements it). Returns
// ClientError for invalid JSON or validation failures so the caller can pass the message to
// the model for self-correction.
func (e *Extractor[T]) ParseAndValidate(argsJSON []byte) (T, error) {
	var zero T
	var v any
	if err := json.Unmarshal(argsJSON, &v); err != nil {
		return zero, wrapJSONParseError(err)
	}
	if err := validateAgainstSchema(e.resolved, v); err != nil {
		return zero, err
	}
	var args T
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return zero, wrapJSONParseError(err)
	}
	if err := validateTags(args); err != nil {
		return zero, err
	}
	// Layer 2: Validatable. Try args first (value receiver or T is *SomeType), then &args only
	// for value type T when args does not implement Validatable (pointer receiver).
	if err := runLayer2Validation(args); err != nil {
		if IsClientError(err) {
			return zero, err
		}
		return zero, &ClientError{Reason: err.Error(), Err: ErrValidation}
	}
	return args, nil
}

// runLayer2Validation runs Validatable.Validate() on args; if args does not implement Validatable,
// it tries &args for value types (pointer receiver). Never calls Validate twice for the same receiver.
func runLayer2Validation[T any](args T) error {
	if err := validateCustom(any(args)); err != nil {
		return err
	}
	if _, ok := any(args).(Validatable); ok {
		return nil
	}
	typ := reflect.TypeOf(args)
	if typ == nil || typ.Kind() == reflect.Pointer {
		return nil
	}
	return validateCustom(any(&args))
}

type extractOptions struct {
	instruction string
	mode        ExtractMode
	name        string
	system      string
}

// ExtractOption configures Extract.
type ExtractOption func(*extractOptions)

// WithInstruction sets the instruction placed before the raw text.
func WithInstruction(s string) ExtractOption {
	return func(o *extractOptions) { o.instruction = s }
}

// WithMode selects constrained decoding or free-text-then-parse.
func WithMode(m ExtractMode) ExtractOption {
	return func(o *extractOptions) { o.mode = m }
}

// WithSchemaName names the response schema (defaults to the Go type name).
func WithSchemaName(name string) ExtractOption {
	return func(o *extractOptions) { o.name = name }
}

// WithExtractSystem sets the system prompt of the extraction call.
func WithExtractSystem(s string) ExtractOption {
	return func(o *extractOptions) { o.system = s }
}

// Extract sends raw with an instruction describing T's schema to c and returns the
// validated value. Completion failures wrap ErrUpstreamService; a reply that does not
// satisfy the schema fails with ErrValidation and is never default-filled.
func (e *Extractor[T]) Extract(ctx context.Context, c llm.Completer, raw string, opts ...ExtractOption) (T, error) {
	var zero T
	o := extractOptions{
		instruction: "Extract the requested information from the text below.",
		name:        schemaName[T](),
	}
	for _, opt := range opts {
		opt(&o)
	}
	req := llm.Request{System: o.system}
	prompt := o.instruction
	switch o.mode {
	case ModeFreeText:
		schemaJSON, err := json.Marshal(e.schemaMap)
		if err != nil {
			return zero, err
		}
		prompt += "\nRespond with a single JSON object matching this JSON Schema and nothing else:\n" + string(schemaJSON)
	default:
		req.ResponseFormat = &llm.ResponseFormat{Name: o.name, Schema: e.Schema(), Strict: e.strict}
	}
	req.Messages = []llm.Message{llm.UserMessage(prompt + "\n\n" + raw)}

	resp, err := c.Complete(ctx, req)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrUpstreamService, err)
	}
	payload := []byte(resp.Structured)
	if len(payload) == 0 {
		payload, err = findJSONObject(resp.Text)
		if err != nil {
			return zero, err
		}
	}
	return e.ParseAndValidate(payload)
}

// findJSONObject returns the first complete JSON value starting at the first '{' in text.
// Surrounding prose and code fences are ignored.
func findJSONObject(text string) ([]byte, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, &ClientError{Reason: "no JSON object in model reply", Err: ErrValidation}
	}
	dec := json.NewDecoder(strings.NewReader(text[start:]))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, wrapJSONParseError(err)
	}
	return bytes.TrimSpace(raw), nil
}

// schemaName derives a response-format name from T, e.g. "RoutingDecision".
func schemaName[T any]() string {
	typ := reflect.TypeFor[T]()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Name() != "" {
		return typ.Name()
	}
	return "response"
}
