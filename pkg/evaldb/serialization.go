package evaldb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Serialization helpers for the persisted file format
//
// Every record is stored as UTF-8 JSON, pretty-printed with 4-space
// indentation. Struct fields keep their declaration order; keys of nested maps
// are written in lexicographic order, which makes the output stable for a
// given record.

const indent = "    "

// wireRecord mirrors Record with pointer fields so Deserialize can tell a
// missing key apart from an empty value.
type wireRecord struct {
	ExperimentName   *string         `json:"experiment_name"`
	ModelHyperparams *map[string]any `json:"model_hyperparams"`
	TrainHyperparams *map[string]any `json:"train_hyperparams"`
	Information      *Information    `json:"information"`
	Result           *map[string]any `json:"result"`
}

// Serialize returns the canonical JSON text of the record.
func (r *Record) Serialize() (string, error) {
	return marshalIndent(r)
}

// Deserialize parses the canonical JSON text of a record.
// Returns a *ParseError if the text is not valid JSON, misses one of the five
// record fields, has an empty experiment name or carries fields a record does
// not have.
func Deserialize(text string) (*Record, error) {
	var w wireRecord
	if err := decodeStrict(text, &w); err != nil {
		return nil, err
	}

	var missing []string
	if w.ExperimentName == nil {
		missing = append(missing, "experiment_name")
	}
	if w.ModelHyperparams == nil {
		missing = append(missing, "model_hyperparams")
	}
	if w.TrainHyperparams == nil {
		missing = append(missing, "train_hyperparams")
	}
	if w.Information == nil {
		missing = append(missing, "information")
	}
	if w.Result == nil {
		missing = append(missing, "result")
	}
	if len(missing) > 0 {
		return nil, &ParseError{Reason: "missing required fields " + strings.Join(missing, ", ")}
	}

	r := &Record{
		ExperimentName:   *w.ExperimentName,
		ModelHyperparams: orEmpty(*w.ModelHyperparams),
		TrainHyperparams: orEmpty(*w.TrainHyperparams),
		Information:      *w.Information,
		Result:           orEmpty(*w.Result),
	}

	if err := r.Validate(); err != nil {
		return nil, &ParseError{Reason: "invalid field", Err: err}
	}

	return r, nil
}

// Serialize returns the table as canonical JSON, suitable for writing the
// aggregated result back to a store.
func (t Table) Serialize() (string, error) {
	if t == nil {
		t = Table{}
	}
	return marshalIndent(t)
}

// DeserializeTable parses a table previously written by Table.Serialize.
func DeserializeTable(text string) (Table, error) {
	var t Table
	if err := decodeStrict(text, &t); err != nil {
		return nil, err
	}
	if t == nil {
		t = Table{}
	}
	return t, nil
}

// Serialize returns the canonical JSON text of the validation.
func (v *Validation) Serialize() (string, error) {
	return marshalIndent(v)
}

// DeserializeValidation parses the canonical JSON text of a validation.
func DeserializeValidation(text string) (*Validation, error) {
	var raw struct {
		Score    *any           `json:"score"`
		Validate []any          `json:"validate"`
		MetaData map[string]any `json:"meta_data"`
	}
	if err := decodeStrict(text, &raw); err != nil {
		return nil, err
	}
	if raw.Score == nil {
		return nil, &ParseError{Reason: "missing required fields score"}
	}
	return NewValidation(*raw.Score, raw.Validate, raw.MetaData), nil
}

// decodeStrict decodes exactly one JSON value into v, rejecting unknown struct
// fields and trailing content. Numbers are kept as json.Number so integers of
// any size survive a round trip. All failures are reported as *ParseError.
func decodeStrict(text string, v any) error {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return &ParseError{Reason: "malformed JSON", Err: err}
		}
		return &ParseError{Reason: "unexpected content", Err: err}
	}

	if _, err := dec.Token(); err != io.EOF {
		return &ParseError{Reason: "malformed JSON", Err: fmt.Errorf("trailing data after JSON value")}
	}

	return nil
}

func marshalIndent(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func marshalCompact(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
