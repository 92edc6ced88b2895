package evaldb

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// InformationKey is the flattened column that carries a record's Information.
const InformationKey = "information"

// Record is one evaluation attempt: the hyperparameters a model was trained
// with and the results it produced, grouped under an experiment name.
// Records are built once (NewRecord or Deserialize) and not mutated afterwards.
type Record struct {
	ExperimentName   string         `json:"experiment_name"`   // Groups records into one table entry
	ModelHyperparams map[string]any `json:"model_hyperparams"` // e.g. {"lr": 0.1, "layers": 4}
	TrainHyperparams map[string]any `json:"train_hyperparams"` // e.g. {"epochs": 30, "batch_size": 64}
	Information      Information    `json:"information"`       // Where the run lives and what it was
	Result           map[string]any `json:"result"`            // Metric name -> score
}

// Information holds optional descriptive metadata about an evaluation attempt.
// Every field is nullable and serializes as JSON null when unset.
//
// A decoded object that lacks some of the fields remembers which ones it had,
// so it re-serializes and flattens to exactly those keys.
type Information struct {
	SaveLink     *string // Where the trained model was saved
	TrainDataset *string // Dataset the model was trained on
	Description  *string // Free-form note

	// keys lists the fields present in a partial object; nil means all of them.
	keys []string
}

// informationFields are the keys of the information object in file order.
var informationFields = []string{"save_link", "train_dataset", "description"}

func (i *Information) ref(key string) **string {
	switch key {
	case "save_link":
		return &i.SaveLink
	case "train_dataset":
		return &i.TrainDataset
	case "description":
		return &i.Description
	}
	return nil
}

func (i Information) fields() []string {
	if i.keys == nil {
		return informationFields
	}
	return i.keys
}

// MarshalJSON writes the information object with its keys in file order.
func (i Information) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for n, key := range i.fields() {
		value, err := marshalCompact(*i.ref(key))
		if err != nil {
			return nil, err
		}
		if n > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:%s", key, value)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// UnmarshalJSON decodes an information object. Every field is optional and
// may be null; keys other than the three known fields are rejected.
func (i *Information) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var decoded Information
	present := make([]string, 0, len(raw))
	for _, key := range informationFields {
		value, ok := raw[key]
		if !ok {
			continue
		}
		delete(raw, key)
		if err := json.Unmarshal(value, decoded.ref(key)); err != nil {
			return fmt.Errorf("information.%s: %w", key, err)
		}
		present = append(present, key)
	}

	if len(raw) > 0 {
		unknown := make([]string, 0, len(raw))
		for key := range raw {
			unknown = append(unknown, key)
		}
		sort.Strings(unknown)
		return fmt.Errorf("unknown information fields %s", strings.Join(unknown, ", "))
	}

	if len(present) < len(informationFields) {
		decoded.keys = present
	}
	*i = decoded
	return nil
}

// NewRecord constructs a Record. The experiment name must not be empty; nil
// maps are replaced with empty maps so the record always serializes all five
// fields.
func NewRecord(experimentName string, information Information, modelHyperparams, trainHyperparams, result map[string]any) (*Record, error) {
	r := &Record{
		ExperimentName:   experimentName,
		ModelHyperparams: orEmpty(modelHyperparams),
		TrainHyperparams: orEmpty(trainHyperparams),
		Information:      information,
		Result:           orEmpty(result),
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate checks the fields a Record cannot do without.
func (r *Record) Validate() error {
	if r.ExperimentName == "" {
		return fmt.Errorf("experiment_name cannot be empty")
	}
	return nil
}

// Flatten returns the experiment name and the union of the model
// hyperparameters, training hyperparameters and results, plus the key
// "information" mapped to the full information object.
//
// Returns a *KeyCollisionError if a key appears in more than one of the maps
// or if any of them uses the reserved "information" key.
func (r *Record) Flatten() (string, map[string]any, error) {
	flat := make(map[string]any, len(r.ModelHyperparams)+len(r.TrainHyperparams)+len(r.Result)+1)
	origin := make(map[string]string, len(flat))

	sections := []struct {
		name   string
		values map[string]any
	}{
		{"model_hyperparams", r.ModelHyperparams},
		{"train_hyperparams", r.TrainHyperparams},
		{"result", r.Result},
	}

	for _, section := range sections {
		for k, v := range section.values {
			if k == InformationKey {
				return "", nil, &KeyCollisionError{Key: k, First: InformationKey, Second: section.name}
			}
			if prev, exists := origin[k]; exists {
				return "", nil, &KeyCollisionError{Key: k, First: prev, Second: section.name}
			}
			origin[k] = section.name
			flat[k] = v
		}
	}

	flat[InformationKey] = r.Information.asMap()

	return r.ExperimentName, flat, nil
}

// asMap returns the information object as a table cell: every key the object
// carries, null ones included. An empty object folds to {}.
func (i Information) asMap() map[string]any {
	keys := i.fields()
	m := make(map[string]any, len(keys))
	for _, key := range keys {
		if v := *i.ref(key); v != nil {
			m[key] = *v
		} else {
			m[key] = nil
		}
	}
	return m
}

// Validation describes a validation run over a set of example instances
// (score, the instances that were validated, and arbitrary metadata).
type Validation struct {
	Score    any            `json:"score"`
	Validate []any          `json:"validate"`
	MetaData map[string]any `json:"meta_data"`
}

// NewValidation constructs a Validation with non-nil collections.
func NewValidation(score any, instances []any, metaData map[string]any) *Validation {
	if instances == nil {
		instances = []any{}
	}
	return &Validation{
		Score:    score,
		Validate: instances,
		MetaData: orEmpty(metaData),
	}
}

// String renders the validation as compact JSON.
func (v *Validation) String() string {
	text, err := marshalCompact(v)
	if err != nil {
		return fmt.Sprintf("Validation{score: %v}", v.Score)
	}
	return text
}

// String returns a pointer to s. Convenient for filling Information.
func String(s string) *string {
	return &s
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
