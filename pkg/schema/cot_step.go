package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// CotStep represents one step in an agent's chain-of-thought reasoning trace.
// It is a pure value type: every field has a default, so the zero-argument
// construction is valid, and all operations return fresh values.
type CotStep struct {
	Thought      string         `json:"thought"`
	Action       string         `json:"action"`        // Tool name
	ActionInput  map[string]any `json:"action_input"`  // Tool parameters
	ActionOutput map[string]any `json:"action_output"` // Tool result
	FinishedCot  bool           `json:"finished_cot"`  // Step concludes the chain
	ToolType     *string        `json:"tool_type"`     // Tool classification, nil when untyped
	Empty        bool           `json:"empty"`         // Step carries no real content
}

// NewCotStep returns a step with all fields at their defaults.
func NewCotStep() CotStep {
	return CotStep{
		ActionInput:  map[string]any{},
		ActionOutput: map[string]any{},
	}
}

// CotStepFromMap builds a step from a field-name→value mapping. Missing keys
// take their defaults, unknown keys are ignored (open schema), and a value of
// the wrong type fails with ErrTypeMismatch.
func CotStepFromMap(fields map[string]any) (CotStep, error) {
	step := NewCotStep()
	for key, val := range fields {
		if err := step.apply(key, val); err != nil {
			return CotStep{}, err
		}
	}
	return step, nil
}

// Copy returns a new step identical to the receiver except for the supplied
// overrides; the receiver is unmodified.
func (s CotStep) Copy(overrides map[string]any) (CotStep, error) {
	out := s
	for key, val := range overrides {
		if err := out.apply(key, val); err != nil {
			return CotStep{}, err
		}
	}
	return out, nil
}

// apply sets one field from a dynamic value, coercing where the value is
// well-typed and failing with ErrTypeMismatch otherwise.
func (s *CotStep) apply(key string, val any) error {
	switch key {
	case "thought":
		str, ok := val.(string)
		if !ok {
			return newTypeMismatch("thought", "expected string")
		}
		s.Thought = str
	case "action":
		str, ok := val.(string)
		if !ok {
			return newTypeMismatch("action", "expected string")
		}
		s.Action = str
	case "action_input":
		m, err := toStringMap("action_input", val)
		if err != nil {
			return err
		}
		s.ActionInput = m
	case "action_output":
		m, err := toStringMap("action_output", val)
		if err != nil {
			return err
		}
		s.ActionOutput = m
	case "finished_cot":
		b, ok := val.(bool)
		if !ok {
			return newTypeMismatch("finished_cot", "expected bool")
		}
		s.FinishedCot = b
	case "tool_type":
		switch t := val.(type) {
		case nil:
			s.ToolType = nil
		case string:
			s.ToolType = &t
		default:
			return newTypeMismatch("tool_type", "expected string or null")
		}
	case "empty":
		b, ok := val.(bool)
		if !ok {
			return newTypeMismatch("empty", "expected bool")
		}
		s.Empty = b
	default:
		// Unknown keys are tolerated so producers can carry extra fields.
	}
	return nil
}

// Map returns the eager mapping form: exactly the seven schema fields.
func (s CotStep) Map() map[string]any {
	var toolType any
	if s.ToolType != nil {
		toolType = *s.ToolType
	}
	return map[string]any{
		"thought":       s.Thought,
		"action":        s.Action,
		"action_input":  orEmpty(s.ActionInput),
		"action_output": orEmpty(s.ActionOutput),
		"finished_cot":  s.FinishedCot,
		"tool_type":     toolType,
		"empty":         s.Empty,
	}
}

// MarshalJSON encodes the mapping form so nil maps serialize as {} and a nil
// tool_type as null.
func (s CotStep) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

// UnmarshalJSON decodes the wire form, reporting shape problems as
// ErrTypeMismatch validation errors.
func (s *CotStep) UnmarshalJSON(data []byte) error {
	type alias CotStep
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return newTypeMismatch(typeErr.Field, fmt.Sprintf("cannot decode %s", typeErr.Value))
		}
		return err
	}
	*s = CotStep(a)
	if s.ActionInput == nil {
		s.ActionInput = map[string]any{}
	}
	if s.ActionOutput == nil {
		s.ActionOutput = map[string]any{}
	}
	return nil
}

// JSON returns the JSON text form. It round-trips through a JSON parser to a
// value structurally equal to Map().
func (s CotStep) JSON() ([]byte, error) {
	return json.Marshal(s)
}

// Equal reports structural equality over every field. Two steps built from
// identical arguments compare equal; there is no identity beyond value.
func (s CotStep) Equal(other CotStep) bool {
	return reflect.DeepEqual(s.Map(), other.Map())
}

func toStringMap(field string, val any) (map[string]any, error) {
	switch m := val.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return normalizeMap(field, m)
	default:
		return nil, newTypeMismatch(field, "expected object")
	}
}

// normalizeMap deep-copies a payload map through the JSON codec so stored
// values live in the JSON type system (numbers as float64) and never alias
// the caller's map. Keeps construct → serialize → parse structurally
// lossless for every accepted input.
func normalizeMap(field string, m map[string]any) (map[string]any, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, newTypeMismatch(field, "values must be JSON-encodable")
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, newTypeMismatch(field, "values must be JSON-encodable")
	}
	return out, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
