package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// ResponseType discriminates what an AgentResponse carries. The set is open:
// unrecognized values are accepted so future response kinds can flow through
// older consumers unchanged.
type ResponseType string

const (
	TypeContent           ResponseType = "content"
	TypeLog               ResponseType = "log"
	TypeCotStep           ResponseType = "cot_step"
	TypeKnowledgeMetadata ResponseType = "knowledge_metadata"
)

// Content is the payload union of an AgentResponse: free text, a CotStep, or
// an ordered sequence of JSON-object mappings.
type Content interface {
	// contentValue returns the payload's mapping-form representation.
	contentValue() any
}

// Text is the payload for content and log responses.
type Text string

func (t Text) contentValue() any { return string(t) }

func (s CotStep) contentValue() any { return s.Map() }

// Metadata is the payload for knowledge_metadata responses.
type Metadata []map[string]any

func (m Metadata) contentValue() any { return []map[string]any(m) }

// AgentResponse is the envelope around one unit of agent output. typ and
// model are required; content must belong to the payload union. The envelope
// does not cross-check that content's shape matches typ — producers that want
// that guarantee use the typed constructors below.
type AgentResponse struct {
	Typ     ResponseType
	Content Content
	Model   string
}

// NewAgentResponse validates and builds an envelope. It fails with
// ErrMissingField when typ or model is absent and with ErrTypeMismatch when
// content is nil.
func NewAgentResponse(typ ResponseType, content Content, model string) (AgentResponse, error) {
	if typ == "" {
		return AgentResponse{}, newMissingField("typ")
	}
	if model == "" {
		return AgentResponse{}, newMissingField("model")
	}
	if content == nil {
		return AgentResponse{}, newTypeMismatch("content", "must be text, a cot step, or a metadata sequence")
	}
	return AgentResponse{Typ: typ, Content: content, Model: model}, nil
}

// NewContentResponse builds a content envelope around plain text.
func NewContentResponse(text, model string) (AgentResponse, error) {
	return NewAgentResponse(TypeContent, Text(text), model)
}

// NewLogResponse builds a log envelope around a log line.
func NewLogResponse(line, model string) (AgentResponse, error) {
	return NewAgentResponse(TypeLog, Text(line), model)
}

// NewCotStepResponse builds a cot_step envelope around a reasoning step.
func NewCotStepResponse(step CotStep, model string) (AgentResponse, error) {
	return NewAgentResponse(TypeCotStep, step, model)
}

// NewKnowledgeMetadataResponse builds a knowledge_metadata envelope.
func NewKnowledgeMetadataResponse(meta Metadata, model string) (AgentResponse, error) {
	return NewAgentResponse(TypeKnowledgeMetadata, meta, model)
}

// AgentResponseFromMap builds an envelope from a field-name→value mapping,
// coercing content into the payload union. Unknown keys are ignored.
func AgentResponseFromMap(fields map[string]any) (AgentResponse, error) {
	var (
		typ     ResponseType
		content Content
		model   string
	)
	for key, val := range fields {
		switch key {
		case "typ":
			switch t := val.(type) {
			case string:
				typ = ResponseType(t)
			case ResponseType:
				typ = t
			default:
				return AgentResponse{}, newTypeMismatch("typ", "expected string")
			}
		case "content":
			c, err := coerceContent(val)
			if err != nil {
				return AgentResponse{}, err
			}
			content = c
		case "model":
			m, ok := val.(string)
			if !ok {
				return AgentResponse{}, newTypeMismatch("model", "expected string")
			}
			model = m
		}
	}
	return NewAgentResponse(typ, content, model)
}

// Copy returns a new envelope identical to the receiver except for the
// supplied overrides; the receiver is unmodified. The result is re-validated.
func (r AgentResponse) Copy(overrides map[string]any) (AgentResponse, error) {
	typ, content, model := r.Typ, r.Content, r.Model
	for key, val := range overrides {
		switch key {
		case "typ":
			switch t := val.(type) {
			case string:
				typ = ResponseType(t)
			case ResponseType:
				typ = t
			default:
				return AgentResponse{}, newTypeMismatch("typ", "expected string")
			}
		case "content":
			c, err := coerceContent(val)
			if err != nil {
				return AgentResponse{}, err
			}
			content = c
		case "model":
			m, ok := val.(string)
			if !ok {
				return AgentResponse{}, newTypeMismatch("model", "expected string")
			}
			model = m
		}
	}
	return NewAgentResponse(typ, content, model)
}

// Map returns the eager mapping form. A CotStep payload embeds recursively as
// its own mapping form, never flattened into the envelope.
func (r AgentResponse) Map() map[string]any {
	var content any
	if r.Content != nil {
		content = r.Content.contentValue()
	}
	return map[string]any{
		"typ":     string(r.Typ),
		"content": content,
		"model":   r.Model,
	}
}

// MarshalJSON encodes the mapping form.
func (r AgentResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// UnmarshalJSON decodes the wire form, dispatching content on its JSON shape:
// string → Text, object → CotStep, array → Metadata. The decoded envelope is
// validated the same way NewAgentResponse validates.
func (r *AgentResponse) UnmarshalJSON(data []byte) error {
	var wire struct {
		Typ     string          `json:"typ"`
		Content json.RawMessage `json:"content"`
		Model   string          `json:"model"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return newTypeMismatch(typeErr.Field, fmt.Sprintf("cannot decode %s", typeErr.Value))
		}
		return err
	}
	content, err := decodeContent(wire.Content)
	if err != nil {
		return err
	}
	decoded, err := NewAgentResponse(ResponseType(wire.Typ), content, wire.Model)
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

// JSON returns the JSON text form. It round-trips through a JSON parser to a
// value structurally equal to Map().
func (r AgentResponse) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// Equal reports structural equality on the mapping form.
func (r AgentResponse) Equal(other AgentResponse) bool {
	return reflect.DeepEqual(r.Map(), other.Map())
}

// coerceContent maps a dynamic value onto the payload union.
func coerceContent(val any) (Content, error) {
	switch c := val.(type) {
	case nil:
		return nil, newTypeMismatch("content", "must not be null")
	case *CotStep:
		if c == nil {
			return nil, newTypeMismatch("content", "must not be null")
		}
		return *c, nil
	case Content:
		return c, nil
	case string:
		return Text(c), nil
	case map[string]any:
		step, err := CotStepFromMap(c)
		if err != nil {
			return nil, err
		}
		return step, nil
	case []map[string]any:
		meta := make(Metadata, 0, len(c))
		for _, obj := range c {
			norm, err := normalizeMap("content", obj)
			if err != nil {
				return nil, err
			}
			meta = append(meta, norm)
		}
		return meta, nil
	case []any:
		meta := make(Metadata, 0, len(c))
		for _, item := range c {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, newTypeMismatch("content", "metadata entries must be objects")
			}
			norm, err := normalizeMap("content", obj)
			if err != nil {
				return nil, err
			}
			meta = append(meta, norm)
		}
		return meta, nil
	default:
		return nil, newTypeMismatch("content", "must be text, a cot step, or a metadata sequence")
	}
}

// decodeContent dispatches raw JSON onto the payload union by shape.
func decodeContent(raw json.RawMessage) (Content, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, newTypeMismatch("content", "must not be null")
	}
	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, newTypeMismatch("content", "malformed string payload")
		}
		return Text(text), nil
	case '{':
		var step CotStep
		if err := json.Unmarshal(trimmed, &step); err != nil {
			return nil, err
		}
		return step, nil
	case '[':
		var meta []map[string]any
		if err := json.Unmarshal(trimmed, &meta); err != nil {
			return nil, newTypeMismatch("content", "metadata entries must be objects")
		}
		return Metadata(meta), nil
	default:
		return nil, newTypeMismatch("content", "must be text, a cot step, or a metadata sequence")
	}
}
