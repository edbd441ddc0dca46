package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentResponse_Creation(t *testing.T) {
	resp, err := NewAgentResponse(TypeContent, Text("hello"), "gpt-4")
	require.NoError(t, err)

	assert.Equal(t, TypeContent, resp.Typ)
	assert.Equal(t, Text("hello"), resp.Content)
	assert.Equal(t, "gpt-4", resp.Model)
}

func TestAgentResponse_WithCotStep(t *testing.T) {
	step, err := CotStepFromMap(map[string]any{
		"thought":       "analyze input",
		"action":        "reasoning",
		"action_input":  map[string]any{"query": "test query"},
		"action_output": map[string]any{"result": "analysis complete"},
		"finished_cot":  true,
	})
	require.NoError(t, err)

	resp, err := NewCotStepResponse(step, "gpt-4")
	require.NoError(t, err)

	assert.Equal(t, TypeCotStep, resp.Typ)
	embedded, ok := resp.Content.(CotStep)
	require.True(t, ok)
	assert.True(t, embedded.FinishedCot)
	assert.Equal(t, "gpt-4", resp.Model)
}

func TestAgentResponse_KnowledgeMetadata(t *testing.T) {
	resp, err := NewKnowledgeMetadataResponse(Metadata{{"id": "kb1"}}, "m")
	require.NoError(t, err)

	assert.Equal(t, TypeKnowledgeMetadata, resp.Typ)
	meta, ok := resp.Content.(Metadata)
	require.True(t, ok)
	assert.Equal(t, "kb1", meta[0]["id"])
}

func TestAgentResponse_UnicodeContent(t *testing.T) {
	resp, err := NewContentResponse("中文响应内容🤖特殊字符①②③", "中文模型")
	require.NoError(t, err)

	text, ok := resp.Content.(Text)
	require.True(t, ok)
	assert.Contains(t, string(text), "🤖")
	assert.Contains(t, string(text), "中文响应")

	data, err := resp.JSON()
	require.NoError(t, err)
	var decoded AgentResponse
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, resp.Content, decoded.Content)
	assert.Equal(t, "中文模型", decoded.Model)
}

func TestAgentResponse_VariantTypes(t *testing.T) {
	content, err := NewContentResponse("text response", "test-model")
	require.NoError(t, err)
	assert.Equal(t, TypeContent, content.Typ)

	log, err := NewLogResponse("error detail", "test-model")
	require.NoError(t, err)
	assert.Equal(t, TypeLog, log.Typ)

	meta, err := NewKnowledgeMetadataResponse(Metadata{{"id": "kb1"}}, "test-model")
	require.NoError(t, err)
	assert.Equal(t, TypeKnowledgeMetadata, meta.Typ)
}

func TestAgentResponse_UnknownTypAccepted(t *testing.T) {
	// typ is an open set: unrecognized discriminators pass validation so new
	// response kinds can flow through older consumers.
	resp, err := NewAgentResponse("invalid_type", Text("test"), "m")
	require.NoError(t, err)
	assert.Equal(t, ResponseType("invalid_type"), resp.Typ)
}

func TestAgentResponse_ValidationErrors(t *testing.T) {
	t.Run("missing typ", func(t *testing.T) {
		_, err := NewAgentResponse("", Text("test"), "m")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingField)

		_, err = AgentResponseFromMap(map[string]any{"content": "x", "model": "m"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("missing model", func(t *testing.T) {
		_, err := NewAgentResponse(TypeContent, Text("test"), "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("nil content", func(t *testing.T) {
		_, err := NewAgentResponse(TypeContent, nil, "m")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTypeMismatch)

		_, err = AgentResponseFromMap(map[string]any{"typ": "content", "content": nil, "model": "m"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("content outside the union", func(t *testing.T) {
		_, err := AgentResponseFromMap(map[string]any{"typ": "content", "content": 42, "model": "m"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTypeMismatch)

		_, err = AgentResponseFromMap(map[string]any{"typ": "knowledge_metadata", "content": []any{"not-an-object"}, "model": "m"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})
}

func TestAgentResponse_FromMap(t *testing.T) {
	t.Run("string content", func(t *testing.T) {
		resp, err := AgentResponseFromMap(map[string]any{
			"typ": "content", "content": "hello", "model": "gpt-4",
		})
		require.NoError(t, err)
		assert.Equal(t, Text("hello"), resp.Content)
	})

	t.Run("object content becomes a step", func(t *testing.T) {
		resp, err := AgentResponseFromMap(map[string]any{
			"typ":     "cot_step",
			"content": map[string]any{"thought": "mapped", "finished_cot": true},
			"model":   "gpt-4",
		})
		require.NoError(t, err)
		step, ok := resp.Content.(CotStep)
		require.True(t, ok)
		assert.Equal(t, "mapped", step.Thought)
		assert.True(t, step.FinishedCot)
	})

	t.Run("array content becomes metadata", func(t *testing.T) {
		resp, err := AgentResponseFromMap(map[string]any{
			"typ":     "knowledge_metadata",
			"content": []any{map[string]any{"id": "kb1"}},
			"model":   "m",
		})
		require.NoError(t, err)
		meta, ok := resp.Content.(Metadata)
		require.True(t, ok)
		assert.Equal(t, "kb1", meta[0]["id"])
	})
}

func TestAgentResponse_NestedJSONContent(t *testing.T) {
	resp, err := NewKnowledgeMetadataResponse(Metadata{{
		"result":  "success",
		"data":    map[string]any{"items": []any{1, 2, 3}, "total": 3},
		"message": "done",
	}}, "json-processor")
	require.NoError(t, err)

	meta := resp.Content.(Metadata)
	assert.Equal(t, "success", meta[0]["result"])

	data, err := resp.JSON()
	require.NoError(t, err)
	var decoded AgentResponse
	require.NoError(t, json.Unmarshal(data, &decoded))
	decodedMeta, ok := decoded.Content.(Metadata)
	require.True(t, ok)
	assert.Equal(t, "success", decodedMeta[0]["result"])
}

func TestAgentResponse_MetadataRoundTripWithNumbers(t *testing.T) {
	resp, err := AgentResponseFromMap(map[string]any{
		"typ":     "knowledge_metadata",
		"content": []any{map[string]any{"id": "kb1", "total": 3}},
		"model":   "m",
	})
	require.NoError(t, err)

	meta := resp.Content.(Metadata)
	assert.Equal(t, float64(3), meta[0]["total"])

	data, err := resp.JSON()
	require.NoError(t, err)
	var decoded AgentResponse
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, resp.Equal(decoded))
}

func TestAgentResponse_LargeContent(t *testing.T) {
	large := strings.Repeat("bulk response content ", 2000)
	resp, err := NewContentResponse(large, "large-content-model")
	require.NoError(t, err)

	text := resp.Content.(Text)
	assert.Greater(t, len(text), 10000)
	assert.Equal(t, "large-content-model", resp.Model)
}

func TestAgentResponse_JSONRoundTrip(t *testing.T) {
	step, err := CotStepFromMap(map[string]any{"thought": "nested", "finished_cot": true})
	require.NoError(t, err)

	cases := []struct {
		name    string
		typ     ResponseType
		content Content
	}{
		{"text", TypeContent, Text("serialized")},
		{"log", TypeLog, Text("a log line")},
		{"cot step", TypeCotStep, step},
		{"metadata", TypeKnowledgeMetadata, Metadata{{"id": "kb1"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := NewAgentResponse(tc.typ, tc.content, "round-trip-model")
			require.NoError(t, err)

			data, err := resp.JSON()
			require.NoError(t, err)

			// parse(to-text(v)) == to-mapping(v), structurally.
			mapped, err := json.Marshal(resp.Map())
			require.NoError(t, err)
			assert.JSONEq(t, string(mapped), string(data))

			var decoded AgentResponse
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.True(t, resp.Equal(decoded))
		})
	}
}

func TestAgentResponse_CotStepEmbedsRecursively(t *testing.T) {
	step, err := CotStepFromMap(map[string]any{"thought": "embedded"})
	require.NoError(t, err)
	resp, err := NewCotStepResponse(step, "gpt-4")
	require.NoError(t, err)

	m := resp.Map()
	assert.Len(t, m, 3)

	nested, ok := m["content"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "embedded", nested["thought"])
	// The envelope keeps the step nested under content, never flattened.
	assert.NotContains(t, m, "thought")
}

func TestAgentResponse_UnmarshalDispatch(t *testing.T) {
	t.Run("string content", func(t *testing.T) {
		var resp AgentResponse
		require.NoError(t, json.Unmarshal([]byte(`{"typ":"content","content":"hi","model":"m"}`), &resp))
		assert.Equal(t, Text("hi"), resp.Content)
	})

	t.Run("object content", func(t *testing.T) {
		var resp AgentResponse
		require.NoError(t, json.Unmarshal([]byte(`{"typ":"cot_step","content":{"thought":"t"},"model":"m"}`), &resp))
		step, ok := resp.Content.(CotStep)
		require.True(t, ok)
		assert.Equal(t, "t", step.Thought)
	})

	t.Run("array content", func(t *testing.T) {
		var resp AgentResponse
		require.NoError(t, json.Unmarshal([]byte(`{"typ":"knowledge_metadata","content":[{"id":"kb1"}],"model":"m"}`), &resp))
		meta, ok := resp.Content.(Metadata)
		require.True(t, ok)
		assert.Equal(t, "kb1", meta[0]["id"])
	})

	t.Run("null content rejected", func(t *testing.T) {
		var resp AgentResponse
		err := json.Unmarshal([]byte(`{"typ":"content","content":null,"model":"m"}`), &resp)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("numeric content rejected", func(t *testing.T) {
		var resp AgentResponse
		err := json.Unmarshal([]byte(`{"typ":"content","content":42,"model":"m"}`), &resp)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("missing typ rejected", func(t *testing.T) {
		var resp AgentResponse
		err := json.Unmarshal([]byte(`{"content":"hi","model":"m"}`), &resp)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingField)
	})
}

func TestAgentResponse_Copy(t *testing.T) {
	resp, err := NewContentResponse("original content", "original-model")
	require.NoError(t, err)

	updated, err := resp.Copy(map[string]any{"content": "updated content"})
	require.NoError(t, err)

	assert.Equal(t, Text("updated content"), updated.Content)
	assert.Equal(t, "original-model", updated.Model)
	assert.Equal(t, TypeContent, updated.Typ)

	// Receiver is untouched.
	assert.Equal(t, Text("original content"), resp.Content)
}

func TestAgentResponse_CopyValidatesResult(t *testing.T) {
	resp, err := NewContentResponse("x", "m")
	require.NoError(t, err)

	_, err = resp.Copy(map[string]any{"model": ""})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = resp.Copy(map[string]any{"content": 42})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestAgentResponse_Equal(t *testing.T) {
	a, err := NewContentResponse("compare", "comparison-model")
	require.NoError(t, err)
	b, err := NewContentResponse("compare", "comparison-model")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))

	c, err := b.Copy(map[string]any{"content": "different"})
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
}

func TestAgentResponse_StreamingScenario(t *testing.T) {
	// A producer expresses a stream as an ordered sequence of envelopes.
	sequence := []struct {
		typ     ResponseType
		content string
	}{
		{TypeLog, "stream started"},
		{TypeContent, "chunk one"},
		{TypeContent, "chunk two"},
		{TypeLog, "stream finished"},
	}

	responses := make([]AgentResponse, 0, len(sequence))
	for _, item := range sequence {
		resp, err := NewAgentResponse(item.typ, Text(item.content), "stream-model")
		require.NoError(t, err)
		responses = append(responses, resp)
	}

	require.Len(t, responses, 4)
	assert.Equal(t, TypeLog, responses[0].Typ)
	assert.Equal(t, Text("chunk two"), responses[2].Content)
}
