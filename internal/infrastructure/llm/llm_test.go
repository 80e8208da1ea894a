package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testgen/internal/domain/entity"
)

func TestSimulatedGenerator_WaitsForDelay(t *testing.T) {
	g := NewSimulatedGenerator(20 * time.Millisecond)

	start := time.Now()
	res, err := g.Generate(context.Background(), entity.GenerationRequest{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	require.Empty(t, res.Files)
	require.NotEmpty(t, res.RequestID)
}

func TestSimulatedGenerator_Canceled(t *testing.T) {
	g := NewSimulatedGenerator(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx, entity.GenerationRequest{})
	require.ErrorIs(t, err, context.Canceled)
}

type capturedRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
	Tools []struct {
		Name        string                 `json:"name"`
		InputSchema map[string]interface{} `json:"input_schema"`
	} `json:"tools"`
	ToolChoice struct {
		Type string `json:"type"`
		Name string `json:"name"`
	} `json:"tool_choice"`
}

func messageServer(t *testing.T, got *capturedRequest, content []map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("x-api-key"))
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":            "msg_01",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-test",
			"content":       content,
			"stop_reason":   "tool_use",
			"stop_sequence": nil,
			"usage":         map[string]int{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnthropicGenerator_Generate(t *testing.T) {
	var got capturedRequest
	srv := messageServer(t, &got, []map[string]interface{}{{
		"type": "tool_use",
		"id":   "toolu_01",
		"name": generateToolName,
		"input": map[string]interface{}{
			"testFiles": []map[string]string{
				{"filename": "login.spec.ts", "content": "import { test } from '@playwright/test';\n  test('a', () => {});"},
				{"filename": " ", "content": "test('b', () => {});"},
			},
			"dependencies": []string{"@faker-js/faker"},
		},
	}})

	g := NewAnthropicGenerator(srv.URL+"/", "claude-test", 1024, 5*time.Second)
	res, err := g.Generate(context.Background(), entity.GenerationRequest{
		Prompt:            "cover login",
		AnthropicAPIKey:   "key-1",
		TechSpecification: "Next.js",
	})
	require.NoError(t, err)

	require.Equal(t, "claude-test", got.Model)
	require.Equal(t, 1024, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	require.Len(t, got.Messages[0].Content, 1)
	require.Contains(t, got.Messages[0].Content[0].Text, "cover login")
	require.Contains(t, got.Messages[0].Content[0].Text, "Next.js")
	require.Len(t, got.Tools, 1)
	require.Equal(t, generateToolName, got.Tools[0].Name)
	require.Contains(t, got.Tools[0].InputSchema["properties"], "testFiles")
	require.Equal(t, "tool", got.ToolChoice.Type)
	require.Equal(t, generateToolName, got.ToolChoice.Name)

	require.Len(t, res.Files, 2)
	require.Equal(t, "login.spec.ts", res.Files[0].Name)
	require.Equal(t, "import { test } from '@playwright/test';\n  test('a', () => {});", res.Files[0].Content)
	require.Equal(t, "generated-2.spec.ts", res.Files[1].Name)
	require.Equal(t, []string{"@faker-js/faker"}, res.Dependencies)
	require.Equal(t, "msg_01", res.RequestID)
}

func TestAnthropicGenerator_NoToolCall(t *testing.T) {
	srv := messageServer(t, nil, []map[string]interface{}{{"type": "text", "text": "sorry"}})

	g := NewAnthropicGenerator(srv.URL, "m", 10, time.Second)
	_, err := g.Generate(context.Background(), entity.GenerationRequest{AnthropicAPIKey: "key-1"})
	require.ErrorContains(t, err, "no "+generateToolName+" tool call")
}

func TestAnthropicGenerator_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	t.Cleanup(srv.Close)

	g := NewAnthropicGenerator(srv.URL, "m", 10, time.Second)
	_, err := g.Generate(context.Background(), entity.GenerationRequest{AnthropicAPIKey: "bad"})
	require.Error(t, err)

	var apiErr *anthropic.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestAnthropicGenerator_MissingKey(t *testing.T) {
	g := NewAnthropicGenerator("http://127.0.0.1:0", "m", 10, time.Second)
	_, err := g.Generate(context.Background(), entity.GenerationRequest{})
	require.Error(t, err)
}

func TestParseGeneratedFiles_StringifiedArray(t *testing.T) {
	raw := []byte(`{"testFiles":"[{\"filename\":\"cart.spec.ts\",\"content\":\"test('x', () => {});\"}]","dependencies":["dotenv"]}`)

	out, err := parseGeneratedFiles(raw)
	require.NoError(t, err)
	require.Len(t, out.TestFiles, 1)
	require.Equal(t, "cart.spec.ts", out.TestFiles[0].Filename)
	require.Equal(t, "test('x', () => {});", out.TestFiles[0].Content)
	require.Equal(t, []string{"dotenv"}, out.Dependencies)

	_, err = parseGeneratedFiles([]byte(`{"testFiles":42}`))
	require.Error(t, err)
}

func TestSchemaForListsFields(t *testing.T) {
	schema := schemaFor[generatedFiles]()
	raw, err := json.Marshal(schema.Properties)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"testFiles"`)
	require.Contains(t, string(raw), `"dependencies"`)
	require.Contains(t, string(raw), "Complete content of the test file")
}
