package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"testgen/internal/domain/entity"
	"testgen/internal/domain/repository"
	"testgen/internal/infrastructure/metrics"
)

const generateToolName = "get_generate_tests_return"

// generatedFiles is the tool input the model is forced to produce.
type generatedFiles struct {
	TestFiles    []generatedFile `json:"testFiles" jsonschema_description:"Playwright test files to write"`
	Dependencies []string        `json:"dependencies" jsonschema_description:"NPM packages the test files need"`
}

type generatedFile struct {
	Filename string `json:"filename" jsonschema_description:"Name of the test file (e.g., 'login.spec.ts')"`
	Content  string `json:"content" jsonschema_description:"Complete content of the test file"`
}

// AnthropicGenerator asks Claude for structured Playwright output using the
// API key supplied with the job. A client is built per call because every
// job may carry a different key.
type AnthropicGenerator struct {
	baseURL   string
	model     string
	maxTokens int
	timeout   time.Duration
}

var _ repository.TestGenerator = (*AnthropicGenerator)(nil)

func NewAnthropicGenerator(baseURL, model string, maxTokens int, timeout time.Duration) *AnthropicGenerator {
	return &AnthropicGenerator{
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

func (g *AnthropicGenerator) Name() string {
	return "anthropic"
}

func (g *AnthropicGenerator) client(apiKey string) anthropic.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(1),
	}
	if g.baseURL != "" {
		opts = append(opts, option.WithBaseURL(g.baseURL+"/"))
	}
	if g.timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(g.timeout))
	}
	return anthropic.NewClient(opts...)
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req entity.GenerationRequest) (entity.GenerationResult, error) {
	metrics.IncGeneratorRequest(g.Name())

	if req.AnthropicAPIKey == "" {
		return entity.GenerationResult{}, fmt.Errorf("anthropic api key is empty")
	}

	tool, choice := newTool[generatedFiles](generateToolName,
		"Generate structured Playwright e2e test scripts. Return organized TypeScript code with clear test descriptions and assertions.")

	client := g.client(req.AnthropicAPIKey)
	msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(g.maxTokens),
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: entity.PlaywrightPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserPrompt(req))),
		},
		Tools:      []anthropic.ToolUnionParam{{OfTool: tool}},
		ToolChoice: anthropic.ToolChoiceUnionParam{OfTool: choice},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			metrics.IncError("llm", fmt.Sprintf("api_error_%d", apiErr.StatusCode))
		} else {
			metrics.IncError("llm", "make_request")
		}
		return entity.GenerationResult{}, fmt.Errorf("anthropic request: %w", err)
	}

	raw, err := toolInput(msg, tool.Name)
	if err != nil {
		metrics.IncError("llm", "parse_response")
		return entity.GenerationResult{}, err
	}
	out, err := parseGeneratedFiles(raw)
	if err != nil {
		metrics.IncError("llm", "parse_response")
		return entity.GenerationResult{}, err
	}

	files := make([]*entity.TestFile, 0, len(out.TestFiles))
	for i, f := range out.TestFiles {
		name := strings.TrimSpace(f.Filename)
		if name == "" {
			name = fmt.Sprintf("generated-%d.spec.ts", i+1)
		}
		files = append(files, &entity.TestFile{Name: name, Content: f.Content})
	}

	return entity.GenerationResult{
		Files:        files,
		Dependencies: out.Dependencies,
		RequestID:    requestID(msg.ID),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func toolInput(msg *anthropic.Message, name string) ([]byte, error) {
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.ToolUseBlock:
			if variant.Name == name {
				return []byte(variant.JSON.Input.Raw()), nil
			}
		}
	}
	return nil, fmt.Errorf("invalid response format: no %s tool call", name)
}

// parseGeneratedFiles also accepts testFiles sent as a JSON string holding
// the array, which the model produces now and then.
func parseGeneratedFiles(raw []byte) (generatedFiles, error) {
	var out generatedFiles
	if err := json.Unmarshal(raw, &out); err == nil {
		return out, nil
	}

	var interlayer struct {
		TestFiles    string   `json:"testFiles"`
		Dependencies []string `json:"dependencies"`
	}
	if err := json.Unmarshal(raw, &interlayer); err != nil {
		return generatedFiles{}, fmt.Errorf("decode tool input: %w", err)
	}
	var files []generatedFile
	if err := json.Unmarshal([]byte(interlayer.TestFiles), &files); err != nil {
		return generatedFiles{}, fmt.Errorf("decode testFiles: %w", err)
	}
	return generatedFiles{TestFiles: files, Dependencies: interlayer.Dependencies}, nil
}

func buildUserPrompt(req entity.GenerationRequest) string {
	var b strings.Builder
	b.WriteString("INSTRUCTION:\n")
	b.WriteString(req.Prompt)
	b.WriteString("\n\nTECHNICAL SPECIFICATION:\n")
	b.WriteString(req.TechSpecification)
	if req.ProductSpecification != "" {
		b.WriteString("\n\nPRODUCT SPECIFICATION:\n")
		b.WriteString(req.ProductSpecification)
	}
	return b.String()
}

func requestID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}
