package llm

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"github.com/PabloGalante/tabula/internal/domain"
)

type VertexClient struct {
	client    *genai.Client
	modelName string
}

// NewVertexClient creates a CompletionClient based on Vertex AI (Gemini).
// defaultModel is used when a request names a non-Gemini model.
func NewVertexClient(ctx context.Context, projectID, location, defaultModel string) (*VertexClient, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("TABULA_GCP_PROJECT and TABULA_GCP_LOCATION must be set")
	}
	if defaultModel == "" {
		defaultModel = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VertexClient{
		client:    client,
		modelName: defaultModel,
	}, nil
}

// request maps the outbound message list onto Gemini contents. System
// turns become the system instruction.
func (v *VertexClient) request(req domain.CompletionRequest) (string, []*genai.Content, *genai.GenerateContentConfig) {
	model := req.Model
	if !strings.HasPrefix(model, "gemini") {
		model = v.modelName
	}

	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, m.Content)
		case domain.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		// genai expects RoleUser on system instructions, not "system"
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		cfg.Temperature = &temp
	}
	return model, contents, cfg
}

// Complete implements domain.CompletionClient using Vertex AI.
func (v *VertexClient) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	model, contents, cfg := v.request(req)

	res, err := v.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("vertex generate content: %w", err)
	}

	// Extract only the text, not the candidate structs
	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("vertex returned empty text")
	}
	return text, nil
}

// Stream implements domain.CompletionClient using Vertex AI streaming.
func (v *VertexClient) Stream(ctx context.Context, req domain.CompletionRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		model, contents, cfg := v.request(req)
		for res, err := range v.client.Models.GenerateContentStream(ctx, model, contents, cfg) {
			if err != nil {
				yield("", fmt.Errorf("vertex generate content stream: %w", err))
				return
			}
			text := res.Text()
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}
