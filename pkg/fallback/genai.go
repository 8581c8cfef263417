package fallback

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const continuePrompt = "Continue the following customer support sentence. " +
	"Reply with the continuation only, on a single line, ending at the end of the sentence.\n\n"

// GenAI generates continuations with Google's Gemini API.
type GenAI struct {
	client *genai.Client
	model  string
}

// NewGenAI creates a Gemini-backed generator.
func NewGenAI(ctx context.Context, apiKey, model string) (*GenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAI{client: client, model: model}, nil
}

// Generate asks Gemini to continue prefix and returns prefix plus the continuation.
func (g *GenAI) Generate(ctx context.Context, prefix string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx,
		g.model,
		genai.Text(continuePrompt+prefix),
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](0.8),
			MaxOutputTokens: 64,
			StopSequences:   []string{"\n"},
		},
	)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("GenAI returned no text")
	}
	if !strings.HasPrefix(text, prefix) && !strings.HasSuffix(prefix, " ") && !startsWithPunct(text) {
		text = " " + text
	}
	return Continue(prefix, text), nil
}

// Name returns the generator name.
func (g *GenAI) Name() string {
	return fmt.Sprintf("genai:%s", g.model)
}

func startsWithPunct(s string) bool {
	return strings.IndexAny(s[:1], ".,!?;:'") == 0
}
