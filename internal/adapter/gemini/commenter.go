// Package gemini implements domain.Commenter on Google's Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"healthreport/internal/domain"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

var _ domain.Commenter = (*Commenter)(nil)

// Commenter generates short free-text comments.
type Commenter struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// New creates a Commenter authenticated with apiKey.
func New(ctx context.Context, apiKey, modelName string) (*Commenter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.7)

	return &Commenter{client: client, model: model}, nil
}

// Comment sends prompt and returns the text of the first candidate.
func (c *Commenter) Comment(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return firstText(resp)
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response from model")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text content in response")
	}
	return b.String(), nil
}

// Close releases the client.
func (c *Commenter) Close() error {
	return c.client.Close()
}
