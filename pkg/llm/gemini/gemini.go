// Package gemini implements llm.Provider using the Gemini generateContent API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/jxucoder/mockmate/pkg/llm"
	"github.com/jxucoder/mockmate/pkg/model"
)

// Config configures the Gemini client.
type Config struct {
	APIKey string
	// BaseURL overrides the SDK default endpoint (used by tests and proxies).
	BaseURL string
	// HTTPClient is the outbound transport. Defaults to a client with a 2 minute timeout.
	HTTPClient *http.Client
}

// Client implements llm.Provider on top of the genai SDK.
type Client struct {
	genai *genai.Client
}

// New creates a Gemini client. The API key is required.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Client{genai: gc}, nil
}

// Generate performs exactly one generateContent call.
func (c *Client) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	resp, err := c.genai.Models.GenerateContent(ctx, req.Model, toContents(req.Contents), toConfig(req))
	if err != nil {
		if se := statusError(err); se != nil {
			return nil, se
		}
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return firstText(resp), nil
}

func statusError(err error) *llm.StatusError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.StatusError{Code: apiErr.Code, Message: apiErr.Message, Status: apiErr.Status}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &llm.StatusError{Code: apiErrPtr.Code, Message: apiErrPtr.Message, Status: apiErrPtr.Status}
	}
	return nil
}

func toConfig(req *llm.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     req.Generation.Temperature,
		TopK:            req.Generation.TopK,
		TopP:            req.Generation.TopP,
		MaxOutputTokens: req.Generation.MaxOutputTokens,
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
		}
	}
	for _, s := range req.SafetySettings {
		cfg.SafetySettings = append(cfg.SafetySettings, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}
	return cfg
}

func toContents(turns []model.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		c := &genai.Content{Role: string(t.Role)}
		for _, p := range t.Parts {
			if p.InlineData != nil {
				c.Parts = append(c.Parts, &genai.Part{
					InlineData: &genai.Blob{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data},
				})
				continue
			}
			c.Parts = append(c.Parts, &genai.Part{Text: p.Text})
		}
		contents = append(contents, c)
	}
	return contents
}

// firstText extracts candidates[0].content.parts[0].text.
func firstText(resp *genai.GenerateContentResponse) *llm.Response {
	out := &llm.Response{}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return out
	}
	cand := resp.Candidates[0]
	out.FinishReason = string(cand.FinishReason)
	if cand.Content == nil || len(cand.Content.Parts) == 0 || cand.Content.Parts[0] == nil {
		return out
	}
	out.Text = cand.Content.Parts[0].Text
	return out
}
