package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quant_terminal/internal/models"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Request is one generateContent call
type Request struct {
	Model             string
	Prompt            string
	SystemInstruction string
	Grounded          bool
	JSON              bool
	Schema            map[string]any
	ThinkingBudget    int
}

// Response is the text of the first candidate and its grounding citations
type Response struct {
	Text    string
	Sources []models.GroundingSource
}

// Generator is the generative API as seen by the analyst
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

type GeminiClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGeminiClient(apiKey, baseURL string) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &GeminiClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type geminiPart struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type geminiThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string                `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any        `json:"responseSchema,omitempty"`
	ThinkingConfig   *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Tools             []geminiTool            `json:"tools,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content           geminiContent `json:"content"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web *struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func buildRequest(req Request) geminiRequest {
	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
	}
	if req.SystemInstruction != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemInstruction}}}
	}
	if req.Grounded {
		body.Tools = []geminiTool{{GoogleSearch: &struct{}{}}}
	}

	var cfg geminiGenerationConfig
	if req.JSON {
		cfg.ResponseMimeType = "application/json"
		cfg.ResponseSchema = req.Schema
	}
	if req.ThinkingBudget > 0 {
		cfg.ThinkingConfig = &geminiThinkingConfig{ThinkingBudget: req.ThinkingBudget}
	}
	if cfg.ResponseMimeType != "" || cfg.ThinkingConfig != nil {
		body.GenerationConfig = &cfg
	}
	return body
}

// Generate performs a single generateContent call. Failures carrying an HTTP
// status come back as *APIError.
func (g *GeminiClient) Generate(ctx context.Context, req Request) (*Response, error) {
	jsonData, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		var ge geminiError
		if json.Unmarshal(body, &ge) == nil && ge.Error.Message != "" {
			apiErr.Status = ge.Error.Status
			apiErr.Message = ge.Error.Message
		}
		apiErr.Kind = classify(apiErr.StatusCode, apiErr.Status, apiErr.Message, req.Grounded)
		return nil, apiErr
	}

	var gr geminiResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, fmt.Errorf("failed to decode gemini response: %w", err)
	}

	out := &Response{}
	if len(gr.Candidates) == 0 {
		return out, nil
	}

	cand := gr.Candidates[0]
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		if !p.Thought {
			sb.WriteString(p.Text)
		}
	}
	out.Text = sb.String()

	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			title := chunk.Web.Title
			if title == "" {
				title = "Reference"
			}
			out.Sources = append(out.Sources, models.GroundingSource{Title: title, URI: chunk.Web.URI})
		}
	}
	return out, nil
}
