// Package translator provides the Gemini-backed implementation of the
// engine's Translator collaborator. It owns prompt assembly and response
// parsing; retry, caching, and timeouts belong to the engine.
package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/generation"
)

const defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

// Gemini calls the Google Gemini generateContent API. The worker's
// bound credential arrives per request, so one client serves all workers.
type Gemini struct {
	endpoint string
	client   *http.Client
}

// NewGemini creates a Gemini translator. An empty endpoint selects the
// public API; the client timeout is a transport backstop, the real
// per-unit deadline arrives via context.
func NewGemini(endpoint string, client *http.Client) *Gemini {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Gemini{endpoint: endpoint, client: client}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
	Config   geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int64 `json:"promptTokenCount"`
		CandidatesTokenCount int64 `json:"candidatesTokenCount"`
		TotalTokenCount      int64 `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Generate implements generation.Translator.
func (g *Gemini) Generate(ctx context.Context, req generation.TranslationRequest) (*generation.TranslationResult, error) {
	prompt := buildPrompt(req.Question, req.Config)

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		Config:   geminiGenConfig{Temperature: req.Config.Temperature},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.endpoint, req.Config.Model, req.Credential)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &generation.TranslationError{
			Type: generation.ErrorTypeNetwork, Provider: req.Config.Provider,
			Message: err.Error(), Cause: err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck // read side closed best-effort

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &generation.TranslationError{
			Type: generation.ErrorTypeNetwork, Provider: req.Config.Provider,
			Message: "read gemini response: " + err.Error(), Cause: err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp, raw, req.Config.Provider)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrMalformedOutput, err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: response contained no candidates", generation.ErrMalformedOutput)
	}

	answer := parsed.Candidates[0].Content.Parts[0].Text
	code, explanation := splitAnswer(answer)

	return &generation.TranslationResult{
		Code:        code,
		Explanation: explanation,
		RawText:     answer,
		Usage: &domain.UsageMetadata{
			PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
			CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

// classifyStatus maps non-200 responses onto the engine's error taxonomy.
func classifyStatus(resp *http.Response, raw []byte, provider string) error {
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 256 {
		msg = msg[:256]
	}

	terr := &generation.TranslationError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    msg,
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		terr.Type = generation.ErrorTypeRateLimit
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				terr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		terr.Type = generation.ErrorTypeAuth
	case resp.StatusCode >= 500:
		terr.Type = generation.ErrorTypeProvider
	default:
		terr.Type = generation.ErrorTypeUnknown
	}
	return terr
}

// buildPrompt assembles the instruction context and question text.
func buildPrompt(q domain.Question, cfg domain.Configuration) string {
	var b strings.Builder
	if cfg.Context != "" {
		b.WriteString(cfg.Context)
		b.WriteString("\n\n")
	}
	b.WriteString("QUESTION: ")
	b.WriteString(q.Text)
	b.WriteString("\n\nRespond with the query in a fenced code block, followed by a short explanation.")
	return b.String()
}

// splitAnswer extracts the first fenced code block as the code and the
// remaining text as the explanation. Without a fence the whole answer is
// treated as code, matching providers that return bare queries.
func splitAnswer(answer string) (code, explanation string) {
	trimmed := strings.TrimSpace(answer)
	start := strings.Index(trimmed, "```")
	if start == -1 {
		return trimmed, ""
	}

	rest := trimmed[start+3:]
	// Drop an optional language tag on the fence line.
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine != "" && !strings.ContainsAny(firstLine, " \t") {
			rest = rest[nl+1:]
		}
	}

	end := strings.Index(rest, "```")
	if end == -1 {
		return strings.TrimSpace(rest), strings.TrimSpace(trimmed[:start])
	}

	code = strings.TrimSpace(rest[:end])
	explanation = strings.TrimSpace(trimmed[:start] + " " + rest[end+3:])
	return code, explanation
}
