// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ItineraryRequest is the input of an itinerary generation call.
type ItineraryRequest struct {
	Destinations []string       `json:"destinations"`
	Days         int            `json:"days"`
	Preferences  map[string]any `json:"preferences,omitempty"`
}

// ItineraryGenerator produces an itinerary payload for a request. The
// returned JSON is not validated here; callers check its structure.
type ItineraryGenerator interface {
	GenerateItinerary(ctx context.Context, req ItineraryRequest) (json.RawMessage, error)
}

// ErrNoJSON is returned when a generator's output contains no JSON object.
var ErrNoJSON = errors.New("ai: response contains no JSON object")

// maxResponseBody bounds the size of an itinerary accepted from upstream.
const maxResponseBody = 1 << 20

// Remote calls the dedicated itinerary service: POST {baseURL}/generate with
// the request as JSON, answered by the itinerary document.
type Remote struct {
	baseURL string
	client  *http.Client
}

// NewRemote creates a client for the itinerary service at baseURL.
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// GenerateItinerary implements ItineraryGenerator.
func (r *Remote) GenerateItinerary(ctx context.Context, in ItineraryRequest) (json.RawMessage, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("itinerary service marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("itinerary service request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("itinerary service http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("itinerary service read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError("itinerary-service", resp.StatusCode, body)
	}

	out, err := extractJSON(string(body))
	if err != nil {
		return nil, fmt.Errorf("itinerary service: %w", err)
	}
	return out, nil
}

const itinerarySystemPrompt = `You are a travel planner. Reply with a single JSON object and nothing else.
The object must have this shape:
{"destinations": [string], "days": integer, "preferences": {string: any JSON value},
 "plan": [{"day": integer, "title": string, "notes": string,
           "activities": [{"time": "HH:MM", "title": string, "location": string, "description": string}]}],
 "notes": string}
Plan exactly one entry per day, numbered from 1. Notes are plain text; use a
blank line between paragraphs and lines starting with "- " for lists.`

// LLMItinerary generates itineraries by prompting an LLM. The Registry
// satisfies its Provider dependency, as does any single provider.
type LLMItinerary struct {
	llm interface {
		Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	}
	moderator interface {
		CheckPrompt(ctx context.Context, prompt string) (*ModerationResult, error)
	}
}

// NewLLMItinerary creates a generator over the registry's active provider,
// screened by the registry's moderator.
func NewLLMItinerary(r *Registry) *LLMItinerary {
	return &LLMItinerary{llm: r, moderator: r}
}

// GenerateItinerary implements ItineraryGenerator. A request flagged by
// moderation fails with *FlaggedError; a failing moderation call is logged
// and the request goes through.
func (g *LLMItinerary) GenerateItinerary(ctx context.Context, in ItineraryRequest) (json.RawMessage, error) {
	prompt, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("llm itinerary marshal: %w", err)
	}

	if g.moderator != nil {
		result, err := g.moderator.CheckPrompt(ctx, string(prompt))
		switch {
		case err != nil:
			slog.Warn("moderation check failed, allowing request", "error", err)
		case !result.Safe:
			slog.Warn("itinerary request flagged by moderation", "categories", result.Categories)
			return nil, &FlaggedError{Categories: result.Categories}
		}
	}

	text, err := g.llm.Generate(ctx, itinerarySystemPrompt,
		"Plan this trip and fill in destinations, days and preferences as given:\n"+string(prompt))
	if err != nil {
		return nil, err
	}

	out, err := extractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("llm itinerary: %w", err)
	}
	return out, nil
}

// extractJSON pulls the outermost JSON object out of model output, which
// may be wrapped in a Markdown code fence or surrounded by prose.
func extractJSON(text string) (json.RawMessage, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, ErrNoJSON
	}

	candidate := []byte(text[start : end+1])
	if !json.Valid(candidate) {
		return nil, ErrNoJSON
	}
	return json.RawMessage(candidate), nil
}
