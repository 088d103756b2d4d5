package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/duskhollow/duskhollow/internal/config"
)

// HTTPService defers decisions to a remote endpoint speaking a small
// JSON protocol. The caller's context carries the deadline; a slow or
// malformed reply is surfaced as an error and handled upstream exactly
// like a timeout.
type HTTPService struct {
	url    string
	apiKey string
	model  string
	client *http.Client
}

// NewHTTPService creates an http backend from config.
func NewHTTPService(cfg config.HTTPDecisionConfig) *HTTPService {
	return &HTTPService{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		client: &http.Client{},
	}
}

func (h *HTTPService) Name() BackendName { return BackendHTTP }

// wireRequest is the outbound JSON shape.
type wireRequest struct {
	Model         string             `json:"model,omitempty"`
	Kind          string             `json:"kind"`
	Name          string             `json:"name"`
	Role          string             `json:"role"`
	Personality   string             `json:"personality,omitempty"`
	Phase         string             `json:"phase"`
	Round         int                `json:"round"`
	Living        []string           `json:"living"`
	Eliminated    []string           `json:"eliminated,omitempty"`
	History       []string           `json:"history,omitempty"`
	Suspicion     map[string]float64 `json:"suspicion,omitempty"`
	Targets       []string           `json:"targets,omitempty"`
	Allies        []string           `json:"allies,omitempty"`
	SecondsRemain float64            `json:"seconds_remaining"`
}

// wireResponse is the inbound JSON shape.
type wireResponse struct {
	Content    string  `json:"content"`
	Target     string  `json:"target"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Model      string  `json:"model"`
	Tokens     int     `json:"tokens"`
	CostUSD    float64 `json:"cost_usd"`
}

// Decide implements Service by POSTing the decision context.
func (h *HTTPService) Decide(ctx context.Context, dc Context) (Response, error) {
	start := time.Now()

	body, err := json.Marshal(wireRequest{
		Model:         h.model,
		Kind:          dc.Kind,
		Name:          dc.Name,
		Role:          string(dc.Role),
		Personality:   dc.Personality,
		Phase:         string(dc.Phase),
		Round:         dc.Round,
		Living:        dc.Living,
		Eliminated:    dc.Eliminated,
		History:       dc.History,
		Suspicion:     dc.Suspicion,
		Targets:       dc.Targets,
		Allies:        dc.Allies,
		SecondsRemain: dc.TimeRemaining.Seconds(),
	})
	if err != nil {
		return Response{}, fmt.Errorf("encoding decision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("building decision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.apiKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("decision request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Response{}, fmt.Errorf("decision endpoint returned %d: %s", resp.StatusCode, snippet)
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return Response{}, fmt.Errorf("decoding decision response: %w", err)
	}

	return Response{
		Content:    wire.Content,
		Target:     wire.Target,
		Confidence: wire.Confidence,
		Reasoning:  wire.Reasoning,
		Metadata: Metadata{
			Model:   wire.Model,
			Tokens:  wire.Tokens,
			Latency: time.Since(start),
			CostUSD: wire.CostUSD,
		},
	}, nil
}
