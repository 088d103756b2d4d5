package decision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/duskhollow/duskhollow/internal/config"
	"github.com/duskhollow/duskhollow/internal/errs"
	"github.com/duskhollow/duskhollow/internal/game"
)

func voteContext() Context {
	return Context{
		Kind:   KindVote,
		Name:   "Rowan",
		Role:   game.RoleResident,
		Phase:  game.PhaseVoting,
		Round:  2,
		Living: []string{"Rowan", "Sage", "Marlow", "Wren"},
		Suspicion: map[string]float64{
			"Sage":   7.5,
			"Marlow": 4.0,
			"Wren":   5.5,
		},
		Targets: []string{"Sage", "Marlow", "Wren"},
	}
}

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		backend string
		want    BackendName
		wantErr bool
	}{
		{"scripted", BackendScripted, false},
		{"", BackendScripted, false},
		{"http", BackendHTTP, false},
		{"HTTP", BackendHTTP, false},
		{"psychic", "", true},
	}

	for _, tt := range tests {
		t.Run("backend="+tt.backend, func(t *testing.T) {
			cfg := config.Default()
			cfg.Decision.Backend = tt.backend

			svc, err := NewFromConfig(cfg)
			if tt.wantErr {
				if !errs.Is(err, ErrUnknownBackend) {
					t.Errorf("expected ErrUnknownBackend, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFromConfig failed: %v", err)
			}
			if svc.Name() != tt.want {
				t.Errorf("backend = %s, want %s", svc.Name(), tt.want)
			}
		})
	}
}

func TestNewFromConfigNil(t *testing.T) {
	if _, err := NewFromConfig(nil); err == nil {
		t.Error("nil config should be rejected")
	}
}

func TestScripted_VotesTopSuspicion(t *testing.T) {
	s := NewScripted(0)

	resp, err := s.Decide(context.Background(), voteContext())
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if resp.Target != "Sage" {
		t.Errorf("target = %s, want the highest-suspicion seat Sage", resp.Target)
	}
	if resp.Reasoning == "" {
		t.Error("scripted decisions should carry reasoning")
	}
	if resp.Metadata.Model != "scripted" {
		t.Errorf("model = %q, want scripted", resp.Metadata.Model)
	}
}

func TestScripted_IsDeterministic(t *testing.T) {
	s := NewScripted(42)

	dc := voteContext()
	first, _ := s.Decide(context.Background(), dc)
	for i := 0; i < 5; i++ {
		again, _ := s.Decide(context.Background(), dc)
		if again.Target != first.Target || again.Content != first.Content {
			t.Fatalf("same context produced different decisions: %+v vs %+v", first, again)
		}
	}
}

func TestScripted_AntagonistSparesAllies(t *testing.T) {
	s := NewScripted(0)

	dc := voteContext()
	dc.Kind = KindNightAction
	dc.Role = game.RoleRingleader
	dc.Allies = []string{"Sage"}
	dc.Suspicion = map[string]float64{"Sage": 2.0, "Marlow": 3.0, "Wren": 8.0}

	resp, err := s.Decide(context.Background(), dc)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if resp.Target == "Sage" {
		t.Error("an antagonist should never target its ally")
	}
	// Least suspicious non-ally is the strike.
	if resp.Target != "Marlow" {
		t.Errorf("target = %s, want Marlow", resp.Target)
	}
}

func TestScripted_NoTargets(t *testing.T) {
	s := NewScripted(0)

	dc := voteContext()
	dc.Targets = nil

	resp, err := s.Decide(context.Background(), dc)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if resp.Target != "" {
		t.Errorf("no legal targets should mean no target, got %s", resp.Target)
	}
}

func TestScripted_UnknownKind(t *testing.T) {
	s := NewScripted(0)

	dc := voteContext()
	dc.Kind = "interpretive_dance"

	if _, err := s.Decide(context.Background(), dc); err == nil {
		t.Error("unknown kind should be an error")
	}
}

func TestScripted_SpeakNamesSuspect(t *testing.T) {
	s := NewScripted(0)

	dc := voteContext()
	dc.Kind = KindSpeak

	resp, err := s.Decide(context.Background(), dc)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if !strings.Contains(resp.Content, "Sage") {
		t.Errorf("utterance should name the prime suspect: %q", resp.Content)
	}
}

func TestHTTPService_RoundTrip(t *testing.T) {
	var gotAuth, gotKind, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		gotKind, _ = req["kind"].(string)
		gotModel, _ = req["model"].(string)

		json.NewEncoder(w).Encode(map[string]any{
			"content":    "I vote for Sage.",
			"target":     "Sage",
			"confidence": 0.9,
			"reasoning":  "pattern of deflection",
			"model":      "oracle-1",
			"tokens":     128,
			"cost_usd":   0.002,
		})
	}))
	defer srv.Close()

	h := NewHTTPService(config.HTTPDecisionConfig{URL: srv.URL, APIKey: "sk-test", Model: "oracle-1"})

	resp, err := h.Decide(context.Background(), voteContext())
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if resp.Target != "Sage" || resp.Confidence != 0.9 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Metadata.Model != "oracle-1" || resp.Metadata.Tokens != 128 {
		t.Errorf("metadata = %+v", resp.Metadata)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotKind != KindVote || gotModel != "oracle-1" {
		t.Errorf("request carried kind=%q model=%q", gotKind, gotModel)
	}
}

func TestHTTPService_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h := NewHTTPService(config.HTTPDecisionConfig{URL: srv.URL, APIKey: "k"})
	if _, err := h.Decide(context.Background(), voteContext()); err == nil {
		t.Error("non-200 status should be an error")
	}
}

func TestHTTPService_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	h := NewHTTPService(config.HTTPDecisionConfig{URL: srv.URL, APIKey: "k"})
	if _, err := h.Decide(context.Background(), voteContext()); err == nil {
		t.Error("malformed body should be an error")
	}
}

func TestHTTPService_HonorsContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	h := NewHTTPService(config.HTTPDecisionConfig{URL: srv.URL, APIKey: "k"})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if _, err := h.Decide(ctx, voteContext()); err == nil {
		t.Error("expired context should abort the request")
	}
}
