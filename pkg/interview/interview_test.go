package interview_test

import (
	"strings"
	"testing"

	"github.com/intervox-ai/intervox/pkg/interview"
)

func TestConfigCursor(t *testing.T) {
	cfg := &interview.Config{
		Type:      interview.TypeTechnical,
		Questions: []string{"q1", "q2", "q3"},
	}

	if cfg.Complete() {
		t.Fatal("fresh config should not be complete")
	}
	if q := cfg.NextQuestion(); q != "q1" {
		t.Errorf("expected q1, got %q", q)
	}

	cfg.Advance()
	cfg.Advance()
	if q := cfg.NextQuestion(); q != "q3" {
		t.Errorf("expected q3, got %q", q)
	}

	cfg.Advance()
	if !cfg.Complete() {
		t.Error("expected complete after advancing past last question")
	}
	if q := cfg.NextQuestion(); q != "" {
		t.Errorf("expected empty question when complete, got %q", q)
	}

	// Advancing past the end clamps.
	cfg.Advance()
	if cfg.CurrentIndex != 3 {
		t.Errorf("expected index clamped at 3, got %d", cfg.CurrentIndex)
	}
}

func TestConfigCompleteAtEnd(t *testing.T) {
	cfg := &interview.Config{
		Questions:    []string{"a", "b", "c"},
		CurrentIndex: 3,
	}
	if !cfg.Complete() {
		t.Error("index == len(questions) must be complete")
	}
	if cfg.NextQuestion() != "" {
		t.Error("complete config must not yield a next question")
	}
}

func TestTypeValid(t *testing.T) {
	for _, tc := range []struct {
		typ  interview.Type
		want bool
	}{
		{interview.TypeTechnical, true},
		{interview.TypeBehavioral, true},
		{interview.TypeMixed, true},
		{interview.Type("casual"), false},
		{interview.Type(""), false},
	} {
		if got := tc.typ.Valid(); got != tc.want {
			t.Errorf("Valid(%q) = %v, want %v", tc.typ, got, tc.want)
		}
	}
}

func TestTranscriptAppend(t *testing.T) {
	tr := interview.NewTranscript()

	tr.Append(
		interview.Turn{Content: "I have 3 years of React experience"},
		interview.Turn{Content: "Tell me more"},
	)

	turns := tr.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != interview.RoleUser || turns[1].Role != interview.RoleAssistant {
		t.Errorf("unexpected roles: %q, %q", turns[0].Role, turns[1].Role)
	}
	if turns[0].Timestamp.IsZero() || turns[1].Timestamp.IsZero() {
		t.Error("timestamps should be filled on append")
	}
}

func TestTranscriptRecent(t *testing.T) {
	tr := interview.NewTranscript()
	for i := 0; i < 8; i++ {
		tr.Append(
			interview.Turn{Content: "user"},
			interview.Turn{Content: "assistant"},
		)
	}
	if tr.Len() != 16 {
		t.Fatalf("expected 16 turns, got %d", tr.Len())
	}

	recent := tr.Recent(10)
	if len(recent) != 10 {
		t.Errorf("expected 10 recent turns, got %d", len(recent))
	}
	// Oldest-first ordering: last turn must be the assistant's.
	if recent[len(recent)-1].Role != interview.RoleAssistant {
		t.Errorf("expected assistant last, got %q", recent[len(recent)-1].Role)
	}

	if got := tr.Recent(100); len(got) != 16 {
		t.Errorf("expected all 16 turns, got %d", len(got))
	}
	if got := tr.Recent(0); got != nil {
		t.Errorf("expected nil for n=0, got %v", got)
	}
}

func TestTranscriptReset(t *testing.T) {
	tr := interview.NewTranscript()
	tr.Append(interview.Turn{Content: "a"}, interview.Turn{Content: "b"})
	tr.Reset()
	if tr.Len() != 0 {
		t.Errorf("expected empty transcript after reset, got %d", tr.Len())
	}
}

func TestSystemPrompt(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		p := interview.SystemPrompt(nil)
		if !strings.Contains(p, "interviewer") {
			t.Errorf("generic prompt missing interviewer framing: %q", p)
		}
	})

	t.Run("technical with question", func(t *testing.T) {
		cfg := &interview.Config{
			Type:      interview.TypeTechnical,
			Questions: []string{"Explain goroutines."},
		}
		p := interview.SystemPrompt(cfg)
		if !strings.Contains(p, "technical depth") {
			t.Errorf("expected technical guidance in prompt: %q", p)
		}
		if !strings.Contains(p, "Explain goroutines.") {
			t.Errorf("expected next question woven in: %q", p)
		}
	})

	t.Run("complete interview", func(t *testing.T) {
		cfg := &interview.Config{
			Type:         interview.TypeBehavioral,
			Questions:    []string{"q"},
			CurrentIndex: 1,
		}
		p := interview.SystemPrompt(cfg)
		if !strings.Contains(p, "Wrap up") {
			t.Errorf("expected wrap-up instruction: %q", p)
		}
	})
}
