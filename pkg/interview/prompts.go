package interview

import (
	"fmt"
	"strings"
)

// Guidance text per interview style. Kept short: the model does better
// with a tight brief than a page of rules.
const (
	technicalGuidance = "Focus on technical depth. Probe for concrete implementation " +
		"details, trade-offs, and how the candidate verified their work. " +
		"Ask one follow-up when an answer stays at the buzzword level."

	behavioralGuidance = "Focus on behavioral signals. Ask for specific situations, " +
		"the candidate's own actions, and measurable outcomes (STAR format). " +
		"Gently redirect hypothetical answers back to real experience."

	mixedGuidance = "Blend technical and behavioral angles. Alternate between " +
		"implementation detail and the situations around it: collaboration, " +
		"decisions under pressure, and outcomes."
)

// SystemPrompt builds the interviewer instruction for the LLM stage.
// A nil config produces a generic interviewer prompt.
func SystemPrompt(cfg *Config) string {
	var b strings.Builder
	b.WriteString("You are a professional interviewer conducting a voice mock interview. ")
	b.WriteString("Keep replies short and conversational: they will be spoken aloud. ")
	b.WriteString("Acknowledge the candidate's answer in one sentence before moving on.")

	if cfg == nil {
		return b.String()
	}

	b.WriteString("\n\n")
	switch cfg.Type {
	case TypeTechnical:
		b.WriteString(technicalGuidance)
	case TypeBehavioral:
		b.WriteString(behavioralGuidance)
	default:
		b.WriteString(mixedGuidance)
	}

	if q := cfg.NextQuestion(); q != "" {
		fmt.Fprintf(&b, "\n\nAfter responding to the candidate, ask this question next: %q", q)
	} else if cfg.Complete() {
		b.WriteString("\n\nAll planned questions have been asked. Wrap up the interview: " +
			"thank the candidate and offer one piece of constructive feedback.")
	}

	return b.String()
}
