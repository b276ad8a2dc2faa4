package summarize

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Summary is the structured response the model is asked to produce.
type Summary struct {
	Summary      string   `json:"summary"`
	Technologies []string `json:"technologies"`
	Structure    string   `json:"structure"`
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// stripCodeBlock unwraps a markdown fence if the model wrapped the JSON anyway.
func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// ParseSummary decodes the model output. If the output is not valid JSON the
// whole raw text becomes the summary field; a degraded result is never an error.
func ParseSummary(raw string) Summary {
	cleaned := stripCodeBlock(raw)
	var s Summary
	if err := json.Unmarshal([]byte(cleaned), &s); err != nil {
		return Summary{Summary: raw, Technologies: []string{}}
	}
	if s.Technologies == nil {
		s.Technologies = []string{}
	}
	return s
}
