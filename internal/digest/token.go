package digest

// CharsPerToken calibrates the estimator for source code. Code tokenizes
// denser than prose (punctuation and symbols inflate token counts), so a
// character-based divisor beats the usual words*1.33 heuristic, which
// systematically under-counts code. Every token figure in the triage path
// (the whole input digest, each rendered section, the final output) must
// come from this one estimator.
const CharsPerToken = 3.5

// EstimateTokens approximates the LLM token count of text. Monotonic and
// deterministic in len(text); deliberately not a real tokenizer.
func EstimateTokens(text string) int {
	return int(float64(len(text)) / CharsPerToken)
}
