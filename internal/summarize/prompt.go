package summarize

import (
	"strconv"
	"strings"
)

// DefaultPrompt is the base summarization instruction. {word_count} is
// replaced before sending.
const DefaultPrompt = `You are analyzing a flattened snapshot of a source-code repository. Produce a technical summary of approximately {word_count} words for an engineer who has never seen this codebase.

Respond with a single JSON object containing exactly these fields:

- "summary": what the system does, how execution flows through it, the key modules and how they are coupled, and anything notably risky or unusual (string, ~{word_count} words)
- "technologies": languages, frameworks, and significant libraries in use (array of strings)
- "structure": a short description of the repository layout (string)

Rules:
- Describe what the code actually does, not what documentation claims.
- Name concrete files and directories when pointing at behavior.
- Do not pad with generic advice or restate the directory tree verbatim.

Respond with ONLY the JSON object, no other text.`

// BuildPrompt fills in the target word count and appends the caller's focus
// instruction, if any.
func BuildPrompt(wordCount int, focus string) string {
	prompt := strings.ReplaceAll(DefaultPrompt, "{word_count}", strconv.Itoa(wordCount))
	if focus != "" {
		prompt += "\n\nAdditional user instruction: " + focus
	}
	return prompt
}

// MaxOutputTokens returns the response budget for a target word count. The 2x
// multiplier leaves headroom for markdown formatting overhead.
func MaxOutputTokens(wordCount int) int {
	return wordCount * 2
}
