package triage

import (
	"log/slog"
	"sort"
	"strings"

	"gitdigest/internal/digest"
)

// Config carries triage settings as an explicit value. There is deliberately
// no package-level state: the classifier and drop algorithm see only what the
// caller hands them.
type Config struct {
	// TokenThreshold is the budget; triage only runs when the pre-triage
	// estimate exceeds it.
	TokenThreshold int
	// Layers toggles classification rules per tier.
	Layers Layers
}

// DefaultTokenThreshold leaves headroom under a 200k-token context window
// after prompt and response overhead.
const DefaultTokenThreshold = 200000

// DefaultConfig returns the standard triage configuration.
func DefaultConfig() Config {
	return Config{
		TokenThreshold: DefaultTokenThreshold,
		Layers:         DefaultLayers(),
	}
}

// Result is the triage output contract.
type Result struct {
	// Text is the final digest: header plus kept sections in their original
	// relative order, rejoined with the canonical delimiter convention.
	Text string
	// Applied is true only if trimming occurred.
	Applied bool
	// PreTokens and PostTokens are token estimates before and after.
	PreTokens  int
	PostTokens int
	// FilesDropped lists removed paths in drop order: pass 1 before pass 2
	// before pass 4.
	FilesDropped []string
}

const (
	headerTruncatedMarker = "\n[... directory tree truncated to fit context window ...]"
	headerOmittedMarker   = "[directory tree omitted: file sections fill context window]"
)

// scored pairs a section with its classification and token price.
type scored struct {
	digest.Section
	tier   Tier
	rank   int
	tokens int
}

// Run trims a digest to fit the token budget. It never fails: empty input
// yields an empty result, boundary-less input is treated as header-only, and
// an input that cannot be reduced under budget returns the best achievable
// result. The caller decides what to do with a still-over-budget digest.
func Run(raw string, cfg Config, log *slog.Logger) Result {
	if cfg.TokenThreshold <= 0 {
		cfg.TokenThreshold = DefaultTokenThreshold
	}
	if cfg.Layers == nil {
		cfg.Layers = DefaultLayers()
	}
	threshold := cfg.TokenThreshold

	preTokens := digest.EstimateTokens(raw)
	if preTokens <= threshold {
		return Result{
			Text:         raw,
			Applied:      false,
			PreTokens:    preTokens,
			PostTokens:   preTokens,
			FilesDropped: []string{},
		}
	}

	log.Info("triage triggered", "pre_tokens", preTokens, "threshold", threshold)

	doc := digest.Parse(raw)

	sections := make([]scored, len(doc.Sections))
	for i, sec := range doc.Sections {
		tier := Classify(sec.Path, cfg.Layers)
		sections[i] = scored{
			Section: sec,
			tier:    tier,
			rank:    Rank(tier),
			tokens:  digest.EstimateTokens(digest.RenderSection(sec)),
		}
	}

	// Drop priority: lowest tier first, then largest within a tier (frees the
	// most budget per removal).
	dropOrder := make([]*scored, len(sections))
	for i := range sections {
		dropOrder[i] = &sections[i]
	}
	sort.SliceStable(dropOrder, func(i, j int) bool {
		if dropOrder[i].rank != dropOrder[j].rank {
			return dropOrder[i].rank > dropOrder[j].rank
		}
		return dropOrder[i].tokens > dropOrder[j].tokens
	})

	keep := make(map[string]bool, len(sections))
	for i := range sections {
		keep[sections[i].Path] = true
	}
	dropped := []string{}
	currentTokens := preTokens

	// Pass 1: bulk drop by tier, largest-first. Documentation (contract and
	// narrative) is protected here regardless of size.
	for _, item := range dropOrder {
		if currentTokens <= threshold {
			break
		}
		if item.tier == TierDocsContract || item.tier == TierDocsNarrative {
			continue
		}
		delete(keep, item.Path)
		dropped = append(dropped, item.Path)
		currentTokens -= item.tokens
	}

	// Pass 2: still over budget with only docs left. Narrative docs are lower
	// signal per token than contract docs, so they go first.
	if currentTokens > threshold {
		bySize := make([]*scored, len(dropOrder))
		copy(bySize, dropOrder)
		sort.SliceStable(bySize, func(i, j int) bool {
			return bySize[i].tokens > bySize[j].tokens
		})
		for _, docTier := range []Tier{TierDocsNarrative, TierDocsContract} {
			if currentTokens <= threshold {
				break
			}
			log.Info("triage pass 2: dropping documentation tier", "tier", string(docTier))
			for _, item := range bySize {
				if currentTokens <= threshold {
					break
				}
				if !keep[item.Path] || item.tier != docTier {
					continue
				}
				delete(keep, item.Path)
				dropped = append(dropped, item.Path)
				currentTokens -= item.tokens
			}
		}
	}

	log.Info("triage dropped files", "count", len(dropped), "first", firstN(dropped, 3))

	// Reassembly always preserves original relative order, never drop order.
	kept := keptSections(sections, keep)
	trimmed := assemble(doc.Header, kept)
	postTokens := digest.EstimateTokens(trimmed)
	header := doc.Header

	// Pass 3: the header is not a file section and survives passes 1-2; it is
	// truncated only here, as a last resort.
	if postTokens > threshold {
		log.Info("triage pass 3: truncating directory tree header")
		fileTokens := 0
		for _, s := range kept {
			fileTokens += s.tokens
		}
		header = truncateHeader(doc.Header, threshold-fileTokens)
		trimmed = assemble(header, kept)
		postTokens = digest.EstimateTokens(trimmed)
	}

	// Pass 4: hard guard against estimator variance across header/section
	// boundaries. No tier protection; this is the only pass where docs may go.
	if postTokens > threshold {
		log.Warn("triage pass 4: force-dropping largest files",
			"post_tokens", postTokens, "threshold", threshold)
		bySize := make([]scored, len(kept))
		copy(bySize, kept)
		sort.SliceStable(bySize, func(i, j int) bool {
			return bySize[i].tokens > bySize[j].tokens
		})
		for _, victim := range bySize {
			if postTokens <= threshold {
				break
			}
			delete(keep, victim.Path)
			dropped = append(dropped, victim.Path)
			postTokens -= victim.tokens
		}
		kept = keptSections(sections, keep)
		trimmed = assemble(header, kept)
		postTokens = digest.EstimateTokens(trimmed)
	}

	log.Info("triage complete", "pre_tokens", preTokens, "post_tokens", postTokens)

	return Result{
		Text:         trimmed,
		Applied:      true,
		PreTokens:    preTokens,
		PostTokens:   postTokens,
		FilesDropped: dropped,
	}
}

// keptSections filters to kept paths, preserving original order.
func keptSections(sections []scored, keep map[string]bool) []scored {
	out := make([]scored, 0, len(keep))
	for _, s := range sections {
		if keep[s.Path] {
			out = append(out, s)
		}
	}
	return out
}

func assemble(header string, kept []scored) string {
	d := digest.Document{Header: header, Sections: make([]digest.Section, len(kept))}
	for i, s := range kept {
		d.Sections[i] = s.Section
	}
	return d.Render()
}

// truncateHeader fits the header into the remaining token budget, cutting back
// to the nearest line boundary and appending a marker. A zero or negative
// budget replaces the header with a placeholder.
func truncateHeader(header string, budgetTokens int) string {
	if budgetTokens <= 0 {
		return headerOmittedMarker
	}
	maxChars := int(float64(budgetTokens) * digest.CharsPerToken)
	if maxChars >= len(header) {
		return header + headerTruncatedMarker
	}
	trunc := header[:maxChars]
	if idx := strings.LastIndex(trunc, "\n"); idx >= 0 {
		trunc = trunc[:idx]
	}
	return trunc + headerTruncatedMarker
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
