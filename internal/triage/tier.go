// Package triage classifies digest sections into signal tiers and trims a
// digest to a token budget by dropping the lowest-signal sections first.
package triage

import (
	"path"
	"strings"
)

// Tier is a signal-priority bucket assigned to a file from its path alone.
type Tier string

const (
	TierDocsContract   Tier = "docs_contract"
	TierDocsNarrative  Tier = "docs_narrative"
	TierSkills         Tier = "skills"
	TierBuildDeps      Tier = "build_deps"
	TierEntrypoints    Tier = "entrypoints"
	TierConfigSurfaces Tier = "config_surfaces"
	TierDomainModel    Tier = "domain_model"
	TierCI             Tier = "ci"
	TierTests          Tier = "tests"
	TierOther          Tier = "other"
)

// tierOrder lists tiers highest-signal first. It doubles as rule evaluation
// order: the first matching enabled rule wins, so reordering changes
// classification outcomes.
var tierOrder = []Tier{
	TierDocsContract,
	TierDocsNarrative,
	TierSkills,
	TierBuildDeps,
	TierEntrypoints,
	TierConfigSurfaces,
	TierDomainModel,
	TierCI,
	TierTests,
	TierOther,
}

var tierRank = func() map[Tier]int {
	m := make(map[Tier]int, len(tierOrder))
	for i, t := range tierOrder {
		m[t] = i
	}
	return m
}()

// Rank returns a tier's position in the priority order, 0 = highest signal.
func Rank(t Tier) int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return len(tierOrder)
}

// Layers toggles classification rules per tier. A disabled tier's rule is
// skipped entirely, so paths that would have matched it fall through to later
// rules (usually landing in "other").
type Layers map[Tier]bool

// DefaultLayers enables every tier except tests: test files are verbose
// relative to their signal value.
func DefaultLayers() Layers {
	l := make(Layers, len(tierOrder))
	for _, t := range tierOrder {
		l[t] = t != TierTests
	}
	return l
}

// Enabled reports whether a tier's rule participates in classification.
// Unlisted tiers default to enabled, except tests which defaults to disabled.
func (l Layers) Enabled(t Tier) bool {
	if v, ok := l[t]; ok {
		return v
	}
	return t != TierTests
}

// pathInfo pre-computes the lowered views of a path the rules match against.
type pathInfo struct {
	full  string   // whole path, lowercased
	parts []string // every path component, lowercased
	name  string   // final component
	stem  string   // name without extension
	ext   string   // extension, with dot
}

func newPathInfo(p string) pathInfo {
	lower := strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
	parts := strings.Split(strings.Trim(lower, "/"), "/")
	name := parts[len(parts)-1]
	ext := path.Ext(name)
	return pathInfo{
		full:  lower,
		parts: parts,
		name:  name,
		stem:  strings.TrimSuffix(name, ext),
		ext:   ext,
	}
}

// hasSegment is the exact segment match: a whole component equals the target.
// Required where substring matching would false-positive (e.g. "docker" must
// not match a "doc" rule).
func (pi pathInfo) hasSegment(seg string) bool {
	for _, part := range pi.parts {
		if part == seg {
			return true
		}
	}
	return false
}

// inSegment is the looser substring-in-segment match, acceptable only where
// false positives are rare (e.g. AI-assistant config directory fragments).
func (pi pathInfo) inSegment(fragment string) bool {
	for _, part := range pi.parts {
		if strings.Contains(part, fragment) {
			return true
		}
	}
	return false
}

func (pi pathInfo) nameHasAny(fragments ...string) bool {
	for _, f := range fragments {
		if strings.Contains(pi.name, f) {
			return true
		}
	}
	return false
}

func (pi pathInfo) nameStartsAny(prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(pi.name, p) {
			return true
		}
	}
	return false
}

// sourceExts marks extensions eligible for the stem-based entrypoint and
// domain-model rules.
var sourceExts = map[string]bool{
	".py": true,
	".ts": true,
	".js": true,
	".go": true,
}

var buildDepNames = map[string]bool{
	"pyproject.toml":  true,
	"package.json":    true,
	"makefile":        true,
	"procfile":        true,
	"setup.py":        true,
	"setup.cfg":       true,
	"environment.yml": true,
	"cargo.toml":      true,
	"go.mod":          true,
	"go.sum":          true,
	"pom.xml":         true,
	"build.gradle":    true,
}

var entrypointNames = map[string]bool{
	"main.py":     true,
	"main.go":     true,
	"app.py":      true,
	"server.py":   true,
	"index.ts":    true,
	"server.ts":   true,
	"wsgi.py":     true,
	"asgi.py":     true,
	"manage.py":   true,
	"__main__.py": true,
	"main.ts":     true,
	"index.js":    true,
	"app.ts":      true,
	"main.js":     true,
}

var entrypointStems = map[string]bool{
	"main":      true,
	"bootstrap": true,
	"factory":   true,
	"entry":     true,
	"app":       true,
	"server":    true,
}

var configNames = map[string]bool{
	".env.example":     true,
	".env.sample":      true,
	"application.yml":  true,
	"application.yaml": true,
	"appsettings.json": true,
}

var domainDirs = map[string]bool{
	"models":      true,
	"schemas":     true,
	"domain":      true,
	"entities":    true,
	"routes":      true,
	"routers":     true,
	"services":    true,
	"controllers": true,
	"handlers":    true,
	"use_cases":   true,
	"api":         true,
}

var domainStems = []string{"model", "schema", "route", "router", "service", "controller", "handler"}

// rules is the ordered predicate+tier chain. Evaluation order is tier priority
// order; the classifier walks it top to bottom.
var rules = []struct {
	tier  Tier
	match func(pathInfo) bool
}{
	{TierDocsContract, matchDocsContract},
	{TierDocsNarrative, matchDocsNarrative},
	{TierSkills, matchSkills},
	{TierBuildDeps, matchBuildDeps},
	{TierEntrypoints, matchEntrypoints},
	{TierConfigSurfaces, matchConfigSurfaces},
	{TierDomainModel, matchDomainModel},
	{TierCI, matchCI},
	{TierTests, matchTests},
}

// Classify assigns exactly one tier to a file path. Deterministic for a given
// path and layer configuration; unmatched paths land in TierOther.
func Classify(filePath string, layers Layers) Tier {
	pi := newPathInfo(filePath)
	for _, r := range rules {
		if !layers.Enabled(r.tier) {
			continue
		}
		if r.match(pi) {
			return r.tier
		}
	}
	return TierOther
}

// Contract docs: specs, schemas, ADRs, PRDs, OpenAPI definitions.
func matchDocsContract(pi pathInfo) bool {
	if pi.hasSegment("adr") || pi.hasSegment("adrs") || pi.hasSegment("specs") {
		return true
	}
	if pi.nameHasAny("openapi", "swagger", "asyncapi") {
		return true
	}
	return pi.nameStartsAny("spec", "prd", "requirements", "schema")
}

// Narrative docs: READMEs, tutorials, changelogs. Directory checks use exact
// segment match so "docker" never classifies as "doc".
func matchDocsNarrative(pi pathInfo) bool {
	if pi.nameStartsAny("readme", "contributing", "changelog", "development") {
		return true
	}
	return pi.hasSegment("docs") || pi.hasSegment("doc")
}

// Skills: agent instruction files and AI-assistant config directories.
func matchSkills(pi pathInfo) bool {
	if strings.Contains(pi.full, "skill") {
		return true
	}
	return pi.inSegment(".claude") || pi.inSegment(".gemini") || pi.inSegment(".codex")
}

// Build and dependency manifests.
func matchBuildDeps(pi pathInfo) bool {
	if buildDepNames[pi.name] {
		return true
	}
	if strings.HasPrefix(pi.name, "requirements") && strings.HasSuffix(pi.name, ".txt") {
		return true
	}
	return pi.nameStartsAny("dockerfile", "docker-compose")
}

// Entrypoints: where execution begins.
func matchEntrypoints(pi pathInfo) bool {
	if entrypointNames[pi.name] {
		return true
	}
	return entrypointStems[pi.stem] && sourceExts[pi.ext]
}

// Config surfaces: anything with config/settings in the name plus well-known
// environment and framework config files.
func matchConfigSurfaces(pi pathInfo) bool {
	if pi.nameHasAny("config", "settings", ".env.") {
		return true
	}
	return configNames[pi.name]
}

// Domain model: core business-logic layers, by directory or by stem.
func matchDomainModel(pi pathInfo) bool {
	for _, part := range pi.parts[:len(pi.parts)-1] {
		if domainDirs[part] {
			return true
		}
	}
	if !sourceExts[pi.ext] {
		return false
	}
	for _, frag := range domainStems {
		if strings.Contains(pi.stem, frag) {
			return true
		}
	}
	return false
}

// CI and deploy configuration.
func matchCI(pi pathInfo) bool {
	if pi.inSegment("workflows") || pi.inSegment(".github") || pi.inSegment("deploy") {
		return true
	}
	return pi.name == "procfile" || pi.name == "procfile.windows"
}

// Tests.
func matchTests(pi pathInfo) bool {
	if strings.HasPrefix(pi.name, "test_") {
		return true
	}
	if strings.HasSuffix(pi.name, "_test.py") || strings.HasSuffix(pi.name, "_test.go") {
		return true
	}
	if pi.nameHasAny(".test.", ".spec.") {
		return true
	}
	return pi.inSegment("tests") || pi.inSegment("__tests__")
}
