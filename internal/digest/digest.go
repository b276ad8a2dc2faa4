// Package digest parses flattened-repository text blobs into ordered file
// sections and prices them in estimated tokens.
package digest

import (
	"regexp"
	"strings"
)

// Separator is the section delimiter line used by gitingest output: 48 '='.
const Separator = "================================================"

// Section is one file's contribution to a digest. Path is taken verbatim from
// the FILE: line and is never validated against a filesystem.
type Section struct {
	Path    string
	Content string
}

// Document is a fully parsed digest: optional free-text header (usually the
// directory tree) followed by file sections in order of appearance.
type Document struct {
	Header   string
	Sections []Section
}

// boundaryRe matches the full three-line section boundary. Anchoring on
// separator + FILE line + separator (not the separator alone) keeps stray
// separator-lookalike lines inside file content from drifting the parser.
var boundaryRe = regexp.MustCompile(`(?m)^={48}$\nFILE: (.+)$\n^={48}$\n?`)

// Parse splits raw digest text into a Document. Line endings are normalized
// before matching so the boundary regex is insensitive to the source platform.
// Text with no boundary at all parses as a header-only document; that is a
// valid state, not an error.
func Parse(raw string) Document {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	matches := boundaryRe.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return Document{Header: strings.TrimSpace(raw)}
	}

	doc := Document{
		Header:   strings.TrimSpace(raw[:matches[0][0]]),
		Sections: make([]Section, 0, len(matches)),
	}
	for i, m := range matches {
		path := strings.TrimSpace(raw[m[2]:m[3]])
		contentEnd := len(raw)
		if i+1 < len(matches) {
			contentEnd = matches[i+1][0]
		}
		doc.Sections = append(doc.Sections, Section{
			Path:    path,
			Content: strings.TrimSpace(raw[m[1]:contentEnd]),
		})
	}
	return doc
}

// RenderSection produces a section's canonical digest form, leading newline
// included. Token pricing uses this exact rendering so that delimiter overhead
// is accounted for; across thousands of small files it is not negligible.
func RenderSection(s Section) string {
	var sb strings.Builder
	sb.Grow(len(s.Content) + len(s.Path) + 2*len(Separator) + 16)
	sb.WriteString("\n")
	sb.WriteString(Separator)
	sb.WriteString("\nFILE: ")
	sb.WriteString(s.Path)
	sb.WriteString("\n")
	sb.WriteString(Separator)
	sb.WriteString("\n")
	sb.WriteString(s.Content)
	return sb.String()
}

// Render reassembles a document into digest text: header first, then each
// section, joined with single newlines.
func (d Document) Render() string {
	parts := make([]string, 0, len(d.Sections)+1)
	parts = append(parts, d.Header)
	for _, s := range d.Sections {
		parts = append(parts, RenderSection(s))
	}
	return strings.Join(parts, "\n")
}
