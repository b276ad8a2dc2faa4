// Package ingest invokes the external gitingest tool to flatten a remote
// repository into a single digest text file.
package ingest

import (
	"fmt"
	"net/url"
	"strings"
)

// RepoRef identifies a repository location extracted from a GitHub URL.
type RepoRef struct {
	Owner  string
	Repo   string
	Branch string
	Path   string
}

// ParseRepoURL extracts owner, repo, branch and subpath from any common
// GitHub URL form: https, bare host, or git@ SSH. Branch and path come from
// /tree/<branch>/<path> or /blob/<branch>/<path> segments when present.
func ParseRepoURL(raw string) (RepoRef, error) {
	raw = strings.TrimRight(raw, "/")
	raw = strings.ReplaceAll(raw, ".git", "")

	var p string
	if strings.HasPrefix(raw, "git@") {
		rest, ok := strings.CutPrefix(raw, "git@github.com:")
		if !ok {
			return RepoRef{}, fmt.Errorf("invalid SSH GitHub URL: %s", raw)
		}
		p = rest
	} else {
		withScheme := raw
		if !strings.Contains(withScheme, "://") {
			withScheme = "https://" + withScheme
		}
		u, err := url.Parse(withScheme)
		if err != nil {
			return RepoRef{}, fmt.Errorf("invalid GitHub URL %q: %w", raw, err)
		}
		p = strings.TrimPrefix(u.Path, "/")
	}

	parts := strings.Split(p, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, fmt.Errorf("invalid GitHub URL: %s", raw)
	}

	ref := RepoRef{Owner: parts[0], Repo: parts[1], Branch: "main"}
	if len(parts) > 3 && (parts[2] == "tree" || parts[2] == "blob") {
		ref.Branch = parts[3]
		if len(parts) > 4 {
			ref.Path = strings.Join(parts[4:], "/")
		}
	}
	return ref, nil
}

// CloneURL returns the canonical https URL for the repository, optionally
// pinned to a branch via the /tree/ form, which gitingest resolves natively.
func (r RepoRef) CloneURL(branch string) string {
	base := fmt.Sprintf("https://github.com/%s/%s", r.Owner, r.Repo)
	if branch != "" {
		return base + "/tree/" + branch
	}
	return base
}

// Slug returns "<owner>-<repo>", used to name output files.
func (r RepoRef) Slug() string {
	return r.Owner + "-" + r.Repo
}
