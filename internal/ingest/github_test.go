package ingest

import "testing"

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		in   string
		want RepoRef
	}{
		{
			"https://github.com/golang/go",
			RepoRef{Owner: "golang", Repo: "go", Branch: "main"},
		},
		{
			"https://github.com/golang/go/",
			RepoRef{Owner: "golang", Repo: "go", Branch: "main"},
		},
		{
			"github.com/golang/go",
			RepoRef{Owner: "golang", Repo: "go", Branch: "main"},
		},
		{
			"https://github.com/golang/go.git",
			RepoRef{Owner: "golang", Repo: "go", Branch: "main"},
		},
		{
			"git@github.com:golang/go.git",
			RepoRef{Owner: "golang", Repo: "go", Branch: "main"},
		},
		{
			"https://github.com/golang/go/tree/release-branch.go1.22",
			RepoRef{Owner: "golang", Repo: "go", Branch: "release-branch.go1.22"},
		},
		{
			"https://github.com/golang/go/tree/master/src/net",
			RepoRef{Owner: "golang", Repo: "go", Branch: "master", Path: "src/net"},
		},
		{
			"https://github.com/golang/go/blob/master/README.md",
			RepoRef{Owner: "golang", Repo: "go", Branch: "master", Path: "README.md"},
		},
	}
	for _, tt := range tests {
		got, err := ParseRepoURL(tt.in)
		if err != nil {
			t.Errorf("ParseRepoURL(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRepoURL(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseRepoURLInvalid(t *testing.T) {
	for _, in := range []string{"", "https://github.com/", "https://github.com/onlyowner", "git@gitlab.com:a/b"} {
		if _, err := ParseRepoURL(in); err == nil {
			t.Errorf("ParseRepoURL(%q) succeeded, want error", in)
		}
	}
}

func TestCloneURL(t *testing.T) {
	ref := RepoRef{Owner: "acme", Repo: "widgets"}
	if got := ref.CloneURL(""); got != "https://github.com/acme/widgets" {
		t.Errorf("CloneURL() = %q", got)
	}
	if got := ref.CloneURL("dev"); got != "https://github.com/acme/widgets/tree/dev" {
		t.Errorf("CloneURL(dev) = %q", got)
	}
}

func TestSlug(t *testing.T) {
	ref := RepoRef{Owner: "acme", Repo: "widgets"}
	if got := ref.Slug(); got != "acme-widgets" {
		t.Errorf("Slug() = %q", got)
	}
}
