package triage

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"gitdigest/internal/digest"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// buildDigest assembles a digest from a header and path/content pairs using
// the canonical delimiter convention.
func buildDigest(header string, sections ...digest.Section) string {
	d := digest.Document{Header: header, Sections: sections}
	return d.Render()
}

func contentOfSize(chars int) string {
	return strings.Repeat("x", chars)
}

func cfgWith(threshold int) Config {
	return Config{TokenThreshold: threshold, Layers: DefaultLayers()}
}

func TestRunUnderBudgetIsIdentity(t *testing.T) {
	raw := buildDigest("tree",
		digest.Section{Path: "main.py", Content: "print('ok')"},
	)
	res := Run(raw, cfgWith(100000), testLog)

	if res.Applied {
		t.Error("Applied = true for digest under budget")
	}
	if res.Text != raw {
		t.Error("under-budget digest was modified")
	}
	if len(res.FilesDropped) != 0 {
		t.Errorf("FilesDropped = %v, want empty", res.FilesDropped)
	}
	if res.PreTokens != res.PostTokens {
		t.Errorf("PreTokens %d != PostTokens %d", res.PreTokens, res.PostTokens)
	}
}

func TestRunEmptyInput(t *testing.T) {
	res := Run("", cfgWith(1000), testLog)
	if res.Applied || res.Text != "" || len(res.FilesDropped) != 0 {
		t.Errorf("empty input produced %+v", res)
	}
}

func TestRunDropsLowestTierLargestFirst(t *testing.T) {
	raw := buildDigest("tree",
		digest.Section{Path: "README.md", Content: contentOfSize(700)},
		digest.Section{Path: "main.py", Content: contentOfSize(700)},
		digest.Section{Path: "junk.bin", Content: contentOfSize(7000)},
	)
	// Dropping junk.bin alone brings the digest under budget.
	threshold := digest.EstimateTokens(raw) - 1500
	res := Run(raw, cfgWith(threshold), testLog)

	if !res.Applied {
		t.Fatal("Applied = false")
	}
	if len(res.FilesDropped) != 1 || res.FilesDropped[0] != "junk.bin" {
		t.Fatalf("FilesDropped = %v, want [junk.bin]", res.FilesDropped)
	}
	if !strings.Contains(res.Text, "FILE: README.md") || !strings.Contains(res.Text, "FILE: main.py") {
		t.Error("kept sections missing from output")
	}
	if res.PostTokens > threshold {
		t.Errorf("PostTokens = %d, over threshold %d", res.PostTokens, threshold)
	}
}

func TestRunPreservesOriginalOrder(t *testing.T) {
	raw := buildDigest("tree",
		digest.Section{Path: "zz_first.py", Content: contentOfSize(300)},
		digest.Section{Path: "huge.bin", Content: contentOfSize(7000)},
		digest.Section{Path: "aa_last.py", Content: contentOfSize(300)},
	)
	threshold := digest.EstimateTokens(raw) - 1500
	res := Run(raw, cfgWith(threshold), testLog)

	first := strings.Index(res.Text, "FILE: zz_first.py")
	last := strings.Index(res.Text, "FILE: aa_last.py")
	if first < 0 || last < 0 {
		t.Fatal("kept sections missing from output")
	}
	if first > last {
		t.Error("sections reordered: drop order leaked into reassembly")
	}
}

func TestRunProtectsDocsUntilPassTwo(t *testing.T) {
	raw := buildDigest("tree",
		digest.Section{Path: "openapi.yaml", Content: contentOfSize(500)},
		digest.Section{Path: "README.md", Content: contentOfSize(4000)},
		digest.Section{Path: "blob.bin", Content: contentOfSize(4000)},
	)
	// Low enough that dropping blob.bin is not sufficient: pass 2 must also
	// drop the narrative README, but the contract doc survives.
	threshold := 500
	res := Run(raw, cfgWith(threshold), testLog)

	if !res.Applied {
		t.Fatal("Applied = false")
	}
	want := []string{"blob.bin", "README.md"}
	if len(res.FilesDropped) != len(want) {
		t.Fatalf("FilesDropped = %v, want %v", res.FilesDropped, want)
	}
	for i, p := range want {
		if res.FilesDropped[i] != p {
			t.Errorf("FilesDropped[%d] = %q, want %q", i, res.FilesDropped[i], p)
		}
	}
	if !strings.Contains(res.Text, "FILE: openapi.yaml") {
		t.Error("contract doc dropped while narrative should go first")
	}
}

func TestRunNarrativeDropsBeforeContract(t *testing.T) {
	raw := buildDigest("tree",
		digest.Section{Path: "openapi.yaml", Content: contentOfSize(3000)},
		digest.Section{Path: "README.md", Content: contentOfSize(3000)},
	)
	// Forces pass 2 all the way into contract docs.
	res := Run(raw, cfgWith(100), testLog)

	if len(res.FilesDropped) != 2 {
		t.Fatalf("FilesDropped = %v, want both docs", res.FilesDropped)
	}
	if res.FilesDropped[0] != "README.md" || res.FilesDropped[1] != "openapi.yaml" {
		t.Errorf("drop order = %v, want narrative before contract", res.FilesDropped)
	}
}

func TestRunTruncatesHeaderAsLastResort(t *testing.T) {
	lines := make([]string, 200)
	for i := range lines {
		lines[i] = "    |-- some/deeply/nested/path/entry_" + strings.Repeat("y", 20)
	}
	raw := buildDigest(strings.Join(lines, "\n"))

	res := Run(raw, cfgWith(100), testLog)
	if !res.Applied {
		t.Fatal("Applied = false")
	}
	if !strings.Contains(res.Text, "directory tree truncated") {
		t.Errorf("truncation marker missing from %q", firstN([]string{res.Text}, 1))
	}
	if res.PostTokens >= res.PreTokens {
		t.Errorf("PostTokens %d not reduced from PreTokens %d", res.PostTokens, res.PreTokens)
	}
	// The cut lands on a line boundary: the text before the marker ends with a
	// complete tree line.
	body := strings.TrimSuffix(res.Text, headerTruncatedMarker)
	if !strings.HasSuffix(body, strings.Repeat("y", 20)) {
		t.Error("header cut mid-line")
	}
}

func TestRunSingleOversizedSectionNoPanic(t *testing.T) {
	raw := buildDigest("tree",
		digest.Section{Path: "giant.bin", Content: contentOfSize(50000)},
	)
	res := Run(raw, cfgWith(100), testLog)

	if !res.Applied {
		t.Fatal("Applied = false")
	}
	if len(res.FilesDropped) != 1 || res.FilesDropped[0] != "giant.bin" {
		t.Errorf("FilesDropped = %v, want [giant.bin]", res.FilesDropped)
	}
}

func TestRunBudgetMonotonicity(t *testing.T) {
	raw := buildDigest("tree",
		digest.Section{Path: "a.py", Content: contentOfSize(1000)},
		digest.Section{Path: "b.py", Content: contentOfSize(2000)},
		digest.Section{Path: "c.bin", Content: contentOfSize(3000)},
		digest.Section{Path: "README.md", Content: contentOfSize(1500)},
	)

	prevDropped := -1
	for _, threshold := range []int{2000, 1500, 1000, 500, 100} {
		res := Run(raw, cfgWith(threshold), testLog)
		if prevDropped >= 0 && len(res.FilesDropped) < prevDropped {
			t.Errorf("threshold %d dropped %d files, fewer than looser budget (%d)",
				threshold, len(res.FilesDropped), prevDropped)
		}
		prevDropped = len(res.FilesDropped)
	}
}

func TestRunTestsLayerChangesDropPriority(t *testing.T) {
	sections := []digest.Section{
		{Path: "main.py", Content: contentOfSize(1000)},
		{Path: "test_main.py", Content: contentOfSize(1000)},
	}
	raw := buildDigest("tree", sections...)
	threshold := digest.EstimateTokens(raw) - 200

	// Default layers: test files fall through to "other" and drop before
	// entrypoints either way. Enabling the tests layer must not change that.
	for _, enableTests := range []bool{false, true} {
		layers := DefaultLayers()
		layers[TierTests] = enableTests
		res := Run(raw, Config{TokenThreshold: threshold, Layers: layers}, testLog)
		if len(res.FilesDropped) == 0 || res.FilesDropped[0] != "test_main.py" {
			t.Errorf("tests layer %v: FilesDropped = %v, want test_main.py first",
				enableTests, res.FilesDropped)
		}
	}
}
