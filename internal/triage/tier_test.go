package triage

import "testing"

func TestClassify(t *testing.T) {
	layers := DefaultLayers()
	layers[TierTests] = true

	tests := []struct {
		path string
		want Tier
	}{
		// Contract documentation.
		{"adr/0001-storage.md", TierDocsContract},
		{"docs/specs/feature.md", TierDocsContract},
		{"openapi.yaml", TierDocsContract},
		{"api/swagger.json", TierDocsContract},
		{"schema_orders.sql", TierDocsContract},
		{"requirements-dev.txt", TierDocsContract},

		// Narrative documentation.
		{"README.md", TierDocsNarrative},
		{"readme.rst", TierDocsNarrative},
		{"docs/guide.md", TierDocsNarrative},
		{"doc/intro.txt", TierDocsNarrative},
		{"CHANGELOG.md", TierDocsNarrative},

		// Skills and assistant config.
		{".claude/skills/review.md", TierSkills},
		{"agent/skill_writer.py", TierSkills},
		{".gemini/config.md", TierSkills},

		// Build and dependency manifests.
		{"pyproject.toml", TierBuildDeps},
		{"go.mod", TierBuildDeps},
		{"Makefile", TierBuildDeps},
		{"Dockerfile", TierBuildDeps},
		{"docker-compose.yml", TierBuildDeps},
		{"backend/package.json", TierBuildDeps},

		// Entrypoints.
		{"src/main.py", TierEntrypoints},
		{"cmd/server/main.go", TierEntrypoints},
		{"web/index.ts", TierEntrypoints},
		{"bootstrap.py", TierEntrypoints},

		// Config surfaces.
		{"app_config.yaml", TierConfigSurfaces},
		{"settings.py", TierConfigSurfaces},
		{".env.example", TierConfigSurfaces},

		// Domain model.
		{"src/models/user.py", TierDomainModel},
		{"internal/handlers/orders.go", TierDomainModel},
		{"user_service.py", TierDomainModel},

		// CI.
		{".github/workflows/ci.yml", TierCI},
		{"deploy/k8s.yaml", TierCI},

		// Tests (layer enabled above).
		{"tests/test_app.py", TierTests},
		{"pkg/store_test.go", TierTests},
		{"src/app.spec.ts", TierTests},

		// Fallthrough.
		{"data/fixtures.bin", TierOther},
		{"src/util.py", TierOther},
	}

	for _, tt := range tests {
		if got := Classify(tt.path, layers); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestClassifyDockerIsNotDocs(t *testing.T) {
	// "docker" must never satisfy a "doc" directory rule.
	if got := Classify("docker/setup.md", DefaultLayers()); got == TierDocsNarrative {
		t.Errorf("Classify(docker/setup.md) = %q, substring matched doc", got)
	}
}

func TestClassifyWindowsSeparators(t *testing.T) {
	if got := Classify(`docs\guide.md`, DefaultLayers()); got != TierDocsNarrative {
		t.Errorf("Classify(docs\\guide.md) = %q, want %q", got, TierDocsNarrative)
	}
}

func TestClassifyDisabledLayerFallsThrough(t *testing.T) {
	layers := DefaultLayers()

	// Tests are disabled by default, so a test file falls through to other.
	if got := Classify("tests/test_app.py", layers); got != TierOther {
		t.Errorf("with tests disabled, Classify = %q, want %q", got, TierOther)
	}

	// Disabling narrative docs drops a README to other, not contract docs.
	layers[TierDocsNarrative] = false
	if got := Classify("README.md", layers); got != TierOther {
		t.Errorf("with narrative disabled, Classify = %q, want %q", got, TierOther)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	layers := DefaultLayers()
	paths := []string{"README.md", "src/main.py", "weird/path.xyz", "go.mod"}
	for _, p := range paths {
		first := Classify(p, layers)
		for i := 0; i < 10; i++ {
			if got := Classify(p, layers); got != first {
				t.Fatalf("Classify(%q) unstable: %q then %q", p, first, got)
			}
		}
	}
}

func TestRankFollowsTierOrder(t *testing.T) {
	if Rank(TierDocsContract) >= Rank(TierOther) {
		t.Error("docs_contract should outrank other")
	}
	if Rank(TierEntrypoints) >= Rank(TierTests) {
		t.Error("entrypoints should outrank tests")
	}
	if Rank(Tier("bogus")) != len(tierOrder) {
		t.Errorf("unknown tier rank = %d, want %d", Rank(Tier("bogus")), len(tierOrder))
	}
}
