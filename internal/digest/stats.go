package digest

import "strings"

// Stats summarizes a raw digest for API responses and logs.
type Stats struct {
	Lines           int `json:"lines"`
	Words           int `json:"words"`
	EstimatedTokens int `json:"estimated_tokens"`
	FileCount       int `json:"file_count"`
	FolderCount     int `json:"folder_count"`
}

// ComputeStats derives digest statistics from raw digest text. File and folder
// counts come from the directory-tree header (everything before the first
// separator line): tree branch lines ending in "/" are folders, the rest files.
func ComputeStats(raw string) Stats {
	st := Stats{
		Lines:           strings.Count(raw, "\n"),
		Words:           len(strings.Fields(raw)),
		EstimatedTokens: EstimateTokens(raw),
	}

	tree, _, found := strings.Cut(raw, Separator)
	if !found {
		return st
	}
	for _, line := range strings.Split(strings.TrimSpace(tree), "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "├──") && !strings.Contains(line, "└──") {
			continue
		}
		name := line
		if _, after, ok := strings.Cut(line, "── "); ok {
			name = after
		}
		if strings.HasSuffix(name, "/") {
			st.FolderCount++
		} else {
			st.FileCount++
		}
	}
	return st
}
