package utils

import "testing"

type scoreDoc struct {
	Score   float64 `json:"score"`
	Comment string  `json:"comment"`
}

func TestSmartParse_StrictJSON(t *testing.T) {
	var doc scoreDoc
	out, err := SmartParse(`{"score": 4.5, "comment": "solid"}`, &doc)
	if err != nil {
		t.Fatalf("SmartParse returned error: %v", err)
	}
	if doc.Score != 4.5 || doc.Comment != "solid" {
		t.Errorf("parsed %+v", doc)
	}
	if out == "" {
		t.Error("expected normalized JSON output")
	}
}

func TestSmartParse_RepairsFencedOutput(t *testing.T) {
	input := "```json\n{\"score\": 3, \"comment\": \"needs work\",}\n```"
	var doc scoreDoc
	if _, err := SmartParse(input, &doc); err != nil {
		t.Fatalf("SmartParse failed on fenced JSON: %v", err)
	}
	if doc.Score != 3 {
		t.Errorf("Score = %f, want 3", doc.Score)
	}
}

func TestSmartParse_HjsonFallback(t *testing.T) {
	input := "{\n  score: 2\n  comment: too thin\n}"
	var doc scoreDoc
	if _, err := SmartParse(input, &doc); err != nil {
		t.Fatalf("SmartParse failed on hjson input: %v", err)
	}
	if doc.Score != 2 {
		t.Errorf("Score = %f, want 2", doc.Score)
	}
}

func TestSmartParse_WrongShape(t *testing.T) {
	var doc scoreDoc
	if _, err := SmartParse("[1, 2, 3]", &doc); err == nil {
		t.Error("expected failure when no strategy yields the schema shape")
	}
}

func TestCleanMarkdown(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```markdown\n# Report\n```", "# Report"},
		{"```\n# Report\n```", "# Report"},
		{"  # Report  ", "# Report"},
	}
	for _, tc := range tests {
		if got := CleanMarkdown(tc.in); got != tc.want {
			t.Errorf("CleanMarkdown(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
