package prompt

import (
	"strings"
	"testing"

	"github.com/starford/quest/internal/models"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestSelectTier(t *testing.T) {
	tests := []struct {
		name  string
		kind  models.SummaryKind
		words int
		want  Tier
	}{
		{"200 words extended", models.SummaryExtended, 200, TierShort},
		{"499 words extended", models.SummaryExtended, 499, TierShort},
		{"500 words extended", models.SummaryExtended, 500, TierModerate},
		{"999 words extended", models.SummaryExtended, 999, TierModerate},
		{"1000 words extended", models.SummaryExtended, 1000, TierBalanced},
		{"1800 words extended", models.SummaryExtended, 1800, TierBalanced},
		{"2500 words extended", models.SummaryExtended, 2500, TierFull},
		{"3000 words extended", models.SummaryExtended, 3000, TierFull},
		{"3000 words concise", models.SummaryConcise, 3000, TierConcise},
		{"200 words concise", models.SummaryConcise, 200, TierConcise},
		{"unknown kind", models.SummaryKind("haiku"), 3000, TierConcise},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectTier(tt.kind, words(tt.words)); got != tt.want {
				t.Errorf("SelectTier = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuild_EmbedsContentAndWordCount(t *testing.T) {
	content := words(1800)
	p := Build(models.SummaryExtended, content)
	if !strings.Contains(p, "This article is 1800 words.") {
		t.Errorf("word count missing from prompt")
	}
	if !strings.Contains(p, "600-900 words") {
		t.Errorf("balanced target missing from prompt")
	}
	if !strings.HasSuffix(p, "Article: "+content) {
		t.Errorf("content not appended")
	}
	if strings.Contains(p, contentMarker) {
		t.Errorf("marker not replaced")
	}
}

func TestBuild_ConciseIgnoresLength(t *testing.T) {
	short := Build(models.SummaryConcise, words(10))
	long := Build(models.SummaryConcise, words(4000))
	for _, p := range []string{short, long} {
		if !strings.Contains(p, "around 200-300 words") {
			t.Errorf("concise template not used")
		}
	}
}

func TestWordCount(t *testing.T) {
	if n := WordCount("  one\ttwo\n three  "); n != 3 {
		t.Errorf("WordCount = %d, want 3", n)
	}
	if n := WordCount("   "); n != 0 {
		t.Errorf("WordCount of blank = %d, want 0", n)
	}
}
