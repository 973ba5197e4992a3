package suggest

import "testing"

func TestFuzzyScoreExactMatch(t *testing.T) {
	score, ok := fuzzyScore("select", "SELECT")
	if !ok || score != 100 {
		t.Fatalf("expected exact match score 100, got %d ok=%v", score, ok)
	}
}

func TestFuzzyScorePrefixMatch(t *testing.T) {
	score, ok := fuzzyScore("sel", "SELECT")
	if !ok || score < 50 || score > 90 {
		t.Fatalf("expected a prefix score in [50,90], got %d ok=%v", score, ok)
	}
}

func TestFuzzyScoreSubstringMatch(t *testing.T) {
	score, ok := fuzzyScore("lec", "SELECT")
	if !ok || score != 70 {
		t.Fatalf("expected substring score 70, got %d ok=%v", score, ok)
	}
}

func TestFuzzyScoreSubsequenceMatch(t *testing.T) {
	score, ok := fuzzyScore("slt", "SELECT")
	if !ok || score < 60 || score > 80 {
		t.Fatalf("expected a subsequence score in [60,80], got %d ok=%v", score, ok)
	}
}

func TestFuzzyScoreNoMatchDropped(t *testing.T) {
	_, ok := fuzzyScore("xyz", "SELECT")
	if ok {
		t.Fatalf("expected no match for a non-subsequence partial")
	}
}

func TestFuzzyScoreEmptyPartialMatchesEverything(t *testing.T) {
	score, ok := fuzzyScore("", "SELECT")
	if !ok || score != 100 {
		t.Fatalf("expected empty partial to match with top score, got %d ok=%v", score, ok)
	}
}
