package tfidf

import (
	"math"
	"testing"
)

func TestTermFrequency(t *testing.T) {
	tf := TermFrequency([]string{"apple", "orange", "apple", "banana", "apple"})

	if tf["apple"] != 3 {
		t.Errorf("tf[apple] = %d, want 3", tf["apple"])
	}
	if tf["orange"] != 1 {
		t.Errorf("tf[orange] = %d, want 1", tf["orange"])
	}
	if tf["banana"] != 1 {
		t.Errorf("tf[banana] = %d, want 1", tf["banana"])
	}
}

func TestTermFrequencyEmpty(t *testing.T) {
	if tf := TermFrequency(nil); len(tf) != 0 {
		t.Errorf("expected empty map, got %v", tf)
	}
}

func TestDocumentFrequency(t *testing.T) {
	docs := [][]string{
		{"apple", "orange"},
		{"apple", "banana", "apple"},
		{"grape", "apple"},
	}
	df := DocumentFrequency(docs)

	if df["apple"] != 3 {
		t.Errorf("df[apple] = %d, want 3", df["apple"])
	}
	for _, term := range []string{"orange", "banana", "grape"} {
		if df[term] != 1 {
			t.Errorf("df[%s] = %d, want 1", term, df[term])
		}
	}
}

func TestDocumentFrequencyCountsDocumentsOnce(t *testing.T) {
	df := DocumentFrequency([][]string{{"apple", "apple", "apple"}})
	if df["apple"] != 1 {
		t.Errorf("repeated term in one document must count once, got %d", df["apple"])
	}
}

func TestInverseDocumentFrequency(t *testing.T) {
	df := map[string]int{"apple": 3, "orange": 1, "banana": 1, "grape": 1}
	idf := InverseDocumentFrequency(3, df)

	// idf(t) = ln((N+1)/(df+1)) + 1
	if got, want := idf["apple"], 1.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("idf[apple] = %v, want %v", got, want)
	}
	if got, want := idf["orange"], math.Log(2)+1; math.Abs(got-want) > 1e-9 {
		t.Errorf("idf[orange] = %v, want %v", got, want)
	}
}

func TestInverseDocumentFrequencyFormula(t *testing.T) {
	for n := 1; n <= 20; n++ {
		for d := 1; d <= n; d++ {
			idf := InverseDocumentFrequency(n, map[string]int{"term": d})["term"]
			want := math.Log(float64(n+1)/float64(d+1)) + 1
			if math.Abs(idf-want) > 1e-9 {
				t.Fatalf("idf(N=%d, df=%d) = %v, want %v", n, d, idf, want)
			}
			if idf < 1.0-1e-9 {
				t.Fatalf("smoothed idf must never drop below 1.0, got %v for N=%d df=%d", idf, n, d)
			}
		}
	}
}
