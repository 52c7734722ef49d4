package score

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func testScorer(opts Options) *Scorer {
	return New(opts)
}

func TestScoreCorpusExample(t *testing.T) {
	s := testScorer(Options{})

	rows := s.ScoreCorpus(map[string]string{
		"doc1.txt": "Apple orange apple banana.",
		"doc2.txt": "Apple grape.",
	})

	byTerm := make(map[string]Row, len(rows))
	for _, row := range rows {
		byTerm[row.Term] = row
	}

	apple, ok := byTerm["apple"]
	if !ok {
		t.Fatal("missing row for apple")
	}
	if apple.TF != 3 || apple.DF != 2 {
		t.Errorf("apple tf=%d df=%d, want tf=3 df=2", apple.TF, apple.DF)
	}
	if math.Abs(apple.IDF-1.0) > 1e-9 {
		t.Errorf("idf(apple) = %v, want 1.0", apple.IDF)
	}

	orange := byTerm["orange"]
	if orange.TF != 1 || orange.DF != 1 {
		t.Errorf("orange tf=%d df=%d, want tf=1 df=1", orange.TF, orange.DF)
	}
	if want := math.Log(1.5) + 1; math.Abs(orange.IDF-want) > 1e-9 {
		t.Errorf("idf(orange) = %v, want %v", orange.IDF, want)
	}

	// The three df=1 terms rank ahead of apple; ties resolve by term.
	wantOrder := []string{"banana", "grape", "orange", "apple"}
	for i, term := range wantOrder {
		if rows[i].Term != term {
			t.Fatalf("rank %d = %s, want %s (full order: %v)", i, rows[i].Term, term, rows)
		}
	}
}

func TestScoreCorpusRowInvariants(t *testing.T) {
	s := testScorer(Options{})

	rows := s.ScoreCorpus(map[string]string{
		"a.txt": "alpha beta gamma alpha delta",
		"b.txt": "beta beta epsilon alpha",
		"c.txt": "gamma zeta zeta theta",
	})
	if len(rows) == 0 {
		t.Fatal("expected rows")
	}

	for _, row := range rows {
		if row.DF != len(row.Sources) {
			t.Errorf("%s: df=%d but %d sources", row.Term, row.DF, len(row.Sources))
		}
		sum := 0
		for _, src := range row.Sources {
			if src.Count <= 0 {
				t.Errorf("%s: source %s has count %d", row.Term, src.Document, src.Count)
			}
			sum += src.Count
		}
		if row.TF != sum {
			t.Errorf("%s: tf=%d but sources sum to %d", row.Term, row.TF, sum)
		}
	}

	for i := 1; i < len(rows); i++ {
		if rows[i-1].IDF < rows[i].IDF {
			t.Fatalf("rows not sorted by idf at %d", i)
		}
		if rows[i-1].IDF == rows[i].IDF && rows[i-1].TF < rows[i].TF {
			t.Fatalf("idf tie not broken by tf at %d", i)
		}
	}
}

func TestScoreCorpusEmpty(t *testing.T) {
	s := testScorer(Options{})

	if rows := s.ScoreCorpus(nil); len(rows) != 0 {
		t.Errorf("empty corpus should yield no rows, got %v", rows)
	}
	if rows := s.ScoreCorpus(map[string]string{}); len(rows) != 0 {
		t.Errorf("empty corpus should yield no rows, got %v", rows)
	}
}

func TestScoreCorpusFiltersShortAndStopwords(t *testing.T) {
	s := testScorer(Options{})

	rows := s.ScoreCorpus(map[string]string{
		"doc.txt": "an ox is on the meadow grass",
	})
	for _, row := range rows {
		if len(row.Term) < DefaultMinTermLength {
			t.Errorf("short term %q leaked into output", row.Term)
		}
		if row.Term == "the" || row.Term == "is" || row.Term == "on" {
			t.Errorf("stopword %q leaked into output", row.Term)
		}
	}
}

func TestScoreCorpusDeterministic(t *testing.T) {
	s := testScorer(Options{})
	corpus := map[string]string{
		"x.txt": "red green blue red",
		"y.txt": "green yellow purple",
		"z.txt": "blue blue cyan",
	}

	first := s.ScoreCorpus(corpus)
	second := s.ScoreCorpus(corpus)
	if len(first) != len(second) {
		t.Fatalf("row counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Term != second[i].Term {
			t.Fatalf("rank %d differs between runs: %s vs %s", i, first[i].Term, second[i].Term)
		}
		if len(first[i].Sources) != len(second[i].Sources) {
			t.Fatalf("%s: source counts differ", first[i].Term)
		}
		for j := range first[i].Sources {
			if first[i].Sources[j] != second[i].Sources[j] {
				t.Fatalf("%s: source order differs between runs", first[i].Term)
			}
		}
	}
}

func TestScoreCorpusMaxResults(t *testing.T) {
	s := testScorer(Options{MaxResults: 2})

	rows := s.ScoreCorpus(map[string]string{
		"doc.txt": "alpha beta gamma delta epsilon",
	})
	if len(rows) != 2 {
		t.Errorf("expected 2 rows with MaxResults=2, got %d", len(rows))
	}
}

func TestScoreTextTruncatesToFifty(t *testing.T) {
	s := testScorer(Options{})

	var parts []string
	for i := 0; i < 60; i++ {
		parts = append(parts, fmt.Sprintf("word%02d", i))
	}
	text := strings.Join(parts, "\n\n")

	rows := s.ScoreText(text)
	if len(rows) != 50 {
		t.Errorf("legacy path should keep the top 50 rows, got %d", len(rows))
	}
}

func TestScoreTextIgnoresCorpusMaxResults(t *testing.T) {
	// MaxResults applies to ScoreCorpus only; the legacy cutoff is fixed.
	s := testScorer(Options{MaxResults: 3})

	var parts []string
	for i := 0; i < 20; i++ {
		parts = append(parts, fmt.Sprintf("word%02d", i))
	}
	rows := s.ScoreText(strings.Join(parts, "\n\n"))
	if len(rows) != 20 {
		t.Errorf("expected 20 rows, got %d", len(rows))
	}
}

func TestScoreTextChunksSingleParagraph(t *testing.T) {
	s := testScorer(Options{})

	var words []string
	for i := 0; i < 40; i++ {
		words = append(words, fmt.Sprintf("token%02d", i))
	}
	rows := s.ScoreText(strings.Join(words, " "))

	if len(rows) != 40 {
		t.Fatalf("expected 40 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.DF != len(row.Sources) {
			t.Errorf("%s: df=%d but %d sources", row.Term, row.DF, len(row.Sources))
		}
		if row.DF < 1 {
			t.Errorf("%s: df must be at least 1", row.Term)
		}
	}
}

func TestScoreTextEmpty(t *testing.T) {
	s := testScorer(Options{})

	if rows := s.ScoreText(""); len(rows) != 0 {
		t.Errorf("empty text should yield no rows, got %v", rows)
	}
}
