// Package score orchestrates tokenization and frequency aggregation over a
// named-document corpus and produces ranked term statistics rows.
package score

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/termstat/pkg/termstat/ingest"
	"github.com/cognicore/termstat/pkg/termstat/tfidf"
)

const (
	// DefaultMinTermLength drops terms shorter than three characters.
	DefaultMinTermLength = 3

	// The single-text entry point keeps only the top 50 rows, matching the
	// legacy single-file upload behavior.
	legacyMaxResults = 50

	// Minimum quasi-document count the legacy splitter aims for.
	legacyMinParts = 10
)

// Source attributes a term's occurrences to one document.
type Source struct {
	Document string
	Count    int
}

// Row holds the corpus-wide statistics for a single term.
type Row struct {
	Term    string
	TF      int
	DF      int
	IDF     float64
	Sources []Source
}

// Scorer computes ranked TF-IDF statistics over a corpus.
type Scorer struct {
	tokenizer     *ingest.Tokenizer
	minTermLength int
	maxResults    int
}

// Options configures a Scorer.
type Options struct {
	// Tokenizer defaults to one built from DefaultStopwords.
	Tokenizer *ingest.Tokenizer

	// MinTermLength is the minimum term length in characters; zero means
	// DefaultMinTermLength.
	MinTermLength int

	// MaxResults truncates ScoreCorpus output to the top N rows; zero keeps
	// every row. ScoreText ignores this and always keeps the top 50.
	MaxResults int
}

// New creates a Scorer with the given options.
func New(opts Options) *Scorer {
	s := &Scorer{
		tokenizer:     opts.Tokenizer,
		minTermLength: opts.MinTermLength,
		maxResults:    opts.MaxResults,
	}
	if s.tokenizer == nil {
		s.tokenizer = ingest.NewTokenizer(ingest.DefaultStopwords())
	}
	if s.minTermLength <= 0 {
		s.minTermLength = DefaultMinTermLength
	}
	return s
}

// ScoreCorpus tokenizes every document, aggregates term/document frequencies
// and smoothed IDF, and returns rows sorted by descending IDF, then
// descending TF, then term. An empty corpus yields no rows, not an error.
// Documents are processed in sorted-name order, so each row's source list is
// ordered by first encounter deterministically.
func (s *Scorer) ScoreCorpus(corpus map[string]string) []Row {
	if len(corpus) == 0 {
		return nil
	}

	names := make([]string, 0, len(corpus))
	for name := range corpus {
		names = append(names, name)
	}
	sort.Strings(names)

	docs := make([][]string, len(names))
	for i, name := range names {
		docs[i] = s.filterShort(s.tokenizer.Tokenize(corpus[name]))
	}
	return s.rank(names, docs, s.maxResults)
}

// ScoreText scores a single raw text by splitting it into quasi-documents,
// preserving the legacy single-file behavior including its top-50 cutoff.
func (s *Scorer) ScoreText(text string) []Row {
	docs := s.splitText(text)
	names := make([]string, len(docs))
	for i := range docs {
		names[i] = fmt.Sprintf("part-%d", i+1)
	}
	return s.rank(names, docs, legacyMaxResults)
}

// rank aggregates frequencies over tokenized documents and emits sorted rows.
func (s *Scorer) rank(names []string, docs [][]string, maxResults int) []Row {
	var all []string
	for _, doc := range docs {
		all = append(all, doc...)
	}

	tf := tfidf.TermFrequency(all)
	df := tfidf.DocumentFrequency(docs)
	idf := tfidf.InverseDocumentFrequency(len(docs), df)

	sources := make(map[string][]Source, len(df))
	for i, doc := range docs {
		for term, count := range tfidf.TermFrequency(doc) {
			sources[term] = append(sources[term], Source{Document: names[i], Count: count})
		}
	}

	rows := make([]Row, 0, len(tf))
	for term, total := range tf {
		rows = append(rows, Row{
			Term:    term,
			TF:      total,
			DF:      df[term],
			IDF:     idf[term],
			Sources: sources[term],
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].IDF != rows[j].IDF {
			return rows[i].IDF > rows[j].IDF
		}
		if rows[i].TF != rows[j].TF {
			return rows[i].TF > rows[j].TF
		}
		return rows[i].Term < rows[j].Term
	})

	if maxResults > 0 && len(rows) > maxResults {
		rows = rows[:maxResults]
	}
	return rows
}

func (s *Scorer) filterShort(tokens []string) []string {
	var out []string
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) >= s.minTermLength {
			out = append(out, tok)
		}
	}
	return out
}

var blankLines = regexp.MustCompile(`\n{2,}`)

// splitText breaks one raw text into tokenized quasi-documents: by blank
// lines first, by single lines when that yields too few parts, and by
// fixed-size token chunks as a last resort.
func (s *Scorer) splitText(text string) [][]string {
	docs := s.tokenizeSegments(blankLines.Split(text, -1))

	if len(docs) > 0 && len(docs) < legacyMinParts {
		if lineDocs := s.tokenizeSegments(strings.Split(text, "\n")); len(lineDocs) > 0 {
			docs = lineDocs
		}
	}

	if len(docs) > 0 && len(docs) < legacyMinParts {
		all := s.filterShort(s.tokenizer.Tokenize(text))
		chunk := len(all) / legacyMinParts
		if chunk < 1 {
			chunk = 1
		}
		var chunked [][]string
		for i := 0; i < len(all); i += chunk {
			end := i + chunk
			if end > len(all) {
				end = len(all)
			}
			chunked = append(chunked, all[i:end])
		}
		if len(chunked) > 0 {
			docs = chunked
		}
	}

	return docs
}

func (s *Scorer) tokenizeSegments(segments []string) [][]string {
	var docs [][]string
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		tokens := s.filterShort(s.tokenizer.Tokenize(seg))
		if len(tokens) > 0 {
			docs = append(docs, tokens)
		}
	}
	return docs
}
