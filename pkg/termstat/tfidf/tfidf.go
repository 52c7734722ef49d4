// Package tfidf implements term frequency, document frequency, and smoothed
// inverse document frequency over tokenized documents.
package tfidf

import "math"

// TermFrequency counts total occurrences of each term in one token sequence.
func TermFrequency(tokens []string) map[string]int {
	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	return tf
}

// DocumentFrequency counts, for each term, the number of documents that
// contain it. A term repeated within one document still counts once toward
// that document's contribution.
func DocumentFrequency(docs [][]string) map[string]int {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, tok := range doc {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	return df
}

// InverseDocumentFrequency computes smoothed IDF for every term in df:
//
//	idf(t) = ln((N+1)/(df(t)+1)) + 1
//
// The smoothing keeps the value finite and positive; a term present in every
// document scores exactly 1.0.
func InverseDocumentFrequency(numDocs int, df map[string]int) map[string]float64 {
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log(float64(numDocs+1)/float64(count+1)) + 1
	}
	return idf
}
