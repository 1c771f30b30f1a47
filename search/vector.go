package search

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Document is one listing embedding in the similarity corpus.
type Document struct {
	Ref    string
	Vector []float64
}

// Scored is a corpus entry with its similarity to the query.
type Scored struct {
	Ref   string
	Score float64
}

// CosineSimilarity scores corpus entries against query, best first, ties by reference.
// Entries whose similarity is undefined (zero vectors) are skipped.
func CosineSimilarity(query []float64, corpus []Document) []Scored {
	out := make([]Scored, 0, len(corpus))
	for _, d := range corpus {
		s, ok := cosine(query, d.Vector)
		if !ok {
			continue
		}
		out = append(out, Scored{Ref: d.Ref, Score: s})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Ref < out[j].Ref
	})
	return out
}

// ParseEmbedding decodes a JSON float array, rejecting NaN/Inf and empty vectors.
func ParseEmbedding(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty embedding string")
	}
	var arr []float64
	if err := json.Unmarshal([]byte(s), &arr); err != nil {
		return nil, err
	}
	for _, v := range arr {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid embedding value")
		}
	}
	if len(arr) == 0 {
		return nil, fmt.Errorf("empty embedding array")
	}
	return arr, nil
}

// EncodeEmbedding is the inverse of ParseEmbedding and rejects the same inputs.
func EncodeEmbedding(v []float64) (string, error) {
	if len(v) == 0 {
		return "", fmt.Errorf("empty embedding array")
	}
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", fmt.Errorf("invalid embedding value")
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func cosine(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(b) == 0 {
		return 0, false
	}
	// só computa até o menor tamanho
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}
