package recommender

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats"
)

// IndexOptions controls the term-weighting vectorizer.
type IndexOptions struct {
	MinDF       int `mapstructure:"min_df"`
	MaxFeatures int `mapstructure:"max_features"`
	NGramMin    int `mapstructure:"ngram_min"`
	NGramMax    int `mapstructure:"ngram_max"`
}

func DefaultIndexOptions() IndexOptions {
	return IndexOptions{
		MinDF:       3,
		MaxFeatures: 10000,
		NGramMin:    1,
		NGramMax:    3,
	}
}

func (o IndexOptions) withDefaults() IndexOptions {
	defaults := DefaultIndexOptions()
	if o.MinDF <= 0 {
		o.MinDF = defaults.MinDF
	}
	if o.MaxFeatures <= 0 {
		o.MaxFeatures = defaults.MaxFeatures
	}
	if o.NGramMin <= 0 {
		o.NGramMin = defaults.NGramMin
	}
	if o.NGramMax < o.NGramMin {
		o.NGramMax = o.NGramMin
	}
	return o
}

// sparseVector holds non-zero entries sorted by column.
type sparseVector struct {
	indices []int
	values  []float64
}

func (v sparseVector) dot(o sparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.indices) && j < len(o.indices) {
		switch {
		case v.indices[i] == o.indices[j]:
			sum += v.values[i] * o.values[j]
			i++
			j++
		case v.indices[i] < o.indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

func (v sparseVector) isZero() bool {
	return len(v.values) == 0
}

// analyze turns a normalized document into its 1..n-gram terms. Tokens are
// runs of at least two word characters with English stop words removed.
func analyze(doc string, ngramMin, ngramMax int) []string {
	var tokens []string
	for _, token := range strings.Fields(doc) {
		if utf8.RuneCountInString(token) < 2 || isStopWord(token) {
			continue
		}
		tokens = append(tokens, token)
	}

	var terms []string
	for n := ngramMin; n <= ngramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}

type vectorizer struct {
	vocabulary map[string]int
	terms      []string
	idf        []float64
	minDF      int
}

// fitTransform learns the vocabulary and idf weights over docs and returns
// one L2-normalized row per document, aligned with docs.
func fitTransform(docs []string, opts IndexOptions) (*vectorizer, []sparseVector) {
	counts := make([]map[string]int, len(docs))
	docFreq := make(map[string]int)
	termFreq := make(map[string]int)

	for i, doc := range docs {
		tf := make(map[string]int)
		for _, term := range analyze(doc, opts.NGramMin, opts.NGramMax) {
			tf[term]++
		}
		counts[i] = tf
		for term, c := range tf {
			docFreq[term]++
			termFreq[term] += c
		}
	}

	minDF := opts.MinDF
	kept := selectTerms(docFreq, minDF)
	if len(kept) == 0 && minDF > 1 {
		minDF = 1
		kept = selectTerms(docFreq, minDF)
	}

	sort.Slice(kept, func(i, j int) bool {
		if termFreq[kept[i]] != termFreq[kept[j]] {
			return termFreq[kept[i]] > termFreq[kept[j]]
		}
		return kept[i] < kept[j]
	})
	if len(kept) > opts.MaxFeatures {
		kept = kept[:opts.MaxFeatures]
	}
	sort.Strings(kept)

	v := &vectorizer{
		vocabulary: make(map[string]int, len(kept)),
		terms:      kept,
		idf:        make([]float64, len(kept)),
		minDF:      minDF,
	}
	n := float64(len(docs))
	for col, term := range kept {
		v.vocabulary[term] = col
		v.idf[col] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	rows := make([]sparseVector, len(docs))
	for i, tf := range counts {
		rows[i] = v.weigh(tf)
	}
	return v, rows
}

func selectTerms(docFreq map[string]int, minDF int) []string {
	var terms []string
	for term, df := range docFreq {
		if df >= minDF {
			terms = append(terms, term)
		}
	}
	return terms
}

func (v *vectorizer) weigh(tf map[string]int) sparseVector {
	var row sparseVector
	for term := range tf {
		if col, ok := v.vocabulary[term]; ok {
			row.indices = append(row.indices, col)
		}
	}
	sort.Ints(row.indices)

	row.values = make([]float64, len(row.indices))
	for k, col := range row.indices {
		row.values[k] = float64(tf[v.terms[col]]) * v.idf[col]
	}

	if norm := floats.Norm(row.values, 2); norm > 0 {
		floats.Scale(1/norm, row.values)
	}
	return row
}
