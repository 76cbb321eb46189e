package resolver

import (
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/sn3fru/silvanews-sub000/pkg/graph"
)

const (
	// Names shorter than this with a single token carry too little signal
	// for trigram matching.
	minFuzzyNameLength = 6
	minFuzzyTokenCount = 2
	nameEntropyFloor   = 1.5
)

var nonFuzzyChars = regexp.MustCompile(`[^a-z0-9' ]`)

// NameMatcher decides whether a surface form refers to one of the known
// entity names. Implementations return the matched normalized name and
// true, or false when nothing clears their threshold.
type NameMatcher interface {
	Match(surface string, known []string) (string, bool)
}

// TrigramMatcher matches names by Jaccard similarity over character
// trigrams. Low-entropy surfaces (acronyms, very short names) never
// fuzzy-match; they either hit exactly or create a new entity.
type TrigramMatcher struct {
	threshold float64

	mu    sync.Mutex
	cache map[string][]string
}

func NewTrigramMatcher(threshold float64) *TrigramMatcher {
	return &TrigramMatcher{
		threshold: threshold,
		cache:     make(map[string][]string),
	}
}

func (m *TrigramMatcher) Match(surface string, known []string) (string, bool) {
	normalized := fuzzyForm(surface)
	if !hasHighEntropy(normalized) {
		return "", false
	}

	surfaceShingles := m.shinglesFor(normalized)
	best := ""
	bestScore := 0.0
	for _, candidate := range known {
		candidateForm := fuzzyForm(candidate)
		if candidateForm == "" {
			continue
		}
		score := jaccard(surfaceShingles, m.shinglesFor(candidateForm))
		if score > bestScore || (score == bestScore && best != "" && candidate < best) {
			best = candidate
			bestScore = score
		}
	}
	if bestScore >= m.threshold {
		return best, true
	}
	return "", false
}

func (m *TrigramMatcher) shinglesFor(normalized string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.cache[normalized]; ok {
		return cached
	}
	result := shingles(normalized)
	m.cache[normalized] = result
	return result
}

// fuzzyForm keeps alphanumerics, apostrophes, and spaces so punctuation
// variants of the same name produce identical shingle sets.
func fuzzyForm(name string) string {
	normalized := graph.NormalizeName(name)
	normalized = nonFuzzyChars.ReplaceAllString(normalized, " ")
	return graph.NormalizeName(normalized)
}

func shingles(normalized string) []string {
	cleaned := strings.ReplaceAll(normalized, " ", "")
	if len(cleaned) < 3 {
		if cleaned == "" {
			return nil
		}
		return []string{cleaned}
	}
	set := make([]string, 0, len(cleaned)-2)
	for i := 0; i < len(cleaned)-2; i++ {
		set = append(set, cleaned[i:i+3])
	}
	return set
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	setA := make(map[string]bool, len(a))
	for _, s := range a {
		setA[s] = true
	}
	setB := make(map[string]bool, len(b))
	for _, s := range b {
		setB[s] = true
	}
	intersection := 0
	for s := range setA {
		if setB[s] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func hasHighEntropy(normalized string) bool {
	tokens := len(strings.Fields(normalized))
	if len(normalized) < minFuzzyNameLength && tokens < minFuzzyTokenCount {
		return false
	}
	return nameEntropy(normalized) >= nameEntropyFloor
}

// nameEntropy approximates name specificity with Shannon entropy over
// the character distribution.
func nameEntropy(normalized string) float64 {
	text := strings.ReplaceAll(normalized, " ", "")
	if text == "" {
		return 0.0
	}
	counts := make(map[rune]int)
	total := 0
	for _, char := range text {
		counts[char]++
		total++
	}
	var entropy float64
	for _, count := range counts {
		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}
