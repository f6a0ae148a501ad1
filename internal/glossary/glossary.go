// Package glossary restores technical terminology in transcribed text.
//
// Speech-to-text models routinely mangle domain vocabulary ("crisper" for
// "CRISPR", "q bit" for "qubit"). The glossary holds the canonical spellings
// and repairs near-miss transcriptions before the text reaches translation
// and display, using Double Metaphone phonetic encoding combined with
// Jaro-Winkler string similarity for ranked candidate selection.
//
// The correction proceeds in two stages per word (and per bigram, so that
// multi-word terms like "monte carlo" are repaired as a unit):
//
//  1. Phonetic candidate filtering: Double Metaphone codes are computed for
//     the input tokens and for each glossary term. Code overlap makes the
//     term a phonetic candidate.
//
//  2. Jaro-Winkler ranking: among phonetic candidates, the term with the
//     highest similarity (case-insensitive) wins, provided its score exceeds
//     the phonetic threshold. When no phonetic candidate exists, a pure
//     Jaro-Winkler pass applies with a stricter fuzzy threshold.
package glossary

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.88
)

// Option is a functional option for configuring a [Glossary].
type Option func(*Glossary)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched term to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(g *Glossary) {
		g.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found. Default: 0.88.
func WithFuzzyThreshold(threshold float64) Option {
	return func(g *Glossary) {
		g.fuzzyThreshold = threshold
	}
}

// Glossary repairs near-miss transcriptions of known technical terms.
// All methods are safe for concurrent use; the Glossary is read-only after
// construction.
type Glossary struct {
	terms             []term
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// term is a canonical glossary entry with its precomputed phonetic codes.
type term struct {
	canonical string
	lower     string
	tokens    []string
	codes     map[string]struct{}
}

// New returns a [Glossary] over the given canonical terms. Blank terms are
// skipped. A glossary with no terms is valid and leaves all text unchanged.
func New(terms []string, opts ...Option) *Glossary {
	g := &Glossary{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(g)
	}
	for _, raw := range terms {
		canonical := strings.TrimSpace(raw)
		if canonical == "" {
			continue
		}
		lower := strings.ToLower(canonical)
		tokens := strings.Fields(lower)
		g.terms = append(g.terms, term{
			canonical: canonical,
			lower:     lower,
			tokens:    tokens,
			codes:     codesForTokens(tokens),
		})
	}
	return g
}

// Terms returns the canonical spellings held by the glossary, in insertion
// order.
func (g *Glossary) Terms() []string {
	out := make([]string, len(g.terms))
	for i, t := range g.terms {
		out[i] = t.canonical
	}
	return out
}

// Apply repairs near-miss occurrences of glossary terms in text and returns
// the corrected string. Words that already match a term exactly
// (case-insensitively) are rewritten to the canonical spelling. Bigrams are
// tried before single words so multi-word terms win over their fragments.
func (g *Glossary) Apply(text string) string {
	if len(g.terms) == 0 || strings.TrimSpace(text) == "" {
		return text
	}

	words := strings.Fields(text)
	out := make([]string, 0, len(words))

	for i := 0; i < len(words); i++ {
		// Bigram pass: only worthwhile when a multi-word term exists.
		if i+1 < len(words) && g.hasMultiWordTerm() {
			pair := words[i] + " " + words[i+1]
			if corrected, ok := g.match(pair, true); ok {
				out = append(out, corrected)
				i++
				continue
			}
		}
		if corrected, ok := g.match(words[i], false); ok {
			out = append(out, corrected)
			continue
		}
		out = append(out, words[i])
	}

	return strings.Join(out, " ")
}

func (g *Glossary) hasMultiWordTerm() bool {
	for _, t := range g.terms {
		if len(t.tokens) > 1 {
			return true
		}
	}
	return false
}

// match finds the glossary term most similar to word, preserving any
// trailing punctuation from the input. multiOnly restricts matching to
// multi-word terms (used by the bigram pass so "monte" alone cannot consume
// "monte carlo").
func (g *Glossary) match(word string, multiOnly bool) (string, bool) {
	core, trailing := splitTrailingPunct(word)
	if core == "" {
		return word, false
	}
	lower := strings.ToLower(core)
	tokens := strings.Fields(lower)
	inputCodes := codesForTokens(tokens)

	var (
		best         string
		bestScore    float64
		bestPhonetic bool
	)

	for _, t := range g.terms {
		if multiOnly && len(t.tokens) < 2 {
			continue
		}
		if !multiOnly && len(t.tokens) > 1 {
			continue
		}
		if lower == t.lower {
			return t.canonical + trailing, true
		}

		phonetic := codesOverlap(inputCodes, t.codes)
		score := bestJWScore(tokens, t.tokens, lower, t.lower)

		if phonetic {
			if score >= g.phoneticThreshold && (!bestPhonetic || score > bestScore) {
				best, bestScore, bestPhonetic = t.canonical, score, true
			}
		} else if !bestPhonetic {
			if score >= g.fuzzyThreshold && score > bestScore {
				best, bestScore = t.canonical, score
			}
		}
	}

	if best != "" {
		return best + trailing, true
	}
	return word, false
}

// splitTrailingPunct separates sentence punctuation from the end of a word so
// that "crisper." can match "CRISPR" and keep its period.
func splitTrailingPunct(word string) (core, trailing string) {
	end := len(word)
	for end > 0 && strings.ContainsRune(".,;:!?)\"'", rune(word[end-1])) {
		end--
	}
	return word[:end], word[end:]
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between the input
// and the term: full strings, space-stripped strings, and the best pairwise
// token score.
func bestJWScore(inputTokens, termTokens []string, inputFull, termFull string) float64 {
	score := matchr.JaroWinkler(inputFull, termFull, false)

	if len(inputTokens) > 1 || len(termTokens) > 1 {
		concat1 := strings.Join(inputTokens, "")
		concat2 := strings.Join(termTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	for _, it := range inputTokens {
		for _, tt := range termTokens {
			if s := matchr.JaroWinkler(it, tt, false); s > score {
				score = s
			}
		}
	}
	return score
}
