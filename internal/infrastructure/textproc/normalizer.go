// Package textproc implements the language-aware preprocessing stage: a
// deterministic function from extracted text to a whitespace-joined token
// sequence ready for vectorization.
package textproc

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-ego/gse"
)

type Normalizer struct {
	seg     gse.Segmenter
	english *stoplist
	chinese *stoplist
}

// New loads the embedded segmenter dictionary once; the normalizer is
// read-only afterwards and safe for concurrent use.
func New() (*Normalizer, error) {
	n := &Normalizer{
		english: newStoplist(englishStopwords),
		chinese: newStoplist(chineseStopwords),
	}
	if err := n.seg.LoadDict(); err != nil {
		return nil, fmt.Errorf("load segmenter dictionary: %w", err)
	}
	return n, nil
}

// Normalize tokenizes text and strips stopwords and punctuation. Language
// is inferred from the presence of Han code points; everything else goes
// through the lowercase word path. Empty input yields empty output.
func (n *Normalizer) Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if containsHan(text) {
		return strings.Join(n.cjkTokens(text), " ")
	}
	return strings.Join(n.latinTokens(text), " ")
}

func (n *Normalizer) cjkTokens(text string) []string {
	segments := n.seg.Cut(text, true)
	kept := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.TrimSpace(s)
		if s == "" || isPunctOnly(s) || n.chinese.IsStop(s) {
			continue
		}
		kept = append(kept, strings.ToLower(s))
	}
	return kept
}

func (n *Normalizer) latinTokens(text string) []string {
	words := tokenizeAlphaNum(text)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if n.english.IsStop(w) {
			continue
		}
		kept = append(kept, w)
	}
	return kept
}

func containsHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

func isPunctOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func tokenizeAlphaNum(s string) []string {
	out := make([]string, 0, 32)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
