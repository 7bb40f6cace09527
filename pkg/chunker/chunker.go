// Package chunker splits extracted document text into bounded-size chunks
// and derives a small keyword set per chunk for retrieval boosting.
package chunker

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Options struct {
	ChunkSize int // target chunk size in characters (runes)
}

func DefaultOptions() Options {
	return Options{ChunkSize: 800}
}

var (
	blankLines = regexp.MustCompile(`\n{3,}`)
	spaceRuns  = regexp.MustCompile(`[ \t]+`)
)

// Normalize collapses runs of blank lines to a single blank line, runs of
// spaces and tabs to a single space, and trims the result.
func Normalize(text string) string {
	text = blankLines.ReplaceAllString(text, "\n\n")
	text = spaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Split normalizes text and splits it into chunks of at most ChunkSize
// characters. Paragraphs are accumulated greedily; a single paragraph longer
// than ChunkSize is split at word boundaries, never inside a word. Empty or
// whitespace-only input yields no chunks.
func Split(text string, opts Options) []string {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultOptions().ChunkSize
	}

	text = Normalize(text)
	if text == "" {
		return nil
	}

	var chunks []string
	var current string

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if runeLen(current)+runeLen(para)+2 <= opts.ChunkSize {
			current = strings.TrimSpace(current + "\n\n" + para)
			continue
		}

		if current != "" {
			chunks = append(chunks, current)
		}

		if runeLen(para) > opts.ChunkSize {
			current = ""
			for _, word := range strings.Fields(para) {
				if runeLen(current)+runeLen(word)+1 <= opts.ChunkSize {
					current = strings.TrimSpace(current + " " + word)
				} else {
					if current != "" {
						chunks = append(chunks, current)
					}
					current = word
				}
			}
		} else {
			current = para
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}

	return chunks
}

// wordRe matches runs of word characters; CJK ideographs count as word
// characters, so adjacent ideographs form a single token.
var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize lowercases text and extracts word tokens for lexical scoring.
// Tokens shorter than two characters are dropped unless the token is a
// single CJK ideograph.
func Tokenize(text string) []string {
	raw := wordRe.FindAllString(strings.ToLower(text), -1)

	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if runeLen(t) >= 2 || isHan(t) {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// ExtractKeywords returns up to max keywords for a chunk, ranked by
// frequency. Stop words, single-character tokens, and purely numeric tokens
// are discarded.
func ExtractKeywords(text string, max int) []string {
	if max <= 0 {
		max = 10
	}

	counts := make(map[string]int)
	var order []string
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if runeLen(w) < 2 || stopWords[w] || isNumeric(w) {
			continue
		}
		if _, seen := counts[w]; !seen {
			order = append(order, w)
		}
		counts[w]++
	}

	// Frequency descending, first occurrence winning ties.
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > max {
		order = order[:max]
	}
	return order
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func isHan(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	return size == len(s) && unicode.Is(unicode.Han, r)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

var stopWords = buildStopWords()

func buildStopWords() map[string]bool {
	words := []string{
		"the", "a", "an", "is", "are", "was", "were", "be", "been", "being",
		"have", "has", "had", "do", "does", "did", "will", "would", "could",
		"should", "may", "might", "shall", "can", "to", "of", "in", "for",
		"on", "with", "at", "by", "from", "as", "into", "through", "during",
		"before", "after", "above", "below", "between", "under", "again",
		"further", "then", "once", "here", "there", "when", "where", "why",
		"how", "all", "both", "each", "few", "more", "most", "other", "some",
		"such", "no", "not", "only", "own", "same", "so", "than", "too",
		"very", "just", "don", "now", "and", "but", "or", "if", "it", "its",
		"this", "that", "these", "those", "i", "me", "my", "we", "our", "you",
		"your", "he", "him", "his", "she", "her", "they", "them", "their",
		"what", "which", "who", "whom",
		"的", "了", "在", "是", "我", "有", "和", "就", "不", "人", "都",
		"一", "一个", "上", "也", "很", "到", "说", "要", "去", "你",
		"会", "着", "没有", "看", "好", "自己", "这",
	}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
