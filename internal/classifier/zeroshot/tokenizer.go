package zeroshot

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxSeqLen = 256

// batch holds tokenized sequence pairs as flat [size * seqLen] slices.
type batch struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	size          int64
	seqLen        int64
}

// tokenizer is an uncased BERT WordPiece tokenizer.
type tokenizer struct {
	vocab *vocab
}

func newTokenizer(vocabPath string) (*tokenizer, error) {
	v, err := loadVocab(vocabPath)
	if err != nil {
		return nil, err
	}
	return &tokenizer{vocab: v}, nil
}

// tokens runs basic tokenization followed by WordPiece.
func (t *tokenizer) tokens(text string) []string {
	var out []string
	for _, word := range basicTokenize(text) {
		out = append(out, t.wordpiece(word)...)
	}
	return out
}

// encodePair builds "[CLS] a [SEP] b [SEP]" with segment IDs 0 for the first
// part and 1 for the second. When the pair is too long the longer side is
// trimmed one token at a time.
func (t *tokenizer) encodePair(a, b []string) (ids, types []int64) {
	for len(a)+len(b)+3 > maxSeqLen {
		if len(a) >= len(b) {
			a = a[:len(a)-1]
		} else {
			b = b[:len(b)-1]
		}
	}
	ids = make([]int64, 0, len(a)+len(b)+3)
	types = make([]int64, 0, cap(ids))

	ids = append(ids, t.vocab.cls)
	for _, tok := range a {
		ids = append(ids, t.vocab.lookup(tok))
	}
	ids = append(ids, t.vocab.sep)
	for range len(a) + 2 {
		types = append(types, 0)
	}
	for _, tok := range b {
		ids = append(ids, t.vocab.lookup(tok))
	}
	ids = append(ids, t.vocab.sep)
	for range len(b) + 1 {
		types = append(types, 1)
	}
	return ids, types
}

// pairBatch encodes premise against every hypothesis, padded to the longest
// pair.
func (t *tokenizer) pairBatch(premise string, hypotheses []string) batch {
	p := t.tokens(premise)
	ids := make([][]int64, len(hypotheses))
	types := make([][]int64, len(hypotheses))
	var seqLen int
	for i, h := range hypotheses {
		ids[i], types[i] = t.encodePair(p, t.tokens(h))
		seqLen = max(seqLen, len(ids[i]))
	}

	b := batch{
		size:          int64(len(hypotheses)),
		seqLen:        int64(seqLen),
		inputIDs:      make([]int64, len(hypotheses)*seqLen),
		attentionMask: make([]int64, len(hypotheses)*seqLen),
		tokenTypeIDs:  make([]int64, len(hypotheses)*seqLen),
	}
	for i := range hypotheses {
		off := i * seqLen
		copy(b.inputIDs[off:], ids[i])
		copy(b.tokenTypeIDs[off:], types[i])
		for j := range ids[i] {
			b.attentionMask[off+j] = 1
		}
		for j := len(ids[i]); j < seqLen; j++ {
			b.inputIDs[off+j] = t.vocab.pad
		}
	}
	return b
}

// wordpiece splits one basic token into the longest matching subwords.
func (t *tokenizer) wordpiece(token string) []string {
	runes := []rune(token)
	if len(runes) > 200 {
		return []string{"[UNK]"}
	}
	var subs []string
	for start := 0; start < len(runes); {
		end := len(runes)
		var match string
		for ; end > start; end-- {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if t.vocab.contains(sub) {
				match = sub
				break
			}
		}
		if match == "" {
			return []string{"[UNK]"}
		}
		subs = append(subs, match)
		start = end
	}
	return subs
}

// basicTokenize cleans, lowercases and strips accents, then splits on
// whitespace and punctuation. CJK ideographs become single tokens.
func basicTokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == 0 || r == 0xFFFD || isControl(r):
		case isWhitespace(r):
			b.WriteByte(' ')
		case isCJK(r):
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	text = stripAccents(strings.ToLower(b.String()))

	var out []string
	for _, word := range strings.Fields(text) {
		start := 0
		for i, r := range word {
			if !isPunctuation(r) {
				continue
			}
			if i > start {
				out = append(out, word[start:i])
			}
			out = append(out, string(r))
			start = i + len(string(r))
		}
		if start < len(word) {
			out = append(out, word[start:])
		}
	}
	return out
}

func stripAccents(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range norm.NFD.String(text) {
		if !unicode.In(r, unicode.Mn) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

// isPunctuation treats all non-alphanumeric ASCII as punctuation, as BERT does.
func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
