package zeroshot

import (
	"bufio"
	"fmt"
	"os"
)

// vocab is a WordPiece vocabulary; a token's ID is its 0-based line number
// in vocab.txt.
type vocab struct {
	ids map[string]int64

	pad, unk, cls, sep int64
}

func loadVocab(path string) (*vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()

	v := &vocab{ids: make(map[string]int64, 32000)}
	scanner := bufio.NewScanner(f)
	var n int64
	for scanner.Scan() {
		v.ids[scanner.Text()] = n
		n++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read error: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("vocab: file is empty: %s", path)
	}

	for _, s := range []struct {
		token string
		dest  *int64
	}{
		{"[PAD]", &v.pad},
		{"[UNK]", &v.unk},
		{"[CLS]", &v.cls},
		{"[SEP]", &v.sep},
	} {
		id, ok := v.ids[s.token]
		if !ok {
			return nil, fmt.Errorf("vocab: missing special token %s", s.token)
		}
		*s.dest = id
	}
	return v, nil
}

func (v *vocab) lookup(token string) int64 {
	if id, ok := v.ids[token]; ok {
		return id
	}
	return v.unk
}

func (v *vocab) contains(token string) bool {
	_, ok := v.ids[token]
	return ok
}

func (v *vocab) size() int {
	return len(v.ids)
}
