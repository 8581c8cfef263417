package corpus

import (
	"fmt"
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Segmenter splits free text into sentences.
type Segmenter interface {
	Split(text string) []string
}

// PunktSegmenter splits text with the English Punkt model.
type PunktSegmenter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
	mu        sync.Mutex
}

// NewPunktSegmenter loads the bundled English Punkt model.
func NewPunktSegmenter() (*PunktSegmenter, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load sentence tokenizer: %w", err)
	}
	return &PunktSegmenter{tokenizer: tokenizer}, nil
}

// Split returns the trimmed, non-empty sentences of text.
func (p *PunktSegmenter) Split(text string) []string {
	p.mu.Lock()
	tokens := p.tokenizer.Tokenize(text)
	p.mu.Unlock()

	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if s := strings.TrimSpace(tok.Text); s != "" {
			out = append(out, s)
		}
	}
	return out
}
