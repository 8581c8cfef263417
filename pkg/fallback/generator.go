// Package fallback provides the generative text backends used when a prefix has no match in the trie.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownProvider is returned by New for an unsupported provider name.
var ErrUnknownProvider = errors.New("fallback: unknown provider")

// Generator continues a prefix into a plausible sentence. The returned text
// starts with prefix. It may be called repeatedly for the same prefix.
type Generator interface {
	Generate(ctx context.Context, prefix string) (string, error)
}

// Func adapts a plain function to Generator.
type Func func(ctx context.Context, prefix string) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, prefix string) (string, error) {
	return f(ctx, prefix)
}

// Options configures a Generator built by New.
type Options struct {
	Provider string
	Model    string
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	MaxChars int
}

// New builds the generator named by opts.Provider.
// The "none" or empty provider returns a nil Generator and no error.
func New(opts Options) (Generator, error) {
	var (
		gen Generator
		err error
	)
	switch strings.ToLower(opts.Provider) {
	case "", "none":
		return nil, nil
	case "ollama":
		gen, err = NewOllama(opts.Endpoint, opts.Model)
	case "genai", "gemini":
		gen, err = NewGenAI(context.Background(), opts.APIKey, opts.Model)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	return Bounded(gen, opts.Timeout, opts.MaxChars), nil
}

// Bounded wraps g so that each call runs under timeout (if > 0) and the generated
// part of its output is trimmed to one sentence of at most maxChars runes (if > 0).
func Bounded(g Generator, timeout time.Duration, maxChars int) Generator {
	return &bounded{next: g, timeout: timeout, maxChars: maxChars}
}

type bounded struct {
	next     Generator
	timeout  time.Duration
	maxChars int
}

func (b *bounded) Generate(ctx context.Context, prefix string) (string, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	out, err := b.next.Generate(ctx, prefix)
	if err != nil {
		return "", err
	}
	rest := strings.TrimPrefix(out, prefix)
	return prefix + FirstSentence(rest, b.maxChars), nil
}

// FirstSentence cuts text at the first sentence end. A '.', '!' or '?' is kept;
// a newline is dropped. When maxChars > 0 the result is at most maxChars runes.
func FirstSentence(text string, maxChars int) string {
	var sb strings.Builder
	n := 0
	for _, r := range text {
		if r == '\n' || r == '\r' {
			break
		}
		if maxChars > 0 && n >= maxChars {
			break
		}
		sb.WriteRune(r)
		n++
		if r == '.' || r == '!' || r == '?' {
			break
		}
	}
	return strings.TrimRight(sb.String(), " \t")
}

// Continue joins a prefix and a generated continuation, unless the model
// already echoed the prefix back.
func Continue(prefix, generated string) string {
	if strings.HasPrefix(generated, prefix) {
		return generated
	}
	return prefix + generated
}
