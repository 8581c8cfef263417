/*
Package corpus supplies the sentences a trie is built from.

Sources read dialogue logs, plain text files or SQL tables. Dialogue logs use the
support-transcript layout:

	{"Issues": [{"Messages": [{"Text": "Hi. What is your order number?"}]}]}

Each message text is kept whole. When a segmenter is set and the text holds more
than one sentence, every sentence is added as well, so both the full message and
its parts can be completed.

LoadAll reads several sources in parallel and keeps their order.
*/
package corpus

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// ErrUnsupportedFormat is returned by FileSource for files that hold no sentences.
var ErrUnsupportedFormat = errors.New("corpus: unsupported file format")

// Source yields an ordered sequence of sentences.
type Source interface {
	Sentences(ctx context.Context) ([]string, error)
}

// dialogueLog is the on-disk layout of a transcript file.
type dialogueLog struct {
	Issues []struct {
		Messages []struct {
			Text string `json:"Text"`
		} `json:"Messages"`
	} `json:"Issues"`
}

// DialogueSource reads a JSON dialogue log.
type DialogueSource struct {
	Path      string
	Segmenter Segmenter
}

// Sentences returns every message text, followed by its sentences when it has more than one.
func (d *DialogueSource) Sentences(ctx context.Context) ([]string, error) {
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dialogue log %s: %w", d.Path, err)
	}
	defer f.Close()

	var data dialogueLog
	if err := json.NewDecoder(bufio.NewReader(f)).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode dialogue log %s: %w", d.Path, err)
	}

	var out []string
	for _, issue := range data.Issues {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, msg := range issue.Messages {
			text := strings.TrimSpace(msg.Text)
			if text == "" {
				continue
			}
			out = append(out, text)
			if d.Segmenter == nil {
				continue
			}
			if parts := d.Segmenter.Split(text); len(parts) > 1 {
				out = append(out, parts...)
			}
		}
	}
	log.Debugf("Read %d sentences from dialogue log %s", len(out), d.Path)
	return out, nil
}

// TextSource reads one sentence per non-blank line.
type TextSource struct {
	Path string
}

// Sentences returns the trimmed non-blank lines of the file.
func (t *TextSource) Sentences(ctx context.Context) ([]string, error) {
	f, err := os.Open(t.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open text corpus %s: %w", t.Path, err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			out = append(out, line)
		}
		if len(out)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read text corpus %s: %w", t.Path, err)
	}
	log.Debugf("Read %d sentences from %s", len(out), t.Path)
	return out, nil
}

// SQLSource runs Query and reads the first column of every row.
type SQLSource struct {
	DB    *sql.DB
	Query string
	Args  []any
}

// Sentences returns the non-empty text values selected by Query.
func (s *SQLSource) Sentences(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, s.Query, s.Args...)
	if err != nil {
		return nil, fmt.Errorf("corpus query failed: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var text sql.NullString
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("failed to scan corpus row: %w", err)
		}
		if v := strings.TrimSpace(text.String); text.Valid && v != "" {
			out = append(out, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("corpus rows failed: %w", err)
	}
	log.Debugf("Read %d sentences from SQL source", len(out))
	return out, nil
}

// Static is an in-memory source.
type Static []string

// Sentences returns a copy of the slice.
func (s Static) Sentences(context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}

// FileSource picks a source for path based on its format.
func FileSource(path string, seg Segmenter) (Source, error) {
	format, err := DetectFileFormat(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatDialogue:
		return &DialogueSource{Path: path, Segmenter: seg}, nil
	case FormatText:
		return &TextSource{Path: path}, nil
	default:
		return nil, fmt.Errorf("%w: %s is a %s", ErrUnsupportedFormat, path, format)
	}
}

// LoadAll reads all sources concurrently and concatenates their sentences in
// source order. Blank entries are dropped.
func LoadAll(ctx context.Context, sources ...Source) ([]string, error) {
	results := make([][]string, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, src := range sources {
		g.Go(func() error {
			sentences, err := src.Sentences(gctx)
			if err != nil {
				return err
			}
			results[i] = sentences
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	out := make([]string, 0, total)
	for _, r := range results {
		for _, s := range r {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out, nil
}
