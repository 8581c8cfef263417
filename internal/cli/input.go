// Package cli is the interactive completion loop used for debugging and demos.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/sentserve/internal/utils"
	"github.com/bastiangx/sentserve/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

var (
	completionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	sourceStyle     = lipgloss.NewStyle().Faint(true)
)

// InputHandler reads prefixes line by line and prints their completions.
type InputHandler struct {
	completer       suggest.ICompleter
	in              io.Reader
	out             io.Writer
	minPrefixLength int
	maxPrefixLength int
	suggestLimit    int
	interactive     bool
	width           int
}

// NewInputHandler creates a handler reading stdin and writing stdout. The
// prompt is shown only when stdin is a terminal.
func NewInputHandler(completer suggest.ICompleter, minLength, maxLength, limit int) *InputHandler {
	h := NewInputHandlerWithIO(completer, os.Stdin, os.Stdout, minLength, maxLength, limit)
	h.interactive = term.IsTerminal(int(os.Stdin.Fd()))
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		h.width = w
	}
	return h
}

// NewInputHandlerWithIO creates a non-interactive handler over arbitrary streams.
func NewInputHandlerWithIO(completer suggest.ICompleter, in io.Reader, out io.Writer, minLength, maxLength, limit int) *InputHandler {
	return &InputHandler{
		completer:       completer,
		in:              in,
		out:             out,
		minPrefixLength: minLength,
		maxPrefixLength: maxLength,
		suggestLimit:    limit,
	}
}

// Start runs the loop until the input ends or ctx is cancelled. Lines starting
// with ':' are commands: ":stats" and ":quit".
func (h *InputHandler) Start(ctx context.Context) error {
	if h.interactive {
		fmt.Fprintln(h.out, "SentServe REPL")
		fmt.Fprintln(h.out, "type the start of a sentence and press Enter (Ctrl+D to exit)")
	}
	scanner := bufio.NewScanner(h.in)
	for {
		if h.interactive {
			fmt.Fprint(h.out, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimRight(scanner.Text(), "\r\n")
		switch strings.TrimSpace(line) {
		case "":
			continue
		case ":quit", ":q":
			return nil
		case ":stats":
			h.printStats()
			continue
		}
		h.handleInput(ctx, line)
	}
}

// handleInput validates one prefix and prints its completions.
func (h *InputHandler) handleInput(ctx context.Context, prefix string) {
	n := utf8.RuneCountInString(prefix)
	if n < h.minPrefixLength {
		fmt.Fprintf(h.out, "prefix too short (min %d characters)\n", h.minPrefixLength)
		return
	}
	if h.maxPrefixLength > 0 && n > h.maxPrefixLength {
		fmt.Fprintf(h.out, "prefix too long (max %d characters)\n", h.maxPrefixLength)
		return
	}

	start := time.Now()
	res, err := h.completer.Complete(ctx, prefix, h.suggestLimit)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Fprintf(h.out, "error: %v\n", err)
		return
	}
	log.Debugf("Took [ %v ] for prefix '%s'", elapsed, prefix)

	if len(res.Completions) == 0 {
		fmt.Fprintf(h.out, "no completions for '%s'\n", prefix)
		return
	}

	fmt.Fprintf(h.out, "%d completions for '%s' %s\n", len(res.Completions), prefix,
		sourceStyle.Render(fmt.Sprintf("(%s, %v)", res.Source, elapsed.Round(time.Microsecond))))
	for i, c := range res.Completions {
		fmt.Fprintf(h.out, "%2d. %s\n", i+1, completionStyle.Render(h.fit(c)))
	}
}

// fit shortens s to the terminal width, leaving room for the list number.
func (h *InputHandler) fit(s string) string {
	room := h.width - 5
	if h.width == 0 || room < 8 || utf8.RuneCountInString(s) <= room {
		return s
	}
	r := []rune(s)
	return string(r[:room-1]) + "…"
}

func (h *InputHandler) printStats() {
	stats := h.completer.Stats()
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h.out, "%-16s %12s\n", k, utils.FormatWithCommas(stats[k]))
	}
}
