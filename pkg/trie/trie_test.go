package trie

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func build(t *testing.T, sentences ...string) *Trie {
	t.Helper()
	tr := New(0)
	for _, s := range sentences {
		if err := tr.Insert(s); err != nil {
			t.Fatalf("Insert(%q): %v", s, err)
		}
	}
	return tr
}

func randomString(rng *rand.Rand, n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}

// every inserted sentence locates to a terminal node
func TestRoundTrip(t *testing.T) {
	sentences := []string{
		"What is your account number?",
		"What is your address?",
		"What is your order number?",
		"a",
		"héllo wörld",
		"日本語の文",
	}
	tr := build(t, sentences...)

	for _, s := range sentences {
		t.Run(s, func(t *testing.T) {
			pos, err := tr.Locate(s)
			if err != nil {
				t.Fatalf("Locate: %v", err)
			}
			if !pos.Found {
				t.Fatalf("expected %q to be found", s)
			}
			v, ok := tr.Node(pos.Node)
			if !ok || !v.Terminal {
				t.Errorf("expected node for %q to be terminal, got %+v", s, v)
			}
			if !tr.Contains(s) {
				t.Errorf("Contains(%q) = false", s)
			}
		})
	}
}

// shared random prefix with two endings, as in the original corpus tests
func TestRandomCommonPrefix(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	common := randomString(rng, 16)
	end1 := randomString(rng, 16)
	end2 := randomString(rng, 16)
	notInserted := common + randomString(rng, 16)

	tr := build(t, common+end1, common+end2)

	for _, s := range []string{common + end1, common + end2} {
		if pos, _ := tr.Locate(s); !pos.Found {
			t.Errorf("expected %q to be found", s)
		}
	}
	if pos, _ := tr.Locate(notInserted); pos.Found {
		t.Errorf("expected %q to be missing", notInserted)
	}

	pos, _ := tr.Locate(common)
	got := tr.Enumerate(pos, "")
	want := []string{end1, end2}
	sort.Strings(got)
	sort.Strings(want)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Enumerate mismatch (-want +got):\n%s", diff)
	}
}

func TestNegativeLookup(t *testing.T) {
	tr := build(t, "catalog", "catfish", "dog")

	for _, prefix := range []string{"x", "cow", "catz", "dogs", "catalogue", "Cat"} {
		t.Run(prefix, func(t *testing.T) {
			pos, err := tr.Locate(prefix)
			if err != nil {
				t.Fatalf("Locate: %v", err)
			}
			if pos != Missing {
				t.Errorf("Locate(%q) = %+v, want Missing", prefix, pos)
			}
		})
	}
}

func TestPrefixWithoutTerminal(t *testing.T) {
	tr := build(t, "cats")

	pos, err := tr.Locate("cat")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if !pos.Found {
		t.Fatal("expected cat to be found as a prefix of cats")
	}
	if v, _ := tr.Node(pos.Node); v.Terminal {
		t.Error("expected cat node to be non-terminal")
	}
	if tr.Contains("cat") {
		t.Error("Contains(cat) should be false")
	}
}

func TestCompletionCompleteness(t *testing.T) {
	tr := build(t, "catalog", "catfish", "dog", "ca")

	pos, _ := tr.Locate("cat")
	got := tr.Enumerate(pos, "cat")
	sort.Strings(got)
	if diff := cmp.Diff([]string{"catalog", "catfish"}, got); diff != "" {
		t.Errorf("Enumerate mismatch (-want +got):\n%s", diff)
	}
}

func TestIdempotentInsert(t *testing.T) {
	once := build(t, "hello")
	twice := build(t, "hello", "hello")

	if diff := cmp.Diff(once.Snapshot(), twice.Snapshot()); diff != "" {
		t.Errorf("double insert changed the tree (-once +twice):\n%s", diff)
	}
	st := twice.Stats()
	if st.Nodes != 6 || st.Sentences != 1 || st.MaxDepth != 5 {
		t.Errorf("unexpected stats %+v", st)
	}

	terminals := 0
	twice.Walk(func(v NodeView, depth int) bool {
		if v.Children > 1 {
			t.Errorf("node %d has %d children, want <= 1", v.ID, v.Children)
		}
		if v.Terminal {
			terminals++
			if depth != 5 {
				t.Errorf("terminal at depth %d, want 5", depth)
			}
		}
		return true
	})
	if terminals != 1 {
		t.Errorf("expected 1 terminal node, got %d", terminals)
	}
}

func TestTerminalAndInternal(t *testing.T) {
	tr := build(t, "cat", "cats")

	pos, _ := tr.Locate("cat")
	got := tr.Enumerate(pos, "cat")
	if diff := cmp.Diff([]string{"cat", "cats"}, got); diff != "" {
		t.Errorf("Enumerate mismatch (-want +got):\n%s", diff)
	}
}

// all four insertion branches: match+terminate, match+continue,
// no-match+terminate, no-match+continue
func TestInsertBranches(t *testing.T) {
	tr := build(t, "abc")

	// match + continue, then no-match + terminate
	if err := tr.Insert("abd"); err != nil {
		t.Fatal(err)
	}
	// match + terminate on an existing interior node
	if err := tr.Insert("ab"); err != nil {
		t.Fatal(err)
	}
	// no-match + continue from the root
	if err := tr.Insert("xyz"); err != nil {
		t.Fatal(err)
	}

	for _, s := range []string{"abc", "abd", "ab", "xyz"} {
		if !tr.Contains(s) {
			t.Errorf("expected %q to be stored", s)
		}
	}
	for _, s := range []string{"a", "x", "xy"} {
		if tr.Contains(s) {
			t.Errorf("did not expect %q to be stored", s)
		}
	}
	if got := tr.Len(); got != 4 {
		t.Errorf("Len() = %d, want 4", got)
	}
	// a, b, c, d, x, y, z plus root
	if got := tr.Stats().Nodes; got != 8 {
		t.Errorf("Nodes = %d, want 8", got)
	}
}

func TestEnumerationOrder(t *testing.T) {
	tr := build(t, "hello there", "help me", "hello", "hey", "help")

	pos, _ := tr.Locate("he")
	got := tr.Enumerate(pos, "he")
	want := []string{"hello", "hello there", "help", "help me", "hey"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Enumerate mismatch (-want +got):\n%s", diff)
	}
}

func TestEnumerateN(t *testing.T) {
	tr := build(t, "a1", "a2", "a3", "a4", "a5")
	pos, _ := tr.Locate("a")

	testCases := []struct {
		limit int
		want  []string
	}{
		{0, []string{"a1", "a2", "a3", "a4", "a5"}},
		{-1, []string{"a1", "a2", "a3", "a4", "a5"}},
		{1, []string{"a1"}},
		{3, []string{"a1", "a2", "a3"}},
		{10, []string{"a1", "a2", "a3", "a4", "a5"}},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("limit_%d", tc.limit), func(t *testing.T) {
			got := tr.EnumerateN(pos, "a", tc.limit)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("EnumerateN mismatch (-want +got):\n%s", diff)
			}
		})
	}

	// the start node counts toward the limit
	tr2 := build(t, "go", "gone", "good")
	pos2, _ := tr2.Locate("go")
	if diff := cmp.Diff([]string{"go"}, tr2.EnumerateN(pos2, "go", 1)); diff != "" {
		t.Errorf("EnumerateN mismatch (-want +got):\n%s", diff)
	}
}

func TestEnumerateMissing(t *testing.T) {
	tr := build(t, "abc")
	got := tr.Enumerate(Missing, "zzz")
	if got == nil || len(got) != 0 {
		t.Errorf("Enumerate(Missing) = %#v, want empty non-nil slice", got)
	}
	if got := tr.Enumerate(Position{Found: true, Node: 999}, "x"); len(got) != 0 {
		t.Errorf("out of range position should enumerate nothing, got %v", got)
	}
}

func TestEmptyInput(t *testing.T) {
	tr := New(0)
	if err := tr.Insert(""); !errors.Is(err, ErrEmptySequence) {
		t.Errorf("Insert(\"\") err = %v, want ErrEmptySequence", err)
	}
	pos, err := tr.Locate("")
	if !errors.Is(err, ErrEmptySequence) {
		t.Errorf("Locate(\"\") err = %v, want ErrEmptySequence", err)
	}
	if pos.Found {
		t.Error("Locate(\"\") should not be found")
	}
	if tr.Stats().Nodes != 1 {
		t.Error("rejected insert must not create nodes")
	}
}

func TestInvalidEncoding(t *testing.T) {
	tr := build(t, "ab\uFFFD")
	if err := tr.Insert("ab\xff"); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("Insert(invalid) err = %v, want ErrInvalidEncoding", err)
	}
	pos, err := tr.Locate("ab\xfe")
	if !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("Locate(invalid) err = %v, want ErrInvalidEncoding", err)
	}
	if pos.Found {
		t.Error("invalid prefix must not share the replacement character path")
	}
	if tr.Contains("ab\xff") {
		t.Error("Contains(invalid) = true")
	}
	// a literal U+FFFD is ordinary text
	if !tr.Contains("ab\uFFFD") {
		t.Error("Contains(U+FFFD) = false")
	}
	if tr.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tr.Len())
	}
}

func TestMaxLen(t *testing.T) {
	tr := New(5)
	if err := tr.Insert("hello"); err != nil {
		t.Fatalf("Insert at limit: %v", err)
	}
	// rune count, not bytes
	if err := tr.Insert("héllo"); err != nil {
		t.Fatalf("Insert multibyte at limit: %v", err)
	}
	if err := tr.Insert("hello!"); !errors.Is(err, ErrSequenceTooLong) {
		t.Errorf("err = %v, want ErrSequenceTooLong", err)
	}
	if tr.Contains("hello!") {
		t.Error("over-long sentence must not be stored")
	}
}

// deep trees must not depend on recursion
func TestDeepSentence(t *testing.T) {
	long := strings.Repeat("ab", 50000)
	tr := build(t, long, long[:1000])

	pos, _ := tr.Locate(long[:10])
	got := tr.Enumerate(pos, long[:10])
	if len(got) != 2 || got[0] != long[:1000] || got[1] != long {
		t.Fatalf("unexpected deep enumeration: %d results", len(got))
	}
	if d := tr.Stats().MaxDepth; d != len(long) {
		t.Errorf("MaxDepth = %d, want %d", d, len(long))
	}
}

func TestConcurrentReads(t *testing.T) {
	tr := build(t, "the cat sat", "the cat ran", "the dog sat", "then what")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				pos, _ := tr.Locate("the")
				if got := tr.Enumerate(pos, "the"); len(got) != 4 {
					t.Errorf("got %d completions, want 4", len(got))
					return
				}
			}
		}()
	}
	wg.Wait()
}

func BenchmarkEnumerate(b *testing.B) {
	tr := New(0)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		_ = tr.Insert("What is " + randomString(rng, 24))
	}
	pos, _ := tr.Locate("What is")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr.EnumerateN(pos, "What is", 3)
	}
}
