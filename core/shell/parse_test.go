package shell

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

// describe renders a parsed line in a stable single-purpose format for
// golden comparisons.
func describe(l Line) string {
	var b strings.Builder
	for i, seg := range l.Segments {
		fmt.Fprintf(&b, "segment %d: argv=%q", i, seg.Argv)
		if seg.HasRedirect {
			fmt.Fprintf(&b, " redirect=%q", seg.RedirectPath)
		}
		b.WriteByte('\n')
		if i < len(l.Ops) {
			fmt.Fprintf(&b, "op %d: %s\n", i, Token{Kind: l.Ops[i].Kind, N: l.Ops[i].N})
		}
	}
	if len(l.Tail) > 0 {
		fmt.Fprintf(&b, "tail: %q\n", l.Tail)
	}
	return b.String()
}

func TestParseGolden(t *testing.T) {
	cases := map[string]string{
		"parse_pipeline_redirect": "ls -la | grep foo > out.txt",
		"parse_numbered_tail":     "echo hello |2 echo world",
		"parse_numbered_err":      "cat !1",
	}

	g := goldie.New(t)
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			g.Assert(t, name, []byte(describe(Parse(line))))
		})
	}
}

func TestParseSingleSegment(t *testing.T) {
	l := Parse("ls -la bin")
	assert.Len(t, l.Segments, 1)
	assert.Empty(t, l.Ops)
	assert.Empty(t, l.Tail)
	assert.Equal(t, []string{"ls", "-la", "bin"}, l.Segments[0].Argv)
}

func TestParsePipeline(t *testing.T) {
	l := Parse("cat f | grep x | wc -l")
	if assert.Len(t, l.Segments, 3) && assert.Len(t, l.Ops, 2) {
		assert.Equal(t, []string{"cat", "f"}, l.Segments[0].Argv)
		assert.Equal(t, []string{"grep", "x"}, l.Segments[1].Argv)
		assert.Equal(t, []string{"wc", "-l"}, l.Segments[2].Argv)
		assert.Equal(t, Pipe, l.Ops[0].Kind)
		assert.Equal(t, Pipe, l.Ops[1].Kind)
	}
}

func TestParseNumberedEndsLine(t *testing.T) {
	l := Parse("echo one |1 echo two | cat")
	// The numbered operator terminates the line; everything after it is
	// deferred verbatim.
	assert.Len(t, l.Segments, 1)
	if assert.Len(t, l.Ops, 1) {
		assert.Equal(t, NumberedPipe, l.Ops[0].Kind)
		assert.Equal(t, 1, l.Ops[0].N)
	}
	assert.Equal(t, []string{"echo", "two", "|", "cat"}, l.Tail)
}

func TestParseNumberedNoTail(t *testing.T) {
	l := Parse("ls notafile !1")
	assert.Len(t, l.Segments, 1)
	if assert.Len(t, l.Ops, 1) {
		assert.Equal(t, NumberedPipeErr, l.Ops[0].Kind)
	}
	assert.Empty(t, l.Tail)
}

func TestParseRedirect(t *testing.T) {
	l := Parse("echo hi > out.txt")
	if assert.Len(t, l.Segments, 1) {
		seg := l.Segments[0]
		assert.Equal(t, []string{"echo", "hi"}, seg.Argv)
		assert.True(t, seg.HasRedirect)
		assert.Equal(t, "out.txt", seg.RedirectPath)
	}
}

func TestParseRedirectSwallowsTrailingWords(t *testing.T) {
	l := Parse("echo hi > out.txt extra words | cat")
	if assert.Len(t, l.Segments, 2) {
		assert.Equal(t, []string{"echo", "hi"}, l.Segments[0].Argv)
		assert.Equal(t, "out.txt", l.Segments[0].RedirectPath)
		assert.Equal(t, []string{"cat"}, l.Segments[1].Argv)
	}
}

func TestParseRedirectMissingTarget(t *testing.T) {
	l := Parse("echo hi >")
	if assert.Len(t, l.Segments, 1) {
		assert.True(t, l.Segments[0].HasRedirect)
		assert.Equal(t, "", l.Segments[0].RedirectPath)
	}
}

func TestParseTrailingPipeLeavesEmptySegment(t *testing.T) {
	l := Parse("echo hi |")
	assert.Len(t, l.Segments, 2)
	assert.Empty(t, l.Segments[1].Argv)
}

func TestParseEmptyAndWhitespace(t *testing.T) {
	assert.True(t, Parse("").Empty())
	assert.True(t, Parse("   \t  ").Empty())
	assert.False(t, Parse(" ls  ").Empty())
}

func TestParseZeroOffsetIsWord(t *testing.T) {
	l := Parse("echo |0")
	if assert.Len(t, l.Segments, 1) {
		assert.Equal(t, []string{"echo", "|0"}, l.Segments[0].Argv)
	}
	assert.Empty(t, l.Ops)
}
