package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := map[string]struct {
		in   string
		kind TokenKind
		n    int
	}{
		"word":            {in: "ls", kind: Word},
		"flag":            {in: "-la", kind: Word},
		"pipe":            {in: "|", kind: Pipe},
		"redirect":        {in: ">", kind: RedirectOut},
		"numbered":        {in: "|1", kind: NumberedPipe, n: 1},
		"numbered multi":  {in: "|12", kind: NumberedPipe, n: 12},
		"numbered err":    {in: "!3", kind: NumberedPipeErr, n: 3},
		"zero is a word":  {in: "|0", kind: Word},
		"bang zero":       {in: "!0", kind: Word},
		"garbage suffix":  {in: "|abc", kind: Word},
		"mixed digits":    {in: "|1a", kind: Word},
		"bare bang":       {in: "!", kind: Word},
		"bang word":       {in: "!important", kind: Word},
		"plus not digits": {in: "|+3", kind: Word},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			tok := Classify(tc.in)
			assert.Equal(t, tc.kind, tok.Kind)
			if tok.IsNumbered() {
				assert.Equal(t, tc.n, tok.N)
			}
		})
	}
}

// Re-serializing a classified token is idempotent: once a token has been
// rendered, classifying and rendering it again changes nothing.
func TestTokenStringIdempotent(t *testing.T) {
	for _, in := range []string{"ls", "|", ">", "|1", "|42", "!7", "|0", "|abc", "!", "|01"} {
		once := Classify(in).String()
		twice := Classify(once).String()
		assert.Equal(t, once, twice, "token %q", in)
	}
}
