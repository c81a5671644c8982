package redact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"alice@x.com": "al***@x.com",
		"ab@x.com":    "***@x.com",
		"a@x.com":     "***@x.com",
		"no-at-sign":  "***",
		"a@b@c":       "***",
		"trailing@":   "***",
	}

	for in, want := range cases {
		require.Equal(t, want, Email(in), in)
	}
}

func TestToken(t *testing.T) {
	t.Parallel()

	require.Equal(t, "[REDACTED_TOKEN]", Token("short"))
	require.Equal(t, "[REDACTED_TOKEN…wxyz]", Token("abcdefghijklmnopqrstuvwxyz"))
}
