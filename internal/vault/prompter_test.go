package vault

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScriptedPrompter(input string) (*TerminalPrompter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &TerminalPrompter{
		in:  bufio.NewReader(strings.NewReader(input)),
		out: out,
		fd:  -1, // never a terminal
	}, out
}

func TestTerminalPrompter_Prompt(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantShop  string
		wantToken string
	}{
		{"empty shop keeps suggestion", "\nsecret-token\n", "acme", "secret-token"},
		{"typed shop", "beta\ntok\n", "beta", "tok"},
		{"token at eof", "beta\ntok", "beta", "tok"},
		{"trims input", "  beta \r\n  tok  \r\n", "beta", "tok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, out := newScriptedPrompter(tt.input)

			shop, token, err := p.Prompt(context.Background(), "acme")
			require.NoError(t, err)
			assert.Equal(t, tt.wantShop, shop)
			assert.Equal(t, tt.wantToken, token)
			assert.Contains(t, out.String(), "Shop name [acme]: ")
			assert.Contains(t, out.String(), "API token: ")
		})
	}
}

func TestTerminalPrompter_PromptErrors(t *testing.T) {
	t.Run("no input", func(t *testing.T) {
		p, _ := newScriptedPrompter("")
		_, _, err := p.Prompt(context.Background(), "acme")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read input")
	})

	t.Run("missing token", func(t *testing.T) {
		p, _ := newScriptedPrompter("acme\n")
		_, _, err := p.Prompt(context.Background(), "acme")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read input")
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		p, out := newScriptedPrompter("acme\ntok\n")
		_, _, err := p.Prompt(ctx, "acme")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, out.String())
	})
}
