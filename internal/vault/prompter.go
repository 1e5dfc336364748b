package vault

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter collects a shop name and token from the operator.
type Prompter interface {
	Prompt(ctx context.Context, suggested string) (shop, token string, err error)
}

type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stderr,
		fd:  int(os.Stdin.Fd()),
	}
}

func (p *TerminalPrompter) Prompt(ctx context.Context, suggested string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	fmt.Fprintf(p.out, "Shop name [%s]: ", suggested)
	shop, err := p.readLine()
	if err != nil {
		return "", "", err
	}
	if shop == "" {
		shop = suggested
	}

	fmt.Fprint(p.out, "API token: ")
	var token string
	if term.IsTerminal(p.fd) {
		raw, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", "", fmt.Errorf("failed to read token: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	} else if token, err = p.readLine(); err != nil {
		return "", "", err
	}

	return shop, token, nil
}

func (p *TerminalPrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
