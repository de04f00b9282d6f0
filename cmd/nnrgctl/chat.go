package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/assistant"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/ctxutil"
	domerrors "github.com/nnrg-cse/nnrg-assistant-go/internal/errors"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/session"
)

const chatHelp = `Commands: /links lists quick links, /link <id> opens one, /reset starts over, /quit exits.`

func newChatCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Run an interactive session on stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.assistant(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return chat(cmd, a)
		},
	}
}

func chat(cmd *cobra.Command, a *assistant.Assistant) error {
	ctx := ctxutil.WithChannel(cmd.Context(), ctxutil.ChannelCLI)
	out := cmd.OutOrStdout()
	sess := session.New("cli", time.Now())

	_, _ = fmt.Fprintln(out, a.Welcome())
	_, _ = fmt.Fprintln(out, chatHelp)

	in := bufio.NewScanner(cmd.InOrStdin())
	for prompt(out); in.Scan(); prompt(out) {
		line := strings.TrimSpace(in.Text())
		var (
			reply assistant.Reply
			err   error
		)
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/reset":
			welcome, resetErr := a.Reset(sess)
			if resetErr != nil {
				return resetErr
			}
			_, _ = fmt.Fprintln(out, welcome)
			continue
		case line == "/links":
			for _, l := range a.QuickLinks() {
				_, _ = fmt.Fprintf(out, "  %s %s (%s)\n", l.Emoji, l.Label, l.ID)
			}
			continue
		case strings.HasPrefix(line, "/link "):
			reply, err = a.QuickLink(ctx, sess, strings.TrimSpace(strings.TrimPrefix(line, "/link ")))
		default:
			reply, err = a.Submit(ctx, sess, line)
		}
		if errors.Is(err, domerrors.ErrUnknownQuickLink) {
			_, _ = fmt.Fprintln(out, "Unknown quick link. Try /links.")
			continue
		}
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, reply.Text)
	}
	return in.Err()
}

func prompt(w io.Writer) { _, _ = fmt.Fprint(w, "> ") }
