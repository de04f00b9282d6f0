package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/session"
)

func newAskCmd(c *cli) *cobra.Command {
	var showSource bool
	cmd := &cobra.Command{
		Use:   "ask <text>",
		Short: "Answer one query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.assistant(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			reply, err := a.Submit(cmd.Context(), session.New("cli", time.Now()), strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if showSource {
				_, _ = fmt.Fprintf(out, "[%s/%s]\n", reply.Source, reply.Style)
			}
			_, _ = fmt.Fprintln(out, reply.Text)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showSource, "source", "s", false, "Print the answering stage and style first")
	return cmd
}
