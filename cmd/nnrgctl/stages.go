package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStagesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stages [text]",
		Short: "Show which pipeline stage answers a query",
		Long: `Without arguments, list the pipeline stages in execution order.
With a query, print its derived forms and the stage that answered it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := c.knowledge()
			if err != nil {
				return err
			}
			r := k.Resolver()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				for i, name := range r.Stages() {
					_, _ = fmt.Fprintf(out, "%2d. %s\n", i+1, name)
				}
				return nil
			}

			res := r.Resolve(strings.Join(args, " "), nil)
			_, _ = fmt.Fprintf(out, "query:    %s\n", res.Query.Raw)
			_, _ = fmt.Fprintf(out, "style:    %s\n", res.Query.Style)
			_, _ = fmt.Fprintf(out, "expanded: %s\n", res.Query.Expanded)
			_, _ = fmt.Fprintf(out, "stemmed:  %s\n", strings.Join(res.Query.Stemmed, " "))
			if !res.Found {
				_, _ = fmt.Fprintln(out, "stage:    (none, escalates to external responders)")
				return nil
			}
			_, _ = fmt.Fprintf(out, "stage:    %s\n", res.Stage)
			_, _ = fmt.Fprintf(out, "answer:   %s\n", res.Answer)
			return nil
		},
	}
}
