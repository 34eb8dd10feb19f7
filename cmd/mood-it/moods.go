package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func cmdMoods() *cobra.Command {
	return &cobra.Command{
		Use:   "moods",
		Short: "List the moods in the lexicon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MOOD\tTERMS")
			for _, m := range a.lexicon.Moods() {
				terms, err := a.lexicon.Terms(m)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%d\n", m, len(terms))
			}
			return tw.Flush()
		},
	}
}
