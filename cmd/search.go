package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search the doc set once and print ranked results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		sess, done, err := oneShotSession(ctx, cfg)
		if err != nil {
			return err
		}
		defer done()

		query := strings.Join(args, " ")
		if _, err := sess.Search(ctx, query); err != nil {
			return err
		}
		if err := sess.WaitIdle(ctx); err != nil {
			return err
		}
		res, err := sess.Results(ctx)
		if err != nil {
			return err
		}

		if len(res.Matches) == 0 {
			fmt.Fprintf(os.Stderr, "No results for %q\n", query)
			return nil
		}
		matches := res.Matches
		if searchLimit > 0 && len(matches) > searchLimit {
			matches = matches[:searchLimit]
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, m := range matches {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.DisplayName, m.Kind, m.TargetRef, m.Context)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "%d of %d result(s)\n", len(matches), len(res.Matches))
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results to print (0 for all)")
	rootCmd.AddCommand(searchCmd)
}

