package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docnav/internal/config"
	"github.com/ziadkadry99/docnav/internal/session"
)

var (
	treeAnchor string
	treeAll    bool
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the navigation tree, optionally synced to an anchor",
	Long: `Prints the navigation tree outline. With --anchor the tree is first synced
to that page or anchor, loading lazy branches as needed, and the matching
node is marked with *. Without --all only the visible part of the tree is
printed.`,
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

		if treeAnchor != "" {
			if _, err := sess.OnContentNavigate(ctx, treeAnchor); err != nil {
				return err
			}
			if err := sess.WaitIdle(ctx); err != nil {
				return err
			}
			st, err := sess.State(ctx)
			if err != nil {
				return err
			}
			if st.Selected == "" {
				fmt.Fprintf(os.Stderr, "%s is not in the navigation tree\n", treeAnchor)
			}
		}

		view, err := sess.Tree(ctx, !treeAll)
		if err != nil {
			return err
		}
		return view.Print(os.Stdout)
	},
}

func init() {
	treeCmd.Flags().StringVar(&treeAnchor, "anchor", "", "page or anchor to sync the tree to")
	treeCmd.Flags().BoolVar(&treeAll, "all", false, "print collapsed branches too")
	rootCmd.AddCommand(treeCmd)
}

// oneShotSession opens the doc set and starts a session for a single
// command. done releases both.
func oneShotSession(ctx context.Context, cfg *config.Config) (*session.Session, func(), error) {
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts, err := sessionOptions(cfg, commandLogger(false))
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	sess, err := session.New(ctx, store, opts)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return sess, func() {
		sess.Close()
		closeStore()
	}, nil
}
