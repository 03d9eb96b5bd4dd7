package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/poewiki-assets/internal/app"
	"github.com/JakeFAU/poewiki-assets/internal/asset"
)

// newIndexCmd creates the 'index' subcommand, which prints the cache index
// each category would use without starting a browser.
func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Lists the cached asset names and files per category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			dirs := make(map[asset.Category]string, len(asset.Categories))
			for _, cat := range asset.Categories {
				dirs[cat] = cfg.AssetDir(cat)
			}
			indexes, err := app.LoadIndexes(dirs)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tNAME\tFILE")
			for _, cat := range asset.Categories {
				entries := indexes.For(cat).Entries()
				names := make([]string, 0, len(entries))
				for name := range entries {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(w, "%s\t%s\t%s\n", cat, name, entries[name])
				}
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("write index: %w", err)
			}
			return nil
		},
	}
}
