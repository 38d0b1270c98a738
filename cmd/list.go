package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avelez/graphmail/internal/render"
)

func newListCmd() *cobra.Command {
	var (
		limit   int
		offset  int
		idsOnly bool
		filters filterFlags
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List messages stored in the local database",
		Long: `List previously fetched messages from the local database. Works
entirely offline. Results are ordered by received time, oldest first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if offset < 0 {
				return fmt.Errorf("--offset must not be negative")
			}

			filter, err := filters.searchFilter()
			if err != nil {
				return err
			}

			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			emails, err := db.SearchEmails(cmd.Context(), filter)
			if err != nil {
				return err
			}
			emails = applyOffsetLimit(emails, offset, limit)

			if idsOnly {
				render.EmailIDs(cmd.OutOrStdout(), emails)
				return nil
			}
			if len(emails) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No messages match. Run 'graphmail fetch' first?")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.EmailTable(emails))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of messages to show (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of messages to skip")
	cmd.Flags().BoolVar(&idsOnly, "ids", false, "Print only message IDs, one per line")
	addFilterFlags(cmd, &filters)
	return cmd
}
