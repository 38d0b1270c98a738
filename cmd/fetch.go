package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avelez/graphmail/internal/render"
)

func newFetchCmd() *cobra.Command {
	var (
		folder  string
		limit   int
		skip    int
		idsOnly bool
		filters filterFlags
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch messages from Microsoft Graph into the local database",
		Long: `Fetch messages from a mail folder and store their metadata in the
local database. Filters are applied server-side, so only matching
messages are transferred.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			if skip < 0 {
				return fmt.Errorf("--skip must not be negative")
			}

			filter, err := filters.remoteFilter()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := newGraphClient(ctx)
			if err != nil {
				return err
			}

			emails, err := client.ListMessages(ctx, folder, limit, skip, filter)
			if err != nil {
				return err
			}

			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			saved, err := db.SaveEmails(ctx, emails)
			if err != nil {
				return err
			}

			if idsOnly {
				render.EmailIDs(cmd.OutOrStdout(), saved)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d message(s) from %s.\n", len(saved), folder)
			if len(saved) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), render.EmailTable(saved))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "inbox", "Mail folder to fetch from")
	cmd.Flags().IntVar(&limit, "limit", 25, "Maximum number of messages to fetch")
	cmd.Flags().IntVar(&skip, "skip", 0, "Number of messages to skip for pagination")
	cmd.Flags().BoolVar(&idsOnly, "ids", false, "Print only message IDs, one per line")
	addFilterFlags(cmd, &filters)
	return cmd
}
