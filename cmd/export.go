package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avelez/graphmail/internal/export"
)

func newExportCmd() *cobra.Command {
	var (
		format  string
		filters filterFlags
	)

	cmd := &cobra.Command{
		Use:   "export <path>",
		Short: "Export stored messages to a JSON or CSV file",
		Long: `Write previously fetched messages to a file. The same filter flags
as 'list' narrow the exported set. An empty result still produces a
valid file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			normalized, err := export.NormalizeFormat(format)
			if err != nil {
				return err
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

			if err := export.Emails(emails, path, normalized); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d message(s) to %s.\n", len(emails), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", export.FormatJSON, "Export format: json or csv")
	addFilterFlags(cmd, &filters)
	return cmd
}
