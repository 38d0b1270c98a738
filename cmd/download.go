package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avelez/graphmail/internal/attachments"
	"github.com/avelez/graphmail/internal/render"
)

func newDownloadCmd() *cobra.Command {
	var (
		attachmentID string
		listOnly     bool
		filters      filterFlags
	)

	cmd := &cobra.Command{
		Use:   "download [email-id]",
		Short: "Download attachments for stored messages",
		Long: `Download attachments to the local attachments directory, one
subdirectory per message.

With an email ID, all of that message's attachments are downloaded, or a
single one when --attachment is given. Without an ID, filter flags select
stored messages with attachments and everything they carry is fetched.
Already-downloaded files are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && attachmentID != "" {
				return fmt.Errorf("--attachment requires an email ID argument")
			}

			ctx := cmd.Context()
			client, err := newGraphClient(ctx)
			if err != nil {
				return err
			}
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			handler := attachments.NewHandler(client, db, cfg.Storage.AttachmentsDir, logger)

			if len(args) == 1 {
				emailID := args[0]
				if listOnly {
					rows, err := handler.ListAttachments(ctx, emailID)
					if err != nil {
						return err
					}
					if len(rows) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "No attachments.")
						return nil
					}
					fmt.Fprintln(cmd.OutOrStdout(), render.AttachmentTable(rows))
					return nil
				}

				if attachmentID != "" {
					path, err := handler.Download(ctx, emailID, attachmentID, "")
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), path)
					return nil
				}

				paths, err := handler.DownloadAllForEmail(ctx, emailID)
				if err != nil {
					return err
				}
				for _, path := range paths {
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %d attachment(s).\n", len(paths))
				return nil
			}

			filter, err := filters.searchFilter()
			if err != nil {
				return err
			}
			if filter.HasAttachments == nil {
				withAttachments := true
				filter.HasAttachments = &withAttachments
			}

			emails, err := db.SearchEmails(ctx, filter)
			if err != nil {
				return err
			}
			if len(emails) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No stored messages match.")
				return nil
			}

			total := 0
			for _, email := range emails {
				paths, err := handler.DownloadAllForEmail(ctx, email.ID)
				if err != nil {
					return fmt.Errorf("downloading attachments for %s: %w", email.ID, err)
				}
				total += len(paths)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %d attachment(s) across %d message(s).\n", total, len(emails))
			return nil
		},
	}

	cmd.Flags().StringVar(&attachmentID, "attachment", "", "Download only this attachment ID")
	cmd.Flags().BoolVar(&listOnly, "list", false, "List attachments without downloading")
	addFilterFlags(cmd, &filters)
	return cmd
}
