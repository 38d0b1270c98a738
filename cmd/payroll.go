package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/avelez/graphmail/internal/attachments"
	"github.com/avelez/graphmail/internal/graph"
	"github.com/avelez/graphmail/internal/model"
)

// payrollBase prefixes downloaded payslip files with the received date.
func payrollBase(receivedAt time.Time) string {
	return "Payroll_" + receivedAt.Local().Format("2006_01_02")
}

func newDownloadPayrollCmd() *cobra.Command {
	var (
		hours   int
		folder  string
		sender  string
		subject string
	)

	cmd := &cobra.Command{
		Use:   "download-payroll",
		Short: "Download recent payroll attachments",
		Long: `Find recent payroll messages by sender and subject and download
their attachments, renamed to Payroll_YYYY_MM_DD. Sender and subject
default to the payroll section of the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if hours <= 0 {
				return fmt.Errorf("--hours must be positive")
			}
			if sender == "" {
				sender = cfg.Payroll.Sender
			}
			if subject == "" {
				subject = cfg.Payroll.Subject
			}
			if sender == "" {
				return fmt.Errorf("payroll sender not configured; set payroll.sender or pass --sender")
			}

			cutoff := time.Now().Add(-time.Duration(hours) * time.Hour).UTC()
			filter := graph.NewFilter()
			filter.ReceivedAfter(cutoff)
			filter.HasAttachments(true)

			ctx := cmd.Context()
			client, err := newGraphClient(ctx)
			if err != nil {
				return err
			}

			emails, err := client.ListMessages(ctx, folder, 50, 0, filter)
			if err != nil {
				return err
			}

			matches := make([]model.Email, 0, len(emails))
			for _, email := range emails {
				if !strings.EqualFold(email.SenderEmail, sender) {
					continue
				}
				if subject != "" && !strings.Contains(email.SubjectOrDefault(""), subject) {
					continue
				}
				matches = append(matches, email)
			}
			if len(matches) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(),
					"No payroll messages from %s in the last %d hour(s).\n", sender, hours)
				return nil
			}

			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			if _, err := db.SaveEmails(ctx, matches); err != nil {
				return err
			}

			handler := attachments.NewHandler(client, db, cfg.Storage.AttachmentsDir, logger)
			total := 0
			for _, email := range matches {
				paths, err := handler.DownloadAllForEmail(ctx, email.ID)
				if err != nil {
					return fmt.Errorf("downloading payroll attachments for %s: %w", email.ID, err)
				}
				for _, path := range paths {
					renamed, err := attachments.RenameWithBase(path, payrollBase(email.ReceivedAt))
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), renamed)
					total++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Downloaded %d payroll attachment(s) from %d message(s).\n", total, len(matches))
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 24, "Look-back window in hours")
	cmd.Flags().StringVar(&folder, "folder", "inbox", "Mail folder to search")
	cmd.Flags().StringVar(&sender, "sender", "", "Payroll sender address (defaults to payroll.sender)")
	cmd.Flags().StringVar(&subject, "subject", "", "Payroll subject substring (defaults to payroll.subject)")
	return cmd
}
