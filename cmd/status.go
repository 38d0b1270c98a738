package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/avelez/graphmail/internal/attachments"
	"github.com/avelez/graphmail/internal/render"
)

// expiryNotice is how close to expiry a token gets before status starts
// suggesting a renewal.
const expiryNotice = 15 * time.Minute

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the signed-in account, token, and local cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache := newTokenCache()
			info := cache.TokenInfo()
			account := newAuthenticator().AccountRecord()
			expiring := info != nil && cache.IsExpiringSoon(expiryNotice)
			fmt.Fprintln(cmd.OutOrStdout(), render.TokenStatus(info, account, expiring))

			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			emailCount, err := db.CountEmails(cmd.Context())
			if err != nil {
				return err
			}
			fileCount, fileBytes, err := attachments.DirStats(cfg.Storage.AttachmentsDir)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), render.StoragePanel(render.StorageStatus{
				DatabasePath:    cfg.Database.Path,
				EmailCount:      emailCount,
				AttachmentsDir:  cfg.Storage.AttachmentsDir,
				AttachmentFiles: fileCount,
				AttachmentBytes: fileBytes,
			}))
			return nil
		},
	}
}
