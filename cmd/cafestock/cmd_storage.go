package main

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/talkincode/cafestock/internal/storage"
)

func newStorageCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Inspect the store and manage backups",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "usage",
			Short: "Show the size of every stored key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				usage := c.application.Store().Usage()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s of %s used by %d keys\n",
					usage.TotalSizeFormatted, storage.FormatBytes(usage.Quota), usage.ItemCount)
				keys := make([]string, 0, len(usage.Items))
				for k := range usage.Items {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(out, "  %-32s %s\n", k, storage.FormatBytes(usage.Items[k]))
				}
				if du, err := c.application.DiskUsage(); err == nil {
					fmt.Fprintf(out, "Disk %s: %s free (%.1f%% used)\n",
						du.Path, humanize.IBytes(du.Free), du.UsedPercent)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "backup",
			Short: "Snapshot the store",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				key, err := c.application.CreateBackup()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), key)
				return nil
			},
		},
		&cobra.Command{
			Use:   "backups",
			Short: "List backups, oldest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				for _, key := range c.application.Backups() {
					fmt.Fprintln(cmd.OutOrStdout(), key)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "restore <key>",
			Short: "Rewrite the store from a backup",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s := c.session(cmd)
				if !s.prompt.Confirm(fmt.Sprintf("Restore %s? Current data will be replaced.", args[0])) {
					return nil
				}
				return c.application.RestoreBackup(args[0])
			},
		},
	)
	return cmd
}
