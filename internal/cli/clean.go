package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loglens/loglens/pkg/retention"
)

var (
	cleanYes      bool
	cleanCompress bool
	cleanStats    bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean [directory]",
	Short: "Archive, compress, and purge old log files",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().BoolVarP(&cleanYes, "yes", "y", false, "confirm destructive operations")
	cleanCmd.Flags().BoolVar(&cleanCompress, "compress", false, "gzip pending .archive files first")
	cleanCmd.Flags().BoolVar(&cleanStats, "stats", false, "print directory stats and exit")
}

func runClean(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) == 1 {
		dir = args[0]
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	mgr := retention.NewManager(cfg.Ingest.Directory, cfg.Retention, logger)

	if cleanStats {
		s := mgr.Stats()
		fmt.Printf("Active logs:   %d files, %d bytes\n", s.ActiveFiles, s.ActiveBytes)
		fmt.Printf("Archives:      %d files, %d bytes\n", s.ArchiveFiles, s.ArchiveBytes)
		if !s.OldestFile.IsZero() {
			fmt.Printf("Oldest file:   %s\n", s.OldestFile.Format("2006-01-02"))
		}
		return nil
	}

	if cleanCompress {
		res, err := mgr.Compress()
		if err != nil {
			return err
		}
		fmt.Printf("Compressed %d archives (%d failed)\n", res.Compressed, res.Failed)
	}

	res, err := mgr.Cleanup(retention.CleanupOptions{Confirmed: cleanYes})
	if errors.Is(err, retention.ErrConfirmationRequired) {
		return fmt.Errorf("cleanup would delete files; re-run with --yes to confirm")
	}
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d, archived %d, purged %d expired archives (%d failed, %d bytes freed)\n",
		res.Deleted, res.Archived, res.Purged, res.Failed, res.FreedBytes)
	return nil
}
