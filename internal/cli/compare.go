package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/loglens/loglens/pkg/compare"
	"github.com/loglens/loglens/pkg/config"
	"github.com/loglens/loglens/pkg/domain"
	"github.com/loglens/loglens/pkg/ingest"
	"github.com/loglens/loglens/pkg/logparse"
	"github.com/loglens/loglens/pkg/store"
)

var (
	compareThreshold float64
	compareDays      int
)

var compareCmd = &cobra.Command{
	Use:   "compare <left-dir> <right-dir>",
	Short: "Fuzzy-diff the entries of two log directories",
	Args:  cobra.ExactArgs(2),
	RunE:  runCompare,
}

func init() {
	compareCmd.Flags().Float64Var(&compareThreshold, "threshold", compare.DefaultThreshold, "minimum similarity for a match")
	compareCmd.Flags().IntVar(&compareDays, "days", 30, "look-back horizon in days")
}

func runCompare(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	left, err := loadDir(args[0], logger)
	if err != nil {
		return err
	}
	right, err := loadDir(args[1], logger)
	if err != nil {
		return err
	}

	result := compare.New(logger).Compare(left, right, compareThreshold)
	fmt.Printf("Left entries:  %d\n", result.Stats.LeftCount)
	fmt.Printf("Right entries: %d\n", result.Stats.RightCount)
	fmt.Printf("Identical:     %d\n", result.Stats.IdenticalCount)
	fmt.Printf("Similar:       %d\n", result.Stats.SimilarCount)
	fmt.Printf("Left only:     %d\n", result.Stats.LeftOnlyCount)
	fmt.Printf("Right only:    %d\n", result.Stats.RightOnlyCount)
	fmt.Printf("Overall:       %.1f%%\n", result.Stats.OverallSimilarity)
	return nil
}

// loadDir bulk-loads one directory into a throwaway store and returns the
// snapshot.
func loadDir(dir string, logger *zap.Logger) ([]*domain.LogEntry, error) {
	cfg := config.Default()
	cfg.Ingest.Directory = dir
	cfg.ApplyDefaults()

	st := store.New(cfg.Ingest.MaxEntries, logger)
	w := ingest.NewWatcher(ingest.Config{
		Directory:     dir,
		RetentionDays: cfg.Ingest.RetentionDays,
	}, logparse.New(logger), st, nil, logger)
	w.LoadHistorical(compareDays)
	return st.Snapshot(), nil
}
