package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/loglens/loglens/pkg/engine"
)

var (
	analyzeHorizon int
	analyzeTopN    int
	analyzeMinOcc  int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [directory]",
	Short: "One-shot bulk load and analytics report",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeHorizon, "days", 7, "look-back horizon in days")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top", 10, "top-N group size")
	analyzeCmd.Flags().IntVar(&analyzeMinOcc, "min-occurrences", 3, "minimum cluster size for error patterns")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) == 1 {
		dir = args[0]
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	// One-shot run: no dedup memory should be persisted.
	cfg.Ingest.SignatureCache = ""

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return err
	}
	eng.LoadHistorical(analyzeHorizon)

	a := eng.Analytics()
	stats := a.Statistics()
	fmt.Printf("Entries:      %d\n", stats.Total)
	if stats.Total == 0 {
		return nil
	}
	fmt.Printf("Range:        %s .. %s\n",
		stats.Oldest.Format(time.RFC3339), stats.Newest.Format(time.RFC3339))
	fmt.Printf("Error rate:   %.1f%%\n", 100*stats.ErrorRate)
	fmt.Printf("Warning rate: %.1f%%\n", 100*stats.WarningRate)
	fmt.Printf("Health score: %.0f/100\n\n", stats.HealthScore)

	fmt.Println("Top messages:")
	for _, g := range a.TopMessages(analyzeTopN) {
		fmt.Printf("  %6d  %s\n", g.Count, g.Key)
	}
	fmt.Println("\nTop sources:")
	for _, g := range a.TopSources(analyzeTopN) {
		fmt.Printf("  %6d  %s\n", g.Count, g.Key)
	}

	clusters := a.ErrorPatterns(analyzeMinOcc)
	if len(clusters) > 0 {
		fmt.Println("\nError patterns:")
		for _, cl := range clusters {
			fmt.Printf("  %6d  %-40s confidence=%.1f\n", cl.Count, cl.Signature, cl.Confidence)
			fmt.Printf("          %s\n", cl.RootCause)
		}
	}

	if anomalies := a.Anomalies(); len(anomalies) > 0 {
		fmt.Printf("\nAnomalous entries: %d\n", len(anomalies))
		for i, sc := range anomalies {
			if i == analyzeTopN {
				break
			}
			fmt.Printf("  %.2f  [%s] %s\n", sc.Score, sc.Entry.Level, sc.Entry.Message)
		}
	}
	return nil
}
