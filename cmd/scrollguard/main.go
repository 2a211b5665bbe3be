// Package main is the CLI entry point for scrollguard.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seeother/scrollguard/internal/daemon"
	"github.com/seeother/scrollguard/internal/domain"
	"github.com/seeother/scrollguard/internal/infra"
	"github.com/seeother/scrollguard/internal/policy"
	"github.com/seeother/scrollguard/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

var (
	flagConfig  string
	flagVerbose bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scrollguard",
	Short: "Short-video scroll guard - detects doomscrolling and intervenes",
	Long: `scrollguard watches the stream of UI-change events coming from the
foreground application, detects short-video style infinite scrolling,
counts distinct items viewed, and fires an intervention once a
per-application threshold is reached.`,
	Version: Version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the guard detection daemon",
	Long: `Starts the detection loop. Events are read as newline-delimited JSON
from the Unix socket configured via socket_path; interventions and
statistics summaries are emitted for the device-side bridge.`,
	RunE: runRun,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Reset the rule store to the built-in defaults",
	RunE:  runSeed,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List stored guard rules",
	RunE:  runRules,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show short-video statistics",
	RunE:  runStats,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the daemon is running",
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	rulesCmd.Flags().String("package", "", "only rules for this package")
	rootCmd.AddCommand(runCmd, seedCmd, rulesCmd, statsCmd, statusCmd)
	rootCmd.SetVersionTemplate(fmt.Sprintf("scrollguard %s (commit %s, built %s)\n", Version, Commit, BuildTime))
}

func buildLogger() (*zap.Logger, error) {
	if flagVerbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runRun(cmd *cobra.Command, args []string) error {
	logger, err := buildLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	settings, err := infra.LoadSettings(flagConfig, logger)
	if err != nil {
		return err
	}

	app, err := daemon.Bootstrap(settings, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// openStore opens the encrypted store for one-shot CLI commands.
// Writes stay synchronous here: no worker pool, commands see their own
// writes land before exiting.
func openStore(logger *zap.Logger) (*infra.GuardStore, *infra.ViperSettings, error) {
	settings, err := infra.LoadSettings(flagConfig, logger)
	if err != nil {
		return nil, nil, err
	}
	key, err := infra.NewFileKeyProvider(settings.DataDir()).EnsureKey()
	if err != nil {
		return nil, nil, err
	}
	store, err := infra.NewGuardStore(settings.DataDir(), key, nil, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, settings, nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	logger, err := buildLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, _, err := openStore(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := policy.Seed(store, logger); err != nil {
		return err
	}
	fmt.Printf("seeded %d default rules\n", len(policy.DefaultRules()))
	return nil
}

// fetchRules returns one package's rules, or every stored rule when
// pkg is empty.
func fetchRules(store domain.RuleStore, pkg string) ([]domain.GuardRule, error) {
	if pkg != "" {
		return store.GetRulesFor(pkg)
	}
	return store.GetAllRules()
}

func runRules(cmd *cobra.Command, args []string) error {
	logger := zap.NewNop()
	store, _, err := openStore(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	pkg, _ := cmd.Flags().GetString("package")
	rules, err := fetchRules(store, pkg)
	if err != nil {
		return err
	}

	if len(rules) == 0 {
		fmt.Println("no rules stored (run 'scrollguard seed')")
		return nil
	}
	for _, r := range rules {
		state := "enabled"
		if !r.Enabled {
			state = "disabled"
		}
		fmt.Printf("%-4d %-32s %-16s threshold=%-3d interval=%-5dms %s (%s)\n",
			r.ID, r.PackageID, r.EventKind, r.ScrollThreshold, r.IntervalMs, state, r.Remark)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	logger := zap.NewNop()
	store, settings, err := openStore(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	tracker := usecase.NewStatisticsTracker(store, settings, nil, logger)
	stats := tracker.VideoStatistics()

	fmt.Printf("today: %d videos (%s)\n", stats.TodayCount, stats.TodayTime)
	fmt.Printf("month: %d videos (%s)\n", stats.MonthCount, stats.MonthTime)
	fmt.Printf("monitored-app opens this month: %d\n", tracker.MonitoredAppOpenCount())
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger := zap.NewNop()
	settings, err := infra.LoadSettings(flagConfig, logger)
	if err != nil {
		return err
	}

	status, err := infra.ReadDaemonStatus(settings.DataDir())
	if err != nil {
		return err
	}
	if status.PID == 0 {
		fmt.Println("daemon: not started")
		return nil
	}
	if !status.Running {
		fmt.Printf("daemon: not running (stale pid %d)\n", status.PID)
		return nil
	}
	fmt.Printf("daemon: running (pid %d, rss %.1f MiB)\n",
		status.PID, float64(status.RSSBytes)/(1024*1024))
	return nil
}
