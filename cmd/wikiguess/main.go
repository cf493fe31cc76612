package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"wikiguess/internal/archive"
	"wikiguess/internal/assets"
	"wikiguess/internal/config"
	"wikiguess/internal/migrate"
	"wikiguess/internal/report"
	"wikiguess/internal/web"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	// Migrate flags
	migrateDryRun  bool
	migrateCleanup bool
	migrateLimit   int
	migrateRoot    string
	migrateBucket  string

	// Sample flags
	sampleKeep   int
	sampleDryRun bool

	logger *zap.Logger
	cfg    *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "wikiguess",
	Short: "A/B test report viewer and screenshot tooling",
	Long: `wikiguess serves fundraising A/B test reports as a guess-the-winner
web game (or a plain results browser), and ships the maintenance jobs
that go with the report tree: migrating imgur screenshots into S3 and
thinning old tests out of the checkout.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		zapCfg := zap.NewProductionConfig()
		if level, err := zapcore.ParseLevel(cfg.Logging.Level); err == nil {
			zapCfg.Level = zap.NewAtomicLevelAt(level)
		}
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// serveCmd runs the web front end
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the A/B test report site",
	Long: `Starts the web front end over the report tree.

In GUESS mode visitors see the screenshots first and guess the winner
before the numbers are revealed; in NOGUESS mode results show right
away. The mode comes from the config file or WIKIGUESS_MODE.`,
	RunE: runServe,
}

// migrateCmd copies imgur screenshots into S3
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy imgur-hosted screenshots into S3",
	Long: `Walks the report tree for screenshot URLs hosted on imgur and copies
each image into the configured bucket, keyed both by imgur ID and by
test/variation. Progress is checkpointed after every image and an
interrupted run resumes from the checkpoint automatically.

Example:
  wikiguess migrate --bucket frdata-screenshots --dry-run`,
	RunE: runMigrate,
}

// sampleCmd archives all but a sample of tests
var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Archive all but a sample of tests",
	Long: `Keeps the configured interesting tests plus a sample spread evenly
over time, and moves every other test directory into an archive tree
that git ignores. Use --dry-run to see the plan first.`,
	RunE: runSample,
}

// statusCmd shows the effective configuration
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and report tree status",
	RunE:  showStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "wikiguess.yaml", "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Log what would happen without uploading")
	migrateCmd.Flags().BoolVar(&migrateCleanup, "cleanup", false, "Remove checkpoint and lookup files afterwards")
	migrateCmd.Flags().IntVar(&migrateLimit, "limit", 0, "Stop after this many screenshots (0 = all)")
	migrateCmd.Flags().StringVar(&migrateRoot, "report-dir", "", "Report tree to scan (default: from config)")
	migrateCmd.Flags().StringVar(&migrateBucket, "bucket", "", "Target bucket (default: from config)")

	sampleCmd.Flags().IntVar(&sampleKeep, "keep", archive.DefaultKeep, "How many sampled tests to keep")
	sampleCmd.Flags().BoolVar(&sampleDryRun, "dry-run", false, "Print the plan without moving anything")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := report.NewStore(cfg.ReportRoot(), cfg.OrderRoot(),
		cfg.Reports.InterestingTests, logger)
	defer store.Close()

	resolver := assets.NewResolver(cfg.Reports.StaticRoot,
		assets.BucketURL(cfg.S3.Bucket, cfg.S3.Region), logger)

	srv, err := web.New(cfg, store, resolver, logger)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if migrateBucket != "" {
		cfg.S3.Bucket = migrateBucket
	}
	if cfg.S3.Bucket == "" && !migrateDryRun {
		return fmt.Errorf("no bucket configured (set s3.bucket, WIKIGUESS_BUCKET or --bucket)")
	}
	reportRoot := migrateRoot
	if reportRoot == "" {
		reportRoot = cfg.ReportRoot()
	}

	uploader, err := migrate.NewUploaderFromEnv(ctx, cfg.S3.Bucket, cfg.S3.Region)
	if err != nil {
		return err
	}
	downloader := migrate.NewDownloader(cfg.GetMigrationTimeout(),
		cfg.Migration.UserAgent, cfg.Migration.MaxRetries, logger)

	m := migrate.New(cfg, uploader, downloader, migrate.Options{
		ReportRoot: reportRoot,
		DryRun:     migrateDryRun,
		Cleanup:    migrateCleanup,
		Limit:      migrateLimit,
	}, logger)

	result, err := m.Run(ctx)
	if err != nil {
		return err
	}
	printMigrationSummary(result)
	return nil
}

func runSample(cmd *cobra.Command, args []string) error {
	archiveRoot := filepath.Join(cfg.Reports.StaticRoot+"-archive", "report")
	sampler := archive.NewSampler(cfg.ReportRoot(), archiveRoot,
		cfg.Reports.InterestingTests, sampleKeep, logger)

	plan, err := sampler.Plan()
	if err != nil {
		return err
	}

	if sampleDryRun {
		fmt.Printf("Would keep %d tests and archive %d:\n", len(plan.Keep), len(plan.Archive))
		for _, test := range plan.Archive {
			fmt.Println("  ", test)
		}
		return nil
	}
	return sampler.Apply(plan)
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(14)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func showStatus(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("wikiguess"))
	fmt.Println(keyStyle.Render("config"), cfgPath)
	fmt.Println(keyStyle.Render("addr"), cfg.Server.Addr)
	fmt.Println(keyStyle.Render("mode"), cfg.Server.Mode)
	fmt.Println(keyStyle.Render("static root"), cfg.Reports.StaticRoot)

	auth := badStyle.Render("off")
	if cfg.Server.AuthUser != "" {
		auth = okStyle.Render("on")
	}
	fmt.Println(keyStyle.Render("basic auth"), auth)

	bucket := badStyle.Render("local only")
	if cfg.S3.Bucket != "" {
		bucket = okStyle.Render(cfg.S3.Bucket + " (" + cfg.S3.Region + ")")
	}
	fmt.Println(keyStyle.Render("s3"), bucket)

	tests := 0
	if entries, err := os.ReadDir(cfg.ReportRoot()); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				tests++
			}
		}
	}
	fmt.Println(keyStyle.Render("tests"), tests)
	return nil
}

func printMigrationSummary(r *migrate.Result) {
	fmt.Println(titleStyle.Render("migration summary"))
	if r.DryRun {
		fmt.Println(keyStyle.Render("mode"), "dry run")
	}
	fmt.Println(keyStyle.Render("total"), r.Total)
	fmt.Println(keyStyle.Render("migrated"), okStyle.Render(fmt.Sprint(r.Migrated)))
	fmt.Println(keyStyle.Render("skipped"), r.Skipped)
	if r.Failed > 0 {
		fmt.Println(keyStyle.Render("failed"), badStyle.Render(fmt.Sprint(r.Failed)))
		for _, url := range r.FailedURLs {
			fmt.Println("  ", url)
		}
	} else {
		fmt.Println(keyStyle.Render("failed"), 0)
	}
}
