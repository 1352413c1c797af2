package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-orders/app/service"
)

var (
	workerMode        bool
	reconcileVerbose  bool
	reconcileNotDry   bool
	reconcileLimit    int64
	reconcileBatchLen int64
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run ledger reconciliation commands",
}

var reconcileFeesCmd = &cobra.Command{
	Use:   "fees",
	Short: "Normalize fee signs and fx rates on paired ledger transactions",
	Long:  "Scan the transactions ledger in transaction-group order and normalize fee-column signs on order-linked pairs. Dry-run by default; pass --notdryrun to write corrections.",
	Run: func(_ *cobra.Command, _ []string) {
		cfg, services, cleanup := mustCreateServices()
		defer cleanup()

		opts := service.RunOptions{
			DryRun:    !reconcileNotDry,
			Verbose:   reconcileVerbose,
			Limit:     reconcileLimit,
			BatchSize: reconcileBatchLen,
		}
		if opts.BatchSize <= 0 {
			opts.BatchSize = int64(cfg.Reconcile.BatchSize)
		}

		if workerMode {
			runWorker("reconcile_fees", cfg.Reconcile.Interval, func(ctx context.Context) error {
				return runReconcile(ctx, services.reconcile, opts)
			})
			return
		}

		runJob("reconcile_fees", func() error {
			return runReconcile(context.Background(), services.reconcile, opts)
		})
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.AddCommand(reconcileFeesCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
	reconcileFeesCmd.Flags().BoolVar(&reconcileVerbose, "verbose", false, "Log consistent rows as well as findings")
	reconcileFeesCmd.Flags().BoolVar(&reconcileNotDry, "notdryrun", false, "Apply corrections instead of only reporting them")
	reconcileFeesCmd.Flags().Int64Var(&reconcileLimit, "limit", 0, "Scan at most this many transactions (0 = all)")
	reconcileFeesCmd.Flags().Int64Var(&reconcileBatchLen, "batch-size", 0, "Rows fetched per batch (0 = configured default)")
}

func runReconcile(ctx context.Context, reconcileService *service.ReconcileService, opts service.RunOptions) error {
	report, err := reconcileService.Run(ctx, opts)
	if err != nil {
		return err
	}

	entry := logrus.WithFields(logrus.Fields{
		"scanned":   report.Scanned,
		"pairs":     report.Pairs,
		"corrected": report.Corrected,
		"skipped":   report.Skipped,
		"dry_run":   opts.DryRun,
	})
	if len(report.Findings) > 0 {
		entry.WithField("findings", len(report.Findings)).Warn("reconcile_found_inconsistencies")
		for _, finding := range report.Findings {
			logrus.WithFields(logrus.Fields{
				"transaction_id":    finding.TransactionID,
				"transaction_group": finding.TransactionGroup,
				"expected_net":      finding.ExpectedNet,
				"stored_net":        finding.StoredNet,
			}).Warn("transaction_requires_manual_review")
		}
		return nil
	}
	entry.Info("reconcile_clean")

	return nil
}

func runWorker(name string, interval time.Duration, fn func(ctx context.Context) error) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
