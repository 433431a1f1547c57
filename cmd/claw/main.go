package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yeshinnorbu/claw/internal/clock"
	"github.com/yeshinnorbu/claw/internal/config"
	"github.com/yeshinnorbu/claw/internal/loader"
	"github.com/yeshinnorbu/claw/internal/migration"
	"github.com/yeshinnorbu/claw/internal/pipeline"
	"github.com/yeshinnorbu/claw/internal/source"
	"github.com/yeshinnorbu/claw/internal/verify"
	"github.com/yeshinnorbu/claw/pkg/db"
	"github.com/yeshinnorbu/claw/pkg/log"
	"go.uber.org/fx"
)

func main() {
	root := &cobra.Command{
		Use:   "claw",
		Short: "Reconcile legacy WordPress/WooCommerce data into the platform database",
		Long: `claw extracts the legacy site's REST feeds into local checkpoints, then
loads them into the normalized database. Every phase is idempotent: the
recovery path for any failure is to re-run the phase.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		extractCmd(),
		migrateSchemaCmd(),
		loadCmd(),
		catalogCmd(),
		verifyCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// baseModules is the object graph every phase needs.
func baseModules() fx.Option {
	return fx.Options(
		config.Module,
		log.Module,
		clock.Module,
		source.Module,
	)
}

// storeModules adds the destination store and the load-side services.
func storeModules() fx.Option {
	return fx.Options(
		db.Module,
		loader.Module,
		verify.Module,
		pipeline.Module,
	)
}

// runApp boots an fx app and runs the phase inside the start hook; the
// phase's error fails the command.
func runApp(opts ...fx.Option) error {
	app := fx.New(append(opts, fx.NopLogger)...)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		return err
	}
	return app.Stop(ctx)
}

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Pull all source endpoints into local checkpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(
				baseModules(),
				fx.Invoke(func(e *source.Extractor) error {
					return e.Run(cmd.Context())
				}),
			)
		},
	}
}

func migrateSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-schema",
		Short: "Apply the destination schema to the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(
				baseModules(),
				storeModules(),
				migration.Module,
			)
		},
	}
}

func loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Load users, plans, memberships, events and orders from checkpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(
				baseModules(),
				storeModules(),
				fx.Invoke(func(p *pipeline.Pipeline) error {
					summaries, err := p.LoadCore(cmd.Context())
					if err != nil {
						return err
					}
					printSummaries(summaries)
					return nil
				}),
			)
		},
	}
}

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Load the product catalog from checkpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(
				baseModules(),
				storeModules(),
				fx.Invoke(func(p *pipeline.Pipeline) error {
					sum, err := p.LoadCatalog(cmd.Context())
					if err != nil {
						return err
					}
					printSummaries([]*loader.Summary{sum})
					return nil
				}),
			)
		},
	}
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Reconcile destination counts against extraction checkpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(
				baseModules(),
				storeModules(),
				fx.Invoke(func(p *pipeline.Pipeline) error {
					report, err := p.Verify(cmd.Context())
					if err != nil {
						return err
					}
					printReport(report)
					return nil
				}),
			)
		},
	}
}

func printSummaries(summaries []*loader.Summary) {
	fmt.Println("=== Load summary ===")
	for _, s := range summaries {
		fmt.Printf("  %-16s inserted=%d updated=%d skipped=%d failed=%d\n",
			s.Kind, s.Inserted, s.Updated, s.Skipped, s.Failed)
		for _, reason := range s.Failures {
			fmt.Printf("    ! %s\n", reason)
		}
	}
}

func printReport(report *verify.Report) {
	fmt.Println("=== Reconciliation ===")
	for _, c := range report.Counts {
		fmt.Printf("  %-16s expected=%d loaded=%d\n", c.Kind, c.Expected, c.Loaded)
	}
	fmt.Println("=== Reference quality ===")
	for _, q := range report.References {
		fmt.Printf("  %-22s %d/%d (%.1f%%)\n", q.Field, q.Resolved, q.Total, q.Ratio()*100)
	}
}
