package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopfloor-estimator/internal/api"
	"shopfloor-estimator/internal/data"
	"shopfloor-estimator/internal/estimator"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "estimator",
		Short:         "Operation time suggestions from production history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newMigrateCmd(&configPath),
		newSeedCmd(&configPath),
		newSuggestCmd(&configPath),
		newHistoryCmd(&configPath),
		newAnalyticsCmd(&configPath),
		newProfileCmd(&configPath),
	)
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			handler := api.NewHandler(a.engine, a.log.Named("api"))
			srv := &http.Server{
				Addr:         a.cfg.Server.Addr,
				Handler:      api.NewRouter(handler, a.metrics.Handler(), a.cfg.Server.Debug),
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
			}
			return api.Serve(ctx, srv, a.log)
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := data.EnsureSchema(a.gdb); err != nil {
				return fmt.Errorf("failed to migrate schema: %w", err)
			}
			a.log.Info("schema ready")
			return nil
		},
	}
}

func newSeedCmd(configPath *string) *cobra.Command {
	var cfg data.SeedConfig

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert a synthetic shop-floor dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := data.EnsureSchema(a.gdb); err != nil {
				return fmt.Errorf("failed to migrate schema: %w", err)
			}
			start := time.Now()
			if err := data.SeedDataset(cmd.Context(), a.gdb, cfg); err != nil {
				return fmt.Errorf("failed to seed dataset: %w", err)
			}
			a.log.Info("dataset ready", zap.Int("drawings", cfg.Drawings), zap.Duration("elapsed", time.Since(start)))
			return nil
		},
	}
	cmd.Flags().IntVar(&cfg.Drawings, "drawings", 20, "number of drawing numbers to generate")
	cmd.Flags().IntVar(&cfg.MaxRepeat, "repeat", 5, "maximum production runs per drawing")
	cmd.Flags().IntVar(&cfg.BatchSize, "batch", 500, "batch size for bulk inserts")
	return cmd
}

func newSuggestCmd(configPath *string) *cobra.Command {
	var (
		quantity int
		workType string
	)

	cmd := &cobra.Command{
		Use:   "suggest DRAWING",
		Short: "Print operation time suggestions for a new order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.engine.Suggest(cmd.Context(), estimator.Request{
				DrawingNumber: args[0],
				Quantity:      quantity,
				WorkType:      workType,
			})
			if err != nil {
				return err
			}
			if res.Degraded != nil {
				a.log.Warn("fallback statistics unavailable", zap.Error(res.Degraded))
			}
			return printSuggestions(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "quantity of the new order")
	cmd.Flags().StringVar(&workType, "work-type", "", "restrict fallback statistics to this work type")
	return cmd
}

func newHistoryCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history DRAWING",
		Short: "Print the production history and statistics of a drawing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			stats, err := a.engine.DrawingStatistics(ctx, args[0])
			if err != nil {
				return err
			}
			rows, err := a.engine.DrawingHistory(ctx, args[0])
			if err != nil {
				return err
			}
			last, err := a.engine.LastCompletedOrder(ctx, args[0])
			if err != nil {
				a.log.Warn("last completed order unavailable", zap.Error(err))
			}
			return printHistory(cmd.OutOrStdout(), stats, last, rows)
		},
	}
}

func newAnalyticsCmd(configPath *string) *cobra.Command {
	var operationType, machineType string

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Print completed-operation time analytics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			rows, err := a.engine.OperationTimeAnalytics(cmd.Context(), operationType, machineType)
			if err != nil {
				return err
			}
			return printAnalytics(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVar(&operationType, "operation-type", "", "only this operation type")
	cmd.Flags().StringVar(&machineType, "machine-type", "", "only this machine type")
	return cmd
}

func newProfileCmd(configPath *string) *cobra.Command {
	var (
		workType    string
		showExplain bool
	)

	cmd := &cobra.Command{
		Use:   "profile DRAWING",
		Short: "Time the suggestion queries for a drawing and print their plans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			results := a.store.Profile(ctx, args[0], workType)
			if showExplain {
				for _, res := range results {
					if res.Err != nil {
						a.log.Warn("skipped explain", zap.String("query", res.Name), zap.Error(res.Err))
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", res.Name, res.Description)
					for _, line := range res.Explain {
						fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", line)
					}
				}
			}
			return printProfiles(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringVar(&workType, "work-type", "", "work type used by the fallback query")
	cmd.Flags().BoolVar(&showExplain, "explain", true, "print EXPLAIN output for each query")
	return cmd
}
