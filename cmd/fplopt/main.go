package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fplsim/fpl-optimizer/internal/cache"
	"github.com/fplsim/fpl-optimizer/internal/chips"
	"github.com/fplsim/fpl-optimizer/internal/config"
	"github.com/fplsim/fpl-optimizer/internal/fixtures"
	"github.com/fplsim/fpl-optimizer/internal/logger"
	"github.com/fplsim/fpl-optimizer/internal/metrics"
	"github.com/fplsim/fpl-optimizer/internal/optimizer"
	"github.com/fplsim/fpl-optimizer/internal/types"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.InitLogger("", cfg.IsDevelopment())
	log.SetOutput(os.Stderr) // keep stdout clean for the JSON results

	var snapshotPath string

	rootCmd := &cobra.Command{
		Use:   "fplopt",
		Short: "Fantasy squad metrics and optimization from a stats snapshot",
		Long: `fplopt derives performance metrics from a raw season-statistics snapshot
and builds or advises on 15-man squads under budget, position-quota,
club-cap and formation constraints.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&snapshotPath, "snapshot", "snapshot.json", "Path to the snapshot JSON produced by the ingestion service")

	rootCmd.AddCommand(
		newMetricsCmd(cfg, log, &snapshotPath),
		newSquadCmd(cfg, log, &snapshotPath),
		newTransfersCmd(cfg, log, &snapshotPath),
		newChipsCmd(cfg, log, &snapshotPath),
		newCacheCmd(cfg, log),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newMetricsCmd(cfg *config.Config, log *logrus.Logger, snapshotPath *string) *cobra.Command {
	var position string
	var top int
	var view string
	var maxCost, maxOwnership float64
	var minPoints int

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Rank players by derived scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := loadMetricsSet(cmd.Context(), cfg, log, *snapshotPath)
			if err != nil {
				return err
			}
			switch view {
			case "overall":
				return printJSON(set.TopPicks(types.Position(position), top))
			case "targets":
				return printJSON(set.TransferTargets(maxCost, types.Position(position), top))
			case "differentials":
				return printJSON(set.Differentials(maxOwnership, minPoints, top))
			default:
				return fmt.Errorf("unknown view %q (overall|targets|differentials)", view)
			}
		},
	}
	cmd.Flags().StringVar(&view, "view", "overall", "Listing to print (overall|targets|differentials)")
	cmd.Flags().StringVar(&position, "position", "", "Restrict to one position (GKP|DEF|MID|FWD)")
	cmd.Flags().IntVar(&top, "top", 20, "Number of players to list")
	cmd.Flags().Float64Var(&maxCost, "max-cost", 15.0, "Cost ceiling in millions for the targets view")
	cmd.Flags().Float64Var(&maxOwnership, "max-ownership", 10.0, "Ownership ceiling for the differentials view")
	cmd.Flags().IntVar(&minPoints, "min-points", 30, "Points floor for the differentials view")
	return cmd
}

func newSquadCmd(cfg *config.Config, log *logrus.Logger, snapshotPath *string) *cobra.Command {
	var budget float64
	var formation, strategy string
	var clubCap int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "squad",
		Short: "Build a 15-man squad under the full constraint set",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := loadMetricsSet(cmd.Context(), cfg, log, *snapshotPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			result, err := optimizer.NewSquadOptimizer(set, log).Build(ctx, optimizer.BuildConfig{
				Budget:             budget,
				Formation:          formation,
				Strategy:           types.Strategy(strategy),
				ClubCap:            clubCap,
				PremiumThreshold:   cfg.PremiumThreshold,
				RepairIterationCap: cfg.RepairIterationCap,
			})
			if err != nil {
				return err
			}
			logger.WithOptimizationContext(result.OptimizationID, strategy, formation).
				WithField("total_cost", result.Squad.TotalCost).
				Info("Squad written to stdout")
			return printJSON(result)
		},
	}
	cmd.Flags().Float64Var(&budget, "budget", cfg.Budget, "Budget ceiling in millions")
	cmd.Flags().StringVar(&formation, "formation", cfg.Formation, "Starting-XI formation")
	cmd.Flags().StringVar(&strategy, "strategy", cfg.Strategy, "Selection strategy (balanced|template|differential|premium_heavy)")
	cmd.Flags().IntVar(&clubCap, "club-cap", cfg.ClubCap, "Maximum players per club")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Search deadline (0 = none)")
	return cmd
}

func newTransfersCmd(cfg *config.Config, log *logrus.Logger, snapshotPath *string) *cobra.Command {
	var squadPath string
	var budgetDelta float64
	var freeTransfers, horizon int

	cmd := &cobra.Command{
		Use:   "transfers",
		Short: "Suggest transfers against an existing squad",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := loadMetricsSet(cmd.Context(), cfg, log, *snapshotPath)
			if err != nil {
				return err
			}

			squad, err := loadSquad(squadPath)
			if err != nil {
				return err
			}

			fdr := fixtures.NewAnalyzer(set.Snapshot, log)
			result, err := optimizer.NewAdvisor(set, fdr, log).Suggest(cmd.Context(), *squad, optimizer.SuggestConfig{
				BudgetDelta:       budgetDelta,
				FreeTransfers:     freeTransfers,
				HorizonGameweeks:  horizon,
				ClubCap:           cfg.ClubCap,
				WeeklyPointsScale: cfg.WeeklyPointsScale,
				TransferHitCost:   cfg.TransferHitCost,
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&squadPath, "squad", "squad.json", "Path to the current squad JSON")
	cmd.Flags().Float64Var(&budgetDelta, "budget-delta", 0, "Extra budget headroom in millions")
	cmd.Flags().IntVar(&freeTransfers, "free-transfers", 1, "Free transfers available")
	cmd.Flags().IntVar(&horizon, "horizon", cfg.HorizonGameweeks, "Gameweek horizon for expected gain")
	return cmd
}

func newChipsCmd(cfg *config.Config, log *logrus.Logger, snapshotPath *string) *cobra.Command {
	var gameweek int

	cmd := &cobra.Command{
		Use:   "chips",
		Short: "Recommend chip timing for a gameweek",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := loadMetricsSet(cmd.Context(), cfg, log, *snapshotPath)
			if err != nil {
				return err
			}

			wildcards, err := cfg.ParseWildcardWindows()
			if err != nil {
				return fmt.Errorf("bad wildcard windows config: %w", err)
			}
			freeHit, err := cfg.ParseFreeHitWindow()
			if err != nil {
				return fmt.Errorf("bad free-hit window config: %w", err)
			}

			fdr := fixtures.NewAnalyzer(set.Snapshot, log)
			planner := chips.NewPlanner(set, fdr, chips.Rules{
				WildcardWindows:        wildcards,
				FreeHitWindow:          freeHit,
				PremiumThreshold:       cfg.PremiumThreshold,
				TripleCaptainThreshold: cfg.TripleCaptainThreshold,
			}, log)
			return printJSON(planner.Plan(gameweek))
		},
	}
	cmd.Flags().IntVar(&gameweek, "gameweek", 1, "Current gameweek")
	_ = cmd.MarkFlagRequired("gameweek")
	return cmd
}

// newCacheCmd exposes the redis memoization layer for operators: flush drops
// every cached record set, invalidate drops a single snapshot version.
func newCacheCmd(cfg *config.Config, log *logrus.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the Redis metrics cache",
	}

	flush := &cobra.Command{
		Use:   "flush",
		Short: "Drop every cached metrics record set",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, client, err := openCache(cfg, log)
			if err != nil {
				return err
			}
			defer client.Close()
			if err := service.FlushMetricsCache(cmd.Context()); err != nil {
				return err
			}
			logger.WithComponent("cache-admin").Info("Metrics cache flushed")
			return nil
		},
	}

	var version string
	invalidate := &cobra.Command{
		Use:   "invalidate",
		Short: "Drop the cached records for one snapshot version",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, client, err := openCache(cfg, log)
			if err != nil {
				return err
			}
			defer client.Close()
			if err := service.Invalidate(cmd.Context(), version); err != nil {
				return err
			}
			logger.WithComponent("cache-admin").
				WithField("snapshot_version", version).
				Info("Cached metrics invalidated")
			return nil
		},
	}
	invalidate.Flags().StringVar(&version, "snapshot-version", "", "Snapshot version to invalidate")
	_ = invalidate.MarkFlagRequired("snapshot-version")

	cmd.AddCommand(flush, invalidate)
	return cmd
}

func openCache(cfg *config.Config, log *logrus.Logger) (*cache.MetricsCacheService, *redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	return cache.NewMetricsCacheService(client, log), client, nil
}

// loadMetricsSet reads the snapshot and computes its metrics, going through
// the redis memoization layer when enabled.
func loadMetricsSet(ctx context.Context, cfg *config.Config, log *logrus.Logger, path string) (*metrics.Set, error) {
	snap, err := types.LoadSnapshot(path)
	if err != nil {
		return nil, err
	}
	logger.WithSnapshot(snap.Version).WithField("players", len(snap.Players)).Debug("Snapshot loaded")

	if !cfg.CacheEnabled {
		return metrics.Compute(snap, log), nil
	}

	cacheService, client, err := openCache(cfg, log)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if records, err := cacheService.GetMetrics(ctx, snap.Version); err == nil {
		return metrics.NewSet(snap, records), nil
	}

	set := metrics.Compute(snap, log)
	ttl := time.Duration(cfg.CacheTTL) * time.Second
	if err := cacheService.SetMetrics(ctx, snap.Version, set.Records, ttl); err != nil {
		logger.WithSnapshot(snap.Version).WithError(err).Warn("Failed to cache metrics records")
	}
	return set, nil
}

func loadSquad(path string) (*types.Squad, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read squad: %w", err)
	}
	var squad types.Squad
	if err := json.Unmarshal(raw, &squad); err != nil {
		return nil, fmt.Errorf("failed to parse squad: %w", err)
	}
	return &squad, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
