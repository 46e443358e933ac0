package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/fleetpower/internal/adapters/chain"
	"github.com/okian/fleetpower/internal/adapters/provider"
	"github.com/okian/fleetpower/internal/config"
	"github.com/okian/fleetpower/internal/domain/power"
	"github.com/okian/fleetpower/internal/domain/ranking"
	"github.com/okian/fleetpower/internal/smoke"
	"github.com/okian/fleetpower/pkg/logger"
)

type rootOptions struct {
	provider string
	logLevel string
	out      io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{out: out}
	root := &cobra.Command{
		Use:           "fleetctl",
		Short:         "Score fleets and print the battle power leaderboard",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.provider, "provider", "", "Snapshot provider (mock/test/live); overrides FLEETPOWER_PROVIDER")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level")
	root.SetOut(out)

	root.AddCommand(newScoreCmd(opts), newBoardCmd(opts), newTiersCmd(opts), newSmokeCmd(opts))
	return root
}

func newScoreCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "score <address>",
		Short: "Compute battle power for one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, closeFn, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			snap, err := p.Snapshot(ctx, args[0])
			if err != nil {
				return err
			}
			res := power.Compute(snap.Ships, snap.Gems)
			return writeJSON(opts.out, struct {
				Address string `json:"address"`
				power.Result
			}{Address: snap.Address, Result: res})
		},
	}
}

func newBoardCmd(opts *rootOptions) *cobra.Command {
	var (
		limit       int
		concurrency int
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Scan every holder and print the ranked board",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p, closeFn, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			board, err := scanBoard(ctx, p, concurrency)
			if err != nil {
				return err
			}
			top := ranking.Top(board, limit)
			if asJSON {
				return writeJSON(opts.out, top)
			}
			tw := tabwriter.NewWriter(opts.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tADDRESS\tPOWER\tTIER\tSHIPS")
			for _, e := range top {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\n", e.Rank, e.DisplayAddress, e.TotalPower, e.Tier, e.ShipCount)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Rows to print")
	cmd.Flags().IntVar(&concurrency, "concurrency", 8, "Concurrent snapshot reads")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newTiersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tiers",
		Short: "Print tier thresholds",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			tw := tabwriter.NewWriter(opts.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIER\tMIN POWER")
			for _, t := range power.Tiers {
				fmt.Fprintf(tw, "%s\t%d\n", t.Name, t.MinPower)
			}
			return tw.Flush()
		},
	}
}

func newSmokeCmd(opts *rootOptions) *cobra.Command {
	cfg := smoke.Config{}
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Verify a running server's leaderboard against its rank endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.SetLevelString(opts.logLevel); err != nil {
				return err
			}
			stats, err := smoke.Run(cmd.Context(), cfg)
			fmt.Fprintf(opts.out, "rows=%d checked=%d mismatches=%d queued=%d duplicates=%d rejected=%d failed=%d duration=%s\n",
				stats.Rows, stats.Checked, stats.Mismatches, stats.Queued, stats.Duplicates, stats.Rejected, stats.Failed, stats.Duration)
			for _, p := range stats.Problems {
				fmt.Fprintln(opts.out, "  "+p)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	cmd.Flags().IntVar(&cfg.TopN, "top", 50, "Leaderboard rows to verify")
	cmd.Flags().IntVar(&cfg.Workers, "workers", 8, "Concurrent rank lookups")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	cmd.Flags().BoolVar(&cfg.Refresh, "refresh", false, "Queue a rescore for every listed account")
	return cmd
}

// scanBoard scores every holder of p and ranks the non-empty fleets.
func scanBoard(ctx context.Context, p provider.Provider, concurrency int) ([]ranking.Entry, error) {
	holders, err := p.Holders(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]ranking.Entry, len(holders))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, h := range holders {
		g.Go(func() error {
			snap, err := p.Snapshot(gctx, h)
			if err != nil {
				return fmt.Errorf("snapshot %s: %w", h, err)
			}
			entries[i] = ranking.EntryFor(snap.Address, power.Compute(snap.Ships, snap.Gems))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scored := entries[:0]
	for _, e := range entries {
		if e.TotalPower > 0 {
			scored = append(scored, e)
		}
	}
	return ranking.Rank(scored), nil
}

// open loads configuration and builds the provider it names.
func (o *rootOptions) open(ctx context.Context) (provider.Provider, func(), error) {
	if err := logger.SetLevelString(o.logLevel); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	if o.provider != "" {
		cfg.Provider = o.provider
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}

	closeFn := func() {}
	var caller bind.ContractCaller
	if cfg.Provider != config.ProviderMock {
		client, err := chain.Dial(ctx, cfg.RPCURL)
		if err != nil {
			return nil, nil, err
		}
		caller, closeFn = client, client.Close
	}
	p, err := provider.New(cfg, caller)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return p, closeFn, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
