package smoke

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/fleetpower/internal/domain/ranking"
	"github.com/okian/fleetpower/pkg/logger"
)

// Run checks the service health, verifies the leaderboard ordering and
// compares every listed row with GET /rank. With cfg.Refresh set each listed
// account is also queued for rescoring.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	cfg = cfg.withDefaults()
	stats := Stats{StartTime: time.Now()}
	log := logger.Get().Named("smoke")
	c := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting smoke run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("topN", cfg.TopN),
		logger.Int("workers", cfg.Workers),
		logger.Bool("refresh", cfg.Refresh))

	if err := c.Health(ctx); err != nil {
		return stats, err
	}

	view, err := c.Leaderboard(ctx, cfg.TopN)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.Rows = len(view.Entries)
	stats.Problems = append(stats.Problems, VerifyOrdering(view.Entries)...)

	var mu sync.Mutex
	note := func(f func(*Stats)) {
		mu.Lock()
		f(&stats)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, want := range view.Entries {
		g.Go(func() error {
			got, err := c.Rank(gctx, want.Address)
			if err != nil {
				note(func(s *Stats) {
					s.Failed++
					s.Problems = append(s.Problems, fmt.Sprintf("rank %s: %v", want.Address, err))
				})
				return gctx.Err()
			}
			note(func(s *Stats) {
				s.Checked++
				if got.Rank != want.Rank || got.TotalPower != want.TotalPower {
					s.Mismatches++
					s.Problems = append(s.Problems, fmt.Sprintf(
						"%s: leaderboard rank %d power %d, rank endpoint rank %d power %d",
						want.Address, want.Rank, want.TotalPower, got.Rank, got.TotalPower))
				}
			})
			if !cfg.Refresh {
				return nil
			}
			status, err := c.Refresh(gctx, want.Address)
			note(func(s *Stats) {
				switch {
				case err != nil:
					s.Failed++
				case status == http.StatusAccepted:
					s.Queued++
				case status == http.StatusOK:
					s.Duplicates++
				case status == http.StatusTooManyRequests:
					s.Rejected++
				default:
					s.Failed++
				}
			})
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(stats.StartTime)
	log.Info(ctx, "smoke run finished",
		logger.Int("rows", stats.Rows),
		logger.Int("checked", stats.Checked),
		logger.Int("mismatches", stats.Mismatches),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration))

	if !stats.OK() {
		return stats, fmt.Errorf("%w: %d problem(s)", ErrInconsistent, len(stats.Problems))
	}
	return stats, nil
}

// VerifyOrdering checks that rows are sorted by power and that each rank is
// one plus the number of rows with strictly greater power.
func VerifyOrdering(rows []ranking.Entry) []string {
	var problems []string
	for i := range rows {
		if i > 0 && rows[i].TotalPower > rows[i-1].TotalPower {
			problems = append(problems, fmt.Sprintf("row %d has more power than row %d", i, i-1))
		}
		want := i + 1
		if i > 0 && rows[i].TotalPower == rows[i-1].TotalPower {
			want = rows[i-1].Rank
		}
		if rows[i].Rank != want {
			problems = append(problems, fmt.Sprintf("row %d (%s) has rank %d, want %d", i, rows[i].Address, rows[i].Rank, want))
		}
	}
	return problems
}
