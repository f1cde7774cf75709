package services

import (
	"context"
	"fmt"
	"time"

	"finledger/internal/cache"
	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

const trendMonths = 6

// ReportService derives read-only aggregates from the ledger. Results are
// cached per user; any ledger write invalidates the whole user prefix.
type ReportService struct {
	store  storage.TransactionStore
	logger *log.Logger
	now    func() time.Time

	summaries  *cache.LRUCache[core.Summary]
	breakdowns *cache.LRUCache[[]core.CategoryShare]
	trends     *cache.LRUCache[[]core.MonthBucket]
}

func NewReportService(store storage.TransactionStore, manager *cache.Manager, logger *log.Logger) *ReportService {
	s := &ReportService{
		store:      store,
		logger:     logger.WithComponent(log.ComponentLedger),
		now:        time.Now,
		summaries:  cache.NewLRUCache[core.Summary](1024, 5*time.Minute),
		breakdowns: cache.NewLRUCache[[]core.CategoryShare](1024, 5*time.Minute),
		trends:     cache.NewLRUCache[[]core.MonthBucket](1024, 5*time.Minute),
	}
	if manager != nil {
		manager.Register(s.summaries)
		manager.Register(s.breakdowns)
		manager.Register(s.trends)
	}
	return s
}

// InvalidateUser drops every cached report for the user. Called by the
// transaction service after any ledger write.
func (s *ReportService) InvalidateUser(userID int64) {
	prefix := userPrefix(userID)
	s.summaries.DeletePrefix(prefix)
	s.breakdowns.DeletePrefix(prefix)
	s.trends.DeletePrefix(prefix)
}

func userPrefix(userID int64) string {
	return fmt.Sprintf("user:%d:", userID)
}

// MonthlySummary aggregates one calendar month of the ledger.
func (s *ReportService) MonthlySummary(ctx context.Context, userID int64, month string) (core.Summary, error) {
	from, to, err := core.MonthWindow(month)
	if err != nil {
		return core.Summary{}, err
	}

	key := userPrefix(userID) + "summary:" + month
	if cached, ok := s.summaries.Get(key); ok {
		return cached, nil
	}

	txs, err := s.store.TransactionsInWindow(ctx, userID, from, to)
	if err != nil {
		return core.Summary{}, err
	}
	sum := core.Summarize(txs)
	s.summaries.Set(key, sum)
	return sum, nil
}

// CategoryBreakdown partitions one month's expenses by category.
func (s *ReportService) CategoryBreakdown(ctx context.Context, userID int64, month string) ([]core.CategoryShare, error) {
	from, to, err := core.MonthWindow(month)
	if err != nil {
		return nil, err
	}

	key := userPrefix(userID) + "breakdown:" + month
	if cached, ok := s.breakdowns.Get(key); ok {
		return cached, nil
	}

	txs, err := s.store.TransactionsInWindow(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	shares := core.BreakdownByCategory(txs)
	s.breakdowns.Set(key, shares)
	return shares, nil
}

// Trend returns the trailing six-month series ending at the current month.
func (s *ReportService) Trend(ctx context.Context, userID int64) ([]core.MonthBucket, error) {
	ref := s.now().UTC()
	key := userPrefix(userID) + "trend:" + core.MonthKey(ref)
	if cached, ok := s.trends.Get(key); ok {
		return cached, nil
	}

	txs, err := s.store.TransactionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	buckets := core.MonthlyTrend(txs, ref, trendMonths)
	s.trends.Set(key, buckets)
	return buckets, nil
}
