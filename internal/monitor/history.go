package monitor

import (
	"context"
	"time"

	"github.com/scadawatch/scadawatch/internal/history"
	"github.com/scadawatch/scadawatch/internal/types"
)

// HistoryFetcher loads single pages of alarm and meter history.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, q history.Query) (types.HistoryPage, error)
	FetchMeterHistory(ctx context.Context, q history.MeterQuery) (types.MeterPage, error)
}

// HistoryRequest selects alarm history.
type HistoryRequest struct {
	Filter   history.Filter
	Order    history.SortOrder
	PageSize int
	MaxPages int // 0 loads every page
}

// LoadHistory pages through the history endpoint and runs the aggregation
// pipeline over everything loaded. An invalid custom range fails before any
// request is made.
func LoadHistory(ctx context.Context, fetcher HistoryFetcher, req HistoryRequest, now time.Time) ([]types.HistoryRecord, error) {
	if err := req.Filter.Range.Validate(); err != nil {
		return nil, err
	}
	pager := history.NewPager(func(ctx context.Context, page int) ([]types.HistoryRecord, types.Pagination, error) {
		q, err := history.QueryFor(req.Filter, page, req.PageSize, req.Order)
		if err != nil {
			return nil, types.Pagination{}, err
		}
		p, err := fetcher.FetchHistory(ctx, q)
		if err != nil {
			return nil, types.Pagination{}, err
		}
		return p.Alarms, p.Pagination, nil
	})
	if err := drain(ctx, pager, req.MaxPages); err != nil {
		return nil, err
	}
	pages := []types.HistoryPage{{Alarms: pager.Items()}}
	return history.Aggregate(pages, req.Filter, req.Order, now)
}

// LoadMeterHistory pages through the meter history endpoint.
func LoadMeterHistory(ctx context.Context, fetcher HistoryFetcher, q history.MeterQuery, maxPages int) ([]types.MeterReading, error) {
	pager := history.NewPager(func(ctx context.Context, page int) ([]types.MeterReading, types.Pagination, error) {
		pq := q
		pq.Page = page
		p, err := fetcher.FetchMeterHistory(ctx, pq)
		if err != nil {
			return nil, types.Pagination{}, err
		}
		return p.Readings, p.Pagination, nil
	})
	if err := drain(ctx, pager, maxPages); err != nil {
		return nil, err
	}
	return pager.Items(), nil
}

func drain[T any](ctx context.Context, pager *history.Pager[T], maxPages int) error {
	for loaded := 0; pager.HasMore() && (maxPages <= 0 || loaded < maxPages); loaded++ {
		if _, err := pager.LoadMore(ctx); err != nil {
			return err
		}
	}
	return nil
}
