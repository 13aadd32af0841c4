package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"brokenweave/internal/model"
	"brokenweave/internal/search"
	"brokenweave/internal/validate"
	"brokenweave/pkg/logger"
	"brokenweave/pkg/metrics"
)

// SearchService runs missing-person searches and keeps each session's page.
type SearchService struct {
	reports MissingPersonStore
	queries SearchQueryStore
	effects Effects
	pages   *search.Pages
	logger  *zap.Logger
	now     func() time.Time
}

func NewSearchService(reports MissingPersonStore, queries SearchQueryStore, effects Effects, pages *search.Pages, logger *zap.Logger) *SearchService {
	if pages == nil {
		pages = search.NewPages()
	}
	return &SearchService{reports: reports, queries: queries, effects: effects, pages: pages, logger: logger, now: time.Now}
}

// Search composes c into a backend query, then applies the age filter. An
// explicit search is recorded as telemetry in the background.
func (s *SearchService) Search(ctx context.Context, c search.Criteria, userIP string) ([]model.MissingPerson, error) {
	if err := c.Validate(); err != nil {
		return nil, validate.Field("criteria", err.Error())
	}

	records, err := s.reports.Search(ctx, search.Compose(c))
	if err != nil {
		logger.WithTrace(ctx, s.logger).Error("Search failed", zap.Error(err))
		return nil, err
	}
	records = search.ApplyAge(records, c, s.now())

	kind := "default"
	if !c.IsEmpty() {
		kind = "explicit"
		s.recordQuery(ctx, c, userIP)
	}
	metrics.IncrementSearch(kind)
	return records, nil
}

// Submit runs c on the session's page. A response overtaken by a newer
// submission is discarded and reported as search.ErrStale.
func (s *SearchService) Submit(ctx context.Context, sessionID string, c search.Criteria, userIP string) (search.Snapshot, error) {
	page := s.pages.Get(sessionID)
	return page.Submit(ctx, c, func(ctx context.Context, c search.Criteria) ([]model.MissingPerson, error) {
		return s.Search(ctx, c, userIP)
	})
}

// Page returns the session's current search page.
func (s *SearchService) Page(sessionID string) search.Snapshot {
	return s.pages.Get(sessionID).Snapshot()
}

// Forget drops the session's page.
func (s *SearchService) Forget(sessionID string) {
	s.pages.Drop(sessionID)
}

func (s *SearchService) recordQuery(ctx context.Context, c search.Criteria, userIP string) {
	if s.queries == nil || s.effects == nil {
		return
	}
	q := &model.SearchQuery{
		SearchTerm: strings.TrimSpace(c.Term),
		AgeRange:   strings.TrimSpace(c.AgeRange),
		Location:   strings.TrimSpace(c.Location),
		UserIP:     userIP,
	}
	if cat := strings.ToLower(strings.TrimSpace(c.Category)); cat != "" && cat != "all" {
		q.Category = &cat
	}
	s.effects.Go(ctx, "search_telemetry", func(ctx context.Context) error {
		return s.queries.Insert(ctx, q)
	})
}
