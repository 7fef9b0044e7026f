package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"aqi_relay/internal/adapters/observability"
	"aqi_relay/internal/domain"
)

// recordTimeout bounds the best-effort side writes made after a lookup.
const recordTimeout = 2 * time.Second

type LookupService struct {
	aqi     domain.AQIClient
	audit   domain.LookupLog  // nil disables the audit log
	popular domain.Popularity // nil disables popularity counting
	now     func() time.Time
}

func NewLookupService(c domain.AQIClient, audit domain.LookupLog, popular domain.Popularity) *LookupService {
	return &LookupService{aqi: c, audit: audit, popular: popular, now: time.Now}
}

// Lookup fetches the upstream feed for city and returns it unmodified.
// On failure the document is nil and err is a *domain.FetchError.
func (s *LookupService) Lookup(ctx context.Context, city string) (domain.Document, error) {
	start := s.now()
	doc, err := s.aqi.Feed(ctx, city)
	elapsed := s.now().Sub(start)

	rec := domain.LookupRecord{
		City:       city,
		Outcome:    outcomeOf(doc, err),
		DurationMS: elapsed.Milliseconds(),
		CreatedAt:  start.UTC(),
	}
	if err != nil {
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			rec.HTTPStatus = fe.Status
		}
		log.Warn().Err(err).Str("city", city).Str("kind", rec.Outcome).Msg("aqi lookup failed")
		doc = nil
	} else {
		rec.HTTPStatus = http.StatusOK
		rec.UpstreamStatus = domain.FeedStatus(doc)
	}
	observability.ObserveLookup(rec.Outcome)

	// side writes must not fail the lookup nor die with a cancelled request
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	s.record(wctx, rec)

	return doc, err
}

func (s *LookupService) record(ctx context.Context, rec domain.LookupRecord) {
	if s.audit != nil {
		err := s.audit.RecordLookup(ctx, rec)
		observability.ObserveRecorder("audit", err)
		if err != nil {
			log.Error().Err(err).Str("city", rec.City).Msg("record lookup failed")
		}
	}
	if s.popular != nil && rec.Outcome == domain.OutcomeOK {
		err := s.popular.Incr(ctx, NormalizeCity(rec.City))
		observability.ObserveRecorder("popular", err)
		if err != nil {
			log.Error().Err(err).Str("city", rec.City).Msg("popularity incr failed")
		}
	}
}

// Popular returns the n most looked-up cities; empty when counting is disabled.
func (s *LookupService) Popular(ctx context.Context, n int) ([]domain.CityCount, error) {
	if s.popular == nil {
		return []domain.CityCount{}, nil
	}
	return s.popular.Top(ctx, n)
}

// Recent returns the newest audit rows; empty when the audit log is disabled.
func (s *LookupService) Recent(ctx context.Context, limit int) ([]domain.LookupRecord, error) {
	if s.audit == nil {
		return []domain.LookupRecord{}, nil
	}
	return s.audit.RecentLookups(ctx, limit)
}

// outcomeOf labels a lookup for metrics and the audit log.
func outcomeOf(doc domain.Document, err error) string {
	if err != nil {
		if k := domain.KindOf(err); k != "" {
			return string(k)
		}
		return string(domain.KindTransport)
	}
	if domain.FeedStatus(doc) == "error" {
		return domain.OutcomeUpstreamError
	}
	return domain.OutcomeOK
}

// NormalizeCity folds case and surrounding space so "Paris " and "paris"
// count as one city.
func NormalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
