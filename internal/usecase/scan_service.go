package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/gifthawk/internal/domain/cycle"
	"github.com/riskibarqy/gifthawk/internal/domain/listing"
	"github.com/riskibarqy/gifthawk/internal/domain/settings"
	"github.com/riskibarqy/gifthawk/internal/platform/events"
	"github.com/riskibarqy/gifthawk/internal/platform/logging"
	"github.com/riskibarqy/gifthawk/internal/platform/pacing"
)

type ScanService struct {
	listings listing.Repository
	source   ListingSource
	bus      *events.Bus
	logger   *logging.Logger
	newPacer func(min, max time.Duration, maxActions int) *pacing.Pacer
}

func NewScanService(listings listing.Repository, source ListingSource, bus *events.Bus, logger *logging.Logger) *ScanService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ScanService{
		listings: listings,
		source:   source,
		bus:      bus,
		logger:   logger,
		newPacer: pacing.New,
	}
}

// Scan walks pages 1..maxPages through the pacer, merging every parsed row
// into storage. It stops early on the first page that adds or changes nothing.
// A page fetch failure ends the scan with the partial stats and the error;
// the next scheduled cycle is the retry.
func (s *ScanService) Scan(ctx context.Context, cfg settings.Settings, filters ScanFilters, maxPages int) (cycle.ScanStats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScanService.Scan")
	defer span.End()

	if maxPages <= 0 {
		maxPages = cfg.MaxScanPages
	}
	if maxPages <= 0 {
		maxPages = 1
	}

	delayMin, delayMax := cfg.EntryDelayBounds()
	pacer := s.newPacer(delayMin, delayMax, maxPages)

	stats := cycle.ScanStats{}
	for page := 1; page <= maxPages; page++ {
		if err := pacer.Next(ctx); err != nil {
			return stats, err
		}

		items, err := s.source.FetchListingsPage(ctx, page, filters)
		if err != nil {
			s.publish(events.TypeScanError, map[string]any{"reason": err.Error(), "page": page})
			s.logger.WarnContext(ctx, "scan page failed, returning partial results",
				"page", page,
				"error", err,
			)
			return stats, fmt.Errorf("fetch page %d: %w", page, err)
		}

		pageNew, pageChanged := 0, 0
		for _, item := range items {
			result, err := s.listings.Upsert(ctx, item)
			if err != nil {
				return stats, fmt.Errorf("upsert listing code=%s: %w", item.Code, err)
			}
			if result.Created {
				pageNew++
			} else if result.Changed {
				pageChanged++
			}
		}

		stats.New += pageNew
		stats.Updated += pageChanged
		stats.PagesScanned++

		s.publish(events.TypeScanProgress, map[string]any{
			"currentPage": page,
			"totalPages":  maxPages,
			"newCount":    pageNew,
		})

		// Diminishing returns: a page with nothing new or changed means the
		// remaining pages are the stable tail of the previous scan.
		if pageNew == 0 && pageChanged == 0 {
			break
		}
	}

	s.publish(events.TypeScanComplete, map[string]any{
		"new":     stats.New,
		"updated": stats.Updated,
	})
	s.logger.InfoContext(ctx, "scan complete",
		"new", stats.New,
		"updated", stats.Updated,
		"pages", stats.PagesScanned,
	)
	return stats, nil
}

func (s *ScanService) publish(t events.Type, data map[string]any) {
	if s.bus != nil {
		s.bus.Publish(t, data)
	}
}
