package usecase

import (
	"context"

	"github.com/riskibarqy/gifthawk/internal/domain/account"
	"github.com/riskibarqy/gifthawk/internal/domain/listing"
)

// ScanFilters narrows a remote listings page fetch.
type ScanFilters struct {
	Wishlist bool
	DLC      bool
	Query    string
}

// EntryOutcome is the remote site's answer to one entry submission.
// Success false with a Reason is a rejection, not a transport error.
type EntryOutcome struct {
	Success bool
	Reason  string
}

// Capabilities implemented by the scraping client.
type (
	ListingSource interface {
		FetchListingsPage(ctx context.Context, page int, filters ScanFilters) ([]listing.Listing, error)
	}

	EntrySubmitter interface {
		SubmitEntry(ctx context.Context, code string) (EntryOutcome, error)
	}

	AccountFetcher interface {
		FetchAccountState(ctx context.Context) (account.State, error)
	}

	ListingHider interface {
		HideListing(ctx context.Context, gameID string) error
	}

	WinsFetcher interface {
		FetchWonListings(ctx context.Context) ([]string, error)
	}

	EnteredFetcher interface {
		FetchEnteredListings(ctx context.Context) ([]string, error)
	}

	DescriptionFetcher interface {
		FetchListingDescription(ctx context.Context, code string) (string, error)
	}
)
