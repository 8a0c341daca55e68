// Package upstream fetches transaction pages from the block-explorer HTTP
// API. Pages are returned newest-first; the explorer owns the wire format
// and ordering guarantee, this package only adapts it to domain types.
package upstream

import (
	"context"
	"time"

	"github.com/liskstats/aggregator/internal/core/domain"
)

// Page is one page of transactions, newest-first, with an opaque token for
// the next page. An empty NextPageToken means the source is exhausted.
type Page struct {
	Transactions  []domain.Transaction
	NextPageToken string
}

// Source is the narrow fetch contract the ingestion engine depends on.
type Source interface {
	// FetchPage fetches one page of transactions for an address,
	// newest-first. An empty pageToken requests the first (newest) page.
	FetchPage(ctx context.Context, address, pageToken string) (Page, error)
}

// Config holds explorer client settings.
type Config struct {
	BaseURL  string        `yaml:"base_url"`
	PageSize int           `yaml:"page_size"`
	Timeout  time.Duration `yaml:"timeout"`

	Retry RetryConfig `yaml:"retry"`
}
