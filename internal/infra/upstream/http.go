package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/liskstats/aggregator/internal/core/domain"
)

// HTTPSource implements Source against an explorer REST endpoint.
type HTTPSource struct {
	cfg        Config
	httpClient *http.Client
}

// NewHTTPSource creates a new explorer client.
func NewHTTPSource(cfg Config) *HTTPSource {
	cfg.Retry.applyDefaults()
	if cfg.PageSize == 0 {
		cfg.PageSize = 50
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPSource{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// wire format of the explorer transactions endpoint
type txPageResponse struct {
	Transactions  []wireTransaction `json:"transactions"`
	NextPageToken string            `json:"next_page_token"`
}

type wireTransaction struct {
	Hash        string `json:"hash"`
	Timestamp   string `json:"timestamp"` // RFC3339, UTC
	BlockNumber uint64 `json:"block_number"`
	TxIndex     uint64 `json:"tx_index"`
	Method      string `json:"method"`
	Fee         string `json:"fee"`
	To          string `json:"to"`
	Status      string `json:"status"` // "ok" | "error"
}

// FetchPage fetches one page of transactions, newest-first, retrying
// transient failures with backoff.
func (s *HTTPSource) FetchPage(ctx context.Context, address, pageToken string) (Page, error) {
	var page Page
	err := doWithRetry(ctx, s.cfg.Retry, func() error {
		p, err := s.fetchOnce(ctx, address, pageToken)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return Page{}, fmt.Errorf("fetch page for %s: %w", address, err)
	}
	return page, nil
}

func (s *HTTPSource) fetchOnce(ctx context.Context, address, pageToken string) (Page, error) {
	endpoint, err := url.Parse(s.cfg.BaseURL + "/api/v2/addresses/" + url.PathEscape(address) + "/transactions")
	if err != nil {
		return Page{}, fmt.Errorf("build request url: %w", err)
	}
	q := endpoint.Query()
	q.Set("items_count", strconv.Itoa(s.cfg.PageSize))
	if pageToken != "" {
		q.Set("page_token", pageToken)
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("explorer call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("explorer status %d: %s", resp.StatusCode, truncate(body, 256))
	}

	var wire txPageResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return Page{}, fmt.Errorf("decode response: %w", err)
	}

	page := Page{NextPageToken: wire.NextPageToken}
	page.Transactions = make([]domain.Transaction, 0, len(wire.Transactions))
	for _, wt := range wire.Transactions {
		tx, err := wt.toDomain()
		if err != nil {
			return Page{}, fmt.Errorf("decode response: tx %s: %w", wt.Hash, err)
		}
		page.Transactions = append(page.Transactions, tx)
	}
	return page, nil
}

func (wt *wireTransaction) toDomain() (domain.Transaction, error) {
	ts, err := time.Parse(time.RFC3339, wt.Timestamp)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("bad timestamp %q: %w", wt.Timestamp, err)
	}

	status := domain.TxStatusFailed
	if wt.Status == "ok" {
		status = domain.TxStatusOK
	}

	return domain.Transaction{
		Hash:        wt.Hash,
		Timestamp:   ts.Unix(),
		BlockNumber: wt.BlockNumber,
		TxIndex:     wt.TxIndex,
		Method:      wt.Method,
		Fee:         wt.Fee,
		To:          wt.To,
		Status:      status,
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
