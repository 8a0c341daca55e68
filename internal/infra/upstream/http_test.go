package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testAddr = "0x5EB715d5A1B1B8F67e84AC40a320B0d8936cB5a5"

func testSource(t *testing.T, handler http.Handler) (*HTTPSource, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	src := NewHTTPSource(Config{
		BaseURL:  srv.URL,
		PageSize: 2,
		Timeout:  5 * time.Second,
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialDelay:    time.Millisecond,
			MaxDelay:        5 * time.Millisecond,
			BackoffMultiple: 2.0,
		},
	})
	return src, srv
}

func TestHTTPSource_FetchPage(t *testing.T) {
	var gotPath, gotItems, gotToken string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotItems = r.URL.Query().Get("items_count")
		gotToken = r.URL.Query().Get("page_token")

		resp := txPageResponse{
			Transactions: []wireTransaction{
				{
					Hash:        "0xbbb",
					Timestamp:   "2025-06-14T17:30:00Z",
					BlockNumber: 200,
					TxIndex:     3,
					Method:      "transfer",
					Fee:         "21000",
					To:          testAddr,
					Status:      "ok",
				},
				{
					Hash:        "0xaaa",
					Timestamp:   "2025-06-14T09:00:00Z",
					BlockNumber: 100,
					TxIndex:     0,
					To:          testAddr,
					Status:      "error",
				},
			},
			NextPageToken: "tok-2",
		}
		json.NewEncoder(w).Encode(resp)
	})

	src, _ := testSource(t, handler)
	page, err := src.FetchPage(context.Background(), testAddr, "")
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}

	if want := "/api/v2/addresses/" + testAddr + "/transactions"; gotPath != want {
		t.Errorf("path = %q, want %q", gotPath, want)
	}
	if gotItems != "2" {
		t.Errorf("items_count = %q, want 2", gotItems)
	}
	if gotToken != "" {
		t.Errorf("first page must not send page_token, got %q", gotToken)
	}

	if len(page.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(page.Transactions))
	}
	if page.NextPageToken != "tok-2" {
		t.Errorf("NextPageToken = %q, want tok-2", page.NextPageToken)
	}

	newest := page.Transactions[0]
	if newest.Hash != "0xbbb" || newest.BlockNumber != 200 || newest.TxIndex != 3 {
		t.Errorf("newest tx = %+v", newest)
	}
	if ts := time.Unix(newest.Timestamp, 0).UTC(); ts != time.Date(2025, 6, 14, 17, 30, 0, 0, time.UTC) {
		t.Errorf("timestamp = %v", ts)
	}
	if newest.Status != "ok" {
		t.Errorf("status = %q, want ok", newest.Status)
	}
	if page.Transactions[1].Status != "failed" {
		t.Errorf("error status should map to failed, got %q", page.Transactions[1].Status)
	}
}

func TestHTTPSource_SendsPageToken(t *testing.T) {
	var gotToken string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.URL.Query().Get("page_token")
		json.NewEncoder(w).Encode(txPageResponse{})
	})

	src, _ := testSource(t, handler)
	if _, err := src.FetchPage(context.Background(), testAddr, "tok-7"); err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if gotToken != "tok-7" {
		t.Errorf("page_token = %q, want tok-7", gotToken)
	}
}

func TestHTTPSource_RetriesServerErrors(t *testing.T) {
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(txPageResponse{})
	})

	src, _ := testSource(t, handler)
	if _, err := src.FetchPage(context.Background(), testAddr, ""); err != nil {
		t.Fatalf("FetchPage after retries failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestHTTPSource_ClientErrorIsFatal(t *testing.T) {
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "no such address", http.StatusNotFound)
	})

	src, _ := testSource(t, handler)
	_, err := src.FetchPage(context.Background(), testAddr, "")
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (client errors must not retry)", calls)
	}
	if !strings.Contains(err.Error(), "status 404") {
		t.Errorf("error should carry the status: %v", err)
	}
}

func TestHTTPSource_BadTimestampIsFatal(t *testing.T) {
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(txPageResponse{
			Transactions: []wireTransaction{
				{Hash: "0xaaa", Timestamp: "14/06/2025", BlockNumber: 100},
			},
		})
	})

	src, _ := testSource(t, handler)
	if _, err := src.FetchPage(context.Background(), testAddr, ""); err == nil {
		t.Fatal("expected decode error for malformed timestamp")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (decode errors must not retry)", calls)
	}
}
