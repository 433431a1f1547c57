package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeshinnorbu/claw/internal/config"
	"go.uber.org/zap"
)

func testClient(t *testing.T, srv *httptest.Server, pageSize, maxPages int) *Client {
	t.Helper()
	return NewClient(config.Config{
		SourceBaseURL: srv.URL,
		WCKey:         "ck_test",
		WCSecret:      "cs_test",
		PageSize:      pageSize,
		PageDelay:     time.Millisecond,
		MaxPages:      maxPages,
	}, zap.NewNop())
}

func arrayOf(n int) []json.RawMessage {
	items := make([]json.RawMessage, n)
	for i := range items {
		items[i] = json.RawMessage(fmt.Sprintf(`{"id":%d}`, i))
	}
	return items
}

func TestFetchAll_BareArrayStopsAfterShortPage(t *testing.T) {
	pages := map[int]int{1: 100, 2: 100, 3: 40}
	var requested []int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		requested = append(requested, page)
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		_ = json.NewEncoder(w).Encode(arrayOf(pages[page]))
	}))
	defer srv.Close()

	client := testClient(t, srv, 100, 200)
	records, err := client.FetchAll(context.Background(), Endpoint{Name: "wc_orders", Path: "wc/v3/orders"})

	require.NoError(t, err)
	assert.Len(t, records, 240)
	assert.Equal(t, []int{1, 2, 3}, requested, "stops after the short page")
}

func TestFetchAll_EnvelopeHonorsTotalPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		require.LessOrEqual(t, page, 2)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"events":      arrayOf(2),
			"total_pages": 2,
		})
	}))
	defer srv.Close()

	client := testClient(t, srv, 100, 200)
	records, err := client.FetchAll(context.Background(), Endpoint{Name: "events", Path: "tribe/events/v1/events"})

	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestFetchAll_HardPageCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(arrayOf(1))
	}))
	defer srv.Close()

	client := testClient(t, srv, 1, 3)
	records, err := client.FetchAll(context.Background(), Endpoint{Name: "wp_posts", Path: "wp/v2/posts"})

	require.NoError(t, err)
	assert.Len(t, records, 3, "runaway pagination is bounded by the page cap")
}

func TestFetchAll_BasicAuthOnlyWhenConfigured(t *testing.T) {
	var sawAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		sawAuth = ok
		if ok {
			assert.Equal(t, "ck_test", user)
			assert.Equal(t, "cs_test", pass)
		}
		_ = json.NewEncoder(w).Encode(arrayOf(0))
	}))
	defer srv.Close()

	client := testClient(t, srv, 100, 200)

	_, err := client.FetchAll(context.Background(), Endpoint{Name: "wc_customers", Path: "wc/v3/customers", Auth: AuthBasic})
	require.NoError(t, err)
	assert.True(t, sawAuth)

	_, err = client.FetchAll(context.Background(), Endpoint{Name: "events", Path: "tribe/events/v1/events"})
	require.NoError(t, err)
	assert.False(t, sawAuth)
}

func TestFetchAll_MidPaginationErrorKeepsPartialResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page >= 2 {
			http.Error(w, "server melted", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(arrayOf(2))
	}))
	defer srv.Close()

	client := testClient(t, srv, 2, 200)
	records, err := client.FetchAll(context.Background(), Endpoint{Name: "wc_orders", Path: "wc/v3/orders"})

	assert.Error(t, err)
	assert.Len(t, records, 2, "pages retrieved before the failure are kept")
}
