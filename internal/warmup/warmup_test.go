package warmup

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/logger"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/scraper"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/sitedata"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/storage"
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/placements/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<title>Placements</title><p>Over 120 companies visited the campus for placements.</p>")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRunResetRecrawls(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	ctx := context.Background()
	db, err := storage.NewTestDB(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	client := scraper.NewClient(scraper.Options{Timeout: 5 * time.Second})
	log := logger.NewWithWriter("error", io.Discard)
	idx := sitedata.NewPageIndex(nil)
	opts := Options{BaseURL: srv.URL, Paths: []string{"/placements/"}, Index: idx}

	stats, err := Run(ctx, db, client, log, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Saved)
	assert.Equal(t, 1, idx.Len())

	stats, err = Run(ctx, db, client, log, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Unchanged)

	opts.Reset = true
	stats, err = Run(ctx, db, client, log, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Saved, "reset forgets stored hashes")

	n, err := db.CountPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunFailsWhenSiteDown(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	ctx := context.Background()
	db, err := storage.NewTestDB(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	client := scraper.NewClient(scraper.Options{Timeout: 5 * time.Second})
	_, err = Run(ctx, db, client, logger.NewWithWriter("error", io.Discard), Options{
		BaseURL: srv.URL,
		Paths:   []string{"/gone/"},
	})
	assert.ErrorContains(t, err, "crawl")
}

func TestParseList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"/", []string{"/"}},
		{"/about/, /contact/ ,,/events/", []string{"/about/", "/contact/", "/events/"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseList(tt.input), tt.input)
	}
}
