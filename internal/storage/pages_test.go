package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/nnrg-cse/nnrg-assistant-go/internal/errors"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewTestDB(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewFileDatabase(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "sub", "pages.db")
	db, err := New(context.Background(), dbPath, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = os.Stat(dbPath)
	require.NoError(t, err)
	assert.Equal(t, dbPath, db.Path())
	assert.Equal(t, time.Hour, db.PageTTL())
	assert.NoError(t, db.Ping(context.Background()))
}

func TestSaveAndGetPage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	text := strings.Repeat("NNRG offers B.Tech programs in CSE, ECE and EEE. ", 50)
	in := &Page{URL: "https://nnrg.edu.in/courses", Path: "/courses", Title: "Courses", Text: text}
	require.NoError(t, db.SavePage(ctx, in))
	assert.Equal(t, HashText(text), in.Hash)

	got, err := db.GetPage(ctx, in.URL)
	require.NoError(t, err)
	if diff := cmp.Diff(in, got, cmpopts.EquateApproxTime(time.Second)); diff != "" {
		t.Errorf("GetPage mismatch (-want +got):\n%s", diff)
	}

	hash, err := db.PageHash(ctx, in.URL)
	require.NoError(t, err)
	assert.Equal(t, in.Hash, hash)

	hash, err = db.PageHash(ctx, "https://nnrg.edu.in/missing")
	require.NoError(t, err)
	assert.Empty(t, hash)
}

func TestSavePageUpserts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.SavePage(ctx, &Page{URL: "u", Path: "/", Title: "Old", Text: "old"}))
	require.NoError(t, db.SavePage(ctx, &Page{URL: "u", Path: "/", Title: "New", Text: "new"}))

	n, err := db.CountPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, err := db.GetPage(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "New", p.Title)
	assert.Equal(t, "new", p.Text)
}

func TestSavePageRequiresURL(t *testing.T) {
	t.Parallel()
	var verr *domerrors.ValidationError
	assert.ErrorAs(t, newTestDB(t).SavePage(context.Background(), &Page{}), &verr)
}

func TestExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	now := time.Date(2025, time.March, 7, 9, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return now }

	require.NoError(t, db.SavePage(ctx, &Page{URL: "fresh", Path: "/a", Title: "A", Text: "a"}))
	require.NoError(t, db.SavePage(ctx, &Page{
		URL: "stale", Path: "/b", Title: "B", Text: "b",
		FetchedAt: now.Add(-200 * time.Hour),
	}))

	pages, err := db.ListPages(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "fresh", pages[0].URL)

	_, err = db.GetPage(ctx, "stale")
	assert.ErrorIs(t, err, domerrors.ErrNotFound)

	removed, err := db.DeleteExpiredPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	// Touching moves fetched_at to now.
	now = now.Add(100 * time.Hour)
	require.NoError(t, db.TouchPage(ctx, "fresh"))
	now = now.Add(100 * time.Hour)
	_, err = db.GetPage(ctx, "fresh")
	assert.NoError(t, err)
}

func TestSearchPagesByTitle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	for _, p := range []Page{
		{URL: "1", Path: "/1", Title: "Hostel Facilities", Text: "x"},
		{URL: "2", Path: "/2", Title: "Fee_Structure", Text: "y"},
		{URL: "3", Path: "/3", Title: "FeeXStructure", Text: "z"},
	} {
		require.NoError(t, db.SavePage(ctx, &p))
	}

	got, err := db.SearchPagesByTitle(ctx, "hostel")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].URL)

	got, err = db.SearchPagesByTitle(ctx, "Fee_")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].URL)
}

func TestReset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.SavePage(ctx, &Page{URL: "u", Path: "/", Text: "t"}))
	require.NoError(t, db.Reset(ctx))
	n, err := db.CountPages(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCompressionRoundTrip(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("library ", 1000)
	b, err := compressText(text)
	require.NoError(t, err)
	assert.Less(t, len(b), len(text))
	out, err := decompressText(b)
	require.NoError(t, err)
	assert.Equal(t, text, out)
}
