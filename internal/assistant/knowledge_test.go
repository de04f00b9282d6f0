package assistant

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/r2client"
)

const defaultWelcomePrefix = "👋 Hi! I'm your NNRG Virtual Assistant."

func knowledgeWithWelcome(welcome string) []byte {
	return []byte(strings.Replace(string(knowledge.DefaultData()), defaultWelcomePrefix, welcome, 1))
}

type fakeObjects struct {
	mu      sync.Mutex
	data    []byte
	etag    string
	missing bool
	fetches int
}

func (f *fakeObjects) set(data []byte, etag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data, f.etag = data, etag
}

func (f *fakeObjects) Fetch(_ context.Context, _ string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.missing {
		return nil, "", r2client.ErrNotFound
	}
	return f.data, f.etag, nil
}

func (f *fakeObjects) HeadObject(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing {
		return "", r2client.ErrNotFound
	}
	return f.etag, nil
}

func TestLoadPrefersFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "knowledge.yaml")
	require.NoError(t, os.WriteFile(path, knowledgeWithWelcome("From file."), 0o600))
	objects := &fakeObjects{data: knowledgeWithWelcome("From bucket."), etag: "v1"}

	k, err := Load(context.Background(), LoadOptions{
		File:      path,
		Objects:   objects,
		ObjectKey: "knowledge.yaml",
		Logger:    quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, SourceFile, k.Source())
	assert.True(t, strings.HasPrefix(k.Store().Messages().Welcome, "From file."))
	assert.Zero(t, objects.fetches)
}

func TestLoadFallsThroughBrokenSources(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories: [oops"), 0o600))

	t.Run("object after broken file", func(t *testing.T) {
		t.Parallel()
		k, err := Load(context.Background(), LoadOptions{
			File:      path,
			Objects:   &fakeObjects{data: knowledgeWithWelcome("From bucket."), etag: "v1"},
			ObjectKey: "knowledge.yaml",
			Logger:    quietLogger(),
		})
		require.NoError(t, err)
		assert.Equal(t, SourceObject, k.Source())
		assert.True(t, strings.HasPrefix(k.Store().Messages().Welcome, "From bucket."))
	})

	t.Run("embedded after missing object", func(t *testing.T) {
		t.Parallel()
		k, err := Load(context.Background(), LoadOptions{
			File:      path,
			Objects:   &fakeObjects{missing: true},
			ObjectKey: "knowledge.yaml",
			Logger:    quietLogger(),
		})
		require.NoError(t, err)
		assert.Equal(t, SourceEmbedded, k.Source())
		assert.True(t, strings.HasPrefix(k.Store().Messages().Welcome, defaultWelcomePrefix))
	})
}

func TestReloaderSwapsOnNewETag(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	objects := &fakeObjects{data: knowledgeWithWelcome("Version one."), etag: "v1"}
	k, err := Load(ctx, LoadOptions{Objects: objects, ObjectKey: "k.yaml", Logger: quietLogger()})
	require.NoError(t, err)
	a := New(k, nil, Options{Logger: quietLogger()})
	r := NewReloader(k, objects, "k.yaml", quietLogger())

	changed, err := r.Check(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "same etag")
	assert.Equal(t, 1, objects.fetches)

	objects.set(knowledgeWithWelcome("Version two."), "v2")
	changed, err = r.Check(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, strings.HasPrefix(a.Welcome(), "Version two."))

	objects.set([]byte("not: [valid"), "v3")
	changed, err = r.Check(ctx)
	require.Error(t, err)
	assert.False(t, changed)
	assert.True(t, strings.HasPrefix(a.Welcome(), "Version two."), "bad data keeps the current version")
}

func TestReloaderReplacesEmbeddedData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	k := NewKnowledge(knowledge.MustDefault())
	objects := &fakeObjects{missing: true}
	r := NewReloader(k, objects, "k.yaml", quietLogger())

	changed, err := r.Check(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "missing object is not an error")

	objects.mu.Lock()
	objects.missing = false
	objects.data, objects.etag = knowledgeWithWelcome("Published."), "v1"
	objects.mu.Unlock()

	changed, err = r.Check(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, SourceObject, k.Source())
}

type failingObjects struct{ fakeObjects }

func (*failingObjects) HeadObject(context.Context, string) (string, error) {
	return "", errors.New("bucket unreachable")
}

func TestReloaderHeadError(t *testing.T) {
	t.Parallel()

	k := NewKnowledge(knowledge.MustDefault())
	_, err := NewReloader(k, &failingObjects{}, "k.yaml", quietLogger()).Check(context.Background())
	assert.ErrorContains(t, err, "bucket unreachable")
}
