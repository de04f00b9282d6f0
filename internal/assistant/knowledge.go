package assistant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/logger"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/r2client"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/resolver"
)

// Knowledge sources reported by Load and Source.
const (
	SourceEmbedded = "embedded"
	SourceFile     = "file"
	SourceObject   = "object"
)

// engine pairs a store with the resolver built over it.
type engine struct {
	store    *knowledge.Store
	resolver *resolver.Resolver
	source   string
	etag     string
}

// Knowledge holds the knowledge store in use and its resolver. The pair
// is swapped atomically, so a turn always sees one consistent version.
type Knowledge struct {
	current atomic.Pointer[engine]
	opts    []resolver.Option
}

// NewKnowledge wraps store. opts configure every resolver built over it.
func NewKnowledge(store *knowledge.Store, opts ...resolver.Option) *Knowledge {
	k := &Knowledge{opts: opts}
	k.replace(store, SourceEmbedded, "")
	return k
}

// Store returns the current store.
func (k *Knowledge) Store() *knowledge.Store { return k.current.Load().store }

// Resolver returns the resolver over the current store.
func (k *Knowledge) Resolver() *resolver.Resolver { return k.current.Load().resolver }

// Source names where the current store came from.
func (k *Knowledge) Source() string { return k.current.Load().source }

// Replace installs store as the current version.
func (k *Knowledge) Replace(store *knowledge.Store, source string) {
	k.replace(store, source, "")
}

func (k *Knowledge) replace(store *knowledge.Store, source, etag string) {
	k.current.Store(&engine{
		store:    store,
		resolver: resolver.New(store, k.opts...),
		source:   source,
		etag:     etag,
	})
}

func (k *Knowledge) load() *engine { return k.current.Load() }

// ObjectStore reads knowledge objects from a bucket.
type ObjectStore interface {
	Fetch(ctx context.Context, key string) ([]byte, string, error)
	HeadObject(ctx context.Context, key string) (string, error)
}

// LoadOptions selects the knowledge override sources.
type LoadOptions struct {
	File      string      // local file, tried first
	Objects   ObjectStore // nil disables the bucket
	ObjectKey string
	Store     []knowledge.Option
	Resolver  []resolver.Option
	Logger    *logger.Logger
}

// Load builds a Knowledge from the first usable source: the local file,
// then the bucket object, then the embedded data. A broken override is
// logged and skipped.
func Load(ctx context.Context, opts LoadOptions) (*Knowledge, error) {
	log := opts.Logger
	if log == nil {
		log = logger.New("info")
	}

	k := &Knowledge{opts: opts.Resolver}

	if opts.File != "" {
		store, err := knowledge.LoadFile(opts.File, opts.Store...)
		if err == nil {
			k.replace(store, SourceFile, "")
			log.WithField("file", opts.File).Info("Knowledge loaded from file")
			return k, nil
		}
		log.WithError(err).WithField("file", opts.File).Warn("Knowledge file rejected, trying next source")
	}

	if opts.Objects != nil && opts.ObjectKey != "" {
		store, etag, err := fetchObject(ctx, opts.Objects, opts.ObjectKey, opts.Store)
		if err == nil {
			k.replace(store, SourceObject, etag)
			log.WithField("key", opts.ObjectKey).Info("Knowledge loaded from object storage")
			return k, nil
		}
		log.WithError(err).WithField("key", opts.ObjectKey).Warn("Knowledge object rejected, using embedded data")
	}

	store, err := knowledge.Default(opts.Store...)
	if err != nil {
		return nil, fmt.Errorf("embedded knowledge: %w", err)
	}
	k.replace(store, SourceEmbedded, "")
	return k, nil
}

func fetchObject(ctx context.Context, objects ObjectStore, key string, opts []knowledge.Option) (*knowledge.Store, string, error) {
	data, etag, err := objects.Fetch(ctx, key)
	if err != nil {
		return nil, "", err
	}
	store, err := knowledge.Load(bytes.NewReader(data), opts...)
	if err != nil {
		return nil, "", err
	}
	return store, etag, nil
}

// Reloader polls the knowledge object and swaps in new versions.
type Reloader struct {
	knowledge *Knowledge
	objects   ObjectStore
	key       string
	storeOpts []knowledge.Option
	log       *logger.Logger

	mu sync.Mutex // serializes Check
}

// NewReloader creates a Reloader for key.
func NewReloader(k *Knowledge, objects ObjectStore, key string, log *logger.Logger, storeOpts ...knowledge.Option) *Reloader {
	if log == nil {
		log = logger.New("info")
	}
	return &Reloader{
		knowledge: k,
		objects:   objects,
		key:       key,
		storeOpts: storeOpts,
		log:       log.WithModule("knowledge"),
	}
}

// Check reloads the object when its ETag differs from the loaded version.
// It reports whether a new version was installed. Invalid data leaves the
// current version in place.
func (r *Reloader) Check(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	etag, err := r.objects.HeadObject(ctx, r.key)
	if err != nil {
		if errors.Is(err, r2client.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("head %s: %w", r.key, err)
	}

	cur := r.knowledge.load()
	if cur.source == SourceObject && etag != "" && etag == cur.etag {
		return false, nil
	}

	store, newTag, err := fetchObject(ctx, r.objects, r.key, r.storeOpts)
	if err != nil {
		return false, fmt.Errorf("reload %s: %w", r.key, err)
	}
	r.knowledge.replace(store, SourceObject, newTag)
	r.log.WithField("etag", newTag).Info("Knowledge reloaded")
	return true, nil
}

// Run checks every interval until ctx ends.
func (r *Reloader) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Check(ctx); err != nil && ctx.Err() == nil {
				r.log.WithError(err).Warn("Knowledge reload failed")
			}
		}
	}
}
