package procexec

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/procwatch/internal/log"
)

// DefaultResolveTTL bounds how long a PATH lookup result is reused.
const DefaultResolveTTL = 5 * time.Minute

// LookPathFunc matches exec.LookPath.
type LookPathFunc func(file string) (string, error)

// Resolver caches executable lookups. Names containing a path separator are
// returned unchanged; failed lookups are never cached.
type Resolver struct {
	lookPath LookPathFunc
	cache    *gocache.Cache
}

// NewResolver creates a Resolver. A nil lookPath uses exec.LookPath.
func NewResolver(lookPath LookPathFunc, ttl time.Duration) *Resolver {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if ttl <= 0 {
		ttl = DefaultResolveTTL
	}
	return &Resolver{
		lookPath: lookPath,
		cache:    gocache.New(ttl, 2*ttl),
	}
}

// Resolve returns the executable path for name.
func (r *Resolver) Resolve(_ context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("resolve: empty program name")
	}
	if filepath.Base(name) != name {
		return name, nil
	}

	if cached, ok := r.cache.Get(name); ok {
		if path, ok := cached.(string); ok {
			log.Debug(log.CatCache, "lookpath hit", "name", name)
			return path, nil
		}
	}

	path, err := r.lookPath(name)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", name, err)
	}
	log.Debug(log.CatCache, "resolved executable", "name", name, "path", path)
	r.cache.SetDefault(name, path)
	return path, nil
}

// Forget drops a cached lookup, e.g. after the resolved binary vanished.
func (r *Resolver) Forget(_ context.Context, name string) {
	r.cache.Delete(name)
}

// Len returns the number of cached lookups, including expired ones not yet
// cleaned up.
func (r *Resolver) Len() int {
	return r.cache.ItemCount()
}
