package core

// lazy.go tracks asynchronous child loads for tree nodes.
//
// Each load gets a generation number and a cancellable context. Collapsing
// the node, starting another load for it, or replacing the dataset cancels the
// context and forgets the generation. When a result arrives it is applied only
// if its generation is still the current one for that node; otherwise it is
// discarded with ErrLoadDiscarded.

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrLoadDiscarded is reported when a lazy load resolves after its node was
	// collapsed, removed or reloaded.
	ErrLoadDiscarded = errors.New("lazy load result discarded")

	// ErrNotLoadable is returned when a load is requested for a node that does
	// not declare lazy children.
	ErrNotLoadable = errors.New("node is not lazily loadable")
)

// NodeLoader is the lazy tree-load collaborator. It returns the children of
// node; the rows' parent field may be left empty and is set to the node id.
type NodeLoader interface {
	LoadChildren(ctx context.Context, node TreeNode) ([]Row, error)
}

// NodeLoaderFunc adapts a function to NodeLoader.
type NodeLoaderFunc func(ctx context.Context, node TreeNode) ([]Row, error)

func (f NodeLoaderFunc) LoadChildren(ctx context.Context, node TreeNode) ([]Row, error) {
	return f(ctx, node)
}

// LoadResult is delivered once per lazy load.
type LoadResult struct {
	NodeID   string
	Children int
	Err      error
}

type pendingLoad struct {
	gen    uint64
	cancel context.CancelFunc
}

type loadTracker struct {
	mu      sync.Mutex
	gen     uint64
	pending map[string]pendingLoad
	loaded  map[string]bool
}

func newLoadTracker() *loadTracker {
	return &loadTracker{
		pending: make(map[string]pendingLoad),
		loaded:  make(map[string]bool),
	}
}

// begin registers a load for id, cancelling any earlier one.
func (t *loadTracker) begin(parent context.Context, id string) (context.Context, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.pending[id]; ok {
		p.cancel()
	}
	t.gen++
	ctx, cancel := context.WithCancel(parent)
	t.pending[id] = pendingLoad{gen: t.gen, cancel: cancel}
	return ctx, t.gen
}

// finish reports whether gen is still the current load for id and forgets it.
func (t *loadTracker) finish(id string, gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[id]
	if !ok || p.gen != gen {
		return false
	}
	p.cancel()
	delete(t.pending, id)
	return true
}

// cancel abandons the pending load for id.
func (t *loadTracker) cancel(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[id]
	if ok {
		p.cancel()
		delete(t.pending, id)
	}
	return ok
}

// cancelAll abandons every pending load.
func (t *loadTracker) cancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, p := range t.pending {
		p.cancel()
		delete(t.pending, id)
	}
}

// reset abandons every pending load and forgets loaded nodes.
func (t *loadTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, p := range t.pending {
		p.cancel()
		delete(t.pending, id)
	}
	t.loaded = make(map[string]bool)
}

func (t *loadTracker) isPending(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[id]
	return ok
}

func (t *loadTracker) markLoaded(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loaded[id] = true
}

func (t *loadTracker) isLoaded(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded[id]
}
