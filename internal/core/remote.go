package core

// remote.go defines the remote data-source contract and the block cache that
// sits between the windowing engine and a remote source.
//
// Rows are fetched in fixed-size blocks. Concurrent requests for the same
// block share one fetch. Every change to the sort or filter model bumps the
// model version and purges the cache; a block that arrives for an older
// version is discarded, so out-of-order responses never overwrite newer data.
// Least recently used blocks are evicted beyond maxBlocks.
//
// A shared fetch is detached from the callers that joined it: a caller whose
// context ends stops waiting, while the fetch keeps running for the others
// until FetchTimeout or Close.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrNoDataSource is returned by remote operations on a grid without a source.
var ErrNoDataSource = errors.New("no remote data source configured")

// ErrStaleBlock is returned when a fetched block belongs to an outdated sort
// or filter model.
var ErrStaleBlock = errors.New("stale remote block discarded")

// PageRequest asks a remote source for rows [StartRow, EndRow) under the
// given sort and filter models.
type PageRequest struct {
	StartRow    int                   `json:"startRow"`
	EndRow      int                   `json:"endRow"`
	Sort        []SortSpec            `json:"sortModel"`
	Filters     map[string]FilterSpec `json:"filterModel"`
	QuickFilter string                `json:"quickFilter,omitempty"`
}

// PageResult is a remote source's answer. TotalCount is the size of the whole
// filtered result set.
type PageResult struct {
	Rows       []Row `json:"rows"`
	TotalCount int   `json:"totalCount"`
}

// DataSource is the remote data-source collaborator.
type DataSource interface {
	FetchPage(ctx context.Context, req PageRequest) (PageResult, error)
}

// DataSourceFunc adapts a function to DataSource.
type DataSourceFunc func(ctx context.Context, req PageRequest) (PageResult, error)

func (f DataSourceFunc) FetchPage(ctx context.Context, req PageRequest) (PageResult, error) {
	return f(ctx, req)
}

// RemoteOptions configures a RemoteCache.
type RemoteOptions struct {
	BlockSize     int
	MaxBlocks     int
	MaxConcurrent int
	FetchTimeout  time.Duration
	Logger        *slog.Logger
}

// Default remote cache settings.
const (
	DefaultBlockSize = 100
	DefaultMaxBlocks = 50

	DefaultFetchTimeout = 30 * time.Second
)

type remoteModel struct {
	sort    []SortSpec
	filters map[string]FilterSpec
	quick   string
}

// RemoteCache caches blocks of remote rows for one sort/filter model.
type RemoteCache struct {
	src       DataSource
	blockSize int
	limiter   *FetchLimiter
	flight    singleflight.Group
	timeout   time.Duration
	logger    *slog.Logger

	closed   context.Context
	shutdown context.CancelFunc

	mu      sync.Mutex
	version uint64
	model   remoteModel
	blocks  *lru.Cache[int, []Row]
	total   int // -1 until the first block arrives
}

// NewRemoteCache creates a cache in front of src.
func NewRemoteCache(src DataSource, opts RemoteOptions) *RemoteCache {
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}
	if opts.MaxBlocks <= 0 {
		opts.MaxBlocks = DefaultMaxBlocks
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	closed, cancel := context.WithCancel(context.Background())
	blocks, err := lru.New[int, []Row](opts.MaxBlocks)
	if err != nil {
		// only fails for a non-positive size, excluded above
		panic(err)
	}
	return &RemoteCache{
		src:       src,
		blockSize: opts.BlockSize,
		limiter:   NewFetchLimiter(opts.MaxConcurrent, 0),
		timeout:   opts.FetchTimeout,
		logger:    opts.Logger,
		closed:    closed,
		shutdown:  cancel,
		blocks:    blocks,
		total:     -1,
	}
}

// Close cancels every fetch in flight, drops the cache and waits until the
// fetches have returned or ctx is done. Later fetches fail with
// ErrNoDataSource.
func (c *RemoteCache) Close(ctx context.Context) error {
	c.shutdown()
	c.Purge()
	return c.limiter.WaitForDrain(ctx)
}

// BlockSize returns the number of rows per block.
func (c *RemoteCache) BlockSize() int { return c.blockSize }

// Limiter exposes the fetch limiter for status reporting.
func (c *RemoteCache) Limiter() *FetchLimiter { return c.limiter }

// SetModel switches to a new sort/filter model. Cached blocks are dropped and
// fetches still in flight for the old model will be discarded. Setting an
// identical model is a no-op.
func (c *RemoteCache) SetModel(sort []SortSpec, filters map[string]FilterValue, quick string) uint64 {
	specs := make(map[string]FilterSpec, len(filters))
	for field, fv := range filters {
		specs[field] = SpecOf(fv)
	}
	next := remoteModel{sort: slices.Clone(sort), filters: specs, quick: quick}

	c.mu.Lock()
	defer c.mu.Unlock()
	if slices.Equal(c.model.sort, next.sort) && c.model.quick == next.quick &&
		maps.EqualFunc(c.model.filters, next.filters, filterSpecEqual) && c.version > 0 {
		return c.version
	}
	c.model = next
	c.version++
	c.blocks.Purge()
	c.total = -1
	return c.version
}

// Purge drops every cached block and invalidates in-flight fetches.
func (c *RemoteCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	c.blocks.Purge()
	c.total = -1
}

// Version returns the current model version.
func (c *RemoteCache) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// TotalCount returns the remote row count once any block has arrived.
func (c *RemoteCache) TotalCount() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total, c.total >= 0
}

// CachedBlocks returns the number of resident blocks.
func (c *RemoteCache) CachedBlocks() int { return c.blocks.Len() }

// Cached returns the resident rows of [start, end), nil for rows whose block
// is not cached, and the indices of the missing blocks.
func (c *RemoteCache) Cached(start, end int) ([]*Row, []int) {
	if end <= start {
		return nil, nil
	}
	out := make([]*Row, end-start)
	var missing []int
	for b := start / c.blockSize; b*c.blockSize < end; b++ {
		rows, ok := c.blocks.Get(b)
		if !ok {
			missing = append(missing, b)
			continue
		}
		base := b * c.blockSize
		for i := range rows {
			if idx := base + i; idx >= start && idx < end {
				out[idx-start] = &rows[i]
			}
		}
	}
	return out, missing
}

// Rows returns rows [start, end), fetching the blocks that are not cached.
// Missing blocks are fetched concurrently. The range is truncated to the
// remote total once it is known.
func (c *RemoteCache) Rows(ctx context.Context, start, end int) ([]Row, error) {
	if c.src == nil {
		return nil, ErrNoDataSource
	}
	if start < 0 {
		start = 0
	}
	if total, ok := c.TotalCount(); ok && end > total {
		end = total
	}
	_, missing := c.Cached(start, end)
	if len(missing) > 0 {
		version := c.Version()
		g, gctx := errgroup.WithContext(ctx)
		for _, b := range missing {
			g.Go(func() error {
				_, err := c.fetchBlock(gctx, b, version)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	if total, ok := c.TotalCount(); ok && end > total {
		end = total
	}
	cached, _ := c.Cached(start, end)
	out := make([]Row, 0, len(cached))
	for _, r := range cached {
		if r == nil {
			// evicted between fetch and read, or past the end of the data
			break
		}
		out = append(out, *r)
	}
	return out, nil
}

// fetchBlock loads one block for model version. Concurrent callers for the
// same block and version share a single fetch; each caller stops waiting when
// its own ctx ends.
func (c *RemoteCache) fetchBlock(ctx context.Context, block int, version uint64) ([]Row, error) {
	if c.closed.Err() != nil {
		return nil, ErrNoDataSource
	}
	key := strconv.FormatUint(version, 10) + ":" + strconv.Itoa(block)
	ch := c.flight.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		stop := context.AfterFunc(c.closed, cancel)
		defer stop()
		return c.loadBlock(fetchCtx, block, version)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Row), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *RemoteCache) loadBlock(ctx context.Context, block int, version uint64) ([]Row, error) {
	c.mu.Lock()
	model := c.model
	current := c.version
	c.mu.Unlock()
	if current != version {
		return nil, ErrStaleBlock
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.limiter.Release()

	req := PageRequest{
		StartRow:    block * c.blockSize,
		EndRow:      (block + 1) * c.blockSize,
		Sort:        model.sort,
		Filters:     model.filters,
		QuickFilter: model.quick,
	}
	res, err := c.src.FetchPage(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch rows %d-%d: %w", req.StartRow, req.EndRow, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != version {
		c.logger.Debug("discarding stale block", "block", block, "version", version, "current", c.version)
		return nil, ErrStaleBlock
	}
	c.blocks.Add(block, res.Rows)
	c.total = res.TotalCount
	return res.Rows, nil
}

func filterSpecEqual(a, b FilterSpec) bool {
	return reflect.DeepEqual(a, b)
}
