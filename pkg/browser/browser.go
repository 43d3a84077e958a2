// Package browser holds the state of the region → country → state → city
// tree: which nodes are loaded, which one is selected, and the query
// parameters that mirror the selection. Children are fetched lazily the
// first time a node is selected.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/adrianmross/geo-tree/internal/logger"
	"github.com/adrianmross/geo-tree/internal/metrics"
	"github.com/adrianmross/geo-tree/pkg/geo"
	"github.com/adrianmross/geo-tree/pkg/geoapi"
	"github.com/adrianmross/geo-tree/pkg/query"
)

var (
	ErrUnknownNode = errors.New("unknown node")
	ErrSuperseded  = errors.New("request superseded")
	ErrClosed      = errors.New("browser closed")
)

// Fetcher is the data source. *geoapi.Client satisfies it.
type Fetcher interface {
	CountriesByRegion(ctx context.Context, region string) ([]geo.Record, error)
	StatesByCountry(ctx context.Context, countryID int64) ([]geo.Record, error)
	StateByCode(ctx context.Context, stateCode, countryCode string) (geo.Record, error)
	CitiesByState(ctx context.Context, stateID int64, countryCode string, first int) ([]geo.Record, error)
}

var _ Fetcher = (*geoapi.Client)(nil)

// FetchError records a failed child fetch. Selecting the node again retries.
type FetchError struct {
	Key   string
	Level geo.Level
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("load children of %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options configures a Browser.
type Options struct {
	// CitiesPageSize caps the cities fetched per state.
	CitiesPageSize int
	// Roots replaces the default region list.
	Roots []geo.Node
	// OnSelectChange runs after every selection change, outside the lock.
	OnSelectChange func(node geo.Node, tree geo.Tree)
}

type task struct {
	id     uint64
	cancel context.CancelFunc
}

// Browser is safe for concurrent use. Fetches run without holding the lock;
// results are applied to the newest snapshot.
type Browser struct {
	fetcher Fetcher
	opts    Options

	mu       sync.Mutex
	tree     geo.Tree
	selected string
	params   query.Params
	errs     map[string]*FetchError
	tasks    map[string]task
	seq      uint64
	epoch    uint64
	closed   bool
}

// New returns a Browser over the region list.
func New(f Fetcher, opts Options) *Browser {
	if opts.CitiesPageSize <= 0 {
		opts.CitiesPageSize = geoapi.DefaultCitiesPageSize
	}
	roots := opts.Roots
	if roots == nil {
		roots = geo.RegionsList()
	}
	return &Browser{
		fetcher: f,
		opts:    opts,
		tree:    geo.NewTree(roots),
		errs:    make(map[string]*FetchError),
		tasks:   make(map[string]task),
	}
}

// State is a consistent copy of everything a renderer needs.
type State struct {
	Tree     geo.Tree
	Selected string
	Params   query.Params
	Errors   map[string]error
	Pending  map[string]bool
}

// State returns the current snapshot.
func (b *Browser) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := State{
		Tree:     b.tree,
		Selected: b.selected,
		Params:   b.params,
		Errors:   make(map[string]error, len(b.errs)),
		Pending:  make(map[string]bool, len(b.tasks)),
	}
	for k, e := range b.errs {
		st.Errors[k] = e
	}
	for k := range b.tasks {
		st.Pending[k] = true
	}
	return st
}

// Tree returns the current snapshot of the hierarchy.
func (b *Browser) Tree() geo.Tree {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tree
}

// Selected returns the key of the highlighted node, or "".
func (b *Browser) Selected() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selected
}

// Params returns the query parameters mirroring the selection.
func (b *Browser) Params() query.Params {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.params
}

// Err returns the stored fetch error for key, if any.
func (b *Browser) Err(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.errs[key]; ok {
		return e
	}
	return nil
}

// Select handles a click on the node with key. An unloaded node has its
// children fetched and attached first; a city or an already loaded node is
// selected without any fetch. On failure the selection is left untouched and
// the error is kept for the node until a retry succeeds.
func (b *Browser) Select(ctx context.Context, key string) (geo.Node, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return geo.Node{}, ErrClosed
	}
	b.epoch++
	epoch := b.epoch
	node, ok := b.tree.Find(key)
	b.mu.Unlock()
	if !ok {
		return geo.Node{}, fmt.Errorf("select %s: %w", key, ErrUnknownNode)
	}

	if !node.Loaded && !node.IsLeaf() {
		loaded, err := b.load(ctx, node)
		if err != nil {
			return node, err
		}
		node = loaded
	}
	return b.selectIfCurrent(epoch, node)
}

// Restore runs the start-up cascade for p: the region is looked up among
// the roots and its countries loaded, then each following parameter is looked
// up among the children just fetched. A missing parameter or a name with no
// match ends the cascade quietly; a fetch failure ends it with the error.
// A Select or Restore started meanwhile stops the cascade with ErrSuperseded.
// The returned chain holds the nodes that were reached.
func (b *Browser) Restore(ctx context.Context, p query.Params) ([]geo.Node, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.epoch++
	epoch := b.epoch
	b.mu.Unlock()

	var chain []geo.Node
	for level := geo.Regions; level <= geo.Cities; level++ {
		name := p.Get(level)
		if name == "" {
			break
		}
		parent := ""
		if len(chain) > 0 {
			parent = chain[len(chain)-1].Key()
		}
		siblings, err := b.childrenIfCurrent(epoch, parent)
		if err != nil {
			return chain, fmt.Errorf("restore %s: %w", level.Param(), err)
		}
		node, ok := geo.FindInArray(siblings, name)
		if !ok {
			logger.L().Debug("restore_lookup_miss", "level", level.String(), "name", name)
			break
		}
		if !node.Loaded && !node.IsLeaf() {
			loaded, err := b.load(ctx, node)
			if err != nil {
				return chain, err
			}
			node = loaded
		}
		if node, err = b.selectIfCurrent(epoch, node); err != nil {
			return chain, err
		}
		chain = append(chain, node)
	}
	return chain, nil
}

// childrenIfCurrent returns the live children of parent, or the roots when
// parent is "", unless a newer Select or Restore has started since epoch.
func (b *Browser) childrenIfCurrent(epoch uint64, parent string) ([]geo.Node, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.epoch != epoch {
		return nil, ErrSuperseded
	}
	if parent == "" {
		return b.tree.Roots(), nil
	}
	node, ok := b.tree.Find(parent)
	if !ok {
		return nil, ErrUnknownNode
	}
	return node.Children, nil
}

// Retry re-runs the fetch for a node whose last attempt failed.
func (b *Browser) Retry(ctx context.Context, key string) (geo.Node, error) {
	if b.Err(key) == nil {
		node, ok := b.Tree().Find(key)
		if !ok {
			return geo.Node{}, fmt.Errorf("retry %s: %w", key, ErrUnknownNode)
		}
		return node, nil
	}
	return b.Select(ctx, key)
}

// Close cancels every in-flight fetch. Later calls fail with ErrClosed.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for k, t := range b.tasks {
		t.cancel()
		delete(b.tasks, k)
	}
}

// load fetches and attaches the children of node as a task bound to its key.
// A newer task for the same key cancels this one and its result is dropped.
func (b *Browser) load(ctx context.Context, node geo.Node) (geo.Node, error) {
	key := node.Key()
	taskCtx, id, current, err := b.begin(ctx, key)
	if err != nil {
		return node, err
	}
	if taskCtx == nil {
		return current, nil
	}
	records, fetchErr := b.fetchChildren(taskCtx, node)

	b.mu.Lock()
	if !b.finish(key, id) {
		b.mu.Unlock()
		metrics.StaleResultsTotal.Inc()
		logger.L().Debug("fetch_superseded", "key", key)
		return node, fmt.Errorf("load %s: %w", key, ErrSuperseded)
	}
	if fetchErr != nil {
		fe := &FetchError{Key: key, Level: node.Level, Err: fetchErr}
		b.errs[key] = fe
		b.mu.Unlock()
		logger.L().Warn("fetch_failed", "key", key, "err", fetchErr)
		return node, fe
	}
	tree, err := b.tree.Attach(key, records)
	if err != nil {
		b.mu.Unlock()
		return node, err
	}
	b.tree = tree
	delete(b.errs, key)
	updated, _ := tree.Find(key)
	b.mu.Unlock()
	logger.L().Debug("children_attached", "key", key, "count", len(records))
	return updated, nil
}

// begin registers a task for key. When the live snapshot already holds the
// children of key, no task is started and the loaded node is returned with a
// nil context.
func (b *Browser) begin(ctx context.Context, key string) (context.Context, uint64, geo.Node, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, 0, geo.Node{}, ErrClosed
	}
	current, ok := b.tree.Find(key)
	if !ok {
		return nil, 0, geo.Node{}, fmt.Errorf("load %s: %w", key, ErrUnknownNode)
	}
	if current.Loaded {
		return nil, 0, current, nil
	}
	if prev, ok := b.tasks[key]; ok {
		prev.cancel()
	}
	b.seq++
	taskCtx, cancel := context.WithCancel(ctx)
	b.tasks[key] = task{id: b.seq, cancel: cancel}
	return taskCtx, b.seq, current, nil
}

// finish reports whether id is still the live task for key. Callers hold mu.
func (b *Browser) finish(key string, id uint64) bool {
	t, ok := b.tasks[key]
	if !ok || t.id != id {
		return false
	}
	t.cancel()
	delete(b.tasks, key)
	return true
}

func (b *Browser) fetchChildren(ctx context.Context, node geo.Node) ([]geo.Record, error) {
	r := node.Record
	switch node.Level {
	case geo.Regions:
		return b.fetcher.CountriesByRegion(ctx, node.DisplayName())
	case geo.Countries:
		return b.fetcher.StatesByCountry(ctx, r.ID)
	case geo.States:
		state, err := b.fetcher.StateByCode(ctx, r.StateCode, r.CountryCode)
		if err != nil {
			return nil, err
		}
		return b.fetcher.CitiesByState(ctx, state.ID, r.CountryCode, b.opts.CitiesPageSize)
	}
	return nil, nil
}

// selectIfCurrent marks node selected unless a newer Select or Restore has
// started since epoch was taken.
func (b *Browser) selectIfCurrent(epoch uint64, node geo.Node) (geo.Node, error) {
	key := node.Key()
	b.mu.Lock()
	if b.epoch != epoch {
		b.mu.Unlock()
		return node, fmt.Errorf("select %s: %w", key, ErrSuperseded)
	}
	chain, ok := b.tree.Chain(key)
	if !ok {
		b.mu.Unlock()
		return node, fmt.Errorf("select %s: %w", key, ErrUnknownNode)
	}
	b.selected = key
	b.params = query.FromChain(chain)
	params := b.params
	tree := b.tree
	node = chain[len(chain)-1]
	b.mu.Unlock()

	metrics.SelectionsTotal.WithLabelValues(node.Level.String()).Inc()
	logger.L().Debug("node_selected", "key", key, "params", params.Encode())
	if b.opts.OnSelectChange != nil {
		b.opts.OnSelectChange(node, tree)
	}
	return node, nil
}
