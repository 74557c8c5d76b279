// Package refresh runs the batch pipeline that rebuilds the treemap
// document: fetch history for the whole universe, derive quotes, assemble
// and persist. At most one run executes at a time.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seenimoa/marketmap/internal/events"
	"github.com/seenimoa/marketmap/internal/quote"
	"github.com/seenimoa/marketmap/internal/treemap"
	"github.com/seenimoa/marketmap/internal/universe"
	"github.com/seenimoa/marketmap/pkg/models"
	"github.com/seenimoa/marketmap/pkg/utils"
)

// Progress milestones reported through Status.
const (
	ProgressStart   = 0
	ProgressFetched = 50
	ProgressBuilt   = 80
	ProgressDone    = 100
)

// ErrAlreadyRunning is returned by Run while another refresh is in flight.
var ErrAlreadyRunning = errors.New("refresh already in progress")

// Source supplies batch history and market caps.
type Source interface {
	FetchBatchHistory(ctx context.Context, symbols []string, lookback string) (map[string][]models.Bar, error)
	FetchMarketCaps(ctx context.Context, symbols []string) (map[string]float64, error)
}

// Store persists a finished document.
type Store interface {
	Save(doc *models.Document) error
}

// Options wires a Controller.
type Options struct {
	Registry  *universe.Registry
	Source    Source
	Store     Store
	Engine    *quote.Engine
	Publisher events.Publisher
	Lookback  string        // provider range, default "5d"
	Timeout   time.Duration // bounds one run; 0 means none
	Path      string        // document location, reported in events
	Logger    *zap.Logger
	Now       func() time.Time
}

// Result summarises a successful run.
type Result struct {
	RunID    string
	Document *models.Document
	Resolved int // constituents with a price
	Failed   int // constituents without one
}

// Controller owns the process-wide refresh status.
type Controller struct {
	opts Options
	log  *zap.Logger

	running atomic.Bool

	mu       sync.RWMutex
	status   models.RefreshStatus
	onChange []func(models.RefreshStatus)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an idle controller.
func New(opts Options) *Controller {
	if opts.Registry == nil {
		opts.Registry = universe.Default()
	}
	if opts.Engine == nil {
		opts.Engine = quote.NewEngine(0)
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if opts.Lookback == "" {
		opts.Lookback = "5d"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		opts:   opts,
		log:    opts.Logger.Named("refresh"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// OnChange registers fn to receive a copy of the status after every
// mutation. fn runs on the mutating goroutine and must not block.
func (c *Controller) OnChange(fn func(models.RefreshStatus)) {
	c.mu.Lock()
	c.onChange = append(c.onChange, fn)
	c.mu.Unlock()
}

// Status returns a copy of the current status.
func (c *Controller) Status() models.RefreshStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyStatus(c.status)
}

// Start launches a refresh in the background. It returns false, leaving
// the status untouched, when a refresh is already running.
func (c *Controller) Start() bool {
	if !c.running.CompareAndSwap(false, true) {
		return false
	}
	runID := c.begin()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_, _ = c.execute(c.ctx, runID)
	}()
	return true
}

// Run executes a refresh synchronously.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	return c.execute(ctx, c.begin())
}

// Wait blocks until any background run has finished.
func (c *Controller) Wait() { c.wg.Wait() }

// Close cancels a background run and waits for it.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Controller) begin() string {
	runID := uuid.NewString()
	c.update(func(s *models.RefreshStatus) {
		s.IsRunning = true
		s.ProgressPercent = ProgressStart
		s.TotalCount = 0
		s.Message = "Starting data fetch..."
		s.RunID = runID
	})
	return runID
}

// execute runs the pipeline. The caller must hold the running flag; it is
// released by finish together with the final status update.
func (c *Controller) execute(ctx context.Context, runID string) (*Result, error) {
	start := c.opts.Now()
	log := c.log.With(zap.String("run_id", runID))
	log.Info("refresh started")

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	res, err := c.pipeline(ctx, runID, log)
	if err != nil {
		log.Error("refresh failed", zap.Error(err))
		c.finish(func(s *models.RefreshStatus) {
			s.Message = "Error: " + err.Error()
		})
		return nil, err
	}

	completed := c.opts.Now()
	c.finish(func(s *models.RefreshStatus) {
		s.ProgressPercent = ProgressDone
		s.Message = fmt.Sprintf("Done! %d stocks updated.", res.Resolved)
		s.LastCompletedAt = &completed
	})
	log.Info("refresh completed",
		zap.Int("resolved", res.Resolved),
		zap.Int("failed", res.Failed),
		zap.Duration("took", completed.Sub(start)),
	)

	ev := models.RefreshEvent{
		RunID:       runID,
		CompletedAt: completed,
		Resolved:    res.Resolved,
		Failed:      res.Failed,
		Path:        c.opts.Path,
	}
	if err := c.opts.Publisher.PublishRefresh(ctx, ev); err != nil {
		log.Warn("refresh event not published", zap.Error(err))
	}
	return res, nil
}

func (c *Controller) pipeline(ctx context.Context, runID string, log *zap.Logger) (*Result, error) {
	reg := c.opts.Registry
	symbols := reg.ProviderSymbols()
	c.update(func(s *models.RefreshStatus) {
		s.TotalCount = len(symbols)
		s.Message = fmt.Sprintf("Fetching %d tickers...", len(symbols))
	})

	history, err := c.opts.Source.FetchBatchHistory(ctx, symbols, c.opts.Lookback)
	if err != nil {
		return nil, err
	}

	constituents := symbols[:reg.Len()]
	caps, err := c.opts.Source.FetchMarketCaps(ctx, constituents)
	if err != nil {
		log.Warn("market caps unavailable, using placeholder", zap.Error(err))
		caps = nil
	}

	c.update(func(s *models.RefreshStatus) {
		s.ProgressPercent = ProgressFetched
		s.Message = "Processing data..."
	})

	derived := make(map[string]quote.Derived, len(symbols))
	for _, sym := range symbols {
		d := c.opts.Engine.FromBars(history[sym])
		if !d.Resolved() {
			log.Debug("unresolved", zap.String("symbol", utils.FromProviderSymbol(sym)))
			continue
		}
		if raw, ok := caps[sym]; ok {
			d.MarketCap = c.opts.Engine.NormalizeMarketCap(&raw)
		}
		derived[sym] = d
	}

	c.update(func(s *models.RefreshStatus) {
		s.ProgressPercent = ProgressBuilt
		s.Message = "Building output..."
	})

	doc := treemap.Assemble(reg, derived, c.opts.Engine.PlaceholderCap, c.opts.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.opts.Store.Save(doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	resolved, failed := doc.Count()
	return &Result{RunID: runID, Document: doc, Resolved: resolved, Failed: failed}, nil
}

// update applies fn under the lock and notifies listeners with a copy.
func (c *Controller) update(fn func(s *models.RefreshStatus)) {
	c.mu.Lock()
	fn(&c.status)
	snap := copyStatus(c.status)
	listeners := slices.Clone(c.onChange)
	c.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// finish applies the final status of a run and releases the running flag
// under the same lock, so a reader that sees IsRunning=false can start the
// next run.
func (c *Controller) finish(fn func(s *models.RefreshStatus)) {
	c.update(func(s *models.RefreshStatus) {
		fn(s)
		s.IsRunning = false
		c.running.Store(false)
	})
}

func copyStatus(s models.RefreshStatus) models.RefreshStatus {
	if s.LastCompletedAt != nil {
		t := *s.LastCompletedAt
		s.LastCompletedAt = &t
	}
	return s
}
