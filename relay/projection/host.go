// Package projection hosts the named view functions scoreboards are built
// from. Each projection is a pure function of hub state, memoized on the
// platform's content version; clock and referee substates are overlaid on
// every response so cached views never go stale against the running timer.
package projection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openlifting/liftcast/competition"
	"github.com/openlifting/liftcast/config/params"
	"github.com/openlifting/liftcast/relay/assets"
	"github.com/openlifting/liftcast/relay/core/feed"
	"github.com/openlifting/liftcast/relay/core/feed/hub"
	"github.com/openlifting/liftcast/relay/projection/cache"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

var log = logrus.WithField("prefix", "projection")

var (
	// ErrUnknownProjection rejects queries naming a projection that was
	// never registered.
	ErrUnknownProjection = errors.New("unknown projection")
	// ErrNotReady is returned while the hub still waits for its
	// preconditions; requesters surface a waiting status.
	ErrNotReady = errors.New("waiting for competition data")
)

// HubReader is the part of the competition hub projections read from.
type HubReader interface {
	IsReady() bool
	ContentVersion(fop string) uint64
	Snapshot(fop string) *competition.FOPUpdate
	Database() *competition.Database
	Competition() *competition.Competition
	ListFOPs() []string
	Records() []competition.Record
	NewRecords() []competition.Record
	Translations(locale string) map[string]string
	SessionAthlete(fop string, key competition.FlexString) *competition.SessionAthlete
	AthleteByKey(key competition.FlexString) *competition.Athlete
	TeamName(id competition.FlexString) string
	AgeGroupFor(category string) string
}

// Request is what one projection computation gets to work with.
type Request struct {
	Reader  HubReader
	Assets  *assets.Resolver
	FOP     string
	Options Options
	Locale  string
}

// ComputeFunc renders one view from hub state. It must not embed timer or
// decision substate into its output, the host overlays those per response.
type ComputeFunc func(ctx context.Context, req *Request) (interface{}, error)

// Projection is one named view function with its option schema.
type Projection struct {
	Name        string
	Description string
	Schema      Schema
	Compute     ComputeFunc
}

// Config options for the projection host.
type Config struct {
	Reader   HubReader
	Assets   *assets.Resolver
	Notifier hub.Notifier
}

type entry struct {
	projection *Projection
	cache      *cache.ViewCache
}

// Host owns the projection registry and the memoization layer in front of
// every compute call.
type Host struct {
	cfg    *Config
	ctx    context.Context
	cancel context.CancelFunc
	lock   sync.RWMutex
	byName map[string]*entry
	names  []string
}

// NewHost initializes an empty projection host.
func NewHost(ctx context.Context, cfg *Config) *Host {
	ctx, cancel := context.WithCancel(ctx)
	return &Host{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		byName: make(map[string]*entry),
	}
}

// Register installs a projection and builds its cache.
func (h *Host) Register(p *Projection) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	if _, ok := h.byName[p.Name]; ok {
		return errors.Errorf("projection %q already registered", p.Name)
	}
	c, err := cache.NewViewCache(p.Name, params.Relay().ProjectionCacheSize)
	if err != nil {
		return errors.Wrapf(err, "could not build cache for %q", p.Name)
	}
	h.byName[p.Name] = &entry{projection: p, cache: c}
	insertSorted(&h.names, p.Name)
	return nil
}

func insertSorted(names *[]string, name string) {
	i := 0
	for i < len(*names) && (*names)[i] < name {
		i++
	}
	*names = append(*names, "")
	copy((*names)[i+1:], (*names)[i:])
	(*names)[i] = name
}

// Get returns a registered projection by name.
func (h *Host) Get(name string) (*Projection, bool) {
	h.lock.RLock()
	defer h.lock.RUnlock()
	e, ok := h.byName[name]
	if !ok {
		return nil, false
	}
	return e.projection, true
}

// List returns all registered projections sorted by name.
func (h *Host) List() []*Projection {
	h.lock.RLock()
	defer h.lock.RUnlock()
	out := make([]*Projection, 0, len(h.names))
	for _, name := range h.names {
		out = append(out, h.byName[name].projection)
	}
	return out
}

// Start begins watching the hub feed for reloads that invalidate every
// cached view at once.
func (h *Host) Start() {
	go h.watchReloads()
}

// Stop releases the feed subscription.
func (h *Host) Stop() error {
	h.cancel()
	return nil
}

// Status always returns nil.
func (h *Host) Status() error {
	return nil
}

// watchReloads clears all caches when content outside the per-platform
// version counters changes: translation tables, flag and style assets, and
// the database itself.
func (h *Host) watchReloads() {
	ch := make(chan *feed.Event, 16)
	sub := h.cfg.Notifier.HubFeed().Subscribe(ch)
	defer sub.Unsubscribe()
	for {
		select {
		case evt := <-ch:
			switch evt.Type {
			case hub.DatabaseLoaded, hub.TranslationsLoaded,
				hub.FlagsLoaded, hub.LogosLoaded, hub.PicturesLoaded, hub.StylesLoaded:
				cache.ClearAll()
				log.WithField("event", evt.Type).Debug("Cleared projection caches")
			}
		case err := <-sub.Err():
			log.WithError(err).Error("Hub feed subscription failed")
			return
		case <-h.ctx.Done():
			return
		}
	}
}

// Result is the envelope a query resolves to. Data is the memoized view;
// Timer, BreakTimer and Decision are extracted fresh from the platform on
// every call.
type Result struct {
	Type       string        `json:"type"`
	FOP        string        `json:"fop"`
	Options    Options       `json:"options,omitempty"`
	Data       interface{}   `json:"data"`
	Version    uint64        `json:"version"`
	Timer      *TimerView    `json:"timer,omitempty"`
	BreakTimer *TimerView    `json:"breakTimer,omitempty"`
	Decision   *DecisionView `json:"decision,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Query resolves one projection request through the cache.
func (h *Host) Query(ctx context.Context, name, fop string, rawOpts map[string]string, locale string) (*Result, error) {
	ctx, span := trace.StartSpan(ctx, "projection.Query")
	defer span.End()
	span.AddAttributes(
		trace.StringAttribute("projection", name),
		trace.StringAttribute("fop", fop),
	)

	h.lock.RLock()
	e, ok := h.byName[name]
	h.lock.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownProjection, "%q", name)
	}
	opts, err := e.projection.Schema.Canonicalize(rawOpts)
	if err != nil {
		return nil, err
	}
	if locale == "" {
		locale = params.Relay().DefaultLocale
	}
	if !h.cfg.Reader.IsReady() {
		return nil, ErrNotReady
	}

	version := h.cfg.Reader.ContentVersion(fop)
	key := cacheKey(name, fop, version, opts, locale)
	view, err := e.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if view == nil {
		markErr := e.cache.MarkInProgress(key)
		if errors.Is(markErr, cache.ErrAlreadyInProgress) {
			// An identical computation finished while we waited.
			view, err = e.cache.Get(ctx, key)
			if err != nil {
				return nil, err
			}
		} else {
			defer e.cache.MarkNotInProgress(key)
		}
	}
	if view == nil {
		view, err = e.projection.Compute(ctx, &Request{
			Reader:  h.cfg.Reader,
			Assets:  h.cfg.Assets,
			FOP:     fop,
			Options: opts,
			Locale:  locale,
		})
		if err != nil {
			// Failed computations are never cached.
			return nil, err
		}
		e.cache.Put(key, view)
	}

	res := &Result{
		Type:      name,
		FOP:       fop,
		Options:   opts,
		Data:      view,
		Version:   version,
		Timestamp: time.Now(),
	}
	h.overlay(res, fop)
	return res, nil
}

// overlay attaches the live clock and referee substates.
func (h *Host) overlay(res *Result, fop string) {
	snap := h.cfg.Reader.Snapshot(fop)
	if snap == nil {
		return
	}
	res.Timer = timerView(snap.AthleteTimer)
	res.BreakTimer = timerView(snap.BreakTimer)
	res.Decision = decisionView(snap.Decision)
}

func cacheKey(name, fop string, version uint64, opts Options, locale string) string {
	return fmt.Sprintf("%s|%s|%d|%s|%s", name, fop, version, opts.canonical(), locale)
}
