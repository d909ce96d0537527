// Package store is the competition hub: the single owner of the parsed
// database, the merged per-platform updates, translation tables and version
// counters. All mutation is serialized through one mutex and every change is
// announced on the hub event feed. Readers get snapshots that the store
// replaces wholesale and never mutates in place.
package store

import (
	"sort"
	"strconv"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/openlifting/liftcast/competition"
	"github.com/openlifting/liftcast/relay/assets"
	"github.com/openlifting/liftcast/relay/core/feed"
	"github.com/openlifting/liftcast/relay/core/feed/hub"
	"github.com/openlifting/liftcast/relay/i18n"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "hub")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Precondition tags reported to the upstream while resources are missing.
const (
	PreconditionDatabase     = "database"
	PreconditionTranslations = "translations"
)

// Config holds the hub's collaborators.
type Config struct {
	Notifier hub.Notifier
	Merger   *i18n.Merger
	Assets   *assets.Resolver
}

// Store holds all competition state for the process.
type Store struct {
	cfg  *Config
	lock sync.RWMutex

	database *competition.Database
	roster   map[competition.FlexString]int
	teams    map[competition.FlexString]string
	ageGroup map[string]string

	raw       map[string]map[string]jsoniter.RawMessage
	fops      map[string]*competition.FOPUpdate
	athletes  map[string]map[competition.FlexString]*competition.SessionAthlete
	versions  map[string]uint64
	contents  map[string]uint64
	lifecycle map[string]competition.SessionLifecycle

	readyEmitted bool
}

// New creates an empty hub store.
func New(cfg *Config) *Store {
	return &Store{
		cfg:       cfg,
		roster:    make(map[competition.FlexString]int),
		teams:     make(map[competition.FlexString]string),
		ageGroup:  make(map[string]string),
		raw:       make(map[string]map[string]jsoniter.RawMessage),
		fops:      make(map[string]*competition.FOPUpdate),
		athletes:  make(map[string]map[competition.FlexString]*competition.SessionAthlete),
		versions:  make(map[string]uint64),
		contents:  make(map[string]uint64),
		lifecycle: make(map[string]competition.SessionLifecycle),
	}
}

// IsReady reports whether both the database and at least one translation
// table have been delivered.
func (s *Store) IsReady() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.database != nil && s.cfg.Merger.Ready()
}

// MissingPreconditions returns the resource tags the upstream still has to
// deliver before event frames can be processed.
func (s *Store) MissingPreconditions() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	missing := make([]string, 0, 2)
	if s.database == nil {
		missing = append(missing, PreconditionDatabase)
	}
	if !s.cfg.Merger.Ready() {
		missing = append(missing, PreconditionTranslations)
	}
	return missing
}

// Version returns the platform's state version. It increases on every merged
// frame for the platform, timer and decision frames included.
func (s *Store) Version(fop string) uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.versions[fop]
}

// ContentVersion returns the platform's content version. It increases only on
// frames that can change ordering, athletes or results, so it is the cache
// key component for rendered projections: timer and decision frames leave it
// unchanged and are overlaid on cached output instead.
func (s *Store) ContentVersion(fop string) uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.contents[fop]
}

// Snapshot returns the merged state of a platform, or nil when no frame has
// been seen for it. The snapshot is replaced wholesale on every merge and is
// safe to read concurrently.
func (s *Store) Snapshot(fop string) *competition.FOPUpdate {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.fops[fop]
}

// Database returns the parsed global state, or nil before the first database
// frame. The returned value is never mutated by the store.
func (s *Store) Database() *competition.Database {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.database
}

// Competition returns meet metadata, or nil before the first database frame.
func (s *Store) Competition() *competition.Competition {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.database == nil {
		return nil
	}
	c := s.database.Competition
	return &c
}

// ListFOPs returns the sorted union of the platforms the database declares
// and the platforms frames have been seen for.
func (s *Store) ListFOPs() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	seen := make(map[string]bool)
	if s.database != nil {
		for _, fop := range s.database.Competition.FOPs {
			seen[fop] = true
		}
	}
	for fop := range s.raw {
		seen[fop] = true
	}
	fops := make([]string, 0, len(seen))
	for fop := range seen {
		fops = append(fops, fop)
	}
	sort.Strings(fops)
	return fops
}

// Records returns a copy of the records table.
func (s *Store) Records() []competition.Record {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.database == nil {
		return nil
	}
	return append([]competition.Record(nil), s.database.Records...)
}

// NewRecords returns the records established during this meet, the entries
// whose session tag is set.
func (s *Store) NewRecords() []competition.Record {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.database == nil {
		return nil
	}
	var fresh []competition.Record
	for _, r := range s.database.Records {
		if r.SessionTag != "" {
			fresh = append(fresh, r)
		}
	}
	return fresh
}

// Translations returns the merged table for a locale with the merger's
// fallback chain applied.
func (s *Store) Translations(locale string) map[string]string {
	return s.cfg.Merger.Table(locale)
}

// Locales returns the locales with cached translation tables.
func (s *Store) Locales() []string {
	return s.cfg.Merger.Locales()
}

// SessionAthlete returns the display record for an athlete in the platform's
// running session, or nil.
func (s *Store) SessionAthlete(fop string, key competition.FlexString) *competition.SessionAthlete {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.athletes[fop][key]
}

// AthleteByKey returns the roster athlete for a key, or nil. Used to build
// display rows for athletes outside the running session.
func (s *Store) AthleteByKey(key competition.FlexString) *competition.Athlete {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.database == nil {
		return nil
	}
	i, ok := s.roster[key]
	if !ok {
		return nil
	}
	a := s.database.Athletes[i]
	return &a
}

// TeamName resolves a team id to its display name, falling back to the raw id.
func (s *Store) TeamName(id competition.FlexString) string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if name, ok := s.teams[id]; ok {
		return name
	}
	return id.String()
}

// AgeGroupFor returns the age group code owning a category code, or empty.
func (s *Store) AgeGroupFor(category string) string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.ageGroup[category]
}

// Lifecycle returns the platform's session machine state.
func (s *Store) Lifecycle(fop string) competition.SessionLifecycle {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.lifecycle[fop]
}

// ensureFOP creates the merge entry for an unknown platform. Frames that name
// a platform the database never declared are valid, the entry is created on
// first sight.
func (s *Store) ensureFOP(fop string) {
	if _, ok := s.raw[fop]; ok {
		return
	}
	s.raw[fop] = map[string]jsoniter.RawMessage{
		"fopName": jsoniter.RawMessage(strconv.Quote(fop)),
	}
	s.fops[fop] = &competition.FOPUpdate{FOPName: fop}
	s.lifecycle[fop] = competition.SessionActive
}

func (s *Store) bump(fop string) uint64 {
	s.versions[fop]++
	v := s.versions[fop]
	fopVersionGauge.WithLabelValues(fop).Set(float64(v))
	return v
}

func (s *Store) bumpContent(fop string) uint64 {
	s.contents[fop]++
	v := s.contents[fop]
	fopContentVersionGauge.WithLabelValues(fop).Set(float64(v))
	return v
}

func (s *Store) notify(eventType feed.EventType, data interface{}) {
	s.cfg.Notifier.HubFeed().Send(&feed.Event{Type: eventType, Data: data})
}
