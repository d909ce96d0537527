// Package i18n caches translation tables per locale and merges regional
// variants over their base locale so every regional table carries the full
// key set.
package i18n

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	"github.com/openlifting/liftcast/config/features"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "i18n")

var checksumMismatchCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "translation_checksum_mismatch_total",
	Help: "The number of translation bundles whose recomputed checksum disagreed with the delivered one.",
})

// Merger owns the locale tables. Writes arrive from the hub context; reads
// come from concurrent projection calls.
type Merger struct {
	lock          sync.RWMutex
	defaultLocale string
	tables        map[string]map[string]string
	checksum      string
}

// NewMerger creates a merger that falls back to defaultLocale on lookups.
func NewMerger(defaultLocale string) *Merger {
	return &Merger{
		defaultLocale: defaultLocale,
		tables:        make(map[string]map[string]string),
	}
}

// baseOf returns the base locale of a regional tag, or empty when the tag
// has no region part.
func baseOf(locale string) string {
	if i := strings.IndexByte(locale, '-'); i > 0 {
		return locale[:i]
	}
	return ""
}

// Ingest merges one incoming locale table.
//
// A regional table is layered over its cached base so it ends up with the
// full key set. A base table is re-layered under every cached regional
// variant, preserving regional overrides.
func (m *Merger) Ingest(locale string, table map[string]string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ingestLocked(locale, table)
}

func (m *Merger) ingestLocked(locale string, table map[string]string) {
	if base := baseOf(locale); base != "" {
		if baseTable, ok := m.tables[base]; ok {
			table = overlay(baseTable, table)
		}
		m.tables[locale] = copyTable(table)
		return
	}

	m.tables[locale] = copyTable(table)
	prefix := locale + "-"
	for cached, regional := range m.tables {
		if strings.HasPrefix(cached, prefix) {
			m.tables[cached] = overlay(table, regional)
		}
	}
}

// IngestBundle processes a bulk delivery of locale tables. When the delivery
// carries the same checksum as the previous one the whole step is skipped
// and the cached tables stay untouched. Returns the locales processed and
// whether the delivery was skipped.
func (m *Merger) IngestBundle(locales map[string]map[string]string, checksum string) ([]string, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if checksum != "" && checksum == m.checksum && !features.Get().DisableTranslationChecksum {
		log.WithField("checksum", checksum).Debug("Translation bundle unchanged, skipping")
		return nil, true
	}

	names := make([]string, 0, len(locales))
	for locale := range locales {
		names = append(names, locale)
	}
	// Base locales sort before their regional variants, so one pass merges
	// correctly.
	sort.Strings(names)
	for _, locale := range names {
		m.ingestLocked(locale, locales[locale])
	}

	if checksum != "" {
		if computed := Checksum(locales); computed != checksum {
			checksumMismatchCount.Inc()
			log.WithFields(logrus.Fields{
				"delivered": checksum,
				"computed":  computed,
			}).Warn("Translation checksum mismatch, keeping delivered data")
		}
		m.checksum = checksum
	}
	return names, false
}

// Table returns the merged table for a locale, falling back to the base
// locale, then the configured default, then an empty map. The returned map
// is a copy.
func (m *Merger) Table(locale string) map[string]string {
	m.lock.RLock()
	defer m.lock.RUnlock()

	for _, candidate := range []string{locale, baseOf(locale), m.defaultLocale} {
		if candidate == "" {
			continue
		}
		if t, ok := m.tables[candidate]; ok {
			return copyTable(t)
		}
	}
	return map[string]string{}
}

// Locales lists the cached locale tags, sorted.
func (m *Merger) Locales() []string {
	m.lock.RLock()
	defer m.lock.RUnlock()

	names := make([]string, 0, len(m.tables))
	for locale := range m.tables {
		names = append(names, locale)
	}
	sort.Strings(names)
	return names
}

// Ready reports whether any table has been ingested.
func (m *Merger) Ready() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.tables) > 0
}

// Checksum computes the canonical digest of a bundle: locales sorted, keys
// within each locale sorted, concatenated as "locale|key|value" bytes,
// SHA-256, hex.
func Checksum(locales map[string]map[string]string) string {
	names := make([]string, 0, len(locales))
	for locale := range locales {
		names = append(names, locale)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, locale := range names {
		table := locales[locale]
		keys := make([]string, 0, len(table))
		for k := range table {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			h.Write([]byte(locale))
			h.Write([]byte{'|'})
			h.Write([]byte(k))
			h.Write([]byte{'|'})
			h.Write([]byte(table[k]))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func overlay(base, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

func copyTable(t map[string]string) map[string]string {
	c := make(map[string]string, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}
