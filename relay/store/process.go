package store

import (
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/openlifting/liftcast/competition"
	"github.com/openlifting/liftcast/relay/archive"
	"github.com/openlifting/liftcast/relay/core/feed"
	"github.com/openlifting/liftcast/relay/core/feed/hub"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Timer frames may only touch clock substates, decision frames only the
// referee substate. Everything else a frame of that type carries is dropped
// so that ordering and athlete lists cannot change outside update frames.
var timerKeys = map[string]bool{
	"fopName":                true,
	"groupName":              true,
	"sessionName":            true,
	"athleteTimerEventType":  true,
	"athleteMillisRemaining": true,
	"athleteStartMillis":     true,
	"timeAllowed":            true,
	"breakTimerEventType":    true,
	"breakMillisRemaining":   true,
	"breakStartMillis":       true,
	"breakTimeAllowed":       true,
}

var decisionKeys = map[string]bool{
	"fopName":           true,
	"groupName":         true,
	"sessionName":       true,
	"decisionEventType": true,
	"refereeVotes":      true,
	"decisionsVisible":  true,
	"down":              true,
}

var archiveEvents = map[string]feed.EventType{
	archive.CategoryFlags:    hub.FlagsLoaded,
	archive.CategoryLogos:    hub.LogosLoaded,
	archive.CategoryPictures: hub.PicturesLoaded,
	archive.CategoryStyles:   hub.StylesLoaded,
}

// ProcessDatabase parses a database payload and atomically replaces the
// global state. Every known platform's versions are bumped so cached
// projections rendered from the previous roster stop matching.
func (s *Store) ProcessDatabase(payload []byte) error {
	db, err := competition.ParseDatabase(payload)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.database = db
	for _, fop := range db.Competition.FOPs {
		s.ensureFOP(fop)
	}
	for fop := range s.raw {
		s.bump(fop)
		s.bumpContent(fop)
	}
	framesProcessedCount.WithLabelValues("database").Inc()
	databaseReloadCount.Inc()

	format := db.FormatVersion
	if format == "" {
		format = "legacy"
	}
	s.notify(hub.DatabaseLoaded, &hub.DatabaseLoadedData{
		Format:       format,
		AthleteCount: len(db.Athletes),
		FOPs:         append([]string(nil), db.Competition.FOPs...),
	})

	s.rebuildIndexes()
	s.notify(hub.DatabaseReady, &hub.DatabaseReadyData{
		AthleteCount: len(db.Athletes),
		RecordCount:  len(db.Records),
	})
	log.WithFields(logrus.Fields{
		"athletes": len(db.Athletes),
		"teams":    len(db.Teams),
		"records":  len(db.Records),
		"fops":     len(db.Competition.FOPs),
	}).Info("Replaced competition database")

	s.maybeReady()
	return nil
}

// ProcessUpdate merges an update payload into its platform. Fields the
// payload does not carry keep their previous values, so a pure lifting-order
// change does not reset a running clock.
func (s *Store) ProcessUpdate(payload []byte) error {
	incoming, fop, err := decodeFrame(payload)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// The lifecycle machine keys off what this frame declares, not the
	// merged state, which keeps the last uiEvent until overwritten.
	frameUIEvent := ""
	if raw, ok := incoming["uiEvent"]; ok {
		if err := json.Unmarshal(raw, &frameUIEvent); err != nil {
			return errors.Wrap(err, "could not decode uiEvent")
		}
	}

	s.ensureFOP(fop)
	for key, value := range incoming {
		s.raw[fop][key] = value
	}
	u, err := s.materialize(fop)
	if err != nil {
		return err
	}
	s.patchRoster(u)
	version := s.bump(fop)
	s.bumpContent(fop)
	framesProcessedCount.WithLabelValues("update").Inc()

	if frameUIEvent == competition.UIEventGroupDone {
		s.lifecycle[fop] = competition.SessionDone
		sessionTransitionCount.WithLabelValues("done").Inc()
		log.WithFields(logrus.Fields{
			"fop":     fop,
			"session": u.SessionName,
		}).Info("Session declared done")
		s.notify(hub.SessionDone, &hub.SessionDoneData{FOP: fop, SessionName: u.SessionName})
	} else if s.lifecycle[fop] == competition.SessionDone {
		s.reopenSession(fop, u.SessionName)
	}

	s.notify(hub.UpdateReceived, &hub.UpdateReceivedData{
		FOP:     fop,
		UIEvent: frameUIEvent,
		Version: version,
	})
	log.WithFields(logrus.Fields{
		"fop":     fop,
		"uiEvent": frameUIEvent,
		"version": version,
	}).Debug("Merged update frame")
	return nil
}

// ProcessTimer merges a timer payload into its platform's clock substates.
func (s *Store) ProcessTimer(payload []byte) error {
	incoming, fop, err := decodeFrame(payload)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	version, u, err := s.mergeFiltered(incoming, fop, timerKeys, "timer")
	if err != nil {
		return err
	}
	s.notify(hub.TimerReceived, &hub.TimerReceivedData{FOP: fop, Version: version})
	if s.lifecycle[fop] == competition.SessionDone {
		s.reopenSession(fop, u.SessionName)
	}
	return nil
}

// ProcessDecision merges a decision payload into its platform's referee
// substate.
func (s *Store) ProcessDecision(payload []byte) error {
	incoming, fop, err := decodeFrame(payload)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	version, u, err := s.mergeFiltered(incoming, fop, decisionKeys, "decision")
	if err != nil {
		return err
	}
	s.notify(hub.DecisionReceived, &hub.DecisionReceivedData{
		FOP:       fop,
		EventType: string(u.Decision.EventType),
		Version:   version,
	})
	if s.lifecycle[fop] == competition.SessionDone {
		s.reopenSession(fop, u.SessionName)
	}
	return nil
}

// ProcessTranslations merges a bundle of locale tables delivered by a
// translations archive.
func (s *Store) ProcessTranslations(locales map[string]map[string]string, checksum string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	ingested, skipped := s.cfg.Merger.IngestBundle(locales, checksum)
	s.notify(hub.TranslationsLoaded, &hub.TranslationsLoadedData{
		Locales:  ingested,
		Checksum: checksum,
		Skipped:  skipped,
	})
	s.maybeReady()
}

// ArchiveExtracted records that an asset archive has been unpacked: memoized
// filesystem probes are flushed and the matching loaded event is emitted.
func (s *Store) ArchiveExtracted(category string, entryCount int) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.cfg.Assets != nil {
		s.cfg.Assets.Flush()
	}
	eventType, ok := archiveEvents[category]
	if !ok {
		log.WithField("category", category).Warn("Unknown archive category")
		return
	}
	s.notify(eventType, &hub.ArchiveLoadedData{Category: category, EntryCount: entryCount})
}

// mergeFiltered merges the allowed subset of a decoded payload into a
// platform and bumps its version. Callers hold the write lock.
func (s *Store) mergeFiltered(incoming map[string]jsoniter.RawMessage, fop string, allowed map[string]bool, frameType string) (uint64, *competition.FOPUpdate, error) {
	s.ensureFOP(fop)
	for key, value := range incoming {
		if allowed[key] {
			s.raw[fop][key] = value
		}
	}
	u, err := s.materialize(fop)
	if err != nil {
		return 0, nil, err
	}
	version := s.bump(fop)
	framesProcessedCount.WithLabelValues(frameType).Inc()
	log.WithFields(logrus.Fields{
		"fop":     fop,
		"version": version,
	}).Debug("Merged " + frameType + " frame")
	return version, u, nil
}

func (s *Store) reopenSession(fop, session string) {
	s.lifecycle[fop] = competition.SessionActive
	sessionTransitionCount.WithLabelValues("active").Inc()
	log.WithFields(logrus.Fields{
		"fop":     fop,
		"session": session,
	}).Info("Session reopened")
	s.notify(hub.SessionReopened, &hub.SessionReopenedData{FOP: fop, SessionName: session})
}

func (s *Store) maybeReady() {
	if s.readyEmitted || s.database == nil || !s.cfg.Merger.Ready() {
		return
	}
	s.readyEmitted = true
	log.Info("Competition hub ready")
	s.notify(hub.HubReady, &hub.HubReadyData{StartTime: time.Now()})
}

// materialize re-decodes a platform's merged raw state into a typed snapshot
// and swaps it in. The previous snapshot is left untouched for readers that
// still hold it.
func (s *Store) materialize(fop string) (*competition.FOPUpdate, error) {
	buf, err := json.Marshal(s.raw[fop])
	if err != nil {
		return nil, errors.Wrap(err, "could not serialize merged state")
	}
	u, err := competition.DecodeFOPUpdate(buf)
	if err != nil {
		return nil, err
	}
	if u.FOPName == "" {
		u.FOPName = fop
	}
	deriveOrderRefs(u, s.fops[fop])

	index := make(map[competition.FlexString]*competition.SessionAthlete, len(u.SessionAthletes))
	for i := range u.SessionAthletes {
		index[u.SessionAthletes[i].Key] = &u.SessionAthletes[i]
	}
	s.fops[fop] = u
	s.athletes[fop] = index
	return u, nil
}

// deriveOrderRefs fills the current, next and previous references when the
// upstream did not send them: current and next come from the head of the
// lifting order, previous from the snapshot being replaced.
func deriveOrderRefs(u, prev *competition.FOPUpdate) {
	keys := competition.Keys(u.LiftingOrderKeys)
	if len(keys) > 0 && u.CurrentAthleteKey.IsZero() {
		u.CurrentAthleteKey = keys[0]
	}
	if len(keys) > 1 && u.NextAthleteKey.IsZero() {
		u.NextAthleteKey = keys[1]
	}
	if u.PreviousAthleteKey.IsZero() && prev != nil &&
		!prev.CurrentAthleteKey.IsZero() && prev.CurrentAthleteKey != u.CurrentAthleteKey {
		u.PreviousAthleteKey = prev.CurrentAthleteKey
	}
}

// patchRoster copies fresher attempt results and ranks from session athletes
// back onto the roster, so consumers reading the database between full dumps
// see finished sessions' results. Identity fields are never patched. The
// roster slice is cloned first, handed-out snapshots stay stable.
func (s *Store) patchRoster(u *competition.FOPUpdate) {
	if s.database == nil || len(u.SessionAthletes) == 0 {
		return
	}
	db := *s.database
	db.Athletes = append([]competition.Athlete(nil), s.database.Athletes...)
	patched := false
	for i := range u.SessionAthletes {
		sa := &u.SessionAthletes[i]
		idx, ok := s.roster[sa.Key]
		if !ok {
			continue
		}
		if patchAthlete(&db.Athletes[idx], sa) {
			patched = true
		}
	}
	if patched {
		s.database = &db
	}
}

func patchAthlete(a *competition.Athlete, sa *competition.SessionAthlete) bool {
	changed := false
	for slot := 0; slot < competition.NumAttempts; slot++ {
		att := sessionAttempt(sa, slot)
		var actual string
		switch att.Status {
		case competition.AttemptGood:
			actual = att.DisplayValue
		case competition.AttemptFail:
			actual = strings.Trim(att.DisplayValue, "()")
			if actual != "" {
				actual = "-" + actual
			}
		default:
			continue
		}
		if actual != "" && a.RawAttempt(slot).ActualLift != actual {
			a.SetActualLift(slot, actual)
			changed = true
		}
	}
	if r, err := strconv.Atoi(sa.SnatchRank); err == nil && r != a.SnatchRank {
		a.SnatchRank = r
		changed = true
	}
	if r, err := strconv.Atoi(sa.CleanJerkRank); err == nil && r != a.CleanJerkRank {
		a.CleanJerkRank = r
		changed = true
	}
	if r, err := strconv.Atoi(sa.TotalRank); err == nil && r != a.TotalRank {
		a.TotalRank = r
		changed = true
	}
	return changed
}

func sessionAttempt(sa *competition.SessionAthlete, slot int) competition.Attempt {
	if slot < 3 {
		if slot < len(sa.SnatchAttempts) {
			return sa.SnatchAttempts[slot]
		}
		return competition.Attempt{}
	}
	if slot-3 < len(sa.CleanJerkAttempts) {
		return sa.CleanJerkAttempts[slot-3]
	}
	return competition.Attempt{}
}

func (s *Store) rebuildIndexes() {
	s.roster = make(map[competition.FlexString]int, len(s.database.Athletes))
	for i := range s.database.Athletes {
		s.roster[s.database.Athletes[i].Key] = i
	}
	s.teams = make(map[competition.FlexString]string, len(s.database.Teams))
	for i := range s.database.Teams {
		s.teams[s.database.Teams[i].ID] = s.database.Teams[i].Name
	}
	s.ageGroup = make(map[string]string)
	for i := range s.database.AgeGroups {
		for _, c := range s.database.AgeGroups[i].Categories {
			s.ageGroup[c] = s.database.AgeGroups[i].Code
		}
	}
}

// decodeFrame splits a payload into its top level keys and extracts the
// platform name. A payload without a fopName cannot be routed.
func decodeFrame(payload []byte) (map[string]jsoniter.RawMessage, string, error) {
	incoming := make(map[string]jsoniter.RawMessage)
	if err := json.Unmarshal(payload, &incoming); err != nil {
		return nil, "", errors.Wrap(err, "could not decode frame payload")
	}
	rawName, ok := incoming["fopName"]
	if !ok {
		return nil, "", errors.New("frame payload missing fopName")
	}
	var fop string
	if err := json.Unmarshal(rawName, &fop); err != nil {
		return nil, "", errors.Wrap(err, "could not decode fopName")
	}
	if fop == "" {
		return nil, "", errors.New("frame payload has empty fopName")
	}
	return incoming, fop, nil
}
