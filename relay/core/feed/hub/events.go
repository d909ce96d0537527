// Package hub contains the events fired by the competition hub as frames are
// ingested: database and asset loads, per-platform updates, timer and
// decision changes, and session lifecycle transitions.
package hub

import (
	"time"
)

const (
	// DatabaseLoaded is sent after a database payload has replaced the global state.
	DatabaseLoaded = iota + 1
	// DatabaseReady follows DatabaseLoaded once lookup indexes are rebuilt.
	DatabaseReady
	// UpdateReceived is sent after an update frame has been merged into a platform.
	UpdateReceived
	// TimerReceived is sent after a timer frame has been merged into a platform.
	TimerReceived
	// DecisionReceived is sent after a decision frame has been merged into a platform.
	DecisionReceived
	// SessionDone is sent when a platform's session is declared over.
	SessionDone
	// SessionReopened is sent when activity resumes on a platform in the done state.
	SessionReopened
	// HubReady is sent the first time both database and translations are present.
	HubReady
	// FlagsLoaded is sent after a flags archive has been extracted.
	FlagsLoaded
	// LogosLoaded is sent after a logos archive has been extracted.
	LogosLoaded
	// PicturesLoaded is sent after a pictures archive has been extracted.
	PicturesLoaded
	// StylesLoaded is sent after a styles archive has been extracted.
	StylesLoaded
	// TranslationsLoaded is sent after translation tables have been merged.
	TranslationsLoaded
)

// DatabaseLoadedData is the data sent with DatabaseLoaded events.
type DatabaseLoadedData struct {
	// Format is the database payload format that was parsed.
	Format string
	// AthleteCount is the roster size after the load.
	AthleteCount int
	// FOPs are the platform names the database declares.
	FOPs []string
}

// DatabaseReadyData is the data sent with DatabaseReady events.
type DatabaseReadyData struct {
	AthleteCount int
	RecordCount  int
}

// UpdateReceivedData is the data sent with UpdateReceived events.
type UpdateReceivedData struct {
	FOP     string
	UIEvent string
	// Version is the platform's state version after the merge.
	Version uint64
}

// TimerReceivedData is the data sent with TimerReceived events.
type TimerReceivedData struct {
	FOP     string
	Version uint64
}

// DecisionReceivedData is the data sent with DecisionReceived events.
type DecisionReceivedData struct {
	FOP       string
	EventType string
	Version   uint64
}

// SessionDoneData is the data sent with SessionDone events.
type SessionDoneData struct {
	FOP         string
	SessionName string
}

// SessionReopenedData is the data sent with SessionReopened events.
type SessionReopenedData struct {
	FOP         string
	SessionName string
}

// HubReadyData is the data sent with HubReady events.
type HubReadyData struct {
	// StartTime is the time at which the hub became ready to serve.
	StartTime time.Time
}

// ArchiveLoadedData is the data sent with the FlagsLoaded, LogosLoaded,
// PicturesLoaded and StylesLoaded events.
type ArchiveLoadedData struct {
	Category   string
	EntryCount int
}

// TranslationsLoadedData is the data sent with TranslationsLoaded events.
type TranslationsLoadedData struct {
	Locales  []string
	Checksum string
	// Skipped is true when the delivery matched the stored checksum and
	// reprocessing was short-circuited.
	Skipped bool
}
