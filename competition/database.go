package competition

import (
	"github.com/openlifting/liftcast/config/features"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "competition")

// FormatV2 is the explicit marker carried by current database payloads.
// Payloads without it are parsed by the legacy path.
const FormatV2 = "2.0"

// ErrLegacyFormatDisabled is returned when a payload without a format marker
// arrives while legacy support is switched off.
var ErrLegacyFormatDisabled = errors.New("legacy database format support is disabled")

// ParseDatabase detects the payload format and routes to the matching parser.
func ParseDatabase(payload []byte) (*Database, error) {
	var probe struct {
		FormatVersion string `json:"formatVersion"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, errors.Wrap(err, "could not read database envelope")
	}
	if probe.FormatVersion == FormatV2 {
		log.WithField("format", probe.FormatVersion).Info("Processing database payload")
		return parseV2(payload)
	}
	if probe.FormatVersion != "" {
		return nil, errors.Errorf("unsupported database format version %q", probe.FormatVersion)
	}
	if !features.Get().EnableLegacyDatabaseFormat {
		return nil, ErrLegacyFormatDisabled
	}
	log.WithField("format", "legacy").Info("Processing database payload")
	return parseLegacy(payload)
}

func parseV2(payload []byte) (*Database, error) {
	var db Database
	if err := json.Unmarshal(payload, &db); err != nil {
		return nil, errors.Wrap(err, "could not parse database payload")
	}
	if err := validateDatabase(&db); err != nil {
		return nil, err
	}
	return &db, nil
}

func validateDatabase(db *Database) error {
	seen := make(map[FlexString]struct{}, len(db.Athletes))
	for i := range db.Athletes {
		k := db.Athletes[i].Key
		if k.IsZero() {
			return errors.Errorf("athlete %d has no key", i)
		}
		if _, dup := seen[k]; dup {
			return errors.Errorf("duplicate athlete key %s", k)
		}
		seen[k] = struct{}{}
	}
	return nil
}
