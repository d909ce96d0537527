package features

import (
	"github.com/urfave/cli/v2"
)

var (
	disableLegacyDatabaseFormat = &cli.BoolFlag{
		Name:  "disable-legacy-database-format",
		Usage: "Rejects competition database payloads that predate format version 2.0.",
	}
	disableTranslationChecksum = &cli.BoolFlag{
		Name:  "disable-translation-checksum",
		Usage: "Rebuilds translation bundles on every database load even when the payload is unchanged.",
	}
	verboseFrameLogging = &cli.BoolFlag{
		Name:  "verbose-frame-logging",
		Usage: "Logs the type and size of every frame received on the ingress socket.",
	}
	disableProjectionValidation = &cli.BoolFlag{
		Name:  "disable-projection-validation",
		Usage: "Skips schema validation when scoreboard projections are registered.",
	}
)

// deprecatedFlags is a list of flags that are kept around so operators get a
// useful error instead of an unknown-flag failure, but which no longer do
// anything.
var deprecatedFlags = []cli.Flag{}

// Flags contains a list of all the feature flags that apply to the relay client.
var RelayFlags = append(deprecatedFlags, []cli.Flag{
	disableLegacyDatabaseFormat,
	disableTranslationChecksum,
	verboseFrameLogging,
	disableProjectionValidation,
}...)
