/*
Package features defines which features are enabled for runtime
in order to selectively enable certain features to maintain a stable runtime.

The process for implementing new features using this package is as follows:
 1. Add a new CMD flag in flags.go, and place it in the proper list(s) var for its client.
 2. Add a condition for the flag in the proper Configure function(s) below.
 3. Place any "new" behavior in the `if flagEnabled` statement.
 4. Place any "previous" behavior in the `else` statement.
 5. Ensure any tests using the new feature fail if the flag isn't enabled.
    5a. Use the following to enable your flag for tests:
    cfg := &features.Flags{
    VerboseFrameLogging: true, // and other relevant flags.
    }
    reset := features.InitWithReset(cfg)
    defer reset()
*/
package features

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var log = logrus.WithField("prefix", "flags")

// Flags is a struct to represent which features the client will perform on runtime.
type Flags struct {
	// EnableLegacyDatabaseFormat allows ingesting databases produced by
	// competition software older than format version 2.0.
	EnableLegacyDatabaseFormat bool
	// DisableTranslationChecksum forces translation bundles to be rebuilt on
	// every database load instead of skipping unchanged payloads.
	DisableTranslationChecksum bool
	// VerboseFrameLogging logs the header and size of every ingress frame.
	VerboseFrameLogging bool
	// DisableProjectionValidation registers scoreboard projections without
	// checking their declared schemas.
	DisableProjectionValidation bool
}

var featureConfig *Flags
var featureConfigLock sync.RWMutex

// Get retrieves feature config.
func Get() *Flags {
	featureConfigLock.RLock()
	defer featureConfigLock.RUnlock()

	if featureConfig == nil {
		return &Flags{}
	}
	return featureConfig
}

// Init sets the global config equal to the config that is passed in.
func Init(c *Flags) {
	featureConfigLock.Lock()
	defer featureConfigLock.Unlock()

	featureConfig = c
}

// InitWithReset sets the global config and returns function that is used to reset configuration.
func InitWithReset(c *Flags) func() {
	var prevConfig Flags
	if featureConfig != nil {
		prevConfig = *featureConfig
	} else {
		prevConfig = Flags{}
	}
	resetFunc := func() {
		Init(&prevConfig)
	}
	Init(c)
	return resetFunc
}

// ConfigureRelay sets the global config based
// on what flags are enabled for the relay client.
func ConfigureRelay(ctx *cli.Context) {
	complainOnDeprecatedFlags(ctx)
	cfg := &Flags{}

	cfg.EnableLegacyDatabaseFormat = true
	if ctx.Bool(disableLegacyDatabaseFormat.Name) {
		log.Warn("Disabled support for pre-2.0 competition database payloads")
		cfg.EnableLegacyDatabaseFormat = false
	}
	if ctx.Bool(disableTranslationChecksum.Name) {
		log.Warn("Translation bundles will be rebuilt on every database load")
		cfg.DisableTranslationChecksum = true
	}
	if ctx.Bool(verboseFrameLogging.Name) {
		log.Warn("Logging every ingress frame header. This is noisy under load")
		cfg.VerboseFrameLogging = true
	}
	if ctx.Bool(disableProjectionValidation.Name) {
		log.Warn("UNSAFE: Skipping projection schema validation at registration")
		cfg.DisableProjectionValidation = true
	}

	Init(cfg)
}

func complainOnDeprecatedFlags(ctx *cli.Context) {
	for _, f := range deprecatedFlags {
		if ctx.IsSet(f.Names()[0]) {
			log.Errorf("%s is deprecated and has no effect. Do not use this flag, it will be deleted soon.", f.Names()[0])
		}
	}
}
