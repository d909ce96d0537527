// Package main defines the liftcast relay implementation. A relay ingests
// live state from weightlifting competition software over a websocket and
// fans it out to scoreboard clients as ready-to-render projections.
package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"
	joonix "github.com/joonix/log"
	"github.com/openlifting/liftcast/cmd"
	"github.com/openlifting/liftcast/cmd/liftcast/flags"
	"github.com/openlifting/liftcast/config/features"
	"github.com/openlifting/liftcast/io/logs"
	"github.com/openlifting/liftcast/relay/node"
	"github.com/openlifting/liftcast/runtime/version"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var log = logrus.WithField("prefix", "main")

func startRelay(cliCtx *cli.Context) error {
	verbosity := cliCtx.String(cmd.VerbosityFlag.Name)
	level, err := logrus.ParseLevel(verbosity)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	relay, err := node.New(cliCtx)
	if err != nil {
		return err
	}
	relay.Start()
	return nil
}

var appFlags = []cli.Flag{
	cmd.VerbosityFlag,
	cmd.LogFormat,
	cmd.LogFileName,
	cmd.ConfigFileFlag,
	cmd.RelayConfigFileFlag,
	cmd.EnableTracingFlag,
	cmd.TracingProcessNameFlag,
	cmd.TracingEndpointFlag,
	cmd.TraceSampleFractionFlag,
	cmd.MonitoringHostFlag,
	cmd.DisableMonitoringFlag,
	flags.RPCHost,
	flags.RPCPort,
	flags.IngressPort,
	flags.MonitoringPortFlag,
	flags.LocalDirFlag,
	flags.DefaultLocaleFlag,
	flags.UpdateKeyFlag,
	flags.CorsDomainFlag,
	flags.CoalesceWindowFlag,
}

func init() {
	appFlags = cmd.WrapFlags(append(appFlags, features.RelayFlags...))
}

func main() {
	app := cli.App{}
	app.Name = "liftcast"
	app.Usage = "relays live weightlifting competition state to scoreboard displays"
	app.Version = version.Version()
	app.Flags = appFlags
	app.Action = startRelay
	app.Before = func(ctx *cli.Context) error {
		// Load any flags from file, if specified.
		if ctx.IsSet(cmd.ConfigFileFlag.Name) {
			if err := altsrc.InitInputSourceWithContext(
				appFlags,
				altsrc.NewYamlSourceFromFlagFunc(
					cmd.ConfigFileFlag.Name))(ctx); err != nil {
				return err
			}
		}

		format := ctx.String(cmd.LogFormat.Name)
		switch format {
		case "text":
			formatter := new(prefixed.TextFormatter)
			formatter.TimestampFormat = "2006-01-02 15:04:05"
			formatter.FullTimestamp = true
			// If persistent log files are written - we disable the log messages coloring because
			// the colors are ANSI codes and seen as Gibberish in the log files.
			formatter.DisableColors = ctx.String(cmd.LogFileName.Name) != ""
			logrus.SetFormatter(formatter)
		case "fluentd":
			logrus.SetFormatter(joonix.NewFormatter())
		case "json":
			logrus.SetFormatter(&logrus.JSONFormatter{})
		default:
			return fmt.Errorf("unknown log format %s", format)
		}

		logFileName := ctx.String(cmd.LogFileName.Name)
		if logFileName != "" {
			if err := logs.ConfigurePersistentLogging(logFileName); err != nil {
				log.WithError(err).Error("Failed to configuring logging to disk.")
			}
		}

		runtime.GOMAXPROCS(runtime.NumCPU())
		return nil
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:     dsn,
			Release: version.Version(),
		}); err != nil {
			log.WithError(err).Warn("Could not initialize sentry")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
