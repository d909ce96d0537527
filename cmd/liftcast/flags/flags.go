// Package flags defines relay specific runtime flags.
package flags

import (
	"github.com/urfave/cli/v2"
)

var (
	// RPCHost defines the address to bind the read side HTTP server and the ingress socket.
	RPCHost = &cli.StringFlag{
		Name:  "rpc-host",
		Usage: "Host on which the HTTP servers listen",
		Value: "0.0.0.0",
	}
	// RPCPort defines the port of the scoreboard HTTP server.
	RPCPort = &cli.IntFlag{
		Name:  "rpc-port",
		Usage: "Port on which scoreboard projections and fan-out streams are served",
		Value: 8080,
	}
	// IngressPort defines the port of the websocket server fed by competition software.
	IngressPort = &cli.IntFlag{
		Name:    "ingress-port",
		Usage:   "Port on which the competition software websocket is accepted",
		Value:   8081,
		EnvVars: []string{"LIFTCAST_INGRESS_PORT"},
	}
	// MonitoringPortFlag defines the port used for prometheus monitoring.
	MonitoringPortFlag = &cli.IntFlag{
		Name:  "monitoring-port",
		Usage: "Port used to listen and respond to metrics requests for prometheus",
		Value: 8090,
	}
	// LocalDirFlag defines the directory holding locally provided assets.
	LocalDirFlag = &cli.StringFlag{
		Name:    "local-dir",
		Usage:   "Directory holding flags, logos, pictures, styles and translation overrides",
		Value:   "local",
		EnvVars: []string{"LIFTCAST_LOCAL_DIR"},
	}
	// DefaultLocaleFlag defines the locale served when a client does not request one.
	DefaultLocaleFlag = &cli.StringFlag{
		Name:  "locale",
		Usage: "Locale served to scoreboard clients that do not request one",
		Value: "en",
	}
	// UpdateKeyFlag defines the shared secret expected from competition software.
	UpdateKeyFlag = &cli.StringFlag{
		Name:  "update-key",
		Usage: "Shared secret that competition software must present on the ingress socket. Empty disables the check.",
	}
	// CorsDomainFlag defines the origins allowed to call the scoreboard HTTP server.
	CorsDomainFlag = &cli.StringFlag{
		Name:  "http-cors-domain",
		Usage: "Comma separated list of domains from which to accept cross origin requests (browser enforced)",
		Value: "*",
	}
	// CoalesceWindowFlag defines the push debounce window in milliseconds.
	CoalesceWindowFlag = &cli.IntFlag{
		Name:  "coalesce-window-ms",
		Usage: "Milliseconds to wait for further updates to the same platform before pushing to subscribers",
		Value: 75,
	}
)
