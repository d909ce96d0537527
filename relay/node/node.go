// Package node is the main service which launches a relay and manages the
// lifecycle of all its associated services at runtime, such as the ingress
// socket, the fan-out broker and the query shell, gracefully closing them
// if the process ends.
package node

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/openlifting/liftcast/cmd"
	"github.com/openlifting/liftcast/cmd/liftcast/flags"
	"github.com/openlifting/liftcast/config/features"
	"github.com/openlifting/liftcast/config/params"
	"github.com/openlifting/liftcast/monitoring/prometheus"
	"github.com/openlifting/liftcast/monitoring/tracing"
	"github.com/openlifting/liftcast/relay/archive"
	"github.com/openlifting/liftcast/relay/assets"
	"github.com/openlifting/liftcast/relay/broker"
	"github.com/openlifting/liftcast/relay/i18n"
	"github.com/openlifting/liftcast/relay/ingress"
	"github.com/openlifting/liftcast/relay/projection"
	"github.com/openlifting/liftcast/relay/projection/scoreboards"
	"github.com/openlifting/liftcast/relay/rpc"
	"github.com/openlifting/liftcast/relay/store"
	"github.com/openlifting/liftcast/runtime"
	"github.com/openlifting/liftcast/runtime/version"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var log = logrus.WithField("prefix", "node")

// RelayNode holds the services running a competition relay. It handles the
// lifecycle of the entire system and registers services to a service
// registry.
type RelayNode struct {
	cliCtx   *cli.Context
	ctx      context.Context
	cancel   context.CancelFunc
	services *runtime.ServiceRegistry
	lock     sync.RWMutex
	stop     chan struct{} // Channel to wait for termination notifications.
	hubFeed  *event.Feed
	store    *store.Store
	assets   *assets.Resolver
}

// New creates a new relay node instance, sets up configuration options, and
// registers every required service to the node.
func New(cliCtx *cli.Context) (*RelayNode, error) {
	processName := cliCtx.String(cmd.TracingProcessNameFlag.Name)
	if processName == "" {
		processName = "liftcast-relay"
	}
	if err := tracing.Setup(
		processName,
		cliCtx.String(cmd.TracingEndpointFlag.Name),
		cliCtx.Float64(cmd.TraceSampleFractionFlag.Name),
		cliCtx.Bool(cmd.EnableTracingFlag.Name),
	); err != nil {
		return nil, err
	}

	features.ConfigureRelay(cliCtx)
	if err := configureRelayParams(cliCtx); err != nil {
		return nil, err
	}

	registry := runtime.NewServiceRegistry()

	ctx, cancel := context.WithCancel(cliCtx.Context)
	relay := &RelayNode{
		cliCtx:   cliCtx,
		ctx:      ctx,
		cancel:   cancel,
		services: registry,
		stop:     make(chan struct{}),
		hubFeed:  new(event.Feed),
	}

	relay.startHub()

	if err := relay.registerIngressService(); err != nil {
		return nil, err
	}

	if err := relay.registerBroker(); err != nil {
		return nil, err
	}

	if err := relay.registerProjectionHost(); err != nil {
		return nil, err
	}

	if err := relay.registerRPCService(); err != nil {
		return nil, err
	}

	if !cliCtx.Bool(cmd.DisableMonitoringFlag.Name) {
		if err := relay.registerPrometheusService(); err != nil {
			return nil, err
		}
	}

	return relay, nil
}

// configureRelayParams overlays the config file and then individual flags
// onto the active relay parameters.
func configureRelayParams(cliCtx *cli.Context) error {
	if cliCtx.IsSet(cmd.RelayConfigFileFlag.Name) {
		if err := params.LoadConfigFile(cliCtx.String(cmd.RelayConfigFileFlag.Name)); err != nil {
			return err
		}
	}
	conf := params.Relay().Copy()
	if cliCtx.IsSet(flags.RPCHost.Name) {
		conf.HTTPHost = cliCtx.String(flags.RPCHost.Name)
	}
	if cliCtx.IsSet(flags.RPCPort.Name) {
		conf.RPCPort = cliCtx.Int(flags.RPCPort.Name)
	}
	if cliCtx.IsSet(flags.IngressPort.Name) {
		conf.IngressPort = cliCtx.Int(flags.IngressPort.Name)
	}
	if cliCtx.IsSet(flags.MonitoringPortFlag.Name) {
		conf.MonitoringPort = cliCtx.Int(flags.MonitoringPortFlag.Name)
	}
	if cliCtx.IsSet(flags.LocalDirFlag.Name) {
		conf.LocalFilesDir = cliCtx.String(flags.LocalDirFlag.Name)
	}
	if cliCtx.IsSet(flags.DefaultLocaleFlag.Name) {
		conf.DefaultLocale = cliCtx.String(flags.DefaultLocaleFlag.Name)
	}
	if cliCtx.IsSet(flags.UpdateKeyFlag.Name) {
		conf.UpdateKey = cliCtx.String(flags.UpdateKeyFlag.Name)
	}
	if cliCtx.IsSet(flags.CorsDomainFlag.Name) {
		conf.CORSAllowedOrigins = strings.Split(cliCtx.String(flags.CorsDomainFlag.Name), ",")
	}
	if cliCtx.IsSet(flags.CoalesceWindowFlag.Name) {
		conf.CoalesceWindow = time.Duration(cliCtx.Int(flags.CoalesceWindowFlag.Name)) * time.Millisecond
	}
	params.OverrideRelayConfig(conf)
	return nil
}

// HubFeed implements hub.Notifier.
func (r *RelayNode) HubFeed() *event.Feed {
	return r.hubFeed
}

// Start the RelayNode and kicks off every registered service.
func (r *RelayNode) Start() {
	r.lock.Lock()

	log.WithFields(logrus.Fields{
		"version": version.Version(),
	}).Info("Starting relay node")

	r.services.StartAll()

	stop := r.stop
	r.lock.Unlock()

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("Got interrupt, shutting down...")
		go r.Close()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.WithField("times", i-1).Info("Already shutting down, interrupt more to panic")
			}
		}
		panic("Panic closing the relay node")
	}()

	// Wait for stop channel to be closed.
	<-stop
}

// Close handles graceful shutdown of the system.
func (r *RelayNode) Close() {
	r.lock.Lock()
	defer r.lock.Unlock()

	log.Info("Stopping relay node")
	r.services.StopAll()
	r.cancel()
	close(r.stop)
}

// startHub wires the competition hub and its collaborators. The hub is not
// a service itself, it only reacts to frames the ingress feeds it.
func (r *RelayNode) startHub() {
	cfg := params.Relay()
	r.assets = assets.NewResolver(cfg.LocalFilesDir)
	r.store = store.New(&store.Config{
		Notifier: r,
		Merger:   i18n.NewMerger(cfg.DefaultLocale),
		Assets:   r.assets,
	})
}

func (r *RelayNode) registerIngressService() error {
	cfg := params.Relay()
	svc := ingress.NewService(r.ctx, &ingress.Config{
		Host:      cfg.HTTPHost,
		Port:      cfg.IngressPort,
		Store:     r.store,
		Extractor: archive.NewExtractor(cfg.LocalFilesDir),
	})
	return r.services.RegisterService(svc)
}

func (r *RelayNode) registerBroker() error {
	return r.services.RegisterService(broker.New(r.ctx, &broker.Config{
		Notifier: r,
	}))
}

func (r *RelayNode) registerProjectionHost() error {
	host := projection.NewHost(r.ctx, &projection.Config{
		Reader:   r.store,
		Assets:   r.assets,
		Notifier: r,
	})
	if err := scoreboards.RegisterAll(host); err != nil {
		return err
	}
	return r.services.RegisterService(host)
}

func (r *RelayNode) registerRPCService() error {
	var brokerService *broker.Broker
	if err := r.services.FetchService(&brokerService); err != nil {
		return err
	}
	var projectionHost *projection.Host
	if err := r.services.FetchService(&projectionHost); err != nil {
		return err
	}
	cfg := params.Relay()
	svc := rpc.NewService(r.ctx, &rpc.Config{
		Host:           cfg.HTTPHost,
		Port:           cfg.RPCPort,
		Projections:    projectionHost,
		Broker:         brokerService,
		Reader:         r.store,
		LocalDir:       cfg.LocalFilesDir,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	return r.services.RegisterService(svc)
}

func (r *RelayNode) registerPrometheusService() error {
	service := prometheus.NewService(
		fmt.Sprintf("%s:%d", r.cliCtx.String(cmd.MonitoringHostFlag.Name), params.Relay().MonitoringPort),
		r.services,
	)
	hook := prometheus.NewLogrusCollector()
	logrus.AddHook(hook)
	return r.services.RegisterService(service)
}
