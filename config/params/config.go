// Package params defines important constants that are essential to liftcast
// services, with a process-wide override mechanism for tests.
package params

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RelayConfig contains constant configs for the relay node.
type RelayConfig struct {
	// LocalFilesDir is the directory that binary resource archives are
	// extracted into. Served to browsers by an external static file layer
	// under /local/<category>/<name>.
	LocalFilesDir string `yaml:"localFilesDir"`
	// IngressPath is the websocket path the meet-management server connects to.
	IngressPath string `yaml:"ingressPath"`
	// IngressPort is the listen port for the upstream websocket endpoint.
	IngressPort int `yaml:"ingressPort"`
	// RPCPort is the listen port for the downstream projection/action API.
	RPCPort int `yaml:"rpcPort"`
	// MonitoringPort serves /metrics, /healthz and /goroutinez.
	MonitoringPort int `yaml:"monitoringPort"`
	// DefaultLocale is the translation fallback of last resort.
	DefaultLocale string `yaml:"defaultLocale"`
	// MinProtocolVersion is the lowest upstream protocol version accepted.
	MinProtocolVersion string `yaml:"minProtocolVersion"`
	// CurrentProtocolVersion is advertised in reply envelopes.
	CurrentProtocolVersion string `yaml:"currentProtocolVersion"`
	// MaxBinaryFrameBytes caps the size of one binary ingress frame.
	MaxBinaryFrameBytes int64 `yaml:"maxBinaryFrameBytes"`
	// SubscriberQueueDepth bounds each push subscriber's notification queue.
	SubscriberQueueDepth int `yaml:"subscriberQueueDepth"`
	// CoalesceWindow is the debounce interval for fan-out notifications.
	CoalesceWindow time.Duration `yaml:"coalesceWindowMs"`
	// UpdateKey is the shared secret the upstream presents when connecting.
	// Empty disables the check.
	UpdateKey string `yaml:"updateKey"`
	// SubscriberFailureThreshold unsubscribes an in-process subscriber after
	// this many consecutive panics.
	SubscriberFailureThreshold int `yaml:"subscriberFailureThreshold"`
	// ProjectionCacheSize is the per-projection memoization capacity.
	ProjectionCacheSize int `yaml:"projectionCacheSize"`
	// AssetProbeTTL bounds how long a resolved flag/logo path is remembered.
	AssetProbeTTL time.Duration `yaml:"assetProbeTTL"`
	// KeepAliveInterval is the SSE comment interval for push connections.
	KeepAliveInterval time.Duration `yaml:"keepAliveInterval"`
	// HTTPHost binds the RPC and monitoring listeners.
	HTTPHost string `yaml:"httpHost"`
	// CORSAllowedOrigins for the downstream API.
	CORSAllowedOrigins []string `yaml:"corsAllowedOrigins"`
}

// DefaultRelayConfig returns the config every option not explicitly set
// falls back to.
func DefaultRelayConfig() *RelayConfig {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return &RelayConfig{
		LocalFilesDir:              filepath.Join(cwd, "local"),
		IngressPath:                "/ws",
		IngressPort:                8081,
		RPCPort:                    8080,
		MonitoringPort:             8090,
		DefaultLocale:              "en",
		MinProtocolVersion:         "2.0.0",
		CurrentProtocolVersion:     "2.0.0",
		MaxBinaryFrameBytes:        64 << 20,
		SubscriberQueueDepth:       16,
		CoalesceWindow:             75 * time.Millisecond,
		SubscriberFailureThreshold: 3,
		ProjectionCacheSize:        20,
		AssetProbeTTL:              5 * time.Minute,
		KeepAliveInterval:          12 * time.Second,
		HTTPHost:                   "0.0.0.0",
		CORSAllowedOrigins:         []string{"*"},
	}
}

var relayConfig = DefaultRelayConfig()
var relayConfigLock sync.RWMutex

// Relay retrieves the relay node config.
func Relay() *RelayConfig {
	relayConfigLock.RLock()
	defer relayConfigLock.RUnlock()
	return relayConfig
}

// OverrideRelayConfig by replacing the config. The preferred pattern is to
// call Relay(), change the specific parameters, and then call
// OverrideRelayConfig(c). Any subsequent calls to params.Relay() will
// return this new configuration.
func OverrideRelayConfig(c *RelayConfig) {
	relayConfigLock.Lock()
	defer relayConfigLock.Unlock()
	relayConfig = c
}

// SetupTestConfigCleanup preserves the current config and restores it when the
// test and all its subtests complete.
func SetupTestConfigCleanup(t interface{ Cleanup(func()) }) {
	prev := Relay()
	t.Cleanup(func() {
		OverrideRelayConfig(prev)
	})
}

// Copy returns a deep copy of the config object.
func (c *RelayConfig) Copy() *RelayConfig {
	relayConfigLock.RLock()
	defer relayConfigLock.RUnlock()
	config := *c
	config.CORSAllowedOrigins = append([]string{}, c.CORSAllowedOrigins...)
	return &config
}
