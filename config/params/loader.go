package params

import (
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// fileRelayConfig mirrors RelayConfig for yaml decoding, with durations
// expressed in milliseconds the way operators write them.
type fileRelayConfig struct {
	LocalFilesDir          *string  `yaml:"localFilesDir"`
	IngressPath            *string  `yaml:"ingressPath"`
	IngressPort            *int     `yaml:"ingressPort"`
	RPCPort                *int     `yaml:"rpcPort"`
	MonitoringPort         *int     `yaml:"monitoringPort"`
	DefaultLocale          *string  `yaml:"defaultLocale"`
	MinProtocolVersion     *string  `yaml:"minProtocolVersion"`
	CurrentProtocolVersion *string  `yaml:"currentProtocolVersion"`
	MaxBinaryFrameBytes    *int64   `yaml:"maxBinaryFrameBytes"`
	SubscriberQueueDepth   *int     `yaml:"subscriberQueueDepth"`
	CoalesceWindowMs       *int     `yaml:"coalesceWindowMs"`
	UpdateKey              *string  `yaml:"updateKey"`
	ProjectionCacheSize    *int     `yaml:"projectionCacheSize"`
	HTTPHost               *string  `yaml:"httpHost"`
	CORSAllowedOrigins     []string `yaml:"corsAllowedOrigins"`
}

// LoadConfigFile overlays the yaml file at path onto the currently active
// relay config. Keys absent from the file keep their defaults.
func LoadConfigFile(path string) error {
	yamlFile, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return errors.Wrap(err, "failed to read config file")
	}
	fc := &fileRelayConfig{}
	if err := yaml.UnmarshalStrict(yamlFile, fc); err != nil {
		return errors.Wrap(err, "failed to parse config yaml file")
	}

	conf := Relay().Copy()
	if fc.LocalFilesDir != nil {
		conf.LocalFilesDir = *fc.LocalFilesDir
	}
	if fc.IngressPath != nil {
		conf.IngressPath = *fc.IngressPath
	}
	if fc.IngressPort != nil {
		conf.IngressPort = *fc.IngressPort
	}
	if fc.RPCPort != nil {
		conf.RPCPort = *fc.RPCPort
	}
	if fc.MonitoringPort != nil {
		conf.MonitoringPort = *fc.MonitoringPort
	}
	if fc.DefaultLocale != nil {
		conf.DefaultLocale = *fc.DefaultLocale
	}
	if fc.MinProtocolVersion != nil {
		conf.MinProtocolVersion = *fc.MinProtocolVersion
	}
	if fc.CurrentProtocolVersion != nil {
		conf.CurrentProtocolVersion = *fc.CurrentProtocolVersion
	}
	if fc.MaxBinaryFrameBytes != nil {
		conf.MaxBinaryFrameBytes = *fc.MaxBinaryFrameBytes
	}
	if fc.SubscriberQueueDepth != nil {
		conf.SubscriberQueueDepth = *fc.SubscriberQueueDepth
	}
	if fc.CoalesceWindowMs != nil {
		conf.CoalesceWindow = time.Duration(*fc.CoalesceWindowMs) * time.Millisecond
	}
	if fc.UpdateKey != nil {
		conf.UpdateKey = *fc.UpdateKey
	}
	if fc.ProjectionCacheSize != nil {
		conf.ProjectionCacheSize = *fc.ProjectionCacheSize
	}
	if fc.HTTPHost != nil {
		conf.HTTPHost = *fc.HTTPHost
	}
	if len(fc.CORSAllowedOrigins) > 0 {
		conf.CORSAllowedOrigins = fc.CORSAllowedOrigins
	}

	OverrideRelayConfig(conf)
	log.WithField("path", path).Info("Loaded relay config file")
	return nil
}
