// Package context provides the application context passed around the EPG
// service: the logger, the file store, the shared HTTP client and the set of
// enabled platform adapters, all initialized from configuration.
package context

import (
	ctx "context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/charmingtv/epg/internal/httpclient"
	"github.com/charmingtv/epg/internal/platforms"
	"github.com/charmingtv/epg/internal/storage"
)

const (
	// AppName identifies the service in generator attributes and the health endpoint.
	AppName = "CharmingEPG"
	// AppVersion is the reported service version.
	AppVersion = "1.0.0"
)

// CContext is a context struct that gets passed around the application.
type CContext struct {
	Ctx         ctx.Context
	Log         *logrus.Logger
	Store       *storage.Store
	HTTP        *httpclient.Client
	Platforms   map[string]platforms.Platform
	EnabledKeys []string
}

// Copy returns a cloned version of the input CContext.
func (cc *CContext) Copy() *CContext {
	return &CContext{
		Ctx:         cc.Ctx,
		Log:         cc.Log,
		Store:       cc.Store,
		HTTP:        cc.HTTP,
		Platforms:   cc.Platforms,
		EnabledKeys: cc.EnabledKeys,
	}
}

// NewCContext returns an initialized CContext struct
func NewCContext() (*CContext, error) {

	theCtx := ctx.Background()

	log := &logrus.Logger{
		Out: os.Stderr,
		Formatter: &logrus.TextFormatter{
			FullTimestamp: true,
		},
		Hooks: make(logrus.LevelHooks),
		Level: logrus.InfoLevel,
	}

	if level, parseErr := logrus.ParseLevel(viper.GetString("log.level")); parseErr == nil {
		log.Level = level
	}

	client := httpclient.New(
		viper.GetDuration("http.timeout"),
		viper.GetInt("http.max-retries"),
		viper.GetDuration("http.retry-backoff"),
		viper.GetString("http.user-agent"),
	)

	enabledKeys := enabledPlatformKeys()

	platformsMap := make(map[string]platforms.Platform)
	for _, key := range enabledKeys {
		providerCfg := platforms.Configuration{Key: key, Enabled: true}
		platform, platformErr := providerCfg.GetPlatform(client)
		if platformErr != nil {
			log.WithError(platformErr).Panicln("error initializing platform")
		}
		platformsMap[key] = platform
	}

	return &CContext{
		Ctx:         theCtx,
		Log:         log,
		Store:       storage.NewStore(viper.GetString("epg.base-dir")),
		HTTP:        client,
		Platforms:   platformsMap,
		EnabledKeys: enabledKeys,
	}, nil
}

// enabledPlatformKeys resolves the configured platform selection against the
// known keys, preserving the canonical priority order. An empty or "all"
// selection enables everything; unknown keys are dropped.
func enabledPlatformKeys() []string {
	configured := viper.GetStringSlice("epg.enabled-platforms")

	wanted := make(map[string]bool, len(configured))
	all := len(configured) == 0
	for _, key := range configured {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "all" {
			all = true
		}
		wanted[key] = true
	}

	enabled := make([]string, 0, len(platforms.Keys()))
	for _, key := range platforms.Keys() {
		if all || wanted[key] {
			enabled = append(enabled, key)
		}
	}
	return enabled
}
