package main

import (
	ctx "context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/charmingtv/epg/internal/api"
	"github.com/charmingtv/epg/internal/commands"
	"github.com/charmingtv/epg/internal/context"
	"github.com/charmingtv/epg/internal/platforms"
)

var log = &logrus.Logger{
	Out: os.Stderr,
	Formatter: &logrus.TextFormatter{
		FullTimestamp: true,
	},
	Hooks: make(logrus.LevelHooks),
	Level: logrus.InfoLevel,
}

func main() {
	flag.StringP("log.level", "l", logrus.InfoLevel.String(), "The lowest level of log messages to output")
	flag.Bool("log.requests", false, "Log HTTP requests")

	flag.StringP("web.listen-address", "a", ":8000", "Address to listen on for the web server")

	flag.String("epg.base-dir", "epg_files", "Directory the EPG documents are cached in")
	flag.Duration("epg.update-interval", 10*time.Minute, "How often to refresh EPG data from the platforms")
	flag.Duration("epg.cache-ttl", time.Hour, "Cache-Control max-age for the compressed merged document")
	flag.StringSlice("epg.enabled-platforms", platforms.Keys(), "Platforms to fetch EPG data for")
	flag.Bool("epg.strict-dedup", false, "Deduplicate merged channels by (platform, id) instead of id alone")

	flag.Duration("http.timeout", 30*time.Second, "Timeout for upstream HTTP requests")
	flag.Int("http.max-retries", 3, "Number of times to retry a failed upstream HTTP request")
	flag.Duration("http.retry-backoff", 2*time.Second, "Initial delay between upstream HTTP retries")
	flag.String("http.user-agent", "", "Override the User-Agent sent to the platforms")

	flag.Parse()

	if bindErr := viper.BindPFlags(flag.CommandLine); bindErr != nil {
		log.WithError(bindErr).Panicln("error binding flags to viper")
	}

	viper.SetEnvPrefix("EPG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("epg.config")
	viper.AddConfigPath("/etc/charmingepg/")
	viper.AddConfigPath("$HOME/.charmingepg")
	viper.AddConfigPath(".")
	if readErr := viper.ReadInConfig(); readErr != nil {
		if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
			log.WithError(readErr).Panicln("error reading configuration file")
		}
	}

	level, parseLevelErr := logrus.ParseLevel(viper.GetString("log.level"))
	if parseLevelErr != nil {
		log.WithError(parseLevelErr).Panicln("error setting log level!")
	}
	log.SetLevel(level)

	log.Infof("%s is preparing to take flight", context.AppName)

	if level == logrus.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	cc, ccErr := context.NewCContext()
	if ccErr != nil {
		log.WithError(ccErr).Panicln("error creating context")
	}

	runCtx, stop := signal.NotifyContext(cc.Ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cc.Ctx = runCtx

	go commands.StartScheduler(cc)

	server := &http.Server{
		Addr:    viper.GetString("web.listen-address"),
		Handler: api.NewRouter(cc),
	}

	go func() {
		cc.Log.Infof("%s is live and on the air!", context.AppName)
		cc.Log.Infof("Serving EPG from http://%s/", server.Addr)
		if serveErr := server.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			cc.Log.WithError(serveErr).Panicln("Error starting up web server")
		}
	}()

	<-runCtx.Done()
	log.Infoln("shutdown signal received, draining connections")

	shutdownCtx, cancel := ctx.WithTimeout(ctx.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.WithError(shutdownErr).Errorln("error during web server shutdown")
	}
}
