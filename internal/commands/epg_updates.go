package commands

import (
	"bytes"
	"compress/gzip"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/charmingtv/epg/internal/context"
	"github.com/charmingtv/epg/internal/guide"
	"github.com/charmingtv/epg/internal/merge"
	"github.com/charmingtv/epg/internal/metrics"
)

// MergedGeneratorInfoURL is stamped on the merged document.
const MergedGeneratorInfoURL = "https://github.com/charmingtv/epg"

var (
	log = &logrus.Logger{
		Out: os.Stderr,
		Formatter: &logrus.TextFormatter{
			FullTimestamp: true,
		},
		Hooks: make(logrus.LevelHooks),
		Level: logrus.DebugLevel,
	}
)

// FireEPGUpdatesCommand Command to fire one off EPG updates for all platforms
func FireEPGUpdatesCommand() {
	cc, err := context.NewCContext()
	if err != nil {
		log.Fatalln("Couldn't create context", err)
	}

	UpdateAllPlatforms(cc)
}

// StartScheduler runs an update cycle immediately and then on every tick
// until the context's cancellation.
func StartScheduler(cc *context.CContext) {
	interval := viper.GetDuration("epg.update-interval")

	log.Infof("EPG updater started, checking every %s", interval)

	UpdateAllPlatforms(cc)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			UpdateAllPlatforms(cc)
		case <-cc.Ctx.Done():
			log.Infoln("EPG updater stopping")
			return
		}
	}
}

// UpdateAllPlatforms refreshes every enabled platform concurrently, then
// rebuilds the merged document. Platforms whose document for today already
// exists are skipped inside updatePlatform, so a cycle after a restart is
// cheap.
func UpdateAllPlatforms(cc *context.CContext) {
	started := time.Now()
	metrics.UpdateCycles.Inc()

	succeeded := 0
	failed := 0
	mutex := sync.Mutex{}
	wg := sync.WaitGroup{}

	for _, key := range cc.EnabledKeys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()

			if err := updatePlatform(cc, key); err != nil {
				metrics.PlatformUpdates.WithLabelValues(key, "error").Inc()
				log.WithError(err).Errorf("failed to update EPG for platform %s", key)
				mutex.Lock()
				failed++
				mutex.Unlock()
				return
			}

			metrics.PlatformUpdates.WithLabelValues(key, "success").Inc()
			mutex.Lock()
			succeeded++
			mutex.Unlock()
		}(key)
	}

	wg.Wait()

	if err := BuildAllCache(cc); err != nil {
		log.WithError(err).Errorln("failed to rebuild merged EPG document")
	}

	metrics.UpdateCycleDuration.Observe(time.Since(started).Seconds())
	log.Infof("EPG update cycle finished in %s: %d succeeded, %d failed", time.Since(started).Round(time.Millisecond), succeeded, failed)
}

// updatePlatform fetches, aggregates and stores one platform's guide for
// today. Nothing is written unless both fetch steps produce data, so a
// failed cycle keeps serving yesterday's file until the next attempt.
func updatePlatform(cc *context.CContext, key string) error {
	if cc.Store.HasToday(key) {
		log.Debugf("platform %s EPG is up to date", key)
		return nil
	}

	platform, ok := cc.Platforms[key]
	if !ok {
		return errors.Errorf("platform %s is not initialised", key)
	}

	log.Infof("updating EPG for platform: %s", key)

	channels, channelsErr := platform.Channels(cc.Ctx)
	if channelsErr != nil {
		return errors.Wrapf(channelsErr, "fetching channels for %s", key)
	}
	if len(channels) == 0 {
		return errors.Errorf("platform %s returned no channels", key)
	}

	programs, programsErr := platform.Programs(cc.Ctx, channels)
	if programsErr != nil {
		return errors.Wrapf(programsErr, "fetching programmes for %s", key)
	}
	if len(programs) == 0 {
		return errors.Errorf("platform %s returned no programmes", key)
	}

	content, serializeErr := guide.Serialize(guide.Aggregate(channels, programs))
	if serializeErr != nil {
		return errors.Wrapf(serializeErr, "serializing guide for %s", key)
	}

	if writeErr := cc.Store.Write(key, content); writeErr != nil {
		return errors.Wrapf(writeErr, "storing guide for %s", key)
	}

	if _, cleanupErr := cc.Store.DeleteStale(key); cleanupErr != nil {
		log.WithError(cleanupErr).Warnf("failed to clean up old EPG files for %s", key)
	}

	metrics.PlatformChannels.WithLabelValues(key).Set(float64(len(channels)))
	metrics.PlatformProgrammes.WithLabelValues(key).Set(float64(len(programs)))

	log.Infof("platform %s updated: %d channels, %d programmes", key, len(channels), len(programs))
	return nil
}

// BuildAllCache merges every enabled platform's document for today into the
// combined "all" document and stores it in plain and gzip form. Platforms
// without a document are merged in absent, which the merge logs and skips.
func BuildAllCache(cc *context.CContext) error {
	documents := make([]merge.Document, 0, len(cc.EnabledKeys))
	for _, key := range cc.EnabledKeys {
		content, readErr := cc.Store.ReadToday(key)
		if readErr != nil {
			content = nil
		}
		documents = append(documents, merge.Document{Platform: key, Content: content})
	}

	result, mergeErr := merge.Merge(documents, merge.Options{
		GeneratorInfoName: context.AppName + " v" + context.AppVersion,
		GeneratorInfoURL:  MergedGeneratorInfoURL,
		StrictKeys:        viper.GetBool("epg.strict-dedup"),
	})
	if mergeErr != nil {
		return mergeErr
	}

	if writeErr := cc.Store.Write("all", result.XML); writeErr != nil {
		return errors.Wrap(writeErr, "storing merged document")
	}

	compressed, gzipErr := gzipBytes(result.XML)
	if gzipErr != nil {
		return errors.Wrap(gzipErr, "compressing merged document")
	}
	if writeErr := cc.Store.WriteGzip("all", compressed); writeErr != nil {
		return errors.Wrap(writeErr, "storing compressed merged document")
	}

	if _, cleanupErr := cc.Store.DeleteStale("all"); cleanupErr != nil {
		log.WithError(cleanupErr).Warnln("failed to clean up old merged EPG files")
	}

	log.Infof("merged EPG rebuilt: %d platforms, %d channels, %d programmes", len(result.Platforms), result.Channels, result.Programmes)
	return nil
}

func gzipBytes(content []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer, writerErr := gzip.NewWriterLevel(buf, gzip.BestCompression)
	if writerErr != nil {
		return nil, writerErr
	}
	if _, writeErr := writer.Write(content); writeErr != nil {
		writer.Close()
		return nil, writeErr
	}
	if closeErr := writer.Close(); closeErr != nil {
		return nil, closeErr
	}
	return buf.Bytes(), nil
}
