package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/charmingtv/epg/internal/context"
	"github.com/charmingtv/epg/internal/epgtime"
	"github.com/charmingtv/epg/internal/merge"
	"github.com/charmingtv/epg/internal/storage"
	"github.com/charmingtv/epg/internal/xmltv"
)

// NewRouter builds the EPG service's HTTP routes.
func NewRouter(cc *context.CContext) *gin.Engine {
	cc.Log.Debugln("creating webserver routes")

	if viper.GetString("log.level") != logrus.DebugLevel.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := newGin()

	router.GET("/", wrapContext(cc, health))
	router.GET("/epg/:platform", wrapContext(cc, platformEPG))
	router.GET("/epg", wrapContext(cc, customEPG))
	router.GET("/all", wrapContext(cc, allEPG))
	router.GET("/all.gz", wrapContext(cc, allEPGGzip))

	return router
}

func health(cc *context.CContext, c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":                 context.AppName,
		"version":                 context.AppVersion,
		"status":                  "healthy",
		"enabled_platforms":       cc.EnabledKeys,
		"update_interval_minutes": int(viper.GetDuration("epg.update-interval").Minutes()),
	})
}

func platformEPG(cc *context.CContext, c *gin.Context) {
	servePlatformDocument(cc, c, c.Param("platform"))
}

func allEPG(cc *context.CContext, c *gin.Context) {
	servePlatformDocument(cc, c, "all")
}

// servePlatformDocument serves a platform's cached document for today. The
// channel and programme totals ride in response headers; a document that no
// longer parses is served as-is without them.
func servePlatformDocument(cc *context.CContext, c *gin.Context, platform string) {
	content, readErr := cc.Store.ReadToday(platform)
	if readErr == storage.ErrNotFound {
		log.Errorf("EPG file not found for platform: %s", platform)
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("EPG data not available for platform: %s", platform)})
		return
	}
	if readErr != nil {
		c.AbortWithError(http.StatusInternalServerError, readErr)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%s_epg.xml", platform))
	c.Header("X-Platform", platform)

	tv := &xmltv.TV{}
	if parseErr := tv.LoadXML(bytes.NewReader(content)); parseErr != nil {
		log.Warnf("invalid XML content for platform %s, serving as-is", platform)
		c.Data(http.StatusOK, "application/xml", content)
		return
	}

	log.Infof("serving EPG for %s: %d channels, %d programmes", platform, len(tv.Channels), len(tv.Programmes))

	c.Header("X-Total-Channels", strconv.Itoa(len(tv.Channels)))
	c.Header("X-Total-Programs", strconv.Itoa(len(tv.Programmes)))
	c.Data(http.StatusOK, "application/xml", content)
}

// customEPG merges the caller's platform selection on the fly, in the order
// given. Unlike /all, nothing here is cached; every request re-merges.
func customEPG(cc *context.CContext, c *gin.Context) {
	requested := strings.Split(c.Query("platforms"), ",")

	keys := make([]string, 0, len(requested))
	for _, key := range requested {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "platforms query parameter is required"})
		return
	}

	documents := make([]merge.Document, 0, len(keys))
	for _, key := range keys {
		content, readErr := cc.Store.ReadToday(key)
		if readErr != nil {
			content = nil
		}
		documents = append(documents, merge.Document{Platform: key, Content: content})
	}

	result, mergeErr := merge.Merge(documents, merge.Options{
		GeneratorInfoName: context.AppName + " v" + context.AppVersion,
		GeneratorInfoURL:  "https://github.com/charmingtv/epg",
		StrictKeys:        viper.GetBool("epg.strict-dedup"),
	})
	if mergeErr == merge.ErrNoData {
		c.JSON(http.StatusNotFound, gin.H{"detail": "No EPG data available"})
		return
	}
	if mergeErr != nil {
		c.AbortWithError(http.StatusInternalServerError, mergeErr)
		return
	}

	c.Header("Content-Disposition", "inline; filename=epg.xml")
	c.Header("X-Platforms", strings.Join(keys, ","))
	c.Header("X-Total-Channels", strconv.Itoa(result.Channels))
	c.Header("X-Total-Programs", strconv.Itoa(result.Programmes))
	c.Data(http.StatusOK, "application/xml", result.XML)
}

func allEPGGzip(cc *context.CContext, c *gin.Context) {
	content, readErr := cc.Store.ReadTodayGzip("all")
	if readErr == storage.ErrNotFound {
		log.Errorln("compressed merged EPG file not found")
		c.JSON(http.StatusNotFound, gin.H{"detail": "Compressed EPG data not available. Please wait for next update cycle."})
		return
	}
	if readErr != nil {
		c.AbortWithError(http.StatusInternalServerError, readErr)
		return
	}

	cacheTTL := int(viper.GetDuration("epg.cache-ttl").Seconds())
	c.Header("Content-Disposition", "attachment; filename=epg.xml.gz")
	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d, s-maxage=%d", cacheTTL, cacheTTL))
	c.Header("ETag", fmt.Sprintf(`"epg-all-gz-%s"`, epgtime.DateString(time.Now())))
	c.Data(http.StatusOK, "application/gzip", content)
}
