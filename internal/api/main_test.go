package api

import (
	ctx "context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/charmingtv/epg/internal/context"
	"github.com/charmingtv/epg/internal/epgtime"
	"github.com/charmingtv/epg/internal/guide"
	"github.com/charmingtv/epg/internal/platforms"
	"github.com/charmingtv/epg/internal/storage"
)

func testContext(t *testing.T) *context.CContext {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return &context.CContext{
		Ctx:         ctx.Background(),
		Log:         logrus.New(),
		Store:       storage.NewStore(t.TempDir()),
		EnabledKeys: []string{"tvb", "nowtv"},
	}
}

func writeDocument(t *testing.T, cc *context.CContext, platform, channelName string) {
	t.Helper()
	start := time.Date(2025, 6, 17, 20, 0, 0, 0, epgtime.Zone)
	content, err := guide.Serialize(guide.Aggregate(
		[]platforms.Channel{{ID: "1", Name: channelName}},
		[]platforms.Program{{ChannelID: "1", Title: "節目", Start: start, Stop: start.Add(time.Hour)}},
	))
	if err != nil {
		t.Fatal(err)
	}
	if writeErr := cc.Store.Write(platform, content); writeErr != nil {
		t.Fatal(writeErr)
	}
}

func get(router *gin.Engine, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, target, nil)
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestHealthEndpoint(t *testing.T) {
	cc := testContext(t)
	router := NewRouter(cc)

	resp := get(router, "/")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	if !strings.Contains(body, `"status":"healthy"`) {
		t.Errorf("expected a healthy status, got %s", body)
	}
	if !strings.Contains(body, `"tvb"`) {
		t.Errorf("expected the enabled platforms listed, got %s", body)
	}
}

func TestPlatformEndpoint(t *testing.T) {
	cc := testContext(t)
	writeDocument(t, cc, "tvb", "翡翠台")
	router := NewRouter(cc)

	resp := get(router, "/epg/tvb")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Platform"); got != "tvb" {
		t.Errorf("expected X-Platform tvb, got %q", got)
	}
	if got := resp.Header().Get("X-Total-Channels"); got != "1" {
		t.Errorf("expected 1 channel reported, got %q", got)
	}
	if got := resp.Header().Get("X-Total-Programs"); got != "1" {
		t.Errorf("expected 1 programme reported, got %q", got)
	}
	if got := resp.Header().Get("Content-Disposition"); got != "inline; filename=tvb_epg.xml" {
		t.Errorf("unexpected Content-Disposition %q", got)
	}
}

func TestPlatformEndpointNotFound(t *testing.T) {
	cc := testContext(t)
	router := NewRouter(cc)

	resp := get(router, "/epg/tvb")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestPlatformEndpointInvalidXMLServedAsIs(t *testing.T) {
	cc := testContext(t)
	if err := cc.Store.Write("tvb", []byte("definitely not xml")); err != nil {
		t.Fatal(err)
	}
	router := NewRouter(cc)

	resp := get(router, "/epg/tvb")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Body.String() != "definitely not xml" {
		t.Error("expected the raw content served unchanged")
	}
	if resp.Header().Get("X-Total-Channels") != "" {
		t.Error("expected no totals for an unparsable document")
	}
}

func TestCustomMergeEndpoint(t *testing.T) {
	cc := testContext(t)
	writeDocument(t, cc, "tvb", "翡翠台")
	writeDocument(t, cc, "nowtv", "Now爆谷台")
	router := NewRouter(cc)

	resp := get(router, "/epg?platforms=tvb,nowtv")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Platforms"); got != "tvb,nowtv" {
		t.Errorf("expected X-Platforms tvb,nowtv, got %q", got)
	}
	if got := resp.Header().Get("X-Total-Channels"); got != "2" {
		t.Errorf("expected 2 channels reported, got %q", got)
	}
}

func TestCustomMergeEndpointRequiresPlatforms(t *testing.T) {
	cc := testContext(t)
	router := NewRouter(cc)

	resp := get(router, "/epg")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCustomMergeEndpointNoData(t *testing.T) {
	cc := testContext(t)
	router := NewRouter(cc)

	resp := get(router, "/epg?platforms=tvb")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestAllGzipEndpoint(t *testing.T) {
	cc := testContext(t)
	compressed := []byte{0x1f, 0x8b, 0x08, 0x00}
	if err := cc.Store.WriteGzip("all", compressed); err != nil {
		t.Fatal(err)
	}
	router := NewRouter(cc)

	resp := get(router, "/all.gz")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Disposition"); got != "attachment; filename=epg.xml.gz" {
		t.Errorf("unexpected Content-Disposition %q", got)
	}
	if got := resp.Header().Get("Content-Type"); got != "application/gzip" {
		t.Errorf("unexpected Content-Type %q", got)
	}
}

func TestAllGzipEndpointNotFound(t *testing.T) {
	cc := testContext(t)
	router := NewRouter(cc)

	resp := get(router, "/all.gz")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
