package analytics_api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ms-badging/internal/logger"
	"ms-badging/internal/models"
	"ms-badging/internal/sse"
	"ms-badging/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStats struct {
	calls int32
	err   error
}

func (s *stubStats) GetAttendeeStats(ctx context.Context) (models.AttendeeStats, error) {
	n := atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return models.AttendeeStats{}, s.err
	}
	return models.AttendeeStats{TotalBadgesIssued: 10, TotalCheckIns: int(n)}, nil
}

func newRouter(svc StatsProvider, emitter *sse.CheckInEventEmitter) http.Handler {
	r := chi.NewRouter()
	NewHandler(svc, emitter, logger.NewNop()).RegisterRoutes(r)
	return r
}

func TestGetStats(t *testing.T) {
	router := newRouter(&stubStats{}, sse.NewCheckInEventEmitter())

	req := httptest.NewRequest(http.MethodGet, "/api/badges/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		utils.APIResponse
		Data models.AttendeeStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 10, body.Data.TotalBadgesIssued)
}

func TestGetStats_Error(t *testing.T) {
	router := newRouter(&stubStats{err: errors.New("db down")}, sse.NewCheckInEventEmitter())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/badges/stats", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestStreamStats_PushesAfterCheckIn(t *testing.T) {
	emitter := sse.NewCheckInEventEmitter()
	srv := httptest.NewServer(newRouter(&stubStats{}, emitter))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/badges/stats/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(resp.Body)
	name, _ := readEvent(t, reader)
	assert.Equal(t, "connected", name)
	name, data := readEvent(t, reader)
	assert.Equal(t, "stats", name)
	assert.Contains(t, data, `"total_badges_issued":10`)

	emitter.NotifyCheckIn(models.CheckInNotice{BadgeID: "AIS2025-1", CheckInType: models.CheckIn, Location: "main_entrance"})

	name, data = readEvent(t, reader)
	assert.Equal(t, "checkin", name)
	assert.Contains(t, data, "AIS2025-1")
	name, _ = readEvent(t, reader)
	assert.Equal(t, "stats", name)
}
