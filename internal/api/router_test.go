package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pnwmakes/h3-network-platform-sub003/infrastructure/jwt"
	infralogger "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/logger"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/api"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/config"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/database/databasetest"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/recurrence"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/scheduling"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/sweep"
)

const testSecret = "router-test-secret-value"

var testNow = time.Date(2030, time.June, 1, 12, 0, 0, 0, time.UTC)

type testAPI struct {
	engine *gin.Engine
	store  *databasetest.Store
	clock  time.Time
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ta := &testAPI{store: databasetest.New(), clock: testNow}
	ta.store.Now = func() time.Time { return ta.clock }
	ta.store.AddCreator(domain.Creator{ID: "c-1", UserID: "u-1", DisplayName: "Ada"})
	ta.store.AddCreator(domain.Creator{ID: "c-2", UserID: "u-2", DisplayName: "Grace"})
	ta.store.AddContent(domain.ContentTypeVideo, domain.Content{ID: "v1", CreatorID: "c-1", Title: "Pilot"})
	ta.store.AddContent(domain.ContentTypeBlog, domain.Content{ID: "b1", CreatorID: "c-1", Title: "Notes"})
	ta.store.AddContent(domain.ContentTypeVideo, domain.Content{ID: "v2", CreatorID: "c-2", Title: "Other"})

	clock := func() time.Time { return ta.clock }
	log := infralogger.NewNop()
	scheduler := scheduling.NewService(ta.store, recurrence.NewExpander(), log, scheduling.WithClock(clock))
	sweeper := sweep.NewService(ta.store, sweep.DefaultConfig(), log)

	cfg := &config.Config{
		Service: config.ServiceConfig{Name: "h3-scheduler", Version: "test", Port: 8080},
		Auth:    config.AuthConfig{JWTSecret: testSecret},
	}
	router := api.NewRouter(cfg, api.Dependencies{
		Scheduler: scheduler,
		Sweeper:   sweeper,
		Creators:  ta.store,
		Clock:     clock,
	})
	ta.engine = router.NewServer(log).Router()
	return ta
}

func token(t *testing.T, sub string, role domain.Role) string {
	t.Helper()
	tok, err := jwt.Sign(testSecret, sub, string(role), time.Hour)
	require.NoError(t, err)
	return tok
}

func (ta *testAPI) do(t *testing.T, method, path, tok string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	ta.engine.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func scheduleBody(contentType, id string, at time.Time) map[string]any {
	return map[string]any{
		"contentType": contentType,
		"contentId":   id,
		"publishAt":   at.Format(time.RFC3339),
	}
}

func TestAPI_RequiresToken(t *testing.T) {
	ta := newTestAPI(t)

	w, body := ta.do(t, http.MethodGet, "/api/creator/schedule", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, body["error"])

	w, _ = ta.do(t, http.MethodGet, "/api/creator/schedule", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_ScheduleAndList(t *testing.T) {
	ta := newTestAPI(t)
	tok := token(t, "u-1", domain.RoleCreator)

	w, body := ta.do(t, http.MethodPost, "/api/creator/schedule", tok, scheduleBody("video", "v1", testNow.Add(time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Content scheduled successfully", body["message"])
	item := body["scheduledContent"].(map[string]any)
	assert.Equal(t, "PENDING", item["status"])
	assert.Equal(t, "VIDEO", item["contentType"])

	w, body = ta.do(t, http.MethodGet, "/api/creator/schedule", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
	list := body["scheduledContent"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "Pilot", list[0].(map[string]any)["title"])
	assert.Equal(t, "Ada", list[0].(map[string]any)["creator"])
}

func TestAPI_ScheduleErrors(t *testing.T) {
	ta := newTestAPI(t)
	tok := token(t, "u-1", domain.RoleCreator)

	_, _ = ta.do(t, http.MethodPost, "/api/creator/schedule", tok, scheduleBody("VIDEO", "v1", testNow.Add(time.Hour)))

	tests := []struct {
		name       string
		tok        string
		body       any
		wantStatus int
		wantError  string
	}{
		{"past date", tok, scheduleBody("BLOG", "b1", testNow.Add(-time.Hour)), http.StatusBadRequest, "Publish date must be in the future"},
		{"missing fields", tok, map[string]any{"contentType": "BLOG"}, http.StatusBadRequest, "Content type, content ID, and publish date are required"},
		{"bad content type", tok, scheduleBody("PODCAST", "b1", testNow.Add(time.Hour)), http.StatusBadRequest, "contentType must be VIDEO or BLOG"},
		{"already scheduled", tok, scheduleBody("VIDEO", "v1", testNow.Add(2*time.Hour)), http.StatusConflict, "Content is already scheduled"},
		{"foreign content", tok, scheduleBody("VIDEO", "v2", testNow.Add(time.Hour)), http.StatusNotFound, "Content not found or access denied"},
		{"no creator profile", token(t, "u-9", domain.RoleCreator), scheduleBody("VIDEO", "v1", testNow.Add(time.Hour)), http.StatusNotFound, "Creator profile not found"},
		{"viewer role", token(t, "u-1", domain.Role("VIEWER")), scheduleBody("VIDEO", "v1", testNow.Add(time.Hour)), http.StatusForbidden, "Insufficient permissions"},
		{"malformed body", tok, "not an object", http.StatusBadRequest, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := ta.do(t, http.MethodPost, "/api/creator/schedule", tt.tok, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestAPI_UpdateAndCancel(t *testing.T) {
	ta := newTestAPI(t)
	tok := token(t, "u-1", domain.RoleCreator)

	_, body := ta.do(t, http.MethodPost, "/api/creator/schedule", tok, scheduleBody("BLOG", "b1", testNow.Add(time.Hour)))
	id := body["scheduledContent"].(map[string]any)["id"].(string)

	w, _ := ta.do(t, http.MethodPut, "/api/creator/schedule/not-a-uuid", tok, map[string]any{"notes": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = ta.do(t, http.MethodPut, "/api/creator/schedule/"+id, tok, map[string]any{
		"publishAt": testNow.Add(3 * time.Hour).Format(time.RFC3339),
		"notes":     "moved",
	})
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Equal(t, "Schedule updated successfully", body["message"])
	content, _ := ta.store.GetContent(domain.ContentTypeBlog, "b1")
	assert.Equal(t, testNow.Add(3*time.Hour), *content.ScheduledAt)

	w, body = ta.do(t, http.MethodPut, "/api/creator/schedule/"+id, tok, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No fields to update", body["error"])

	other := token(t, "u-2", domain.RoleCreator)
	w, body = ta.do(t, http.MethodDelete, "/api/creator/schedule/"+id, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Scheduled content not found", body["error"])

	w, body = ta.do(t, http.MethodDelete, "/api/creator/schedule/"+id, tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Schedule cancelled successfully", body["message"])
	content, _ = ta.store.GetContent(domain.ContentTypeBlog, "b1")
	assert.Equal(t, domain.ContentStatusDraft, content.Status)
}

func TestAPI_Recurring(t *testing.T) {
	ta := newTestAPI(t)
	tok := token(t, "u-1", domain.RoleCreator)

	w, body := ta.do(t, http.MethodPost, "/api/creator/schedule/recurring", tok, map[string]any{
		"contentIds": []string{"v1", "v2"},
		"startDate":  "2030-06-02",
		"pattern":    "daily",
		"time":       "09:30",
		"endType":    "after",
		"endCount":   5,
		"notes":      "summer",
	})
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Equal(t, float64(3), body["scheduledItems"])
	assert.Equal(t, float64(2), body["skippedItems"])
	assert.Equal(t, "Successfully created 3 recurring schedules", body["message"])

	items := ta.store.ItemsFor("v1")
	require.Len(t, items, 3)
	assert.Equal(t, time.Date(2030, time.June, 2, 9, 30, 0, 0, time.UTC), items[0].PublishAt)
	assert.Equal(t, "summer (Recurring daily)", items[0].Notes)

	w, body = ta.do(t, http.MethodPost, "/api/creator/schedule/recurring", tok, map[string]any{
		"contentIds": []string{"b1"},
		"startDate":  "2030-06-10",
		"pattern":    "weekly",
		"time":       "09:30",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "weekdays are required for a weekly pattern", body["error"])

	w, body = ta.do(t, http.MethodPost, "/api/creator/schedule/recurring", tok, map[string]any{"contentIds": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "At least one content item is required", body["error"])
}

func TestAPI_RecurringEndDateCoversWholeDay(t *testing.T) {
	ta := newTestAPI(t)
	tok := token(t, "u-1", domain.RoleCreator)

	w, body := ta.do(t, http.MethodPost, "/api/creator/schedule/recurring", tok, map[string]any{
		"contentIds": []string{"v1"},
		"startDate":  "2030-06-02",
		"pattern":    "daily",
		"interval":   1,
		"time":       "18:00",
		"endType":    "on",
		"endDate":    "2030-06-04",
	})
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Equal(t, float64(3), body["scheduledItems"])
}

func TestAPI_Available(t *testing.T) {
	ta := newTestAPI(t)
	tok := token(t, "u-1", domain.RoleCreator)
	_, _ = ta.do(t, http.MethodPost, "/api/creator/schedule", tok, scheduleBody("VIDEO", "v1", testNow.Add(time.Hour)))

	w, body := ta.do(t, http.MethodGet, "/api/creator/schedule/available", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	available := body["availableContent"].(map[string]any)
	assert.Empty(t, available["videos"])
	assert.Len(t, available["blogs"], 1)
}

func TestAPI_AutoPublish(t *testing.T) {
	ta := newTestAPI(t)
	creatorTok := token(t, "u-1", domain.RoleCreator)
	systemTok := token(t, "scheduler", domain.RoleSystem)

	_, _ = ta.do(t, http.MethodPost, "/api/creator/schedule", creatorTok, scheduleBody("VIDEO", "v1", testNow.Add(time.Hour)))
	_, _ = ta.do(t, http.MethodPost, "/api/creator/schedule", creatorTok, scheduleBody("BLOG", "b1", testNow.Add(3*time.Hour)))

	w, _ := ta.do(t, http.MethodPost, "/api/auto-publish", creatorTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body := ta.do(t, http.MethodGet, "/api/auto-publish", creatorTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "operational", data["systemStatus"])
	assert.Equal(t, float64(2), data["totalPending"])
	assert.Len(t, data["upcomingContent"], 1)

	ta.clock = testNow.Add(2 * time.Hour)
	w, body = ta.do(t, http.MethodPost, "/api/auto-publish", systemTok, nil)
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Auto-publish completed. Processed 1 items.", body["message"])
	assert.Equal(t, float64(1), body["publishedCount"])
	summary := body["summary"].(map[string]any)
	assert.Equal(t, float64(1), summary["total"])
	assert.Equal(t, float64(1), summary["published"])
	processed := body["processed"].([]any)
	require.Len(t, processed, 1)
	assert.Equal(t, "published", processed[0].(map[string]any)["status"])

	content, _ := ta.store.GetContent(domain.ContentTypeVideo, "v1")
	assert.Equal(t, domain.ContentStatusPublished, content.Status)
}
