package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"huddled/internal/models"
	"huddled/internal/store"
	"huddled/pkg/render"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "huddled.db")
	database, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := database.AutoMigrate(&models.User{}, &models.Group{}, &models.GroupMember{}); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	st := store.New(database, nil)

	renderer, err := render.New()
	if err != nil {
		t.Fatalf("init renderer: %v", err)
	}

	api, err := New(st, renderer, nil, Config{BaseURL: "http://huddled.test"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("init api: %v", err)
	}

	routes, err := api.Routes()
	if err != nil {
		t.Fatalf("build routes: %v", err)
	}

	server := httptest.NewServer(routes)
	t.Cleanup(server.Close)

	return server, st
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

type groupResponse struct {
	Success  bool            `json:"success"`
	Group    GroupProjection `json:"group"`
	ShareURL string          `json:"shareUrl"`
	Error    string          `json:"error"`
}

func TestCreateGroup(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/groups", map[string]any{
		"deviceToken": "creator",
		"modelId":     "m1",
		"title":       "Reading club",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var body groupResponse
	decodeBody(t, resp, &body)

	if body.Group.MemberCount != 1 {
		t.Errorf("memberCount = %d, want 1", body.Group.MemberCount)
	}
	if len(body.Group.InviteCode) != 8 {
		t.Errorf("inviteCode %q length = %d, want 8", body.Group.InviteCode, len(body.Group.InviteCode))
	}
	if body.Group.ModelID != "m1" {
		t.Errorf("modelId = %q, want m1", body.Group.ModelID)
	}
	want := "http://huddled.test/g/" + body.Group.InviteCode
	if body.ShareURL != want {
		t.Errorf("shareUrl = %q, want %q", body.ShareURL, want)
	}
	if body.Group.ExpiresAt != nil {
		t.Errorf("expiresAt = %v, want null", body.Group.ExpiresAt)
	}
}

func TestCreateGroupValidation(t *testing.T) {
	server, _ := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "missing modelId", body: map[string]any{"deviceToken": "creator"}},
		{name: "missing deviceToken", body: map[string]any{"modelId": "m1"}},
		{name: "blank fields", body: map[string]any{"deviceToken": "  ", "modelId": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, server.URL+"/api/groups", tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

// Walks the full invitation lifecycle: create with a 1 hour expiry, a
// second device joins, duplicate join is rejected, and every read/join
// path reports 410 after the expiry passes.
func TestInvitationLifecycle(t *testing.T) {
	server, st := newTestServer(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.Now = func() time.Time { return now }

	resp := postJSON(t, server.URL+"/api/groups", map[string]any{
		"deviceToken":     "device-a",
		"modelId":         "m1",
		"expirationHours": 1,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	var created groupResponse
	decodeBody(t, resp, &created)

	if created.Group.ExpiresAt == nil {
		t.Fatal("expiresAt is null, want now+1h")
	}
	if !created.Group.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("expiresAt = %v, want %v", created.Group.ExpiresAt, now.Add(time.Hour))
	}
	if created.Group.MemberCount != 1 {
		t.Errorf("memberCount = %d, want 1", created.Group.MemberCount)
	}

	code := created.Group.InviteCode
	joinURL := fmt.Sprintf("%s/api/groups/%s/join", server.URL, code)

	resp = postJSON(t, joinURL, map[string]any{"deviceToken": "device-b"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join status = %d, want 200", resp.StatusCode)
	}
	var joined groupResponse
	decodeBody(t, resp, &joined)
	if !joined.Success {
		t.Error("join response success = false")
	}
	if joined.Group.MemberCount != 2 {
		t.Errorf("memberCount after join = %d, want 2", joined.Group.MemberCount)
	}

	resp = postJSON(t, joinURL, map[string]any{"deviceToken": "device-a"})
	var rejoin groupResponse
	status := resp.StatusCode
	decodeBody(t, resp, &rejoin)
	if status != http.StatusBadRequest {
		t.Fatalf("duplicate join status = %d, want 400", status)
	}
	if !strings.Contains(rejoin.Error, "already a member") {
		t.Errorf("duplicate join error = %q, want mention of already a member", rejoin.Error)
	}

	now = now.Add(2 * time.Hour)

	getResp, err := http.Get(server.URL + "/api/groups/" + code)
	if err != nil {
		t.Fatalf("GET group: %v", err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusGone {
		t.Errorf("get after expiry status = %d, want 410", getResp.StatusCode)
	}

	resp = postJSON(t, joinURL, map[string]any{"deviceToken": "device-c"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusGone {
		t.Errorf("join after expiry status = %d, want 410", resp.StatusCode)
	}
}

func TestJoinValidation(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/groups/abcd1234/join", map[string]any{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing deviceToken status = %d, want 400", resp.StatusCode)
	}

	resp = postJSON(t, server.URL+"/api/groups/abcd1234/join", map[string]any{"deviceToken": "d"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown code status = %d, want 404", resp.StatusCode)
	}
}

func TestGetGroup(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/groups", map[string]any{
		"deviceToken": "creator",
		"modelId":     "m1",
		"title":       "Hikers",
		"description": "Weekend hikes",
	})
	var created groupResponse
	decodeBody(t, resp, &created)

	getResp, err := http.Get(server.URL + "/api/groups/" + created.Group.InviteCode)
	if err != nil {
		t.Fatalf("GET group: %v", err)
	}
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", getResp.StatusCode)
	}
	var fetched groupResponse
	decodeBody(t, getResp, &fetched)

	if fetched.Group.Title != "Hikers" || fetched.Group.Description != "Weekend hikes" {
		t.Errorf("projection = %+v, want title and description preserved", fetched.Group)
	}
	if len(fetched.Group.Members) != 1 {
		t.Errorf("members = %d, want 1", len(fetched.Group.Members))
	}
	if fetched.Group.Creator.ID != fetched.Group.Members[0].ID {
		t.Errorf("creator %s is not the sole member %s", fetched.Group.Creator.ID, fetched.Group.Members[0].ID)
	}

	notFound, err := http.Get(server.URL + "/api/groups/zzzzzzzz")
	if err != nil {
		t.Fatalf("GET unknown group: %v", err)
	}
	notFound.Body.Close()
	if notFound.StatusCode != http.StatusNotFound {
		t.Errorf("unknown group status = %d, want 404", notFound.StatusCode)
	}
}

func TestUserGroupListings(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/groups", map[string]any{"deviceToken": "alice", "modelId": "m1"})
	var g1 groupResponse
	decodeBody(t, resp, &g1)

	resp = postJSON(t, server.URL+"/api/groups", map[string]any{"deviceToken": "bob", "modelId": "m2"})
	var g2 groupResponse
	decodeBody(t, resp, &g2)

	resp = postJSON(t, fmt.Sprintf("%s/api/groups/%s/join", server.URL, g2.Group.InviteCode), map[string]any{"deviceToken": "alice"})
	resp.Body.Close()

	listResp, err := http.Get(server.URL + "/api/users/alice/groups")
	if err != nil {
		t.Fatalf("GET user groups: %v", err)
	}
	var joined struct {
		Groups []GroupProjection `json:"groups"`
	}
	decodeBody(t, listResp, &joined)
	if len(joined.Groups) != 2 {
		t.Errorf("alice joined groups = %d, want 2", len(joined.Groups))
	}

	createdResp, err := http.Get(server.URL + "/api/users/alice/created-groups")
	if err != nil {
		t.Fatalf("GET created groups: %v", err)
	}
	var created struct {
		Groups []GroupProjection `json:"groups"`
	}
	decodeBody(t, createdResp, &created)
	if len(created.Groups) != 1 {
		t.Fatalf("alice created groups = %d, want 1", len(created.Groups))
	}
	if created.Groups[0].GroupID != g1.Group.GroupID {
		t.Errorf("created group = %s, want %s", created.Groups[0].GroupID, g1.Group.GroupID)
	}

	unknown, err := http.Get(server.URL + "/api/users/ghost/groups")
	if err != nil {
		t.Fatalf("GET unknown user groups: %v", err)
	}
	unknown.Body.Close()
	if unknown.StatusCode != http.StatusNotFound {
		t.Errorf("unknown user status = %d, want 404", unknown.StatusCode)
	}
}

func TestLandingPage(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/groups", map[string]any{
		"deviceToken": "creator",
		"modelId":     "m1",
		"title":       "Book club",
	})
	var created groupResponse
	decodeBody(t, resp, &created)

	pageResp, err := http.Get(server.URL + "/g/" + created.Group.InviteCode)
	if err != nil {
		t.Fatalf("GET landing page: %v", err)
	}
	defer pageResp.Body.Close()
	if pageResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", pageResp.StatusCode)
	}
	if ct := pageResp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}

	page, err := io.ReadAll(pageResp.Body)
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if !strings.Contains(string(page), created.Group.InviteCode) {
		t.Error("landing page does not show the invite code")
	}
	if !strings.Contains(string(page), "Book club") {
		t.Error("landing page does not show the group title")
	}

	missing, err := http.Get(server.URL + "/g/zzzzzzzz")
	if err != nil {
		t.Fatalf("GET missing landing page: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing page status = %d, want 404", missing.StatusCode)
	}
	if ct := missing.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("missing page Content-Type = %q, want text/html", ct)
	}
}

func TestIndex(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var doc struct {
		Name      string           `json:"name"`
		Endpoints []map[string]any `json:"endpoints"`
	}
	decodeBody(t, resp, &doc)
	if doc.Name != "huddled" {
		t.Errorf("name = %q, want huddled", doc.Name)
	}
	if len(doc.Endpoints) == 0 {
		t.Error("endpoints list is empty")
	}
}

func TestCORSPreflight(t *testing.T) {
	server, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/groups", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS request: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
