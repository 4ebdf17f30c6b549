package adapthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	adapthttp "healthreport/internal/adapter/http"
	"healthreport/internal/adapter/memory"
	"healthreport/internal/app"
	"healthreport/internal/domain"
	"healthreport/internal/logger"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type commenterFunc func(ctx context.Context, prompt string) (string, error)

func (f commenterFunc) Comment(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// failingInsertStore rejects every reflection insert the way the streaming
// inserter reports row-level errors.
type failingInsertStore struct {
	*memory.DB
}

func (failingInsertStore) InsertReflection(context.Context, domain.WeeklyReflection) error {
	return fmt.Errorf("%w: row 0: no such field: mood", domain.ErrInsertFailed)
}

type fakeFederated struct {
	profile domain.FederatedProfile
	err     error
}

func (f *fakeFederated) AuthCodeURL(state string) string {
	return "https://issuer.example/auth?state=" + state
}

func (f *fakeFederated) Exchange(ctx context.Context, code string) (domain.FederatedProfile, error) {
	return f.profile, f.err
}

// ---------------------------------------------------------------------------
// Test-server helpers
// ---------------------------------------------------------------------------

type testEnv struct {
	ts     *httptest.Server
	client *http.Client
	db     *memory.DB
}

func newTestEnv(t *testing.T, commenter domain.Commenter, sso adapthttp.FederatedProvider) *testEnv {
	t.Helper()
	return newTestEnvWith(t, memory.New(), nil, commenter, sso)
}

// newTestEnvWith lets a test swap the reflection store; nil uses db.
func newTestEnvWith(t *testing.T, db *memory.DB, reflections domain.ReflectionRepository, commenter domain.Commenter, sso adapthttp.FederatedProvider) *testEnv {
	t.Helper()

	if reflections == nil {
		reflections = db
	}
	log := logger.NewNop()
	authSvc := app.NewAuthService(db, db.NewSessionRepo(), app.NewSessionSigner("test-secret"), 0, log)
	activitySvc := app.NewActivityService(db, log)
	reflectionSvc := app.NewReflectionService(reflections, db, commenter, log)

	webDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(webDir, "index.html"), []byte("<html>spa</html>"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(webDir, "app.js"), []byte("console.log(1)"), 0o600); err != nil {
		t.Fatal(err)
	}

	srv := adapthttp.New(activitySvc, reflectionSvc, authSvc, log, adapthttp.Options{WebDir: webDir})
	if sso != nil {
		srv.WithFederatedSignIn(sso)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{ts: ts, client: client, db: db}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// login registers and signs in a local user; the session cookie lands in
// the client's jar.
func (e *testEnv) login(t *testing.T, username string) {
	t.Helper()
	creds := map[string]string{"username": username, "password": "pw-" + username}
	if resp := e.do(t, http.MethodPost, "/register", creds); resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	if resp := e.do(t, http.MethodPost, "/login", creds); resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return m
}

func decodeList(t *testing.T, resp *http.Response) []map[string]any {
	t.Helper()
	var items []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return items
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected %d, got %d; body: %s", want, resp.StatusCode, body)
	}
}

var sampleActivity = map[string]any{
	"start_time":       "2024-05-06T09:00:00Z",
	"end_time":         "2024-05-06T10:00:00Z",
	"activity_content": "standup and planning",
	"category_id":      "business",
	"fatigue_level":    3,
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(t, http.MethodGet, "/api/health", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["ok"] != true {
		t.Fatalf("expected ok=true, got %v", body["ok"])
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("expected Cache-Control no-store, got %q", cc)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	cases := []struct {
		method, path string
		body         any
	}{
		{http.MethodPost, "/api/v1/activities", sampleActivity},
		{http.MethodGet, "/api/v1/activities", nil},
		{http.MethodGet, "/api/v1/activities/abc", nil},
		{http.MethodPatch, "/api/v1/activities/abc", map[string]any{}},
		{http.MethodDelete, "/api/v1/activities/abc", nil},
		{http.MethodPost, "/api/v1/weekly-reflections", map[string]any{"week_start_date": "2024-05-06"}},
		{http.MethodGet, "/api/v1/weekly-reflections", nil},
		{http.MethodPost, "/api/v1/weekly-reflections/ai-diagnosis", map[string]any{}},
		{http.MethodGet, "/api/v1/weekly-reflections/weekly-load-summary?week_start_date=2024-05-06", nil},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			resp := env.do(t, tc.method, tc.path, tc.body)
			expectStatus(t, resp, http.StatusUnauthorized)
			if body := decodeBody(t, resp); body["error"] != domain.ErrUnauthorized.Error() {
				t.Fatalf("unexpected error body: %v", body)
			}
		})
	}

	items, err := env.db.ListActivities(context.Background(), "", domain.ActivityRange{})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no stored activities, got %d", len(items))
	}
}

func TestForgedCookieIsRejected(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/v1/activities", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.AddCookie(&http.Cookie{Name: "session", Value: "not-a-jwt"})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestRegisterLoginSessionLogout(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(t, http.MethodGet, "/session", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["logged_in"] != false {
		t.Fatalf("expected logged_in=false, got %v", body)
	}

	resp = env.do(t, http.MethodPost, "/register", map[string]string{"username": "alice", "password": "secret"})
	expectStatus(t, resp, http.StatusCreated)
	reg := decodeBody(t, resp)
	if reg["message"] != "user created" || reg["user_id"] == "" {
		t.Fatalf("unexpected register body: %v", reg)
	}

	resp = env.do(t, http.MethodPost, "/register", map[string]string{"username": "alice", "password": "other"})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = env.do(t, http.MethodPost, "/register", map[string]string{"username": "bob"})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = env.do(t, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "wrong"})
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = env.do(t, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "secret"})
	expectStatus(t, resp, http.StatusOK)
	login := decodeBody(t, resp)
	if login["user_id"] != reg["user_id"] || login["username"] != "alice" {
		t.Fatalf("unexpected login body: %v", login)
	}
	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "session" {
			session = c
		}
	}
	if session == nil || !session.HttpOnly || session.MaxAge <= 0 {
		t.Fatalf("expected an HttpOnly session cookie with a max age, got %+v", session)
	}

	resp = env.do(t, http.MethodGet, "/session", nil)
	status := decodeBody(t, resp)
	if status["logged_in"] != true || status["username"] != "alice" || status["user_id"] != reg["user_id"] {
		t.Fatalf("unexpected session body: %v", status)
	}

	resp = env.do(t, http.MethodPost, "/logout", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["message"] != "logout successful" {
		t.Fatalf("unexpected logout body: %v", body)
	}

	resp = env.do(t, http.MethodGet, "/api/v1/activities", nil)
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = env.do(t, http.MethodGet, "/logout", nil)
	expectStatus(t, resp, http.StatusOK)
}

func TestActivityLifecycle(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.login(t, "alice")

	resp := env.do(t, http.MethodPost, "/api/v1/activities", sampleActivity)
	expectStatus(t, resp, http.StatusCreated)
	created := decodeBody(t, resp)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("expected an id, got %v", created)
	}
	if created["fatigue_notes"] != nil {
		t.Fatalf("expected null fatigue_notes, got %v", created["fatigue_notes"])
	}

	resp = env.do(t, http.MethodGet, "/api/v1/activities/"+id, nil)
	expectStatus(t, resp, http.StatusOK)
	got := decodeBody(t, resp)
	for _, k := range []string{"activity_content", "category_id", "fatigue_level", "start_time", "end_time"} {
		if got[k] != created[k] {
			t.Fatalf("%s: expected %v, got %v", k, created[k], got[k])
		}
	}

	resp = env.do(t, http.MethodPatch, "/api/v1/activities/"+id, map[string]any{})
	expectStatus(t, resp, http.StatusOK)
	if same := decodeBody(t, resp); same["updated_at"] != created["updated_at"] {
		t.Fatalf("empty patch should not touch updated_at: %v vs %v", same["updated_at"], created["updated_at"])
	}

	resp = env.do(t, http.MethodPatch, "/api/v1/activities/"+id, map[string]any{"fatigue_level": 5, "fatigue_notes": "long day"})
	expectStatus(t, resp, http.StatusOK)
	patched := decodeBody(t, resp)
	if patched["fatigue_level"] != float64(5) || patched["fatigue_notes"] != "long day" {
		t.Fatalf("unexpected patched body: %v", patched)
	}
	if patched["activity_content"] != created["activity_content"] {
		t.Fatalf("untouched field changed: %v", patched["activity_content"])
	}

	resp = env.do(t, http.MethodDelete, "/api/v1/activities/"+id, nil)
	expectStatus(t, resp, http.StatusNoContent)

	resp = env.do(t, http.MethodDelete, "/api/v1/activities/"+id, nil)
	expectStatus(t, resp, http.StatusNotFound)

	resp = env.do(t, http.MethodGet, "/api/v1/activities/"+id, nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestActivityValidation(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.login(t, "alice")

	withFatigue := func(level any) map[string]any {
		m := map[string]any{}
		for k, v := range sampleActivity {
			m[k] = v
		}
		m["fatigue_level"] = level
		return m
	}

	cases := []struct {
		name      string
		body      any
		wantField string
	}{
		{"fatigue above range", withFatigue(6), "fatigue_level"},
		{"fatigue below range", withFatigue(-1), "fatigue_level"},
		{"missing content", map[string]any{
			"start_time":    "2024-05-06T09:00:00Z",
			"end_time":      "2024-05-06T10:00:00Z",
			"category_id":   "study",
			"fatigue_level": 1,
		}, "activity_content"},
		{"missing fatigue", map[string]any{
			"start_time":       "2024-05-06T09:00:00Z",
			"end_time":         "2024-05-06T10:00:00Z",
			"activity_content": "reading",
			"category_id":      "study",
		}, "fatigue_level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/v1/activities", tc.body)
			expectStatus(t, resp, http.StatusBadRequest)
			body := decodeBody(t, resp)
			fields, _ := body["fields"].(map[string]any)
			if _, ok := fields[tc.wantField]; !ok {
				t.Fatalf("expected a %s field error, got %v", tc.wantField, body)
			}
		})
	}

	resp := env.do(t, http.MethodPost, "/api/v1/activities", `{"start_time":`)
	expectStatus(t, resp, http.StatusBadRequest)

	resp = env.do(t, http.MethodPost, "/api/v1/activities", sampleActivity)
	expectStatus(t, resp, http.StatusCreated)
	id := decodeBody(t, resp)["id"].(string)

	resp = env.do(t, http.MethodPatch, "/api/v1/activities/"+id, map[string]any{"fatigue_level": 6})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = env.do(t, http.MethodPatch, "/api/v1/activities/"+id, map[string]any{"user_id": "someone-else"})
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestActivityListFiltersAndOwnership(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.login(t, "alice")

	early := map[string]any{
		"start_time":       "2024-05-01T08:00:00Z",
		"end_time":         "2024-05-01T09:00:00Z",
		"activity_content": "early",
		"category_id":      "private",
		"fatigue_level":    1,
	}
	expectStatus(t, env.do(t, http.MethodPost, "/api/v1/activities", early), http.StatusCreated)
	expectStatus(t, env.do(t, http.MethodPost, "/api/v1/activities", sampleActivity), http.StatusCreated)

	items := decodeList(t, env.do(t, http.MethodGet, "/api/v1/activities", nil))
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0]["activity_content"] != "standup and planning" {
		t.Fatalf("expected newest first, got %v", items[0]["activity_content"])
	}

	items = decodeList(t, env.do(t, http.MethodGet, "/api/v1/activities?start_date=2024-05-03", nil))
	if len(items) != 1 || items[0]["activity_content"] != "standup and planning" {
		t.Fatalf("start_date filter: got %v", items)
	}

	items = decodeList(t, env.do(t, http.MethodGet, "/api/v1/activities?end_date=2024-05-02T00:00:00Z", nil))
	if len(items) != 1 || items[0]["activity_content"] != "early" {
		t.Fatalf("end_date filter: got %v", items)
	}

	expectStatus(t, env.do(t, http.MethodGet, "/api/v1/activities?start_date=yesterday", nil), http.StatusBadRequest)

	id := items[0]["id"].(string)

	other := newTestEnvClient(t, env)
	other.login(t, "mallory")
	expectStatus(t, other.do(t, http.MethodGet, "/api/v1/activities/"+id, nil), http.StatusNotFound)
	expectStatus(t, other.do(t, http.MethodDelete, "/api/v1/activities/"+id, nil), http.StatusNotFound)
	if list := decodeList(t, other.do(t, http.MethodGet, "/api/v1/activities", nil)); len(list) != 0 {
		t.Fatalf("expected an empty list for another user, got %d", len(list))
	}
}

// newTestEnvClient shares env's server with a fresh cookie jar.
func newTestEnvClient(t *testing.T, env *testEnv) *testEnv {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{ts: env.ts, db: env.db, client: &http.Client{Jar: jar, CheckRedirect: env.client.CheckRedirect}}
}

func TestReflectionUpsertKeepsOneRecordPerWeek(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.login(t, "alice")

	expectStatus(t, env.do(t, http.MethodPost, "/api/v1/activities", sampleActivity), http.StatusCreated)

	first := map[string]any{
		"week_start_date": "2024-05-06",
		"title":           "first draft",
		"questions":       []map[string]any{{"text": "Slept well?", "score": 2}},
	}
	resp := env.do(t, http.MethodPost, "/api/v1/weekly-reflections", first)
	expectStatus(t, resp, http.StatusCreated)
	saved := decodeBody(t, resp)
	data, _ := saved["data"].(map[string]any)
	if data["weekly_total_load_points"] != float64(3) {
		t.Fatalf("expected load 3.0, got %v", data["weekly_total_load_points"])
	}

	second := map[string]any{
		"week_start_date":          "2024-05-06",
		"title":                    "final",
		"good_things":              "finished the report",
		"weekly_total_load_points": 999,
	}
	resp = env.do(t, http.MethodPost, "/api/v1/weekly-reflections", second)
	expectStatus(t, resp, http.StatusCreated)
	data, _ = decodeBody(t, resp)["data"].(map[string]any)
	if data["title"] != "final" || data["weekly_total_load_points"] != float64(3) {
		t.Fatalf("unexpected upsert result: %v", data)
	}

	items := decodeList(t, env.do(t, http.MethodGet, "/api/v1/weekly-reflections", nil))
	if len(items) != 1 {
		t.Fatalf("expected exactly one reflection, got %d", len(items))
	}
	if items[0]["week_start_date"] != "2024-05-06" {
		t.Fatalf("unexpected week: %v", items[0]["week_start_date"])
	}

	items = decodeList(t, env.do(t, http.MethodGet, "/api/v1/weekly-reflections?week_start_date=2024-05-13", nil))
	if len(items) != 0 {
		t.Fatalf("expected no reflections for another week, got %d", len(items))
	}
	expectStatus(t, env.do(t, http.MethodGet, "/api/v1/weekly-reflections?week_start_date=13/05/2024", nil), http.StatusBadRequest)
}

func TestReflectionInsertFailureIsBadRequestWithCause(t *testing.T) {
	db := memory.New()
	env := newTestEnvWith(t, db, failingInsertStore{db}, nil, nil)
	env.login(t, "alice")

	resp := env.do(t, http.MethodPost, "/api/v1/weekly-reflections", map[string]any{"week_start_date": "2024-05-06"})
	expectStatus(t, resp, http.StatusBadRequest)
	msg, _ := decodeBody(t, resp)["error"].(string)
	if !strings.Contains(msg, "no such field: mood") {
		t.Fatalf("expected the raw insert error, got %q", msg)
	}
}

func TestReflectionValidation(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.login(t, "alice")

	cases := []struct {
		name      string
		body      map[string]any
		wantField string
	}{
		{"missing week", map[string]any{"title": "x"}, "week_start_date"},
		{"malformed week", map[string]any{"week_start_date": "2024/05/06"}, "week_start_date"},
		{"score too high", map[string]any{
			"week_start_date": "2024-05-06",
			"questions":       []map[string]any{{"text": "Mood?", "score": 6}},
		}, "questions[0].score"},
		{"score zero", map[string]any{
			"week_start_date": "2024-05-06",
			"questions":       []map[string]any{{"text": "Mood?", "score": 0}},
		}, "questions[0].score"},
		{"empty question text", map[string]any{
			"week_start_date": "2024-05-06",
			"questions":       []map[string]any{{"text": "", "score": 3}},
		}, "questions[0].text"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/v1/weekly-reflections", tc.body)
			expectStatus(t, resp, http.StatusBadRequest)
			fields, _ := decodeBody(t, resp)["fields"].(map[string]any)
			if _, ok := fields[tc.wantField]; !ok {
				t.Fatalf("expected a %s field error, got %v", tc.wantField, fields)
			}
		})
	}
}

func TestWeeklyLoadSummary(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.login(t, "alice")

	expectStatus(t, env.do(t, http.MethodPost, "/api/v1/activities", sampleActivity), http.StatusCreated)
	outside := map[string]any{
		"start_time":       "2024-05-06T11:00:00Z",
		"end_time":         "2024-05-06T12:00:00Z",
		"activity_content": "nap",
		"category_id":      "rest",
		"fatigue_level":    5,
	}
	expectStatus(t, env.do(t, http.MethodPost, "/api/v1/activities", outside), http.StatusCreated)

	resp := env.do(t, http.MethodGet, "/api/v1/weekly-reflections/weekly-load-summary?week_start_date=2024-05-06", nil)
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	if body["total_load_points"] != float64(3) {
		t.Fatalf("expected total 3.0, got %v", body["total_load_points"])
	}
	daily, _ := body["daily"].([]any)
	if len(daily) != 1 {
		t.Fatalf("expected one day, got %v", daily)
	}
	day := daily[0].(map[string]any)
	if day["date"] != "2024-05-06" || day["activity_minutes"] != float64(60) || day["load_points"] != float64(3) {
		t.Fatalf("unexpected day: %v", day)
	}

	resp = env.do(t, http.MethodGet, "/api/v1/weekly-reflections/weekly-load-summary", nil)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestAIDiagnosis(t *testing.T) {
	var gotPrompt string
	commenter := commenterFunc(func(ctx context.Context, prompt string) (string, error) {
		gotPrompt = prompt
		return "  You did well this week.  ", nil
	})
	env := newTestEnv(t, commenter, nil)
	env.login(t, "alice")

	req := map[string]any{
		"week_start_date":          "2024-05-06",
		"ai_diagnosis_result":      "previous comment",
		"weekly_total_load_points": 4.5,
		"title":                    "Week 19",
		"questions":                []map[string]any{{"text": "Energy", "score": 2}},
		"anxieties":                "deadlines",
		"good_things":              "long walk",
	}
	resp := env.do(t, http.MethodPost, "/api/v1/weekly-reflections/ai-diagnosis", req)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["ai_comment"] != "You did well this week." {
		t.Fatalf("unexpected comment: %v", body)
	}
	for _, want := range []string{"Week 19", "Energy: 2/5", "deadlines", "long walk"} {
		if !strings.Contains(gotPrompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, gotPrompt)
		}
	}

	items := decodeList(t, env.do(t, http.MethodGet, "/api/v1/weekly-reflections", nil))
	if len(items) != 0 {
		t.Fatalf("diagnosis must not persist anything, got %d reflections", len(items))
	}
}

func TestAIDiagnosisFailureIsInline(t *testing.T) {
	commenter := commenterFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("quota exceeded")
	})
	env := newTestEnv(t, commenter, nil)
	env.login(t, "alice")

	resp := env.do(t, http.MethodPost, "/api/v1/weekly-reflections/ai-diagnosis", map[string]any{"title": "x"})
	expectStatus(t, resp, http.StatusOK)
	comment, _ := decodeBody(t, resp)["ai_comment"].(string)
	if !strings.HasPrefix(comment, app.DiagnosisErrorPrefix) || !strings.Contains(comment, "quota exceeded") {
		t.Fatalf("expected inline error text, got %q", comment)
	}
}

func TestFederatedSignIn(t *testing.T) {
	sso := &fakeFederated{profile: domain.FederatedProfile{GoogleID: "g-123", Email: "a@example.com", DisplayName: "Alice"}}
	env := newTestEnv(t, nil, sso)

	resp := env.do(t, http.MethodGet, "/auth/config", nil)
	if body := decodeBody(t, resp); body["sso_enabled"] != true {
		t.Fatalf("expected sso_enabled=true, got %v", body)
	}

	resp = env.do(t, http.MethodGet, "/auth/google/login", nil)
	expectStatus(t, resp, http.StatusFound)
	loc := resp.Header.Get("Location")
	_, state, ok := strings.Cut(loc, "state=")
	if !ok || state == "" {
		t.Fatalf("expected state in redirect, got %q", loc)
	}

	resp = env.do(t, http.MethodGet, "/auth/google/callback?code=c&state=wrong", nil)
	expectStatus(t, resp, http.StatusBadRequest)

	resp = env.do(t, http.MethodGet, "/auth/google/login", nil)
	_, state, _ = strings.Cut(resp.Header.Get("Location"), "state=")
	resp = env.do(t, http.MethodGet, "/auth/google/callback?code=c&state="+state, nil)
	expectStatus(t, resp, http.StatusFound)
	if resp.Header.Get("Location") != "/" {
		t.Fatalf("expected redirect to /, got %q", resp.Header.Get("Location"))
	}

	resp = env.do(t, http.MethodGet, "/session", nil)
	status := decodeBody(t, resp)
	if status["logged_in"] != true || status["username"] != "Alice" {
		t.Fatalf("unexpected session after federated sign-in: %v", status)
	}
}

func TestFederatedRoutesDisabled(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	if body := decodeBody(t, env.do(t, http.MethodGet, "/auth/config", nil)); body["sso_enabled"] != false {
		t.Fatalf("expected sso_enabled=false, got %v", body)
	}
	expectStatus(t, env.do(t, http.MethodGet, "/auth/google/login", nil), http.StatusNotFound)
	expectStatus(t, env.do(t, http.MethodGet, "/auth/google/callback", nil), http.StatusNotFound)
}

func TestUnknownAPIPathIsJSON404(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(t, http.MethodGet, "/api/v1/nope", nil)
	expectStatus(t, resp, http.StatusNotFound)
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected JSON, got %q", ct)
	}
	if body := decodeBody(t, resp); body["error"] != "not found" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestSPAFallback(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	for _, path := range []string{"/", "/reflections/2024-05-06", "/settings"} {
		resp := env.do(t, http.MethodGet, path, nil)
		expectStatus(t, resp, http.StatusOK)
		b, _ := io.ReadAll(resp.Body)
		if string(b) != "<html>spa</html>" {
			t.Fatalf("%s: expected index.html, got %q", path, b)
		}
	}

	resp := env.do(t, http.MethodGet, "/app.js", nil)
	expectStatus(t, resp, http.StatusOK)
	b, _ := io.ReadAll(resp.Body)
	if string(b) != "console.log(1)" {
		t.Fatalf("expected static asset, got %q", b)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.do(t, http.MethodGet, "/api/health", nil)

	resp := env.do(t, http.MethodGet, "/metrics", nil)
	expectStatus(t, resp, http.StatusOK)
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), "healthreport_http_requests_total") {
		t.Fatal("expected request counter in metrics output")
	}
}
