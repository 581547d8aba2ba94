package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/pregled/internal/auth"
	"github.com/erazemk/pregled/internal/db"
	"github.com/erazemk/pregled/internal/model"
	"github.com/erazemk/pregled/internal/qc"
	"github.com/erazemk/pregled/internal/store"
)

const testJWTSecret = "test-secret"

type testServer struct {
	*httptest.Server
	db    *sql.DB
	token string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret, NewServices(database, auth.Identity{}))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	if _, err := store.CreateUser(ctx, database, "admin", string(hash), model.RoleAdmin); err != nil {
		t.Fatalf("creating admin: %v", err)
	}

	body, err := json.Marshal(map[string]string{"username": "admin", "password": "password"})
	if err != nil {
		t.Fatalf("encoding login: %v", err)
	}
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}

	return &testServer{Server: server, db: database, token: loginResp.Token}
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader io.Reader = bytes.NewReader(nil)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends an authenticated request, checks the status and decodes the
// response into out if it is non-nil.
func (s *testServer) do(t *testing.T, method, path string, body any, wantStatus int, out any) {
	t.Helper()
	req, err := authRequest(method, s.URL+path, s.token, body)
	if err != nil {
		t.Fatalf("%s %s: building request: %v", method, path, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, wantStatus, resp.StatusCode, data)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decoding response: %v", method, path, err)
		}
	}
}

// uploadPhoto posts a small PNG as multipart form data.
func (s *testServer) uploadPhoto(t *testing.T, path string, fields map[string]string, wantStatus int, out any) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("writing field %s: %v", k, err)
		}
	}
	fw, err := mw.CreateFormFile("file", "evidence.png")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := fw.Write(pngBuf.Bytes()); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.URL+path, &body)
	if err != nil {
		t.Fatalf("building upload request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload %s: expected %d, got %d: %s", path, wantStatus, resp.StatusCode, data)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("upload %s: decoding response: %v", path, err)
		}
	}
}

func (s *testServer) createItem(t *testing.T, id, category string) {
	t.Helper()
	s.do(t, "POST", "/api/qc/items", map[string]string{
		"id":        id,
		"tool_name": "Tool " + id,
		"category":  category,
	}, http.StatusCreated, nil)
}

func TestLoginEndpoint(t *testing.T) {
	server := setupTestServer(t)

	body, err := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	if err != nil {
		t.Fatalf("encoding login: %v", err)
	}
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	server := setupTestServer(t)

	server.do(t, "POST", "/api/auth/logout", nil, http.StatusOK, nil)
	server.do(t, "GET", "/api/qc/pending", nil, http.StatusUnauthorized, nil)
}

func TestUnauthenticatedAccess(t *testing.T) {
	server := setupTestServer(t)

	resp, err := http.Get(server.URL + "/api/qc/pending")
	if err != nil {
		t.Fatalf("GET /api/qc/pending: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	server := setupTestServer(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user, err := store.CreateUser(context.Background(), server.db, "mojca", string(hash), model.RoleInspector)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	inspectorToken, err := auth.GenerateToken(testJWTSecret, user.ID, "mojca", model.RoleInspector)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		method, path string
		body         any
		want         int
	}{
		{"POST", "/api/qc/items", map[string]string{"tool_name": "Drill", "category": "Power Tools"}, http.StatusForbidden},
		{"GET", "/api/users", nil, http.StatusForbidden},
		{"GET", "/api/qc/pending", nil, http.StatusOK},
	}
	for _, tt := range tests {
		req, err := authRequest(tt.method, server.URL+tt.path, inspectorToken, tt.body)
		if err != nil {
			t.Fatalf("%s %s: building request: %v", tt.method, tt.path, err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tt.method, tt.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("inspector %s %s: expected %d, got %d", tt.method, tt.path, tt.want, resp.StatusCode)
		}
	}
}

func TestUsersAPI(t *testing.T) {
	server := setupTestServer(t)

	server.do(t, "POST", "/api/users", map[string]string{
		"username": "mojca", "password": "short", "role": model.RoleInspector,
	}, http.StatusBadRequest, nil)

	var created model.User
	server.do(t, "POST", "/api/users", map[string]string{
		"username": "mojca", "password": "long-enough",
	}, http.StatusCreated, &created)
	if created.Role != model.RoleInspector {
		t.Errorf("default role = %q, want inspector", created.Role)
	}

	server.do(t, "POST", "/api/users", map[string]string{
		"username": "mojca", "password": "long-enough", "role": model.RoleManager,
	}, http.StatusConflict, nil)

	var users []model.User
	server.do(t, "GET", "/api/users", nil, http.StatusOK, &users)
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}

	rolePath := fmt.Sprintf("/api/users/%d/role", created.ID)
	server.do(t, "PUT", rolePath, map[string]string{"role": "owner"}, http.StatusBadRequest, nil)

	var promoted model.User
	server.do(t, "PUT", rolePath, map[string]string{"role": model.RoleManager}, http.StatusOK, &promoted)
	if promoted.Role != model.RoleManager {
		t.Errorf("role after promotion = %q, want manager", promoted.Role)
	}

	server.do(t, "DELETE", fmt.Sprintf("/api/users/%d", created.ID), nil, http.StatusOK, nil)
	server.do(t, "DELETE", fmt.Sprintf("/api/users/%d", created.ID), nil, http.StatusNotFound, nil)
}

func TestMe(t *testing.T) {
	server := setupTestServer(t)

	var me meResponse
	server.do(t, "GET", "/api/auth/me", nil, http.StatusOK, &me)
	if me.Username != "admin" || me.InspectorID != "admin" || me.Role != model.RoleAdmin {
		t.Errorf("me = %+v", me)
	}
	if me.ExpiresAt.IsZero() {
		t.Error("expected token expiry")
	}
}

func TestPendingAndChecklist(t *testing.T) {
	server := setupTestServer(t)
	if _, err := db.SeedDemoItems(server.db); err != nil {
		t.Fatalf("SeedDemoItems: %v", err)
	}

	var pending []model.QCItem
	server.do(t, "GET", "/api/qc/pending", nil, http.StatusOK, &pending)
	if len(pending) != 5 {
		t.Fatalf("expected 5 pending items, got %d", len(pending))
	}

	var checklist []model.ChecklistItem
	server.do(t, "GET", "/api/qc/checklist/Power%20Tools", nil, http.StatusOK, &checklist)
	if len(checklist) != 5 || checklist[0].ID != "pt-001" {
		t.Errorf("unexpected Power Tools checklist: %+v", checklist)
	}

	checklist = nil
	server.do(t, "GET", "/api/qc/checklist/Garden%20Tools", nil, http.StatusOK, &checklist)
	if checklist == nil || len(checklist) != 0 {
		t.Errorf("expected empty checklist for unknown category, got %v", checklist)
	}

	var categories []string
	server.do(t, "GET", "/api/qc/categories", nil, http.StatusOK, &categories)
	if len(categories) != 3 {
		t.Errorf("expected 3 categories, got %v", categories)
	}

	server.do(t, "GET", "/api/qc/items/qc-404", nil, http.StatusNotFound, nil)
}

func TestSingleInspectionFlow(t *testing.T) {
	server := setupTestServer(t)
	server.createItem(t, "qc-100", "Power Tools")

	var started sessionResponse
	server.do(t, "POST", "/api/qc/sessions", map[string]string{"item_id": "qc-100"}, http.StatusCreated, &started)
	if started.Single == nil || len(started.Single.Results) != 5 {
		t.Fatalf("unexpected session: %+v", started)
	}
	base := "/api/qc/sessions/" + started.ID

	for _, id := range []string{"pt-001", "pt-002", "pt-004", "pt-005"} {
		server.do(t, "PATCH", base+"/results/"+id, map[string]bool{"passed": true}, http.StatusOK, nil)
	}
	var view sessionResponse
	server.do(t, "PATCH", base+"/results/pt-003", map[string]any{"passed": false, "notes": "cracked"}, http.StatusOK, &view)
	if view.Single.CanSubmit {
		t.Error("expected can_submit false without photo")
	}

	server.do(t, "POST", base+"/submit", nil, http.StatusBadRequest, nil)

	var uploaded struct {
		PhotoURL string `json:"photo_url"`
	}
	server.uploadPhoto(t, base+"/photos/pt-003", nil, http.StatusCreated, &uploaded)
	if uploaded.PhotoURL == "" {
		t.Fatal("expected photo url")
	}

	server.do(t, "PUT", base+"/notes", map[string]string{"notes": "housing cracked near grip"}, http.StatusOK, nil)

	var submitted submitResponse
	server.do(t, "POST", base+"/submit", nil, http.StatusCreated, &submitted)
	r := submitted.Result
	if r.OverallStatus != model.OverallDamageFound {
		t.Errorf("expected damage-found, got %q", r.OverallStatus)
	}
	if len(r.Photos) != 1 || r.Photos[0] != uploaded.PhotoURL {
		t.Errorf("expected photos [%s], got %v", uploaded.PhotoURL, r.Photos)
	}
	if r.InspectorID != "admin" {
		t.Errorf("expected inspector 'admin', got %q", r.InspectorID)
	}

	// Completed sessions are gone.
	server.do(t, "GET", base, nil, http.StatusNotFound, nil)

	var item model.QCItem
	server.do(t, "GET", "/api/qc/items/qc-100", nil, http.StatusOK, &item)
	if item.Status != model.QCStatusDamageFound {
		t.Errorf("expected item status damage-found, got %q", item.Status)
	}

	resp, err := http.Get(server.URL + uploaded.PhotoURL)
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected photo to require auth, got %d", resp.StatusCode)
		}
	}
	req, _ := authRequest("GET", server.URL+uploaded.PhotoURL, server.token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.Header.Get("Content-Type") != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", resp.Header.Get("Content-Type"))
	}
	resp.Body.Close()

	var stats model.Statistics
	server.do(t, "GET", "/api/qc/statistics", nil, http.StatusOK, &stats)
	if stats.TotalInspected != 1 || stats.DamageRate != 100 {
		t.Errorf("unexpected statistics: %+v", stats)
	}

	var history historyResponse
	server.do(t, "GET", "/api/qc/history?page=1&limit=10", nil, http.StatusOK, &history)
	if history.Total != 1 || len(history.Items) != 1 {
		t.Errorf("unexpected history: %+v", history)
	}

	// The item is no longer pending.
	server.do(t, "POST", "/api/qc/sessions", map[string]string{"item_id": "qc-100"}, http.StatusConflict, nil)
}

func TestBulkInspectionFlow(t *testing.T) {
	server := setupTestServer(t)
	for _, id := range []string{"qc-201", "qc-202", "qc-203"} {
		server.createItem(t, id, "Safety Equipment")
	}

	server.do(t, "POST", "/api/qc/sessions/bulk", map[string]any{"item_ids": []string{}}, http.StatusBadRequest, nil)

	var started sessionResponse
	server.do(t, "POST", "/api/qc/sessions/bulk", map[string]any{
		"item_ids": []string{"qc-201", "qc-202", "qc-203"},
	}, http.StatusCreated, &started)
	if started.Bulk == nil || started.Bulk.Category != "Safety Equipment" {
		t.Fatalf("unexpected bulk session: %+v", started)
	}
	base := "/api/qc/sessions/" + started.ID

	for _, id := range []string{"se-001", "se-002", "se-003", "se-004", "se-005"} {
		server.do(t, "POST", base+"/apply/"+id, map[string]bool{"passed": true}, http.StatusOK, nil)
	}
	var view sessionResponse
	server.do(t, "PATCH", base+"/items/qc-202/results/se-003", map[string]bool{"passed": false}, http.StatusOK, &view)
	if got := view.Bulk.Items[1].OverallStatus; got != model.OverallDamageFound {
		t.Errorf("expected qc-202 damage-found, got %q", got)
	}
	if view.Bulk.Summary.Passed != 2 {
		t.Errorf("expected 2 passing items, got %+v", view.Bulk.Summary)
	}

	server.uploadPhoto(t, base+"/photos/se-001", map[string]string{"item_id": "qc-999"}, http.StatusBadRequest, nil)

	var submitted submitResponse
	server.do(t, "POST", base+"/submit", nil, http.StatusCreated, &submitted)
	if len(submitted.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(submitted.Outcomes))
	}
	for _, o := range submitted.Outcomes {
		if o.Status != qc.OutcomeSubmitted {
			t.Errorf("%s: expected submitted, got %q", o.ItemID, o.Status)
		}
	}

	var pending []model.QCItem
	server.do(t, "GET", "/api/qc/pending", nil, http.StatusOK, &pending)
	if len(pending) != 0 {
		t.Errorf("expected no pending items, got %d", len(pending))
	}
}

func TestCancelSession(t *testing.T) {
	server := setupTestServer(t)
	server.createItem(t, "qc-300", "Measuring Tools")

	var started sessionResponse
	server.do(t, "POST", "/api/qc/sessions", map[string]string{"item_id": "qc-300"}, http.StatusCreated, &started)

	server.do(t, "DELETE", "/api/qc/sessions/"+started.ID, nil, http.StatusOK, nil)
	server.do(t, "DELETE", "/api/qc/sessions/"+started.ID, nil, http.StatusNotFound, nil)
	server.do(t, "POST", "/api/qc/sessions/"+started.ID+"/submit", nil, http.StatusNotFound, nil)
}

func TestDirectResultsAndDamageAssessment(t *testing.T) {
	server := setupTestServer(t)
	server.createItem(t, "qc-400", "Power Tools")
	server.createItem(t, "qc-401", "Power Tools")

	motorFailed := powerToolResults()
	motorFailed[1] = model.ChecklistResult{ChecklistItemID: "pt-002", Passed: false, Notes: "grinding"}

	var saved model.Result
	server.do(t, "POST", "/api/qc/results", model.Result{
		ItemID:           "qc-400",
		ChecklistResults: motorFailed,
		InspectorID:      "spoofed",
	}, http.StatusCreated, &saved)
	if saved.InspectorID != "admin" {
		t.Errorf("expected server-set inspector, got %q", saved.InspectorID)
	}

	// Already inspected: the whole batch is rejected.
	var failed outcomesResponse
	server.do(t, "POST", "/api/qc/bulk-results", bulkResultsRequest{Results: []model.Result{
		{ItemID: "qc-401", ChecklistResults: powerToolResults()},
		{ItemID: "qc-400", ChecklistResults: powerToolResults()},
	}}, http.StatusBadGateway, &failed)
	if len(failed.Outcomes) != 2 || failed.Outcomes[0].Status != qc.OutcomeFailed {
		t.Errorf("unexpected outcomes: %+v", failed.Outcomes)
	}

	server.do(t, "GET", "/api/qc/items/qc-401/result", nil, http.StatusNotFound, nil)

	var latest model.Result
	server.do(t, "GET", "/api/qc/items/qc-400/result", nil, http.StatusOK, &latest)
	if latest.OverallStatus != model.OverallDamageFound || len(latest.ChecklistResults) == 0 {
		t.Errorf("unexpected latest result: %+v", latest)
	}
	resultID := latest.ID

	var byID model.Result
	server.do(t, "GET", "/api/qc/results/"+resultID, nil, http.StatusOK, &byID)
	if byID.ItemID != "qc-400" {
		t.Errorf("result item = %q, want qc-400", byID.ItemID)
	}
	server.do(t, "GET", "/api/qc/results/missing", nil, http.StatusNotFound, nil)

	server.do(t, "POST", "/api/qc/damage-assessments", map[string]any{
		"qc_result_id": resultID, "damage_type": "motor", "severity": "extreme", "recommended_action": "repair",
	}, http.StatusBadRequest, nil)

	var assessment model.DamageAssessment
	server.do(t, "POST", "/api/qc/damage-assessments", map[string]any{
		"qc_result_id":       resultID,
		"damage_type":        "motor",
		"severity":           model.SeverityModerate,
		"repair_estimate":    120.5,
		"recommended_action": model.ActionRepair,
	}, http.StatusCreated, &assessment)
	if assessment.Status != model.AssessmentPending {
		t.Errorf("expected pending assessment, got %q", assessment.Status)
	}

	var list []model.DamageAssessment
	server.do(t, "GET", "/api/qc/damage-assessments?status=pending", nil, http.StatusOK, &list)
	if len(list) != 1 {
		t.Errorf("expected 1 assessment, got %d", len(list))
	}

	var item model.QCItem
	server.do(t, "GET", "/api/qc/items/qc-400", nil, http.StatusOK, &item)
	if item.Status != model.QCStatusDamageAssessment {
		t.Errorf("expected damage-assessment, got %q", item.Status)
	}
}

// powerToolResults answers every Power Tools criterion with a pass.
func powerToolResults() []model.ChecklistResult {
	ids := []string{"pt-001", "pt-002", "pt-003", "pt-004", "pt-005"}
	out := make([]model.ChecklistResult, len(ids))
	for i, id := range ids {
		out[i] = model.ChecklistResult{ChecklistItemID: id, Passed: true}
	}
	return out
}

func TestDirectResultsRejectIncompleteChecklists(t *testing.T) {
	server := setupTestServer(t)
	server.createItem(t, "qc-410", "Power Tools")
	server.createItem(t, "qc-411", "Power Tools")

	cordFailed := powerToolResults()
	cordFailed[0].Passed = false

	tests := []struct {
		name    string
		results []model.ChecklistResult
	}{
		{"empty", []model.ChecklistResult{}},
		{"missing criterion", powerToolResults()[1:]},
		{"unknown criterion", append(powerToolResults(), model.ChecklistResult{ChecklistItemID: "bogus", Passed: true})},
		{"duplicate criterion", append(powerToolResults(), model.ChecklistResult{ChecklistItemID: "pt-003", Passed: true})},
		{"missing photo", cordFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server.do(t, "POST", "/api/qc/results", model.Result{
				ItemID: "qc-410", ChecklistResults: tt.results,
			}, http.StatusBadRequest, nil)
		})
	}

	server.do(t, "POST", "/api/qc/results", model.Result{
		ItemID: "qc-999", ChecklistResults: powerToolResults(),
	}, http.StatusBadRequest, nil)

	// The reported case: one failed criterion and one bogus pass.
	server.do(t, "POST", "/api/qc/bulk-results", bulkResultsRequest{Results: []model.Result{
		{ItemID: "qc-410", ChecklistResults: powerToolResults()},
		{ItemID: "qc-411", ChecklistResults: []model.ChecklistResult{
			{ChecklistItemID: "pt-001", Passed: false},
			{ChecklistItemID: "bogus", Passed: true},
		}},
	}}, http.StatusBadRequest, nil)
	server.do(t, "POST", "/api/qc/bulk-results", bulkResultsRequest{Results: []model.Result{
		{ItemID: "qc-410", ChecklistResults: append(powerToolResults(), powerToolResults()[0])},
	}}, http.StatusBadRequest, nil)

	var pending []model.QCItem
	server.do(t, "GET", "/api/qc/pending", nil, http.StatusOK, &pending)
	if len(pending) != 2 {
		t.Fatalf("rejected results changed the queue: %d pending", len(pending))
	}

	// Bulk results skip the photo rule; single results with evidence pass.
	server.do(t, "POST", "/api/qc/bulk-results", bulkResultsRequest{Results: []model.Result{
		{ItemID: "qc-411", ChecklistResults: cordFailed},
	}}, http.StatusCreated, nil)

	withPhoto := powerToolResults()
	withPhoto[0] = model.ChecklistResult{ChecklistItemID: "pt-001", PhotoURL: "/api/qc/photos/p1"}
	var saved model.Result
	server.do(t, "POST", "/api/qc/results", model.Result{
		ItemID: "qc-410", ChecklistResults: withPhoto,
	}, http.StatusCreated, &saved)
	if saved.OverallStatus != model.OverallDamageFound {
		t.Errorf("expected damage-found, got %q", saved.OverallStatus)
	}
}

func TestStatisticsDateRange(t *testing.T) {
	server := setupTestServer(t)

	server.do(t, "GET", "/api/qc/statistics?from=2025-03-01", nil, http.StatusBadRequest, nil)
	server.do(t, "GET", "/api/qc/statistics?from=2025-03-10&to=2025-03-01", nil, http.StatusBadRequest, nil)

	var stats model.Statistics
	server.do(t, "GET", "/api/qc/statistics?from=2025-03-01&to=2025-03-31", nil, http.StatusOK, &stats)
	if stats.TotalInspected != 0 {
		t.Errorf("expected empty statistics, got %+v", stats)
	}
}

func TestToolReturnQueuesInspection(t *testing.T) {
	server := setupTestServer(t)

	server.do(t, "POST", "/api/tools", map[string]string{"name": "Drill"}, http.StatusBadRequest, nil)

	var tool model.Tool
	server.do(t, "POST", "/api/tools", map[string]string{
		"name": "Cordless Drill", "serial_number": "DR-2023-001", "category": "Power Tools",
	}, http.StatusCreated, &tool)
	base := fmt.Sprintf("/api/tools/%d", tool.ID)

	server.do(t, "POST", base+"/return", map[string]string{}, http.StatusConflict, nil)
	server.do(t, "POST", base+"/checkout", map[string]string{}, http.StatusBadRequest, nil)
	server.do(t, "POST", "/api/tools/999/checkout", map[string]string{"holder": "x"}, http.StatusNotFound, nil)

	var checkout model.Transfer
	server.do(t, "POST", base+"/checkout", map[string]string{"holder": "John Smith"}, http.StatusCreated, &checkout)
	if checkout.Username != "admin" || checkout.Kind != model.TransferCheckout {
		t.Errorf("unexpected checkout: %+v", checkout)
	}
	server.do(t, "DELETE", base, nil, http.StatusConflict, nil)

	var returned returnResponse
	server.do(t, "POST", base+"/return", map[string]string{
		"return_reason": "cord frayed", "priority": model.PriorityHigh,
	}, http.StatusCreated, &returned)
	if returned.Item == nil || returned.Item.ToolID != model.ToolRef(tool.ID) || returned.Item.LastUsedBy != "John Smith" {
		t.Fatalf("return did not queue the tool: %+v", returned.Item)
	}

	var pending []model.QCItem
	server.do(t, "GET", "/api/qc/pending", nil, http.StatusOK, &pending)
	if len(pending) != 1 || pending[0].ID != returned.Item.ID {
		t.Fatalf("expected the returned tool in the queue, got %+v", pending)
	}

	server.do(t, "POST", "/api/qc/results", model.Result{
		ItemID: returned.Item.ID, ChecklistResults: powerToolResults(),
	}, http.StatusCreated, nil)

	var detail struct {
		Tool    model.Tool       `json:"tool"`
		History []model.Transfer `json:"history"`
	}
	server.do(t, "GET", base, nil, http.StatusOK, &detail)
	if detail.Tool.Status != model.ToolStatusAvailable {
		t.Errorf("expected tool available after passing qc, got %q", detail.Tool.Status)
	}
	if len(detail.History) != 2 {
		t.Errorf("expected 2 transfers, got %d", len(detail.History))
	}

	var activity []model.Activity
	server.do(t, "GET", "/api/activity?action=Returned", nil, http.StatusOK, &activity)
	if len(activity) != 1 || activity[0].Name != "Cordless Drill" || activity[0].User != "admin" {
		t.Errorf("unexpected activity: %+v", activity)
	}
	server.do(t, "GET", "/api/activity?from=2025-03-01", nil, http.StatusBadRequest, nil)

	var transfers []model.Transfer
	server.do(t, "GET", fmt.Sprintf("/api/transfers?tool_id=%d", tool.ID), nil, http.StatusOK, &transfers)
	if len(transfers) != 2 {
		t.Errorf("expected 2 transfers, got %d", len(transfers))
	}

	server.do(t, "PUT", "/api/tools/999", map[string]string{"name": "x", "category": "y"}, http.StatusNotFound, nil)
	var updated model.Tool
	server.do(t, "PUT", base, map[string]string{
		"name": "Cordless Drill", "category": "Power Tools", "status": model.ToolStatusRetired,
	}, http.StatusOK, &updated)
	if updated.Status != model.ToolStatusRetired {
		t.Errorf("expected retired, got %q", updated.Status)
	}
	server.do(t, "DELETE", base, nil, http.StatusOK, nil)

	var tools []model.Tool
	server.do(t, "GET", "/api/tools", nil, http.StatusOK, &tools)
	if len(tools) != 0 {
		t.Errorf("deleted tool still listed: %+v", tools)
	}
}
