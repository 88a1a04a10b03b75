package www

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"conepilot/config"
	"conepilot/engine"
	"conepilot/store"
)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func testServer(t *testing.T) (*httptest.Server, *http.Client, *engine.Engine) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Defaults()
	cfg.Robot.AutoConnect = false
	eng := engine.New(engine.Config{AppConfig: cfg, DB: db})
	eng.Start()
	t.Cleanup(eng.Stop)

	router, stop := NewRouter(eng)
	t.Cleanup(stop)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, _ := cookiejar.New(nil)
	return srv, &http.Client{Jar: jar}, eng
}

func login(t *testing.T, srv *httptest.Server, client *http.Client, eng *engine.Engine) {
	t.Helper()
	hash, err := hashPassword("letmein-123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if _, err := eng.DB().CreateAdminUser("admin", hash); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	resp, err := client.Post(srv.URL+"/api/login", "application/json",
		bytes.NewBufferString(`{"username":"admin","password":"letmein-123"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
}

func postJSON(t *testing.T, client *http.Client, url, body string) *http.Response {
	t.Helper()
	resp, err := client.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestAdminRoutesRequireLogin(t *testing.T) {
	srv, client, _ := testServer(t)

	resp := postJSON(t, client, srv.URL+"/api/sessions", `{"name":"Field"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated create status = %d, want 401", resp.StatusCode)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv, client, eng := testServer(t)
	hash, _ := hashPassword("correct-password")
	eng.DB().CreateAdminUser("admin", hash)

	resp := postJSON(t, client, srv.URL+"/api/login", `{"username":"admin","password":"wrong"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", resp.StatusCode)
	}
}

func TestSessionAndConeAPI(t *testing.T) {
	srv, client, eng := testServer(t)
	login(t, srv, client, eng)

	// Create a session
	resp := postJSON(t, client, srv.URL+"/api/sessions", `{"name":"North Lot","origin_x":1,"origin_y":2}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create session status = %d, want 200", resp.StatusCode)
	}
	var sess store.FieldSession
	json.NewDecoder(resp.Body).Decode(&sess)
	resp.Body.Close()
	if sess.ID == 0 || sess.UUID == "" {
		t.Fatalf("created session = %+v", sess)
	}

	// Add cones
	base := srv.URL + "/api/sessions/" + itoa(sess.ID)
	for _, body := range []string{
		`{"label":"A","x":3,"y":0}`,
		`{"label":"B","x":3,"y":4}`,
	} {
		resp = postJSON(t, client, base+"/cones", body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("create cone status = %d, want 200", resp.StatusCode)
		}
		resp.Body.Close()
	}

	// Plan
	resp = postJSON(t, client, base+"/plan", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("plan status = %d, want 200", resp.StatusCode)
	}
	var ordered []store.Cone
	json.NewDecoder(resp.Body).Decode(&ordered)
	resp.Body.Close()
	if len(ordered) != 2 || ordered[0].Label != "A" {
		t.Errorf("planned order = %+v, want A first", ordered)
	}

	// Public list does not need auth
	plainClient := &http.Client{}
	listResp, err := plainClient.Get(base + "/cones")
	if err != nil {
		t.Fatalf("list cones: %v", err)
	}
	defer listResp.Body.Close()
	if listResp.StatusCode != http.StatusOK {
		t.Errorf("list cones status = %d, want 200", listResp.StatusCode)
	}
	var cones []store.Cone
	json.NewDecoder(listResp.Body).Decode(&cones)
	if len(cones) != 2 {
		t.Errorf("len(cones) = %d, want 2", len(cones))
	}

	// Deleting a cone invalidates the plan for the rest
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/cones/"+itoa(cones[0].ID), nil)
	delResp, err := client.Do(req)
	if err != nil {
		t.Fatalf("delete cone: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusOK {
		t.Fatalf("delete cone status = %d, want 200", delResp.StatusCode)
	}
	listResp, err = plainClient.Get(base + "/cones")
	if err != nil {
		t.Fatalf("list cones after delete: %v", err)
	}
	defer listResp.Body.Close()
	cones = nil
	json.NewDecoder(listResp.Body).Decode(&cones)
	if len(cones) != 1 {
		t.Fatalf("len(cones) after delete = %d, want 1", len(cones))
	}
	if cones[0].VisitOrder != nil {
		t.Errorf("visit order = %d after delete, want cleared", *cones[0].VisitOrder)
	}
}

func TestRunLifecycleAPI(t *testing.T) {
	srv, client, eng := testServer(t)
	login(t, srv, client, eng)

	sid, _ := eng.DB().CreateSession("uuid-run", "Run", 0, 0)
	eng.DB().CreateCone(sid, "A", 2, 0)
	eng.DB().CreateCone(sid, "B", 2, 2)

	resp := postJSON(t, client, srv.URL+"/api/sessions/"+itoa(sid)+"/run", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start run status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// Reset while running is rejected
	resp = postJSON(t, client, srv.URL+"/api/simulation/reset", "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("reset while running status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()

	statusResp, err := client.Get(srv.URL + "/api/simulation")
	if err != nil {
		t.Fatalf("simulation status: %v", err)
	}
	var status struct {
		State     string `json:"state"`
		SessionID int64  `json:"session_id"`
	}
	json.NewDecoder(statusResp.Body).Decode(&status)
	statusResp.Body.Close()
	if status.State != "moving" {
		t.Errorf("state = %q, want %q", status.State, "moving")
	}
	if status.SessionID != sid {
		t.Errorf("session_id = %d, want %d", status.SessionID, sid)
	}

	resp = postJSON(t, client, srv.URL+"/api/simulation/stop", "")
	resp.Body.Close()
	resp = postJSON(t, client, srv.URL+"/api/simulation/reset", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("reset after stop status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRobotStatusWhenDisconnected(t *testing.T) {
	srv, client, _ := testServer(t)

	resp, err := client.Get(srv.URL + "/api/robot/status")
	if err != nil {
		t.Fatalf("robot status: %v", err)
	}
	defer resp.Body.Close()
	var status struct {
		Connected bool `json:"connected"`
	}
	json.NewDecoder(resp.Body).Decode(&status)
	if status.Connected {
		t.Error("robot should report disconnected")
	}
}
