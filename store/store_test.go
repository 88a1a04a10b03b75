package store

import (
	"path/filepath"
	"testing"
)

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// --- Session tests ---

func TestSessionCRUD(t *testing.T) {
	db := testDB(t)

	id, err := db.CreateSession("uuid-1", "North Lot", 1.5, -2.0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == 0 {
		t.Fatal("ID should be assigned")
	}

	got, err := db.GetSession(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "North Lot" {
		t.Errorf("Name = %q, want %q", got.Name, "North Lot")
	}
	if got.OriginX != 1.5 || got.OriginY != -2.0 {
		t.Errorf("Origin = (%v, %v), want (1.5, -2)", got.OriginX, got.OriginY)
	}

	byUUID, err := db.GetSessionByUUID("uuid-1")
	if err != nil {
		t.Fatalf("getByUUID: %v", err)
	}
	if byUUID.ID != id {
		t.Errorf("ID by UUID = %d, want %d", byUUID.ID, id)
	}

	if err := db.UpdateSession(id, "South Lot", 0, 0); err != nil {
		t.Fatalf("update: %v", err)
	}
	got2, _ := db.GetSession(id)
	if got2.Name != "South Lot" {
		t.Errorf("Name after update = %q, want %q", got2.Name, "South Lot")
	}

	sessions, err := db.ListSessions()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("len(sessions) = %d, want 1", len(sessions))
	}

	if err := db.DeleteSession(id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.GetSession(id); err == nil {
		t.Error("get after delete should fail")
	}
}

// --- Cone tests ---

func TestConeCRUD(t *testing.T) {
	db := testDB(t)

	sid, _ := db.CreateSession("uuid-2", "Test Field", 0, 0)

	c1, err := db.CreateCone(sid, "A", 3.0, 0.0)
	if err != nil {
		t.Fatalf("create cone: %v", err)
	}
	c2, _ := db.CreateCone(sid, "B", 3.0, 4.0)

	cones, err := db.ListCones(sid)
	if err != nil {
		t.Fatalf("list cones: %v", err)
	}
	if len(cones) != 2 {
		t.Fatalf("len(cones) = %d, want 2", len(cones))
	}
	if cones[0].ID != c1 || cones[1].ID != c2 {
		t.Error("cones should list in insertion order")
	}
	if cones[0].VisitOrder != nil {
		t.Error("VisitOrder should start nil")
	}

	if err := db.SetVisitOrder(c2, 0); err != nil {
		t.Fatalf("set visit order: %v", err)
	}
	got, _ := db.GetCone(c2)
	if got.VisitOrder == nil || *got.VisitOrder != 0 {
		t.Errorf("VisitOrder = %v, want 0", got.VisitOrder)
	}

	// Editing a cone invalidates its planned ordering.
	if err := db.UpdateCone(c2, "B2", 5.0, 5.0); err != nil {
		t.Fatalf("update cone: %v", err)
	}
	got2, _ := db.GetCone(c2)
	if got2.VisitOrder != nil {
		t.Error("VisitOrder should be cleared after update")
	}
	if got2.Label != "B2" || got2.X != 5.0 {
		t.Errorf("cone after update = %+v", got2)
	}

	db.SetVisitOrder(c1, 0)
	db.SetVisitOrder(c2, 1)
	if err := db.ClearVisitOrder(sid); err != nil {
		t.Fatalf("clear visit order: %v", err)
	}
	cones, _ = db.ListCones(sid)
	for _, c := range cones {
		if c.VisitOrder != nil {
			t.Errorf("cone %d VisitOrder = %v, want nil", c.ID, *c.VisitOrder)
		}
	}

	if err := db.DeleteCone(c1); err != nil {
		t.Fatalf("delete cone: %v", err)
	}
	cones, _ = db.ListCones(sid)
	if len(cones) != 1 {
		t.Errorf("len(cones) after delete = %d, want 1", len(cones))
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	db := testDB(t)

	sid, _ := db.CreateSession("uuid-3", "Cascade", 0, 0)
	db.CreateCone(sid, "A", 1, 1)
	db.InsertPlacement(sid, 0, 9.5, `[]`)

	if err := db.DeleteSession(sid); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	cones, _ := db.ListCones(sid)
	if len(cones) != 0 {
		t.Errorf("cones should cascade on session delete, got %d", len(cones))
	}
	placements, _ := db.ListPlacements(sid)
	if len(placements) != 0 {
		t.Errorf("placements should cascade on session delete, got %d", len(placements))
	}
}

// --- Placement tests ---

func TestPlacements(t *testing.T) {
	db := testDB(t)

	sid, _ := db.CreateSession("uuid-4", "Runs", 0, 0)

	if _, err := db.InsertPlacement(sid, 0, 12.3, `[{"step":"lower_arm","time_taken":0.9}]`); err != nil {
		t.Fatalf("insert placement: %v", err)
	}
	db.InsertPlacement(sid, 1, 8.7, `[]`)

	placements, err := db.ListPlacements(sid)
	if err != nil {
		t.Fatalf("list placements: %v", err)
	}
	if len(placements) != 2 {
		t.Fatalf("len(placements) = %d, want 2", len(placements))
	}
	// Newest first.
	if placements[0].ConeIndex != 1 {
		t.Errorf("placements[0].ConeIndex = %d, want 1", placements[0].ConeIndex)
	}
	if placements[1].TotalTime != 12.3 {
		t.Errorf("TotalTime = %v, want 12.3", placements[1].TotalTime)
	}

	if err := db.ClearPlacements(sid); err != nil {
		t.Fatalf("clear placements: %v", err)
	}
	placements, _ = db.ListPlacements(sid)
	if len(placements) != 0 {
		t.Errorf("len(placements) after clear = %d, want 0", len(placements))
	}
}

// --- Admin user tests ---

func TestAdminUsers(t *testing.T) {
	db := testDB(t)

	exists, err := db.AdminUserExists()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Error("fresh database should have no admin users")
	}

	if _, err := db.CreateAdminUser("operator", "hash-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	u, err := db.GetAdminUser("operator")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.PasswordHash != "hash-1" {
		t.Errorf("PasswordHash = %q, want %q", u.PasswordHash, "hash-1")
	}

	if err := db.UpdateAdminPassword("operator", "hash-2"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	u2, _ := db.GetAdminUser("operator")
	if u2.PasswordHash != "hash-2" {
		t.Errorf("PasswordHash after update = %q, want %q", u2.PasswordHash, "hash-2")
	}

	db.CreateAdminUser("second", "hash-3")
	users, err := db.ListAdminUsers()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("len(users) = %d, want 2", len(users))
	}

	if err := db.DeleteAdminUser("second"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.GetAdminUser("second"); err == nil {
		t.Error("get after delete should fail")
	}
}
