package storage

import (
	"path/filepath"
	"testing"
	"time"

	"outpost/internal/domain"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	store, err := NewGormStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewGormStore: %v", err)
	}
	return store
}

func TestGlobalConfigSeededOnFirstRun(t *testing.T) {
	store := newTestStore(t)

	raw, err := store.GetGlobalConfig()
	if err != nil {
		t.Fatalf("GetGlobalConfig: %v", err)
	}
	if raw["site_name"] != "Outpost" {
		t.Errorf("expected seeded site_name, got %v", raw["site_name"])
	}
	if raw["is_terminal_enabled"] != true {
		t.Errorf("expected terminal enabled by default, got %v", raw["is_terminal_enabled"])
	}
}

func TestUpdateGlobalConfigRejectsUnknownKey(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateGlobalConfig(map[string]any{"site_nmae": "typo"})
	if err == nil {
		t.Fatal("expected error for unknown config field")
	}
}

func TestUpdateGlobalConfigPartialPatch(t *testing.T) {
	store := newTestStore(t)

	patch := map[string]any{
		"tagline":              "operational",
		"is_emergency_enabled": true,
	}
	if err := store.UpdateGlobalConfig(patch); err != nil {
		t.Fatalf("UpdateGlobalConfig: %v", err)
	}

	raw, err := store.GetGlobalConfig()
	if err != nil {
		t.Fatalf("GetGlobalConfig: %v", err)
	}
	if raw["tagline"] != "operational" {
		t.Errorf("tagline not updated: %v", raw["tagline"])
	}
	if raw["is_emergency_enabled"] != true {
		t.Errorf("emergency flag not updated: %v", raw["is_emergency_enabled"])
	}
	if raw["site_name"] != "Outpost" {
		t.Errorf("untouched field changed: %v", raw["site_name"])
	}
}

func TestMasterAndUserKeys(t *testing.T) {
	store := newTestStore(t)

	key, err := store.GetMasterKey(domain.TierAdmin)
	if err != nil {
		t.Fatalf("GetMasterKey: %v", err)
	}
	if key != "" {
		t.Errorf("expected empty key before set, got %q", key)
	}

	if err := store.SetMasterKey(domain.TierAdmin, "admin-key"); err != nil {
		t.Fatalf("SetMasterKey: %v", err)
	}
	if err := store.SetMasterKey(domain.TierAdmin, "rotated"); err != nil {
		t.Fatalf("SetMasterKey overwrite: %v", err)
	}

	key, err = store.GetMasterKey(domain.TierAdmin)
	if err != nil {
		t.Fatalf("GetMasterKey: %v", err)
	}
	if key != "rotated" {
		t.Errorf("expected rotated key, got %q", key)
	}

	if err := store.SetUserKey("u1", "personal"); err != nil {
		t.Fatalf("SetUserKey: %v", err)
	}
	userKey, err := store.GetUserKey("u1")
	if err != nil {
		t.Fatalf("GetUserKey: %v", err)
	}
	if userKey != "personal" {
		t.Errorf("expected personal key, got %q", userKey)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	store := newTestStore(t)

	identity := domain.NewIdentity()
	identity.ID = "u1"
	identity.Email = "ops@example.com"
	identity.DisplayName = "Ops"
	identity.Permissions = map[string]bool{"terminal": true}
	identity.Clearance = 2

	if err := store.CreateProfile(identity, "hash"); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	got, err := store.GetProfileByEmail("ops@example.com")
	if err != nil {
		t.Fatalf("GetProfileByEmail: %v", err)
	}
	if got == nil || got.ID != "u1" {
		t.Fatalf("unexpected profile: %+v", got)
	}
	if !got.Permissions["terminal"] {
		t.Errorf("permissions not preserved: %v", got.Permissions)
	}
	if got.ReadBannerIDs == nil {
		t.Error("ReadBannerIDs should be non-nil")
	}

	hash, err := store.GetPasswordHash("u1")
	if err != nil {
		t.Fatalf("GetPasswordHash: %v", err)
	}
	if hash != "hash" {
		t.Errorf("hash mismatch: %q", hash)
	}

	missing, err := store.GetProfileByID("nope")
	if err != nil {
		t.Fatalf("GetProfileByID: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing profile, got %+v", missing)
	}
}

func TestDeleteNotificationRemovesReadReceipts(t *testing.T) {
	store := newTestStore(t)

	n := &domain.Notification{ID: "n1", Title: "Maintenance", CreatedAt: time.Now()}
	if err := store.CreateNotification(n); err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}
	if err := store.MarkRead("u1", "n1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if err := store.MarkRead("u2", "n1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	if err := store.DeleteNotification("n1"); err != nil {
		t.Fatalf("DeleteNotification: %v", err)
	}

	count, err := store.CountReadsFor("n1")
	if err != nil {
		t.Fatalf("CountReadsFor: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 read receipts after delete, got %d", count)
	}

	notifications, err := store.ListNotifications()
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(notifications) != 0 {
		t.Errorf("notification row survived delete: %+v", notifications)
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	if err := store.MarkRead("u1", "n1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if err := store.MarkRead("u1", "n1"); err != nil {
		t.Fatalf("MarkRead repeat: %v", err)
	}

	ids, err := store.ListReadIDs("u1")
	if err != nil {
		t.Fatalf("ListReadIDs: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("expected one read id, got %v", ids)
	}
}

func TestIntelUnlocks(t *testing.T) {
	store := newTestStore(t)

	asset := &domain.IntelAsset{ID: "a1", Name: "Dossier", Code: "RAVEN"}
	if err := store.CreateAsset(asset); err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}

	found, err := store.GetAssetByCode("RAVEN")
	if err != nil {
		t.Fatalf("GetAssetByCode: %v", err)
	}
	if found == nil || found.ID != "a1" {
		t.Fatalf("unexpected asset: %+v", found)
	}

	missing, err := store.GetAssetByCode("WRONG")
	if err != nil {
		t.Fatalf("GetAssetByCode: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown code, got %+v", missing)
	}

	if err := store.AddUnlock("u1", "a1"); err != nil {
		t.Fatalf("AddUnlock: %v", err)
	}
	if err := store.AddUnlock("u1", "a1"); err != nil {
		t.Fatalf("AddUnlock repeat: %v", err)
	}

	ids, err := store.ListUnlockedAssetIDs("u1")
	if err != nil {
		t.Fatalf("ListUnlockedAssetIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != "a1" {
		t.Errorf("unexpected unlock list: %v", ids)
	}
}

func TestRoadmapOrdering(t *testing.T) {
	store := newTestStore(t)

	for i, id := range []string{"r2", "r1"} {
		item := &domain.RoadmapItem{ID: id, Title: id, SortOrder: 2 - i, CreatedAt: time.Now()}
		if err := store.CreateRoadmapItem(item); err != nil {
			t.Fatalf("CreateRoadmapItem: %v", err)
		}
	}

	items, err := store.ListRoadmapItems()
	if err != nil {
		t.Fatalf("ListRoadmapItems: %v", err)
	}
	if len(items) != 2 || items[0].ID != "r1" {
		t.Errorf("expected sort_order ordering, got %+v", items)
	}
}
