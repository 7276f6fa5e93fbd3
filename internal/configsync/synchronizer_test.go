package configsync

import (
	"errors"
	"sync"
	"testing"
	"time"

	"outpost/internal/config"
	"outpost/internal/domain"
)

type fakeStore struct {
	mu         sync.Mutex
	raw        map[string]any
	configErr  error
	fetchDelay time.Duration
	masterKeys map[string]string
	patches    []map[string]any
	deleted    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		raw: map[string]any{
			"site_name":           "Outpost Live",
			"is_terminal_enabled": true,
			"mcss_url":            "http://mcss.local:25560",
		},
		masterKeys: map[string]string{},
	}
}

func (s *fakeStore) GetGlobalConfig() (map[string]any, error) {
	if s.fetchDelay > 0 {
		time.Sleep(s.fetchDelay)
	}
	if s.configErr != nil {
		return nil, s.configErr
	}
	return s.raw, nil
}

func (s *fakeStore) UpdateGlobalConfig(patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patches = append(s.patches, patch)
	return nil
}

func (s *fakeStore) GetMasterKey(tier string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.masterKeys[tier], nil
}

func (s *fakeStore) SetMasterKey(tier string, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.masterKeys[tier] = key
	return nil
}

func (s *fakeStore) GetUserKey(userID string) (string, error)   { return "", nil }
func (s *fakeStore) SetUserKey(userID string, key string) error { return nil }

func (s *fakeStore) ListNotifications() ([]domain.Notification, error) {
	return []domain.Notification{{ID: "n-1", Title: "Maintenance"}}, nil
}
func (s *fakeStore) CreateNotification(n *domain.Notification) error { return nil }

func (s *fakeStore) DeleteNotification(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStore) MarkRead(userID, notificationID string) error        { return nil }
func (s *fakeStore) MarkAllRead(userID string, ids []string) error       { return nil }
func (s *fakeStore) ListReadIDs(userID string) ([]string, error)         { return nil, nil }
func (s *fakeStore) ListRoadmapItems() ([]domain.RoadmapItem, error)     { return nil, nil }
func (s *fakeStore) CreateRoadmapItem(item *domain.RoadmapItem) error    { return nil }
func (s *fakeStore) UpdateRoadmapItem(id string, f map[string]any) error { return nil }
func (s *fakeStore) DeleteRoadmapItem(id string) error                   { return nil }

func TestHydrateAssemblesAndCaches(t *testing.T) {
	dir := t.TempDir()
	s := NewSynchronizer(newFakeStore(), dir, "http://fallback:25560")
	defer s.Close()

	s.Hydrate()

	if s.State() != StateReady {
		t.Fatalf("Expected READY, got %s", s.State())
	}
	cfg := s.Config()
	if cfg.SiteName != "Outpost Live" {
		t.Errorf("Expected live site name, got %q", cfg.SiteName)
	}
	if cfg.MCSS.URL != "http://mcss.local:25560" {
		t.Errorf("Expected admin-configured endpoint, got %q", cfg.MCSS.URL)
	}
	if len(s.Notifications()) != 1 {
		t.Errorf("Expected one notification, got %d", len(s.Notifications()))
	}

	cached, err := config.ReadCachedConfig(dir)
	if err != nil || cached == nil {
		t.Fatalf("Expected cache written, got %v / %v", cached, err)
	}
	if cached.SiteName != "Outpost Live" {
		t.Errorf("Expected cache to hold the fetched config, got %q", cached.SiteName)
	}
}

func TestHydrateFallsBackToEnvEndpoint(t *testing.T) {
	store := newFakeStore()
	store.raw["mcss_url"] = ""

	s := NewSynchronizer(store, t.TempDir(), "http://fallback:25560")
	defer s.Close()

	s.Hydrate()

	if got := s.Config().MCSS.URL; got != "http://fallback:25560" {
		t.Errorf("Expected env default endpoint, got %q", got)
	}
}

func TestHydrateConfigRowFailureKeepsCache(t *testing.T) {
	dir := t.TempDir()

	cached := domain.DefaultGlobalConfig()
	cached.SiteName = "From Cache"
	if err := config.WriteCachedConfig(dir, cached); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	store := newFakeStore()
	store.configErr = errors.New("backend down")

	s := NewSynchronizer(store, dir, "")
	defer s.Close()

	s.Hydrate()

	if s.State() != StateError {
		t.Fatalf("Expected ERROR on config row failure, got %s", s.State())
	}
	if got := s.Config().SiteName; got != "From Cache" {
		t.Errorf("Expected cached value retained, got %q", got)
	}
}

func TestHydrateSafetyTimeout(t *testing.T) {
	store := newFakeStore()
	store.fetchDelay = 50 * time.Millisecond

	s := NewSynchronizer(store, t.TempDir(), "")
	s.SafetyTimeout = 10 * time.Millisecond
	defer s.Close()

	done := make(chan struct{})
	go func() {
		s.Hydrate()
		close(done)
	}()

	time.Sleep(25 * time.Millisecond)
	if s.State() != StateTimeout {
		t.Fatalf("Expected TIMEOUT mid-hydration, got %s", s.State())
	}

	// The fetch was not cancelled; its result still finalizes READY.
	<-done
	if s.State() != StateReady {
		t.Errorf("Expected late hydration applied, got %s", s.State())
	}
}

func TestUpdateGlobalConfigPresenceMerge(t *testing.T) {
	store := newFakeStore()
	s := NewSynchronizer(store, t.TempDir(), "")
	defer s.Close()
	s.Hydrate()

	var notified []domain.GlobalConfig
	s.OnChange = func(cfg domain.GlobalConfig) {
		notified = append(notified, cfg)
	}

	if err := s.UpdateGlobalConfig(map[string]any{"is_terminal_enabled": false}); err != nil {
		t.Fatalf("UpdateGlobalConfig: %v", err)
	}

	if s.Config().TerminalEnabled {
		t.Error("Expected terminal flag disabled despite falsy value")
	}
	if len(store.patches) != 1 {
		t.Errorf("Expected one backend write, got %d", len(store.patches))
	}
	if len(notified) != 1 {
		t.Errorf("Expected one change notification, got %d", len(notified))
	}
}

func TestUpdateMasterKeyMirrors(t *testing.T) {
	store := newFakeStore()
	s := NewSynchronizer(store, t.TempDir(), "")
	defer s.Close()
	s.Hydrate()

	if err := s.UpdateMasterKey(domain.TierAdmin, "key-123"); err != nil {
		t.Fatalf("UpdateMasterKey: %v", err)
	}

	if got := s.Config().MCSS.MasterKeys[domain.TierAdmin]; got != "key-123" {
		t.Errorf("Expected mirrored key, got %q", got)
	}
	if store.masterKeys["admin"] != "key-123" {
		t.Error("Expected key persisted to backend")
	}
}

func TestDeleteNotificationRemovesLocal(t *testing.T) {
	store := newFakeStore()
	s := NewSynchronizer(store, t.TempDir(), "")
	defer s.Close()
	s.Hydrate()

	if err := s.DeleteNotification("n-1"); err != nil {
		t.Fatalf("DeleteNotification: %v", err)
	}
	if len(s.Notifications()) != 0 {
		t.Error("Expected local notification removed")
	}
	if len(store.deleted) != 1 || store.deleted[0] != "n-1" {
		t.Errorf("Expected backend delete for n-1, got %v", store.deleted)
	}
}
