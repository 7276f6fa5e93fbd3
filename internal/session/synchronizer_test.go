package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"outpost/internal/domain"
	"outpost/internal/identity"
)

type fakeProvider struct {
	session *identity.Session
	events  chan identity.SessionEvent
}

func newFakeProvider(session *identity.Session) *fakeProvider {
	return &fakeProvider{
		session: session,
		events:  make(chan identity.SessionEvent, 8),
	}
}

func (p *fakeProvider) CurrentSession() (*identity.Session, error) { return p.session, nil }

func (p *fakeProvider) Subscribe() <-chan identity.SessionEvent { return p.events }

func (p *fakeProvider) SignIn(email, password string) (*identity.Session, error) {
	sess := &identity.Session{Token: "t", UserID: "user-1"}
	p.events <- identity.SessionEvent{Type: identity.SignedIn, UserID: sess.UserID}
	return sess, nil
}

func (p *fakeProvider) SignUp(email, password, displayName string) (*identity.Session, error) {
	return p.SignIn(email, password)
}

func (p *fakeProvider) SignOut() error {
	p.events <- identity.SessionEvent{Type: identity.SignedOut, UserID: "user-1"}
	return nil
}

func (p *fakeProvider) Reauthenticate(email, password string) error       { return nil }
func (p *fakeProvider) UpdatePassword(userID, newPassword string) error   { return nil }
func (p *fakeProvider) SendPasswordReset(email, redirectURL string) error { return nil }

func (p *fakeProvider) UploadAvatar(userID, fileName string, data []byte) (string, error) {
	return "/avatars/" + userID + ".png", nil
}

type fakeStore struct {
	mu           sync.Mutex
	profileDelay time.Duration
	profileCalls atomic.Int64
	profile      *domain.Identity
	unlocked     []string
	assets       map[string]*domain.IntelAsset
	readIDs      []string
	xpWrites     []map[string]any
}

func newFakeStore() *fakeStore {
	profile := domain.NewIdentity()
	profile.ID = "user-1"
	profile.Email = "op@outpost.dev"
	profile.DisplayName = "Operator"
	return &fakeStore{
		profile: profile,
		assets:  make(map[string]*domain.IntelAsset),
	}
}

func (s *fakeStore) GetProfileByID(id string) (*domain.Identity, error) {
	s.profileCalls.Add(1)
	if s.profileDelay > 0 {
		time.Sleep(s.profileDelay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *s.profile
	return &copied, nil
}

func (s *fakeStore) GetProfileByEmail(email string) (*domain.Identity, error) {
	return s.profile, nil
}

func (s *fakeStore) CreateProfile(i *domain.Identity, hash string) error { return nil }
func (s *fakeStore) GetPasswordHash(id string) (string, error)           { return "", nil }
func (s *fakeStore) UpdatePasswordHash(id string, hash string) error     { return nil }

func (s *fakeStore) UpdateProfile(id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.xpWrites = append(s.xpWrites, fields)
	return nil
}

func (s *fakeStore) ListUnlockedAssetIDs(userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.unlocked...), nil
}

func (s *fakeStore) AddUnlock(userID, assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlocked = append(s.unlocked, assetID)
	return nil
}

func (s *fakeStore) GetAssetByCode(code string) (*domain.IntelAsset, error) {
	return s.assets[code], nil
}

func (s *fakeStore) ListAssets() ([]domain.IntelAsset, error) { return nil, nil }

func (s *fakeStore) ListNotifications() ([]domain.Notification, error) { return nil, nil }
func (s *fakeStore) CreateNotification(n *domain.Notification) error   { return nil }
func (s *fakeStore) DeleteNotification(id string) error                { return nil }

func (s *fakeStore) MarkRead(userID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readIDs = append(s.readIDs, notificationID)
	return nil
}

func (s *fakeStore) MarkAllRead(userID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readIDs = append(s.readIDs, ids...)
	return nil
}

func (s *fakeStore) ListReadIDs(userID string) ([]string, error) { return s.readIDs, nil }

func waitForState(t *testing.T, s *Synchronizer, want State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Expected state %s, still %s after %s", want, s.State(), timeout)
}

func TestInitializeWithoutSession(t *testing.T) {
	s := NewSynchronizer(newFakeProvider(nil), newFakeStore())
	defer s.Close()

	s.Initialize()

	if s.State() != StateReady {
		t.Fatalf("Expected READY with no session, got %s", s.State())
	}
	id := s.Identity()
	if id.ID != "" {
		t.Errorf("Expected empty identity, got %s", id.ID)
	}
	if id.Permissions == nil || id.ReadBannerIDs == nil {
		t.Error("Expected non-nil collections on empty identity")
	}
}

func TestInitializeHydratesProfile(t *testing.T) {
	provider := newFakeProvider(&identity.Session{Token: "t", UserID: "user-1"})
	store := newFakeStore()
	store.unlocked = []string{"asset-1"}

	s := NewSynchronizer(provider, store)
	defer s.Close()

	s.Initialize()
	waitForState(t, s, StateReady, time.Second)

	if got := s.Identity().Email; got != "op@outpost.dev" {
		t.Errorf("Expected hydrated email, got %q", got)
	}
	if ids := s.UnlockedAssetIDs(); len(ids) != 1 || ids[0] != "asset-1" {
		t.Errorf("Expected unlocked asset ids, got %v", ids)
	}
}

func TestSyncProfileSingleFlight(t *testing.T) {
	store := newFakeStore()
	store.profileDelay = 30 * time.Millisecond

	s := NewSynchronizer(newFakeProvider(nil), store)
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.SyncProfile("user-1")
		}()
	}
	wg.Wait()

	if calls := store.profileCalls.Load(); calls != 1 {
		t.Errorf("Expected exactly one profile fetch, got %d", calls)
	}
	if s.State() != StateReady {
		t.Errorf("Expected READY after sync, got %s", s.State())
	}
}

func TestSafetyTimeoutThenLateResultApplies(t *testing.T) {
	provider := newFakeProvider(&identity.Session{Token: "t", UserID: "user-1"})
	store := newFakeStore()
	store.profileDelay = 60 * time.Millisecond

	s := NewSynchronizer(provider, store)
	s.SafetyTimeout = 10 * time.Millisecond
	defer s.Close()

	go s.Initialize()

	waitForState(t, s, StateTimeout, time.Second)

	// The in-flight fetch is not cancelled; its result still lands.
	waitForState(t, s, StateReady, time.Second)
	if got := s.Identity().ID; got != "user-1" {
		t.Errorf("Expected late result applied, identity is %q", got)
	}
}

func TestSignOutEventClearsIdentity(t *testing.T) {
	provider := newFakeProvider(&identity.Session{Token: "t", UserID: "user-1"})
	store := newFakeStore()

	s := NewSynchronizer(provider, store)
	defer s.Close()

	s.Initialize()
	waitForState(t, s, StateReady, time.Second)
	if !s.SignedIn() {
		t.Fatal("Expected signed-in identity after initialize")
	}

	if err := s.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if !s.SignedIn() {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if s.SignedIn() {
		t.Fatal("Expected identity cleared after sign-out event")
	}
	if s.State() != StateReady {
		t.Errorf("Expected READY after sign-out, got %s", s.State())
	}
}

func TestCloseDropsLateResults(t *testing.T) {
	store := newFakeStore()
	store.profileDelay = 30 * time.Millisecond

	s := NewSynchronizer(newFakeProvider(nil), store)

	done := make(chan struct{})
	go func() {
		s.SyncProfile("user-1")
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	s.Close()
	<-done

	if got := s.Identity().ID; got != "" {
		t.Errorf("Expected result dropped after Close, identity is %q", got)
	}
}

func TestAttemptUnlockWithCode(t *testing.T) {
	provider := newFakeProvider(&identity.Session{Token: "t", UserID: "user-1"})
	store := newFakeStore()
	store.assets["RAVEN"] = &domain.IntelAsset{ID: "asset-9", Name: "Raven Dossier", Code: "RAVEN"}

	s := NewSynchronizer(provider, store)
	defer s.Close()

	s.Initialize()
	waitForState(t, s, StateReady, time.Second)

	if _, err := s.AttemptUnlockWithCode("WRONG"); err == nil {
		t.Error("Expected error for invalid code")
	}

	msg, err := s.AttemptUnlockWithCode("RAVEN")
	if err != nil {
		t.Fatalf("AttemptUnlockWithCode: %v", err)
	}
	if msg != "Unlocked: Raven Dossier" {
		t.Errorf("Unexpected unlock message: %q", msg)
	}

	msg, err = s.AttemptUnlockWithCode("RAVEN")
	if err != nil {
		t.Fatalf("AttemptUnlockWithCode repeat: %v", err)
	}
	if msg != "Raven Dossier already unlocked" {
		t.Errorf("Expected already-unlocked short circuit, got %q", msg)
	}

	store.mu.Lock()
	unlockWrites := len(store.unlocked)
	store.mu.Unlock()
	if unlockWrites != 1 {
		t.Errorf("Expected exactly one unlock write, got %d", unlockWrites)
	}
}

func TestMarkBannerReadOptimistic(t *testing.T) {
	provider := newFakeProvider(&identity.Session{Token: "t", UserID: "user-1"})
	store := newFakeStore()

	s := NewSynchronizer(provider, store)
	defer s.Close()

	s.Initialize()
	waitForState(t, s, StateReady, time.Second)

	if err := s.MarkBannerRead("n-1"); err != nil {
		t.Fatalf("MarkBannerRead: %v", err)
	}
	id := s.Identity()
	if !id.HasRead("n-1") {
		t.Error("Expected optimistic local read mark")
	}

	// Duplicate marks must not duplicate local entries.
	if err := s.MarkBannerRead("n-1"); err != nil {
		t.Fatalf("MarkBannerRead repeat: %v", err)
	}
	if got := len(s.Identity().ReadBannerIDs); got != 1 {
		t.Errorf("Expected one read id, got %d", got)
	}
}
