package identity

import (
	"testing"

	"outpost/internal/domain"
)

type fakeProfileStore struct {
	profiles map[string]*domain.Identity
	hashes   map[string]string
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{
		profiles: make(map[string]*domain.Identity),
		hashes:   make(map[string]string),
	}
}

func (f *fakeProfileStore) CreateProfile(identity *domain.Identity, passwordHash string) error {
	copied := *identity
	f.profiles[identity.ID] = &copied
	f.hashes[identity.ID] = passwordHash
	return nil
}

func (f *fakeProfileStore) GetProfileByID(id string) (*domain.Identity, error) {
	profile, ok := f.profiles[id]
	if !ok {
		return nil, nil
	}
	copied := *profile
	return &copied, nil
}

func (f *fakeProfileStore) GetProfileByEmail(email string) (*domain.Identity, error) {
	for _, profile := range f.profiles {
		if profile.Email == email {
			copied := *profile
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeProfileStore) GetPasswordHash(id string) (string, error) {
	return f.hashes[id], nil
}

func (f *fakeProfileStore) UpdateProfile(id string, fields map[string]any) error {
	profile, ok := f.profiles[id]
	if !ok {
		return nil
	}
	if url, ok := fields["avatar_url"].(string); ok {
		profile.AvatarURL = url
	}
	return nil
}

func (f *fakeProfileStore) UpdatePasswordHash(id string, hash string) error {
	f.hashes[id] = hash
	return nil
}

func newTestProvider(t *testing.T) (*Provider, *fakeProfileStore) {
	t.Helper()
	store := newFakeProfileStore()
	return NewProvider(store, "test-secret", t.TempDir()), store
}

func TestSignUpThenSignIn(t *testing.T) {
	provider, _ := newTestProvider(t)

	created, err := provider.SignUp("ops@example.com", "hunter2", "Ops")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if created.Token == "" || created.UserID == "" {
		t.Fatalf("incomplete session: %+v", created)
	}

	session, err := provider.SignIn("ops@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if session.UserID != created.UserID {
		t.Errorf("user id mismatch: %s vs %s", session.UserID, created.UserID)
	}

	if _, err := provider.SignIn("ops@example.com", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := provider.SignIn("nobody@example.com", "hunter2"); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	provider, _ := newTestProvider(t)

	if _, err := provider.SignUp("ops@example.com", "hunter2", "Ops"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if _, err := provider.SignUp("ops@example.com", "other", "Other"); err != ErrEmailTaken {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestVerifyToken(t *testing.T) {
	provider, _ := newTestProvider(t)

	session, err := provider.SignUp("ops@example.com", "hunter2", "Ops")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	userID, err := provider.VerifyToken(session.Token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if userID != session.UserID {
		t.Errorf("verified id %s, want %s", userID, session.UserID)
	}

	if _, err := provider.VerifyToken("garbage"); err == nil {
		t.Error("expected error for garbage token")
	}
}

func TestSubscribeReceivesSessionEvents(t *testing.T) {
	provider, _ := newTestProvider(t)
	events := provider.Subscribe()

	session, err := provider.SignUp("ops@example.com", "hunter2", "Ops")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	event := <-events
	if event.Type != SignedIn || event.UserID != session.UserID {
		t.Errorf("unexpected event: %+v", event)
	}

	if err := provider.SignOut(); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	event = <-events
	if event.Type != SignedOut || event.UserID != session.UserID {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestCurrentSessionRestoresFromDisk(t *testing.T) {
	store := newFakeProfileStore()
	dataDir := t.TempDir()
	provider := NewProvider(store, "test-secret", dataDir)

	session, err := provider.SignUp("ops@example.com", "hunter2", "Ops")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	// A fresh provider over the same data dir sees the persisted session.
	restored := NewProvider(store, "test-secret", dataDir)
	current, err := restored.CurrentSession()
	if err != nil {
		t.Fatalf("CurrentSession: %v", err)
	}
	if current == nil || current.UserID != session.UserID {
		t.Fatalf("unexpected restored session: %+v", current)
	}

	// A different secret invalidates the persisted token silently.
	stranger := NewProvider(store, "other-secret", dataDir)
	current, err = stranger.CurrentSession()
	if err != nil {
		t.Fatalf("CurrentSession: %v", err)
	}
	if current != nil {
		t.Errorf("expected nil session under different secret, got %+v", current)
	}
}

func TestReauthenticateAndUpdatePassword(t *testing.T) {
	provider, _ := newTestProvider(t)

	session, err := provider.SignUp("ops@example.com", "hunter2", "Ops")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	if err := provider.Reauthenticate("ops@example.com", "hunter2"); err != nil {
		t.Fatalf("Reauthenticate: %v", err)
	}
	if err := provider.UpdatePassword(session.UserID, "correct-horse"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}

	if err := provider.Reauthenticate("ops@example.com", "hunter2"); err != ErrInvalidCredentials {
		t.Errorf("old password should be rejected, got %v", err)
	}
	if err := provider.Reauthenticate("ops@example.com", "correct-horse"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}
