package session

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"outpost/internal/domain"
	"outpost/internal/identity"
)

type State int

const (
	StateIdle State = iota
	StateSession
	StateSyncing
	StateReady
	StateTimeout
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSession:
		return "SESSION"
	case StateSyncing:
		return "SYNCING"
	case StateReady:
		return "READY"
	case StateTimeout:
		return "TIMEOUT"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// DefaultSafetyTimeout bounds how long consumers wait on initial hydration
// before the synchronizer gives up and reports TIMEOUT. The underlying
// fetch is not cancelled; a late result still lands.
const DefaultSafetyTimeout = 6 * time.Second

// Provider is the slice of the identity provider the synchronizer consumes.
type Provider interface {
	CurrentSession() (*identity.Session, error)
	Subscribe() <-chan identity.SessionEvent
	SignIn(email, password string) (*identity.Session, error)
	SignUp(email, password, displayName string) (*identity.Session, error)
	SignOut() error
	Reauthenticate(email, password string) error
	UpdatePassword(userID, newPassword string) error
	SendPasswordReset(email, redirectURL string) error
	UploadAvatar(userID, fileName string, data []byte) (string, error)
}

// Store is the slice of the backend the synchronizer reads and writes.
type Store interface {
	domain.ProfileRepository
	domain.IntelRepository
	domain.NotificationRepository
}

// Synchronizer owns the identity lifecycle: initial session restoration,
// profile hydration, push-event handling, and optimistic profile patches.
type Synchronizer struct {
	provider Provider
	store    Store

	SafetyTimeout time.Duration

	mu        sync.RWMutex
	state     State
	identity  *domain.Identity
	unlocked  []string
	finalized bool

	syncInFlight atomic.Bool
	alive        atomic.Bool

	safetyTimer *time.Timer
	done        chan struct{}
}

func NewSynchronizer(provider Provider, store Store) *Synchronizer {
	s := &Synchronizer{
		provider:      provider,
		store:         store,
		SafetyTimeout: DefaultSafetyTimeout,
		state:         StateIdle,
		identity:      domain.NewIdentity(),
		unlocked:      []string{},
		done:          make(chan struct{}),
	}
	s.alive.Store(true)
	return s
}

// Initialize restores any existing session and hydrates the profile. It
// subscribes to provider push events for the life of the synchronizer and
// arms the safety timer.
func (s *Synchronizer) Initialize() {
	s.setState(StateSession)

	events := s.provider.Subscribe()
	go s.eventLoop(events)

	s.safetyTimer = time.AfterFunc(s.SafetyTimeout, s.onSafetyTimeout)

	sess, err := s.provider.CurrentSession()
	if err != nil {
		log.Printf("Session: error restoring session: %v", err)
		s.finalize(StateError)
		return
	}
	if sess == nil {
		s.finalize(StateReady)
		return
	}

	s.SyncProfile(sess.UserID)
}

func (s *Synchronizer) eventLoop(events <-chan identity.SessionEvent) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if !s.alive.Load() {
				return
			}
			switch event.Type {
			case identity.SignedIn:
				go s.SyncProfile(event.UserID)
			case identity.SignedOut:
				s.clearIdentity()
			}
		case <-s.done:
			return
		}
	}
}

// onSafetyTimeout force-finalizes as TIMEOUT if nothing else finalized
// first. The in-flight fetch is not cancelled; its result is still applied
// when it resolves.
func (s *Synchronizer) onSafetyTimeout() {
	if !s.alive.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return
	}
	log.Printf("Session: hydration exceeded %s, forcing TIMEOUT", s.SafetyTimeout)
	s.finalized = true
	s.state = StateTimeout
}

// SyncProfile hydrates the identity from the backend. A call arriving while
// another sync is in flight is a no-op; only the in-flight sync's result is
// applied.
func (s *Synchronizer) SyncProfile(userID string) {
	if !s.syncInFlight.CompareAndSwap(false, true) {
		return
	}
	defer s.syncInFlight.Store(false)

	s.setState(StateSyncing)

	var (
		wg         sync.WaitGroup
		profile    *domain.Identity
		profileErr error
		unlocked   []string
		unlockErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		profile, profileErr = s.store.GetProfileByID(userID)
	}()
	go func() {
		defer wg.Done()
		unlocked, unlockErr = s.store.ListUnlockedAssetIDs(userID)
	}()
	wg.Wait()

	if profileErr != nil || profile == nil {
		// Session is confirmed even when the profile row fetch fails;
		// finalize READY rather than leaving consumers stuck.
		log.Printf("Session: profile sync failed for %s: %v", userID, profileErr)
		s.finalize(StateReady)
		return
	}
	if unlockErr != nil {
		log.Printf("Session: unlock list fetch failed for %s: %v", userID, unlockErr)
		unlocked = []string{}
	}

	profile.Normalize()

	if !s.alive.Load() {
		return
	}

	s.mu.Lock()
	s.identity = profile
	s.unlocked = unlocked
	s.mu.Unlock()

	s.finalize(StateReady)
}

func (s *Synchronizer) clearIdentity() {
	if !s.alive.Load() {
		return
	}
	s.mu.Lock()
	s.identity = domain.NewIdentity()
	s.unlocked = []string{}
	s.mu.Unlock()
	s.finalize(StateReady)
}

func (s *Synchronizer) setState(state State) {
	if !s.alive.Load() {
		return
	}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Synchronizer) finalize(state State) {
	if !s.alive.Load() {
		return
	}
	s.mu.Lock()
	s.finalized = true
	s.state = state
	s.mu.Unlock()
}

func (s *Synchronizer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Identity returns a copy of the current identity.
func (s *Synchronizer) Identity() domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity := *s.identity
	identity.Permissions = make(map[string]bool, len(s.identity.Permissions))
	for k, v := range s.identity.Permissions {
		identity.Permissions[k] = v
	}
	identity.ReadBannerIDs = append([]string{}, s.identity.ReadBannerIDs...)
	return identity
}

func (s *Synchronizer) UnlockedAssetIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.unlocked...)
}

func (s *Synchronizer) SignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity.ID != ""
}

// Close tears the synchronizer down; results arriving afterwards are
// dropped silently.
func (s *Synchronizer) Close() {
	if !s.alive.CompareAndSwap(true, false) {
		return
	}
	if s.safetyTimer != nil {
		s.safetyTimer.Stop()
	}
	close(s.done)
}

// Login does not finalize loading on success: the provider's signed-in
// event drives SyncProfile, so consumers see the authoritative post-sync
// state rather than the raw login response.
func (s *Synchronizer) Login(email, password string) error {
	_, err := s.provider.SignIn(email, password)
	return err
}

func (s *Synchronizer) Signup(email, password, displayName string) error {
	_, err := s.provider.SignUp(email, password, displayName)
	return err
}

func (s *Synchronizer) Logout() error {
	return s.provider.SignOut()
}

// UpdateProfile writes the patch through and mirrors display fields into
// local state.
func (s *Synchronizer) UpdateProfile(fields map[string]any) error {
	userID := s.Identity().ID
	if userID == "" {
		return fmt.Errorf("no signed-in identity")
	}
	if err := s.store.UpdateProfile(userID, fields); err != nil {
		return err
	}

	s.mu.Lock()
	if name, ok := fields["display_name"].(string); ok {
		s.identity.DisplayName = name
	}
	if url, ok := fields["avatar_url"].(string); ok {
		s.identity.AvatarURL = url
	}
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) UpdatePassword(newPassword string) error {
	userID := s.Identity().ID
	if userID == "" {
		return fmt.Errorf("no signed-in identity")
	}
	return s.provider.UpdatePassword(userID, newPassword)
}

func (s *Synchronizer) VerifyPassword(password string) error {
	email := s.Identity().Email
	if email == "" {
		return fmt.Errorf("no signed-in identity")
	}
	return s.provider.Reauthenticate(email, password)
}

func (s *Synchronizer) ResetPassword(email, redirectURL string) error {
	return s.provider.SendPasswordReset(email, redirectURL)
}

func (s *Synchronizer) UploadAvatar(fileName string, data []byte) (string, error) {
	userID := s.Identity().ID
	if userID == "" {
		return "", fmt.Errorf("no signed-in identity")
	}
	url, err := s.provider.UploadAvatar(userID, fileName, data)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.identity.AvatarURL = url
	s.mu.Unlock()
	return url, nil
}

// MarkBannerRead patches local state optimistically and writes through.
func (s *Synchronizer) MarkBannerRead(notificationID string) error {
	userID := s.Identity().ID
	if userID == "" {
		return fmt.Errorf("no signed-in identity")
	}

	s.mu.Lock()
	if !s.identity.HasRead(notificationID) {
		s.identity.ReadBannerIDs = append(s.identity.ReadBannerIDs, notificationID)
	}
	s.mu.Unlock()

	return s.store.MarkRead(userID, notificationID)
}

func (s *Synchronizer) MarkAllBannersRead(notificationIDs []string) error {
	userID := s.Identity().ID
	if userID == "" {
		return fmt.Errorf("no signed-in identity")
	}

	s.mu.Lock()
	for _, id := range notificationIDs {
		if !s.identity.HasRead(id) {
			s.identity.ReadBannerIDs = append(s.identity.ReadBannerIDs, id)
		}
	}
	s.mu.Unlock()

	return s.store.MarkAllRead(userID, notificationIDs)
}

func (s *Synchronizer) AddXP(points int) error {
	userID := s.Identity().ID
	if userID == "" {
		return fmt.Errorf("no signed-in identity")
	}

	s.mu.Lock()
	s.identity.XP += points
	total := s.identity.XP
	s.mu.Unlock()

	return s.store.UpdateProfile(userID, map[string]any{"xp": total})
}

func (s *Synchronizer) UnlockIntel(assetID string) error {
	userID := s.Identity().ID
	if userID == "" {
		return fmt.Errorf("no signed-in identity")
	}

	s.mu.Lock()
	already := false
	for _, id := range s.unlocked {
		if id == assetID {
			already = true
			break
		}
	}
	if !already {
		s.unlocked = append(s.unlocked, assetID)
	}
	s.mu.Unlock()

	if already {
		return nil
	}
	return s.store.AddUnlock(userID, assetID)
}

// AttemptUnlockWithCode resolves a submitted code to an asset and unlocks
// it, reporting the asset's name. An already-unlocked asset short-circuits
// with a success message.
func (s *Synchronizer) AttemptUnlockWithCode(code string) (string, error) {
	userID := s.Identity().ID
	if userID == "" {
		return "", fmt.Errorf("no signed-in identity")
	}

	asset, err := s.store.GetAssetByCode(code)
	if err != nil {
		return "", err
	}
	if asset == nil {
		return "", fmt.Errorf("invalid code")
	}

	for _, id := range s.UnlockedAssetIDs() {
		if id == asset.ID {
			return fmt.Sprintf("%s already unlocked", asset.Name), nil
		}
	}

	if err := s.UnlockIntel(asset.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Unlocked: %s", asset.Name), nil
}
