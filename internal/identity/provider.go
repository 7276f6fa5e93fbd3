package identity

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"outpost/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNoSession          = errors.New("no active session")
)

const (
	sessionFileName = ".session"
	sessionTTL      = 7 * 24 * time.Hour
)

type EventType int

const (
	SignedIn EventType = iota
	SignedOut
)

type SessionEvent struct {
	Type   EventType
	UserID string
}

type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// Provider issues and validates portal sessions and fans session-change
// events out to subscribers in arrival order.
type Provider struct {
	store       domain.ProfileRepository
	secret      []byte
	dataDir     string
	avatarsPath string

	mu          sync.Mutex
	current     *Session
	subscribers []chan SessionEvent
}

func NewProvider(store domain.ProfileRepository, secret string, dataDir string) *Provider {
	return &Provider{
		store:       store,
		secret:      []byte(secret),
		dataDir:     dataDir,
		avatarsPath: filepath.Join(dataDir, "avatars"),
	}
}

// Subscribe returns a channel receiving session-change events for the life
// of the provider. A slow subscriber drops events rather than blocking the
// signer-in.
func (p *Provider) Subscribe() <-chan SessionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan SessionEvent, 8)
	p.subscribers = append(p.subscribers, ch)
	return ch
}

func (p *Provider) emit(event SessionEvent) {
	for _, ch := range p.subscribers {
		select {
		case ch <- event:
		default:
			log.Printf("Warning: dropping session event for slow subscriber")
		}
	}
}

func (p *Provider) signToken(userID string, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": expiresAt.Unix(),
	})
	return token.SignedString(p.secret)
}

// VerifyToken returns the user id a token was issued for.
func (p *Provider) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidCredentials
	}
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidCredentials
	}
	return userID, nil
}

// CurrentSession restores the persisted session, if any. A missing or
// expired session returns (nil, nil); callers treat that as signed out.
func (p *Provider) CurrentSession() (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		return p.current, nil
	}

	data, err := os.ReadFile(filepath.Join(p.dataDir, sessionFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	tokenString := strings.TrimSpace(string(data))
	userID, err := p.VerifyToken(tokenString)
	if err != nil {
		return nil, nil
	}

	p.current = &Session{Token: tokenString, UserID: userID}
	return p.current, nil
}

func (p *Provider) persistSession(session *Session) {
	sessionPath := filepath.Join(p.dataDir, sessionFileName)
	if session == nil {
		os.Remove(sessionPath)
		return
	}
	if err := os.WriteFile(sessionPath, []byte(session.Token), 0600); err != nil {
		log.Printf("Warning: could not persist session: %v", err)
	}
}

func (p *Provider) SignIn(email, password string) (*Session, error) {
	profile, err := p.store.GetProfileByEmail(email)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrInvalidCredentials
	}

	hash, err := p.store.GetPasswordHash(profile.ID)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(sessionTTL)
	tokenString, err := p.signToken(profile.ID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("error signing token: %w", err)
	}

	session := &Session{Token: tokenString, UserID: profile.ID, ExpiresAt: expiresAt}

	p.mu.Lock()
	p.current = session
	p.persistSession(session)
	p.emit(SessionEvent{Type: SignedIn, UserID: profile.ID})
	p.mu.Unlock()

	return session, nil
}

func (p *Provider) SignUp(email, password, displayName string) (*Session, error) {
	existing, err := p.store.GetProfileByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	profile := domain.NewIdentity()
	profile.ID = uuid.NewString()
	profile.Email = email
	profile.DisplayName = displayName

	if err := p.store.CreateProfile(profile, string(hash)); err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(sessionTTL)
	tokenString, err := p.signToken(profile.ID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("error signing token: %w", err)
	}

	session := &Session{Token: tokenString, UserID: profile.ID, ExpiresAt: expiresAt}

	p.mu.Lock()
	p.current = session
	p.persistSession(session)
	p.emit(SessionEvent{Type: SignedIn, UserID: profile.ID})
	p.mu.Unlock()

	return session, nil
}

func (p *Provider) SignOut() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return nil
	}
	userID := p.current.UserID
	p.current = nil
	p.persistSession(nil)
	p.emit(SessionEvent{Type: SignedOut, UserID: userID})
	return nil
}

// Reauthenticate verifies a password without touching the current session.
// Used to confirm the existing password before a change.
func (p *Provider) Reauthenticate(email, password string) error {
	profile, err := p.store.GetProfileByEmail(email)
	if err != nil {
		return err
	}
	if profile == nil {
		return ErrInvalidCredentials
	}

	hash, err := p.store.GetPasswordHash(profile.ID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (p *Provider) UpdatePassword(userID, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	return p.store.UpdatePasswordHash(userID, string(hash))
}

// SendPasswordReset issues a short-lived reset token. Mail delivery is the
// portal frontend's concern; the token is logged for the operator.
func (p *Provider) SendPasswordReset(email, redirectURL string) error {
	profile, err := p.store.GetProfileByEmail(email)
	if err != nil {
		return err
	}
	if profile == nil {
		// Do not reveal whether the address exists.
		return nil
	}

	tokenString, err := p.signToken(profile.ID, time.Now().Add(time.Hour))
	if err != nil {
		return fmt.Errorf("error signing reset token: %w", err)
	}

	log.Printf("Password reset for %s: %s?token=%s", email, redirectURL, tokenString)
	return nil
}

// UploadAvatar stores the image under the data dir and points the profile
// at it.
func (p *Provider) UploadAvatar(userID string, fileName string, data []byte) (string, error) {
	if err := os.MkdirAll(p.avatarsPath, 0755); err != nil {
		return "", err
	}

	ext := filepath.Ext(fileName)
	if ext == "" {
		ext = ".png"
	}
	name := userID + ext
	if err := os.WriteFile(filepath.Join(p.avatarsPath, name), data, 0644); err != nil {
		return "", err
	}

	avatarURL := "/avatars/" + name
	if err := p.store.UpdateProfile(userID, map[string]any{"avatar_url": avatarURL}); err != nil {
		return "", err
	}
	return avatarURL, nil
}
