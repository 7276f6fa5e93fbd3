package configsync

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"outpost/internal/config"
	"outpost/internal/domain"
)

type State int

const (
	StateIdle State = iota
	StateCache
	StateFetching
	StateReady
	StateError
	StateTimeout
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateCache:
		return "CACHE"
	case StateFetching:
		return "FETCHING"
	case StateReady:
		return "READY"
	case StateError:
		return "ERROR"
	case StateTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

const DefaultSafetyTimeout = 6 * time.Second

// Store is the slice of the backend the synchronizer reads and writes.
type Store interface {
	domain.ConfigRepository
	domain.NotificationRepository
	domain.RoadmapRepository
}

// Synchronizer owns the global configuration and its auxiliary collections
// (notifications, roadmap), hydrating cache-first and revalidating live.
type Synchronizer struct {
	store          Store
	dataDir        string
	defaultMcssURL string

	SafetyTimeout time.Duration

	// OnChange is invoked with the assembled configuration after every
	// successful hydration or update; wiring uses it to rebuild the
	// remote-control adapter when the endpoint changes.
	OnChange func(domain.GlobalConfig)

	mu            sync.RWMutex
	state         State
	cfg           domain.GlobalConfig
	notifications []domain.Notification
	roadmap       []domain.RoadmapItem
	finalized     bool

	alive       atomic.Bool
	safetyTimer *time.Timer
}

func NewSynchronizer(store Store, dataDir string, defaultMcssURL string) *Synchronizer {
	s := &Synchronizer{
		store:          store,
		dataDir:        dataDir,
		defaultMcssURL: defaultMcssURL,
		SafetyTimeout:  DefaultSafetyTimeout,
		state:          StateIdle,
		cfg:            domain.DefaultGlobalConfig(),
	}
	s.alive.Store(true)
	return s
}

// Hydrate applies the cached configuration immediately so consumers are
// non-empty before the network responds, then performs the live fetch.
func (s *Synchronizer) Hydrate() {
	s.safetyTimer = time.AfterFunc(s.SafetyTimeout, s.onSafetyTimeout)

	s.setState(StateCache)
	cached, err := config.ReadCachedConfig(s.dataDir)
	if err != nil {
		log.Printf("Config: unreadable cache ignored: %v", err)
	}
	if cached != nil {
		s.mu.Lock()
		s.cfg = *cached
		s.mu.Unlock()
	}

	s.setState(StateFetching)

	var (
		wg         sync.WaitGroup
		rawConfig  map[string]any
		configErr  error
		bannerList []domain.Notification
		bannerErr  error
		roadmap    []domain.RoadmapItem
		roadmapErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		rawConfig, configErr = s.store.GetGlobalConfig()
	}()
	go func() {
		defer wg.Done()
		bannerList, bannerErr = s.store.ListNotifications()
	}()
	go func() {
		defer wg.Done()
		roadmap, roadmapErr = s.store.ListRoadmapItems()
	}()
	wg.Wait()

	if configErr != nil {
		// The config row itself is the fatal path; whatever the cache
		// hydrated remains the best-effort value.
		log.Printf("Config: global config fetch failed: %v", configErr)
		s.finalize(StateError)
		return
	}
	if bannerErr != nil {
		log.Printf("Config: notification fetch failed: %v", bannerErr)
		bannerList = []domain.Notification{}
	}
	if roadmapErr != nil {
		log.Printf("Config: roadmap fetch failed: %v", roadmapErr)
		roadmap = []domain.RoadmapItem{}
	}

	assembled := NormalizeConfig(rawConfig)
	if assembled.MCSS.URL == "" {
		assembled.MCSS.URL = s.defaultMcssURL
	}
	s.loadMasterKeys(&assembled)

	if !s.alive.Load() {
		return
	}

	s.mu.Lock()
	s.cfg = assembled
	s.notifications = bannerList
	s.roadmap = roadmap
	s.mu.Unlock()

	if err := config.WriteCachedConfig(s.dataDir, assembled); err != nil {
		log.Printf("Config: could not write cache: %v", err)
	}

	s.finalize(StateReady)
	s.notifyChange(assembled)
}

func (s *Synchronizer) loadMasterKeys(cfg *domain.GlobalConfig) {
	for _, tier := range []string{domain.TierStandard, domain.TierAdmin} {
		key, err := s.store.GetMasterKey(tier)
		if err != nil {
			log.Printf("Config: master key fetch failed for %s: %v", tier, err)
			continue
		}
		cfg.MCSS.MasterKeys[tier] = key
	}
}

func (s *Synchronizer) onSafetyTimeout() {
	if !s.alive.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return
	}
	log.Printf("Config: hydration exceeded %s, forcing TIMEOUT", s.SafetyTimeout)
	s.finalized = true
	s.state = StateTimeout
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

func (s *Synchronizer) notifyChange(cfg domain.GlobalConfig) {
	if s.OnChange != nil && s.alive.Load() {
		s.OnChange(cfg)
	}
}

func (s *Synchronizer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Config returns a copy of the current configuration.
func (s *Synchronizer) Config() domain.GlobalConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := s.cfg
	cfg.MCSS.MasterKeys = make(map[string]string, len(s.cfg.MCSS.MasterKeys))
	for k, v := range s.cfg.MCSS.MasterKeys {
		cfg.MCSS.MasterKeys[k] = v
	}
	return cfg
}

func (s *Synchronizer) Notifications() []domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Notification{}, s.notifications...)
}

func (s *Synchronizer) RoadmapItems() []domain.RoadmapItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.RoadmapItem{}, s.roadmap...)
}

func (s *Synchronizer) Close() {
	if !s.alive.CompareAndSwap(true, false) {
		return
	}
	if s.safetyTimer != nil {
		s.safetyTimer.Stop()
	}
}

// UpdateGlobalConfig writes the raw patch through and applies the
// field-present merge to local state.
func (s *Synchronizer) UpdateGlobalConfig(patch map[string]any) error {
	if err := s.store.UpdateGlobalConfig(patch); err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg = MergeConfig(s.cfg, patch)
	merged := s.cfg
	s.mu.Unlock()

	if err := config.WriteCachedConfig(s.dataDir, merged); err != nil {
		log.Printf("Config: could not write cache: %v", err)
	}

	s.notifyChange(merged)
	return nil
}

// UpdateMasterKey writes the keyed credential and mirrors it into the
// in-memory slot for the matching tier.
func (s *Synchronizer) UpdateMasterKey(tier string, key string) error {
	if err := s.store.SetMasterKey(tier, key); err != nil {
		return err
	}

	s.mu.Lock()
	if s.cfg.MCSS.MasterKeys == nil {
		s.cfg.MCSS.MasterKeys = make(map[string]string)
	}
	s.cfg.MCSS.MasterKeys[tier] = key
	merged := s.cfg
	s.mu.Unlock()

	s.notifyChange(merged)
	return nil
}

func (s *Synchronizer) CreateNotification(n *domain.Notification) error {
	if err := s.store.CreateNotification(n); err != nil {
		return err
	}
	s.mu.Lock()
	s.notifications = append([]domain.Notification{*n}, s.notifications...)
	s.mu.Unlock()
	return nil
}

// DeleteNotification performs the two-step cleanup (read-receipts first,
// then the row) and drops the local copy.
func (s *Synchronizer) DeleteNotification(id string) error {
	if err := s.store.DeleteNotification(id); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.notifications[:0]
	for _, n := range s.notifications {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	s.notifications = kept
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) CreateRoadmapItem(item *domain.RoadmapItem) error {
	if err := s.store.CreateRoadmapItem(item); err != nil {
		return err
	}
	s.mu.Lock()
	s.roadmap = append(s.roadmap, *item)
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) UpdateRoadmapItem(id string, fields map[string]any) error {
	if err := s.store.UpdateRoadmapItem(id, fields); err != nil {
		return err
	}

	s.mu.Lock()
	for i := range s.roadmap {
		if s.roadmap[i].ID != id {
			continue
		}
		if title, ok := fields["title"].(string); ok {
			s.roadmap[i].Title = title
		}
		if body, ok := fields["body"].(string); ok {
			s.roadmap[i].Body = body
		}
		if phase, ok := fields["phase"].(string); ok {
			s.roadmap[i].Phase = phase
		}
		if done, ok := fields["done"].(bool); ok {
			s.roadmap[i].Done = done
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) DeleteRoadmapItem(id string) error {
	if err := s.store.DeleteRoadmapItem(id); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.roadmap[:0]
	for _, item := range s.roadmap {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	s.roadmap = kept
	s.mu.Unlock()
	return nil
}
