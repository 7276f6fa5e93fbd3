package main

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"outpost/internal/api"
	"outpost/internal/app"
	"outpost/internal/config"
	"outpost/internal/configsync"
	"outpost/internal/domain"
	"outpost/internal/identity"
	"outpost/internal/poll"
	"outpost/internal/proxy"
	"outpost/internal/remote"
	"outpost/internal/session"
	"outpost/internal/storage"
	"outpost/internal/ws"
)

func main() {
	fmt.Println("Starting Outpost Daemon...")

	env, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	secret := config.LoadOrGenerateSecret(env.DataDir)

	fmt.Printf("Using database: %s\n", env.DatabasePath())
	fmt.Printf("Using data directory: %s\n", env.DataDir)

	store, err := storage.NewGormStore(env.DatabasePath())
	if err != nil {
		log.Fatalf("Fatal: Could not connect to DB: %v", err)
	}

	provider := identity.NewProvider(store, secret, env.DataDir)
	sessionSync := session.NewSynchronizer(provider, store)
	configSync := configsync.NewSynchronizer(store, env.DataDir, env.McssURL)
	poller := poll.NewOrchestrator()
	hub := ws.NewHub()
	relay := proxy.NewRelay()

	poller.Broadcast = func(snapshot poll.Snapshot) {
		data, err := json.Marshal(snapshot)
		if err != nil {
			log.Printf("Warning: could not marshal status snapshot: %v", err)
			return
		}
		hub.Broadcast(data)
	}

	// The adapter is rebuilt whenever either of its inputs changes: the
	// configured endpoint, or the operator session that decides which
	// credential is used.
	rebuildAdapter := func(cfg domain.GlobalConfig) {
		if cfg.MCSS.URL == "" {
			return
		}
		key := resolveControlKey(store, sessionSync, cfg)
		poller.SetAdapter(remote.NewClient(env.ProxyURL, cfg.MCSS.URL, key))
	}
	configSync.OnChange = rebuildAdapter

	events := provider.Subscribe()
	go func() {
		for range events {
			rebuildAdapter(configSync.Config())
		}
	}()

	var hydration sync.WaitGroup
	hydration.Add(2)
	go func() {
		defer hydration.Done()
		sessionSync.Initialize()
	}()
	go func() {
		defer hydration.Done()
		configSync.Hydrate()
	}()
	hydration.Wait()

	rebuildAdapter(configSync.Config())

	go hub.Run()
	go poller.Run()

	container := &app.Container{
		Store:    store,
		Provider: provider,
		Session:  sessionSync,
		Config:   configSync,
		Poller:   poller,
		Hub:      hub,
		Relay:    relay,

		AvatarsDir: env.AvatarsPath(),
	}

	apiServer := api.NewAPIServer(container)

	listenAddr := fmt.Sprintf(":%d", env.Port)
	if err := apiServer.Start(listenAddr); err != nil {
		log.Fatalf("API Error: %v", err)
	}
}

// resolveControlKey picks the credential for the control endpoint: the
// operator's personal key when one is stored, otherwise the master key for
// their tier. Signed-out operators fall back to the standard-tier key.
func resolveControlKey(store *storage.GormStore, sessionSync *session.Synchronizer, cfg domain.GlobalConfig) string {
	operator := sessionSync.Identity()
	if operator.ID != "" {
		if key, err := store.GetUserKey(operator.ID); err == nil && key != "" {
			return key
		}
	}

	tier := domain.TierStandard
	if operator.IsAdmin {
		tier = domain.TierAdmin
	}
	return cfg.MCSS.MasterKeys[tier]
}
