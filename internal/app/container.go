package app

import (
	"outpost/internal/configsync"
	"outpost/internal/identity"
	"outpost/internal/poll"
	"outpost/internal/proxy"
	"outpost/internal/session"
	"outpost/internal/storage"
	"outpost/internal/ws"
)

type Container struct {
	Store    *storage.GormStore
	Provider *identity.Provider
	Session  *session.Synchronizer
	Config   *configsync.Synchronizer
	Poller   *poll.Orchestrator
	Hub      *ws.Hub
	Relay    *proxy.Relay

	AvatarsDir string
}
