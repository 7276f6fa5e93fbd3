package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"outpost/internal/domain"
)

// Adapter is the slice of the remote-control client the orchestrator
// consumes. The instance is shared read-only and replaced wholesale when
// credentials or endpoint change.
type Adapter interface {
	ListServers(ctx context.Context) ([]domain.ServerHandle, error)
	GetServerStats(ctx context.Context, id string) (domain.ServerStats, error)
	ExecuteAction(ctx context.Context, id string, action any) error
	ExecuteCommand(ctx context.Context, id string, command string) error
	GetConsole(ctx context.Context, id string, lines int) ([]string, error)
}

var (
	ErrActionInFlight = errors.New("another action is already in flight")
	ErrNoAdapter      = errors.New("remote control not configured")
)

const (
	DefaultShortInterval = 5 * time.Second
	DefaultLongInterval  = 300 * time.Second
	DefaultGraceWindow   = 2200 * time.Millisecond
	DefaultSettleDelay   = time.Second
	DefaultMaxLog        = 5
	probeTimeout         = 10 * time.Second
)

type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Tag       string    `json:"tag"`
	Message   string    `json:"message"`
}

// Snapshot is the ephemeral polling session state handed to consumers.
type Snapshot struct {
	ServerID     string             `json:"serverId"`
	ServerName   string             `json:"serverName"`
	Status       string             `json:"status"`
	Reachable    bool               `json:"reachable"`
	Establishing bool               `json:"establishing"`
	Stats        domain.ServerStats `json:"stats"`
	Log          []LogEntry         `json:"log"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// Orchestrator continuously refreshes the current server's status with
// adaptive backoff and gates lifecycle actions.
type Orchestrator struct {
	ShortInterval time.Duration
	LongInterval  time.Duration
	GraceWindow   time.Duration
	SettleDelay   time.Duration
	MaxLog        int

	// Broadcast, when set, receives a snapshot after every probe.
	Broadcast func(Snapshot)

	mu         sync.Mutex
	adapter    Adapter
	serverID   string
	serverName string
	stats      domain.ServerStats
	reachable  bool
	everProbed bool
	statusText string
	logEntries []LogEntry
	healthy    bool

	generation     atomic.Int64
	actionInFlight atomic.Bool

	startedAt time.Time
	probeNow  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		ShortInterval: DefaultShortInterval,
		LongInterval:  DefaultLongInterval,
		GraceWindow:   DefaultGraceWindow,
		SettleDelay:   DefaultSettleDelay,
		MaxLog:        DefaultMaxLog,
		statusText:    "OFFLINE",
		healthy:       true,
		probeNow:      make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
}

// SetAdapter replaces the adapter wholesale. The generation bump discards
// probe results that started against the previous instance, and the server
// id is re-resolved because a new endpoint may expose a different fleet.
func (o *Orchestrator) SetAdapter(adapter Adapter) {
	o.generation.Add(1)

	o.mu.Lock()
	o.adapter = adapter
	o.serverID = ""
	o.serverName = ""
	o.healthy = true
	o.mu.Unlock()

	o.TriggerProbe()
}

// TriggerProbe forces an immediate probe instead of waiting for the next
// scheduled tick.
func (o *Orchestrator) TriggerProbe() {
	select {
	case o.probeNow <- struct{}{}:
	default:
	}
}

// Run polls until Close. The interval is recomputed after every probe:
// short while the endpoint answers, long once a probe fails so a
// confirmed-dead endpoint is not hammered.
func (o *Orchestrator) Run() {
	o.mu.Lock()
	o.startedAt = time.Now()
	o.mu.Unlock()

	for {
		o.probe()

		timer := time.NewTimer(o.interval())
		select {
		case <-o.done:
			timer.Stop()
			return
		case <-o.probeNow:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		close(o.done)
	})
}

func (o *Orchestrator) interval() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.healthy {
		return o.ShortInterval
	}
	return o.LongInterval
}

func (o *Orchestrator) probe() {
	generation := o.generation.Load()

	o.mu.Lock()
	adapter := o.adapter
	serverID := o.serverID
	o.mu.Unlock()

	if adapter == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	snapshot, err := o.runProbe(ctx, adapter, serverID)
	if generation != o.generation.Load() {
		// Adapter was replaced mid-probe; this result is stale.
		return
	}

	o.mu.Lock()
	o.everProbed = true
	if err != nil {
		o.healthy = false
		o.reachable = false
		o.statusText = "UNREACHABLE"
	} else {
		o.healthy = true
		o.reachable = true
		o.serverID = snapshot.id
		o.serverName = snapshot.name
		o.stats = snapshot.stats
		o.statusText = snapshot.status.String()
	}
	o.mu.Unlock()

	o.publish()
}

type probeResult struct {
	id     string
	name   string
	stats  domain.ServerStats
	status domain.ServerStatus
}

func (o *Orchestrator) runProbe(ctx context.Context, adapter Adapter, serverID string) (probeResult, error) {
	servers, err := adapter.ListServers(ctx)
	if err != nil {
		return probeResult{}, err
	}
	if len(servers) == 0 {
		return probeResult{}, errors.New("no servers exposed by control endpoint")
	}

	// Resolve the current server lazily: first of the fleet when unset.
	current := servers[0]
	if serverID != "" {
		for _, handle := range servers {
			if handle.ID == serverID {
				current = handle
				break
			}
		}
	}

	stats, err := adapter.GetServerStats(ctx, current.ID)
	if err != nil {
		return probeResult{}, err
	}

	return probeResult{
		id:     current.ID,
		name:   current.Name,
		stats:  stats,
		status: current.Status,
	}, nil
}

func (o *Orchestrator) publish() {
	if o.Broadcast == nil {
		return
	}
	o.Broadcast(o.Snapshot())
}

// Snapshot returns the current polling session. During the startup grace
// window an "establishing uplink" presentation is preferred over a genuine
// unreachable state so consumers do not flash an error before the first
// probe has had a chance to complete.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	inGrace := !o.startedAt.IsZero() && time.Since(o.startedAt) < o.GraceWindow
	establishing := !o.reachable && (inGrace || !o.everProbed)

	status := o.statusText
	if establishing {
		status = "ESTABLISHING UPLINK"
	}

	return Snapshot{
		ServerID:     o.serverID,
		ServerName:   o.serverName,
		Status:       status,
		Reachable:    o.reachable,
		Establishing: establishing,
		Stats:        o.stats,
		Log:          append([]LogEntry{}, o.logEntries...),
		UpdatedAt:    time.Now(),
	}
}

// appendLog keeps only the most recent MaxLog entries.
func (o *Orchestrator) appendLog(tag, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.logEntries = append(o.logEntries, LogEntry{
		Timestamp: time.Now(),
		Tag:       tag,
		Message:   message,
	})
	if len(o.logEntries) > o.MaxLog {
		o.logEntries = o.logEntries[len(o.logEntries)-o.MaxLog:]
	}
}

// PerformAction dispatches a lifecycle action, rejecting the call while
// another action is in flight or while no adapter/server is resolved.
// After dispatch it waits a short settle delay and forces an immediate
// probe so consumers see the new state promptly.
func (o *Orchestrator) PerformAction(name string) error {
	o.mu.Lock()
	adapter := o.adapter
	serverID := o.serverID
	o.mu.Unlock()

	if adapter == nil || serverID == "" {
		return ErrNoAdapter
	}
	if !o.actionInFlight.CompareAndSwap(false, true) {
		return ErrActionInFlight
	}
	defer o.actionInFlight.Store(false)

	o.appendLog("ACTION", fmt.Sprintf("dispatching %s", name))

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	if err := adapter.ExecuteAction(ctx, serverID, name); err != nil {
		o.appendLog("ERROR", fmt.Sprintf("%s failed: %v", name, err))
		return err
	}
	o.appendLog("OK", fmt.Sprintf("%s accepted", name))

	time.Sleep(o.SettleDelay)
	o.TriggerProbe()
	return nil
}

// SendCommand forwards a console command and appends a synthetic line to
// the local log view rather than waiting for the command's output.
func (o *Orchestrator) SendCommand(command string) error {
	o.mu.Lock()
	adapter := o.adapter
	serverID := o.serverID
	o.mu.Unlock()

	if adapter == nil || serverID == "" {
		return ErrNoAdapter
	}

	o.appendLog("EXEC", fmt.Sprintf("[EXEC]: %s", command))

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	return adapter.ExecuteCommand(ctx, serverID, command)
}

// FetchConsole returns the remote console tail for direct consumers.
func (o *Orchestrator) FetchConsole(lines int) ([]string, error) {
	o.mu.Lock()
	adapter := o.adapter
	serverID := o.serverID
	o.mu.Unlock()

	if adapter == nil || serverID == "" {
		return nil, ErrNoAdapter
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	return adapter.GetConsole(ctx, serverID, lines)
}
