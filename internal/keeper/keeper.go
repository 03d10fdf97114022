// Package keeper implements the control-plane daemon (spec.md §4.G): a
// periodic loop that synchronises backend clocks, observes liveness, and
// drives migration on join/leave. Liveness probing uses
// internal/healthcheck's GRPCChecker with a per-probe timeout.
package keeper

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/neogan74/tribbler/internal/audit"
	"github.com/neogan74/tribbler/internal/healthcheck"
	"github.com/neogan74/tribbler/internal/logger"
	"github.com/neogan74/tribbler/internal/metrics"
	"github.com/neogan74/tribbler/internal/migration"
	"github.com/neogan74/tribbler/internal/replicated"
	"github.com/neogan74/tribbler/internal/router"
)

// TickInterval is the keeper's clock-sync/liveness cadence (spec.md §4.G).
const TickInterval = 1 * time.Second

// Backend describes one configured backend to probe.
type Backend struct {
	ID         int
	HealthAddr string
}

// Keeper runs the periodic clock-sync/liveness/migration loop.
type Keeper struct {
	backends []Backend
	clients  map[int]replicated.BackendClient
	router   *router.Router
	engine   *migration.Engine
	checker  *healthcheck.GRPCChecker
	auditor  *audit.Manager
	log      logger.Logger

	mu   sync.Mutex
	live map[int]bool

	events chan migration.BackendEvent
}

// New builds a Keeper over backends, wiring router for routing updates and
// engine for migration. clients must contain one BackendClient per
// Backend.ID. events, if non-nil, receives every Join/Leave transition;
// an event that finds the channel full is dropped and logged, so the
// keeper loop never blocks on it.
func New(backends []Backend, clients map[int]replicated.BackendClient, r *router.Router, engine *migration.Engine, auditor *audit.Manager, log logger.Logger, events chan migration.BackendEvent) *Keeper {
	return &Keeper{
		backends: backends,
		clients:  clients,
		router:   r,
		engine:   engine,
		checker:  healthcheck.NewGRPCChecker(),
		auditor:  auditor,
		log:      log,
		live:     make(map[int]bool),
		events:   events,
	}
}

// Run loops at TickInterval until ctx is cancelled, finishing the current
// tick before returning (spec.md §5 cancellation).
func (k *Keeper) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	k.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.tick(ctx)
		}
	}
}

func (k *Keeper) tick(ctx context.Context) {
	oldLive := k.snapshotLive()

	liveNow, maxClock := k.probeAll(ctx)
	metrics.KeeperMaxClock.Set(float64(maxClock))

	for id, client := range k.clients {
		if !liveNow[id] {
			continue
		}
		if _, err := client.Clock(ctx, maxClock); err != nil {
			k.log.Warn("keeper: clock sync failed", logger.String("backend", backendLabel(id)), logger.Error(err))
		}
	}

	newLive := sortedKeys(liveNow)
	metrics.KeeperLiveBackends.Set(float64(len(newLive)))
	k.router.Update(newLive)

	k.mu.Lock()
	prevLive := k.live
	k.live = liveNow
	k.mu.Unlock()

	for id := range liveNow {
		if !prevLive[id] {
			k.onJoin(ctx, id, oldLive, newLive)
		}
	}
	for id := range prevLive {
		if !liveNow[id] {
			k.onLeave(ctx, id, oldLive, newLive)
		}
	}
}

func (k *Keeper) snapshotLive() []int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return sortedKeys(k.live)
}

// probeAll probes every backend's clock(0) in parallel, returning the set
// of backends that answered and the maximum clock observed (spec.md
// §4.G steps 1-2).
func (k *Keeper) probeAll(ctx context.Context) (map[int]bool, uint64) {
	type result struct {
		id    int
		clock uint64
		alive bool
	}

	results := make(chan result, len(k.backends))
	var wg sync.WaitGroup
	for _, b := range k.backends {
		b := b
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			alive, clock := k.probeOne(ctx, b)
			metrics.KeeperProbeDuration.WithLabelValues(backendLabel(b.ID)).Observe(time.Since(start).Seconds())
			results <- result{id: b.ID, clock: clock, alive: alive}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	live := make(map[int]bool)
	var maxClock uint64
	for r := range results {
		if !r.alive {
			continue
		}
		live[r.id] = true
		if r.clock > maxClock {
			maxClock = r.clock
		}
	}
	return live, maxClock
}

func (k *Keeper) probeOne(ctx context.Context, b Backend) (alive bool, clock uint64) {
	if b.HealthAddr != "" {
		status, _, err := k.checker.Check(ctx, &healthcheck.Check{GRPC: b.HealthAddr, Timeout: TickInterval})
		if err != nil || status != healthcheck.StatusPassing {
			return false, 0
		}
	}
	client, ok := k.clients[b.ID]
	if !ok {
		return false, 0
	}
	c, err := client.Clock(ctx, 0)
	if err != nil {
		return false, 0
	}
	return true, c
}

func (k *Keeper) onJoin(ctx context.Context, id int, oldLive, newLive []int) {
	k.log.Info("keeper: backend joined", logger.String("backend", backendLabel(id)))
	metrics.KeeperTransitionsTotal.WithLabelValues("join").Inc()
	k.recordAudit(ctx, "backend_joined", id)
	k.emit(migration.BackendEvent{Type: migration.Join, ID: id})
	if k.engine != nil {
		k.engine.HandleJoin(ctx, id, oldLive, newLive)
	}
}

func (k *Keeper) onLeave(ctx context.Context, id int, oldLive, newLive []int) {
	k.log.Info("keeper: backend left", logger.String("backend", backendLabel(id)))
	metrics.KeeperTransitionsTotal.WithLabelValues("leave").Inc()
	k.recordAudit(ctx, "backend_left", id)
	k.emit(migration.BackendEvent{Type: migration.Leave, ID: id})
	if k.engine != nil {
		k.engine.HandleLeave(ctx, id, oldLive, newLive)
	}
}

func (k *Keeper) emit(ev migration.BackendEvent) {
	if k.events == nil {
		return
	}
	select {
	case k.events <- ev:
	default:
		k.log.Warn("keeper: event channel full, dropping transition", logger.String("backend", backendLabel(ev.ID)))
	}
}

func (k *Keeper) recordAudit(ctx context.Context, action string, id int) {
	if k.auditor == nil || !k.auditor.Enabled() {
		return
	}
	_, err := k.auditor.Record(ctx, &audit.Event{
		Action: action,
		Result: "observed",
		Resource: audit.Resource{
			Type: "backend",
			ID:   backendLabel(id),
		},
		Actor: audit.Actor{Type: "service", Name: "keeper"},
	})
	if err != nil {
		k.log.Warn("keeper: failed to record audit event", logger.Error(err))
	}
}

func sortedKeys(m map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func backendLabel(id int) string {
	return "backend-" + strconv.Itoa(id)
}
