/******************************************************************************
 *
 *  Description :
 *
 *  The Broker aggregate: registries, router, push service and housekeeping,
 *  constructed by the process entry point and started/stopped explicitly.
 *
 *****************************************************************************/

package main

import (
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	sf "github.com/tinode/snowflake"

	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/concurrency"
	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/exec"
	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/logs"
)

// BrokerConfig carries the tunables of the broker core.
type BrokerConfig struct {
	// Close connections with no inbound traffic for this long.
	IdleTimeout time.Duration
	// Period of the statistics broadcast.
	StatsInterval time.Duration
	// Period of the defensive topic pruning.
	PruneInterval time.Duration
	// Number of worker goroutines executing handlers.
	WorkerPoolSize int
	// Number of tasks allowed to queue before submission blocks.
	WorkerQueueDepth int
	// Largest accepted inbound frame, bytes.
	MaxMessageSize int64
	// Snowflake worker id, 0..1023.
	WorkerID int
}

func (cfg *BrokerConfig) withDefaults() {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = 30 * time.Second
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = 5 * time.Minute
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = 10
	}
	if cfg.WorkerQueueDepth <= 0 {
		cfg.WorkerQueueDepth = 256
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 1 << 16
	}
}

// Broker is the real-time core: it owns the shared mutable state and the
// periodic tasks, and hands inbound traffic to the router.
type Broker struct {
	cfg BrokerConfig

	conns  *ConnectionRegistry
	subs   *SubscriptionRegistry
	push   *PushService
	router *Router
	pool   *concurrency.GoRoutinePool
	exec   exec.Executor

	clock clockwork.Clock
	idGen *sf.SnowFlake

	// Housekeeping exit knobs, one per task.
	stopStats chan struct{}
	stopPrune chan struct{}
	stopIdle  chan struct{}
}

// NewBroker wires a broker around the given Command Executor.
func NewBroker(executor exec.Executor, cfg BrokerConfig) (*Broker, error) {
	cfg.withDefaults()

	idGen, err := sf.NewSnowFlake(uint32(cfg.WorkerID))
	if err != nil {
		return nil, err
	}

	b := &Broker{
		cfg:       cfg,
		conns:     NewConnectionRegistry(),
		subs:      NewSubscriptionRegistry(),
		exec:      executor,
		clock:     clockwork.NewRealClock(),
		idGen:     idGen,
		stopStats: make(chan struct{}),
		stopPrune: make(chan struct{}),
		stopIdle:  make(chan struct{}),
	}
	b.push = newPushService(b.conns, b.subs)
	b.pool = concurrency.NewGoRoutinePool(cfg.WorkerPoolSize, cfg.WorkerQueueDepth)
	b.router = newRouter(b, b.pool)
	return b, nil
}

// Push exposes the push service to in-process collaborators.
func (b *Broker) Push() *PushService {
	return b.push
}

// Start launches the housekeeping tasks.
func (b *Broker) Start() {
	go b.statsLoop()
	go b.pruneLoop()
	go b.idleLoop()
	logs.Info.Println("broker: started, idle timeout", b.cfg.IdleTimeout,
		"workers", b.cfg.WorkerPoolSize)
}

// Stop cancels housekeeping, terminates all live connections and stops the
// worker pool. Queued handler tasks which have not started are dropped.
func (b *Broker) Stop() {
	close(b.stopStats)
	close(b.stopPrune)
	close(b.stopIdle)

	terminated := 0
	for _, c := range b.conns.BroadcastSet() {
		select {
		case c.stop <- FailReply("shutdown", "Server shutting down").serialize():
		default:
		}
		c.closeWS()
		c.cleanUp()
		terminated++
	}
	b.pool.Stop()
	logs.Info.Println("broker: stopped, connections terminated:", terminated)
}

// nextID generates a connection id.
func (b *Broker) nextID() string {
	id, err := b.idGen.Next()
	if err != nil {
		// Next fails only on clock regression; fall back to wall time.
		logs.Err.Println("broker: snowflake error:", err)
		return strconv.FormatInt(b.clock.Now().UnixNano(), 36)
	}
	return strconv.FormatUint(id, 36)
}
