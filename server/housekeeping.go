/******************************************************************************
 *
 *  Description :
 *
 *  Periodic housekeeping: statistics broadcast, defensive topic pruning and
 *  eviction of idle connections. Each task runs on its own goroutine with
 *  its own exit knob; timers come from the broker's clock so tests can step
 *  time.
 *
 *****************************************************************************/

package main

import (
	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/logs"
)

// statsLoop publishes {online_users, total_connections} to the reserved
// statistics topic.
func (b *Broker) statsLoop() {
	ticker := b.clock.NewTicker(b.cfg.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			online := b.conns.OnlineUserCount()
			total := b.conns.TotalConnectionCount()
			b.push.Statistics(online, total)
		case <-b.stopStats:
			return
		}
	}
}

// pruneLoop removes residual empty entries from the subscription index. The
// unsubscribe paths prune eagerly, so anything found here indicates a missed
// cleanup and is worth a warning.
func (b *Broker) pruneLoop() {
	ticker := b.clock.NewTicker(b.cfg.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if removed := b.subs.PruneEmpty(); removed > 0 {
				logs.Warn.Println("housekeeping: pruned", removed, "empty subscription entries")
			}
		case <-b.stopPrune:
			return
		}
	}
}

// idleLoop force-closes connections with no inbound traffic for longer than
// the idle timeout. Eviction runs the same cleanup path as a client close.
func (b *Broker) idleLoop() {
	// Check a few times per timeout window so an idle connection overstays
	// by a fraction of the window at most.
	ticker := b.clock.NewTicker(b.cfg.IdleTimeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			b.evictIdle()
		case <-b.stopIdle:
			return
		}
	}
}

// evictIdle sweeps the live set once.
func (b *Broker) evictIdle() {
	now := b.clock.Now()
	for _, c := range b.conns.BroadcastSet() {
		if c.idleFor(now) > b.cfg.IdleTimeout {
			logs.Info.Println("housekeeping: evicting idle connection", c.sid, c.remoteAddr)
			c.evict()
		}
	}
}
