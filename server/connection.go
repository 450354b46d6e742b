/******************************************************************************
 *
 *  Description :
 *
 *  Per-connection state. One user may have multiple live connections, one
 *  per device. A connection starts unauthenticated and may become
 *  authenticated at most once.
 *
 *****************************************************************************/

package main

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/logs"
)

// If the send queue grows beyond this, the connection is considered too slow
// and outbound messages are dropped.
const sendQueueLimit = 128

// Connection is one live duplex channel to a client device.
type Connection struct {
	// Connection id, unique per process lifetime.
	sid string

	// Underlying websocket. Nil in unit tests which drive queueOut directly.
	ws *websocket.Conn

	// IP address of the client.
	remoteAddr string

	// Owning broker.
	broker *Broker

	// Outbound messages, buffered. Elements are *ServerResponse or
	// pre-serialized []byte.
	send chan any

	// Channel for terminating the connection from the writer side, buffer 1.
	stop chan any

	// Authentication state. Guarded by lock, never mutated after the
	// unauthenticated->authenticated transition. closed is set by cleanUp
	// and blocks any later transition.
	lock          sync.Mutex
	authenticated bool
	closed        bool
	userID        int64
	username      string
	role          string

	// Time of the last inbound frame, unix nanoseconds.
	lastAction atomic.Int64

	// Guarantees exactly-once cleanup: both the read loop and the idle
	// evictor may race to tear the connection down.
	cleanOnce sync.Once
}

func (b *Broker) newConnection(ws *websocket.Conn, remoteAddr string) *Connection {
	c := &Connection{
		sid:        b.nextID(),
		ws:         ws,
		remoteAddr: remoteAddr,
		broker:     b,
		send:       make(chan any, 256),
		stop:       make(chan any, 1),
	}
	c.touch()
	return c
}

// touch records inbound activity for idle tracking.
func (c *Connection) touch() {
	c.lastAction.Store(c.broker.clock.Now().UnixNano())
}

// idleFor reports how long the connection has been without inbound traffic.
func (c *Connection) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastAction.Load()))
}

// identity returns the attached user identity. ok is false before a
// successful auth.
func (c *Connection) identity() (userID int64, username, role string, ok bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.userID, c.username, c.role, c.authenticated
}

func (c *Connection) isAuthenticated() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.authenticated
}

func (c *Connection) isClosed() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.closed
}

// setIdentity performs the unauthenticated->authenticated transition and
// registers the connection under its user. Returns false, leaving the
// registries untouched, if the connection is already authenticated or was
// already torn down. Registration happens under the connection lock so it
// cannot interleave with cleanUp.
func (c *Connection) setIdentity(userID int64, username, role string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.authenticated || c.closed {
		return false
	}
	c.authenticated = true
	c.userID = userID
	c.username = username
	c.role = role
	c.broker.conns.Register(userID, c)
	return true
}

// queueOut attempts to send a response to the connection. Fire and forget:
// if the send buffer stays full for 50 usec the message is dropped.
func (c *Connection) queueOut(resp *ServerResponse) bool {
	if c == nil || resp == nil {
		return true
	}
	return c.queueOutBytes(resp.serialize())
}

// queueOutBytes attempts to send an already serialized response.
func (c *Connection) queueOutBytes(data []byte) bool {
	if c == nil {
		return true
	}
	select {
	case c.send <- data:
		return true
	case <-time.After(time.Microsecond * 50):
		logs.Warn.Println("conn: queueOut timeout", c.sid)
		return false
	}
}

// cleanUp runs the exactly-once teardown: the connection is marked closed,
// then removed from the global live set and the user's connection set; when
// this was the user's last connection its subscriptions are cleared. The
// closed flag and the registry removal are applied under one lock, so a
// login completing after teardown cannot re-register the connection.
func (c *Connection) cleanUp() {
	c.cleanOnce.Do(func() {
		c.lock.Lock()
		c.closed = true
		userID, username, authenticated := c.userID, c.username, c.authenticated
		remaining := c.broker.conns.Remove(userID, c)
		c.lock.Unlock()
		if authenticated && remaining == 0 {
			c.broker.subs.ClearUser(userID)
		}
		statsLiveConnections.Dec()
		if authenticated {
			logs.Info.Println("conn: closed", c.sid, "user", username, "remaining", remaining)
		} else {
			logs.Info.Println("conn: closed", c.sid)
		}
	})
}

// evict forcibly closes an idle connection. Closing the websocket breaks the
// read loop; cleanUp is also called directly so registries do not report the
// connection as live for another housekeeping cycle.
func (c *Connection) evict() {
	c.closeWS()
	c.cleanUp()
	statsEvictedTotal.Inc()
}
