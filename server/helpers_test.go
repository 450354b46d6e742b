package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/exec"
)

// newTestBroker builds a broker around the given executor with a fake clock
// and a small worker pool. Housekeeping is not started.
func newTestBroker(t *testing.T, executor exec.Executor) (*Broker, *clockwork.FakeClock) {
	t.Helper()
	b, err := NewBroker(executor, BrokerConfig{
		IdleTimeout:      60 * time.Second,
		StatsInterval:    30 * time.Second,
		PruneInterval:    5 * time.Minute,
		WorkerPoolSize:   2,
		WorkerQueueDepth: 16,
	})
	if err != nil {
		t.Fatal(err)
	}
	clock := clockwork.NewFakeClock()
	b.clock = clock
	return b, clock
}

// newTestConn creates a connection without a websocket; replies accumulate
// in the send channel.
func newTestConn(b *Broker) *Connection {
	c := &Connection{
		sid:    b.nextID(),
		broker: b,
		send:   make(chan any, 32),
		stop:   make(chan any, 1),
	}
	c.touch()
	b.conns.Add(c)
	return c
}

// authAs marks the connection authenticated and registers it, bypassing the
// auth handler.
func authAs(b *Broker, c *Connection, userID int64, username string) {
	c.setIdentity(userID, username, "user")
}

// readReply waits for the next outbound envelope of the connection.
func readReply(t *testing.T, c *Connection) *ServerResponse {
	t.Helper()
	select {
	case msg := <-c.send:
		switch v := msg.(type) {
		case []byte:
			var resp ServerResponse
			if err := json.Unmarshal(v, &resp); err != nil {
				t.Fatalf("unparsable outbound envelope: %v", err)
			}
			return &resp
		case *ServerResponse:
			return v
		default:
			t.Fatalf("unexpected outbound element %T", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an outbound envelope")
	}
	return nil
}

// expectNoReply asserts nothing is delivered to the connection.
func expectNoReply(t *testing.T, c *Connection) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected outbound message: %v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

// dataField decodes the "data" payload of an envelope into a map.
func dataField(t *testing.T, resp *ServerResponse) map[string]any {
	t.Helper()
	if resp.Data == nil {
		t.Fatal("envelope has no data payload")
	}
	var m map[string]any
	if err := json.Unmarshal(resp.Data, &m); err != nil {
		t.Fatalf("unparsable data payload: %v", err)
	}
	return m
}
