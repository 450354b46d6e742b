/******************************************************************************
 *
 *  Description :
 *
 *    Handler of websocket connections: handshake upgrade, per-connection
 *    read and write loops, keepalive pings.
 *
 *****************************************************************************/

package main

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/logs"
)

// Time allowed to write a message to the peer.
const writeWait = 10 * time.Second

func (c *Connection) closeWS() {
	if c.ws != nil {
		c.ws.Close()
	}
}

func (c *Connection) readLoop() {
	defer func() {
		c.closeWS()
		c.cleanUp()
	}()

	// The read deadline is refreshed by pongs; eviction of connections which
	// send no application traffic is handled by housekeeping.
	pongWait := c.broker.cfg.IdleTimeout * 2
	c.ws.SetReadLimit(c.broker.cfg.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				logs.Err.Println("ws: readLoop", c.sid, err)
			}
			return
		}
		c.broker.router.dispatchRaw(c, raw)
	}
}

func (c *Connection) sendMessage(msg any) bool {
	if len(c.send) > sendQueueLimit {
		logs.Err.Println("ws: outbound queue limit exceeded", c.sid)
		return false
	}

	statsMessagesOut.Inc()
	if err := wsWrite(c.ws, websocket.TextMessage, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			logs.Err.Println("ws: writeLoop", c.sid, err)
		}
		return false
	}
	return true
}

func (c *Connection) writeLoop() {
	pingPeriod := c.broker.cfg.IdleTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		// Break readLoop.
		c.closeWS()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				// Channel closed.
				return
			}
			switch v := msg.(type) {
			case *ServerResponse:
				if !c.sendMessage(v.serialize()) {
					return
				}
			default: // pre-serialized message
				if !c.sendMessage(v) {
					return
				}
			}

		case msg := <-c.stop:
			// Termination requested. Don't care if the message is delivered.
			if msg != nil {
				wsWrite(c.ws, websocket.TextMessage, msg)
			}
			return

		case <-ticker.C:
			if err := wsWrite(c.ws, websocket.PingMessage, nil); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
					websocket.CloseNormalClosure) {
					logs.Err.Println("ws: writeLoop ping", c.sid, err)
				}
				return
			}
		}
	}
}

// Writes a message with the given message type (mt) and payload.
func wsWrite(ws *websocket.Conn, mt int, msg any) error {
	var bits []byte
	if msg != nil {
		bits = msg.([]byte)
	} else {
		bits = []byte{}
	}
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteMessage(mt, bits)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Storefront clients connect from file:// and packaged apps.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// serveWebSocket handles websocket handshake requests from clients.
func (b *Broker) serveWebSocket(wrt http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		wrt.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ws, err := upgrader.Upgrade(wrt, req, nil)
	if _, ok := err.(websocket.HandshakeError); ok {
		logs.Err.Println("ws: not a websocket handshake")
		return
	} else if err != nil {
		logs.Err.Println("ws: failed to upgrade:", err)
		return
	}

	c := b.newConnection(ws, req.RemoteAddr)
	b.conns.Add(c)
	statsLiveConnections.Inc()

	logs.Info.Println("ws: connection started", c.sid, c.remoteAddr)
	c.queueOut(WelcomeReply())

	// Do work in goroutines to return from serveWebSocket() to release file
	// pointers. Otherwise "too many open files" will happen.
	go c.writeLoop()
	go c.readLoop()
}
