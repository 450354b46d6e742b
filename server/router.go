/******************************************************************************
 *
 *  Description :
 *
 *  Routing of inbound envelopes: parsing, authentication gating and
 *  dispatch of handlers onto the shared worker pool.
 *
 *****************************************************************************/

package main

import (
	"github.com/google/uuid"

	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/concurrency"
	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/logs"
)

// Message types which require no prior authentication.
var publicTypes = map[string]struct{}{
	"auth":     {},
	"ping":     {},
	"register": {},
}

type handlerFunc func(*Connection, *ClientRequest) *ServerResponse

// Router parses inbound envelopes and runs their handlers on a bounded
// worker pool. Requests from one connection are dispatched independently:
// responses may complete out of submission order.
type Router struct {
	broker *Broker
	pool   *concurrency.GoRoutinePool

	// Handlers the broker implements itself, keyed by message type.
	native map[string]handlerFunc

	// Message types forwarded verbatim to the Command Executor.
	delegated map[string]struct{}
}

func newRouter(b *Broker, pool *concurrency.GoRoutinePool) *Router {
	rt := &Router{
		broker:    b,
		pool:      pool,
		delegated: make(map[string]struct{}),
	}
	rt.native = map[string]handlerFunc{
		"auth":              rt.auth,
		"ping":              rt.ping,
		"subscribe":         rt.subscribe,
		"unsubscribe":       rt.unsubscribe,
		"get_subscriptions": rt.getSubscriptions,
	}
	for _, msgType := range []string{
		"register",
		"get_products",
		"search_products",
		"add_to_cart",
		"get_cart",
		"remove_from_cart",
		"create_order",
		"get_user_orders",
		"get_order_detail",
		"process_payment",
		"get_user_addresses",
		"add_address",
	} {
		rt.delegated[msgType] = struct{}{}
	}
	return rt
}

// dispatchRaw parses raw bytes and dispatches the request. Malformed frames
// are answered immediately without touching the worker pool.
func (rt *Router) dispatchRaw(c *Connection, raw []byte) {
	c.touch()
	statsMessagesIn.Inc()

	toLog := raw
	truncated := ""
	if len(raw) > 512 {
		toLog = raw[:512]
		truncated = "<...>"
	}

	req, err := parseClientRequest(raw)
	if err != nil {
		statsMalformedTotal.Inc()
		logs.Warn.Printf("router: malformed frame '%s%s' ip='%s' sid='%s': %v",
			toLog, truncated, c.remoteAddr, c.sid, err)
		c.queueOut(ErrMalformedReply())
		return
	}
	req.trace = uuid.NewString()[:8]
	logs.Info.Printf("in: '%s%s' ip='%s' sid='%s' trace='%s'", toLog, truncated, c.remoteAddr, c.sid, req.trace)

	rt.dispatch(c, req)
}

// dispatch gates on authentication and submits the handler to the pool.
func (rt *Router) dispatch(c *Connection, req *ClientRequest) {
	if _, public := publicTypes[req.Type]; !public && !c.isAuthenticated() {
		c.queueOut(ErrAuthRequiredReply(req.Type))
		return
	}

	handler := rt.native[req.Type]
	if handler == nil {
		if _, ok := rt.delegated[req.Type]; ok {
			handler = rt.forward
		} else {
			logs.Warn.Println("router: unknown message type", req.Type, "sid:", c.sid)
			c.queueOut(ErrUnknownTypeReply(req.Type))
			return
		}
	}

	// Blocks when the pool and its queue are saturated: backpressure on the
	// connection's read loop.
	rt.pool.Schedule(func() {
		rt.invoke(c, req, handler)
	})
}

// invoke runs one handler and delivers its reply. A panicking handler is
// converted into a generic failure reply; the connection stays open.
func (rt *Router) invoke(c *Connection, req *ClientRequest, handler handlerFunc) {
	defer func() {
		if r := recover(); r != nil {
			logs.Err.Println("router: handler panic:", req.Type, "trace:", req.trace, "cause:", r)
			c.queueOut(ErrInternalReply(req.Type))
		}
	}()

	if resp := handler(c, req); resp != nil {
		c.queueOut(resp)
	}
}
