/******************************************************************************
 *
 *  Description :
 *
 *  Handlers of the broker-native message types plus the pass-through to the
 *  Command Executor for business commands.
 *
 *****************************************************************************/

package main

import (
	"context"
	"encoding/json"

	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/exec"
	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/logs"
)

// auth validates credentials through the Command Executor and, on success,
// attaches the identity and registers the connection under its user.
// Re-authentication of an authenticated connection is rejected.
func (rt *Router) auth(c *Connection, req *ClientRequest) *ServerResponse {
	if c.isAuthenticated() {
		return ErrAlreadyAuthenticatedReply()
	}

	username := req.String("username")
	password := req.String("password")
	if username == "" || password == "" {
		return FailReply("auth", "Missing username or password")
	}

	res, err := rt.broker.exec.Execute(context.Background(), exec.CmdLogin,
		map[string]any{"username": username, "password": password})
	if err != nil {
		logs.Err.Println("auth: executor error:", err, "trace:", req.trace)
		return FailReply("auth", "Authentication error")
	}
	if !res.Success {
		statsAuthFailures.Inc()
		return FailReply("auth", "Authentication failed")
	}

	var login exec.LoginData
	if err = json.Unmarshal(res.Data, &login); err != nil || login.UserID == 0 {
		logs.Err.Println("auth: unusable login payload, trace:", req.trace)
		return FailReply("auth", "Authentication error")
	}
	role := login.UserInfo.Role
	if role == "" {
		role = "user"
	}

	if !c.setIdentity(login.UserID, username, role) {
		if c.isClosed() {
			// Transport went away while the login was in flight.
			logs.Info.Println("auth: connection closed mid-login, sid", c.sid, "trace:", req.trace)
			return nil
		}
		// Lost the race against a concurrent auth on the same connection.
		return ErrAlreadyAuthenticatedReply()
	}

	logs.Info.Println("auth: user", username, "id", login.UserID, "role", role, "sid", c.sid)
	return OkReply("auth", "Authentication successful", map[string]any{
		"user_id":  login.UserID,
		"username": username,
		"role":     role,
	})
}

// ping answers with a pong carrying the server time.
func (rt *Router) ping(c *Connection, req *ClientRequest) *ServerResponse {
	return OkReply("pong", "pong", map[string]any{"timestamp": timeNowMillis()})
}

// subscribe adds the connection's user to a topic.
func (rt *Router) subscribe(c *Connection, req *ClientRequest) *ServerResponse {
	topic := req.String("topic")
	if topic == "" {
		return FailReply("subscribe", "Missing topic")
	}
	userID, _, _, _ := c.identity()
	rt.broker.subs.Subscribe(userID, topic)
	logs.Info.Println("subscribe: user", userID, "topic", topic)
	return OkReply("subscribe", "Subscribed to "+topic, map[string]any{"topic": topic})
}

// unsubscribe removes the connection's user from a topic.
func (rt *Router) unsubscribe(c *Connection, req *ClientRequest) *ServerResponse {
	topic := req.String("topic")
	if topic == "" {
		return FailReply("unsubscribe", "Missing topic")
	}
	userID, _, _, _ := c.identity()
	rt.broker.subs.Unsubscribe(userID, topic)
	logs.Info.Println("unsubscribe: user", userID, "topic", topic)
	return OkReply("unsubscribe", "Unsubscribed from "+topic, map[string]any{"topic": topic})
}

// getSubscriptions lists the topics the connection's user is subscribed to.
func (rt *Router) getSubscriptions(c *Connection, req *ClientRequest) *ServerResponse {
	userID, _, _, _ := c.identity()
	topics := rt.broker.subs.TopicsOf(userID)
	if topics == nil {
		topics = []string{}
	}
	return OkReply("get_subscriptions", "Subscriptions retrieved", map[string]any{"topics": topics})
}

// forward passes a business command to the Command Executor verbatim, with
// the authenticated user id injected into the parameters.
func (rt *Router) forward(c *Connection, req *ClientRequest) *ServerResponse {
	params := req.Params
	if params == nil {
		params = map[string]any{}
	}
	if userID, _, _, ok := c.identity(); ok && req.Type != exec.CmdRegister {
		params["user_id"] = userID
	}

	res, err := rt.broker.exec.Execute(context.Background(), req.Type, params)
	if err != nil {
		logs.Err.Println("forward:", req.Type, "executor error:", err, "trace:", req.trace)
		return FailReply(req.Type, "Service temporarily unavailable")
	}

	return &ServerResponse{
		Type:      req.Type,
		Success:   res.Success,
		Message:   res.Message,
		Timestamp: timeNowMillis(),
		Data:      res.Data,
	}
}
