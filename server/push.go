/******************************************************************************
 *
 *  Description :
 *
 *  Push service: delivery of asynchronous notifications to targeted users,
 *  topic subscribers or every live connection. All sends are best-effort
 *  and fire-and-forget; a message to an offline target is silently lost.
 *
 *****************************************************************************/

package main

import (
	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/logs"
)

// PushService is the API business-logic collaborators use to reach clients.
type PushService struct {
	conns *ConnectionRegistry
	subs  *SubscriptionRegistry
}

func newPushService(conns *ConnectionRegistry, subs *SubscriptionRegistry) *PushService {
	return &PushService{conns: conns, subs: subs}
}

// pushEnvelope builds the outbound envelope for a notification.
func pushEnvelope(msgType, message string, payload any) *ServerResponse {
	return OkReply(msgType, message, payload)
}

// PushToUser delivers the envelope to every live connection of the user.
// No-op if the user is offline. Returns the number of connections reached.
func (p *PushService) PushToUser(userID int64, resp *ServerResponse) int {
	targets := p.conns.ConnectionsOf(userID)
	if len(targets) == 0 {
		return 0
	}
	data := resp.serialize()
	var delivered int
	for _, c := range targets {
		if c.queueOutBytes(data) {
			delivered++
		}
	}
	statsPushDelivered.Add(float64(delivered))
	return delivered
}

// PushToTopic fans the envelope out to every connection of every subscriber
// of the topic. excludeUserID, when non-zero, names one user to skip, e.g.
// the originator of the event.
func (p *PushService) PushToTopic(topic string, resp *ServerResponse, excludeUserID int64) int {
	subscribers := p.subs.SubscribersOf(topic)
	if len(subscribers) == 0 {
		return 0
	}
	data := resp.serialize()
	var delivered int
	for _, userID := range subscribers {
		if excludeUserID != 0 && userID == excludeUserID {
			continue
		}
		for _, c := range p.conns.ConnectionsOf(userID) {
			if c.queueOutBytes(data) {
				delivered++
			}
		}
	}
	statsPushDelivered.Add(float64(delivered))
	logs.Info.Println("push: topic", topic, "reached", delivered, "connections")
	return delivered
}

// Broadcast delivers the envelope to every live connection regardless of
// authentication or subscriptions.
func (p *PushService) Broadcast(resp *ServerResponse) int {
	data := resp.serialize()
	var delivered int
	for _, c := range p.conns.BroadcastSet() {
		if c.queueOutBytes(data) {
			delivered++
		}
	}
	statsPushDelivered.Add(float64(delivered))
	return delivered
}

// OrderStatus notifies a user that one of their orders changed state.
func (p *PushService) OrderStatus(userID, orderID int64, status, message string) {
	p.PushToUser(userID, pushEnvelope("order_status_update", "Order status updated", map[string]any{
		"order_id": orderID,
		"status":   status,
		"message":  message,
	}))
}

// StockUpdate publishes a stock change to the stock_updates topic.
func (p *PushService) StockUpdate(productID int64, stock int) {
	p.PushToTopic("stock_updates", pushEnvelope("stock_update", "Stock updated", map[string]any{
		"product_id": productID,
		"stock":      stock,
	}), 0)
}

// PriceUpdate publishes a price change to the price_updates topic.
func (p *PushService) PriceUpdate(productID int64, price float64) {
	p.PushToTopic("price_updates", pushEnvelope("price_update", "Price updated", map[string]any{
		"product_id": productID,
		"price":      price,
	}), 0)
}

// Promotion publishes a promotion announcement to the promotions topic.
func (p *PushService) Promotion(promotionID int64, title, description string, startTime, endTime int64) {
	p.PushToTopic("promotions", pushEnvelope("promotion_notification", title, map[string]any{
		"promotion_id": promotionID,
		"title":        title,
		"description":  description,
		"start_time":   startTime,
		"end_time":     endTime,
	}), 0)
}

// SystemNotice delivers a system notification to the listed users, or
// broadcasts it when targetUsers is nil.
func (p *PushService) SystemNotice(title, content, level string, targetUsers []int64) {
	resp := pushEnvelope("system_notification", title, map[string]any{
		"title":   title,
		"content": content,
		"level":   level,
	})
	if targetUsers == nil {
		p.Broadcast(resp)
		return
	}
	for _, userID := range targetUsers {
		p.PushToUser(userID, resp)
	}
}

// CustomerService delivers a customer-service chat message to a user.
func (p *PushService) CustomerService(userID int64, fromAdmin bool, message string) {
	p.PushToUser(userID, pushEnvelope("customer_service", "Customer service message", map[string]any{
		"from_admin": fromAdmin,
		"message":    message,
	}))
}

// Statistics publishes the periodic online counters to the statistics topic.
func (p *PushService) Statistics(onlineUsers, totalConnections int) {
	p.PushToTopic("statistics", pushEnvelope("statistics", "Server statistics", map[string]any{
		"online_users":      onlineUsers,
		"total_connections": totalConnections,
	}), 0)
}
