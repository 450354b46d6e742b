package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushToUserAllDevices(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	c1 := newTestConn(b)
	c2 := newTestConn(b)
	authAs(b, c1, 7, "alice")
	authAs(b, c2, 7, "alice")
	other := newTestConn(b)
	authAs(b, other, 8, "bob")

	delivered := b.push.PushToUser(7, pushEnvelope("test_push", "hello", nil))
	assert.Equal(t, 2, delivered)

	for _, c := range []*Connection{c1, c2} {
		resp := readReply(t, c)
		assert.Equal(t, "test_push", resp.Type)
		assert.True(t, resp.Success)
		assert.Equal(t, "hello", resp.Message)
	}
	expectNoReply(t, other)
}

func TestPushToUserOffline(t *testing.T) {
	b, _ := newTestBroker(t, nil)

	delivered := b.push.PushToUser(99, pushEnvelope("test_push", "hello", nil))
	assert.Equal(t, 0, delivered)
}

func TestPushToTopicReachesSubscribersOnce(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	sub := newTestConn(b)
	authAs(b, sub, 7, "alice")
	nonSub := newTestConn(b)
	authAs(b, nonSub, 8, "bob")

	b.subs.Subscribe(7, "stock_updates")
	// Subscribing to other topics must not duplicate delivery.
	b.subs.Subscribe(7, "promotions")

	b.push.StockUpdate(11, 5)

	resp := readReply(t, sub)
	assert.Equal(t, "stock_update", resp.Type)
	data := dataField(t, resp)
	assert.Equal(t, float64(11), data["product_id"])
	assert.Equal(t, float64(5), data["stock"])

	expectNoReply(t, sub)
	expectNoReply(t, nonSub)
}

func TestPushToTopicExcludesUser(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	originator := newTestConn(b)
	authAs(b, originator, 7, "alice")
	observer := newTestConn(b)
	authAs(b, observer, 8, "bob")

	b.subs.Subscribe(7, "price_updates")
	b.subs.Subscribe(8, "price_updates")

	delivered := b.push.PushToTopic("price_updates",
		pushEnvelope("price_update", "Price updated", nil), 7)
	assert.Equal(t, 1, delivered)

	readReply(t, observer)
	expectNoReply(t, originator)
}

func TestPushToTopicNoSubscribers(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	c := newTestConn(b)
	authAs(b, c, 7, "alice")

	delivered := b.push.PushToTopic("promotions",
		pushEnvelope("promotion_notification", "sale", nil), 0)
	assert.Equal(t, 0, delivered)
	expectNoReply(t, c)
}

func TestBroadcastIncludesUnauthenticated(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	authed := newTestConn(b)
	authAs(b, authed, 7, "alice")
	anonymous := newTestConn(b)

	b.push.SystemNotice("Maintenance", "Back at noon", "warning", nil)

	for _, c := range []*Connection{authed, anonymous} {
		resp := readReply(t, c)
		assert.Equal(t, "system_notification", resp.Type)
		data := dataField(t, resp)
		assert.Equal(t, "Back at noon", data["content"])
		assert.Equal(t, "warning", data["level"])
	}
}

func TestSystemNoticeTargetedUsers(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	target := newTestConn(b)
	authAs(b, target, 7, "alice")
	bystander := newTestConn(b)
	authAs(b, bystander, 8, "bob")

	b.push.SystemNotice("Hello", "Just you", "info", []int64{7})

	resp := readReply(t, target)
	assert.Equal(t, "system_notification", resp.Type)
	expectNoReply(t, bystander)
}

func TestOrderStatusReachesAllUserDevices(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	phone := newTestConn(b)
	laptop := newTestConn(b)
	authAs(b, phone, 7, "alice")
	authAs(b, laptop, 7, "alice")

	b.push.OrderStatus(7, 1001, "shipped", "Your order is on the way")

	for _, c := range []*Connection{phone, laptop} {
		resp := readReply(t, c)
		require.Equal(t, "order_status_update", resp.Type)
		data := dataField(t, resp)
		assert.Equal(t, float64(1001), data["order_id"])
		assert.Equal(t, "shipped", data["status"])
	}
}

func TestPushAfterDeviceClose(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	phone := newTestConn(b)
	laptop := newTestConn(b)
	authAs(b, phone, 7, "alice")
	authAs(b, laptop, 7, "alice")
	b.subs.Subscribe(7, "promotions")

	phone.cleanUp()

	// The surviving device still receives topic pushes.
	b.push.Promotion(5, "Summer sale", "Half price", 0, 0)
	resp := readReply(t, laptop)
	assert.Equal(t, "promotion_notification", resp.Type)
	expectNoReply(t, phone)
}
