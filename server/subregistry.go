/******************************************************************************
 *
 *  Description :
 *
 *  Registry of topic subscriptions: the dual index topic -> user ids and
 *  user id -> topics. The two maps are always exact inverses; an index side
 *  left empty is removed rather than retained.
 *
 *****************************************************************************/

package main

import (
	"sync"
)

// SubscriptionRegistry maintains the many-to-many relation between users and
// push topics.
type SubscriptionRegistry struct {
	lock sync.Mutex

	// Topics indexed by subscriber.
	userTopics map[int64]map[string]struct{}

	// Subscribers indexed by topic.
	topicUsers map[string]map[int64]struct{}
}

// NewSubscriptionRegistry initializes a subscription registry.
func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{
		userTopics: make(map[int64]map[string]struct{}),
		topicUsers: make(map[string]map[int64]struct{}),
	}
}

// Subscribe adds the (user, topic) relation to both indexes. Idempotent.
func (r *SubscriptionRegistry) Subscribe(userID int64, topic string) {
	if userID == 0 || topic == "" {
		return
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	topics := r.userTopics[userID]
	if topics == nil {
		topics = make(map[string]struct{})
		r.userTopics[userID] = topics
	}
	topics[topic] = struct{}{}

	users := r.topicUsers[topic]
	if users == nil {
		users = make(map[int64]struct{})
		r.topicUsers[topic] = users
	}
	users[userID] = struct{}{}
}

// Unsubscribe removes the (user, topic) relation from both indexes, pruning
// either side if it becomes empty. Idempotent.
func (r *SubscriptionRegistry) Unsubscribe(userID int64, topic string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.unsubscribeLocked(userID, topic)
}

func (r *SubscriptionRegistry) unsubscribeLocked(userID int64, topic string) {
	if topics := r.userTopics[userID]; topics != nil {
		delete(topics, topic)
		if len(topics) == 0 {
			delete(r.userTopics, userID)
		}
	}
	if users := r.topicUsers[topic]; users != nil {
		delete(users, userID)
		if len(users) == 0 {
			delete(r.topicUsers, topic)
		}
	}
}

// ClearUser removes the user from every topic it is subscribed to. Safe to
// call for a user with no subscriptions.
func (r *SubscriptionRegistry) ClearUser(userID int64) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for topic := range r.userTopics[userID] {
		r.unsubscribeLocked(userID, topic)
	}
}

// SubscribersOf returns a snapshot of the topic's subscribers.
func (r *SubscriptionRegistry) SubscribersOf(topic string) []int64 {
	r.lock.Lock()
	defer r.lock.Unlock()

	users := r.topicUsers[topic]
	if len(users) == 0 {
		return nil
	}
	subscribers := make([]int64, 0, len(users))
	for userID := range users {
		subscribers = append(subscribers, userID)
	}
	return subscribers
}

// TopicsOf returns a snapshot of the user's subscriptions.
func (r *SubscriptionRegistry) TopicsOf(userID int64) []string {
	r.lock.Lock()
	defer r.lock.Unlock()

	subs := r.userTopics[userID]
	if len(subs) == 0 {
		return nil
	}
	topics := make([]string, 0, len(subs))
	for topic := range subs {
		topics = append(topics, topic)
	}
	return topics
}

// TopicCount reports the number of topics with at least one subscriber.
func (r *SubscriptionRegistry) TopicCount() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.topicUsers)
}

// PruneEmpty removes index entries whose sets are empty. The normal
// unsubscribe paths already prune; this is a defensive backstop run by
// housekeeping. Returns the number of entries removed.
func (r *SubscriptionRegistry) PruneEmpty() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	var removed int
	for topic, users := range r.topicUsers {
		if len(users) == 0 {
			delete(r.topicUsers, topic)
			removed++
		}
	}
	for userID, topics := range r.userTopics {
		if len(topics) == 0 {
			delete(r.userTopics, userID)
			removed++
		}
	}
	return removed
}
