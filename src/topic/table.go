// Package topic implements the pub/sub subscription table as a persistent
// value: every operation returns a new table and never mutates its
// receiver, so readers may hold a snapshot while a writer swaps in the
// next version. A topic key exists iff its subscriber set is non-empty.
package topic

// Table maps topic names to subscriber connection IDs.
type Table struct {
	topics map[string]map[string]bool
}

// New returns an empty table.
func New() Table {
	return Table{topics: map[string]map[string]bool{}}
}

// Subscribe returns a table with connID added to the topic's subscribers.
// Subscribing an already-subscribed pair is a no-op copy.
func (t Table) Subscribe(connID, topic string) Table {
	if t.topics[topic][connID] {
		return t
	}
	next := t.clone()
	subs := cloneSet(t.topics[topic])
	subs[connID] = true
	next.topics[topic] = subs
	return next
}

// Unsubscribe returns a table with connID removed from the topic. The
// topic key is dropped entirely when its last subscriber leaves.
func (t Table) Unsubscribe(connID, topic string) Table {
	subs, ok := t.topics[topic]
	if !ok || !subs[connID] {
		return t
	}
	next := t.clone()
	if len(subs) == 1 {
		delete(next.topics, topic)
		return next
	}
	rest := cloneSet(subs)
	delete(rest, connID)
	next.topics[topic] = rest
	return next
}

// UnsubscribeAll returns a table with connID removed from every topic,
// pruning any topic left empty.
func (t Table) UnsubscribeAll(connID string) Table {
	next := New()
	for topic, subs := range t.topics {
		if !subs[connID] {
			next.topics[topic] = subs
			continue
		}
		if len(subs) == 1 {
			continue
		}
		rest := cloneSet(subs)
		delete(rest, connID)
		next.topics[topic] = rest
	}
	return next
}

// Subscribers returns the connection IDs subscribed to topic. Absent
// topics yield an empty slice.
func (t Table) Subscribers(topic string) []string {
	subs := t.topics[topic]
	ids := make([]string, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	return ids
}

// TopicsFor returns the topic names connID is subscribed to.
func (t Table) TopicsFor(connID string) []string {
	names := make([]string, 0)
	for topic, subs := range t.topics {
		if subs[connID] {
			names = append(names, topic)
		}
	}
	return names
}

// IsSubscribed reports whether connID is subscribed to topic.
func (t Table) IsSubscribed(connID, topic string) bool {
	return t.topics[topic][connID]
}

// TopicCount returns the number of topics with at least one subscriber.
func (t Table) TopicCount() int {
	return len(t.topics)
}

// SubscriptionCount returns the total number of (connection, topic)
// pairs; a connection on N topics counts N times.
func (t Table) SubscriptionCount() int {
	n := 0
	for _, subs := range t.topics {
		n += len(subs)
	}
	return n
}

// Counts returns subscriber counts per topic.
func (t Table) Counts() map[string]int {
	out := make(map[string]int, len(t.topics))
	for topic, subs := range t.topics {
		out[topic] = len(subs)
	}
	return out
}

// clone copies the outer map; untouched subscriber sets stay shared and
// must not be written to.
func (t Table) clone() Table {
	next := Table{topics: make(map[string]map[string]bool, len(t.topics))}
	for topic, subs := range t.topics {
		next.topics[topic] = subs
	}
	return next
}

func cloneSet(s map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s)+1)
	for k := range s {
		out[k] = true
	}
	return out
}
