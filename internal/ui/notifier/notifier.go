// Package notifier broadcasts update pings to SSE listeners, grouped by topic.
// The chat UI uses one topic per conversation so a browser tab only re-renders
// when its own transcript changed.
package notifier

import "sync"

// Notifier broadcasts update signals to subscribed listeners.
// Listeners receive an empty struct when updates are available and should
// re-read the conversation.
type Notifier struct {
	mu     sync.RWMutex
	topics map[string]map[chan struct{}]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		topics: make(map[string]map[chan struct{}]struct{}),
	}
}

// Subscribe returns a channel that receives pings for a topic.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe(topic string) chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	defer n.mu.Unlock()

	listeners, ok := n.topics[topic]
	if !ok {
		listeners = make(map[chan struct{}]struct{})
		n.topics[topic] = listeners
	}
	listeners[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(topic string, ch chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	listeners, ok := n.topics[topic]
	if !ok {
		return
	}
	if _, ok := listeners[ch]; !ok {
		return
	}
	delete(listeners, ch)
	if len(listeners) == 0 {
		delete(n.topics, topic)
	}
	close(ch)
}

// Broadcast pings every listener of a topic.
// Non-blocking: if a listener's channel is full, the ping is skipped.
func (n *Notifier) Broadcast(topic string) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ping(n.topics[topic])
}

// BroadcastAll pings every listener of every topic.
func (n *Notifier) BroadcastAll() {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, listeners := range n.topics {
		ping(listeners)
	}
}

// Listeners returns the number of listeners of a topic.
func (n *Notifier) Listeners(topic string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.topics[topic])
}

func ping(listeners map[chan struct{}]struct{}) {
	for ch := range listeners {
		select {
		case ch <- struct{}{}:
		default:
			// listener already has a pending ping
		}
	}
}
