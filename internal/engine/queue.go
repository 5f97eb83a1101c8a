package engine

import "github.com/Noirsys/aflr-viewbox/internal/protocol"

// outboundItem is one encoded envelope awaiting transmission. The kind is
// kept alongside the wire bytes so overflow telemetry can name what was
// dropped.
type outboundItem struct {
	kind protocol.Kind
	data []byte
}

// outboundQueue is a bounded FIFO of envelopes to send once a connection
// opens. It is owned by the engine actor and never touched concurrently.
type outboundQueue struct {
	capacity int
	items    []outboundItem
}

func newOutboundQueue(capacity int) *outboundQueue {
	if capacity < 0 {
		capacity = 0
	}
	return &outboundQueue{capacity: capacity}
}

func (q *outboundQueue) len() int {
	return len(q.items)
}

// push appends item, evicting the oldest entry when the queue is full.
// ok is false only when capacity is zero and nothing can be enqueued at all.
func (q *outboundQueue) push(item outboundItem) (evicted *outboundItem, ok bool) {
	if q.capacity == 0 {
		return nil, false
	}
	if len(q.items) >= q.capacity {
		oldest := q.items[0]
		q.items = q.items[1:]
		evicted = &oldest
	}
	q.items = append(q.items, item)
	return evicted, true
}

// takeAll removes and returns every queued item in FIFO order.
func (q *outboundQueue) takeAll() []outboundItem {
	items := q.items
	q.items = nil
	return items
}

// restore puts unsent items back at the head of the queue, preserving
// their original order.
func (q *outboundQueue) restore(items []outboundItem) {
	if len(items) == 0 {
		return
	}
	q.items = append(append([]outboundItem(nil), items...), q.items...)
}

func (q *outboundQueue) clear() {
	q.items = nil
}
