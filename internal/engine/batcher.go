package engine

import "github.com/Noirsys/aflr-viewbox/internal/protocol"

// batcher accumulates validated commands between batch-window expiries so a
// burst of rapid updates produces one reducer dispatch instead of one per
// message. Arrival order is preserved. Owned by the engine actor.
type batcher struct {
	pending []protocol.Command
}

// add appends cmd and reports whether it opened a new group (the caller
// starts the batch window exactly then).
func (b *batcher) add(cmd protocol.Command) bool {
	b.pending = append(b.pending, cmd)
	return len(b.pending) == 1
}

// take removes and returns the accumulated group in arrival order.
func (b *batcher) take() []protocol.Command {
	pending := b.pending
	b.pending = nil
	return pending
}

// discard drops a pending group without delivering it. Used on teardown:
// delivery is at-most-once per session.
func (b *batcher) discard() {
	b.pending = nil
}

func (b *batcher) size() int {
	return len(b.pending)
}
