// Package engine owns the broadcast protocol lifecycle: the connection
// state machine with exponential reconnect backoff, inbound validation and
// batching, reducer dispatch, and the bounded outbound queue.
//
// One goroutine (the actor started by New) owns every piece of mutable
// state. Socket events, API commands and both timers are funneled into its
// select loop, so no locking is needed anywhere in the engine. Dials and
// socket reads happen on helper goroutines that only post generation-tagged
// events; a stale connection can never drive a transition.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/Noirsys/aflr-viewbox/internal/protocol"
	"github.com/Noirsys/aflr-viewbox/internal/state"
	"github.com/Noirsys/aflr-viewbox/internal/telemetry"
	"github.com/Noirsys/aflr-viewbox/internal/transport"
)

const (
	defaultBaseDelay   = 1 * time.Second
	defaultMaxDelay    = 30 * time.Second
	defaultBatchWindow = 25 * time.Millisecond
	defaultQueueCap    = 64
	stopTimeout        = 10 * time.Second
	commandBufferSize  = 64
	eventBufferSize    = 256
)

var (
	// ErrEngineClosed is returned by operations on a torn-down engine.
	ErrEngineClosed = errors.New("engine closed")
	// ErrQueueUnavailable is returned when a send can neither transmit
	// nor enqueue (queue capacity is zero).
	ErrQueueUnavailable = errors.New("outbound queue capacity is zero")
)

// SendOutcome classifies what happened to an outbound envelope.
type SendOutcome string

const (
	SendSent   SendOutcome = "sent"
	SendQueued SendOutcome = "queued"
	SendFailed SendOutcome = "failed"
)

// SendResult tells a caller whether its envelope went out immediately, was
// queued for the next connection, or could not be accepted at all.
type SendResult struct {
	Outcome   SendOutcome
	QueueSize int   // set when Outcome is SendQueued
	Err       error // set when Outcome is SendFailed
}

// Options configures an Engine. Transport is required; everything else has
// a default.
type Options struct {
	Transport     transport.Transport
	Reporter      telemetry.Reporter // defaults to telemetry.Nop
	Clock         clockwork.Clock    // defaults to the real clock
	BaseDelay     time.Duration      // first reconnect delay, default 1s
	MaxDelay      time.Duration      // backoff cap, default 30s
	BatchWindow   time.Duration      // inbound coalescing window, default 25ms
	// QueueCapacity bounds the outbound queue. 0 means the default (64);
	// a negative value disables queueing entirely, so sends while
	// disconnected fail instead of waiting.
	QueueCapacity int
	// OnState is invoked synchronously after every accepted transition
	// with the new immutable snapshot. It must not call back into the
	// engine.
	OnState func(*state.BroadcastState)
}

// --- Actor commands ---

type engineCmd interface{ isEngineCmd() }

type baseEngineCmd struct{}

func (baseEngineCmd) isEngineCmd() {}

type connectCmd struct {
	baseEngineCmd
}

type sendCmd struct {
	baseEngineCmd
	kind  protocol.Kind
	data  []byte
	reply chan SendResult
}

type publishStateCmd struct {
	baseEngineCmd
	reply chan SendResult
}

type queueLenCmd struct {
	baseEngineCmd
	reply chan int
}

type stopCmd struct {
	baseEngineCmd
}

// --- Connection events (generation-tagged) ---

type connEvent interface{ isConnEvent() }

type dialResult struct {
	gen  uint64
	conn transport.Conn
	err  error
}

func (dialResult) isConnEvent() {}

type connMessage struct {
	gen  uint64
	data []byte
}

func (connMessage) isConnEvent() {}

type connClosed struct {
	gen uint64
	err error
}

func (connClosed) isConnEvent() {}

// Engine is the broadcast protocol engine. Create one with New; it starts
// in the disconnected state and stays idle until Connect.
type Engine struct {
	transportImpl transport.Transport
	reporter      telemetry.Reporter
	clock         clockwork.Clock
	onState       func(*state.BroadcastState)

	baseDelay   time.Duration
	maxDelay    time.Duration
	batchWindow time.Duration

	cmdCh   chan engineCmd
	eventCh chan connEvent
	done    chan struct{}

	snapshot atomic.Pointer[state.BroadcastState]

	// Everything below is owned by the actor goroutine.
	validator *protocol.Validator
	current   *state.BroadcastState
	queue     *outboundQueue
	batch     batcher
	conn      transport.Conn
	gen       uint64
	attempt   int
	started   bool
	connID    string

	reconnectTimer clockwork.Timer
	reconnectCh    <-chan time.Time
	batchTimer     clockwork.Timer
	batchCh        <-chan time.Time
}

// New creates an engine and starts its actor goroutine. The engine does not
// dial until Connect is called.
func New(opts Options) (*Engine, error) {
	if opts.Transport == nil {
		return nil, errors.New("engine: Transport is required")
	}
	if opts.Reporter == nil {
		opts.Reporter = telemetry.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = defaultMaxDelay
	}
	if opts.BatchWindow <= 0 {
		opts.BatchWindow = defaultBatchWindow
	}
	switch {
	case opts.QueueCapacity == 0:
		opts.QueueCapacity = defaultQueueCap
	case opts.QueueCapacity < 0:
		opts.QueueCapacity = 0
	}

	e := &Engine{
		transportImpl: opts.Transport,
		reporter:      opts.Reporter,
		clock:         opts.Clock,
		onState:       opts.OnState,
		baseDelay:     opts.BaseDelay,
		maxDelay:      opts.MaxDelay,
		batchWindow:   opts.BatchWindow,
		cmdCh:         make(chan engineCmd, commandBufferSize),
		eventCh:       make(chan connEvent, eventBufferSize),
		done:          make(chan struct{}),
		validator:     protocol.NewValidator(opts.Reporter),
		current:       state.Initial(),
		queue:         newOutboundQueue(opts.QueueCapacity),
	}
	e.snapshot.Store(e.current)
	go e.run()
	return e, nil
}

// Connect starts the connect/reconnect cycle. Calling it more than once, or
// after Close, has no effect.
func (e *Engine) Connect() {
	e.post(connectCmd{})
}

// Send transmits env immediately if connected, otherwise queues it for the
// next connection.
func (e *Engine) Send(env protocol.Envelope) SendResult {
	data, err := env.Encode()
	if err != nil {
		return SendResult{Outcome: SendFailed, Err: err}
	}
	reply := make(chan SendResult, 1)
	if !e.post(sendCmd{kind: env.Kind, data: data, reply: reply}) {
		return SendResult{Outcome: SendFailed, Err: ErrEngineClosed}
	}
	select {
	case res := <-reply:
		return res
	case <-e.done:
		return SendResult{Outcome: SendFailed, Err: ErrEngineClosed}
	}
}

// PublishState sends the full current snapshot as a stateSync envelope,
// seeding peers or the relay cache.
func (e *Engine) PublishState() SendResult {
	reply := make(chan SendResult, 1)
	if !e.post(publishStateCmd{reply: reply}) {
		return SendResult{Outcome: SendFailed, Err: ErrEngineClosed}
	}
	select {
	case res := <-reply:
		return res
	case <-e.done:
		return SendResult{Outcome: SendFailed, Err: ErrEngineClosed}
	}
}

// Snapshot returns the current immutable broadcast state. Valid at any
// time, including after Close.
func (e *Engine) Snapshot() *state.BroadcastState {
	return e.snapshot.Load()
}

// QueueLen returns the number of envelopes waiting in the outbound queue,
// or -1 if the engine is closed.
func (e *Engine) QueueLen() int {
	reply := make(chan int, 1)
	if !e.post(queueLenCmd{reply: reply}) {
		return -1
	}
	select {
	case n := <-reply:
		return n
	case <-e.done:
		return -1
	}
}

// Close tears the engine down: cancels both timers, discards any pending
// batch, clears the outbound queue and closes the socket. After Close
// returns, the engine emits no further state transitions.
func (e *Engine) Close() {
	if !e.post(stopCmd{}) {
		return
	}
	timer := e.clock.NewTimer(stopTimeout)
	defer timer.Stop()
	select {
	case <-e.done:
	case <-timer.Chan():
		slog.Warn("Engine stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (e *Engine) post(cmd engineCmd) bool {
	select {
	case e.cmdCh <- cmd:
		return true
	case <-e.done:
		return false
	}
}

// postEvent delivers a connection event to the actor. If the engine is
// already closed, an in-flight dial's connection is closed instead of
// leaked.
func (e *Engine) postEvent(ev connEvent) {
	select {
	case e.eventCh <- ev:
	case <-e.done:
		if dr, ok := ev.(dialResult); ok && dr.conn != nil {
			_ = dr.conn.Close()
		}
	}
}

func (e *Engine) report(event string, level telemetry.Level, details map[string]any) {
	e.reporter.Report(event, level, details)
}

// --- Actor loop ---

func (e *Engine) run() {
	defer close(e.done)

	for {
		select {
		case cmd := <-e.cmdCh:
			switch c := cmd.(type) {
			case connectCmd:
				e.handleConnect()
			case sendCmd:
				c.reply <- e.handleSend(c.kind, c.data)
			case publishStateCmd:
				c.reply <- e.handlePublishState()
			case queueLenCmd:
				c.reply <- e.queue.len()
			case stopCmd:
				e.handleStop()
				return
			}

		case ev := <-e.eventCh:
			e.handleConnEvent(ev)

		case <-e.reconnectCh:
			e.reconnectTimer = nil
			e.reconnectCh = nil
			e.startDial()

		case <-e.batchCh:
			e.batchTimer = nil
			e.batchCh = nil
			e.dispatchBatch()
		}
	}
}

func (e *Engine) handleConnect() {
	if e.started {
		return
	}
	e.started = true
	e.startDial()
}

func (e *Engine) startDial() {
	e.gen++
	gen := e.gen
	e.connID = uuid.NewString()

	e.transition(state.StatusConnecting, e.attempt, "")
	e.report("connecting", telemetry.LevelInfo, map[string]any{
		"connection_id": e.connID,
		"attempt":       e.attempt,
	})

	go func() {
		conn, err := e.transportImpl.Dial(context.Background())
		e.postEvent(dialResult{gen: gen, conn: conn, err: err})
	}()
}

func (e *Engine) handleConnEvent(ev connEvent) {
	switch ev := ev.(type) {
	case dialResult:
		if ev.gen != e.gen {
			if ev.conn != nil {
				_ = ev.conn.Close()
			}
			return
		}
		if ev.err != nil {
			e.handleFailure(ev.err)
			return
		}
		e.handleOpen(ev.conn)

	case connMessage:
		if ev.gen != e.gen {
			return
		}
		e.handleMessage(ev.data)

	case connClosed:
		if ev.gen != e.gen {
			return
		}
		e.handleFailure(ev.err)
	}
}

func (e *Engine) handleOpen(conn transport.Conn) {
	e.conn = conn
	e.attempt = 0
	e.transition(state.StatusConnected, 0, "")
	e.report("connected", telemetry.LevelInfo, map[string]any{
		"connection_id": e.connID,
	})

	go e.readLoop(e.gen, conn)

	if e.queue.len() > 0 {
		sent := e.flushQueue(conn)
		e.report("flushed", telemetry.LevelInfo, map[string]any{
			"sent":      sent,
			"remaining": e.queue.len(),
		})
		return
	}

	// Nothing was queued: ask for the authoritative snapshot so a fresh
	// client converges instead of staying empty.
	env := protocol.NewRequestState(e.clock.Now().UnixMilli())
	data, err := env.Encode()
	if err != nil {
		return
	}
	if err := conn.Send(data); err != nil {
		// The read loop surfaces the connection failure.
		return
	}
	e.report("bootstrap_sent", telemetry.LevelDebug, map[string]any{
		"connection_id": e.connID,
	})
}

func (e *Engine) readLoop(gen uint64, conn transport.Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			e.postEvent(connClosed{gen: gen, err: err})
			return
		}
		e.postEvent(connMessage{gen: gen, data: data})
	}
}

func (e *Engine) handleFailure(err error) {
	if e.conn != nil {
		_ = e.conn.Close()
		e.conn = nil
	}

	e.attempt++
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	e.transition(state.StatusDisconnected, e.attempt, msg)
	e.report("disconnected", telemetry.LevelWarn, map[string]any{
		"error":   msg,
		"attempt": e.attempt,
	})

	e.scheduleReconnect(backoffDelay(e.attempt, e.baseDelay, e.maxDelay))
}

// scheduleReconnect arms the single reconnect timer, cancelling any timer
// already pending.
func (e *Engine) scheduleReconnect(delay time.Duration) {
	if e.reconnectTimer != nil {
		e.reconnectTimer.Stop()
	}
	e.reconnectTimer = e.clock.NewTimer(delay)
	e.reconnectCh = e.reconnectTimer.Chan()
	e.report("reconnect_scheduled", telemetry.LevelInfo, map[string]any{
		"attempt":  e.attempt,
		"delay_ms": delay.Milliseconds(),
	})
}

func (e *Engine) handleMessage(data []byte) {
	cmd, rej := e.validator.Validate(data)
	if rej != nil {
		return
	}

	// A peer asking for the snapshot is answered directly; it carries no
	// state effect and would only wake the batcher for nothing.
	if _, ok := cmd.(protocol.RequestState); ok {
		e.answerRequestState()
		return
	}

	if e.batch.add(cmd) {
		if e.batchTimer != nil {
			e.batchTimer.Stop()
		}
		e.batchTimer = e.clock.NewTimer(e.batchWindow)
		e.batchCh = e.batchTimer.Chan()
	}
}

func (e *Engine) answerRequestState() {
	if e.current.LastTimestamp == 0 {
		return
	}
	env := protocol.NewStateSync(e.clock.Now().UnixMilli(), e.current.Patch())
	data, err := env.Encode()
	if err != nil {
		return
	}
	res := e.handleSend(protocol.KindStateSync, data)
	e.report("state_sync_answered", telemetry.LevelDebug, map[string]any{
		"outcome": string(res.Outcome),
	})
}

func (e *Engine) dispatchBatch() {
	cmds := e.batch.take()
	if len(cmds) == 0 {
		return
	}
	e.report("batch_dispatched", telemetry.LevelDebug, map[string]any{
		"size": len(cmds),
	})

	next := state.Reduce(e.current, state.CommandGroupAction{Commands: cmds})
	if next == e.current {
		e.report("state_stale_dropped", telemetry.LevelDebug, map[string]any{
			"size": len(cmds),
		})
		return
	}
	e.current = next
	e.report("state_applied", telemetry.LevelDebug, map[string]any{
		"last_timestamp": next.LastTimestamp,
	})
	e.notify()
}

func (e *Engine) handleSend(kind protocol.Kind, data []byte) SendResult {
	if e.conn != nil {
		if err := e.conn.Send(data); err == nil {
			return SendResult{Outcome: SendSent}
		}
		// Transmission failure: fall through to queueing. The read loop
		// surfaces the connection failure on its own.
	}

	evicted, ok := e.queue.push(outboundItem{kind: kind, data: data})
	if !ok {
		return SendResult{Outcome: SendFailed, Err: ErrQueueUnavailable}
	}
	if evicted != nil {
		e.report("queue_overflow", telemetry.LevelWarn, map[string]any{
			"kind": string(evicted.kind),
		})
	}
	size := e.queue.len()
	e.report("queued", telemetry.LevelDebug, map[string]any{
		"kind":       string(kind),
		"queue_size": size,
	})
	return SendResult{Outcome: SendQueued, QueueSize: size}
}

func (e *Engine) handlePublishState() SendResult {
	env := protocol.NewStateSync(e.clock.Now().UnixMilli(), e.current.Patch())
	data, err := env.Encode()
	if err != nil {
		return SendResult{Outcome: SendFailed, Err: err}
	}
	return e.handleSend(protocol.KindStateSync, data)
}

// flushQueue sends queued envelopes in FIFO order. On a partial failure the
// unsent remainder, including the envelope that just failed, is restored in
// original order. Returns the count sent.
func (e *Engine) flushQueue(conn transport.Conn) int {
	items := e.queue.takeAll()
	for i, item := range items {
		if err := conn.Send(item.data); err != nil {
			e.queue.restore(items[i:])
			return i
		}
	}
	return len(items)
}

func (e *Engine) handleStop() {
	if e.reconnectTimer != nil {
		e.reconnectTimer.Stop()
		e.reconnectTimer = nil
		e.reconnectCh = nil
	}
	if e.batchTimer != nil {
		e.batchTimer.Stop()
		e.batchTimer = nil
		e.batchCh = nil
	}
	e.batch.discard()
	e.queue.clear()
	if e.conn != nil {
		_ = e.conn.Close()
		e.conn = nil
	}
	// Orphan any in-flight dial or reader; their events will be dropped.
	e.gen++
	e.report("teardown", telemetry.LevelInfo, nil)
}

// transition moves the connection sub-state through the reducer and
// publishes the new snapshot.
func (e *Engine) transition(status state.Status, attempt int, errMsg string) {
	e.current = state.Reduce(e.current, state.ConnectionStatusAction{
		Status:           status,
		ReconnectAttempt: attempt,
		Err:              errMsg,
	})
	e.notify()
}

func (e *Engine) notify() {
	e.snapshot.Store(e.current)
	if e.onState != nil {
		e.onState(e.current)
	}
}
