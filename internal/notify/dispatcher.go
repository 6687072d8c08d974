// Package notify fans state-change notifications out to collaborators
// with at-least-once delivery, bounded retry, and per-(entity,
// collaborator) ordering.
package notify

import (
	"context"
	"sync"
	"time"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Targets maps (workflow type, state) to the collaborator names that
// must be informed of the change. Statically configured per deployment.
type Targets map[string]map[string][]string

// Resolve returns the collaborator names for a (workflow type, state) pair.
func (t Targets) Resolve(workflowType, state string) []string {
	byState, ok := t[workflowType]
	if !ok {
		return nil
	}
	return byState[state]
}

// Dispatcher delivers notifications asynchronously. Each (entity,
// collaborator) pair gets its own serial queue, so a collaborator never
// observes a stale state arriving after a newer one, while distinct
// pairs proceed fully in parallel. Retries run on the dispatcher's own
// schedule, independent of the originating transition.
type Dispatcher struct {
	targets       Targets
	collaborators map[string]Collaborator
	policy        Policy
	timeout       time.Duration
	logger        Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	queues map[string]chan Notification
	closed bool
	// senders counts enqueues registered before the closed flag flips;
	// Close may only close the queue channels once it drains to zero.
	senders sync.WaitGroup
	wg      sync.WaitGroup
}

const queueDepth = 64

// NewDispatcher creates a Dispatcher over the configured targets and
// collaborator clients.
func NewDispatcher(targets Targets, collaborators []Collaborator, policy Policy, timeout time.Duration, logger Logger) *Dispatcher {
	byName := make(map[string]Collaborator, len(collaborators))
	for _, c := range collaborators {
		byName[c.Name()] = c
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		targets:       targets,
		collaborators: byName,
		policy:        policy,
		timeout:       timeout,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		queues:        make(map[string]chan Notification),
	}
}

// Dispatch resolves the targets for (workflowType, newState) and
// enqueues one delivery per collaborator. Delivery itself is
// asynchronous; enqueueing returns immediately until a pair's backlog
// reaches queueDepth, after which it applies backpressure rather than
// drop or reorder.
func (d *Dispatcher) Dispatch(entityID, workflowType, newState string, payload map[string]any) {
	d.Fanout(entityID, workflowType, newState, payload, nil)
}

// Fanout enqueues one delivery per collaborator in the union of the
// statically configured targets for (workflowType, newState) and the
// extra names, deduplicated so no collaborator is notified twice for
// one transition.
func (d *Dispatcher) Fanout(entityID, workflowType, newState string, payload map[string]any, extra []string) {
	n := Notification{EntityID: entityID, WorkflowType: workflowType, NewState: newState, Payload: payload}
	seen := make(map[string]bool)
	for _, name := range d.targets.Resolve(workflowType, newState) {
		if !seen[name] {
			seen[name] = true
			d.enqueue(name, n)
		}
	}
	for _, name := range extra {
		if !seen[name] {
			seen[name] = true
			d.enqueue(name, n)
		}
	}
}

// DispatchTo enqueues a delivery to one named collaborator, bypassing
// target resolution. Used for directed post-actions such as the
// external system-of-record sync.
func (d *Dispatcher) DispatchTo(collaborator string, n Notification) {
	d.enqueue(collaborator, n)
}

// DeliverSync delivers to one named collaborator synchronously,
// applying the same bounded retry policy. Used when the sync-blocking
// policy is enabled.
func (d *Dispatcher) DeliverSync(ctx context.Context, collaborator string, n Notification) error {
	c, ok := d.collaborators[collaborator]
	if !ok {
		d.logger.Error("notification target has no collaborator client", "collaborator", collaborator)
		return nil
	}
	return d.deliver(ctx, c, n)
}

func (d *Dispatcher) enqueue(name string, n Notification) {
	c, ok := d.collaborators[name]
	if !ok {
		d.logger.Error("notification target has no collaborator client",
			"collaborator", name, "entity_id", n.EntityID)
		return
	}

	key := n.EntityID + "\x00" + name
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	q, ok := d.queues[key]
	if !ok {
		q = make(chan Notification, queueDepth)
		d.queues[key] = q
		d.wg.Add(1)
		go d.worker(c, q)
	}
	d.senders.Add(1)
	d.mu.Unlock()
	defer d.senders.Done()

	// Blocking on a full queue keeps the per-pair ordering guarantee
	// instead of dropping or reordering under backlog. The sender was
	// registered under the mutex, so Close cannot close q until this
	// send completes.
	q <- n
}

func (d *Dispatcher) worker(c Collaborator, q chan Notification) {
	defer d.wg.Done()
	for n := range q {
		if err := d.deliver(d.ctx, c, n); err != nil {
			d.logger.Error("notification permanently failed",
				"collaborator", c.Name(), "entity_id", n.EntityID,
				"state", n.NewState, "error", err)
		}
	}
}

// deliver attempts one notification with bounded retry and exponential
// backoff. Returns the last error after exhausting the retry budget.
func (d *Dispatcher) deliver(ctx context.Context, c Collaborator, n Notification) error {
	var lastErr error
	for retries := 0; ; retries++ {
		attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
		lastErr = c.Notify(attemptCtx, n)
		cancel()
		if lastErr == nil {
			d.logger.Debug("notification delivered",
				"collaborator", c.Name(), "entity_id", n.EntityID, "state", n.NewState)
			return nil
		}
		if !d.policy.ShouldRetry(retries) {
			return lastErr
		}
		select {
		case <-time.After(d.policy.CalculateDelay(retries)):
		case <-ctx.Done():
			return lastErr
		}
	}
}

// Close stops accepting new notifications, drains the queues, and
// waits for in-flight deliveries to finish or give up. Senders that
// registered before the closed flag flipped are waited out first, so a
// Dispatch racing Close lands in its queue instead of panicking on a
// closed channel.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.senders.Wait()

	d.mu.Lock()
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	d.wg.Wait()
	d.cancel()
}
