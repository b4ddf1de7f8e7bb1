package osc

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/livebridge/livebridge/internal/protocol"
)

// DefaultQueryTimeout bounds how long a query waits for its response before
// resolving empty.
const DefaultQueryTimeout = 5 * time.Second

// Correlator matches responses to queries on a protocol with no request ids.
// The key is the address plus the identifying arguments: a query carries only
// ids, a response echoes the ids and appends the value, so both sides derive
// the same key. Concurrent queries for the same key queue FIFO and responses
// resolve them in send order.
type Correlator struct {
	mu      sync.Mutex
	waiters map[string][]chan []any
	timeout time.Duration
}

// NewCorrelator creates a correlator; timeout <= 0 uses DefaultQueryTimeout.
func NewCorrelator(timeout time.Duration) *Correlator {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Correlator{
		waiters: make(map[string][]chan []any),
		timeout: timeout,
	}
}

// Pending is one registered query waiting for its response.
type Pending struct {
	key  string
	ch   chan []any
	corr *Correlator
}

// Register enrolls a waiter for the response to q. Register before sending
// the query so a fast response cannot slip past.
func (c *Correlator) Register(q protocol.OSCMessage) *Pending {
	key := QueryKey(q)
	ch := make(chan []any, 1)
	c.mu.Lock()
	c.waiters[key] = append(c.waiters[key], ch)
	c.mu.Unlock()
	return &Pending{key: key, ch: ch, corr: c}
}

// Wait blocks for the response values, the timeout, or ctx cancellation.
// An unanswered query yields nil, not an error: the remote script simply
// never replies for entities that do not exist.
func (p *Pending) Wait(ctx context.Context) []any {
	t := time.NewTimer(p.corr.timeout)
	defer t.Stop()
	select {
	case vals := <-p.ch:
		return vals
	case <-t.C:
	case <-ctx.Done():
	}
	p.corr.drop(p.key, p.ch)
	// A response may have landed between the timeout firing and the drop.
	select {
	case vals := <-p.ch:
		return vals
	default:
		return nil
	}
}

// Resolve routes an inbound message to the oldest waiter on its key. Returns
// false when no query is waiting, meaning the message is a listener push.
func (c *Correlator) Resolve(m protocol.OSCMessage) bool {
	key := ResponseKey(m)
	c.mu.Lock()
	q := c.waiters[key]
	if len(q) == 0 {
		c.mu.Unlock()
		return false
	}
	ch := q[0]
	if len(q) == 1 {
		delete(c.waiters, key)
	} else {
		c.waiters[key] = q[1:]
	}
	c.mu.Unlock()

	// An answered query always delivers a non-nil slice, even when the
	// response carries no value args, so callers can tell an empty echo
	// apart from a timeout.
	vals := m.Args[protocol.IDArgCount(m.Address):]
	if vals == nil {
		vals = []any{}
	}
	ch <- vals
	return true
}

// PendingCount reports how many queries are awaiting responses.
func (c *Correlator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, q := range c.waiters {
		n += len(q)
	}
	return n
}

// drop removes one specific waiter from a key's queue.
func (c *Correlator) drop(key string, ch chan []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.waiters[key]
	for i, w := range q {
		if w == ch {
			q = append(q[:i], q[i+1:]...)
			break
		}
	}
	if len(q) == 0 {
		delete(c.waiters, key)
	} else {
		c.waiters[key] = q
	}
}

// QueryKey derives the correlation key for an outbound query, whose arguments
// are all entity ids.
func QueryKey(m protocol.OSCMessage) string {
	return correlationKey(m.Address, m.Args)
}

// ResponseKey derives the correlation key for an inbound message, using only
// the leading id arguments and ignoring the appended value.
func ResponseKey(m protocol.OSCMessage) string {
	n := protocol.IDArgCount(m.Address)
	if n > len(m.Args) {
		n = len(m.Args)
	}
	return correlationKey(m.Address, m.Args[:n])
}

func correlationKey(addr string, ids []any) string {
	var b strings.Builder
	b.WriteString(strings.Join(strings.FieldsFunc(addr, func(r rune) bool { return r == '/' }), "_"))
	for _, id := range ids {
		fmt.Fprintf(&b, "_%v", id)
	}
	return b.String()
}
