package osc

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/livebridge/livebridge/internal/logging"
	"github.com/livebridge/livebridge/internal/protocol"
)

// Sender transmits one OSC message.
type Sender interface {
	Send(protocol.OSCMessage) error
}

// Client pairs a sender with the correlator to provide request/response
// queries on top of the fire-and-forget transport.
type Client struct {
	sender Sender
	corr   *Correlator
	log    *logrus.Entry
}

// NewClient wraps sender with query correlation.
func NewClient(sender Sender, corr *Correlator) *Client {
	return &Client{
		sender: sender,
		corr:   corr,
		log:    logging.Component("osc"),
	}
}

// Send transmits without expecting a response.
func (c *Client) Send(m protocol.OSCMessage) error {
	return c.sender.Send(m)
}

// Query sends m and blocks for the correlated response values. Returns nil
// when the query goes unanswered within the timeout or ctx is cancelled;
// callers substitute defaults for missing values.
func (c *Client) Query(ctx context.Context, m protocol.OSCMessage) []any {
	p := c.corr.Register(m)
	if err := c.sender.Send(m); err != nil {
		c.log.WithError(err).Warnf("query %s failed to send", m.Address)
		c.corr.drop(p.key, p.ch)
		return nil
	}
	return p.Wait(ctx)
}

// Resolve routes an inbound message to a pending query if one matches.
func (c *Client) Resolve(m protocol.OSCMessage) bool {
	return c.corr.Resolve(m)
}
