// Package osc speaks UDP to the AbletonOSC remote script: an unconnected
// socket for sending commands and receiving both query responses and listener
// pushes, plus the correlator that matches untagged responses back to their
// queries.
package osc

import (
	"net"

	"github.com/pkg/errors"
	"github.com/scgolang/osc"
	"github.com/sirupsen/logrus"

	"github.com/livebridge/livebridge/internal/logging"
	"github.com/livebridge/livebridge/internal/protocol"
)

// Handler receives every decoded inbound message.
type Handler func(protocol.OSCMessage)

// Conn is the UDP link to the remote script. The socket is unconnected so
// pushes arrive regardless of which source port the script uses.
type Conn struct {
	udp   *osc.UDPConn
	raddr *net.UDPAddr
	log   *logrus.Entry
}

// Dial binds the receive socket and resolves the remote send address.
func Dial(listenAddr, remoteAddr string) (*Conn, error) {
	laddr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving listen address %s", listenAddr)
	}
	raddr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving remote address %s", remoteAddr)
	}
	udp, err := osc.ListenUDP("udp", laddr)
	if err != nil {
		return nil, errors.Wrapf(err, "binding udp %s", listenAddr)
	}
	return &Conn{
		udp:   udp,
		raddr: raddr,
		log:   logging.Component("osc"),
	}, nil
}

// Send encodes and transmits one message to the remote script.
func (c *Conn) Send(m protocol.OSCMessage) error {
	args, err := encodeArgs(m.Args)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", m.Address)
	}
	return errors.Wrapf(
		c.udp.SendTo(c.raddr, osc.Message{Address: m.Address, Arguments: args}),
		"sending %s", m.Address,
	)
}

// Serve decodes inbound messages and hands them to handler. Only addresses in
// the known vocabulary are dispatched; everything else is dropped at the
// socket. Blocks until the connection closes.
func (c *Conn) Serve(handler Handler) error {
	dispatcher := osc.Dispatcher{}
	for _, addr := range protocol.InboundAddresses() {
		addr := addr
		dispatcher[addr] = osc.Method(func(m osc.Message) error {
			handler(protocol.OSCMessage{Address: addr, Args: decodeArgs(m.Arguments)})
			return nil
		})
	}
	return c.udp.Serve(2, dispatcher)
}

// Close shuts the socket down, unblocking Serve.
func (c *Conn) Close() error {
	return c.udp.Close()
}

// encodeArgs converts native values to OSC wire arguments.
func encodeArgs(args []any) (osc.Arguments, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make(osc.Arguments, 0, len(args))
	for _, a := range args {
		switch v := a.(type) {
		case int:
			out = append(out, osc.Int(int32(v)))
		case int32:
			out = append(out, osc.Int(v))
		case int64:
			out = append(out, osc.Int(int32(v)))
		case float64:
			out = append(out, osc.Float(float32(v)))
		case float32:
			out = append(out, osc.Float(v))
		case bool:
			out = append(out, osc.Bool(v))
		case string:
			out = append(out, osc.String(v))
		default:
			return nil, errors.Errorf("unsupported argument type %T", a)
		}
	}
	return out, nil
}

// decodeArgs converts wire arguments to native values. Each reader only
// succeeds on its own typetag, so the first hit identifies the type.
// Arguments of unknown typetags are skipped.
func decodeArgs(args osc.Arguments) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, 0, len(args))
	for _, a := range args {
		if i, err := a.ReadInt32(); err == nil {
			out = append(out, int(i))
			continue
		}
		if f, err := a.ReadFloat32(); err == nil {
			out = append(out, float64(f))
			continue
		}
		if s, err := a.ReadString(); err == nil {
			out = append(out, s)
			continue
		}
		if b, err := a.ReadBool(); err == nil {
			out = append(out, b)
			continue
		}
	}
	return out
}
