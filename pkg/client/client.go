package client

import (
	"encoding/json"
	"errors"
	"net"
	"reactorcore/pkg/geom"
	"reactorcore/pkg/instr"
	"reactorcore/pkg/protocol"
	"time"
)

type Client struct {
	conn net.Conn
	addr string
}

func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn: conn,
		addr: addr,
	}, nil
}

// Step sends one instruction line, e.g. "on x=1..2,y=1..2,z=1..2".
func (c *Client) Step(line string) error {
	resp, err := c.roundTrip(protocol.OpStep, nil, []byte(line))
	if err != nil {
		return err
	}
	return expectOK(resp)
}

func (c *Client) Apply(step instr.Step) error {
	return c.Step(step.String())
}

// Count returns the lit cells inside region and in total.
func (c *Client) Count(region geom.Box) (int64, int64, error) {
	return c.count(protocol.EncodeBox(region))
}

// CountInit counts against the server's configured init region.
func (c *Client) CountInit() (int64, int64, error) {
	return c.count(nil)
}

func (c *Client) count(payload []byte) (int64, int64, error) {
	resp, err := c.roundTrip(protocol.OpCount, nil, payload)
	if err != nil {
		return 0, 0, err
	}
	if err := expectVal(resp); err != nil {
		return 0, 0, err
	}
	return protocol.DecodeCount(resp.Value)
}

func (c *Client) Probe(p geom.Point) (bool, error) {
	resp, err := c.roundTrip(protocol.OpProbe, protocol.EncodePoint(p), nil)
	if err != nil {
		return false, err
	}
	if err := expectVal(resp); err != nil {
		return false, err
	}
	return len(resp.Value) == 1 && resp.Value[0] == 1, nil
}

func (c *Client) Reset() error {
	resp, err := c.roundTrip(protocol.OpReset, nil, nil)
	if err != nil {
		return err
	}
	return expectOK(resp)
}

func (c *Client) Stats() (map[string]interface{}, error) {
	resp, err := c.roundTrip(protocol.OpStats, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := expectVal(resp); err != nil {
		return nil, err
	}
	var stats map[string]interface{}
	if err := json.Unmarshal(resp.Value, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// roundTrip sends one request and reads its response, redialing once if the
// connection turns out to be broken.
func (c *Client) roundTrip(op byte, key, val []byte) (*protocol.Packet, error) {
	if err := protocol.Encode(c.conn, op, key, val); err == nil {
		if pkg, err := protocol.Decode(c.conn); err == nil {
			return pkg, nil
		}
	}
	return c.reconnectAndRetry(op, key, val)
}

func (c *Client) reconnectAndRetry(op byte, key, val []byte) (*protocol.Packet, error) {
	c.conn.Close()
	conn, err := net.DialTimeout("tcp", c.addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	c.conn = conn

	// Re-send
	if err := protocol.Encode(c.conn, op, key, val); err != nil {
		return nil, err
	}
	// Re-read
	return protocol.Decode(c.conn)
}

func expectOK(pkg *protocol.Packet) error {
	switch pkg.Op {
	case protocol.RespOK:
		return nil
	case protocol.RespErr:
		return errors.New(string(pkg.Value))
	default:
		return errors.New("unknown response")
	}
}

func expectVal(pkg *protocol.Packet) error {
	switch pkg.Op {
	case protocol.RespVal:
		return nil
	case protocol.RespErr:
		return errors.New(string(pkg.Value))
	default:
		return errors.New("unknown response")
	}
}
