package network

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"reactorcore/pkg/core"
	"reactorcore/pkg/instr"
	"reactorcore/pkg/protocol"
)

type TCPServer struct {
	reactor *core.Reactor
}

func NewTCPServer(reactor *core.Reactor) *TCPServer {
	return &TCPServer{reactor: reactor}
}

func (s *TCPServer) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Printf("[TCP] Listening on %s (Binary Protocol)", addr)
	return s.Serve(listener)
}

// Serve accepts connections until the listener is closed.
func (s *TCPServer) Serve(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("[TCP] Accept error: %v", err)
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *TCPServer) handleConn(conn net.Conn) {
	defer conn.Close()

	for {
		req, err := protocol.Decode(conn)
		if err != nil {
			if err != io.EOF {
				log.Printf("[TCP] Decode error from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		if err := s.dispatch(conn, req); err != nil {
			log.Printf("[TCP] Write error to %s: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

func (s *TCPServer) dispatch(w io.Writer, req *protocol.Packet) error {
	switch req.Op {
	case protocol.OpStep:
		step, err := instr.Parse(string(req.Value))
		if err != nil {
			return protocol.Encode(w, protocol.RespErr, nil, []byte(err.Error()))
		}
		if err := s.reactor.Apply(step); err != nil {
			return protocol.Encode(w, protocol.RespErr, nil, []byte(err.Error()))
		}
		return protocol.Encode(w, protocol.RespOK, nil, nil)

	case protocol.OpCount:
		region := s.reactor.InitRegion()
		if len(req.Value) > 0 {
			b, err := protocol.DecodeBox(req.Value)
			if err != nil {
				return protocol.Encode(w, protocol.RespErr, nil, []byte(err.Error()))
			}
			region = b
		}
		inRegion, total := s.reactor.Count(region)
		return protocol.Encode(w, protocol.RespVal, nil, protocol.EncodeCount(inRegion, total))

	case protocol.OpProbe:
		p, err := protocol.DecodePoint(req.Key)
		if err != nil {
			return protocol.Encode(w, protocol.RespErr, nil, []byte(err.Error()))
		}
		var v byte
		if s.reactor.IsOn(p) {
			v = 1
		}
		return protocol.Encode(w, protocol.RespVal, nil, []byte{v})

	case protocol.OpReset:
		if err := s.reactor.Reset(); err != nil {
			return protocol.Encode(w, protocol.RespErr, nil, []byte(err.Error()))
		}
		return protocol.Encode(w, protocol.RespOK, nil, nil)

	case protocol.OpStats:
		data, err := json.Marshal(s.reactor.Stats())
		if err != nil {
			return protocol.Encode(w, protocol.RespErr, nil, []byte(err.Error()))
		}
		return protocol.Encode(w, protocol.RespVal, nil, data)
	}

	return protocol.Encode(w, protocol.RespErr, nil, []byte("unknown op"))
}
