// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package ipc

import (
	"fmt"
	"net"
	"sync"

	"github.com/bfix/gospel/logger"

	"ratnet/overlay"
	"ratnet/util"
)

// ErrInvalidAuth is returned internally when a connection's first
// envelope is not a recognised setup arm; the session is closed
// immediately afterwards with no further detail disclosed to the peer.
var ErrInvalidAuth = fmt.Errorf("ipc: invalid auth")

// Session is one accepted client connection. Its id is the zero
// identity for anonymous sessions. writeMtx guards the underlying
// stream so the request loop's (rare) direct writes and the daemon's
// relay task never interleave bytes on the same connection.
type Session struct {
	conn      net.Conn
	id        overlay.Identity
	anonymous bool
	writeMtx  sync.Mutex
	daemon    *Daemon
}

func newSession(conn net.Conn, d *Daemon) *Session {
	return &Session{conn: conn, daemon: d}
}

// write serialises access to the connection for outbound frames issued
// from outside the session's own read loop (the relay task).
func (s *Session) write(a arm, body interface{}) error {
	s.writeMtx.Lock()
	defer s.writeMtx.Unlock()
	return writeEnvelope(s.conn, a, body)
}

// serve runs the authentication handshake followed by the request loop,
// until the stream EOFs, a parse error occurs, or ctx-driven shutdown
// closes the connection out from under it.
func (s *Session) serve() {
	defer s.conn.Close()

	if err := s.authenticate(); err != nil {
		logger.Printf(logger.WARN, "[ipc] session from %s failed auth: %s", s.conn.RemoteAddr(), err.Error())
		return
	}
	if !s.anonymous {
		s.daemon.register(s.id, s)
		defer s.daemon.unregister(s.id)
	}

	for {
		a, body, err := readEnvelope(s.conn)
		if err != nil {
			logger.Printf(logger.DBG, "[ipc] session %s closing: %s", s.conn.RemoteAddr(), err.Error())
			return
		}
		if err := s.handle(a, body); err != nil {
			logger.Printf(logger.DBG, "[ipc] session %s: parse error, closing: %s", s.conn.RemoteAddr(), err.Error())
			return
		}
	}
}

// authenticate validates the connection's first envelope against the
// four recognised setup arms: authenticated online, anonymous online,
// fully anonymous, and anything else, which is rejected.
func (s *Session) authenticate() error {
	a, body, err := readEnvelope(s.conn)
	if err != nil {
		return err
	}
	if a != armSetup {
		return fmt.Errorf("%w: first envelope was not setup", ErrInvalidAuth)
	}
	var su wireSetup
	if err := unmarshalInto(&su, body); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAuth, err.Error())
	}

	switch {
	case su.Type == setupOnline && su.HasID != 0 && su.HasToken != 0:
		// Token validation is a known, documented gap: any token
		// accompanying a known id is accepted.
		s.id = idOrZero(su.HasID, su.ID)
		return s.ack()

	case su.Type == setupOnline && su.HasID == 0 && su.HasToken == 0:
		s.id = overlay.RandomIdentity()
		return s.ack()

	case su.Type == setupAnonymous:
		s.anonymous = true
		return nil

	default:
		return fmt.Errorf("%w: unrecognised setup", ErrInvalidAuth)
	}
}

func (s *Session) ack() error {
	s.daemon.router.AddUser(s.id)
	ack := wireSetup{Type: setupOnlineAck, HasID: 1, ID: s.id.Bytes()}
	return s.write(armSetup, ack)
}

// handle dispatches one request-loop envelope by its arm: send, peers,
// setup or recv.
func (s *Session) handle(a arm, body []byte) error {
	switch a {
	case armSend:
		var ws wireSend
		if err := unmarshalInto(&ws, body); err != nil {
			return err
		}
		s.handleSend(ws)
		return nil

	case armPeers:
		var wp wirePeers
		if err := unmarshalInto(&wp, body); err != nil {
			return err
		}
		if wp.Type == peersReq {
			s.handlePeersReq()
		}
		return nil

	case armSetup:
		// a second setup envelope mid-session is accepted silently
		// rather than treated as a protocol error.
		return nil

	case armRecv:
		// server does not accept inbound recv from clients; ignored.
		return nil

	default:
		return fmt.Errorf("ipc: unknown arm %d", a)
	}
}

func (s *Session) handleSend(ws wireSend) {
	msg := overlay.Message{
		Sender:  idOrZero(1, ws.Sender),
		Payload: ws.Payload,
		TimeSig: overlay.TimeSig{Sent: util.AbsoluteTimeNow()},
		Sign:    ws.Sign,
	}
	if ws.HasRecipient != 0 {
		msg.Recipient = overlay.User(idOrZero(1, ws.Recipient))
	} else {
		msg.Recipient = overlay.Flood
	}
	if len(msg.Sign) == 0 && s.daemon.signer != nil {
		msg.Sign = s.daemon.signer(msg.Payload)
	}
	if err := s.daemon.router.Send(msg); err != nil {
		logger.Printf(logger.WARN, "[ipc] send from %s failed: %s", msg.Sender, err.Error())
	}
}

func (s *Session) handlePeersReq() {
	ids := s.daemon.router.KnownAddresses()
	entries := make([]peerEntry, len(ids))
	for i, id := range ids {
		entries[i] = peerEntry{ID: uint32(id)}
	}
	resp := wirePeers{Type: peersResp, PeerCount: uint16(len(entries)), Peers: entries}
	if err := s.write(armPeers, resp); err != nil {
		logger.Printf(logger.WARN, "[ipc] peers response to %s failed: %s", s.conn.RemoteAddr(), err.Error())
	}
}
