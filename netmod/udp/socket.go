// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package udp

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/bfix/gospel/logger"

	"ratnet/metrics"
	"ratnet/overlay"
)

// Incoming is a frame handed up from the socket's receive loop together
// with the peer id of whichever local-network neighbour it arrived from.
type Incoming struct {
	Frame  overlay.Frame
	PeerID int
}

// Socket owns one UDP endpoint: it joins the discovery multicast group,
// announces itself, and moves frames between the network and an inbox
// channel the router's intake task drains via Next.
type Socket struct {
	conn    *net.UDPConn
	group   *net.UDPAddr
	table   *AddressTable
	inbox   chan Incoming
	fatal   func(format string, args ...interface{})
}

// Bind opens addr, joins the discovery multicast group and spawns the
// receive loop. fatal is called (and is expected not to return, e.g. by
// calling os.Exit) if the receive loop hits an unrecoverable socket
// error: such errors are treated as fatal rather than retried silently.
func Bind(ctx context.Context, addr string, table *AddressTable, fatal func(format string, args ...interface{})) (*Socket, error) {
	laddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("udp: resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("udp: bind %s: %w", addr, err)
	}
	group := &net.UDPAddr{IP: net.ParseIP(MulticastGroup), Port: MulticastPort}
	if iface, err := defaultMulticastInterface(); err == nil {
		pc := ipv4PacketConn(conn)
		if pc != nil {
			_ = pc.JoinGroup(iface, group)
		}
	}
	if fatal == nil {
		fatal = func(format string, args ...interface{}) {
			logger.Printf(logger.ERROR, format, args...)
			os.Exit(1)
		}
	}
	s := &Socket{
		conn:  conn,
		group: group,
		table: table,
		inbox: make(chan Incoming, 256),
		fatal: fatal,
	}
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go s.receiveLoop(ctx)
	s.multicast(encodeAnnounce())
	logger.Printf(logger.INFO, "[udp] bound %s, joined %s:%d", addr, MulticastGroup, MulticastPort)
	return s, nil
}

// Send transmits a frame to a single peer.
func (s *Socket) Send(f overlay.Frame, p Peer) error {
	data, err := encodeFrame(f)
	if err != nil {
		return err
	}
	_, err = s.conn.WriteToUDP(data, p.Addr())
	if err != nil {
		logger.Printf(logger.WARN, "[udp] send to %s failed: %s", p, err.Error())
	}
	return err
}

// SendMany transmits a frame to every peer in the given list, logging
// and continuing past individual send failures rather than aborting the
// whole fan-out.
func (s *Socket) SendMany(f overlay.Frame, peers []Peer) {
	for _, p := range peers {
		_ = s.Send(f, p)
	}
}

// multicast broadcasts a bodyless discovery envelope to the group.
func (s *Socket) multicast(env []byte) {
	if _, err := s.conn.WriteToUDP(env, s.group); err != nil {
		logger.Printf(logger.WARN, "[udp] multicast failed: %s", err.Error())
	}
}

// Next blocks until a frame has been received, or ctx is cancelled.
func (s *Socket) Next(ctx context.Context) (Incoming, error) {
	select {
	case inc := <-s.inbox:
		return inc, nil
	case <-ctx.Done():
		return Incoming{}, ctx.Err()
	}
}

func (s *Socket) receiveLoop(ctx context.Context) {
	buf := make([]byte, 8192)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, raddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			s.fatal("[udp] receive loop crashed: %s", err.Error())
			return
		}
		peer := peerFromUDPAddr(raddr)
		tag, frame, err := decodeEnvelope(buf[:n])
		if err != nil {
			logger.Printf(logger.DBG, "[udp] dropping malformed datagram from %s: %s", peer, err.Error())
			metrics.FrameDropped(metrics.DropMalformed)
			continue
		}
		switch tag {
		case tagAnnounce:
			s.table.Set(peer)
			s.multicast(encodeReply())
		case tagReply:
			s.table.Set(peer)
		case tagData:
			id, err := s.table.ID(peer)
			if err != nil {
				// Data frame from a peer we never saw announce or reply;
				// drop silently rather than guessing at an address.
				metrics.FrameDropped(metrics.DropUnknownPeer)
				continue
			}
			select {
			case s.inbox <- Incoming{Frame: frame, PeerID: id}:
			case <-ctx.Done():
				return
			}
		}
	}
}
