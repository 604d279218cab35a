// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package ipc

import (
	"context"
	"net"

	"github.com/bfix/gospel/logger"

	"ratnet/overlay"
	"ratnet/router"
	"ratnet/util"
)

// Daemon is the IPC TCP listener: it accepts client connections, runs
// each as an independent Session, and relays reassembled router
// messages out to the sessions that own (or flood-receive) them.
type Daemon struct {
	addr   string
	router *router.Router
	online *util.Map[overlay.Identity, *Session]
	signer func(payload []byte) []byte
}

// New creates a daemon bound to addr (not yet listening; call Run).
func New(addr string, r *router.Router) *Daemon {
	return &Daemon{
		addr:   addr,
		router: r,
		online: util.NewMap[overlay.Identity, *Session](),
	}
}

// SetSigner wires an optional outbound payload signer, consulted by a
// session's send handler whenever a client submits a message with no
// signature of its own. cmd/ratnetd is the only caller, building fn
// around its -sign-key flag; the ipc package never reaches into the
// signing primitive itself.
func (d *Daemon) SetSigner(fn func(payload []byte) []byte) {
	d.signer = fn
}

func (d *Daemon) register(id overlay.Identity, s *Session) {
	d.online.Put(id, s)
}

func (d *Daemon) unregister(id overlay.Identity) {
	d.online.Delete(id)
}

// OnlineCount returns the number of addresses with a live session,
// surfaced by the admin status endpoint.
func (d *Daemon) OnlineCount() int {
	return d.online.Size()
}

// Run listens on d.addr, accepting connections and spawning sessions,
// and runs the outbound relay task, until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", d.addr)
	if err != nil {
		return err
	}
	logger.Printf(logger.INFO, "[ipc] listening on %s", d.addr)

	go d.relay(ctx)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				logger.Printf(logger.WARN, "[ipc] accept failed: %s", err.Error())
				continue
			}
		}
		s := newSession(conn, d)
		go s.serve()
	}
}

// relay repeatedly awaits router.Next and fans each delivered message
// out to the session(s) it is addressed to.
func (d *Daemon) relay(ctx context.Context) {
	for {
		msg, err := d.router.Next(ctx)
		if err != nil {
			return
		}
		env := wireRecv{
			ID:         msg.SeqID.Bytes(),
			Sender:     msg.Sender.Bytes(),
			PayloadLen: uint16(len(msg.Payload)),
			Payload:    msg.Payload,
			Sent:       msg.TimeSig.Sent,
			Received:   msg.TimeSig.Received,
			SignLen:    uint16(len(msg.Sign)),
			Sign:       msg.Sign,
		}
		if !msg.Recipient.IsFlood() {
			env.HasRecipient = 1
			env.Recipient = msg.Recipient.User.Bytes()
		}

		if msg.Recipient.IsFlood() {
			d.broadcast(env)
			continue
		}
		if s, ok := d.online.Get(msg.Recipient.User); ok {
			d.deliverTo(s, env)
		}
	}
}

func (d *Daemon) broadcast(env wireRecv) {
	sessions := make([]*Session, 0, d.online.Size())
	_ = d.online.ProcessRange(func(id overlay.Identity, s *Session) error {
		sessions = append(sessions, s)
		return nil
	}, true)
	for _, s := range sessions {
		d.deliverTo(s, env)
	}
}

func (d *Daemon) deliverTo(s *Session, env wireRecv) {
	if err := s.write(armRecv, env); err != nil {
		logger.Printf(logger.WARN, "[ipc] delivery to session failed: %s", err.Error())
	}
}
