// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

// Package router wires the journal, collector and one or more netmod
// dispatchers together into the core message-routing loop.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bfix/gospel/logger"

	"ratnet/collector"
	"ratnet/journal"
	"ratnet/metrics"
	"ratnet/overlay"
	"ratnet/util"
)

// ErrNoRoute is returned by Send when a User recipient has no known
// peer to dispatch through.
var ErrNoRoute = fmt.Errorf("router: no route to recipient")

// FrameCapacity bounds how many payload bytes one frame carries; Send
// slices every outbound message to this size.
const FrameCapacity = 1024

// Dispatcher abstracts a netmod well enough for the router to remain
// agnostic to which transport (or transports) are wired in. Accepting
// this interface instead of a concrete UDP socket is what makes
// multi-node reflood topologies directly testable: a test can register
// several in-process stub dispatchers against one router.
type Dispatcher interface {
	// Send unicasts a frame to the peer behind id.
	Send(f overlay.Frame, id int) error
	// SendMany unicasts a frame to every given peer (no true multicast
	// data transport; matches the discovery-only use of multicast).
	SendMany(f overlay.Frame, ids []int)
	// Peers lists every known peer id.
	Peers() []int
	// Next blocks for the next inbound frame, or until ctx is done.
	Next(ctx context.Context) (overlay.Frame, int, error)
}

// route records where a sender identity was last heard from: which
// dispatcher and which of its peer ids. A netmod's address table only
// maps raw Peer<->peer-id; it carries no notion of which overlay
// Identity sits behind a peer. This table fills that gap by
// opportunistically learning sender -> location from every frame that
// arrives, rather than requiring a separate discovery protocol.
type route struct {
	dispatcher int
	peerID     int
}

// Router is the core routing component: it accepts outbound messages,
// slices and journals them, relays inbound frames from one or more
// dispatchers, and surfaces fully reassembled locally-addressed
// messages to Next.
type Router struct {
	journal    *journal.Journal
	collector  *collector.State
	dispatch   []Dispatcher
	local      *util.Map[overlay.Identity, bool]
	routes     *util.Map[overlay.Identity, route]
	deliveries chan overlay.Message
}

// New creates a router over a journal and one or more dispatchers. The
// collector's completion hook feeds Next. reassemblyTTL bounds how long
// a partial message waits for its remaining frames before the collector
// gives up on it; 0 disables the sweep.
func New(j *journal.Journal, reassemblyTTL time.Duration, dispatch ...Dispatcher) *Router {
	r := &Router{
		journal:    j,
		dispatch:   dispatch,
		local:      util.NewMap[overlay.Identity, bool](),
		routes:     util.NewMap[overlay.Identity, route](),
		deliveries: make(chan overlay.Message, 64),
	}
	r.collector = collector.NewState(r.deliver, reassemblyTTL)
	return r
}

// CollectorActive returns the number of messages currently being
// reassembled, surfaced by the admin status endpoint.
func (r *Router) CollectorActive() int {
	return r.collector.Active()
}

func (r *Router) deliver(msg overlay.Message) {
	select {
	case r.deliveries <- msg:
		metrics.MessageDelivered()
	default:
		logger.Printf(logger.WARN, "[router] delivery channel full, dropping message %s", msg.SeqID)
	}
}

// AddUser registers id as a locally-hosted address: one this daemon
// accepts inbound traffic for and will hand to Next.
func (r *Router) AddUser(id overlay.Identity) {
	r.local.Put(id, true)
}

// Online reports whether id is currently registered as locally hosted.
func (r *Router) Online(id overlay.Identity) bool {
	_, ok := r.local.Get(id)
	return ok
}

// KnownAddresses returns every peer id known to any wired dispatcher,
// used by the IPC daemon's peers{REQ} handler.
func (r *Router) KnownAddresses() []int {
	seen := make(map[int]bool)
	out := make([]int, 0)
	for _, d := range r.dispatch {
		for _, id := range d.Peers() {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// Send slices msg into frames and dispatches each one, journaling its
// seqid so inbound copies (e.g. our own reflood) are recognised as
// already-seen. Recipient::User resolves to a peer via routes learned
// from inbound traffic; Recipient::Flood fans out to every known peer
// on every dispatcher.
func (r *Router) Send(msg overlay.Message) error {
	raw, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("router: marshal failed: %w", err)
	}
	seqid := msg.SeqID
	if seqid.IsZero() {
		seqid = overlay.RandomIdentity()
	}
	frames := overlay.Slice(msg.Sender, msg.Recipient, seqid, raw, FrameCapacity)

	for _, f := range frames {
		r.journal.Save(f.Seq.SeqID)
		if err := r.dispatchFrame(f); err != nil {
			if errors.Is(err, ErrNoRoute) {
				metrics.FrameDropped(metrics.DropNoRoute)
				return err
			}
			// An individual frame's transport write failed (e.g. the
			// netmod's underlying socket write errored); log it and
			// keep sending the remaining frames rather than aborting
			// the whole message over one bad write.
			logger.Printf(logger.WARN, "[router] transport send failed for frame %s: %s", f.Seq.SeqID, err.Error())
			metrics.FrameDropped(metrics.DropTransportFailed)
			continue
		}
		metrics.FrameSent()
	}
	return nil
}

func (r *Router) dispatchFrame(f overlay.Frame) error {
	if f.Recipient.IsFlood() {
		for _, d := range r.dispatch {
			d.SendMany(f, d.Peers())
		}
		return nil
	}
	rt, ok := r.routes.Get(f.Recipient.User)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoRoute, f.Recipient)
	}
	return r.dispatch[rt.dispatcher].Send(f, rt.peerID)
}

// Next blocks until a fully reassembled, locally-addressed message is
// available, or ctx is cancelled. Completion order, not send order, is
// what callers observe.
func (r *Router) Next(ctx context.Context) (overlay.Message, error) {
	select {
	case msg := <-r.deliveries:
		return msg, nil
	case <-ctx.Done():
		return overlay.Message{}, ctx.Err()
	}
}

// Run starts one intake goroutine per wired dispatcher plus the
// collector's reassembly sweep, and blocks until ctx is cancelled.
func (r *Router) Run(ctx context.Context) {
	go r.collector.Run(ctx)
	for i, d := range r.dispatch {
		go r.intake(ctx, i, d)
	}
	<-ctx.Done()
}

// intake runs one dispatcher's receive-side pipeline: learn the sender's
// route, dedup via the journal, reflood on Flood, and handoff to the
// collector for anything addressed to this node (or Flood).
func (r *Router) intake(ctx context.Context, dispatcherIndex int, d Dispatcher) {
	for {
		frame, peerID, err := d.Next(ctx)
		if err != nil {
			return
		}
		r.routes.Put(frame.Sender, route{dispatcher: dispatcherIndex, peerID: peerID})

		seqid := frame.Seq.SeqID
		metrics.FrameReceived()
		if !r.journal.Unknown(seqid) {
			metrics.FrameDropped(metrics.DropDuplicate)
			continue // already seen, drop
		}
		r.journal.Save(seqid)

		if frame.Recipient.IsFlood() {
			r.reflood(dispatcherIndex, peerID, frame)
		}

		if frame.Recipient.IsFlood() || r.Online(frame.Recipient.User) {
			r.collector.Ingest(frame)
			continue
		}
		// Pure relay for this recipient. Rare with a single UDP netmod
		// where every peer is a direct neighbour; kept as an explicit
		// no-op rather than removed, since it is exercised once more
		// than one dispatcher is registered (a line topology).
	}
}

// reflood re-emits a flood frame to every known peer except the one it
// was just heard from, on every wired dispatcher.
func (r *Router) reflood(originDispatcher, originPeerID int, f overlay.Frame) {
	for i, d := range r.dispatch {
		peers := d.Peers()
		if i == originDispatcher {
			filtered := peers[:0:0]
			for _, id := range peers {
				if id != originPeerID {
					filtered = append(filtered, id)
				}
			}
			peers = filtered
		}
		if len(peers) > 0 {
			d.SendMany(f, peers)
		}
	}
}
