// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

// Package metrics exposes the router's Prometheus-style counters and
// gauges, scraped by the admin HTTP surface.
package metrics

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

var set = metrics.NewSet()

var (
	framesSentTotal     = set.NewCounter(`ratnet_frames_sent_total`)
	framesReceivedTotal = set.NewCounter(`ratnet_frames_received_total`)
	messagesDeliveredTotal = set.NewCounter(`ratnet_messages_delivered_total`)

	framesDropped = struct {
		duplicate  *metrics.Counter
		unknownPeer *metrics.Counter
		malformed  *metrics.Counter
		noRoute    *metrics.Counter
		reassembly *metrics.Counter
		transport  *metrics.Counter
	}{
		duplicate:   set.NewCounter(`ratnet_frames_dropped_total{reason="duplicate"}`),
		unknownPeer: set.NewCounter(`ratnet_frames_dropped_total{reason="unknown_peer"}`),
		malformed:   set.NewCounter(`ratnet_frames_dropped_total{reason="malformed"}`),
		noRoute:     set.NewCounter(`ratnet_frames_dropped_total{reason="no_route"}`),
		reassembly:  set.NewCounter(`ratnet_frames_dropped_total{reason="reassembly_failed"}`),
		transport:   set.NewCounter(`ratnet_frames_dropped_total{reason="transport_failed"}`),
	}
)

// journalSize and collectorWorkersActive are gauges sourced from live
// state via NewGauge callbacks on the package set rather than counters,
// since they go up and down.
var (
	journalSizeFn       func() float64
	collectorActiveFn   func() float64
	_ = set.NewGauge(`ratnet_journal_size`, func() float64 {
		if journalSizeFn == nil {
			return 0
		}
		return journalSizeFn()
	})
	_ = set.NewGauge(`ratnet_collector_workers_active`, func() float64 {
		if collectorActiveFn == nil {
			return 0
		}
		return collectorActiveFn()
	})
)

// FrameSent increments the outbound frame counter.
func FrameSent() { framesSentTotal.Inc() }

// FrameReceived increments the inbound frame counter.
func FrameReceived() { framesReceivedTotal.Inc() }

// MessageDelivered increments the reassembled-message counter.
func MessageDelivered() { messagesDeliveredTotal.Inc() }

// DropReason names why a frame was dropped, matching the taxonomy in
// the error handling design.
type DropReason int

const (
	DropDuplicate DropReason = iota
	DropUnknownPeer
	DropMalformed
	DropNoRoute
	DropReassemblyFailed
	DropTransportFailed
)

// FrameDropped increments the labelled drop counter for reason.
func FrameDropped(reason DropReason) {
	switch reason {
	case DropDuplicate:
		framesDropped.duplicate.Inc()
	case DropUnknownPeer:
		framesDropped.unknownPeer.Inc()
	case DropMalformed:
		framesDropped.malformed.Inc()
	case DropNoRoute:
		framesDropped.noRoute.Inc()
	case DropReassemblyFailed:
		framesDropped.reassembly.Inc()
	case DropTransportFailed:
		framesDropped.transport.Inc()
	}
}

// SetJournalSizeFunc wires the journal_size gauge to a live source,
// called by cmd/ratnetd once the journal is constructed.
func SetJournalSizeFunc(f func() float64) { journalSizeFn = f }

// SetCollectorActiveFunc wires the collector_workers_active gauge.
func SetCollectorActiveFunc(f func() float64) { collectorActiveFn = f }

// WritePrometheus renders every registered metric in Prometheus text
// exposition format, used by the admin HTTP surface's /metrics route.
func WritePrometheus(w io.Writer) {
	set.WritePrometheus(w)
}
