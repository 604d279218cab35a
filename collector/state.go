// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package collector

import (
	"context"
	"time"

	"github.com/bfix/gospel/logger"

	"ratnet/metrics"
	"ratnet/overlay"
	"ratnet/util"
)

func currentAbsoluteTime() util.AbsoluteTime {
	return util.AbsoluteTimeNow()
}

// CompletionFunc is invoked exactly once per reassembled message, from
// whichever goroutine happened to deliver the completing frame.
type CompletionFunc func(overlay.Message)

// State owns the set of in-flight reassembly workers, one per sequence
// id currently being collected, and the background sweep that drops
// workers which have been waiting too long for their remaining frames.
type State struct {
	workers *util.Map[overlay.Identity, *worker]
	onDone  CompletionFunc
	ttl     time.Duration
}

// NewState creates a collector bound to onDone, called once per message
// as soon as its frame sequence is complete. ttl bounds how long a
// partial sequence is kept waiting for its missing frames before the
// worker is dropped and logged; zero disables the bound.
func NewState(onDone CompletionFunc, ttl time.Duration) *State {
	return &State{
		workers: util.NewMap[overlay.Identity, *worker](),
		onDone:  onDone,
		ttl:     ttl,
	}
}

// Ingest feeds one frame into its sequence's worker, creating the worker
// if this is the first frame seen for that seqid. On completion the
// worker is removed and onDone is invoked with the reassembled message.
// A deserialisation failure drops the worker without partial delivery.
func (s *State) Ingest(f overlay.Frame) {
	seq := f.Seq.SeqID
	w, ok := s.workers.Get(seq)
	if !ok {
		w = newWorker(seq)
		s.workers.Put(seq, w)
	}

	msg, done, err := w.ingest(f)
	if err != nil {
		logger.Printf(logger.ERROR, "[collector] dropping sequence %s: %s", seq, err.Error())
		metrics.FrameDropped(metrics.DropReassemblyFailed)
		s.workers.Delete(seq)
		return
	}
	if !done {
		return
	}
	s.workers.Delete(seq)
	logger.Printf(logger.DBG, "[collector] sequence %s reassembled (%d bytes)", seq, len(msg.Payload))
	s.onDone(msg)
}

// Active reports how many sequences are currently being reassembled,
// used by the metrics package's collector_workers_active gauge.
func (s *State) Active() int {
	return s.workers.Size()
}

// Run starts the reassembly TTL sweep and blocks until ctx is
// cancelled.
func (s *State) Run(ctx context.Context) {
	if s.ttl <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(s.ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *State) sweep() {
	current := make(map[overlay.Identity]*worker)
	_ = s.workers.ProcessRange(func(key overlay.Identity, w *worker) error {
		current[key] = w
		return nil
	}, true)
	stale := make([]overlay.Identity, 0)
	for key, w := range current {
		if w.age() > s.ttl {
			stale = append(stale, key)
		}
	}
	for _, seq := range stale {
		s.workers.Delete(seq)
		metrics.FrameDropped(metrics.DropReassemblyFailed)
		logger.Printf(logger.WARN, "[collector] dropped stale sequence %s after %s without completion", seq, s.ttl)
	}
}
