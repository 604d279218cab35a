// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

// Package collector reassembles frame sequences into complete messages.
package collector

import (
	"fmt"
	"sync"
	"time"

	"ratnet/overlay"
)

// worker collects the frames of one sequence id into a message. A new
// worker is created the first time a seqid is seen and discarded once
// the sequence either completes or ages out.
type worker struct {
	mtx       sync.Mutex
	seq       overlay.Identity
	buf       []overlay.Frame
	seen      map[uint32]bool
	firstSeen time.Time
}

func newWorker(seq overlay.Identity) *worker {
	return &worker{
		seq:       seq,
		buf:       make([]overlay.Frame, 0, 4),
		seen:      make(map[uint32]bool),
		firstSeen: time.Now(),
	}
}

// ingest buffers a frame and, once the sequence is dense and terminated,
// restores and deserialises the reassembled message. Frames with a
// sequence number already seen are dropped; first arrival wins. Returns
// (message, true) exactly
// once, on the frame that completes the sequence; any frame ingested by
// a worker after that point is a caller bug (the worker is torn down on
// completion) and is treated as a duplicate.
func (w *worker) ingest(f overlay.Frame) (overlay.Message, bool, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.seen[f.Seq.Num] {
		return overlay.Message{}, false, nil
	}
	w.seen[f.Seq.Num] = true
	w.buf = append(w.buf, f)

	if !lastIsTerminal(w.buf) {
		return overlay.Message{}, false, nil
	}
	if !overlay.DensePrefix(w.buf) {
		return overlay.Message{}, false, nil
	}

	head := w.buf[0]
	for _, fr := range w.buf {
		if fr.Seq.Num == 0 {
			head = fr
			break
		}
	}
	raw := overlay.Restore(w.buf)
	payload, sig, sign, err := overlay.UnmarshalPayload(raw)
	if err != nil {
		return overlay.Message{}, false, fmt.Errorf("collector: reassembly failed for seqid %s: %w", w.seq, err)
	}
	sig.Received = currentAbsoluteTime()

	msg := overlay.Message{
		Sender:    head.Sender,
		Recipient: head.Recipient,
		SeqID:     w.seq,
		Payload:   payload,
		TimeSig:   sig,
		Sign:      sign,
	}
	return msg, true, nil
}

// lastIsTerminal reports whether the highest-numbered frame currently
// buffered declares itself the end of the sequence (HasNext == false).
// Taking the highest Num rather than the last-appended frame means
// frames may arrive in any order.
func lastIsTerminal(buf []overlay.Frame) bool {
	if len(buf) == 0 {
		return false
	}
	last := buf[0]
	for _, f := range buf[1:] {
		if f.Seq.Num > last.Seq.Num {
			last = f
		}
	}
	return !last.Seq.HasNext
}

// age reports how long this worker has been buffering frames, used by
// the state's reassembly TTL sweep.
func (w *worker) age() time.Duration {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return time.Since(w.firstSeen)
}
