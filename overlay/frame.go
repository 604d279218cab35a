// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package overlay

import "sort"

// FrameSeq is the sequencing metadata shared by every frame belonging to
// one logical message. HasNext carries whether more frames follow this
// one, without needing to repeat the seqid a second time per frame just
// to express "terminal" versus "more coming".
type FrameSeq struct {
	SeqID   Identity
	Num     uint32
	HasNext bool
}

// Frame is the atomic wire-level unit: one slice of a message's
// serialised payload plus enough metadata to route and reassemble it.
type Frame struct {
	Sender    Identity
	Recipient Recipient
	Seq       FrameSeq
	Payload   []byte
}

// Slice splits a serialised message payload into a dense run of frames
// sharing one seqid. Given payload size P and per-frame capacity F it
// produces N = ceil(P/F) frames numbered 0..N-1.
//
// An empty payload still yields exactly one frame (N=1, not N=0): every
// message needs a well-defined terminal frame, and collapsing to zero
// frames would mean an empty message never arrives at all.
func Slice(sender Identity, recipient Recipient, seqid Identity, payload []byte, frameCap int) []Frame {
	if frameCap <= 0 {
		panic("overlay: Slice called with non-positive frame capacity")
	}
	n := (len(payload) + frameCap - 1) / frameCap
	if n == 0 {
		n = 1
	}
	frames := make([]Frame, n)
	for i := 0; i < n; i++ {
		start := i * frameCap
		end := start + frameCap
		if end > len(payload) {
			end = len(payload)
		}
		frag := make([]byte, end-start)
		copy(frag, payload[start:end])
		frames[i] = Frame{
			Sender:    sender,
			Recipient: recipient,
			Seq: FrameSeq{
				SeqID:   seqid,
				Num:     uint32(i),
				HasNext: i < n-1,
			},
			Payload: frag,
		}
	}
	return frames
}

// Restore concatenates a complete, densely-numbered set of frames back
// into the serialised message payload they were sliced from. Frames are
// sorted by ascending Seq.Num first, so restoration is independent of
// the order frames were buffered in.
func Restore(frames []Frame) []byte {
	ordered := make([]Frame, len(frames))
	copy(ordered, frames)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Seq.Num < ordered[j].Seq.Num
	})
	total := 0
	for _, f := range ordered {
		total += len(f.Payload)
	}
	out := make([]byte, 0, total)
	for _, f := range ordered {
		out = append(out, f.Payload...)
	}
	return out
}

// DensePrefix reports whether frames form a gapless run 0..len(frames)-1
// once sorted by Seq.Num, i.e. no hole remains in the sequence. Callers
// are expected to have already deduplicated by Num.
func DensePrefix(frames []Frame) bool {
	ordered := make([]Frame, len(frames))
	copy(ordered, frames)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Seq.Num < ordered[j].Seq.Num
	})
	for i, f := range ordered {
		if f.Seq.Num != uint32(i) {
			return false
		}
	}
	return true
}
