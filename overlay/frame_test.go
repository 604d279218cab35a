// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package overlay

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestSliceRestoreRoundTrip(t *testing.T) {
	sender := RandomIdentity()
	seqid := RandomIdentity()
	payload := make([]byte, 10000)
	rand.New(rand.NewSource(1)).Read(payload)

	frames := Slice(sender, Flood, seqid, payload, 777)
	if !DensePrefix(frames) {
		t.Fatal("sliced frames are not a dense prefix")
	}
	got := Restore(frames)
	if !bytes.Equal(got, payload) {
		t.Fatal("restored payload does not match original")
	}
}

func TestSliceEmptyPayloadYieldsOneFrame(t *testing.T) {
	frames := Slice(RandomIdentity(), Flood, RandomIdentity(), nil, 1024)
	if len(frames) != 1 {
		t.Fatalf("expected exactly one frame for empty payload, got %d", len(frames))
	}
	if frames[0].Seq.HasNext {
		t.Fatal("sole frame of an empty payload must not claim more are coming")
	}
	if len(frames[0].Payload) != 0 {
		t.Fatal("sole frame of an empty payload must carry no bytes")
	}
}

func TestSliceSingleFrame(t *testing.T) {
	payload := []byte("hello")
	frames := Slice(RandomIdentity(), Flood, RandomIdentity(), payload, 1024)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Seq.HasNext {
		t.Fatal("terminal frame must not set HasNext")
	}
}

func TestSliceNumbersAreDenseAndTerminalFrameIsLast(t *testing.T) {
	payload := make([]byte, 2500)
	frames := Slice(RandomIdentity(), Flood, RandomIdentity(), payload, 1000)
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f.Seq.Num != uint32(i) {
			t.Fatalf("frame %d has Num %d", i, f.Seq.Num)
		}
		wantNext := i < len(frames)-1
		if f.Seq.HasNext != wantNext {
			t.Fatalf("frame %d HasNext = %v, want %v", i, f.Seq.HasNext, wantNext)
		}
	}
}

func TestRestoreReordersByNum(t *testing.T) {
	payload := []byte("abcdefghij")
	frames := Slice(RandomIdentity(), Flood, RandomIdentity(), payload, 2)
	// shuffle before restoring
	shuffled := []Frame{frames[2], frames[0], frames[4], frames[1], frames[3]}
	got := Restore(shuffled)
	if !bytes.Equal(got, payload) {
		t.Fatalf("restore after reorder = %q, want %q", got, payload)
	}
}

func TestDensePrefixDetectsGap(t *testing.T) {
	frames := Slice(RandomIdentity(), Flood, RandomIdentity(), make([]byte, 30), 10)
	if len(frames) != 3 {
		t.Fatalf("setup: expected 3 frames, got %d", len(frames))
	}
	withGap := []Frame{frames[0], frames[2]}
	if DensePrefix(withGap) {
		t.Fatal("expected a gap at Num=1 to be detected")
	}
	noGap := []Frame{frames[0], frames[1], frames[2]}
	if !DensePrefix(noGap) {
		t.Fatal("complete run incorrectly reported as having a gap")
	}
}

func TestSlicePanicsOnNonPositiveCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-positive frame capacity")
		}
	}()
	Slice(RandomIdentity(), Flood, RandomIdentity(), []byte("x"), 0)
}
