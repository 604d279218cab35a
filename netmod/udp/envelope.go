// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package udp

import (
	"fmt"

	"github.com/bfix/gospel/data"

	"ratnet/overlay"
)

// envelope tags: a datagram is either a bodyless discovery announce or
// reply, or a data frame.
const (
	tagAnnounce byte = 0x00
	tagReply    byte = 0x01
	tagData     byte = 0x02
)

// wireFrame is the marshalled form of overlay.Frame. Identities are
// fixed 32-byte Go arrays, but gospel/data's reflect-based coder only
// understands byte slices (via a size tag) and nested structs, not
// fixed-size arrays directly, so every identity crosses the wire as a
// size-tagged []byte and is converted back to overlay.Identity here.
type wireFrame struct {
	Sender     []byte `size:"32"`
	RecipKind  uint8
	RecipUser  []byte `size:"32"`
	SeqID      []byte `size:"32"`
	Num        uint32 `order:"big"`
	HasNext    uint8
	PayloadLen uint16 `order:"big"`
	Payload    []byte `size:"PayloadLen"`
}

func toWireFrame(f overlay.Frame) wireFrame {
	hasNext := uint8(0)
	if f.Seq.HasNext {
		hasNext = 1
	}
	return wireFrame{
		Sender:     f.Sender.Bytes(),
		RecipKind:  uint8(f.Recipient.Kind),
		RecipUser:  f.Recipient.User.Bytes(),
		SeqID:      f.Seq.SeqID.Bytes(),
		Num:        f.Seq.Num,
		HasNext:    hasNext,
		PayloadLen: uint16(len(f.Payload)),
		Payload:    f.Payload,
	}
}

func (w wireFrame) toFrame() overlay.Frame {
	return overlay.Frame{
		Sender: overlay.IdentityFromBytes(w.Sender),
		Recipient: overlay.Recipient{
			Kind: overlay.RecipientKind(w.RecipKind),
			User: overlay.IdentityFromBytes(w.RecipUser),
		},
		Seq: overlay.FrameSeq{
			SeqID:   overlay.IdentityFromBytes(w.SeqID),
			Num:     w.Num,
			HasNext: w.HasNext != 0,
		},
		Payload: w.Payload,
	}
}

// encodeFrame builds a Data-tagged datagram carrying one frame.
func encodeFrame(f overlay.Frame) ([]byte, error) {
	if len(f.Payload) > 0xFFFF {
		return nil, fmt.Errorf("udp: frame payload exceeds wire length limit")
	}
	body, err := data.Marshal(toWireFrame(f))
	if err != nil {
		return nil, fmt.Errorf("udp: frame marshal failed: %w", err)
	}
	return append([]byte{tagData}, body...), nil
}

// encodeAnnounce and encodeReply build the bodyless discovery datagrams.
func encodeAnnounce() []byte { return []byte{tagAnnounce} }
func encodeReply() []byte    { return []byte{tagReply} }

// decodeEnvelope parses an inbound datagram's tag and, for a Data
// envelope, its frame body. An empty or unrecognised tag is reported as
// an error so the receive loop can drop it without crashing.
func decodeEnvelope(raw []byte) (tag byte, frame overlay.Frame, err error) {
	if len(raw) == 0 {
		return 0, overlay.Frame{}, fmt.Errorf("udp: empty datagram")
	}
	tag = raw[0]
	switch tag {
	case tagAnnounce, tagReply:
		return tag, overlay.Frame{}, nil
	case tagData:
		var wf wireFrame
		if err = data.Unmarshal(&wf, raw[1:]); err != nil {
			return tag, overlay.Frame{}, fmt.Errorf("udp: frame unmarshal failed: %w", err)
		}
		return tag, wf.toFrame(), nil
	default:
		return tag, overlay.Frame{}, fmt.Errorf("udp: unknown envelope tag 0x%02x", tag)
	}
}
