// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package overlay

import (
	"fmt"

	"github.com/bfix/gospel/data"

	"ratnet/util"
)

// TimeSig carries the two timestamps attached to every message: when the
// sender produced it, and when the local collector finished reassembling
// it. Both use the millisecond-resolution wire timestamp type
// (util.AbsoluteTime) rather than time.Time, because TimeSig is itself
// marshalled as part of the inner payload envelope below and the
// reflect-based marshaller only understands fixed-width integers, byte
// slices and nested structs.
type TimeSig struct {
	Sent     util.AbsoluteTime
	Received util.AbsoluteTime
}

// wirePayload is the serialised form of a message's inner envelope:
// application payload, time signature and signature bytes, in the order
// the router slices them into frames and the collector restores them
// back out. Length-prefixing the variable fields is what lets
// gospel/data's size tag reconstruct them on Unmarshal.
type wirePayload struct {
	PayloadLen uint16 `order:"big"`
	Payload    []byte `size:"PayloadLen"`
	Sig        TimeSig
	SignLen    uint16 `order:"big"`
	Sign       []byte `size:"SignLen"`
}

// Message is the fully reassembled, application-level unit a collector
// hands to the router once every frame of a sequence has arrived: the
// counterpart to Frame, which is the unit netmods move over the wire.
type Message struct {
	Sender    Identity
	Recipient Recipient
	SeqID     Identity
	Payload   []byte
	TimeSig   TimeSig
	Sign      []byte
}

// Marshal serialises the message's inner envelope (payload, time
// signature, signature) to bytes, ready to be handed to Slice. The
// routing metadata (Sender, Recipient, SeqID) travels alongside each
// Frame instead, so it is not part of this envelope.
func (m Message) Marshal() ([]byte, error) {
	if len(m.Payload) > 0xFFFF || len(m.Sign) > 0xFFFF {
		return nil, fmt.Errorf("overlay: payload or signature exceeds wire length limit")
	}
	wp := wirePayload{
		PayloadLen: uint16(len(m.Payload)),
		Payload:    m.Payload,
		Sig:        m.TimeSig,
		SignLen:    uint16(len(m.Sign)),
		Sign:       m.Sign,
	}
	return data.Marshal(&wp)
}

// UnmarshalPayload decodes a restored frame-chain's bytes back into the
// payload, time signature and signature fields of a Message. Sender,
// Recipient and SeqID are not touched: the caller fills those in from
// the frame chain's routing metadata.
func UnmarshalPayload(raw []byte) (payload []byte, sig TimeSig, sign []byte, err error) {
	var wp wirePayload
	if err = data.Unmarshal(&wp, raw); err != nil {
		return nil, TimeSig{}, nil, fmt.Errorf("overlay: malformed payload envelope: %w", err)
	}
	return wp.Payload, wp.Sig, wp.Sign, nil
}
