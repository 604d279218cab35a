// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

// Package ipc is the TCP daemon local clients speak to: authentication,
// send/receive and peer enumeration over a length-prefixed wire
// protocol.
package ipc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bfix/gospel/data"

	"ratnet/overlay"
	"ratnet/util"
)

// arm discriminates the four top-level envelope variants.
type arm uint8

const (
	armSetup arm = iota
	armSend
	armRecv
	armPeers
)

// setup subtypes.
const (
	setupOnline uint8 = iota
	setupAnonymous
	setupOnlineAck
)

// peers subtypes.
const (
	peersReq uint8 = iota
	peersResp
)

const maxEnvelopeBody = 1 << 20 // 1 MiB, generous for a local IPC peer

// wireSetup is the setup arm's body: registration/login and its ack.
type wireSetup struct {
	Type     uint8
	HasID    uint8
	ID       []byte `size:"32"`
	HasToken uint8
	TokenLen uint16 `order:"big"`
	Token    []byte `size:"TokenLen"`
}

// wireSend is the client->server outbound-message arm.
type wireSend struct {
	Sender       []byte `size:"32"`
	HasRecipient uint8
	Recipient    []byte `size:"32"`
	PayloadLen   uint16 `order:"big"`
	Payload      []byte `size:"PayloadLen"`
	SignLen      uint16 `order:"big"`
	Sign         []byte `size:"SignLen"`
}

// wireRecv is the server->client unsolicited delivery arm.
type wireRecv struct {
	ID           []byte `size:"32"`
	Sender       []byte `size:"32"`
	HasRecipient uint8
	Recipient    []byte `size:"32"`
	PayloadLen   uint16 `order:"big"`
	Payload      []byte `size:"PayloadLen"`
	Sent         util.AbsoluteTime
	Received     util.AbsoluteTime
	SignLen      uint16 `order:"big"`
	Sign         []byte `size:"SignLen"`
}

// peerEntry is one element of a peers{RESP} list. gospel/data marshals
// slices of structs natively but not slices of bare integers, hence the
// one-field wrapper.
type peerEntry struct {
	ID uint32 `order:"big"`
}

// wirePeers is the peer-enumeration arm, request and response sharing
// one body (PeerCount/Peers are empty on a request).
type wirePeers struct {
	Type      uint8
	PeerCount uint16 `order:"big"`
	Peers     []peerEntry `size:"PeerCount"`
}

// writeEnvelope frames [arm byte][4-byte BE length][marshalled body] and
// writes it in one call, so concurrent writers (the request loop and the
// relay task) never interleave a partial frame onto the wire.
func writeEnvelope(w io.Writer, a arm, body interface{}) error {
	raw, err := data.Marshal(body)
	if err != nil {
		return fmt.Errorf("ipc: marshal envelope: %w", err)
	}
	frame := make([]byte, 1+4+len(raw))
	frame[0] = byte(a)
	binary.BigEndian.PutUint32(frame[1:5], uint32(len(raw)))
	copy(frame[5:], raw)
	_, err = w.Write(frame)
	return err
}

// readEnvelope reads one length-prefixed arm+body frame.
func readEnvelope(r io.Reader) (arm, []byte, error) {
	hdr := make([]byte, 5)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return 0, nil, err
	}
	a := arm(hdr[0])
	n := binary.BigEndian.Uint32(hdr[1:5])
	if n > maxEnvelopeBody {
		return a, nil, fmt.Errorf("ipc: envelope body too large (%d bytes)", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return a, nil, err
	}
	return a, body, nil
}

func unmarshalInto(obj interface{}, body []byte) error {
	if err := data.Unmarshal(obj, body); err != nil {
		return fmt.Errorf("ipc: malformed envelope body: %w", err)
	}
	return nil
}

func idOrZero(has uint8, raw []byte) overlay.Identity {
	if has == 0 {
		return overlay.ZeroIdentity
	}
	return overlay.IdentityFromBytes(raw)
}
