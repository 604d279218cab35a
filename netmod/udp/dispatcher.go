// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package udp

import (
	"context"
	"fmt"

	"ratnet/overlay"
)

// Netmod adapts a Socket and its AddressTable to router.Dispatcher,
// translating between the router's local-peer-ids and this netmod's
// Peer handles.
type Netmod struct {
	sock  *Socket
	table *AddressTable
}

// NewNetmod wraps a bound socket for use as a router.Dispatcher.
func NewNetmod(sock *Socket, table *AddressTable) *Netmod {
	return &Netmod{sock: sock, table: table}
}

func (n *Netmod) Send(f overlay.Frame, id int) error {
	p, err := n.table.Peer(id)
	if err != nil {
		return fmt.Errorf("udp: %w", err)
	}
	return n.sock.Send(f, p)
}

func (n *Netmod) SendMany(f overlay.Frame, ids []int) {
	peers := make([]Peer, 0, len(ids))
	for _, id := range ids {
		if p, err := n.table.Peer(id); err == nil {
			peers = append(peers, p)
		}
	}
	n.sock.SendMany(f, peers)
}

func (n *Netmod) Peers() []int {
	all := n.table.All()
	ids := make([]int, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	return ids
}

func (n *Netmod) Next(ctx context.Context) (overlay.Frame, int, error) {
	inc, err := n.sock.Next(ctx)
	if err != nil {
		return overlay.Frame{}, 0, err
	}
	return inc.Frame, inc.PeerID, nil
}
