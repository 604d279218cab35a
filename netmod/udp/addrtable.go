// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package udp

import (
	"fmt"
	"sync/atomic"

	"ratnet/util"
)

// AddressTable is the bijection between netmod-local peer handles and
// the small integer ids the socket's inbox and the router's Dispatcher
// interface pass around. The id counter is scoped to the table instance
// rather than process-global, so a process may in principle run more
// than one netmod, each with its own id space.
type AddressTable struct {
	byID   *util.Map[int, Peer]
	byPeer *util.Map[string, int]
	nextID int64
}

// NewAddressTable creates an empty table.
func NewAddressTable() *AddressTable {
	return &AddressTable{
		byID:   util.NewMap[int, Peer](),
		byPeer: util.NewMap[string, int](),
	}
}

// Set records (or refreshes) a peer's presence, assigning it a fresh id
// the first time it is seen.
func (t *AddressTable) Set(p Peer) int {
	key := p.Key()
	if id, ok := t.byPeer.Get(key); ok {
		t.byID.Put(id, p)
		return id
	}
	id := int(atomic.AddInt64(&t.nextID, 1))
	t.byPeer.Put(key, id)
	t.byID.Put(id, p)
	return id
}

// ID looks up the id assigned to a peer, if any.
func (t *AddressTable) ID(p Peer) (int, error) {
	id, ok := t.byPeer.Get(p.Key())
	if !ok {
		return 0, fmt.Errorf("udp: unknown peer %s", p)
	}
	return id, nil
}

// Peer looks up the peer behind an id, if any.
func (t *AddressTable) Peer(id int) (Peer, error) {
	p, ok := t.byID.Get(id)
	if !ok {
		return Peer{}, fmt.Errorf("udp: unknown peer id %d", id)
	}
	return p, nil
}

// All returns every known peer, keyed by id, for flood sends and the
// router's KnownAddresses surface.
func (t *AddressTable) All() map[int]Peer {
	out := make(map[int]Peer, t.byID.Size())
	_ = t.byID.ProcessRange(func(id int, p Peer) error {
		out[id] = p
		return nil
	}, true)
	return out
}
