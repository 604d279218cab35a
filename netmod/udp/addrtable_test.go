// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package udp

import (
	"net"
	"testing"
)

func mkPeer(port int) Peer {
	return Peer{IP: net.ParseIP("10.0.0.1"), Port: port}
}

func TestAddressTableSetAssignsStableID(t *testing.T) {
	table := NewAddressTable()
	p := mkPeer(1111)
	id1 := table.Set(p)
	id2 := table.Set(p)
	if id1 != id2 {
		t.Fatalf("Set on the same peer returned different ids: %d != %d", id1, id2)
	}
}

func TestAddressTableSetAssignsDistinctIDs(t *testing.T) {
	table := NewAddressTable()
	id1 := table.Set(mkPeer(1111))
	id2 := table.Set(mkPeer(2222))
	if id1 == id2 {
		t.Fatal("two distinct peers were assigned the same id")
	}
}

func TestAddressTableIDAndPeerAreInverse(t *testing.T) {
	table := NewAddressTable()
	p := mkPeer(3333)
	id := table.Set(p)

	gotID, err := table.ID(p)
	if err != nil || gotID != id {
		t.Fatalf("ID() = %d, %v, want %d, nil", gotID, err, id)
	}
	gotPeer, err := table.Peer(id)
	if err != nil || gotPeer != p {
		t.Fatalf("Peer() = %v, %v, want %v, nil", gotPeer, err, p)
	}
}

func TestAddressTableUnknownLookupsFail(t *testing.T) {
	table := NewAddressTable()
	if _, err := table.ID(mkPeer(9999)); err == nil {
		t.Fatal("expected an error looking up an unregistered peer")
	}
	if _, err := table.Peer(424242); err == nil {
		t.Fatal("expected an error looking up an unassigned id")
	}
}

func TestAddressTableAllListsEveryPeer(t *testing.T) {
	table := NewAddressTable()
	p1, p2 := mkPeer(1), mkPeer(2)
	id1 := table.Set(p1)
	id2 := table.Set(p2)

	all := table.All()
	if len(all) != 2 {
		t.Fatalf("All() returned %d entries, want 2", len(all))
	}
	if all[id1] != p1 || all[id2] != p2 {
		t.Fatal("All() did not map ids back to their peers correctly")
	}
}
