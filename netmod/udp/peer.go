// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

// Package udp is the UDP netmod: local-network peer discovery via
// multicast announce/reply, and frame transport over unicast UDP
// datagrams.
package udp

import (
	"fmt"
	"net"
)

// MulticastGroup and MulticastPort are the fixed local-network discovery
// rendezvous point every node on a segment announces itself to.
const (
	MulticastGroup = "224.0.0.123"
	MulticastPort  = 12322
)

// Peer is a netmod-local handle identifying one UDP endpoint by address.
// It carries no overlay identity: that mapping lives in AddressTable.
type Peer struct {
	IP   net.IP
	Port int
}

// Key returns a canonical string form usable as a map key, collapsing
// IPv4-mapped and plain IPv4 representations to the same string.
func (p Peer) Key() string {
	return fmt.Sprintf("%s:%d", p.IP.String(), p.Port)
}

func (p Peer) String() string {
	return p.Key()
}

// Addr returns the net.UDPAddr form used to address this peer.
func (p Peer) Addr() *net.UDPAddr {
	return &net.UDPAddr{IP: p.IP, Port: p.Port}
}

// peerFromUDPAddr builds a Peer from the address a datagram arrived
// from.
func peerFromUDPAddr(addr *net.UDPAddr) Peer {
	return Peer{IP: addr.IP, Port: addr.Port}
}
