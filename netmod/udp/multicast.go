// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package udp

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

// ipv4PacketConn wraps a UDP connection for multicast group management.
// golang.org/x/net/ipv4 is needed here because the standard library's
// net package offers no way to join a multicast group on a socket that
// is already bound to a specific unicast address (only
// ListenMulticastUDP, which binds to the group itself and cannot also
// send/receive ordinary unicast frames on the same socket).
func ipv4PacketConn(conn *net.UDPConn) *ipv4.PacketConn {
	return ipv4.NewPacketConn(conn)
}

// defaultMulticastInterface picks the first up, multicast-capable,
// non-loopback network interface, which is good enough for the
// single-segment local-network discovery this netmod implements.
func defaultMulticastInterface() (*net.Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for i := range ifaces {
		iface := &ifaces[i]
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		if iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		return iface, nil
	}
	return nil, fmt.Errorf("udp: no multicast-capable interface found")
}
