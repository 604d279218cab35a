// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package ipc

import (
	"context"
	"net"
	"testing"
	"time"

	"ratnet/journal"
	"ratnet/overlay"
	"ratnet/router"
	"ratnet/store"
)

// nullDispatcher is a router.Dispatcher that never produces inbound
// frames and just records outbound ones, enough to exercise the IPC
// session handshake and send/peers arms without a real transport.
type nullDispatcher struct {
	peers    []int
	sentMany [][]int
}

func (d *nullDispatcher) Send(f overlay.Frame, id int) error { return nil }
func (d *nullDispatcher) SendMany(f overlay.Frame, ids []int) {
	d.sentMany = append(d.sentMany, ids)
}
func (d *nullDispatcher) Peers() []int { return d.peers }
func (d *nullDispatcher) Next(ctx context.Context) (overlay.Frame, int, error) {
	<-ctx.Done()
	return overlay.Frame{}, 0, ctx.Err()
}

func newTestDaemon(t *testing.T, peers ...int) (*Daemon, context.CancelFunc) {
	t.Helper()
	j := journal.New(store.NewTimeStore(store.NewMemoryStore[string, string]()), 0)
	r := router.New(j, 0, &nullDispatcher{peers: peers})
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	return New("unused:0", r), cancel
}

func serveOnPipe(d *Daemon) net.Conn {
	client, server := net.Pipe()
	s := newSession(server, d)
	go s.serve()
	return client
}

func TestAuthenticateOnlineWithoutIDAssignsRandomIdentity(t *testing.T) {
	d, cancel := newTestDaemon(t)
	defer cancel()
	client := serveOnPipe(d)
	defer client.Close()

	if err := writeEnvelope(client, armSetup, wireSetup{Type: setupOnline}); err != nil {
		t.Fatalf("write setup failed: %s", err)
	}
	a, body, err := readEnvelope(client)
	if err != nil {
		t.Fatalf("read ack failed: %s", err)
	}
	if a != armSetup {
		t.Fatalf("ack arm = %d, want armSetup", a)
	}
	var ack wireSetup
	if err := unmarshalInto(&ack, body); err != nil {
		t.Fatalf("unmarshal ack failed: %s", err)
	}
	if ack.Type != setupOnlineAck || ack.HasID == 0 {
		t.Fatalf("ack = %+v, want a setupOnlineAck with an assigned id", ack)
	}
	if overlay.IdentityFromBytes(ack.ID).IsZero() {
		t.Fatal("assigned identity must not be the zero identity")
	}
}

func TestAuthenticateAnonymousGetsNoAck(t *testing.T) {
	d, cancel := newTestDaemon(t)
	defer cancel()
	client := serveOnPipe(d)
	defer client.Close()

	if err := writeEnvelope(client, armSetup, wireSetup{Type: setupAnonymous}); err != nil {
		t.Fatalf("write setup failed: %s", err)
	}

	client.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := readEnvelope(client)
	if err == nil {
		t.Fatal("anonymous setup must not produce an ack envelope")
	}
}

func TestAuthenticateRejectsMalformedFirstEnvelope(t *testing.T) {
	d, cancel := newTestDaemon(t)
	defer cancel()
	client := serveOnPipe(d)
	defer client.Close()

	// setupOnline with a token but no id matches none of the three
	// accepted rows and must be rejected.
	bad := wireSetup{Type: setupOnline, HasID: 0, HasToken: 1, TokenLen: 3, Token: []byte("xyz")}
	if err := writeEnvelope(client, armSetup, bad); err != nil {
		t.Fatalf("write setup failed: %s", err)
	}

	buf := make([]byte, 1)
	client.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, err := client.Read(buf); err == nil {
		t.Fatal("expected the connection to be closed after a rejected handshake")
	}
}

func TestPeersRequestReturnsKnownPeers(t *testing.T) {
	d, cancel := newTestDaemon(t, 1, 2, 3)
	defer cancel()
	client := serveOnPipe(d)
	defer client.Close()

	if err := writeEnvelope(client, armSetup, wireSetup{Type: setupOnline}); err != nil {
		t.Fatalf("write setup failed: %s", err)
	}
	if _, _, err := readEnvelope(client); err != nil {
		t.Fatalf("read ack failed: %s", err)
	}

	if err := writeEnvelope(client, armPeers, wirePeers{Type: peersReq}); err != nil {
		t.Fatalf("write peers request failed: %s", err)
	}
	a, body, err := readEnvelope(client)
	if err != nil {
		t.Fatalf("read peers response failed: %s", err)
	}
	if a != armPeers {
		t.Fatalf("arm = %d, want armPeers", a)
	}
	var resp wirePeers
	if err := unmarshalInto(&resp, body); err != nil {
		t.Fatalf("unmarshal peers response failed: %s", err)
	}
	if resp.PeerCount != 3 {
		t.Fatalf("PeerCount = %d, want 3", resp.PeerCount)
	}
}

func TestOneSessionParseErrorDoesNotAffectAnother(t *testing.T) {
	d, cancel := newTestDaemon(t)
	defer cancel()

	bad := serveOnPipe(d)
	good := serveOnPipe(d)
	defer good.Close()

	// malformed handshake: a body shorter than the length prefix claims
	bad.Write([]byte{byte(armSetup), 0, 0, 0, 50})
	bad.Write([]byte("short"))
	bad.Close()

	if err := writeEnvelope(good, armSetup, wireSetup{Type: setupOnline}); err != nil {
		t.Fatalf("write setup on good session failed: %s", err)
	}
	good.SetReadDeadline(time.Now().Add(time.Second))
	a, _, err := readEnvelope(good)
	if err != nil {
		t.Fatalf("good session did not complete its handshake: %s", err)
	}
	if a != armSetup {
		t.Fatalf("arm = %d, want armSetup", a)
	}
}
