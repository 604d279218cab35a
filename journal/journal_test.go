// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package journal

import (
	"context"
	"testing"
	"time"

	"ratnet/overlay"
	"ratnet/store"
)

func newMemJournal(ttl time.Duration) *Journal {
	return New(store.NewTimeStore(store.NewMemoryStore[string, string]()), ttl)
}

func TestUnknownThenSave(t *testing.T) {
	j := newMemJournal(0)
	id := overlay.RandomIdentity()
	if !j.Unknown(id) {
		t.Fatal("a never-seen id must be reported Unknown")
	}
	j.Save(id)
	if j.Unknown(id) {
		t.Fatal("a saved id must no longer be Unknown")
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	j := newMemJournal(0)
	id := overlay.RandomIdentity()
	j.Save(id)
	j.Save(id)
	if j.Size() != 1 {
		t.Fatalf("Size = %d, want 1 after saving the same id twice", j.Size())
	}
}

func TestSweepEvictsOnlyExpiredEntries(t *testing.T) {
	j := newMemJournal(time.Minute)
	fresh := overlay.RandomIdentity()
	stale := overlay.RandomIdentity()

	j.Save(fresh)
	// Backdate the stale entry directly in the backing store so the
	// sweep has something past its cutoff without sleeping in the test.
	if err := j.known.Put(stale.Hex(), time.Now().Add(-2*time.Minute)); err != nil {
		t.Fatalf("setup Put failed: %s", err)
	}

	j.sweep()

	if j.Unknown(fresh) {
		t.Fatal("sweep evicted a fresh entry")
	}
	if !j.Unknown(stale) {
		t.Fatal("sweep did not evict a stale entry")
	}
}

func TestRunWithZeroTTLNeverSweeps(t *testing.T) {
	j := newMemJournal(0)
	stale := overlay.RandomIdentity()
	if err := j.known.Put(stale.Hex(), time.Now().Add(-24*time.Hour)); err != nil {
		t.Fatalf("setup Put failed: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	if j.Unknown(stale) {
		t.Fatal("Run with a zero TTL must never evict")
	}
}
