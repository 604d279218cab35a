// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

// Package journal tracks which frame sequence ids a router has already
// seen, so duplicate and looped flood traffic can be dropped instead of
// relayed forever.
package journal

import (
	"context"
	"time"

	"github.com/bfix/gospel/logger"

	"ratnet/overlay"
	"ratnet/store"
)

// Journal is the seen-SeqID set used for flood loop suppression. Entries
// are insertion-only within a sliding TTL window: Save never fails, and
// Unknown only ever reports false for an id this journal has already
// saved and not yet evicted.
type Journal struct {
	known store.Store[string, time.Time]
	ttl   time.Duration
}

// New creates a journal backed by the given store. A nil/zero ttl
// disables eviction (entries live until the process exits); a positive
// ttl bounds memory at the cost of re-admitting very old sequence ids
// for reflood.
func New(backing store.Store[string, time.Time], ttl time.Duration) *Journal {
	return &Journal{
		known: backing,
		ttl:   ttl,
	}
}

// Run starts the background eviction sweep and blocks until ctx is
// cancelled. Callers spawn this as a goroutine, mirroring every other
// long-running task in this router.
func (j *Journal) Run(ctx context.Context) {
	if j.ttl <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(j.ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Journal) sweep() {
	keys, err := j.known.List()
	if err != nil {
		logger.Printf(logger.WARN, "[journal] sweep list failed: %s", err.Error())
		return
	}
	cutoff := time.Now().Add(-j.ttl)
	evicted := 0
	for _, key := range keys {
		seen, err := j.known.Get(key)
		if err != nil {
			continue
		}
		if seen.Before(cutoff) {
			if err := j.known.Delete(key); err == nil {
				evicted++
			}
		}
	}
	if evicted > 0 {
		logger.Printf(logger.DBG, "[journal] evicted %d seqids older than %s", evicted, j.ttl)
	}
}

// Save marks a sequence id as seen, stamping it with the current time
// for later TTL eviction.
func (j *Journal) Save(id overlay.Identity) {
	if err := j.known.Put(id.Hex(), time.Now()); err != nil {
		logger.Printf(logger.ERROR, "[journal] save failed for %s: %s", id, err.Error())
	}
}

// Unknown reports whether a sequence id has not been seen before (or has
// aged out of the TTL window and is being treated as new again).
func (j *Journal) Unknown(id overlay.Identity) bool {
	_, err := j.known.Get(id.Hex())
	return err != nil
}

// Size reports how many sequence ids the journal currently holds, used
// by the metrics package's journal_size gauge.
func (j *Journal) Size() int {
	keys, err := j.known.List()
	if err != nil {
		return 0
	}
	return len(keys)
}
