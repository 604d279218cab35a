// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultPopulatesDocumentedDefaults(t *testing.T) {
	d := Default()
	if d.IPC.Bind != "127.0.0.1:9020" {
		t.Fatalf("IPC.Bind = %q", d.IPC.Bind)
	}
	if d.Journal.TTL.Duration() != 10*time.Minute {
		t.Fatalf("Journal.TTL = %s, want 10m", d.Journal.TTL.Duration())
	}
	if d.Collector.ReassemblyTTL.Duration() != 2*time.Minute {
		t.Fatalf("Collector.ReassemblyTTL = %s, want 2m", d.Collector.ReassemblyTTL.Duration())
	}
	if d.Store != "memory" {
		t.Fatalf("Store = %q, want memory", d.Store)
	}
}

func TestParseOverridesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	writeJSON(t, path, map[string]interface{}{
		"ipc": map[string]interface{}{"bind": "127.0.0.1:9999"},
	})

	if err := Parse(path); err != nil {
		t.Fatalf("Parse failed: %s", err)
	}
	if Cfg.IPC.Bind != "127.0.0.1:9999" {
		t.Fatalf("IPC.Bind = %q, want override", Cfg.IPC.Bind)
	}
	// unset fields keep their Default() value
	if Cfg.Store != "memory" {
		t.Fatalf("Store = %q, want default", Cfg.Store)
	}
	if Cfg.Journal.TTL.Duration() != 10*time.Minute {
		t.Fatalf("Journal.TTL = %s, want default 10m", Cfg.Journal.TTL.Duration())
	}
}

func TestParseMissingFileFails(t *testing.T) {
	if err := Parse(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	writeRaw(t, path, "{not json")
	if err := Parse(path); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestEnvironSubstitutionAppliesToNestedStringFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	writeJSON(t, path, map[string]interface{}{
		"environ": map[string]string{
			"HOST": "10.0.0.5",
			"PORT": "9030",
		},
		"ipc":   map[string]interface{}{"bind": "${HOST}:${PORT}"},
		"store": "sqlite://${HOST}/ratnet.db",
	})

	if err := Parse(path); err != nil {
		t.Fatalf("Parse failed: %s", err)
	}
	if Cfg.IPC.Bind != "10.0.0.5:9030" {
		t.Fatalf("IPC.Bind = %q, want substituted", Cfg.IPC.Bind)
	}
	if Cfg.Store != "sqlite://10.0.0.5/ratnet.db" {
		t.Fatalf("Store = %q, want substituted", Cfg.Store)
	}
}

func TestEnvironSubstitutionLeavesUnknownVarUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	writeJSON(t, path, map[string]interface{}{
		"ipc": map[string]interface{}{"bind": "${UNDEFINED}"},
	})
	if err := Parse(path); err != nil {
		t.Fatalf("Parse failed: %s", err)
	}
	if Cfg.IPC.Bind != "${UNDEFINED}" {
		t.Fatalf("IPC.Bind = %q, want the placeholder left as-is", Cfg.IPC.Bind)
	}
}

func TestDurationUnmarshalsFromStringAndNumber(t *testing.T) {
	var d Duration
	if err := json.Unmarshal([]byte(`"90s"`), &d); err != nil {
		t.Fatalf("unmarshal string form failed: %s", err)
	}
	if d.Duration() != 90*time.Second {
		t.Fatalf("Duration = %s, want 90s", d.Duration())
	}

	var d2 Duration
	if err := json.Unmarshal([]byte(`1500000000`), &d2); err != nil {
		t.Fatalf("unmarshal numeric form failed: %s", err)
	}
	if d2.Duration() != 1500*time.Millisecond {
		t.Fatalf("Duration = %s, want 1.5s", d2.Duration())
	}
}

func TestDurationUnmarshalRejectsBadString(t *testing.T) {
	var d Duration
	if err := json.Unmarshal([]byte(`"not-a-duration"`), &d); err == nil {
		t.Fatal("expected an error for an unparsable duration string")
	}
}

func writeJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture failed: %s", err)
	}
	writeRaw(t, path, string(raw))
}

func writeRaw(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture failed: %s", err)
	}
}
