// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

// Package config holds the daemon's JSON-decoded configuration, with
// ${VAR} environment substitution applied to every string field after
// decoding.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/bfix/gospel/logger"
)

// IPCConfig configures the IPC TCP daemon.
type IPCConfig struct {
	Bind string `json:"bind"` // default "127.0.0.1:9020"
}

// UDPConfig configures the UDP netmod.
type UDPConfig struct {
	Bind            string `json:"bind"`            // this node's own UDP endpoint
	MulticastGroup  string `json:"multicastGroup"`  // default "224.0.0.123"
	MulticastPort   int    `json:"multicastPort"`   // default 12322
}

// JournalConfig configures seen-seqid eviction.
type JournalConfig struct {
	TTL Duration `json:"ttl"` // default 10m; 0 disables eviction
}

// CollectorConfig configures reassembly bookkeeping.
type CollectorConfig struct {
	ReassemblyTTL Duration `json:"reassemblyTTL"` // default 2m; 0 disables eviction
}

// AdminConfig configures the optional status/metrics HTTP surface.
type AdminConfig struct {
	Bind string `json:"bind"` // empty disables the admin surface
}

// Environ is the substitution dictionary for ${VAR} references anywhere
// in the config's string fields.
type Environ map[string]string

// Config is the aggregated daemon configuration.
type Config struct {
	Env       Environ         `json:"environ"`
	IPC       IPCConfig       `json:"ipc"`
	UDP       UDPConfig       `json:"udp"`
	Journal   JournalConfig   `json:"journal"`
	Collector CollectorConfig `json:"collector"`
	Admin     AdminConfig     `json:"admin"`
	// Store is a spec string for the journal's backing store: "memory"
	// (default), "redis://...", "sqlite://...", "mysql://...".
	Store string `json:"store"`
}

// Cfg is the process-wide configuration, populated by Parse.
var Cfg *Config

// Default returns a Config populated with the documented defaults.
func Default() *Config {
	return &Config{
		Env: Environ{},
		IPC: IPCConfig{Bind: "127.0.0.1:9020"},
		UDP: UDPConfig{
			Bind:           "0.0.0.0:12322",
			MulticastGroup: "224.0.0.123",
			MulticastPort:  12322,
		},
		Journal:   JournalConfig{TTL: Duration(10 * time.Minute)},
		Collector: CollectorConfig{ReassemblyTTL: Duration(2 * time.Minute)},
		Store:     "memory",
	}
}

// Parse reads a JSON configuration file, applies ${VAR} substitutions
// from its own "environ" section, and sets Cfg. Defaults are applied
// first so a config file may override only the fields it cares about.
func Parse(fileName string) error {
	raw, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", fileName, err)
	}
	Cfg = Default()
	if err := json.Unmarshal(raw, Cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", fileName, err)
	}
	applySubstitutions(Cfg, Cfg.Env)
	return nil
}

var substRx = regexp.MustCompile(`\$\{([^\}]*)\}`)

func substString(s string, env map[string]string) string {
	for _, m := range substRx.FindAllStringSubmatch(s, -1) {
		if val, ok := env[m[1]]; ok {
			s = strings.ReplaceAll(s, "${"+m[1]+"}", val)
		}
	}
	return s
}

// applySubstitutions walks x's exported string fields (recursing into
// nested structs and pointers) and replaces ${VAR} references using
// env, repeating until a pass makes no further change.
func applySubstitutions(x interface{}, env map[string]string) {
	var process func(v reflect.Value)
	process = func(v reflect.Value) {
		for i := 0; i < v.NumField(); i++ {
			fld := v.Field(i)
			if !fld.CanSet() {
				continue
			}
			switch fld.Kind() {
			case reflect.String:
				s := fld.String()
				for {
					next := substString(s, env)
					if next == s {
						break
					}
					logger.Printf(logger.DBG, "[config] %s --> %s", s, next)
					s = next
				}
				fld.SetString(s)
			case reflect.Struct:
				process(fld)
			case reflect.Ptr:
				if e := fld.Elem(); e.IsValid() {
					process(e)
				}
			}
		}
	}
	v := reflect.ValueOf(x)
	if v.Kind() == reflect.Ptr {
		if e := v.Elem(); e.IsValid() {
			process(e)
		}
	}
}
