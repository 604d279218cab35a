// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration that unmarshals from either a JSON
// string ("10m", "90s") or a plain integer number of nanoseconds, so
// config files can use the readable form.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var asString string
	if err := json.Unmarshal(b, &asString); err == nil {
		parsed, err := time.ParseDuration(asString)
		if err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", asString, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var asNanos int64
	if err := json.Unmarshal(b, &asNanos); err != nil {
		return fmt.Errorf("config: duration must be a string or number: %w", err)
	}
	*d = Duration(asNanos)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
