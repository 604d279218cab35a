// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package util

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"testing"
)

// precomputed Crockford base32 encodings across a range of binary
// widths, from 1 byte up to the 32-byte width Identity.String() encodes.
var base32Vectors = []struct {
	bin []byte
	str string
}{
	{[]byte{0xD4}, "TG"},
	{[]byte{0x78, 0xD3}, "F39G"},
	{[]byte{0x43, 0xA4, 0x59, 0x57}, "8EJ5JNR"},
	{[]byte{0x59, 0x40, 0xB3, 0x2D, 0xB8, 0x86, 0x61, 0xC2}, "B50B6BDRGSGW4"},
	{[]byte{
		0xF9, 0x7F, 0x85, 0x6D, 0x8D, 0x8D, 0x65, 0x91,
		0x50, 0x3A, 0x2F, 0x36, 0x9F, 0x63, 0x01, 0x45,
	}, "Z5ZRAVCDHNJS2M1T5WV9YRR18M"},
	{[]byte{
		0x7B, 0x46, 0x0D, 0xFD, 0xC9, 0x04, 0xA6, 0x99,
		0x54, 0x94, 0xB0, 0xCE, 0xFE, 0x17, 0x72, 0x31,
		0xC8, 0x90, 0xBA, 0x9F, 0x3C, 0xD1, 0x42, 0xA1,
	}, "FD30VZE90JK9JN4MP37FW5VJ67491EMZ7K8M588"},
	{[]byte{
		0xC0, 0x78, 0x05, 0x04, 0xB8, 0xE2, 0x4A, 0xA5,
		0x61, 0x82, 0xCE, 0xCC, 0xE3, 0xCA, 0x53, 0x01,
		0x67, 0x5F, 0xA3, 0x05, 0xA9, 0x27, 0xC5, 0xE2,
		0x6B, 0xB5, 0xB5, 0x86, 0xAB, 0x84, 0x32, 0x6C,
	}, "R1W0A15RW95AARC2SV6E7JJK05KNZ8R5N4KWBRKBPPTRDAW469P0"},
}

func TestEncodeBinaryToStringMatchesVectors(t *testing.T) {
	for _, v := range base32Vectors {
		t.Run(hex.EncodeToString(v.bin), func(t *testing.T) {
			if got := EncodeBinaryToString(v.bin); got != v.str {
				t.Fatalf("got %q, want %q", got, v.str)
			}
		})
	}
}

func TestDecodeStringToBinaryMatchesVectors(t *testing.T) {
	for _, v := range base32Vectors {
		t.Run(v.str, func(t *testing.T) {
			got, err := DecodeStringToBinary(v.str, len(v.bin))
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, v.bin) {
				t.Fatalf("got %x, want %x", got, v.bin)
			}
		})
	}
}

func TestBase32RoundTripRandom(t *testing.T) {
	buf := make([]byte, 32) // overlay.Identity's width
	for i := 0; i < 100; i++ {
		if _, err := rand.Read(buf); err != nil {
			t.Fatal(err)
		}
		s := EncodeBinaryToString(buf)
		got, err := DecodeStringToBinary(s, len(buf))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(buf, got) {
			t.Fatalf("round trip mismatch for %s", s)
		}
	}
}

func TestDecodeStringToBinaryAcceptsTranscriptionTolerances(t *testing.T) {
	bin := []byte("Hello World")
	canonical := EncodeBinaryToString(bin)
	withSubstitutions := "91JPRU3F4IBPYWKCCG" // 'U' for 'V' and 'I' for '1' forgiving variants

	for _, s := range []string{canonical, withSubstitutions} {
		got, err := DecodeStringToBinary(s, len(bin))
		if err != nil {
			t.Fatalf("decode %q: %s", s, err)
		}
		if !bytes.Equal(got, bin) {
			t.Fatalf("decode %q: got %x, want %x", s, got, bin)
		}
	}
}

func TestDecodeStringToBinaryRejectsInvalidCharacters(t *testing.T) {
	if _, err := DecodeStringToBinary("91JPR+3F4!BPYWKCCG", 11); err == nil {
		t.Fatal("expected ErrInvalidEncoding for a non-alphabet character")
	}
}
