// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

// Crockford base32 is the human-readable encoding for Identity.String():
// a binary array of size m is viewed as a bitstream read left to right,
// bytes ascending, bits MSB to LSB within each byte. Encoding partitions
// the stream into 5-bit chunks, right-padding the last with zero bits if
// 8*m isn't a multiple of 5; each chunk maps to a character per
// https://www.crockford.com/wrmg/base32.html. Decoding reverses this,
// additionally accepting 'O' as zero, 'I'/'L' as one, and 'U' as 27, the
// transcription-error tolerances Crockford's scheme calls for.
package util

import (
	"errors"
	"strings"
)

const crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var (
	// ErrInvalidEncoding signals a character outside the Crockford
	// alphabet (and its tolerated substitutions) in a decoded string.
	ErrInvalidEncoding = errors.New("util: invalid base32 encoding")
	// ErrBufferTooSmall signals more decoded bits than the caller's
	// requested output size can hold.
	ErrBufferTooSmall = errors.New("util: decode buffer too small")
)

// EncodeBinaryToString renders data as a Crockford base32 string.
func EncodeBinaryToString(data []byte) string {
	var out strings.Builder
	out.Grow((len(data)*8 + 4) / 5)

	var acc, nbits int
	for _, b := range data {
		acc = (acc << 8) | int(b)
		nbits += 8
		for nbits >= 5 {
			nbits -= 5
			out.WriteByte(crockfordAlphabet[(acc>>uint(nbits))&0x1F])
		}
	}
	if nbits > 0 {
		out.WriteByte(crockfordAlphabet[(acc<<uint(5-nbits))&0x1F])
	}
	return out.String()
}

// crockfordValue maps one input rune to its 5-bit chunk value, applying
// the scheme's transcription tolerances.
func crockfordValue(c rune) (int, bool) {
	if v := strings.IndexRune(crockfordAlphabet, c); v >= 0 {
		return v, true
	}
	switch c {
	case 'O':
		return 0, true
	case 'I', 'L':
		return 1, true
	case 'U':
		return 27, true
	default:
		return 0, false
	}
}

// DecodeStringToBinary decodes s back into a num-byte array. Returns
// ErrInvalidEncoding for a character outside the alphabet, or
// ErrBufferTooSmall if s carries more than num bytes' worth of bits.
// A decoded bitstream shorter than num is zero-padded.
func DecodeStringToBinary(s string, num int) ([]byte, error) {
	out := make([]byte, num)
	var acc, nbits, wpos int
	for _, c := range s {
		v, ok := crockfordValue(c)
		if !ok {
			return nil, ErrInvalidEncoding
		}
		acc = (acc << 5) | v
		nbits += 5
		if nbits >= 8 {
			nbits -= 8
			if wpos >= num {
				return nil, ErrBufferTooSmall
			}
			out[wpos] = byte((acc >> uint(nbits)) & 0xFF)
			wpos++
		}
	}
	if wpos < num && nbits > 0 {
		out[wpos] = byte((acc << uint(8-nbits)) & 0xFF)
	}
	return out, nil
}
