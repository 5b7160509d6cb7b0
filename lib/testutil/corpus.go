// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"bytes"
	"math/rand/v2"
	"strings"
)

// PlayScriptSize is the length of [PlayScript] in bytes, matching a
// full-length play in plain text.
const PlayScriptSize = 154 * 1024

// speakers and vocabulary feed [Prose]. The lists are long enough that
// consecutive lines almost never repeat, which keeps the text from
// becoming periodic.
var (
	speakers = []string{
		"LEAR", "GONERIL", "REGAN", "CORDELIA", "GLOUCESTER", "EDGAR",
		"EDMUND", "KENT", "FOOL", "ALBANY", "CORNWALL", "OSWALD",
		"FRANCE", "BURGUNDY", "CURAN", "KNIGHT",
	}
	vocabulary = strings.Fields(`
		the and of to my you that is not in me it his with your this be
		for he have what but him so thou will as all do are her by no on
		thy shall lord our sir if good more at was now come which from thee
		nothing king father daughter love speak heart eyes night storm
		fool nature mad poor know would let well or they o like say go
		there then hath how upon when man gods earth hand old crown land
		blood honour truth death wind rain heaven hell sight grief dark
		bring stand break kneel weep hear tell give take make think fear
		kingdom sister brother madam master friend villain traitor duke
		letter castle heath field gate prison army battle france dover
	`)
)

// Prose returns size bytes of deterministic play-script text generated
// from seed. Equal arguments always give equal output.
func Prose(seed uint64, size int) []byte {
	random := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	var buffer bytes.Buffer
	buffer.Grow(size + 128)

	act := 1
	for buffer.Len() < size {
		if random.IntN(40) == 0 {
			buffer.WriteString("\nACT ")
			buffer.WriteString(romanNumeral(act))
			buffer.WriteString("\n\n")
			act++
		}
		buffer.WriteString(speakers[random.IntN(len(speakers))])
		buffer.WriteString("  ")
		words := 4 + random.IntN(14)
		for i := range words {
			word := vocabulary[random.IntN(len(vocabulary))]
			if i == 0 {
				word = strings.ToUpper(word[:1]) + word[1:]
			}
			buffer.WriteString(word)
			switch {
			case i == words-1:
				buffer.WriteString(punctuation(random))
			case random.IntN(9) == 0:
				buffer.WriteString(", ")
			default:
				buffer.WriteByte(' ')
			}
		}
		buffer.WriteByte('\n')
	}
	return buffer.Bytes()[:size]
}

// PlayScript returns the standard chunking corpus: PlayScriptSize
// bytes of [Prose] from a fixed seed.
func PlayScript() []byte {
	return Prose(1608, PlayScriptSize)
}

// Insert returns a copy of data with extra inserted at offset.
func Insert(data []byte, offset int, extra []byte) []byte {
	result := make([]byte, 0, len(data)+len(extra))
	result = append(result, data[:offset]...)
	result = append(result, extra...)
	return append(result, data[offset:]...)
}

// Overwrite returns a copy of data with the bytes at offset replaced
// by replacement. The result has the same length as data.
func Overwrite(data []byte, offset int, replacement []byte) []byte {
	result := bytes.Clone(data)
	copy(result[offset:], replacement)
	return result
}

func punctuation(random *rand.Rand) string {
	switch random.IntN(6) {
	case 0:
		return "?"
	case 1:
		return "!"
	case 2:
		return ";"
	default:
		return "."
	}
}

func romanNumeral(n int) string {
	numerals := []struct {
		value  int
		symbol string
	}{
		{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
	}
	var builder strings.Builder
	for _, numeral := range numerals {
		for n >= numeral.value {
			builder.WriteString(numeral.symbol)
			n -= numeral.value
		}
	}
	return builder.String()
}
