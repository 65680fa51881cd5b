package bch

import (
	"testing"

	mcecascade "github.com/BackendStack21/mceliece-cascade-go"
)

func TestNewShape(t *testing.T) {
	code := New()
	if code.Variant != mcecascade.BCH {
		t.Errorf("Variant = %s", code.Variant)
	}
	if code.N != 15 || code.K != 7 || code.T != 2 {
		t.Errorf("triple = (%d, %d, %d), want (15, 7, 2)", code.N, code.K, code.T)
	}
	if len(code.G) != 7 || len(code.H) != 8 || len(code.MsgPos) != 7 {
		t.Error("generator, parity, or position table has the wrong size")
	}
	// 1 + 15 + C(15,2) syndromes, all distinct at distance 5.
	if len(code.Table) != 121 {
		t.Errorf("table has %d entries, want 121", len(code.Table))
	}
}

func TestGeneratorDividesXn1(t *testing.T) {
	// g must divide x¹⁵+1 for the cyclic code to be well defined.
	if rem := polyMod(1<<15 | 1); rem != 0 {
		t.Errorf("x^15 + 1 mod g = %#x, want 0", rem)
	}
}

func TestEncodeSystematic(t *testing.T) {
	code := New()
	for msg := uint16(0); msg < 1<<7; msg++ {
		word := code.EncodeBlock(msg)
		if word>>8 != msg {
			t.Fatalf("message %#x: high bits are %#x", msg, word>>8)
		}
		if polyMod(uint32(word)) != 0 {
			t.Fatalf("message %#x: codeword %#x is not a multiple of g", msg, word)
		}
		if code.Syndrome(word) != 0 {
			t.Fatalf("message %#x: parity rows disagree with polynomial remainder", msg)
		}
	}
}

func TestSyndromeMatchesPolyMod(t *testing.T) {
	code := New()
	for word := uint16(0); word < 1<<15; word += 211 {
		if code.Syndrome(word) != polyMod(uint32(word)) {
			t.Fatalf("word %#x: Syndrome = %#x, polyMod = %#x",
				word, code.Syndrome(word), polyMod(uint32(word)))
		}
	}
}

func TestDecodeUpToTwoErrors(t *testing.T) {
	code := New()
	patterns := []uint16{0}
	for j := 0; j < 15; j++ {
		patterns = append(patterns, 1<<uint(j))
		for k := j + 1; k < 15; k++ {
			patterns = append(patterns, 1<<uint(j)|1<<uint(k))
		}
	}

	for msg := uint16(0); msg < 1<<7; msg++ {
		word := code.EncodeBlock(msg)
		for _, e := range patterns {
			got, ok := code.DecodeBlock(word ^ e)
			if !ok || got != msg {
				t.Fatalf("message %#x, error %#x: decode gave (%#x, %v)", msg, e, got, ok)
			}
		}
	}
}

func TestTripleErrorsDoNotCrash(t *testing.T) {
	// Beyond the correction radius the table may miss or alias; decode
	// must flag misses and never panic.
	code := New()
	word := code.EncodeBlock(0x55)
	misses, aliases := 0, 0
	for a := 0; a < 15; a++ {
		for b := a + 1; b < 15; b++ {
			for c := b + 1; c < 15; c++ {
				e := uint16(1)<<uint(a) | 1<<uint(b) | 1<<uint(c)
				got, ok := code.DecodeBlock(word ^ e)
				switch {
				case !ok:
					misses++
				case got != 0x55:
					aliases++
				default:
					t.Fatalf("weight-3 error %#x decoded cleanly, violating distance 5", e)
				}
			}
		}
	}
	if misses == 0 {
		t.Error("expected at least one weight-3 pattern to miss the table")
	}
	if aliases == 0 {
		t.Error("expected at least one weight-3 pattern to alias a weight-2 correction")
	}
}

func TestPolyMod(t *testing.T) {
	if polyMod(generatorPoly) != 0 {
		t.Error("g mod g should be 0")
	}
	if polyMod(0) != 0 {
		t.Error("0 mod g should be 0")
	}
	// Degrees below deg g pass through unchanged.
	if polyMod(0xAB) != 0xAB {
		t.Errorf("low-degree polynomial was reduced: %#x", polyMod(0xAB))
	}
}
