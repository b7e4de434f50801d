// Package ecc protects the in-game clock value with a SECDED code: a 29-bit
// Hamming code over a 24-bit payload plus one overall parity bit.
//
// Bit positions are 1-indexed. Parity bits live at positions 1, 2, 4, 8 and 16,
// payload bits fill the remaining positions up to 29, and position 30 holds the
// overall parity of positions 1..29.
package ecc

import "fmt"

const (
	DataBits     = 24
	ParityBits   = 5
	HammingBits  = DataBits + ParityBits // 29
	CodewordBits = HammingBits + 1       // 30

	// MaxPayload is the largest value Encode can protect.
	MaxPayload = 1<<DataBits - 1

	// OverallParityPosition is the 1-indexed position of the global parity bit.
	OverallParityPosition = CodewordBits
)

// Codeword is a 32-bit container holding a 30-bit SECDED codeword in its low bits.
// Only Encode produces valid codewords.
type Codeword uint32

// Status classifies the outcome of Decode.
type Status int

const (
	NoError Status = iota
	SingleBitCorrected
	DoubleBitDetected
	OverallParityError
)

func (s Status) String() string {
	switch s {
	case NoError:
		return "no_error"
	case SingleBitCorrected:
		return "single_bit_corrected"
	case DoubleBitDetected:
		return "double_bit_detected"
	case OverallParityError:
		return "overall_parity_error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Trustworthy reports whether the decoded payload may be used.
func (s Status) Trustworthy() bool {
	return s != DoubleBitDetected
}

// Result is the payload recovered by Decode together with its status.
type Result struct {
	Data   uint32
	Status Status
}

func bit(v uint32, pos int) uint32 {
	return (v >> (pos - 1)) & 1
}

func setBit(v *uint32, pos int, b uint32) {
	if b != 0 {
		*v |= 1 << (pos - 1)
	} else {
		*v &^= 1 << (pos - 1)
	}
}

func isPowerOfTwo(i int) bool {
	return i&(i-1) == 0
}

// syndrome recomputes the Hamming parity groups of w.
func syndrome(w uint32) int {
	s := 0
	for p := 1; p <= HammingBits; p <<= 1 {
		var parity uint32
		for i := 1; i <= HammingBits; i++ {
			if i&p != 0 {
				parity ^= bit(w, i)
			}
		}
		if parity != 0 {
			s |= p
		}
	}
	return s
}

func parity(w uint32, upto int) uint32 {
	var p uint32
	for i := 1; i <= upto; i++ {
		p ^= bit(w, i)
	}
	return p
}

// Encode protects the low 24 bits of payload. Higher bits are discarded.
func Encode(payload uint32) Codeword {
	var w uint32
	d := 1
	for i := 1; i <= HammingBits; i++ {
		if isPowerOfTwo(i) {
			continue
		}
		setBit(&w, i, bit(payload, d))
		d++
	}

	// Parity positions are still zero here, so each group sum is the parity bit.
	for p := 1; p <= HammingBits; p <<= 1 {
		var g uint32
		for i := 1; i <= HammingBits; i++ {
			if i&p != 0 {
				g ^= bit(w, i)
			}
		}
		setBit(&w, p, g)
	}

	setBit(&w, OverallParityPosition, parity(w, HammingBits))
	return Codeword(w)
}

// Decode checks a received codeword, corrects a single flipped bit and detects
// (without correcting) two flipped bits. With DoubleBitDetected the returned data
// is extracted from the uncorrected word and must not be trusted.
func Decode(received Codeword) Result {
	w := uint32(received)
	s := syndrome(w)
	overall := parity(w, CodewordBits)

	var status Status
	switch {
	case s == 0 && overall == 0:
		status = NoError
	case s == 0:
		status = OverallParityError
	case overall == 1:
		// The overall parity bit sits outside the Hamming span and cannot be
		// addressed by the syndrome.
		if s <= HammingBits {
			w ^= 1 << (s - 1)
		}
		status = SingleBitCorrected
	default:
		status = DoubleBitDetected
	}

	return Result{Data: extract(w), Status: status}
}

func extract(w uint32) uint32 {
	var data uint32
	d := 1
	for i := 1; i <= HammingBits; i++ {
		if isPowerOfTwo(i) {
			continue
		}
		setBit(&data, d, bit(w, i))
		d++
	}
	return data
}

// Flip returns w with the bit at the 1-indexed position pos inverted.
func (w Codeword) Flip(pos int) Codeword {
	if pos < 1 || pos > 32 {
		return w
	}
	return w ^ Codeword(1)<<(pos-1)
}

// Decode is shorthand for Decode(w).
func (w Codeword) Decode() Result {
	return Decode(w)
}
