package raid

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
)

// computeParity XORs the byte values of data into a 3-digit decimal code
// prefixed with "P", e.g. "P042". Runes above 255 are skipped with a
// warning rather than rejected, matching the engine's tolerant teaching
// posture. An empty input yields the literal sentinel "0000", with no
// prefix letter.
//
// This is the engine's explicit stand-in for a real GF(2^8) Reed-Solomon
// parity: single-byte XOR accumulation, nothing more.
func computeParity(data string) string {
	if data == "" {
		return "0000"
	}
	var acc int
	for _, r := range data {
		if r > 255 {
			logrus.Warnf("codec: skipping non-byte rune %q in parity input", r)
			continue
		}
		acc ^= int(r)
	}
	return fmt.Sprintf("P%03d", acc%1000)
}

// computeQSyndrome produces the engine's simplified second parity: the
// byte value of the (single-char) payload XORed with lba mod 100,
// rendered as "Qnnn". This is deliberately not a Galois-field syndrome;
// it exists only to give RAID-6/60 a second, independent recovery path.
func computeQSyndrome(data string, lba int) string {
	if data == "" {
		return "0000"
	}
	r := []rune(data)[0]
	val := int(r) ^ (lba % 100)
	return fmt.Sprintf("Q%03d", val%1000)
}

// parityValue extracts the numeric payload of a "Pnnn"/"Qnnn" code. It
// returns an error if the code is malformed, which callers treat as
// "unusable for recovery" rather than a crash.
func parityValue(code string) (int, error) {
	if len(code) < 2 {
		return 0, fmt.Errorf("%w: malformed code %q", ErrReconstructionUnavailable, code)
	}
	n, err := strconv.Atoi(code[1:])
	if err != nil {
		return 0, fmt.Errorf("%w: malformed code %q: %v", ErrReconstructionUnavailable, code, err)
	}
	return n, nil
}

// recoverViaParity reconstructs a single lost byte from a surviving data
// byte and the stripe's P-parity code.
func recoverViaParity(parityCode string, survivingData string) (string, error) {
	pv, err := parityValue(parityCode)
	if err != nil {
		return "", err
	}
	if survivingData == "" {
		return string(rune(pv % 128)), nil
	}
	r := []rune(survivingData)[0]
	return string(rune((pv ^ int(r)) % 128)), nil
}

// recoverViaQSyndrome is the Q-only fallback used when no P code
// survives to recover from.
func recoverViaQSyndrome(qCode string, lba int) (string, error) {
	qv, err := parityValue(qCode)
	if err != nil {
		return "", err
	}
	return string(rune((qv ^ (lba % 100)) % 128)), nil
}
