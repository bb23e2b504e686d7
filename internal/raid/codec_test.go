package raid

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func init() {
	logrus.SetLevel(logrus.DebugLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func TestComputeParity(t *testing.T) {
	t.Run("EmptyInputYieldsZeroCode", func(t *testing.T) {
		assert.Equal(t, "0000", computeParity(""), "empty data should parity to the bare zero sentinel, no prefix letter")
	})

	t.Run("SingleByteRoundTrips", func(t *testing.T) {
		code := computeParity("A")
		recovered, err := recoverViaParity(code, "")
		assert.NoError(t, err, "single-byte parity should recover without a data operand")
		assert.Equal(t, "A", recovered, "recovering a single stored byte from its own parity should return that byte")
	})

	t.Run("TwoByteXorRecoversMissingOperand", func(t *testing.T) {
		code := computeParity("A")
		recovered, err := recoverViaParity(code, "A")
		assert.NoError(t, err, "xor of a value against itself plus parity should recover the empty-contribution byte")
		assert.Equal(t, string(rune(0)), recovered, "A xor A should cancel to zero")
	})
}

func TestComputeQSyndrome(t *testing.T) {
	t.Run("EmptyInputYieldsZeroCode", func(t *testing.T) {
		assert.Equal(t, "0000", computeQSyndrome("", 5), "empty data should syndrome to the bare zero sentinel, no prefix letter")
	})

	t.Run("RecoversThroughLBAMixer", func(t *testing.T) {
		lba := 42
		code := computeQSyndrome("Z", lba)
		recovered, err := recoverViaQSyndrome(code, lba)
		assert.NoError(t, err, "q-syndrome recovery should succeed for a well-formed code")
		assert.Equal(t, "Z", recovered, "recovering through the same lba mixer should yield the original byte")
	})
}

func TestParityValue(t *testing.T) {
	t.Run("RejectsMalformedCode", func(t *testing.T) {
		_, err := parityValue("P")
		assert.Error(t, err, "a code with no digits should be rejected")
	})

	t.Run("ParsesWellFormedCode", func(t *testing.T) {
		v, err := parityValue("P042")
		assert.NoError(t, err)
		assert.Equal(t, 42, v)
	})
}
