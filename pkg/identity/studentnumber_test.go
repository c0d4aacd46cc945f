package identity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "nbtbook/pkg/domain-errors"
)

func TestGenerateStudentNumber_RoundTrip(t *testing.T) {
	years := []int{2000, 2024, 2525, 9999}
	sequences := []int{1, 42, 4321, 9999}
	for _, year := range years {
		for _, seq := range sequences {
			t.Run(fmt.Sprintf("%d-%d", year, seq), func(t *testing.T) {
				n, err := GenerateStudentNumber(year, seq)
				require.NoError(t, err)
				require.Len(t, n.String(), StudentNumberLength)

				parsed, err := ParseStudentNumber(n.String())
				require.NoError(t, err)
				assert.Equal(t, year, parsed.Year())
				assert.Equal(t, seq, parsed.Sequence())
				assert.Equal(t, n, parsed, "value equality on the string form")
				assert.True(t, IsValidStudentNumber(n.String()))
			})
		}
	}
}

func TestGenerateStudentNumber_RejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name     string
		year     int
		sequence int
	}{
		{name: "year below range", year: 1999, sequence: 1},
		{name: "year above range", year: 10000, sequence: 1},
		{name: "sequence zero", year: 2024, sequence: 0},
		{name: "sequence above range", year: 2024, sequence: 10000},
		{name: "negative sequence", year: 2024, sequence: -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateStudentNumber(tt.year, tt.sequence)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestParseStudentNumber(t *testing.T) {
	t.Run("trims surrounding whitespace", func(t *testing.T) {
		n, err := GenerateStudentNumber(2024, 1)
		require.NoError(t, err)
		parsed, err := ParseStudentNumber("  " + n.String() + "\n")
		require.NoError(t, err)
		assert.Equal(t, n.String(), parsed.String())
	})

	t.Run("rejects malformed values", func(t *testing.T) {
		for _, value := range []string{"", "12345678", "1234567890", "20240001x", "2024-0016"} {
			_, err := ParseStudentNumber(value)
			require.Error(t, err, "value %q", value)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			assert.False(t, IsValidStudentNumber(value))
		}
	})

	// Altering the check digit to any of the other nine digits must fail;
	// only the original value validates.
	t.Run("exactly one check digit validates", func(t *testing.T) {
		n, err := GenerateStudentNumber(2024, 1)
		require.NoError(t, err)
		payload := n.String()[:8]
		for d := 0; d <= 9; d++ {
			candidate := fmt.Sprintf("%s%d", payload, d)
			assert.Equal(t, d == n.CheckDigit(), IsValidStudentNumber(candidate), "digit %d", d)
		}
	})
}

func TestStudentNumber_Accessors(t *testing.T) {
	n, err := ParseStudentNumber("202400016")
	require.NoError(t, err)
	assert.Equal(t, 2024, n.Year())
	assert.Equal(t, 1, n.Sequence())
	assert.Equal(t, 6, n.CheckDigit())
	assert.Equal(t, "202400016", n.String())
	assert.False(t, n.IsZero())
	assert.True(t, StudentNumber{}.IsZero())
}
