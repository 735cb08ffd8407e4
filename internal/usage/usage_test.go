package usage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Forms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		mask  Mode
		exact bool
	}{
		{"def", Def, true},
		{"r", RAoF | RVal | RPtr, false},
		{"w", WAoF | WVal, false},
		{"m", UseMask, false},
		{"-", 0, true},
		{"---", 0, true},
		{"rrr", RAoF | RVal | RPtr, false},
		{"ww-", WAoF | WVal, false},
		{"mmm", UseMask, false},
		{"-r-", RVal, false},
		{"--w", WPtr, false},
		{"m--", RAoF | WAoF, false},
		{"-m-", RVal | WVal, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			mask, exact, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.mask, mask)
			assert.Equal(t, tt.exact, exact)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "rw", "rrrr", "xyz", "r-x", "DEF", "rrR"} {
		_, _, err := Parse(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "def", Def.String())
	assert.Equal(t, "---", Mode(0).String())
	assert.Equal(t, "-r-", RVal.String())
	assert.Equal(t, "-w-", WVal.String())
	assert.Equal(t, "-m-", (RVal | WVal).String())
	assert.Equal(t, "r--", RAoF.String())
	assert.Equal(t, "--w", WPtr.String())
	assert.Equal(t, "rmw", (RAoF | RVal | WVal | WPtr).String())
}

// Every non-def mode value must survive a pretty-print / parse round trip.
func TestRoundTrip(t *testing.T) {
	t.Parallel()

	for m := Mode(0); m <= UseMask; m++ {
		s := m.String()
		mask, _, err := Parse(s)
		require.NoError(t, err, "mode %#x pretty %q", uint32(m), s)
		assert.Equal(t, m, mask, "mode %#x pretty %q", uint32(m), s)
		assert.Equal(t, s, mask.String(), "mode %#x", uint32(m))
	}
}

func TestBitValues_Stable(t *testing.T) {
	t.Parallel()

	// These values appear in persisted records and must never change.
	for _, tt := range []struct {
		mode Mode
		want uint32
	}{
		{RAoF, 0x01}, {WAoF, 0x02}, {RVal, 0x04}, {WVal, 0x08},
		{RPtr, 0x10}, {WPtr, 0x20}, {Def, 0x100},
	} {
		assert.Equal(t, tt.want, uint32(tt.mode), fmt.Sprintf("%#x", tt.want))
	}
}
