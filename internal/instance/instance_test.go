package instance

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const threePoints = `3 2

0 1 1.5
0 2 2.25

1 2 0.75
0 1 1
`

func TestParse(t *testing.T) {
	d, err := Parse(strings.NewReader(threePoints), 2)
	require.NoError(t, err)
	require.Equal(t, 3, d.Points)
	require.Equal(t, 2, d.Facilities)
	require.Equal(t, [][]int{
		{0, 150, 225},
		{150, 0, 75},
		{225, 75, 0},
	}, d.Distances)
	require.Equal(t, [][]int{{0, 100}, {100, 0}}, d.PairBounds)

	p, err := d.Problem()
	require.NoError(t, err)
	require.Equal(t, 3, p.Points())
	require.Equal(t, 100, p.PairBound(1, 0))
}

func TestParseIgnoresDistanceIndices(t *testing.T) {
	// The third line is placed at 1-2 by its position.
	in := "3 1\n0 1 4\n0 2 5\n7 7 6\n"
	d, err := Parse(strings.NewReader(in), 0)
	require.NoError(t, err)
	require.Equal(t, 6, d.Distances[2][1])
	require.Equal(t, [][]int{{0}}, d.PairBounds)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"short header", "3\n"},
		{"bad header", "three 2\n"},
		{"zero points", "0 2\n"},
		{"missing distance", "3 2\n0 1 1\n0 2 1\n"},
		{"missing bound", "2 2\n0 1 1\n"},
		{"short line", "2 1\n0 1\n"},
		{"bad value", "2 1\n0 1 far\n"},
		{"bad index", "2 1\nx 1 3\n"},
		{"bound out of range", "2 2\n0 1 1\n0 2 1\n"},
		{"bound on itself", "2 2\n0 1 1\n1 1 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in), 0)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}

	_, err := Parse(strings.NewReader("3 2\n0 1 1\n"), 0)
	require.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	_, err = Parse(strings.NewReader(threePoints), MaxDecimals+1)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestParseReportsLine(t *testing.T) {
	_, err := Parse(strings.NewReader("2 1\n\n\n0 1 x\n"), 0)
	require.ErrorContains(t, err, "line 4")
}

func TestScale(t *testing.T) {
	tests := []struct {
		in       string
		decimals int
		want     int
	}{
		{"12", 0, 12},
		{"1.27", 1, 12},
		{"1.5", 3, 1500},
		{"-0.5", 0, 0},
		{"0.125", 2, 12},
	}
	for _, tt := range tests {
		got, err := Scale(tt.in, tt.decimals)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}

	_, err := Scale("NaN", 0)
	require.Error(t, err)
	_, err = Scale("1e12", 0)
	require.Error(t, err)
	_, err = Scale("", 0)
	require.Error(t, err)
}
