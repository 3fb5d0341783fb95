// Package instance reads p-dispersion instances.
//
// The text format is whitespace separated and ignores blank lines:
//
//	P F
//	i j d        P(P-1)/2 lines, the upper triangle of the distance matrix
//	a b d        F(F-1)/2 lines, the lower bound of facility pair (a, b)
//
// Distance lines are consumed in row-major upper-triangle order; their
// i and j fields must be integers but the position of the line decides the
// cell. Every d is a decimal number scaled by 10^decimals and truncated
// toward zero.
package instance

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gitrdm/pdispersion/pkg/dispersion"
)

// ErrMalformed indicates an instance that does not follow the format.
var ErrMalformed = errors.New("malformed instance")

// MaxDecimals bounds the scaling exponent.
const MaxDecimals = 9

// Data is a parsed instance with scaled integer values.
type Data struct {
	Points     int
	Facilities int
	Distances  [][]int
	PairBounds [][]int
}

// Problem validates the data and builds a dispersion.Problem.
func (d *Data) Problem() (*dispersion.Problem, error) {
	m, err := dispersion.NewDistanceMatrix(d.Distances)
	if err != nil {
		return nil, err
	}
	return dispersion.NewProblem(m, d.Facilities, d.PairBounds)
}

type lineReader struct {
	sc   *bufio.Scanner
	line int
}

// next returns the fields of the next non-blank line.
func (lr *lineReader) next() ([]string, error) {
	for lr.sc.Scan() {
		lr.line++
		if fields := strings.Fields(lr.sc.Text()); len(fields) > 0 {
			return fields, nil
		}
	}
	if err := lr.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.ErrUnexpectedEOF
}

func (lr *lineReader) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformed, lr.line, fmt.Sprintf(format, args...))
}

// Parse reads an instance from r.
func Parse(r io.Reader, decimals int) (*Data, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: decimals %d outside [0, %d]", ErrMalformed, decimals, MaxDecimals)
	}
	lr := &lineReader{sc: bufio.NewScanner(r)}
	lr.sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	header, err := lr.next()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrMalformed, err)
	}
	if len(header) < 2 {
		return nil, lr.errorf("header needs P and F, got %q", strings.Join(header, " "))
	}
	points, err1 := strconv.Atoi(header[0])
	facilities, err2 := strconv.Atoi(header[1])
	if err := errors.Join(err1, err2); err != nil {
		return nil, lr.errorf("header: %v", err)
	}
	if points <= 0 || facilities <= 0 {
		return nil, lr.errorf("header: %d points, %d facilities", points, facilities)
	}

	d := &Data{
		Points:     points,
		Facilities: facilities,
		Distances:  square(points),
		PairBounds: square(facilities),
	}

	for i := 0; i < points-1; i++ {
		for j := i + 1; j < points; j++ {
			_, _, v, err := lr.triple(decimals)
			if err != nil {
				return nil, fmt.Errorf("distance %d-%d: %w", i, j, err)
			}
			d.Distances[i][j] = v
			d.Distances[j][i] = v
		}
	}

	for k := 0; k < facilities*(facilities-1)/2; k++ {
		a, b, v, err := lr.triple(decimals)
		if err != nil {
			return nil, fmt.Errorf("pair bound %d: %w", k, err)
		}
		if a < 0 || a >= facilities || b < 0 || b >= facilities || a == b {
			return nil, lr.errorf("pair bound references facilities %d and %d of %d", a, b, facilities)
		}
		d.PairBounds[a][b] = v
		d.PairBounds[b][a] = v
	}
	return d, nil
}

// triple parses "x y value".
func (lr *lineReader) triple(decimals int) (int, int, int, error) {
	fields, err := lr.next()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(fields) < 3 {
		return 0, 0, 0, lr.errorf("want 3 fields, got %d", len(fields))
	}
	x, err1 := strconv.Atoi(fields[0])
	y, err2 := strconv.Atoi(fields[1])
	if err := errors.Join(err1, err2); err != nil {
		return 0, 0, 0, lr.errorf("%v", err)
	}
	v, err := Scale(fields[2], decimals)
	if err != nil {
		return 0, 0, 0, lr.errorf("%v", err)
	}
	return x, y, v, nil
}

// Scale converts a decimal string to an integer in units of 10^-decimals,
// truncating toward zero.
func Scale(s string, decimals int) (int, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	v := f * math.Pow10(decimals)
	if math.IsNaN(v) || math.Abs(v) > math.MaxInt32 {
		return 0, fmt.Errorf("value %s out of range at %d decimals", s, decimals)
	}
	return int(v), nil
}

func square(n int) [][]int {
	out := make([][]int, n)
	for i := range out {
		out[i] = make([]int, n)
	}
	return out
}
