package meshio

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"

	"github.com/chazu/ballpivot/pkg/pivot"
)

// ReadXYZ reads one oriented point per line: x y z nx ny nz, separated by
// whitespace. Lines starting with # and lines with fewer than three fields
// are skipped. Fields beyond the sixth are ignored.
func ReadXYZ(r io.Reader) ([]pivot.Point, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var points []pivot.Point
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 3 {
			continue
		}
		if len(fields) < 6 {
			return nil, errors.Errorf("read xyz: line %d: want 6 fields, got %d", line, len(fields))
		}

		var v [6]float64
		for i := range v {
			f, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "read xyz: line %d", line)
			}
			v[i] = f
		}
		points = append(points, pivot.Point{
			Pos:    v3.Vec{X: v[0], Y: v[1], Z: v[2]},
			Normal: v3.Vec{X: v[3], Y: v[4], Z: v[5]},
		})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read xyz")
	}
	return points, nil
}

// WriteXYZ writes points in the format ReadXYZ accepts.
func WriteXYZ(w io.Writer, points []pivot.Point) error {
	bw := bufio.NewWriter(w)
	for _, p := range points {
		fields := [6]float64{p.Pos.X, p.Pos.Y, p.Pos.Z, p.Normal.X, p.Normal.Y, p.Normal.Z}
		for i, f := range fields {
			if i > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		}
		bw.WriteByte('\n')
	}
	return errors.Wrap(bw.Flush(), "write xyz")
}
