package telemetry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
)

// FieldCount is the number of fields in a line.
const FieldCount = 9

// ErrMalformed is returned for lines that are not a complete frame.
var ErrMalformed = errors.New("telemetry: malformed line")

// Frame is one decoded line.
type Frame struct {
	Accel            r3.Vector
	Mag              r3.Vector
	Roll, Pitch, Yaw float64 // degrees
}

// ParseFrame decodes a single line, with or without its terminator.
func ParseFrame(line string) (Frame, error) {
	var f Frame
	fields := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	if len(fields) != FieldCount {
		return f, fmt.Errorf("%w: %d fields", ErrMalformed, len(fields))
	}
	var v [FieldCount]float64
	for i, s := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return f, fmt.Errorf("%w: field %d: %v", ErrMalformed, i, err)
		}
		v[i] = x
	}
	f.Accel = r3.Vector{X: v[0], Y: v[1], Z: v[2]}
	f.Mag = r3.Vector{X: v[3], Y: v[4], Z: v[5]}
	f.Roll, f.Pitch, f.Yaw = v[6], v[7], v[8]
	return f, nil
}

// Reader parses a frame stream attached at an arbitrary point. The first
// line is discarded because it may be the tail of a frame.
type Reader struct {
	sc     *bufio.Scanner
	synced bool
}

// NewReader returns a Reader on r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, MaxLineLength), 4*MaxLineLength)
	return &Reader{sc: sc}
}

// Next returns the next frame. Malformed lines are returned as ErrMalformed
// and the reader stays usable. io.EOF marks the end of the stream.
func (r *Reader) Next() (Frame, error) {
	if !r.synced {
		r.synced = true
		if !r.sc.Scan() {
			return Frame{}, r.eof()
		}
	}
	if !r.sc.Scan() {
		return Frame{}, r.eof()
	}
	return ParseFrame(r.sc.Text())
}

func (r *Reader) eof() error {
	if err := r.sc.Err(); err != nil {
		return err
	}
	return io.EOF
}
