package telemetry

import (
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/westphae/quaternion"

	"github.com/stratux/imuplayground/ahrs"
)

func TestNormalizeDegrees(t *testing.T) {
	for _, c := range []struct{ in, want float64 }{
		{-10, 350},
		{370, 10},
		{0, 0},
		{360, 0},
		{-360, 0},
		{720.5, 0.5},
		{-1e-20, 0},
		{359.5, 359.5},
		{math.Copysign(0, -1), 0},
	} {
		if got := NormalizeDegrees(c.in); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("NormalizeDegrees(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestDegreesStayInRangeAfterRounding(t *testing.T) {
	for _, rad := range []float64{-1e-9, -1e-12, 2*math.Pi - 1e-12, -math.Pi, math.Pi, 7} {
		if d := degrees(rad); d < 0 || d >= 360 {
			t.Errorf("degrees(%v) = %v", rad, d)
		}
	}
}

func TestEncodeLayout(t *testing.T) {
	var e Encoder
	line := string(e.Encode(r3.Vector{X: 0.5, Y: -0.25, Z: 1}, r3.Vector{X: 120, Y: -33, Z: 0}, ahrs.Identity))
	want := "0.5,-0.25,1,120,-33,0,0,0,0\r\n"
	if line != want {
		t.Errorf("got %q, want %q", line, want)
	}
}

func TestEncodeAnglesAreNormalized(t *testing.T) {
	var e Encoder
	// -90 degree yaw
	q := quaternion.Quaternion{W: math.Cos(-math.Pi / 4), Z: math.Sin(-math.Pi / 4)}
	f, err := ParseFrame(string(e.Encode(r3.Vector{Z: 1}, r3.Vector{X: 1}, q)))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(f.Yaw-270) > 1e-3 || f.Roll != 0 || f.Pitch != 0 {
		t.Errorf("frame = %+v", f)
	}
}

func TestEncodeUsesAccelZ(t *testing.T) {
	var e Encoder
	f, err := ParseFrame(string(e.Encode(r3.Vector{X: 1, Y: 2, Z: 3}, r3.Vector{X: 4, Y: 5, Z: 6}, ahrs.Identity)))
	if err != nil {
		t.Fatal(err)
	}
	if f.Accel != (r3.Vector{X: 1, Y: 2, Z: 3}) || f.Mag != (r3.Vector{X: 4, Y: 5, Z: 6}) {
		t.Errorf("frame = %+v", f)
	}
}

func TestEncodeWorstCaseFits(t *testing.T) {
	var e Encoder
	tiny := math.SmallestNonzeroFloat32
	q := quaternion.Quaternion{W: 1, X: -1e-38, Y: -1e-38, Z: -1e-38}.Unit()
	for _, mag := range []r3.Vector{{X: -32768, Y: -32768, Z: -32768}, {X: -tiny, Y: 1.2345678e-9, Z: -56755.84}} {
		line := e.Encode(r3.Vector{X: -tiny, Y: -1.0000001e-9, Z: -3.4641016}, mag, q)
		if len(line) > MaxLineLength {
			t.Fatalf("len = %d", len(line))
		}
		if !strings.HasPrefix(string(line), "0,") {
			t.Errorf("tiny value not flushed: %q", line)
		}
		if !strings.HasSuffix(string(line), "\r\n") {
			t.Errorf("missing terminator: %q", line)
		}
	}
}

func TestEncodeFitsUpToMaxMagnitude(t *testing.T) {
	var e Encoder
	big := -0.99 * MaxMagnitude
	v := r3.Vector{X: big, Y: big, Z: big}
	line := e.Encode(v, v, quaternion.Quaternion{W: 1})
	if len(line) > MaxLineLength {
		t.Fatalf("len = %d", len(line))
	}
	if _, err := ParseFrame(string(line)); err != nil {
		t.Errorf("ParseFrame(%q): %v", line, err)
	}
}

func TestParseFrameErrors(t *testing.T) {
	for _, line := range []string{
		"",
		"1,2,3",
		"1,2,3,4,5,6,7,8,9,10",
		"1,2,3,4,x,6,7,8,9",
	} {
		if _, err := ParseFrame(line); !errors.Is(err, ErrMalformed) {
			t.Errorf("ParseFrame(%q) err = %v", line, err)
		}
	}
}

func TestReaderDiscardsFirstLine(t *testing.T) {
	stream := ",1,2,3,350,10\r\n" + // tail of a frame from mid-stream attachment
		"0.1,0.2,0.9,10,20,30,1,2,3\r\n" +
		"bad\r\n" +
		"0,0,1,0,0,0,0,0,359.5\r\n"
	r := NewReader(strings.NewReader(stream))

	f, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if f.Accel.Z != 0.9 || f.Yaw != 3 {
		t.Errorf("first frame = %+v", f)
	}
	if _, err := r.Next(); !errors.Is(err, ErrMalformed) {
		t.Errorf("bad line err = %v", err)
	}
	if f, err = r.Next(); err != nil || f.Yaw != 359.5 {
		t.Errorf("third = %+v, %v", f, err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("end err = %v", err)
	}
}

func TestReaderEmptyStream(t *testing.T) {
	if _, err := NewReader(strings.NewReader("")).Next(); err != io.EOF {
		t.Errorf("err = %v", err)
	}
}
