package field

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"
)

func TestGridValidate(t *testing.T) {
	tests := []struct {
		name  string
		grid  Grid
		valid bool
	}{
		{"default", Grid{N: 1024, Scale: 1000}, true},
		{"smallest", Grid{N: 4, Scale: 1}, true},
		{"odd n", Grid{N: 63, Scale: 1000}, false},
		{"too small", Grid{N: 2, Scale: 1000}, false},
		{"zero scale", Grid{N: 64, Scale: 0}, false},
		{"negative scale", Grid{N: 64, Scale: -5}, false},
		{"nan scale", Grid{N: 64, Scale: math.NaN()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.grid.Validate()
			if tt.valid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidGrid) {
				t.Errorf("expected ErrInvalidGrid, got %v", err)
			}
		})
	}
}

func TestFFTFreq(t *testing.T) {
	got := FFTFreq(4, 0.5)
	step := 2 * math.Pi / 2.0
	want := []float64{0, step, -2 * step, -step}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("FFTFreq[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	r := RFFTFreq(4, 0.5)
	if len(r) != 3 {
		t.Fatalf("expected 3 rfft frequencies, got %d", len(r))
	}
	if math.Abs(r[2]-2*step) > 1e-12 {
		t.Errorf("nyquist = %v, want %v", r[2], 2*step)
	}
}

func TestKMatrix(t *testing.T) {
	g := Grid{N: 8, Scale: 100}
	km := KMatrix(g)

	if len(km) != 8 || len(km[0]) != 5 {
		t.Fatalf("expected 8x5 matrix, got %dx%d", len(km), len(km[0]))
	}
	if km[0][0] != 0 {
		t.Errorf("dc |k| = %v, want 0", km[0][0])
	}
	if math.Abs(km[0][1]-g.Fundamental()) > 1e-12 {
		t.Errorf("km[0][1] = %v, want fundamental %v", km[0][1], g.Fundamental())
	}
	// rows above N/2 are negative ky with the same magnitude as their mirror
	if math.Abs(km[1][3]-km[7][3]) > 1e-12 {
		t.Errorf("expected |k| symmetric in ky, got %v and %v", km[1][3], km[7][3])
	}
	if math.Abs(km[4][4]-g.KMax()) > 1e-12 {
		t.Errorf("corner |k| = %v, want %v", km[4][4], g.KMax())
	}
}

func TestSampleKs(t *testing.T) {
	g := Grid{N: 64, Scale: 500}
	ks, err := SampleKs(g, 50)
	if err != nil {
		t.Fatalf("sample ks: %v", err)
	}
	if len(ks) != 50 {
		t.Fatalf("expected 50 samples, got %d", len(ks))
	}
	if ks[0] != g.Fundamental() || ks[49] != g.KMax() {
		t.Errorf("range [%v, %v], want [%v, %v]", ks[0], ks[49], g.Fundamental(), g.KMax())
	}
	for i := 1; i < len(ks); i++ {
		if ks[i] <= ks[i-1] {
			t.Fatalf("ks not increasing at %d", i)
		}
	}

	if _, err := SampleKs(g, 1); err == nil {
		t.Error("expected error for a single sample")
	}
}

func TestFFTRoundTrip(t *testing.T) {
	g := Grid{N: 16, Scale: 10}
	data := make([][]float64, g.N)
	for y := range data {
		data[y] = make([]float64, g.N)
		for x := range data[y] {
			data[y][x] = math.Sin(2*math.Pi*float64(x)/16) + 0.25*math.Cos(2*math.Pi*3*float64(y)/16) + float64(x*y%5)
		}
	}

	f := NewPhysical(g, data)
	spec, err := f.FFT()
	if err != nil {
		t.Fatalf("fft: %v", err)
	}
	if spec.Space != Fourier || len(spec.Modes[0]) != g.HalfWidth() {
		t.Fatalf("unexpected spectrum layout: %s %d", spec.Space, len(spec.Modes[0]))
	}

	back, err := spec.IFFT()
	if err != nil {
		t.Fatalf("ifft: %v", err)
	}
	for y := range data {
		for x := range data[y] {
			if math.Abs(back.Real[y][x]-data[y][x]) > 1e-10 {
				t.Fatalf("round trip mismatch at (%d,%d): %v vs %v", y, x, back.Real[y][x], data[y][x])
			}
		}
	}
}

func TestFFTSingleMode(t *testing.T) {
	g := Grid{N: 8, Scale: 8}
	data := make([][]float64, g.N)
	for y := range data {
		data[y] = make([]float64, g.N)
		for x := range data[y] {
			data[y][x] = math.Cos(2 * math.Pi * 2 * float64(x) / 8)
		}
	}

	spec, err := NewPhysical(g, data).FFT()
	if err != nil {
		t.Fatal(err)
	}

	// cos(2πkx/N) puts N²/2 into the (ky=0, kx=k) mode
	want := complex(float64(g.N*g.N)/2, 0)
	if cmplx.Abs(spec.Modes[0][2]-want) > 1e-9 {
		t.Errorf("mode (0,2) = %v, want %v", spec.Modes[0][2], want)
	}
	if cmplx.Abs(spec.Modes[1][2]) > 1e-9 {
		t.Errorf("expected no power off ky=0, got %v", spec.Modes[1][2])
	}
}

func TestWrongSpace(t *testing.T) {
	g := Grid{N: 4, Scale: 1}
	phys := NewPhysical(g, [][]float64{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}})
	if _, err := phys.IFFT(); !errors.Is(err, ErrWrongSpace) {
		t.Errorf("expected ErrWrongSpace, got %v", err)
	}

	four := NewFourier(g, nil)
	if _, err := four.FFT(); !errors.Is(err, ErrWrongSpace) {
		t.Errorf("expected ErrWrongSpace, got %v", err)
	}
	if _, err := four.IFFT(); !errors.Is(err, ErrInvalidGrid) {
		t.Errorf("expected ErrInvalidGrid for empty modes, got %v", err)
	}
}

func TestStats(t *testing.T) {
	f := NewPhysical(Grid{N: 4, Scale: 1}, [][]float64{
		{1, -1, 1, -1},
		{1, -1, 1, -1},
		{3, -3, 3, -3},
		{1, -1, 1, -1},
	})
	s := f.Stats()
	if s.Min != -3 || s.Max != 3 {
		t.Errorf("range [%v, %v], want [-3, 3]", s.Min, s.Max)
	}
	if s.Mean != 0 {
		t.Errorf("mean = %v, want 0", s.Mean)
	}
	// mean square is 48/16
	if math.Abs(s.RMS-math.Sqrt(3)) > 1e-12 {
		t.Errorf("rms = %v, want %v", s.RMS, math.Sqrt(3))
	}
}

func TestIsFinite(t *testing.T) {
	f := NewPhysical(Grid{N: 4, Scale: 1}, [][]float64{{0, 1}, {math.NaN(), 0}})
	if f.IsFinite() {
		t.Error("expected NaN to be detected")
	}
	f.Real[1][0] = 0
	if !f.IsFinite() {
		t.Error("expected finite field")
	}
}

func TestParallelFor(t *testing.T) {
	for _, n := range []int{0, 1, 63, 64, 65, 1000} {
		hits := make([]int, n)
		ParallelFor(n, 16, func(start, end int) {
			for i := start; i < end; i++ {
				hits[i]++
			}
		})
		for i, h := range hits {
			if h != 1 {
				t.Fatalf("n=%d: index %d visited %d times", n, i, h)
			}
		}
	}
}
