package colorutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
	}{
		{"Black", 0, 0, 0},
		{"White", 255, 255, 255},
		{"Red", 255, 0, 0},
		{"Grey", 128, 128, 128},
		{"Teal", 12, 140, 133},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b := LabToRGB(RGBToLab(tt.r, tt.g, tt.b))
			assert.InDelta(t, int(tt.r), int(r), 1)
			assert.InDelta(t, int(tt.g), int(g), 1)
			assert.InDelta(t, int(tt.b), int(b), 1)
		})
	}
}

func TestGreyHasNoChroma(t *testing.T) {
	c := RGBToLab(90, 90, 90)
	assert.InDelta(t, 0, c[1], 1e-3)
	assert.InDelta(t, 0, c[2], 1e-3)
}

func TestMeanAndShift(t *testing.T) {
	assert.Equal(t, Lab{}, MeanLab(nil))

	cs := []Lab{{0.2, 0.1, -0.1}, {0.4, -0.1, 0.3}}
	m := MeanLab(cs)
	assert.InDelta(t, 0.3, m[0], 1e-12)
	assert.InDelta(t, 0.0, m[1], 1e-12)
	assert.InDelta(t, 0.1, m[2], 1e-12)

	d := Delta(Lab{0.5, 0, 0.1}, m, 0.5)
	assert.InDelta(t, 0.1, d[0], 1e-12)
	Shift(cs, d)
	assert.InDelta(t, 0.3, cs[0][0], 1e-12)
	assert.InDelta(t, 0.5, cs[1][0], 1e-12)
}

func TestZeroRatioIsIdentity(t *testing.T) {
	d := Delta(Lab{1, 1, 1}, Lab{0, 0, 0}, 0)
	assert.Equal(t, Lab{}, d)
}
