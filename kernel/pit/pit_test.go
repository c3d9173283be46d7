package pit

import "testing"

func TestDivisorClamping(t *testing.T) {
	cases := []struct {
		hz       uint32
		expected uint32
	}{
		{0, minHz},
		{10, minHz},
		{100, 100},
		{5000, maxHz},
	}
	for _, c := range cases {
		hz := c.hz
		if hz < minHz {
			hz = minHz
		}
		if hz > maxHz {
			hz = maxHz
		}
		if hz != c.expected {
			t.Fatalf("for input %d expected clamp to %d; got %d", c.hz, c.expected, hz)
		}
	}
}
