package journey

import "testing"

func TestFormatDistance(t *testing.T) {
	cases := map[float64]string{
		0:       "0.0 meters",
		999.94:  "999.9 meters",
		1000:    "1.00 km",
		5837000: "5837.00 km",
	}
	for in, want := range cases {
		if got := FormatDistance(in); got != want {
			t.Fatalf("FormatDistance(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[int64]string{
		0:    "0 sec",
		59:   "59 sec",
		60:   "1 min",
		3600: "1 hr",
		3725: "1 hr 2 min 5 sec",
		7260: "2 hr 1 min",
		-5:   "0 sec",
	}
	for in, want := range cases {
		if got := FormatDuration(in); got != want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", in, got, want)
		}
	}
}
