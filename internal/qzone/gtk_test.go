package qzone

import "testing"

func TestGtk(t *testing.T) {
	cases := []struct {
		pSkey string
		want  int32
	}{
		{"", 5381},
		{"test", 2090756197},
	}
	for _, tc := range cases {
		if got := Gtk(tc.pSkey); got != tc.want {
			t.Errorf("Gtk(%q) = %d, want %d", tc.pSkey, got, tc.want)
		}
	}
}

func TestGtkStaysNonNegative(t *testing.T) {
	long := make([]byte, 256)
	for i := range long {
		long[i] = 0xff
	}
	if got := Gtk(string(long)); got < 0 {
		t.Fatalf("Gtk overflowed to %d", got)
	}
}

func TestUnwrapJSONP(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"code":0}`, `{"code":0}`},
		{"callback", `_Callback({"code":0});`, `{"code":0}`},
		{"padded", "  \n_preloadCallback( {\"code\":0} )\n", `{"code":0}`},
		{"nested parens", `cb({"message":"a(b)c"})`, `{"message":"a(b)c"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := unwrapJSONP([]byte(tc.in))
			if err != nil {
				t.Fatalf("unwrapJSONP: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestUnwrapJSONPMalformed(t *testing.T) {
	for _, in := range []string{"", "   ", "callback", "cb()"} {
		if _, err := unwrapJSONP([]byte(in)); err == nil {
			t.Errorf("unwrapJSONP(%q) succeeded, want error", in)
		}
	}
}
