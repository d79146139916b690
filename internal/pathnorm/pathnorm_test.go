package pathnorm

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"/", "/", false},
		{"", "/", false},
		{"foo", "/foo", false},
		{"//foo//bar", "/foo/bar", false},
		{"/foo/bar/", "/foo/bar/", false},
		{"/foo/./bar", "/foo/bar", false},
		{"/../etc/passwd", "", true},
		{"/foo/../bar", "", true},
	}

	for _, c := range cases {
		got, err := Normalize(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("Normalize(%q): expected error, got %q", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Normalize(%q): unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
