package match

import (
	"errors"
	"testing"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		in   string
		want Key
		ok   bool
	}{
		{"contentHash", ContentHash, true},
		{"CONTENTHASH", ContentHash, true},
		{"sha256", ContentHash, true},
		{"hash", ContentHash, true},
		{"sizeBytes", SizeBytes, true},
		{" filesize ", SizeBytes, true},
		{"size", SizeBytes, true},
		{"md5", 0, false},
		{"", 0, false},
		{"42", 0, false},
	}
	for _, tc := range tests {
		got, ok := ParseKey(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseKey(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestKeyText(t *testing.T) {
	for _, k := range []Key{ContentHash, SizeBytes} {
		b, err := k.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Key
		if err := back.UnmarshalText(b); err != nil || back != k {
			t.Errorf("round trip of %v gave %v, %v", k, back, err)
		}
	}

	var k Key
	if err := k.UnmarshalText([]byte("md5")); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("UnmarshalText(md5) = %v, want ErrUnknownKey", err)
	}
	if Key(0).Valid() || Key(0).String() != "invalid" {
		t.Error("zero Key must be invalid")
	}
}

func FuzzParseKey(f *testing.F) {
	for _, s := range []string{"contentHash", "sizeBytes", "md5", "", "\x00"} {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, s string) {
		k, ok := ParseKey(s)
		if ok != k.Valid() {
			t.Fatalf("ParseKey(%q) = %v, %v: ok disagrees with Valid", s, k, ok)
		}
	})
}
