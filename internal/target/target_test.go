package target

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"X86_64-Unknown-Linux-GNU", "X86_64_UNKNOWN_LINUX_GNU"},
		{"x86_64-unknown-linux-gnu", "X86_64_UNKNOWN_LINUX_GNU"},
		{"aarch64-apple-darwin", "AARCH64_APPLE_DARWIN"},
		{"thumbv7em-none-eabihf", "THUMBV7EM_NONE_EABIHF"},
		{"wasm32--wasi", "WASM32_WASI"},
		{"i686.pc windows", "I686_PC_WINDOWS"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, in := range []string{"X86_64-Unknown-Linux-GNU", "armv7-unknown-linux-gnueabihf", "a--b__c"} {
		first := Normalize(in)
		for i := 0; i < 3; i++ {
			if got := Normalize(in); got != first {
				t.Fatalf("Normalize(%q) not deterministic: %q vs %q", in, got, first)
			}
		}
		if got := Normalize(first); got != first {
			t.Errorf("Normalize(Normalize(%q)) = %q, want %q", in, got, first)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Triple
	}{
		{"x86_64-unknown-linux-gnu", Triple{Arch: "x86_64", Vendor: "unknown", OS: "linux", Env: "gnu"}},
		{"aarch64-apple-darwin", Triple{Arch: "aarch64", Vendor: "apple", OS: "darwin"}},
		{"x86_64-pc-windows-msvc", Triple{Arch: "x86_64", Vendor: "pc", OS: "windows", Env: "msvc"}},
		{"aarch64-linux-android", Triple{Arch: "aarch64", Vendor: "unknown", OS: "linux", Env: "android"}},
		{"wasm32-wasi", Triple{Arch: "wasm32", Vendor: "unknown", OS: "wasi"}},
		{"armv7-unknown-linux-musl-eabihf", Triple{Arch: "armv7", Vendor: "unknown", OS: "linux", Env: "musl-eabihf"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(""); !errors.Is(err, ErrEmptyTriple) {
		t.Errorf("Parse(\"\") error = %v, want ErrEmptyTriple", err)
	}
	if _, err := Parse("x86_64"); err == nil {
		t.Error("Parse(\"x86_64\") expected error")
	}
}

func TestTriplePredicates(t *testing.T) {
	win, _ := Parse("x86_64-pc-windows-gnu")
	if !win.IsWindows() || win.IsApple() {
		t.Errorf("windows triple predicates wrong: %+v", win)
	}
	mac, _ := Parse("x86_64-apple-darwin")
	if mac.IsWindows() || !mac.IsApple() {
		t.Errorf("apple triple predicates wrong: %+v", mac)
	}
	if got := mac.String(); got != "x86_64-apple-darwin" {
		t.Errorf("String() = %q", got)
	}
}

func TestFromGo(t *testing.T) {
	tests := []struct {
		goos, goarch string
		want         string
	}{
		{"linux", "amd64", "x86_64-unknown-linux-gnu"},
		{"linux", "arm", "armv7-unknown-linux-gnueabihf"},
		{"darwin", "arm64", "aarch64-apple-darwin"},
		{"windows", "amd64", "x86_64-pc-windows-msvc"},
		{"freebsd", "amd64", "x86_64-unknown-freebsd"},
	}
	for _, tt := range tests {
		if got := fromGo(tt.goos, tt.goarch).String(); got != tt.want {
			t.Errorf("fromGo(%q, %q) = %q, want %q", tt.goos, tt.goarch, got, tt.want)
		}
	}
	if Host().Arch == "" {
		t.Error("Host() returned empty arch")
	}
}
