package i18n

import (
	"strings"
	"testing"
)

func TestNegotiate(t *testing.T) {
	cases := []struct {
		header string
		want   Lang
	}{
		{"", Vietnamese},
		{"en-US,en;q=0.9", English},
		{"vi-VN,vi;q=0.9,en;q=0.5", Vietnamese},
		{"fr-FR", Vietnamese},
		{"fr-FR,en;q=0.3", English},
		{";;;", Vietnamese},
	}
	for _, tc := range cases {
		if got := Negotiate(tc.header); got != tc.want {
			t.Fatalf("Negotiate(%q) = %s, want %s", tc.header, got, tc.want)
		}
	}
}

func TestParse(t *testing.T) {
	if l, ok := Parse(" EN "); !ok || l != English {
		t.Fatalf("expected en, got %q %v", l, ok)
	}
	if _, ok := Parse("de"); ok {
		t.Fatal("unsupported language must fail")
	}
}

func TestFormatMoney(t *testing.T) {
	if got := FormatMoney(English, 1000000); got != "1,000,000 đ" {
		t.Fatalf("unexpected english format %q", got)
	}
	vi := FormatMoney(Vietnamese, 1234567.6)
	if !strings.HasSuffix(vi, " đ") || !strings.HasPrefix(vi, "1") || !strings.Contains(vi, "234") || !strings.Contains(vi, "568") {
		t.Fatalf("unexpected vietnamese format %q", vi)
	}
	if strings.Contains(vi, ",") {
		t.Fatalf("vietnamese grouping must not use commas: %q", vi)
	}
}

func TestLabels(t *testing.T) {
	if T(English, "task_done") != "Done" || T(Vietnamese, "task_done") != "Hoàn thành" {
		t.Fatal("unexpected status labels")
	}
	if T(English, "unknown_key") != "unknown_key" {
		t.Fatal("unknown keys fall back to the key")
	}
	for key := range labels[Vietnamese] {
		if _, ok := labels[English][key]; !ok {
			t.Fatalf("missing english label for %s", key)
		}
	}
}
