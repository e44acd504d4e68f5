package slug

import "testing"

func TestMake(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Dedeman", "dedeman"},
		{"legal suffix dropped", "Dedeman SRL", "dedeman"},
		{"sa suffix", "Banca Transilvania SA", "banca-transilvania"},
		{"diacritics", "Țiriac Auto Ș.R.L.", "tiriac-auto"},
		{"punctuation", "e-Mag / Dante Int'l", "e-mag-dante-int-l"},
		{"numbers", "Farmacia 3", "farmacia-3"},
		{"empty", "", ""},
		{"only punctuation", "...", ""},
		{"whitespace runs", "  A   B  ", "a-b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Make(tt.in); got != tt.want {
				t.Errorf("Make(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestForCompany(t *testing.T) {
	if got := ForCompany("Dedeman SRL", "14592450"); got != "dedeman-14592450" {
		t.Errorf("ForCompany = %q", got)
	}

	// Nameless skeletons still get a unique slug.
	if got := ForCompany("", "14592450"); got != "firma-14592450" {
		t.Errorf("ForCompany with empty name = %q", got)
	}
	if got := ForCompany("SRL", "3660"); got != "firma-3660" {
		t.Errorf("ForCompany with suffix-only name = %q", got)
	}
}
