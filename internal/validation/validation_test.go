package validation

import (
	"reflect"
	"strings"
	"testing"
)

func TestValidateCategory(t *testing.T) {
	tests := []struct {
		name     string
		category string
		want     bool
	}{
		{"single letter", "a", true},
		{"last builtin code", "l", true},
		{"custom code", "poetry_2", true},
		{"empty string", "", false},
		{"too long", strings.Repeat("a", 17), false},
		{"uppercase", "A", false},
		{"contains space", "a b", false},
		{"sql fragment", "a') OR 1=1 --", false},
		{"quote", "'", false},
		{"unicode", "动画", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateCategory(tt.category); got != tt.want {
				t.Errorf("ValidateCategory(%q) = %v, want %v", tt.category, got, tt.want)
			}
		})
	}
}

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		want    []string
		valid   bool
		wantMsg string
	}{
		{"absent", nil, nil, true, ""},
		{"empty value", []string{""}, nil, true, ""},
		{"single", []string{"k"}, []string{"k"}, true, ""},
		{"keeps caller order", []string{"k,a"}, []string{"k", "a"}, true, ""},
		{"repeated parameter", []string{"k", "a,b"}, []string{"k", "a", "b"}, true, ""},
		{"trims and lowercases", []string{" K , a "}, []string{"k", "a"}, true, ""},
		{"drops duplicates", []string{"a,k,a"}, []string{"a", "k"}, true, ""},
		{"skips blanks", []string{"a,,b,"}, []string{"a", "b"}, true, ""},
		{"invalid code", []string{"a,b;c"}, nil, false, `Invalid category: "b;c"`},
		{"too many", []string{"a,b,c,d,e,f,g,h,i,j,k,l,m,n,o,p,q"}, nil, false, "Too many categories (max 16)"},
		{"max allowed", []string{"a,b,c,d,e,f,g,h,i,j,k,l,m,n,o,p"}, strings.Split("a,b,c,d,e,f,g,h,i,j,k,l,m,n,o,p", ","), true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, valid, msg := ParseCategories(tt.raw...)
			if valid != tt.valid {
				t.Fatalf("ParseCategories(%q) valid = %v, want %v (msg %q)", tt.raw, valid, tt.valid, msg)
			}
			if !valid && msg != tt.wantMsg {
				t.Errorf("ParseCategories(%q) msg = %q, want %q", tt.raw, msg, tt.wantMsg)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseCategories(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseLength(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  int
		isSet bool
		valid bool
	}{
		{"absent", "", 0, false, true},
		{"zero", "0", 0, true, true},
		{"positive", "400", 400, true, true},
		{"padded", " 12 ", 12, true, true},
		{"negative", "-1", 0, false, false},
		{"not a number", "ten", 0, false, false},
		{"float", "1.5", 0, false, false},
		{"overflow", "99999999999999999999", 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, valid, msg := ParseLength("min_length", tt.raw)
			if valid != tt.valid {
				t.Fatalf("ParseLength(%q) valid = %v, want %v", tt.raw, valid, tt.valid)
			}
			if !valid {
				if msg != "min_length must be a non-negative integer" {
					t.Errorf("ParseLength(%q) msg = %q", tt.raw, msg)
				}
				return
			}
			if (got != nil) != tt.isSet {
				t.Fatalf("ParseLength(%q) set = %v, want %v", tt.raw, got != nil, tt.isSet)
			}
			if got != nil && *got != tt.want {
				t.Errorf("ParseLength(%q) = %d, want %d", tt.raw, *got, tt.want)
			}
		})
	}
}

func TestParseFilter(t *testing.T) {
	f, valid, msg := ParseFilter([]string{"k,a"}, "3", "300")
	if !valid {
		t.Fatalf("ParseFilter valid = false, msg %q", msg)
	}
	if !reflect.DeepEqual(f.Categories, []string{"k", "a"}) {
		t.Errorf("Categories = %q", f.Categories)
	}
	if f.MinLength == nil || *f.MinLength != 3 || f.MaxLength == nil || *f.MaxLength != 300 {
		t.Errorf("bounds = %v, %v", f.MinLength, f.MaxLength)
	}

	// An inverted range is left for the sampler to reject.
	f, valid, _ = ParseFilter(nil, "50", "10")
	if !valid || *f.MinLength != 50 || *f.MaxLength != 10 {
		t.Errorf("inverted range: valid = %v, filter = %+v", valid, f)
	}

	empty, valid, _ := ParseFilter(nil, "", "")
	if !valid || !empty.IsEmpty() {
		t.Errorf("no parameters should give an empty filter, got %+v", empty)
	}

	for _, tc := range []struct {
		cats     []string
		min, max string
		wantMsg  string
	}{
		{[]string{"!"}, "", "", `Invalid category: "!"`},
		{nil, "x", "", "min_length must be a non-negative integer"},
		{nil, "1", "-5", "max_length must be a non-negative integer"},
	} {
		if _, valid, msg := ParseFilter(tc.cats, tc.min, tc.max); valid || msg != tc.wantMsg {
			t.Errorf("ParseFilter(%q, %q, %q) = %v, %q; want false, %q", tc.cats, tc.min, tc.max, valid, msg, tc.wantMsg)
		}
	}
}

func TestNormalizeEncode(t *testing.T) {
	tests := []struct {
		encode string
		want   string
	}{
		{"", EncodeJSON},
		{"json", EncodeJSON},
		{"text", EncodeText},
		{"TEXT", EncodeText},
		{"xml", EncodeJSON},
	}

	for _, tt := range tests {
		if got := NormalizeEncode(tt.encode); got != tt.want {
			t.Errorf("NormalizeEncode(%q) = %q, want %q", tt.encode, got, tt.want)
		}
	}
}

func TestValidateUUID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"canonical", "9818ecda-9cbf-4f2a-9af8-8136ef39cfcd", true},
		{"uppercase", "9818ECDA-9CBF-4F2A-9AF8-8136EF39CFCD", true},
		{"empty", "", false},
		{"truncated", "9818ecda-9cbf-4f2a-9af8", false},
		{"keyword", "update_count", false},
		{"path traversal", "../etc/passwd", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateUUID(tt.id); got != tt.want {
				t.Errorf("ValidateUUID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}
