package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{"0", "0", true},
		{"-1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{"92233720368547758.07", "92233720368547758.07", true},
		{"92233720368547758.08", "", false},
		{"184467440737095516.17", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestCentsRoundTrip(t *testing.T) {
	d, _ := ParseAmount("1234.56")
	if c := ToCents(d); c != 123456 {
		t.Fatalf("ToCents = %d, want 123456", c)
	}
	if got := FromCents(123456); !got.Equal(d) {
		t.Fatalf("FromCents = %s, want %s", got, d)
	}
}

func TestCentsOfBounds(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		err  error
	}{
		{"92233720368547758.07", 9223372036854775807, nil},
		{"92233720368547758.065", 9223372036854775807, nil},
		{"92233720368547758.08", 0, ErrAmountTooLarge},
		{"184467440737095516.17", 0, ErrAmountTooLarge},
		{"-92233720368547758.08", 0, ErrAmountTooLarge},
		{"0.01", 1, nil},
	}
	for _, tt := range tests {
		got, err := CentsOf(decimal.RequireFromString(tt.in))
		if !errors.Is(err, tt.err) || got != tt.want {
			t.Errorf("CentsOf(%s) = %d, %v; want %d, %v", tt.in, got, err, tt.want, tt.err)
		}
	}
	if !errors.Is(ErrAmountTooLarge, ErrInvalidAmount) {
		t.Error("ErrAmountTooLarge should match ErrInvalidAmount")
	}
}
