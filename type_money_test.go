package pnl

import "testing"

func TestMoneyString(t *testing.T) {
	tests := []struct {
		in   Money
		want string
	}{
		{USD(1234.5), "$1,234.50"},
		{USD(-12.34), "-$12.34"},
		{M(99.9, "EUR"), "€99.90"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestMoneySignedString(t *testing.T) {
	tests := []struct {
		in   Money
		want string
	}{
		{USD(700), "+$700.00"},
		{USD(-150), "-$150.00"},
		{USD(0), "-"},
	}
	for _, tt := range tests {
		if got := tt.in.SignedString(); got != tt.want {
			t.Errorf("SignedString() = %q, want %q", got, tt.want)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := USD(100.10)
	b := USD(0.20)
	if got, want := a.Add(b), USD(100.30); !got.Equal(want) {
		t.Errorf("Add = %s, want %s", got, want)
	}
	if got, want := a.Sub(b), USD(99.90); !got.Equal(want) {
		t.Errorf("Sub = %s, want %s", got, want)
	}
	if got, want := b.Mul(Q(3)), USD(0.60); !got.Equal(want) {
		t.Errorf("Mul = %s, want %s", got, want)
	}
	if got, want := a.Div(Q(7)).Mul(Q(7)), a; !got.Equal(want) {
		t.Errorf("Div then Mul = %s, want %s", got, want)
	}
}

func TestQuantityIsFlat(t *testing.T) {
	if !Q(0.0000001).IsFlat() {
		t.Errorf("a residual below the epsilon should be flat")
	}
	if Q(0.001).IsFlat() {
		t.Errorf("a real fractional position is not flat")
	}
	if !Q(0).IsFlat() {
		t.Errorf("zero is flat")
	}
}
