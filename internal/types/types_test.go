package types

import "testing"

func TestByName(t *testing.T) {
	tests := []struct {
		name string
		want Kind
		ok   bool
	}{
		{"i32", I32, true},
		{"i64", I64, true},
		{"f32", F32, true},
		{"f64", F64, true},
		{"ptr", Ptr, true},
		{"usize", Ptr, true},
		{"void", Void, true},
		{"bogus", Invalid, false},
	}
	for _, tt := range tests {
		got, ok := ByName(tt.name)
		if ok != tt.ok {
			t.Fatalf("ByName(%q) ok = %v, want %v", tt.name, ok, tt.ok)
		}
		if ok && got.Kind() != tt.want {
			t.Errorf("ByName(%q) = %v, want %v", tt.name, got.Kind(), tt.want)
		}
	}
}

func TestIdentical(t *testing.T) {
	if !Identical(Typ[I32], Typ[I32]) {
		t.Error("I32 should be identical to I32")
	}
	if Identical(Typ[I32], Typ[I64]) {
		t.Error("I32 should not be identical to I64")
	}
	if !Identical(nil, nil) {
		t.Error("nil should be identical to nil")
	}
	if Identical(Typ[I32], nil) {
		t.Error("I32 should not be identical to nil")
	}
}

func TestSizeof(t *testing.T) {
	tests := map[Kind]int64{
		I32: 4,
		I64: 8,
		F32: 4,
		F64: 8,
		Ptr: 8,
	}
	for k, want := range tests {
		got := DefaultSizes.Sizeof(Typ[k])
		if got != want {
			t.Errorf("Sizeof(%s) = %d, want %d", Typ[k], got, want)
		}
	}
}

func TestPredicates(t *testing.T) {
	if !IsArithmetic(Typ[I32]) || !IsArithmetic(Typ[I64]) {
		t.Error("I32/I64 should be arithmetic")
	}
	if IsArithmetic(Typ[F64]) || IsArithmetic(Typ[Ptr]) {
		t.Error("F64/Ptr should not be arithmetic")
	}
	if !IsComparable(Typ[Ptr]) {
		t.Error("Ptr should be comparable")
	}
	if IsComparable(Typ[F32]) {
		t.Error("F32 should not be comparable")
	}
}
