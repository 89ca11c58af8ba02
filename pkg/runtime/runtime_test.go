package runtime_test

import (
	"math"
	"strconv"
	"testing"

	"nanlang/interpreter-go/pkg/runtime"
)

func TestEnvironmentSetGet(t *testing.T) {
	env := runtime.NewEnvironment()
	if env.Contains("x") {
		t.Fatalf("new environment should not contain x")
	}
	if _, ok := env.Get("x"); ok {
		t.Fatalf("Get on absent variable reported ok")
	}

	env.Set("x", 1.5)
	v, ok := env.Get("x")
	if !ok || v != 1.5 {
		t.Fatalf("Get(x) = %v, %v; want 1.5, true", v, ok)
	}

	env.Set("x", -2)
	if v, _ := env.Get("x"); v != -2 {
		t.Fatalf("overwrite failed, Get(x) = %v", v)
	}
	if env.Len() != 1 {
		t.Fatalf("Len = %d, want 1", env.Len())
	}
}

func TestEnvironmentSnapshotIsCopy(t *testing.T) {
	env := runtime.NewEnvironment()
	env.Set("a", 1)
	snap := env.Snapshot()
	snap["a"] = 99
	if v, _ := env.Get("a"); v != 1 {
		t.Fatalf("mutating snapshot affected environment: %v", v)
	}
}

func TestEnvironmentKeysSorted(t *testing.T) {
	env := runtime.NewEnvironment()
	env.Set("b", 2)
	env.Set("a", 1)
	env.Set("c", 3)
	got := env.Keys()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("Keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keys = %v, want %v", got, want)
		}
	}
}

func TestLookupBuiltinArities(t *testing.T) {
	oneArg := []string{"sqrt", "sin", "cos", "tan", "abs", "log", "exp", "floor", "ceil"}
	twoArg := []string{"pow", "min", "max"}

	for _, name := range oneArg {
		b, ok := runtime.LookupBuiltin(name)
		if !ok {
			t.Errorf("LookupBuiltin(%q) missing", name)
			continue
		}
		if b.Arity != 1 {
			t.Errorf("%s arity = %d, want 1", name, b.Arity)
		}
	}
	for _, name := range twoArg {
		b, ok := runtime.LookupBuiltin(name)
		if !ok {
			t.Errorf("LookupBuiltin(%q) missing", name)
			continue
		}
		if b.Arity != 2 {
			t.Errorf("%s arity = %d, want 2", name, b.Arity)
		}
	}
	if _, ok := runtime.LookupBuiltin("nope"); ok {
		t.Errorf("LookupBuiltin(nope) should fail")
	}
}

func TestBuiltinResults(t *testing.T) {
	cases := []struct {
		name string
		args []float64
		want float64
	}{
		{"sqrt", []float64{16}, 4},
		{"abs", []float64{-3}, 3},
		{"floor", []float64{-1.5}, -2},
		{"ceil", []float64{-1.5}, -1},
		{"pow", []float64{2, 10}, 1024},
		{"min", []float64{-1, 1}, -1},
		{"max", []float64{-1, 1}, 1},
	}
	for _, tc := range cases {
		b, ok := runtime.LookupBuiltin(tc.name)
		if !ok {
			t.Fatalf("LookupBuiltin(%q) missing", tc.name)
		}
		if got := b.Call(tc.args); got != tc.want {
			t.Errorf("%s(%v) = %v, want %v", tc.name, tc.args, got, tc.want)
		}
	}
}

func TestFormatNumberIntegers(t *testing.T) {
	cases := []struct {
		value float64
		want  string
	}{
		{0, "0"},
		{6, "6"},
		{-42, "-42"},
		{2.0000000001, "2"},
		{1e-10, "0"},
		{1000000, "1000000"},
	}
	for _, tc := range cases {
		if got := runtime.FormatNumber(tc.value); got != tc.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestFormatNumberFractions(t *testing.T) {
	got := runtime.FormatNumber(1.0 / 3.0)
	if got != "0.333333333333" {
		t.Fatalf("FormatNumber(1/3) = %q, want 0.333333333333", got)
	}
	if got := runtime.FormatNumber(-2.5); got != "-2.5" {
		t.Fatalf("FormatNumber(-2.5) = %q", got)
	}
}

func TestFormatNumberHugeValuesFallThrough(t *testing.T) {
	got := runtime.FormatNumber(1e20)
	if _, err := strconv.ParseFloat(got, 64); err != nil {
		t.Fatalf("FormatNumber(1e20) = %q is not re-parseable: %v", got, err)
	}
}

func TestFormatNumberRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 1, -1, 4, 15, 123456, -99999} {
		formatted := runtime.FormatNumber(v)
		parsed, err := strconv.ParseFloat(formatted, 64)
		if err != nil {
			t.Fatalf("re-parse %q: %v", formatted, err)
		}
		if math.Abs(parsed-v) >= 1e-9 {
			t.Fatalf("round trip of %v via %q gave %v", v, formatted, parsed)
		}
	}
}
