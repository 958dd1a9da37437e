package schema

import "testing"

func TestFeatureNamesOrder(t *testing.T) {
	want := []string{"Fever", "Cough", "Fatigue", "Difficulty Breathing", "Age", "Gender", "Blood Pressure", "Cholesterol Level"}
	got := Names()
	if len(got) != len(want) {
		t.Fatalf("got %d names, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if !SameOrder(want) {
		t.Error("SameOrder rejected canonical order")
	}
}

func TestSameOrder_Mismatch(t *testing.T) {
	swapped := Names()
	swapped[0], swapped[1] = swapped[1], swapped[0]
	if SameOrder(swapped) {
		t.Error("SameOrder accepted swapped order")
	}
	if SameOrder(Names()[:7]) {
		t.Error("SameOrder accepted short list")
	}
}

func TestNamesReturnsCopy(t *testing.T) {
	n := Names()
	n[0] = "mutated"
	if FeatureNames[0] != Fever {
		t.Error("Names leaked the backing array")
	}
}

func TestEncodeYesNo(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"Yes", 1},
		{"yes", 1},
		{"YES", 1},
		{"No", 0},
		{"no", 0},
		{"maybe", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := EncodeYesNo(tt.in); got != tt.want {
			t.Errorf("EncodeYesNo(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEncodeGender(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"Male", 1},
		{"male", 1},
		{"Female", 0},
		{"other", 0},
	}
	for _, tt := range tests {
		if got := EncodeGender(tt.in); got != tt.want {
			t.Errorf("EncodeGender(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStrictParsers(t *testing.T) {
	if v, err := ParseYesNo("YES"); err != nil || v != 1 {
		t.Errorf("ParseYesNo(YES) = %v, %v", v, err)
	}
	if v, err := ParseYesNo("no"); err != nil || v != 0 {
		t.Errorf("ParseYesNo(no) = %v, %v", v, err)
	}
	if _, err := ParseYesNo("maybe"); err == nil {
		t.Error("ParseYesNo(maybe) should fail")
	}
	if v, err := ParseGender("female"); err != nil || v != 0 {
		t.Errorf("ParseGender(female) = %v, %v", v, err)
	}
	if _, err := ParseGender("x"); err == nil {
		t.Error("ParseGender(x) should fail")
	}
}
