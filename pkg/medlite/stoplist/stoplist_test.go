package stoplist

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestManagerBasic(t *testing.T) {
	m := NewManager([]string{"Patients", "the"})

	if !m.IsStop("patients") {
		t.Error("patients should be excluded")
	}
	if !m.IsExcluded("C0030705", "PATIENTS") {
		t.Error("global exclusion applies to every concept")
	}
	if m.IsStop("diabetes") {
		t.Error("diabetes should not be excluded")
	}

	m.Remove("patients")
	if m.IsStop("patients") {
		t.Error("removed term should no longer be excluded")
	}
}

func TestPairExclusion(t *testing.T) {
	m := NewManager(nil)
	m.Add("C0030705", "patient")

	if !m.IsExcluded("C0030705", "Patient") {
		t.Error("pair should be excluded")
	}
	if m.IsExcluded("C1578483", "patient") {
		t.Error("other concepts for the same term are allowed")
	}
	if m.IsStop("patient") {
		t.Error("pair exclusion is not a global stop")
	}
}

func TestRead(t *testing.T) {
	input := `# excluded terms
patients

C0030705|patient
C0439234| year
`
	m, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	want := []string{"C0030705|patient", "C0439234|year", "patients"}
	if got := m.All(); !reflect.DeepEqual(got, want) {
		t.Errorf("All() = %v, want %v", got, want)
	}
	if m.Len() != 3 {
		t.Errorf("Len = %d", m.Len())
	}
}

func TestReadRejectsEmptyTerm(t *testing.T) {
	_, err := Read(strings.NewReader("ok\nC0000001|\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line 2 error, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "specialterms.txt")
	if err := os.WriteFile(path, []byte("study\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.IsStop("Study") {
		t.Error("study should be excluded")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNilManager(t *testing.T) {
	var m *Manager
	if m.IsExcluded("C1", "x") || m.IsStop("x") {
		t.Error("nil manager excludes nothing")
	}
}
