package labelmap

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFromNames(t *testing.T) {
	m := FromNames([]string{"cheeseburger", "guacamole", "bagel"})

	if m.Len() != 3 {
		t.Errorf("Expected 3 label slots, got %d", m.Len())
	}

	name, ok := m.Lookup(1)
	if !ok || name != "guacamole" {
		t.Errorf("Expected guacamole at index 1, got %q (%v)", name, ok)
	}
}

func TestFromBytesKeepsBlankLineIndices(t *testing.T) {
	m := FromBytes([]byte("cheeseburger\n\nbagel\n"))

	if m.Len() != 3 {
		t.Fatalf("Expected 3 label slots, got %d", m.Len())
	}

	if _, ok := m.Lookup(1); ok {
		t.Error("Expected blank line to resolve no name")
	}

	name, ok := m.Lookup(2)
	if !ok || name != "bagel" {
		t.Errorf("Expected bagel at index 2, got %q (%v)", name, ok)
	}
}

func TestFromBytesHandlesCRLF(t *testing.T) {
	m := FromBytes([]byte("a\r\nb\r\n"))

	if m.Len() != 2 {
		t.Fatalf("Expected 2 label slots, got %d", m.Len())
	}
	if name, _ := m.Lookup(1); name != "b" {
		t.Errorf("Expected b at index 1, got %q", name)
	}
}

func TestLookupOutOfRange(t *testing.T) {
	m := FromNames([]string{"a"})

	for _, index := range []int{-1, 1, 1000} {
		if _, ok := m.Lookup(index); ok {
			t.Errorf("Expected no name at index %d", index)
		}
	}
}

func TestNilMapResolvesNothing(t *testing.T) {
	var m *Map

	if _, ok := m.Lookup(0); ok {
		t.Error("Nil map should resolve no names")
	}
	if m.Len() != 0 {
		t.Errorf("Nil map should have length 0, got %d", m.Len())
	}
	if m.Names() != nil {
		t.Error("Nil map should return nil names")
	}
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0644); err != nil {
		t.Fatalf("failed to write label file: %v", err)
	}

	m, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile failed: %v", err)
	}

	if m.Len() != 3 {
		t.Errorf("Expected 3 labels, got %d", m.Len())
	}
	if name, _ := m.Lookup(2); name != "three" {
		t.Errorf("Expected three at index 2, got %q", name)
	}
}

func TestFromFileMissing(t *testing.T) {
	if _, err := FromFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("Expected error for missing label file")
	}
}

func TestNamesReturnsCopy(t *testing.T) {
	m := FromNames([]string{"a", "b"})

	names := m.Names()
	names[0] = "mutated"

	if name, _ := m.Lookup(0); name != "a" {
		t.Errorf("Names() aliases internal state: %q", name)
	}
}
