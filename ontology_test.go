package moose

import (
	"errors"
	"reflect"
	"testing"
)

func TestRelationshipMatrixAddConcept(t *testing.T) {
	m := RelationshipMatrix{}
	m.AddConcept("FORM")
	m.AddConcept("RESONANCE")
	m.AddConcept("FORM")

	if got := m.Concepts(); !reflect.DeepEqual(got, []string{"FORM", "RESONANCE"}) {
		t.Errorf("Concepts() = %v", got)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Matrix should stay square: %v", err)
	}
	for _, c := range m.Concepts() {
		if label, ok := m.Relation(c, c); !ok || label != SelfRelation {
			t.Errorf("Diagonal %s = %q, %v", c, label, ok)
		}
	}
	if label, ok := m.Relation("FORM", "RESONANCE"); !ok || label != "" {
		t.Errorf("New cells should be empty, got %q %v", label, ok)
	}
}

func TestRelationshipMatrixSetRemove(t *testing.T) {
	m := RelationshipMatrix{}
	m.SetRelation("A", "B", "Drives")
	m.SetRelation("C", "A", "Dampens")

	if label, _ := m.Relation("A", "B"); label != "Drives" {
		t.Errorf("A->B = %q", label)
	}
	if _, ok := m.Relation("B", "Z"); ok {
		t.Error("Unknown column should not be found")
	}
	if _, ok := m.Relation("Z", "A"); ok {
		t.Error("Unknown row should not be found")
	}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}

	m.RemoveConcept("A")
	if got := m.Concepts(); !reflect.DeepEqual(got, []string{"B", "C"}) {
		t.Errorf("Concepts() after remove = %v", got)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Matrix should stay square after remove: %v", err)
	}
}

func TestRelationshipMatrixValidate(t *testing.T) {
	tests := []struct {
		name string
		m    RelationshipMatrix
		ok   bool
	}{
		{"empty", RelationshipMatrix{}, true},
		{"single", RelationshipMatrix{"A": {"A": "Self"}}, true},
		{"missing row", RelationshipMatrix{"A": {"A": "Self", "B": ""}}, false},
		{"short row", RelationshipMatrix{"A": {"A": "Self", "B": ""}, "B": {"B": "Self"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
			if err != nil && !errors.Is(err, ErrMatrixNotSquare) {
				t.Errorf("Expected ErrMatrixNotSquare, got %v", err)
			}
		})
	}
}

func TestNonSquareMatrixRoundTrips(t *testing.T) {
	schema := NewOntologicalSchema()
	schema.RelationshipMatrix["A"] = map[string]string{"B": "Orbits"}

	data, err := WriteContainer(schema)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ReadContainer(data)
	if err != nil {
		t.Fatalf("Container codec should accept non-square matrices: %v", err)
	}
	if !reflect.DeepEqual(got.RelationshipMatrix, schema.RelationshipMatrix) {
		t.Errorf("Matrix mismatch: %v", got.RelationshipMatrix)
	}
}
