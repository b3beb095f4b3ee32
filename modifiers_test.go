package moose

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestModifiersStateOrder(t *testing.T) {
	state := &ModifiersState{
		Twist: &TwistModifier{Enabled: true, Axis: AxisY, Angle: 0.8},
		Bend:  &BendModifier{Enabled: true, Axis: AxisY, Angle: 1.2},
		Taper: &TaperModifier{Enabled: true, Axis: AxisY, Factor: 0.5},
	}

	got := column()
	if err := state.ApplyToPositions(got); err != nil {
		t.Fatalf("ApplyToPositions failed: %v", err)
	}

	want := column()
	Twist(want, AxisY, 0.8)
	Bend(want, AxisY, 1.2)
	Taper(want, AxisY, 0.5)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected twist, bend, taper order\n got %v\nwant %v", got, want)
	}
}

func TestModifiersStateDisabled(t *testing.T) {
	state := &ModifiersState{
		Twist: &TwistModifier{Enabled: false, Axis: AxisY, Angle: 2},
		Taper: &TaperModifier{Enabled: false, Axis: "bogus", Factor: 4},
	}
	if state.Enabled() {
		t.Error("Enabled() should be false")
	}
	p := column()
	if err := state.ApplyToPositions(p); err == nil {
		t.Error("Unknown axis value should fail validation even when disabled")
	}

	state.Taper.Axis = ""
	if err := state.ApplyToPositions(p); err != nil {
		t.Fatalf("ApplyToPositions failed: %v", err)
	}
	if !reflect.DeepEqual(p, column()) {
		t.Error("Disabled modifiers must not change positions")
	}

	var nilState *ModifiersState
	if err := nilState.ApplyToPositions(p); err != nil {
		t.Errorf("nil state: %v", err)
	}
}

func TestModifiersStateValidate(t *testing.T) {
	tests := []struct {
		name  string
		state ModifiersState
		ok    bool
	}{
		{"empty", ModifiersState{}, true},
		{"valid", ModifiersState{Bend: &BendModifier{Enabled: true, Axis: AxisZ, Angle: 1}}, true},
		{"enabled without axis", ModifiersState{Twist: &TwistModifier{Enabled: true}}, false},
		{"bad axis", ModifiersState{Taper: &TaperModifier{Enabled: true, Axis: "q", Factor: 2}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}

	for _, st := range []ModifiersState{
		{Twist: &TwistModifier{Enabled: true}},
		{Bend: &BendModifier{Enabled: true, Axis: "w", Angle: 1}},
		{Taper: &TaperModifier{Axis: "q", Factor: 2}},
	} {
		if err := st.Validate(); !errors.Is(err, ErrInvalidAxis) {
			t.Errorf("Expected ErrInvalidAxis, got %v", err)
		}
	}
}

func TestModifiersStateApplyNormals(t *testing.T) {
	geom, err := NewPrimitive(PRIMITIVE_CYLINDER, PrimitiveParams{Height: 4})
	if err != nil {
		t.Fatal(err)
	}
	state := &ModifiersState{Bend: &BendModifier{Enabled: true, Axis: AxisY, Angle: math.Pi / 2}}
	if err := state.Apply(geom); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(geom.Normals) != len(geom.Positions) {
		t.Fatalf("Expected %d normal components, got %d", len(geom.Positions), len(geom.Normals))
	}
	for i := 0; i < len(geom.Normals); i += 3 {
		l := math.Sqrt(float64(geom.Normals[i]*geom.Normals[i] + geom.Normals[i+1]*geom.Normals[i+1] + geom.Normals[i+2]*geom.Normals[i+2]))
		if l != 0 && !near(l, 1) {
			t.Fatalf("normal %d has length %v", i/3, l)
		}
	}
}

func TestModifiersStateClone(t *testing.T) {
	s := ModifiersState{Twist: &TwistModifier{Enabled: true, Axis: AxisX, Angle: 1}}
	c := s.Clone()
	c.Twist.Angle = 2
	if s.Twist.Angle != 1 {
		t.Error("Clone should not share modifier pointers")
	}
	if c.Bend != nil || c.Taper != nil {
		t.Error("Clone should keep absent modifiers nil")
	}
}

func TestSetProperty(t *testing.T) {
	s := &ModifiersState{}
	if err := s.SetProperty("bend.angle", 0.3); err != nil {
		t.Fatal(err)
	}
	if s.Bend == nil || s.Bend.Angle != 0.3 || s.Bend.Enabled {
		t.Errorf("Expected disabled bend with angle 0.3, got %+v", s.Bend)
	}
	if err := s.SetProperty("taper.factor", 2); err != nil {
		t.Fatal(err)
	}
	if s.Taper.Factor != 2 {
		t.Errorf("Expected factor 2, got %v", s.Taper.Factor)
	}
	if err := s.SetProperty("twist.angle", 1); err != nil || s.Twist.Angle != 1 {
		t.Errorf("twist.angle: %v %+v", err, s.Twist)
	}

	for _, path := range []string{"bend.axis", "scale", "twist.angle.x", ""} {
		if err := s.SetProperty(path, 1); !errors.Is(err, ErrUnknownProperty) {
			t.Errorf("SetProperty(%q) = %v, want ErrUnknownProperty", path, err)
		}
	}
}

func TestMeshNodeDeformed(t *testing.T) {
	geom := NewGeometry(column())
	node := &MeshNode{
		Geometry:  geom,
		Modifiers: &ModifiersState{Taper: &TaperModifier{Enabled: true, Axis: AxisY, Factor: 3}},
	}
	out, err := node.Deformed()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(geom.Positions, column()) {
		t.Error("Deformed must not modify the source geometry")
	}
	if out.Positions[12] != 3 {
		t.Errorf("Expected top vertex x=3, got %v", out.Positions[12])
	}
}
