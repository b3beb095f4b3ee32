package moose

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestPropsMapRoundTrip(t *testing.T) {
	props := &Properties{
		"name":   StringProp("crate"),
		"count":  IntProp(4),
		"weight": FloatProp(1.25),
		"locked": BoolProp(true),
		"tags":   PropsValue{Type: PROP_TYPE_ARRAY, Value: []PropsValue{StringProp("a"), IntProp(2)}},
		"nested": PropsValue{Type: PROP_TYPE_MAP, Value: Properties{"depth": IntProp(1)}},
	}

	raw, err := json.Marshal(propsToMap(props))
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	got := PropsFromMap(decoded)
	if !reflect.DeepEqual(got, props) {
		t.Errorf("Round trip mismatch:\n got %v\nwant %v", *got, *props)
	}
}

func TestPropsFromMapSkipsNull(t *testing.T) {
	got := PropsFromMap(map[string]interface{}{"a": nil, "b": "x"})
	if len(*got) != 1 {
		t.Errorf("Expected only b, got %v", *got)
	}
	if PropsFromMap(nil) != nil {
		t.Error("nil map should give nil props")
	}
}

func TestOntologicalParameters(t *testing.T) {
	props := &Properties{
		"myos_param_RESONANCE_Glow_Intensity": FloatProp(0.8),
		"myos_param_FORM_Visible":             BoolProp(true),
		"myos_param_FORM_Scale": PropsValue{Type: PROP_TYPE_MAP, Value: Properties{
			"value":  FloatProp(1.5),
			"min":    IntProp(0),
			"max":    IntProp(3),
			"step":   FloatProp(0.1),
			"target": StringProp("modifiers.taper.factor"),
		}},
		"myos_param_FORM_Label": StringProp("ignored"),
		"myos_param_BROKEN":     FloatProp(1),
		"label":                 StringProp("not a parameter"),
	}

	params := OntologicalParameters(props)
	if len(params) != 3 {
		t.Fatalf("Expected 3 parameters, got %d: %+v", len(params), params)
	}

	want := []string{"myos_param_FORM_Scale", "myos_param_FORM_Visible", "myos_param_RESONANCE_Glow_Intensity"}
	for i, p := range params {
		if p.ID != want[i] {
			t.Errorf("params[%d].ID = %s, want %s", i, p.ID, want[i])
		}
	}

	scale := params[0]
	if scale.Concept != "FORM" || scale.DisplayName != "Scale" || scale.Type != "number" || scale.Value != 1.5 {
		t.Errorf("Unexpected scale parameter %+v", scale)
	}
	if scale.Min == nil || *scale.Min != 0 || scale.Max == nil || *scale.Max != 3 || scale.Step == nil || *scale.Step != 0.1 {
		t.Errorf("Unexpected range %v %v %v", scale.Min, scale.Max, scale.Step)
	}
	if scale.Target != "modifiers.taper.factor" {
		t.Errorf("Unexpected target %q", scale.Target)
	}

	if params[1].Type != "boolean" || params[1].Value != true {
		t.Errorf("Unexpected boolean parameter %+v", params[1])
	}
	if params[2].DisplayName != "Glow Intensity" || params[2].Concept != "RESONANCE" {
		t.Errorf("Unexpected name parsing %+v", params[2])
	}

	if OntologicalParameters(nil) != nil {
		t.Error("nil props should give no parameters")
	}
}
