package moose

import (
	"sort"
	"strings"
)

type PropsType int

const (
	PROP_TYPE_STRING = iota
	PROP_TYPE_INT
	PROP_TYPE_FLOAT
	PROP_TYPE_BOOL
	PROP_TYPE_ARRAY
	PROP_TYPE_MAP
)

// ONTOLOGY_PARAM_PREFIX 节点自定义属性中本体参数的键前缀
const ONTOLOGY_PARAM_PREFIX = "myos_param_"

type PropsValue struct {
	Type  PropsType
	Value interface{}
}

// Properties 节点的用户数据, 导出为 glTF extras
type Properties map[string]PropsValue

func StringProp(v string) PropsValue { return PropsValue{Type: PROP_TYPE_STRING, Value: v} }
func IntProp(v int64) PropsValue     { return PropsValue{Type: PROP_TYPE_INT, Value: v} }
func FloatProp(v float64) PropsValue { return PropsValue{Type: PROP_TYPE_FLOAT, Value: v} }
func BoolProp(v bool) PropsValue     { return PropsValue{Type: PROP_TYPE_BOOL, Value: v} }

// propsToMap 将Properties转换为map[string]interface{}格式，以便序列化到GLTF extras中
func propsToMap(props *Properties) map[string]interface{} {
	if props == nil {
		return nil
	}

	result := make(map[string]interface{})
	for key, value := range *props {
		result[key] = propsValueToInterface(value)
	}
	return result
}

// propsValueToInterface 将PropsValue转换为interface{}格式
func propsValueToInterface(value PropsValue) interface{} {
	switch value.Type {
	case PROP_TYPE_STRING:
		return value.Value.(string)
	case PROP_TYPE_INT:
		return value.Value.(int64)
	case PROP_TYPE_FLOAT:
		return value.Value.(float64)
	case PROP_TYPE_BOOL:
		return value.Value.(bool)
	case PROP_TYPE_ARRAY:
		arr := value.Value.([]PropsValue)
		result := make([]interface{}, len(arr))
		for i, item := range arr {
			result[i] = propsValueToInterface(item)
		}
		return result
	case PROP_TYPE_MAP:
		subProps := value.Value.(Properties)
		return propsToMap(&subProps)
	default:
		return nil
	}
}

// PropsFromMap 由解码后的 JSON extras 构造 Properties, 无法表示的值被忽略
func PropsFromMap(m map[string]interface{}) *Properties {
	if m == nil {
		return nil
	}
	props := make(Properties, len(m))
	for k, v := range m {
		if pv, ok := interfaceToPropsValue(v); ok {
			props[k] = pv
		}
	}
	return &props
}

func interfaceToPropsValue(v interface{}) (PropsValue, bool) {
	switch val := v.(type) {
	case string:
		return StringProp(val), true
	case bool:
		return BoolProp(val), true
	case float64:
		if val == float64(int64(val)) && val >= -1<<53 && val <= 1<<53 {
			return IntProp(int64(val)), true
		}
		return FloatProp(val), true
	case float32:
		return FloatProp(float64(val)), true
	case int:
		return IntProp(int64(val)), true
	case int64:
		return IntProp(val), true
	case []interface{}:
		arr := make([]PropsValue, 0, len(val))
		for _, item := range val {
			if pv, ok := interfaceToPropsValue(item); ok {
				arr = append(arr, pv)
			}
		}
		return PropsValue{Type: PROP_TYPE_ARRAY, Value: arr}, true
	case map[string]interface{}:
		return PropsValue{Type: PROP_TYPE_MAP, Value: *PropsFromMap(val)}, true
	}
	return PropsValue{}, false
}

func (v PropsValue) Float() (float64, bool) {
	switch v.Type {
	case PROP_TYPE_FLOAT:
		return v.Value.(float64), true
	case PROP_TYPE_INT:
		return float64(v.Value.(int64)), true
	}
	return 0, false
}

// OntologicalParameter 从节点属性中提取的可调参数
type OntologicalParameter struct {
	ID          string      `json:"id"`
	Concept     string      `json:"concept"`
	DisplayName string      `json:"displayName"`
	Type        string      `json:"type"`
	Value       interface{} `json:"value"`
	Target      string      `json:"target,omitempty"`
	Min         *float64    `json:"min,omitempty"`
	Max         *float64    `json:"max,omitempty"`
	Step        *float64    `json:"step,omitempty"`
}

// parseParamKey myos_param_RESONANCE_Glow_Intensity -> RESONANCE, "Glow Intensity"
func parseParamKey(key string) (string, string, bool) {
	if !strings.HasPrefix(key, ONTOLOGY_PARAM_PREFIX) {
		return "", "", false
	}
	rest := strings.TrimPrefix(key, ONTOLOGY_PARAM_PREFIX)
	idx := strings.Index(rest, "_")
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", false
	}
	return rest[:idx], strings.ReplaceAll(rest[idx+1:], "_", " "), true
}

func scalarParam(p *OntologicalParameter, v PropsValue) bool {
	if v.Type == PROP_TYPE_BOOL {
		p.Type = "boolean"
		p.Value = v.Value.(bool)
		return true
	}
	if f, ok := v.Float(); ok {
		p.Type = "number"
		p.Value = f
		return true
	}
	return false
}

func optionalFloat(sub Properties, key string) *float64 {
	if v, ok := sub[key]; ok {
		if f, ok := v.Float(); ok {
			return &f
		}
	}
	return nil
}

// OntologicalParameters 提取 myos_param_ 前缀的数值/布尔参数, 按 ID 排序.
// 值可以是标量, 或包含 value/min/max/step/target 的对象.
func OntologicalParameters(props *Properties) []OntologicalParameter {
	if props == nil {
		return nil
	}
	var params []OntologicalParameter
	for key, v := range *props {
		concept, name, ok := parseParamKey(key)
		if !ok {
			continue
		}
		p := OntologicalParameter{ID: key, Concept: concept, DisplayName: name}
		if v.Type == PROP_TYPE_MAP {
			sub := v.Value.(Properties)
			val, ok := sub["value"]
			if !ok || !scalarParam(&p, val) {
				continue
			}
			if t, ok := sub["target"]; ok && t.Type == PROP_TYPE_STRING {
				p.Target = t.Value.(string)
			}
			p.Min = optionalFloat(sub, "min")
			p.Max = optionalFloat(sub, "max")
			p.Step = optionalFloat(sub, "step")
		} else if !scalarParam(&p, v) {
			continue
		}
		params = append(params, p)
	}
	sort.Slice(params, func(i, j int) bool { return params[i].ID < params[j].ID })
	return params
}
