package moose

import (
	"errors"
	"fmt"
)

const MOOSE_VERSION string = "1.0"
const GLBEXT string = ".glb"

// GLB 容器常量
const (
	GLB_MAGIC        uint32 = 0x46546C67 // "glTF"
	GLB_VERSION      uint32 = 2
	GLB_HEADER_SIZE         = 12
	GLB_CHUNK_HEADER        = 8
	CHUNK_TYPE_JSON  uint32 = 0x4E4F534A // "JSON"
	CHUNK_TYPE_BIN   uint32 = 0x004E4942 // "BIN\0"
)

// PaddingChar 用于二进制填充的字符
const PaddingChar = 0x20

var ErrInvalidAxis = errors.New("invalid axis: expected x, y or z")

// Axis 坐标轴
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

func ParseAxis(s string) (Axis, error) {
	switch Axis(s) {
	case AxisX, AxisY, AxisZ:
		return Axis(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAxis, s)
}

func (a Axis) Valid() bool {
	return a == AxisX || a == AxisY || a == AxisZ
}

// Index 返回分量下标, 非法轴直接panic
func (a Axis) Index() int {
	switch a {
	case AxisX:
		return 0
	case AxisY:
		return 1
	case AxisZ:
		return 2
	}
	panic(fmt.Sprintf("moose: %v: %q", ErrInvalidAxis, string(a)))
}

// others 返回另外两个轴的分量下标
func (a Axis) others() (int, int) {
	switch a.Index() {
	case 0:
		return 1, 2
	case 1:
		return 0, 2
	default:
		return 0, 1
	}
}

func (a Axis) unit() [3]float64 {
	var u [3]float64
	u[a.Index()] = 1
	return u
}

// PrimitiveType 基础几何体类型
type PrimitiveType string

const (
	PRIMITIVE_BOX          PrimitiveType = "box"
	PRIMITIVE_SPHERE       PrimitiveType = "sphere"
	PRIMITIVE_CYLINDER     PrimitiveType = "cylinder"
	PRIMITIVE_CONE         PrimitiveType = "cone"
	PRIMITIVE_TORUS        PrimitiveType = "torus"
	PRIMITIVE_PLANE        PrimitiveType = "plane"
	PRIMITIVE_DODECAHEDRON PrimitiveType = "dodecahedron"
	PRIMITIVE_ICOSAHEDRON  PrimitiveType = "icosahedron"
	PRIMITIVE_OCTAHEDRON   PrimitiveType = "octahedron"
	PRIMITIVE_TETRAHEDRON  PrimitiveType = "tetrahedron"
	PRIMITIVE_TORUS_KNOT   PrimitiveType = "torusKnot"
	PRIMITIVE_POINT        PrimitiveType = "point"
)

// ContainerKind 容器识别结果
type ContainerKind int

const (
	KindUnknown ContainerKind = iota
	KindOntology
	KindModel
)

func (k ContainerKind) String() string {
	switch k {
	case KindOntology:
		return "ontology"
	case KindModel:
		return "model"
	default:
		return "unknown"
	}
}
