package moose

import (
	"math"

	dvec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/flywave/go3d/vec3"
)

// Geometry 可变形几何体, 顶点按 xyz 平铺存放
type Geometry struct {
	Positions []float32 `json:"positions"`
	Normals   []float32 `json:"normals,omitempty"`
	TexCoords []float32 `json:"texCoords,omitempty"`
	Indices   []uint32  `json:"indices,omitempty"`
}

func NewGeometry(positions []float32) *Geometry {
	return &Geometry{Positions: positions}
}

func (g *Geometry) VertexCount() int {
	return len(g.Positions) / 3
}

func (g *Geometry) Vertex(i int) vec3.T {
	return vec3.T{g.Positions[i*3], g.Positions[i*3+1], g.Positions[i*3+2]}
}

func (g *Geometry) SetVertex(i int, v vec3.T) {
	copy(g.Positions[i*3:i*3+3], v[:])
}

func (g *Geometry) IsIndexed() bool {
	return len(g.Indices) > 0
}

// TriangleCount 三角形数量
func (g *Geometry) TriangleCount() int {
	if g.IsIndexed() {
		return len(g.Indices) / 3
	}
	return g.VertexCount() / 3
}

func (g *Geometry) Clone() *Geometry {
	c := &Geometry{}
	if g.Positions != nil {
		c.Positions = append([]float32(nil), g.Positions...)
	}
	if g.Normals != nil {
		c.Normals = append([]float32(nil), g.Normals...)
	}
	if g.TexCoords != nil {
		c.TexCoords = append([]float32(nil), g.TexCoords...)
	}
	if g.Indices != nil {
		c.Indices = append([]uint32(nil), g.Indices...)
	}
	return c
}

// BoundingBox 轴对齐包围盒
func (g *Geometry) BoundingBox() vec3.Box {
	bx := positionsBoundbox(g.Positions)
	return vec3.Box{
		Min: vec3.T{float32(bx[0]), float32(bx[1]), float32(bx[2])},
		Max: vec3.T{float32(bx[3]), float32(bx[4]), float32(bx[5])},
	}
}

func (g *Geometry) GetBoundbox() *[6]float64 {
	return positionsBoundbox(g.Positions)
}

func positionsBoundbox(positions []float32) *[6]float64 {
	if len(positions) < 3 {
		return &[6]float64{}
	}
	minX := math.MaxFloat64
	minY := math.MaxFloat64
	minZ := math.MaxFloat64
	maxX := -math.MaxFloat64
	maxY := -math.MaxFloat64
	maxZ := -math.MaxFloat64
	for i := 0; i+2 < len(positions); i += 3 {
		minX = math.Min(minX, float64(positions[i]))
		minY = math.Min(minY, float64(positions[i+1]))
		minZ = math.Min(minZ, float64(positions[i+2]))

		maxX = math.Max(maxX, float64(positions[i]))
		maxY = math.Max(maxY, float64(positions[i+1]))
		maxZ = math.Max(maxZ, float64(positions[i+2]))
	}
	return &[6]float64{minX, minY, minZ, maxX, maxY, maxZ}
}

func (g *Geometry) triangle(i int) (uint32, uint32, uint32) {
	if g.IsIndexed() {
		return g.Indices[i*3], g.Indices[i*3+1], g.Indices[i*3+2]
	}
	b := uint32(i * 3)
	return b, b + 1, b + 2
}

// ComputeVertexNormals 按面法线累加重新计算顶点法线
func (g *Geometry) ComputeVertexNormals() {
	normals := make([]vec3.T, g.VertexCount())
	for i := 0; i < g.TriangleCount(); i++ {
		a, b, c := g.triangle(i)
		pt1 := g.Vertex(int(a))
		pt2 := g.Vertex(int(b))
		pt3 := g.Vertex(int(c))

		sub1 := vec3.Sub(&pt3, &pt2)
		sub2 := vec3.Sub(&pt1, &pt2)

		cro := vec3.Cross(&sub1, &sub2)
		l := cro.Length()
		if l == 0 {
			continue
		}
		weightedNormal := cro.Scale(1 / l)

		normals[a].Add(weightedNormal)
		normals[b].Add(weightedNormal)
		normals[c].Add(weightedNormal)
	}

	g.Normals = make([]float32, len(normals)*3)
	for i := range normals {
		if normals[i].LengthSqr() > 0 {
			normals[i].Normalize()
		}
		copy(g.Normals[i*3:i*3+3], normals[i][:])
	}
}

// Transform 节点变换, Rotation 为四元数 xyzw
type Transform struct {
	Position [3]float32 `json:"position" yaml:"position"`
	Rotation [4]float32 `json:"rotation" yaml:"rotation"`
	Scale    [3]float32 `json:"scale" yaml:"scale"`
}

func IdentityTransform() *Transform {
	return &Transform{Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}}
}

// MeshNode 场景中的一个可变形对象
type MeshNode struct {
	Name      string          `json:"name,omitempty"`
	Geometry  *Geometry       `json:"geometry"`
	Material  int32           `json:"material"`
	Transform *Transform      `json:"transform,omitempty"`
	Modifiers *ModifiersState `json:"modifiers,omitempty"`
	Props     *Properties     `json:"props,omitempty"`
}

// Deformed 返回应用修改器后的几何体副本, 原几何体不变
func (n *MeshNode) Deformed() (*Geometry, error) {
	if n.Geometry == nil {
		return &Geometry{}, nil
	}
	g := n.Geometry.Clone()
	if n.Modifiers == nil {
		return g, nil
	}
	if err := n.Modifiers.Apply(g); err != nil {
		return nil, err
	}
	return g, nil
}

type Mesh struct {
	Materials []MeshMaterial `json:"materials,omitempty"`
	Nodes     []*MeshNode    `json:"nodes,omitempty"`
	Props     *Properties    `json:"props,omitempty"`
}

func NewMesh() *Mesh {
	return &Mesh{Props: &Properties{}}
}

func (m *Mesh) NodeCount() int {
	return len(m.Nodes)
}

func (m *Mesh) MaterialCount() int {
	return len(m.Materials)
}

func (m *Mesh) AddNode(nd *MeshNode) int {
	m.Nodes = append(m.Nodes, nd)
	return len(m.Nodes) - 1
}

func (m *Mesh) ComputeBBox() dvec3.Box {
	if len(m.Nodes) == 0 {
		return dvec3.Box{}
	}

	bbox := dvec3.MinBox
	for _, nd := range m.Nodes {
		if nd.Geometry == nil || nd.Geometry.VertexCount() == 0 {
			continue
		}
		bx := nd.Geometry.GetBoundbox()
		min := dvec3.T{bx[0], bx[1], bx[2]}
		max := dvec3.T{bx[3], bx[4], bx[5]}
		bbx := dvec3.Box{Min: min, Max: max}
		bbox.Join(&bbx)
	}
	return bbox
}
