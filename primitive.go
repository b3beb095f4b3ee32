package moose

import (
	"errors"
	"fmt"
	"math"

	dvec3 "github.com/flywave/go3d/float64/vec3"
)

var ErrUnknownPrimitive = errors.New("unknown primitive type")

// PrimitiveParams 基础几何体参数, 零值取默认值
type PrimitiveParams struct {
	Width           float64 `json:"width,omitempty" yaml:"width,omitempty" validate:"gte=0"`
	Height          float64 `json:"height,omitempty" yaml:"height,omitempty" validate:"gte=0"`
	Depth           float64 `json:"depth,omitempty" yaml:"depth,omitempty" validate:"gte=0"`
	Radius          float64 `json:"radius,omitempty" yaml:"radius,omitempty" validate:"gte=0"`
	RadiusTop       float64 `json:"radiusTop,omitempty" yaml:"radiusTop,omitempty" validate:"gte=0"`
	RadiusBottom    float64 `json:"radiusBottom,omitempty" yaml:"radiusBottom,omitempty" validate:"gte=0"`
	Tube            float64 `json:"tube,omitempty" yaml:"tube,omitempty" validate:"gte=0"`
	WidthSegments   int     `json:"widthSegments,omitempty" yaml:"widthSegments,omitempty" validate:"gte=0,lte=1024"`
	HeightSegments  int     `json:"heightSegments,omitempty" yaml:"heightSegments,omitempty" validate:"gte=0,lte=1024"`
	RadialSegments  int     `json:"radialSegments,omitempty" yaml:"radialSegments,omitempty" validate:"gte=0,lte=1024"`
	TubularSegments int     `json:"tubularSegments,omitempty" yaml:"tubularSegments,omitempty" validate:"gte=0,lte=1024"`
	Detail          int     `json:"detail,omitempty" yaml:"detail,omitempty" validate:"gte=0,lte=8"`
	P               int     `json:"p,omitempty" yaml:"p,omitempty" validate:"gte=0"`
	Q               int     `json:"q,omitempty" yaml:"q,omitempty" validate:"gte=0"`
}

func orFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// NewPrimitive 生成基础几何体并计算法线
func NewPrimitive(tp PrimitiveType, p PrimitiveParams) (*Geometry, error) {
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid %s parameters: %w", tp, err)
	}
	var g *Geometry
	switch tp {
	case PRIMITIVE_BOX:
		g = BoxGeometry(orFloat(p.Width, 1), orFloat(p.Height, 1), orFloat(p.Depth, 1))
	case PRIMITIVE_SPHERE:
		g = SphereGeometry(orFloat(p.Radius, 1), orInt(p.WidthSegments, 32), orInt(p.HeightSegments, 16))
	case PRIMITIVE_CYLINDER:
		g = CylinderGeometry(orFloat(p.RadiusTop, 1), orFloat(p.RadiusBottom, 1), orFloat(p.Height, 1), orInt(p.RadialSegments, 32))
	case PRIMITIVE_CONE:
		g = CylinderGeometry(0, orFloat(p.Radius, 1), orFloat(p.Height, 1), orInt(p.RadialSegments, 32))
	case PRIMITIVE_TORUS:
		g = TorusGeometry(orFloat(p.Radius, 1), orFloat(p.Tube, 0.4), orInt(p.RadialSegments, 12), orInt(p.TubularSegments, 48))
	case PRIMITIVE_PLANE:
		g = PlaneGeometry(orFloat(p.Width, 1), orFloat(p.Height, 1))
	case PRIMITIVE_TETRAHEDRON, PRIMITIVE_OCTAHEDRON, PRIMITIVE_ICOSAHEDRON, PRIMITIVE_DODECAHEDRON:
		g = PolyhedronGeometry(tp, orFloat(p.Radius, 1), p.Detail)
	case PRIMITIVE_TORUS_KNOT:
		g = TorusKnotGeometry(orFloat(p.Radius, 1), orFloat(p.Tube, 0.4), orInt(p.TubularSegments, 64), orInt(p.RadialSegments, 8), orInt(p.P, 2), orInt(p.Q, 3))
	case PRIMITIVE_POINT:
		return &Geometry{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPrimitive, string(tp))
	}
	g.ComputeVertexNormals()
	return g, nil
}

type geometryBuilder struct {
	positions []float32
	uvs       []float32
	indices   []uint32
}

func (b *geometryBuilder) vertex(x, y, z float64) uint32 {
	b.positions = append(b.positions, float32(x), float32(y), float32(z))
	return uint32(len(b.positions)/3 - 1)
}

func (b *geometryBuilder) uv(u, v float64) {
	b.uvs = append(b.uvs, float32(u), float32(v))
}

func (b *geometryBuilder) face(a, c, d uint32) {
	b.indices = append(b.indices, a, c, d)
}

func (b *geometryBuilder) count() uint32 {
	return uint32(len(b.positions) / 3)
}

func (b *geometryBuilder) geometry() *Geometry {
	return &Geometry{Positions: b.positions, TexCoords: b.uvs, Indices: b.indices}
}

// BoxGeometry 长方体, 每个面 4 个独立顶点
func BoxGeometry(width, height, depth float64) *Geometry {
	b := &geometryBuilder{}
	plane := func(u, v, w int, udir, vdir, pw, ph, pd float64) {
		start := b.count()
		for iy := 0; iy <= 1; iy++ {
			y := float64(iy)*ph - ph/2
			for ix := 0; ix <= 1; ix++ {
				x := float64(ix)*pw - pw/2
				var vt [3]float64
				vt[u] = x * udir
				vt[v] = y * vdir
				vt[w] = pd / 2
				b.vertex(vt[0], vt[1], vt[2])
				b.uv(float64(ix), 1-float64(iy))
			}
		}
		a := start
		bb := start + 2
		c := start + 3
		d := start + 1
		b.face(a, bb, d)
		b.face(bb, c, d)
	}
	plane(2, 1, 0, -1, -1, depth, height, width)
	plane(2, 1, 0, 1, -1, depth, height, -width)
	plane(0, 2, 1, 1, 1, width, depth, height)
	plane(0, 2, 1, 1, -1, width, depth, -height)
	plane(0, 1, 2, 1, -1, width, height, depth)
	plane(0, 1, 2, -1, -1, width, height, -depth)
	return b.geometry()
}

// PlaneGeometry XY 平面上的矩形
func PlaneGeometry(width, height float64) *Geometry {
	b := &geometryBuilder{}
	for iy := 0; iy <= 1; iy++ {
		y := float64(iy)*height - height/2
		for ix := 0; ix <= 1; ix++ {
			x := float64(ix)*width - width/2
			b.vertex(x, -y, 0)
			b.uv(float64(ix), 1-float64(iy))
		}
	}
	b.face(0, 2, 1)
	b.face(2, 3, 1)
	return b.geometry()
}

func SphereGeometry(radius float64, widthSegs, heightSegs int) *Geometry {
	widthSegs = maxInt(3, widthSegs)
	heightSegs = maxInt(2, heightSegs)
	b := &geometryBuilder{}
	grid := make([][]uint32, heightSegs+1)
	for iy := 0; iy <= heightSegs; iy++ {
		v := float64(iy) / float64(heightSegs)
		grid[iy] = make([]uint32, widthSegs+1)
		for ix := 0; ix <= widthSegs; ix++ {
			u := float64(ix) / float64(widthSegs)
			phi := u * 2 * math.Pi
			theta := v * math.Pi
			grid[iy][ix] = b.vertex(
				-radius*math.Cos(phi)*math.Sin(theta),
				radius*math.Cos(theta),
				radius*math.Sin(phi)*math.Sin(theta),
			)
			b.uv(u, 1-v)
		}
	}
	for iy := 0; iy < heightSegs; iy++ {
		for ix := 0; ix < widthSegs; ix++ {
			a := grid[iy][ix+1]
			bb := grid[iy][ix]
			c := grid[iy+1][ix]
			d := grid[iy+1][ix+1]
			if iy != 0 {
				b.face(a, bb, d)
			}
			if iy != heightSegs-1 {
				b.face(bb, c, d)
			}
		}
	}
	return b.geometry()
}

// CylinderGeometry 圆台, radiusTop 为 0 时即圆锥. 半径为 0 的端面不封口
func CylinderGeometry(radiusTop, radiusBottom, height float64, radialSegs int) *Geometry {
	radialSegs = maxInt(3, radialSegs)
	b := &geometryBuilder{}
	half := height / 2

	rows := [2][]uint32{}
	for y := 0; y <= 1; y++ {
		v := float64(y)
		r := v*(radiusBottom-radiusTop) + radiusTop
		rows[y] = make([]uint32, radialSegs+1)
		for x := 0; x <= radialSegs; x++ {
			u := float64(x) / float64(radialSegs)
			theta := u * 2 * math.Pi
			rows[y][x] = b.vertex(r*math.Sin(theta), -v*height+half, r*math.Cos(theta))
			b.uv(u, 1-v)
		}
	}
	for x := 0; x < radialSegs; x++ {
		a := rows[0][x]
		bb := rows[1][x]
		c := rows[1][x+1]
		d := rows[0][x+1]
		b.face(a, bb, d)
		b.face(bb, c, d)
	}

	addCap := func(top bool) {
		r := radiusBottom
		sign := -1.0
		if top {
			r = radiusTop
			sign = 1
		}
		centerStart := b.count()
		for x := 1; x <= radialSegs; x++ {
			b.vertex(0, half*sign, 0)
			b.uv(0.5, 0.5)
		}
		centerEnd := b.count()
		for x := 0; x <= radialSegs; x++ {
			theta := float64(x) / float64(radialSegs) * 2 * math.Pi
			cos, sin := math.Cos(theta), math.Sin(theta)
			b.vertex(r*sin, half*sign, r*cos)
			b.uv(cos*0.5+0.5, sin*0.5*sign+0.5)
		}
		for x := 0; x < radialSegs; x++ {
			c := centerStart + uint32(x)
			i := centerEnd + uint32(x)
			if top {
				b.face(i, i+1, c)
			} else {
				b.face(i+1, i, c)
			}
		}
	}
	if radiusTop > 0 {
		addCap(true)
	}
	if radiusBottom > 0 {
		addCap(false)
	}
	return b.geometry()
}

func TorusGeometry(radius, tube float64, radialSegs, tubularSegs int) *Geometry {
	radialSegs = maxInt(2, radialSegs)
	tubularSegs = maxInt(3, tubularSegs)
	b := &geometryBuilder{}
	for j := 0; j <= radialSegs; j++ {
		for i := 0; i <= tubularSegs; i++ {
			u := float64(i) / float64(tubularSegs) * 2 * math.Pi
			v := float64(j) / float64(radialSegs) * 2 * math.Pi
			b.vertex(
				(radius+tube*math.Cos(v))*math.Cos(u),
				(radius+tube*math.Cos(v))*math.Sin(u),
				tube*math.Sin(v),
			)
			b.uv(float64(i)/float64(tubularSegs), float64(j)/float64(radialSegs))
		}
	}
	stride := uint32(tubularSegs + 1)
	for j := uint32(1); j <= uint32(radialSegs); j++ {
		for i := uint32(1); i <= uint32(tubularSegs); i++ {
			a := stride*j + i - 1
			bb := stride*(j-1) + i - 1
			c := stride*(j-1) + i
			d := stride*j + i
			b.face(a, bb, d)
			b.face(bb, c, d)
		}
	}
	return b.geometry()
}

func torusKnotCurve(u float64, p, q int, radius float64) dvec3.T {
	cu := math.Cos(u)
	su := math.Sin(u)
	quOverP := float64(q) / float64(p) * u
	cs := math.Cos(quOverP)
	return dvec3.T{
		radius * (2 + cs) * 0.5 * cu,
		radius * (2 + cs) * su * 0.5,
		radius * math.Sin(quOverP) * 0.5,
	}
}

func TorusKnotGeometry(radius, tube float64, tubularSegs, radialSegs, p, q int) *Geometry {
	tubularSegs = maxInt(3, tubularSegs)
	radialSegs = maxInt(3, radialSegs)
	b := &geometryBuilder{}
	for i := 0; i <= tubularSegs; i++ {
		u := float64(i) / float64(tubularSegs) * float64(p) * 2 * math.Pi
		p1 := torusKnotCurve(u, p, q, radius)
		p2 := torusKnotCurve(u+0.01, p, q, radius)

		t := dvec3.Sub(&p2, &p1)
		n := dvec3.Add(&p2, &p1)
		bn := dvec3.Cross(&t, &n)
		n = dvec3.Cross(&bn, &t)
		bn.Normalize()
		n.Normalize()

		for j := 0; j <= radialSegs; j++ {
			v := float64(j) / float64(radialSegs) * 2 * math.Pi
			cx := -tube * math.Cos(v)
			cy := tube * math.Sin(v)
			b.vertex(
				p1[0]+cx*n[0]+cy*bn[0],
				p1[1]+cx*n[1]+cy*bn[1],
				p1[2]+cx*n[2]+cy*bn[2],
			)
			b.uv(float64(i)/float64(tubularSegs), float64(j)/float64(radialSegs))
		}
	}
	stride := uint32(radialSegs + 1)
	for j := uint32(1); j <= uint32(tubularSegs); j++ {
		for i := uint32(1); i <= uint32(radialSegs); i++ {
			a := stride*(j-1) + (i - 1)
			bb := stride*j + (i - 1)
			c := stride*j + i
			d := stride*(j-1) + i
			b.face(a, bb, d)
			b.face(bb, c, d)
		}
	}
	return b.geometry()
}

var (
	phi    = (1 + math.Sqrt(5)) / 2
	invPhi = 1 / phi
)

var polyhedra = map[PrimitiveType]struct {
	vertices []float64
	indices  []int
}{
	PRIMITIVE_TETRAHEDRON: {
		vertices: []float64{1, 1, 1, -1, -1, 1, -1, 1, -1, 1, -1, -1},
		indices:  []int{2, 1, 0, 0, 3, 2, 1, 3, 0, 2, 3, 1},
	},
	PRIMITIVE_OCTAHEDRON: {
		vertices: []float64{1, 0, 0, -1, 0, 0, 0, 1, 0, 0, -1, 0, 0, 0, 1, 0, 0, -1},
		indices:  []int{0, 2, 4, 0, 4, 3, 0, 3, 5, 0, 5, 2, 1, 2, 5, 1, 5, 3, 1, 3, 4, 1, 4, 2},
	},
	PRIMITIVE_ICOSAHEDRON: {
		vertices: []float64{
			-1, phi, 0, 1, phi, 0, -1, -phi, 0, 1, -phi, 0,
			0, -1, phi, 0, 1, phi, 0, -1, -phi, 0, 1, -phi,
			phi, 0, -1, phi, 0, 1, -phi, 0, -1, -phi, 0, 1,
		},
		indices: []int{
			0, 11, 5, 0, 5, 1, 0, 1, 7, 0, 7, 10, 0, 10, 11,
			1, 5, 9, 5, 11, 4, 11, 10, 2, 10, 7, 6, 7, 1, 8,
			3, 9, 4, 3, 4, 2, 3, 2, 6, 3, 6, 8, 3, 8, 9,
			4, 9, 5, 2, 4, 11, 6, 2, 10, 8, 6, 7, 9, 8, 1,
		},
	},
	PRIMITIVE_DODECAHEDRON: {
		vertices: []float64{
			-1, -1, -1, -1, -1, 1, -1, 1, -1, -1, 1, 1,
			1, -1, -1, 1, -1, 1, 1, 1, -1, 1, 1, 1,
			0, -invPhi, -phi, 0, -invPhi, phi, 0, invPhi, -phi, 0, invPhi, phi,
			-invPhi, -phi, 0, -invPhi, phi, 0, invPhi, -phi, 0, invPhi, phi, 0,
			-phi, 0, -invPhi, phi, 0, -invPhi, -phi, 0, invPhi, phi, 0, invPhi,
		},
		indices: []int{
			3, 11, 7, 3, 7, 15, 3, 15, 13,
			7, 19, 17, 7, 17, 6, 7, 6, 15,
			17, 4, 8, 17, 8, 10, 17, 10, 6,
			8, 0, 16, 8, 16, 2, 8, 2, 10,
			0, 12, 1, 0, 1, 18, 0, 18, 16,
			6, 10, 2, 6, 2, 13, 6, 13, 15,
			2, 16, 18, 2, 18, 3, 2, 3, 13,
			18, 1, 9, 18, 9, 11, 18, 11, 3,
			4, 14, 12, 4, 12, 0, 4, 0, 8,
			11, 9, 5, 11, 5, 19, 11, 19, 7,
			19, 5, 14, 19, 14, 4, 19, 4, 17,
			1, 12, 14, 1, 14, 5, 1, 5, 9,
		},
	},
}

func lerpVec(a, b dvec3.T, t float64) dvec3.T {
	return dvec3.T{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t, a[2] + (b[2]-a[2])*t}
}

// PolyhedronGeometry 正多面体, 每个面细分 detail 次后投影到球面, 非索引
func PolyhedronGeometry(tp PrimitiveType, radius float64, detail int) *Geometry {
	base, ok := polyhedra[tp]
	if !ok {
		return &Geometry{}
	}
	b := &geometryBuilder{}
	push := func(v dvec3.T) {
		v.Normalize()
		b.vertex(v[0]*radius, v[1]*radius, v[2]*radius)
	}
	at := func(i int) dvec3.T {
		return dvec3.T{base.vertices[i*3], base.vertices[i*3+1], base.vertices[i*3+2]}
	}
	cols := detail + 1
	for f := 0; f+2 < len(base.indices); f += 3 {
		a, bv, c := at(base.indices[f]), at(base.indices[f+1]), at(base.indices[f+2])

		v := make([][]dvec3.T, cols+1)
		for i := 0; i <= cols; i++ {
			aj := lerpVec(a, c, float64(i)/float64(cols))
			bj := lerpVec(bv, c, float64(i)/float64(cols))
			rows := cols - i
			v[i] = make([]dvec3.T, rows+1)
			for j := 0; j <= rows; j++ {
				if j == 0 && i == cols {
					v[i][j] = aj
				} else {
					v[i][j] = lerpVec(aj, bj, float64(j)/float64(rows))
				}
			}
		}
		for i := 0; i < cols; i++ {
			for j := 0; j < 2*(cols-i)-1; j++ {
				k := j / 2
				if j%2 == 0 {
					push(v[i][k+1])
					push(v[i+1][k])
					push(v[i][k])
				} else {
					push(v[i][k+1])
					push(v[i+1][k+1])
					push(v[i+1][k])
				}
			}
		}
	}
	return b.geometry()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
