package moose

import (
	"math"

	dmat3 "github.com/flywave/go3d/float64/mat3"
	dquat "github.com/flywave/go3d/float64/quaternion"
	dvec3 "github.com/flywave/go3d/float64/vec3"
)

// axisExtent 返回包围盒在 axis 上的 min, max. 缓冲区为空时 range 为 0
func axisExtent(positions []float32, axis Axis) (*[6]float64, float64, float64) {
	bx := positionsBoundbox(positions)
	i := axis.Index()
	return bx, bx[i], bx[i+3]
}

// Taper 沿 axis 锥化. factor 为 1 时不变, min 端缩放 1, max 端缩放 factor
func Taper(positions []float32, axis Axis, factor float64) {
	ai := axis.Index()
	if factor == 1 {
		return
	}
	_, min, max := axisExtent(positions, axis)
	rng := max - min
	if rng == 0 {
		return
	}
	o1, o2 := axis.others()
	for i := 0; i+2 < len(positions); i += 3 {
		progress := (float64(positions[i+ai]) - min) / rng
		scale := 1 + (factor-1)*progress

		positions[i+o1] = float32(float64(positions[i+o1]) * scale)
		positions[i+o2] = float32(float64(positions[i+o2]) * scale)
	}
}

// Twist 绕 axis 扭转, 扭转角随 axis 方向线性增长到 angle(弧度)
func Twist(positions []float32, axis Axis, angle float64) {
	ai := axis.Index()
	if angle == 0 {
		return
	}
	bx, min, max := axisExtent(positions, axis)
	rng := max - min
	if rng == 0 {
		return
	}
	center := [3]float64{
		(bx[0] + bx[3]) / 2,
		(bx[1] + bx[4]) / 2,
		(bx[2] + bx[5]) / 2,
	}
	center[ai] = 0
	up := dvec3.T(axis.unit())
	o1, o2 := axis.others()

	for i := 0; i+2 < len(positions); i += 3 {
		v := dvec3.T{
			float64(positions[i]) - center[0],
			float64(positions[i+1]) - center[1],
			float64(positions[i+2]) - center[2],
		}
		progress := (float64(positions[i+ai]) - min) / rng

		// quaternion.RotateVec3 会把结果归一化, 这里转成旋转矩阵
		quat := dquat.FromAxisAngle(&up, angle*progress)
		rot := dmat3.Ident
		rot.AssignQuaternion(&quat)
		rot.TransformVec3(&v)

		// 只回写与扭转轴正交的两个分量
		positions[i+o1] = float32(v[o1] + center[o1])
		positions[i+o2] = float32(v[o2] + center[o2])
	}
}

// BendDirection 弯曲方向轴: 绕 y 弯曲时沿 x, 其余情况沿 y
func BendDirection(axis Axis) Axis {
	if axis == AxisY {
		return AxisX
	}
	return AxisY
}

// Bend 沿 axis 弯曲成总张角为 angle(弧度)的圆弧
func Bend(positions []float32, axis Axis, angle float64) {
	bi := axis.Index()
	if angle == 0 {
		return
	}
	di := BendDirection(axis).Index()

	_, min, max := axisExtent(positions, axis)
	rng := max - min
	if rng == 0 {
		return
	}
	radius := rng / angle

	for i := 0; i+2 < len(positions); i += 3 {
		y := float64(positions[i+bi]) - min
		x := float64(positions[i+di])

		theta := y / radius

		positions[i+di] = float32(math.Sin(theta) * (radius - x))
		positions[i+bi] = float32((1-math.Cos(theta))*(radius-x) + min)
	}
}

func (g *Geometry) Taper(axis Axis, factor float64) {
	Taper(g.Positions, axis, factor)
}

func (g *Geometry) Twist(axis Axis, angle float64) {
	Twist(g.Positions, axis, angle)
}

func (g *Geometry) Bend(axis Axis, angle float64) {
	Bend(g.Positions, axis, angle)
}
