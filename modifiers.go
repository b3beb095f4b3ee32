package moose

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

var ErrUnknownProperty = errors.New("unknown modifier property")

var validate = validator.New()

type TwistModifier struct {
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Axis    Axis    `json:"axis" yaml:"axis" validate:"omitempty,oneof=x y z"`
	Angle   float64 `json:"angle" yaml:"angle"`
}

type BendModifier struct {
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Axis    Axis    `json:"axis" yaml:"axis" validate:"omitempty,oneof=x y z"`
	Angle   float64 `json:"angle" yaml:"angle"`
}

type TaperModifier struct {
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Axis    Axis    `json:"axis" yaml:"axis" validate:"omitempty,oneof=x y z"`
	Factor  float64 `json:"factor" yaml:"factor"`
}

// ModifiersState 一个对象上的修改器集合.
// 应用顺序固定为 twist -> bend -> taper, 三者不可交换.
type ModifiersState struct {
	Twist *TwistModifier `json:"twist,omitempty" yaml:"twist,omitempty"`
	Bend  *BendModifier  `json:"bend,omitempty" yaml:"bend,omitempty"`
	Taper *TaperModifier `json:"taper,omitempty" yaml:"taper,omitempty"`
}

func (s *ModifiersState) Validate() error {
	if s == nil {
		return nil
	}
	if s.Twist != nil && s.Twist.Enabled && !s.Twist.Axis.Valid() {
		return fmt.Errorf("twist: %w: %q", ErrInvalidAxis, string(s.Twist.Axis))
	}
	if s.Bend != nil && s.Bend.Enabled && !s.Bend.Axis.Valid() {
		return fmt.Errorf("bend: %w: %q", ErrInvalidAxis, string(s.Bend.Axis))
	}
	if s.Taper != nil && s.Taper.Enabled && !s.Taper.Axis.Valid() {
		return fmt.Errorf("taper: %w: %q", ErrInvalidAxis, string(s.Taper.Axis))
	}
	if err := validate.Struct(s); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError 把 Axis 字段的校验失败映射为 ErrInvalidAxis
func validationError(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			if fe.Field() == "Axis" {
				return fmt.Errorf("%s: %w: %v", fe.Namespace(), ErrInvalidAxis, fe.Value())
			}
		}
	}
	return fmt.Errorf("invalid modifiers: %w", err)
}

// ApplyToPositions 按固定顺序对顶点缓冲区执行已启用的修改器, 不计算法线
func (s *ModifiersState) ApplyToPositions(positions []float32) error {
	if s == nil {
		return nil
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Twist != nil && s.Twist.Enabled {
		Twist(positions, s.Twist.Axis, s.Twist.Angle)
	}
	if s.Bend != nil && s.Bend.Enabled {
		Bend(positions, s.Bend.Axis, s.Bend.Angle)
	}
	if s.Taper != nil && s.Taper.Enabled {
		Taper(positions, s.Taper.Axis, s.Taper.Factor)
	}
	return nil
}

// Apply 变形后统一重算一次法线
func (s *ModifiersState) Apply(g *Geometry) error {
	if err := s.ApplyToPositions(g.Positions); err != nil {
		return err
	}
	g.ComputeVertexNormals()
	return nil
}

func (s *ModifiersState) Enabled() bool {
	if s == nil {
		return false
	}
	return (s.Twist != nil && s.Twist.Enabled) ||
		(s.Bend != nil && s.Bend.Enabled) ||
		(s.Taper != nil && s.Taper.Enabled)
}

func (s ModifiersState) Clone() ModifiersState {
	c := ModifiersState{}
	if s.Twist != nil {
		t := *s.Twist
		c.Twist = &t
	}
	if s.Bend != nil {
		b := *s.Bend
		c.Bend = &b
	}
	if s.Taper != nil {
		t := *s.Taper
		c.Taper = &t
	}
	return c
}

// SetProperty 按路径设置数值, 如 "bend.angle". 缺失的修改器以禁用状态创建
func (s *ModifiersState) SetProperty(path string, value float64) error {
	parts := strings.Split(path, ".")
	if len(parts) != 2 {
		return fmt.Errorf("%w: %q", ErrUnknownProperty, path)
	}
	switch parts[0] + "." + parts[1] {
	case "twist.angle":
		if s.Twist == nil {
			s.Twist = &TwistModifier{}
		}
		s.Twist.Angle = value
	case "bend.angle":
		if s.Bend == nil {
			s.Bend = &BendModifier{}
		}
		s.Bend.Angle = value
	case "taper.factor":
		if s.Taper == nil {
			s.Taper = &TaperModifier{Factor: 1}
		}
		s.Taper.Factor = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProperty, path)
	}
	return nil
}
