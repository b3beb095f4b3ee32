package moose

import (
	"math"
	"strings"
)

const oscillatorPrefix = "modifiers."

// Oscillator 按正弦驱动某个修改器参数, Property 形如 "modifiers.bend.angle"
type Oscillator struct {
	ID        string  `json:"id"`
	Enabled   bool    `json:"enabled"`
	Property  string  `json:"property"`
	Frequency float64 `json:"frequency"`
	Amplitude float64 `json:"amplitude"`
	Offset    float64 `json:"offset"`
	BaseValue float64 `json:"baseValue"`
}

func (o *Oscillator) Value(elapsed float64) float64 {
	return o.BaseValue + math.Sin(elapsed*o.Frequency+o.Offset)*o.Amplitude
}

func (o *Oscillator) drivesModifier() bool {
	return o.Enabled && strings.HasPrefix(o.Property, oscillatorPrefix)
}

// ApplyOscillators 在 elapsed 秒时刻求值所有振荡器, 返回更新后的副本.
// 输入 state 不被修改.
func ApplyOscillators(state ModifiersState, oscs []Oscillator, elapsed float64) (ModifiersState, bool, error) {
	out := state.Clone()
	changed := false
	for i := range oscs {
		osc := &oscs[i]
		if !osc.drivesModifier() {
			continue
		}
		path := strings.TrimPrefix(osc.Property, oscillatorPrefix)
		if err := out.SetProperty(path, osc.Value(elapsed)); err != nil {
			return state, false, err
		}
		changed = true
	}
	return out, changed, nil
}

// AnimateModifiers 对所有对象求值, 只返回发生变化的对象
func AnimateModifiers(states map[string]ModifiersState, oscs map[string][]Oscillator, elapsed float64) (map[string]ModifiersState, error) {
	var updates map[string]ModifiersState
	for key, list := range oscs {
		next, changed, err := ApplyOscillators(states[key], list, elapsed)
		if err != nil {
			return nil, err
		}
		if !changed {
			continue
		}
		if updates == nil {
			updates = make(map[string]ModifiersState)
		}
		updates[key] = next
	}
	return updates, nil
}
