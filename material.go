package moose

// MeshMaterial 接口定义了材质的基本方法
type MeshMaterial interface {
	HasTexture() bool
	GetTexture() *Texture
	GetColor() [3]byte
	GetEmissive() [3]byte
}

// BaseMaterial 基础材质
type BaseMaterial struct {
	Color        [3]byte `json:"color"`
	Transparency float32 `json:"transparency"`
}

func (m *BaseMaterial) HasTexture() bool {
	return false
}

func (m *BaseMaterial) GetEmissive() [3]byte {
	return [3]byte{0, 0, 0}
}

func (m *BaseMaterial) GetTexture() *Texture {
	return nil
}

func (m *BaseMaterial) GetColor() [3]byte {
	return m.Color
}

// TextureMaterial 纹理材质
type TextureMaterial struct {
	BaseMaterial
	Texture *Texture `json:"texture,omitempty"`
}

func (m *TextureMaterial) HasTexture() bool {
	return m.Texture != nil
}

func (m *TextureMaterial) GetTexture() *Texture {
	return m.Texture
}

// PbrMaterial 对应编辑器的 standard material
type PbrMaterial struct {
	TextureMaterial
	Emissive  [3]byte `json:"emissive"`
	Metallic  float32 `json:"metallic"`
	Roughness float32 `json:"roughness"`
}

func (m *PbrMaterial) GetEmissive() [3]byte {
	return m.Emissive
}

// DefaultMaterial 编辑器中基础几何体使用的材质: #cccccc, roughness 0.7, metalness 0.1
func DefaultMaterial() *PbrMaterial {
	return &PbrMaterial{
		TextureMaterial: TextureMaterial{BaseMaterial: BaseMaterial{Color: [3]byte{0xcc, 0xcc, 0xcc}}},
		Metallic:        0.1,
		Roughness:       0.7,
	}
}
