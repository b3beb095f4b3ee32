package moose

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"reflect"
	"testing"

	"github.com/qmuntal/gltf"
)

// TestCreateDoc 测试CreateDoc函数是否正确创建GLTF文档
func TestCreateDoc(t *testing.T) {
	doc := CreateDoc()

	if doc == nil {
		t.Fatal("CreateDoc() returned nil")
	}

	if doc.Asset.Version != GLTFVersion {
		t.Errorf("Expected GLTF version %s, got %s", GLTFVersion, doc.Asset.Version)
	}

	if len(doc.Scenes) != 1 {
		t.Errorf("Expected 1 scene, got %d", len(doc.Scenes))
	}

	if doc.Scene == nil {
		t.Error("Scene index should not be nil")
	} else if *doc.Scene != 0 {
		t.Errorf("Expected scene index 0, got %d", *doc.Scene)
	}

	if len(doc.Buffers) != 1 {
		t.Errorf("Expected 1 buffer, got %d", len(doc.Buffers))
	}
}

func TestGetGltfBinary(t *testing.T) {
	doc := CreateDoc()

	bufferData := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	doc.Buffers[0].Data = bufferData
	doc.Buffers[0].ByteLength = uint32(len(bufferData))

	for _, unit := range []int{4, 8, 16} {
		bin, err := GetGltfBinary(doc, unit)
		if err != nil {
			t.Fatalf("GetGltfBinary failed: %v", err)
		}
		if len(bin)%unit != 0 {
			t.Errorf("Binary length should be multiple of %d, got %d", unit, len(bin))
		}
		if magic := binary.LittleEndian.Uint32(bin[:4]); magic != GLB_MAGIC {
			t.Errorf("Expected magic %#x, got %#x", GLB_MAGIC, magic)
		}
		if total := binary.LittleEndian.Uint32(bin[8:]); int(total) != len(bin) {
			t.Errorf("Header length %d does not match %d", total, len(bin))
		}
		if ClassifyContainer(bin) != KindModel {
			t.Errorf("Padded GLB (unit %d) should classify as a model", unit)
		}
	}
}

func TestPaddedGlbDecodes(t *testing.T) {
	data, err := MeshToGlb(boxMesh(t), 32)
	if err != nil {
		t.Fatalf("MeshToGlb failed: %v", err)
	}
	if len(data)%32 != 0 {
		t.Errorf("GLB length %d is not a multiple of 32", len(data))
	}
	out, err := DecodeGltf(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeGltf failed on padded GLB: %v", err)
	}
	if out.NodeCount() != 1 {
		t.Errorf("Expected 1 node, got %d", out.NodeCount())
	}
}

func TestCalcPadding(t *testing.T) {
	tests := []struct {
		offset   int
		unit     int
		expected int
	}{
		{0, 4, 0},
		{1, 4, 3},
		{2, 4, 2},
		{3, 4, 1},
		{4, 4, 0},
		{5, 4, 3},
		{7, 8, 1},
		{8, 8, 0},
	}

	for _, test := range tests {
		result := calcPadding(test.offset, test.unit)
		if result != test.expected {
			t.Errorf("calcPadding(%d, %d) = %d, expected %d", test.offset, test.unit, result, test.expected)
		}
	}
}

func TestPadBytes(t *testing.T) {
	got := padBytes([]byte("abcde"), 4, PaddingChar)
	if !bytes.Equal(got, []byte("abcde   ")) {
		t.Errorf("padBytes = %q", got)
	}
	got = padBytes([]byte("abcd"), 4, PaddingChar)
	if !bytes.Equal(got, []byte("abcd")) {
		t.Errorf("padBytes on aligned data = %q", got)
	}
}

func boxMesh(t *testing.T) *Mesh {
	t.Helper()
	geom, err := NewPrimitive(PRIMITIVE_BOX, PrimitiveParams{Width: 2, Height: 4, Depth: 2})
	if err != nil {
		t.Fatalf("NewPrimitive failed: %v", err)
	}
	mesh := NewMesh()
	(*mesh.Props)["title"] = StringProp("scene")
	mesh.Materials = append(mesh.Materials, DefaultMaterial())
	mesh.AddNode(&MeshNode{
		Name:      "box",
		Geometry:  geom,
		Transform: &Transform{Position: [3]float32{1, 2, 3}, Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{2, 2, 2}},
		Modifiers: &ModifiersState{
			Twist: &TwistModifier{Enabled: true, Axis: AxisY, Angle: 0.5},
		},
		Props: &Properties{
			"myos_param_RESONANCE_Glow": FloatProp(0.25),
			"label":                     StringProp("crate"),
			"count":                     IntProp(3),
		},
	})
	return mesh
}

func TestMeshToGlbRoundTrip(t *testing.T) {
	mesh := boxMesh(t)
	data, err := MeshToGlb(mesh, 4)
	if err != nil {
		t.Fatalf("MeshToGlb failed: %v", err)
	}
	if len(data)%4 != 0 {
		t.Errorf("GLB length %d is not aligned", len(data))
	}

	out, err := DecodeGltf(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeGltf failed: %v", err)
	}
	if out.NodeCount() != 1 {
		t.Fatalf("Expected 1 node, got %d", out.NodeCount())
	}
	if out.MaterialCount() != 1 {
		t.Errorf("Expected 1 material, got %d", out.MaterialCount())
	}

	want, err := mesh.Nodes[0].Deformed()
	if err != nil {
		t.Fatalf("Deformed failed: %v", err)
	}
	got := out.Nodes[0]
	if got.Name != "box" {
		t.Errorf("Expected node name box, got %q", got.Name)
	}
	if !reflect.DeepEqual(got.Geometry.Positions, want.Positions) {
		t.Error("Positions should carry the baked twist")
	}
	if !reflect.DeepEqual(got.Geometry.Indices, want.Indices) {
		t.Error("Indices mismatch")
	}
	if len(got.Geometry.Normals) != len(want.Positions) {
		t.Errorf("Expected %d normal components, got %d", len(want.Positions), len(got.Geometry.Normals))
	}
	if len(got.Geometry.TexCoords) != want.VertexCount()*2 {
		t.Errorf("Expected %d uv components, got %d", want.VertexCount()*2, len(got.Geometry.TexCoords))
	}
	if got.Transform.Position != [3]float32{1, 2, 3} || got.Transform.Scale != [3]float32{2, 2, 2} {
		t.Errorf("Transform mismatch: %+v", got.Transform)
	}
	if !reflect.DeepEqual(got.Props, mesh.Nodes[0].Props) {
		t.Errorf("Props mismatch: %v", got.Props)
	}
	if v, ok := (*out.Props)["title"]; !ok || v.Value != "scene" {
		t.Errorf("Scene props not restored: %v", out.Props)
	}
}

func TestBuildGltfOriginalGeometryUntouched(t *testing.T) {
	mesh := boxMesh(t)
	before := append([]float32(nil), mesh.Nodes[0].Geometry.Positions...)
	if _, err := MeshToGltf([]*Mesh{mesh}); err != nil {
		t.Fatalf("MeshToGltf failed: %v", err)
	}
	if !reflect.DeepEqual(before, mesh.Nodes[0].Geometry.Positions) {
		t.Error("Export must not deform the source geometry")
	}
}

func TestBuildGltfPointNode(t *testing.T) {
	geom, err := NewPrimitive(PRIMITIVE_POINT, PrimitiveParams{})
	if err != nil {
		t.Fatalf("NewPrimitive failed: %v", err)
	}
	mesh := NewMesh()
	mesh.AddNode(&MeshNode{Name: "marker", Geometry: geom})

	doc, err := MeshToGltf([]*Mesh{mesh})
	if err != nil {
		t.Fatalf("MeshToGltf failed: %v", err)
	}
	if len(doc.Nodes) != 1 {
		t.Fatalf("Expected 1 node, got %d", len(doc.Nodes))
	}
	if doc.Nodes[0].Mesh != nil {
		t.Error("Point node should not reference a mesh")
	}
	if doc.Nodes[0].Scale != [3]float32{1, 1, 1} {
		t.Errorf("Expected unit scale, got %v", doc.Nodes[0].Scale)
	}
	if len(doc.Materials) != 1 {
		t.Errorf("Expected default material, got %d materials", len(doc.Materials))
	}
}

func TestBuildGltfInvalidModifier(t *testing.T) {
	mesh := boxMesh(t)
	mesh.Nodes[0].Modifiers.Bend = &BendModifier{Enabled: true, Axis: "w", Angle: 1}

	_, err := MeshToGltf([]*Mesh{mesh})
	if !errors.Is(err, ErrInvalidAxis) {
		t.Errorf("Expected ErrInvalidAxis, got %v", err)
	}
}

func TestFillMaterialsTexture(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 1, color.NRGBA{G: 255, A: 255})
	tex, err := CreateTextureFromImage(img, "checker.png", true)
	if err != nil {
		t.Fatalf("CreateTextureFromImage failed: %v", err)
	}
	tex.Id = 7

	a := DefaultMaterial()
	a.Texture = tex
	b := &TextureMaterial{BaseMaterial: BaseMaterial{Color: [3]byte{255, 0, 0}, Transparency: 0.5}, Texture: tex}

	doc := CreateDoc()
	if err := fillMaterials(doc, []MeshMaterial{a, b}); err != nil {
		t.Fatalf("fillMaterials failed: %v", err)
	}
	if len(doc.Materials) != 2 {
		t.Fatalf("Expected 2 materials, got %d", len(doc.Materials))
	}
	if len(doc.Textures) != 1 || len(doc.Images) != 1 {
		t.Errorf("Shared texture should be written once, got %d textures %d images", len(doc.Textures), len(doc.Images))
	}
	if *doc.Materials[0].PBRMetallicRoughness.RoughnessFactor != 0.7 {
		t.Errorf("Expected roughness 0.7, got %v", *doc.Materials[0].PBRMetallicRoughness.RoughnessFactor)
	}
	if c := doc.Materials[1].PBRMetallicRoughness.BaseColorFactor; c[0] != 1 || c[3] != 0.5 {
		t.Errorf("Unexpected base color %v", *c)
	}

	out, err := GltfToMesh(doc)
	if err != nil {
		t.Fatalf("GltfToMesh failed: %v", err)
	}
	restored := out.Materials[0].GetTexture()
	if restored == nil || restored.Size != [2]uint64{2, 2} || !restored.Repeated {
		t.Fatalf("Texture not restored: %+v", restored)
	}
	back, err := LoadTexture(restored, false)
	if err != nil {
		t.Fatalf("LoadTexture failed: %v", err)
	}
	if r, _, _, _ := back.At(0, 0).RGBA(); r>>8 != 255 {
		t.Errorf("Expected red texel at origin, got %v", back.At(0, 0))
	}
}

func TestReadIndexAccessorBounds(t *testing.T) {
	doc, err := MeshToGltf([]*Mesh{boxMesh(t)})
	if err != nil {
		t.Fatalf("MeshToGltf failed: %v", err)
	}
	idx := *doc.Meshes[0].Primitives[0].Indices
	doc.Accessors[idx].Count += 10
	if _, err := GltfToMesh(doc); !errors.Is(err, ErrAccessorOutOfRange) {
		t.Errorf("Expected ErrAccessorOutOfRange, got %v", err)
	}
}

func TestTransTextureOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		setup func(doc *gltf.Document)
	}{
		{"missing image", func(doc *gltf.Document) {
			doc.Textures = append(doc.Textures, &gltf.Texture{Source: uint32Ptr(3)})
		}},
		{"missing buffer view", func(doc *gltf.Document) {
			doc.Images = append(doc.Images, &gltf.Image{MimeType: "image/png", BufferView: uint32Ptr(99)})
			doc.Textures = append(doc.Textures, &gltf.Texture{Source: uint32Ptr(uint32(len(doc.Images) - 1))})
		}},
		{"missing buffer", func(doc *gltf.Document) {
			doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{Buffer: 7, ByteLength: 4})
			doc.Images = append(doc.Images, &gltf.Image{MimeType: "image/png", BufferView: uint32Ptr(uint32(len(doc.BufferViews) - 1))})
			doc.Textures = append(doc.Textures, &gltf.Texture{Source: uint32Ptr(uint32(len(doc.Images) - 1))})
		}},
		{"view overflows", func(doc *gltf.Document) {
			doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{Buffer: 0, ByteOffset: 0xFFFFFFF0, ByteLength: 0x20})
			doc.Images = append(doc.Images, &gltf.Image{MimeType: "image/png", BufferView: uint32Ptr(uint32(len(doc.BufferViews) - 1))})
			doc.Textures = append(doc.Textures, &gltf.Texture{Source: uint32Ptr(uint32(len(doc.Images) - 1))})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := MeshToGltf([]*Mesh{boxMesh(t)})
			if err != nil {
				t.Fatalf("MeshToGltf failed: %v", err)
			}
			tt.setup(doc)
			pbr := doc.Materials[0].PBRMetallicRoughness
			if pbr == nil {
				pbr = &gltf.PBRMetallicRoughness{}
				doc.Materials[0].PBRMetallicRoughness = pbr
			}
			pbr.BaseColorTexture = &gltf.TextureInfo{Index: uint32(len(doc.Textures) - 1)}

			if _, err := GltfToMesh(doc); !errors.Is(err, ErrAccessorOutOfRange) {
				t.Errorf("Expected ErrAccessorOutOfRange, got %v", err)
			}
		})
	}
}

func TestGltfToMeshSplitPrimitivesIndependent(t *testing.T) {
	doc, err := MeshToGltf([]*Mesh{boxMesh(t)})
	if err != nil {
		t.Fatalf("MeshToGltf failed: %v", err)
	}
	second := *doc.Meshes[0].Primitives[0]
	doc.Meshes[0].Primitives = append(doc.Meshes[0].Primitives, &second)

	mesh, err := GltfToMesh(doc)
	if err != nil {
		t.Fatalf("GltfToMesh failed: %v", err)
	}
	if mesh.NodeCount() != 2 {
		t.Fatalf("Expected 2 nodes, got %d", mesh.NodeCount())
	}
	a, b := mesh.Nodes[0], mesh.Nodes[1]
	if a.Name != "box_0" || b.Name != "box_1" {
		t.Errorf("Unexpected names %q %q", a.Name, b.Name)
	}

	a.Transform.Position[0] = 99
	(*a.Props)["label"] = StringProp("changed")
	if b.Transform.Position[0] != 1 {
		t.Errorf("Transform shared between split nodes: %v", b.Transform.Position)
	}
	if v := (*b.Props)["label"]; v.Value == "changed" {
		t.Error("Props shared between split nodes")
	}
}
