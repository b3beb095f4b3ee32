package moose

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image/png"
	"io"

	"github.com/qmuntal/gltf"
)

const (
	// GLTFVersion 定义GLTF规范版本
	GLTFVersion = "2.0"

	// GLTFGenerator 写入 asset.generator
	GLTFGenerator = "go-moose"
)

// MeshToGltf 将网格转换为GLTF文档, 修改器在导出时烘焙进顶点
func MeshToGltf(meshes []*Mesh) (*gltf.Document, error) {
	doc := CreateDoc()
	for _, mesh := range meshes {
		if err := BuildGltf(doc, mesh); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// MeshToGlb 导出单个网格为 GLB 字节
func MeshToGlb(mesh *Mesh, paddingUnit int) ([]byte, error) {
	doc, err := MeshToGltf([]*Mesh{mesh})
	if err != nil {
		return nil, err
	}
	return GetGltfBinary(doc, paddingUnit)
}

// CreateDoc 创建一个新的GLTF文档
func CreateDoc() *gltf.Document {
	doc := &gltf.Document{
		Asset: gltf.Asset{
			Version:   GLTFVersion,
			Generator: GLTFGenerator,
		},
		Scenes:  []*gltf.Scene{{}},
		Buffers: []*gltf.Buffer{{}},
	}

	sceneIndex := uint32(0)
	doc.Scene = &sceneIndex

	return doc
}

// GetGltfBinary 将GLTF文档编码为二进制格式, 并以空格补齐到 paddingUnit
func GetGltfBinary(doc *gltf.Document, paddingUnit int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)

	encoder := gltf.NewEncoder(buf)
	encoder.AsBinary = true

	if err := encoder.Encode(doc); err != nil {
		return nil, err
	}

	if paddingUnit <= 1 {
		return buf.Bytes(), nil
	}
	return padGlbJSON(buf.Bytes(), paddingUnit), nil
}

// padGlbJSON 在 JSON 块末尾追加空格, 同步修正块长度和文件总长度.
// 补齐量不是4的倍数时 BIN 块会失去对齐, 此时原样返回
func padGlbJSON(data []byte, unit int) []byte {
	n := calcPadding(len(data), unit)
	if n == 0 || n%4 != 0 || len(data) < GLB_HEADER_SIZE+GLB_CHUNK_HEADER {
		return data
	}
	jsonLen := binary.LittleEndian.Uint32(data[GLB_HEADER_SIZE:])
	end := GLB_HEADER_SIZE + GLB_CHUNK_HEADER + int(jsonLen)
	if end > len(data) {
		return data
	}
	out := make([]byte, 0, len(data)+n)
	out = append(out, data[:end]...)
	out = append(out, bytes.Repeat([]byte{PaddingChar}, n)...)
	out = append(out, data[end:]...)
	binary.LittleEndian.PutUint32(out[8:], uint32(len(out)))
	binary.LittleEndian.PutUint32(out[GLB_HEADER_SIZE:], jsonLen+uint32(n))
	return out
}

// BuildGltf 把网格的节点, 材质和属性追加到文档中
func BuildGltf(doc *gltf.Document, mesh *Mesh) error {
	if mesh == nil {
		return nil
	}
	if len(doc.Buffers) == 0 {
		doc.Buffers = append(doc.Buffers, &gltf.Buffer{})
	}
	if len(doc.Scenes) == 0 {
		doc.Scenes = append(doc.Scenes, &gltf.Scene{})
	}

	if mesh.Props != nil && len(*mesh.Props) > 0 {
		scene := doc.Scenes[0]
		extras, ok := scene.Extras.(map[string]interface{})
		if !ok {
			extras = make(map[string]interface{})
		}
		for k, v := range propsToMap(mesh.Props) {
			extras[k] = v
		}
		scene.Extras = extras
	}

	materials := mesh.Materials
	if len(materials) == 0 {
		materials = []MeshMaterial{DefaultMaterial()}
	}
	mtlBase := uint32(len(doc.Materials))
	if err := fillMaterials(doc, materials); err != nil {
		return err
	}

	for i, node := range mesh.Nodes {
		geom, err := node.Deformed()
		if err != nil {
			return fmt.Errorf("node %d (%s): %w", i, node.Name, err)
		}

		gltfNode := &gltf.Node{Name: node.Name}
		setNodeTransform(gltfNode, node.Transform)
		if node.Props != nil && len(*node.Props) > 0 {
			gltfNode.Extras = propsToMap(node.Props)
		}

		if geom != nil && geom.VertexCount() > 0 {
			mtl := node.Material
			if mtl < 0 || int(mtl) >= len(materials) {
				mtl = 0
			}
			meshIndex := buildGeometryMesh(doc, geom, mtlBase+uint32(mtl))
			doc.Meshes[meshIndex].Name = node.Name
			gltfNode.Mesh = &meshIndex
		}

		nodeIndex := uint32(len(doc.Nodes))
		doc.Nodes = append(doc.Nodes, gltfNode)
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, nodeIndex)
	}

	return nil
}

func setNodeTransform(nd *gltf.Node, tr *Transform) {
	if tr == nil {
		tr = IdentityTransform()
	}
	nd.Translation = tr.Position
	nd.Rotation = tr.Rotation
	nd.Scale = tr.Scale
	if nd.Rotation == [4]float32{} {
		nd.Rotation = [4]float32{0, 0, 0, 1}
	}
	if nd.Scale == [3]float32{} {
		nd.Scale = [3]float32{1, 1, 1}
	}
}

// appendBufferView 追加数据到 buffer 0 并按 4 字节对齐
func appendBufferView(doc *gltf.Document, data []byte, target gltf.Target) uint32 {
	buffer := doc.Buffers[0]
	if pad := calcPadding(len(buffer.Data), 4); pad > 0 {
		buffer.Data = append(buffer.Data, make([]byte, pad)...)
	}
	view := &gltf.BufferView{
		Buffer:     0,
		ByteOffset: uint32(len(buffer.Data)),
		ByteLength: uint32(len(data)),
		Target:     target,
	}
	buffer.Data = append(buffer.Data, data...)
	buffer.ByteLength = uint32(len(buffer.Data))
	doc.BufferViews = append(doc.BufferViews, view)
	return uint32(len(doc.BufferViews) - 1)
}

func littleEndianBytes(v interface{}) []byte {
	buf := bytes.NewBuffer(nil)
	binary.Write(buf, binary.LittleEndian, v)
	return buf.Bytes()
}

func appendAccessor(doc *gltf.Document, acc *gltf.Accessor) uint32 {
	doc.Accessors = append(doc.Accessors, acc)
	return uint32(len(doc.Accessors) - 1)
}

// buildGeometryMesh 写入一个三角形图元, 未索引的几何体生成顺序索引
func buildGeometryMesh(doc *gltf.Document, geom *Geometry, material uint32) uint32 {
	count := uint32(geom.VertexCount())

	indices := geom.Indices
	if !geom.IsIndexed() {
		indices = make([]uint32, count)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	bounds := geom.GetBoundbox()
	posView := appendBufferView(doc, littleEndianBytes(geom.Positions[:count*3]), gltf.TargetArrayBuffer)
	attributes := gltf.Attribute{
		"POSITION": appendAccessor(doc, &gltf.Accessor{
			BufferView:    uint32Ptr(posView),
			ComponentType: gltf.ComponentFloat,
			Type:          gltf.AccessorVec3,
			Count:         count,
			Min:           []float32{float32(bounds[0]), float32(bounds[1]), float32(bounds[2])},
			Max:           []float32{float32(bounds[3]), float32(bounds[4]), float32(bounds[5])},
		}),
	}

	if uint32(len(geom.Normals)) >= count*3 {
		view := appendBufferView(doc, littleEndianBytes(geom.Normals[:count*3]), gltf.TargetArrayBuffer)
		attributes["NORMAL"] = appendAccessor(doc, &gltf.Accessor{
			BufferView:    uint32Ptr(view),
			ComponentType: gltf.ComponentFloat,
			Type:          gltf.AccessorVec3,
			Count:         count,
		})
	}

	if uint32(len(geom.TexCoords)) >= count*2 {
		view := appendBufferView(doc, littleEndianBytes(geom.TexCoords[:count*2]), gltf.TargetArrayBuffer)
		attributes["TEXCOORD_0"] = appendAccessor(doc, &gltf.Accessor{
			BufferView:    uint32Ptr(view),
			ComponentType: gltf.ComponentFloat,
			Type:          gltf.AccessorVec2,
			Count:         count,
		})
	}

	idxView := appendBufferView(doc, littleEndianBytes(indices), gltf.TargetElementArrayBuffer)
	idxAccessor := appendAccessor(doc, &gltf.Accessor{
		BufferView:    uint32Ptr(idxView),
		ComponentType: gltf.ComponentUint,
		Type:          gltf.AccessorScalar,
		Count:         uint32(len(indices)),
	})

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Primitives: []*gltf.Primitive{{
			Attributes: attributes,
			Indices:    uint32Ptr(idxAccessor),
			Material:   uint32Ptr(material),
			Mode:       gltf.PrimitiveTriangles,
		}},
	})
	return uint32(len(doc.Meshes) - 1)
}

// buildTexture 构建纹理
func buildTexture(doc *gltf.Document, texture *Texture) (*gltf.Texture, error) {
	img, err := LoadTexture(texture, false)
	if err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}

	bufferViewIndex := appendBufferView(doc, buf.Bytes(), gltf.TargetNone)
	doc.Images = append(doc.Images, &gltf.Image{
		Name:       texture.Name,
		MimeType:   "image/png",
		BufferView: &bufferViewIndex,
	})
	imageIndex := uint32(len(doc.Images) - 1)

	sampler := &gltf.Sampler{
		WrapS: gltf.WrapClampToEdge,
		WrapT: gltf.WrapClampToEdge,
	}
	if texture.Repeated {
		sampler.WrapS = gltf.WrapRepeat
		sampler.WrapT = gltf.WrapRepeat
	}
	doc.Samplers = append(doc.Samplers, sampler)
	samplerIndex := uint32(len(doc.Samplers) - 1)

	return &gltf.Texture{
		Sampler: &samplerIndex,
		Source:  &imageIndex,
	}, nil
}

func colorFactor(c [3]byte, alpha float32) *[4]float32 {
	return &[4]float32{
		float32(c[0]) / 255,
		float32(c[1]) / 255,
		float32(c[2]) / 255,
		alpha,
	}
}

// fillMaterials 填充材质数据
func fillMaterials(doc *gltf.Document, materials []MeshMaterial) error {
	textureMap := make(map[int32]uint32)

	for _, material := range materials {
		metallic := float32(0)
		roughness := float32(1)
		gltfMaterial := &gltf.Material{
			DoubleSided: true,
			AlphaMode:   gltf.AlphaOpaque,
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: &[4]float32{1, 1, 1, 1},
				MetallicFactor:  &metallic,
				RoughnessFactor: &roughness,
			},
		}

		var textureMaterial *TextureMaterial
		var transparency float32

		switch mtl := material.(type) {
		case *BaseMaterial:
			transparency = mtl.Transparency
		case *TextureMaterial:
			transparency = mtl.Transparency
			textureMaterial = mtl
		case *PbrMaterial:
			transparency = mtl.Transparency
			metallic = mtl.Metallic
			roughness = mtl.Roughness
			gltfMaterial.EmissiveFactor = [3]float32{
				float32(mtl.Emissive[0]) / 255,
				float32(mtl.Emissive[1]) / 255,
				float32(mtl.Emissive[2]) / 255,
			}
			textureMaterial = &mtl.TextureMaterial
		default:
			return fmt.Errorf("unsupported material type %T", material)
		}

		gltfMaterial.PBRMetallicRoughness.BaseColorFactor = colorFactor(material.GetColor(), 1-transparency)
		if transparency > 0 {
			gltfMaterial.AlphaMode = gltf.AlphaBlend
		}

		if textureMaterial != nil && textureMaterial.HasTexture() {
			if index, exists := textureMap[textureMaterial.Texture.Id]; exists {
				gltfMaterial.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: index}
			} else {
				tex, err := buildTexture(doc, textureMaterial.Texture)
				if err != nil {
					return err
				}
				textureIndex := uint32(len(doc.Textures))
				textureMap[textureMaterial.Texture.Id] = textureIndex
				doc.Textures = append(doc.Textures, tex)
				gltfMaterial.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: textureIndex}
			}
		}

		doc.Materials = append(doc.Materials, gltfMaterial)
	}
	return nil
}

// WriteGlbTo 导出网格到 .glb 文件
func WriteGlbTo(path string, mesh *Mesh, paddingUnit int) error {
	data, err := MeshToGlb(mesh, paddingUnit)
	if err != nil {
		return err
	}
	return writeFileTo(path, data)
}

// EncodeGlb 把网格写入 w
func EncodeGlb(w io.Writer, mesh *Mesh, paddingUnit int) error {
	data, err := MeshToGlb(mesh, paddingUnit)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// uint32Ptr 返回uint32指针的辅助函数
func uint32Ptr(v uint32) *uint32 {
	return &v
}
