package moose

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/qmuntal/gltf"
)

var ErrAccessorOutOfRange = errors.New("accessor exceeds buffer bounds")

// MeshReadFromGltf 读取 .gltf/.glb 文件为网格
func MeshReadFromGltf(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}
	return GltfToMesh(doc)
}

// DecodeGltf 从 GLB 流解码网格
func DecodeGltf(r io.Reader) (*Mesh, error) {
	doc := &gltf.Document{}
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, err
	}
	return GltfToMesh(doc)
}

// GltfToMesh 把文档中的三角形图元转换为节点, 每个图元一个节点
func GltfToMesh(doc *gltf.Document) (*Mesh, error) {
	mesh := NewMesh()

	if len(doc.Scenes) > 0 {
		if props := extrasToProps(doc.Scenes[0].Extras); props != nil {
			mesh.Props = props
		}
	}

	for i, mt := range doc.Materials {
		mtl, err := transMaterial(doc, mt)
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
		mesh.Materials = append(mesh.Materials, mtl)
	}

	// 节点按文档顺序平铺, 只取各自的局部 TRS, 不与父节点变换复合
	for ni, nd := range doc.Nodes {
		localTransform := func() *Transform {
			return &Transform{Position: nd.Translation, Rotation: nd.Rotation, Scale: nd.Scale}
		}

		if nd.Mesh == nil {
			mesh.AddNode(&MeshNode{Name: nd.Name, Geometry: &Geometry{}, Transform: localTransform(), Props: extrasToProps(nd.Extras)})
			continue
		}
		if int(*nd.Mesh) >= len(doc.Meshes) {
			return nil, fmt.Errorf("node %d: mesh %d out of range", ni, *nd.Mesh)
		}
		gm := doc.Meshes[*nd.Mesh]
		for pi, ps := range gm.Primitives {
			if ps.Mode != gltf.PrimitiveTriangles {
				continue
			}
			geom, err := transPrimitive(doc, ps)
			if err != nil {
				return nil, fmt.Errorf("node %d primitive %d: %w", ni, pi, err)
			}
			name := nd.Name
			if len(gm.Primitives) > 1 {
				name = fmt.Sprintf("%s_%d", nd.Name, pi)
			}
			// 同一节点拆出的图元各持一份变换和属性
			node := &MeshNode{Name: name, Geometry: geom, Transform: localTransform(), Props: extrasToProps(nd.Extras)}
			if ps.Material != nil {
				node.Material = int32(*ps.Material)
			} else if len(mesh.Materials) == 0 {
				mesh.Materials = append(mesh.Materials, DefaultMaterial())
			}
			mesh.AddNode(node)
		}
	}
	return mesh, nil
}

func extrasToProps(extras interface{}) *Properties {
	switch ex := extras.(type) {
	case map[string]interface{}:
		return PropsFromMap(ex)
	case json.RawMessage:
		m := map[string]interface{}{}
		if err := json.Unmarshal(ex, &m); err != nil {
			return nil
		}
		return PropsFromMap(m)
	}
	return nil
}

func transPrimitive(doc *gltf.Document, ps *gltf.Primitive) (*Geometry, error) {
	idx, ok := ps.Attributes["POSITION"]
	if !ok {
		return nil, errors.New("primitive has no POSITION attribute")
	}
	geom := &Geometry{}
	var err error
	if geom.Positions, err = readFloatAccessor(doc, idx, 3); err != nil {
		return nil, fmt.Errorf("POSITION: %w", err)
	}
	if idx, ok := ps.Attributes["NORMAL"]; ok {
		if geom.Normals, err = readFloatAccessor(doc, idx, 3); err != nil {
			return nil, fmt.Errorf("NORMAL: %w", err)
		}
	}
	if idx, ok := ps.Attributes["TEXCOORD_0"]; ok {
		if geom.TexCoords, err = readFloatAccessor(doc, idx, 2); err != nil {
			return nil, fmt.Errorf("TEXCOORD_0: %w", err)
		}
	}
	if ps.Indices != nil {
		if geom.Indices, err = readIndexAccessor(doc, *ps.Indices); err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		count := uint32(geom.VertexCount())
		for _, i := range geom.Indices {
			if i >= count {
				return nil, fmt.Errorf("index %d out of range for %d vertices", i, count)
			}
		}
	}
	return geom, nil
}

// accessorBytes 返回访问器覆盖的缓冲区数据以及起始偏移和步长
func accessorBytes(doc *gltf.Document, index uint32, elemSize int) ([]byte, int, int, *gltf.Accessor, error) {
	if int(index) >= len(doc.Accessors) {
		return nil, 0, 0, nil, fmt.Errorf("accessor %d: %w", index, ErrAccessorOutOfRange)
	}
	acc := doc.Accessors[index]
	if acc.BufferView == nil {
		return nil, 0, elemSize, acc, nil
	}
	if int(*acc.BufferView) >= len(doc.BufferViews) {
		return nil, 0, 0, nil, fmt.Errorf("buffer view %d: %w", *acc.BufferView, ErrAccessorOutOfRange)
	}
	view := doc.BufferViews[*acc.BufferView]
	if int(view.Buffer) >= len(doc.Buffers) {
		return nil, 0, 0, nil, fmt.Errorf("buffer %d: %w", view.Buffer, ErrAccessorOutOfRange)
	}
	data := doc.Buffers[view.Buffer].Data
	stride := int(view.ByteStride)
	if stride == 0 {
		stride = elemSize
	}
	start := int(view.ByteOffset) + int(acc.ByteOffset)
	if acc.Count > 0 {
		end := start + (int(acc.Count)-1)*stride + elemSize
		if end > len(data) || uint64(end) > uint64(view.ByteOffset)+uint64(view.ByteLength) {
			return nil, 0, 0, nil, fmt.Errorf("accessor %d: %w", index, ErrAccessorOutOfRange)
		}
	}
	return data, start, stride, acc, nil
}

func readFloatAccessor(doc *gltf.Document, index uint32, comps int) ([]float32, error) {
	data, start, stride, acc, err := accessorBytes(doc, index, comps*4)
	if err != nil {
		return nil, err
	}
	if acc.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("accessor %d: unsupported component type %v", index, acc.ComponentType)
	}
	out := make([]float32, int(acc.Count)*comps)
	if data == nil {
		return out, nil
	}
	for i := 0; i < int(acc.Count); i++ {
		off := start + i*stride
		for c := 0; c < comps; c++ {
			out[i*comps+c] = math.Float32frombits(binary.LittleEndian.Uint32(data[off+c*4:]))
		}
	}
	return out, nil
}

func readIndexAccessor(doc *gltf.Document, index uint32) ([]uint32, error) {
	if int(index) >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d: %w", index, ErrAccessorOutOfRange)
	}
	var size int
	switch doc.Accessors[index].ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	default:
		return nil, fmt.Errorf("accessor %d: unsupported index type %v", index, doc.Accessors[index].ComponentType)
	}
	data, start, stride, acc, err := accessorBytes(doc, index, size)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, acc.Count)
	if data == nil {
		return out, nil
	}
	for i := range out {
		off := start + i*stride
		switch size {
		case 1:
			out[i] = uint32(data[off])
		case 2:
			out[i] = uint32(binary.LittleEndian.Uint16(data[off:]))
		case 4:
			out[i] = binary.LittleEndian.Uint32(data[off:])
		}
	}
	return out, nil
}

func transMaterial(doc *gltf.Document, mt *gltf.Material) (*PbrMaterial, error) {
	mtl := DefaultMaterial()
	mtl.Emissive[0] = byte(mt.EmissiveFactor[0] * 255)
	mtl.Emissive[1] = byte(mt.EmissiveFactor[1] * 255)
	mtl.Emissive[2] = byte(mt.EmissiveFactor[2] * 255)

	pbr := mt.PBRMetallicRoughness
	if pbr == nil {
		return mtl, nil
	}
	if pbr.BaseColorFactor != nil {
		c := pbr.BaseColorFactor
		mtl.Color = [3]byte{colorByte(c[0]), colorByte(c[1]), colorByte(c[2])}
		mtl.Transparency = 1 - c[3]
	}
	if pbr.MetallicFactor != nil {
		mtl.Metallic = *pbr.MetallicFactor
	}
	if pbr.RoughnessFactor != nil {
		mtl.Roughness = *pbr.RoughnessFactor
	}
	if pbr.BaseColorTexture != nil {
		tex, err := transTexture(doc, pbr.BaseColorTexture.Index)
		if err != nil {
			return nil, err
		}
		mtl.Texture = tex
	}
	return mtl, nil
}

func colorByte(f float32) byte {
	return byte(math.Round(float64(f) * 255))
}

func transTexture(doc *gltf.Document, texIdx uint32) (*Texture, error) {
	if int(texIdx) >= len(doc.Textures) || doc.Textures[texIdx].Source == nil {
		return nil, fmt.Errorf("texture %d not found", texIdx)
	}
	gtex := doc.Textures[texIdx]
	if int(*gtex.Source) >= len(doc.Images) {
		return nil, fmt.Errorf("texture %d: image %d: %w", texIdx, *gtex.Source, ErrAccessorOutOfRange)
	}
	img := doc.Images[*gtex.Source]
	if img.BufferView == nil {
		if img.IsEmbeddedResource() {
			tex, err := TextureFromDataURL(int32(texIdx), img.Name, img.URI)
			if err != nil {
				return nil, err
			}
			return tex, nil
		}
		return nil, fmt.Errorf("image %d: external image %q", *gtex.Source, img.URI)
	}
	if int(*img.BufferView) >= len(doc.BufferViews) {
		return nil, fmt.Errorf("image %d: buffer view %d: %w", *gtex.Source, *img.BufferView, ErrAccessorOutOfRange)
	}
	view := doc.BufferViews[*img.BufferView]
	if int(view.Buffer) >= len(doc.Buffers) {
		return nil, fmt.Errorf("image %d: buffer %d: %w", *gtex.Source, view.Buffer, ErrAccessorOutOfRange)
	}
	data := doc.Buffers[view.Buffer].Data
	if uint64(view.ByteOffset)+uint64(view.ByteLength) > uint64(len(data)) {
		return nil, fmt.Errorf("image %d: %w", *gtex.Source, ErrAccessorOutOfRange)
	}
	raw := data[view.ByteOffset : view.ByteOffset+view.ByteLength]
	decoded, err := decodeImage(bytes.NewReader(raw), strings.TrimPrefix(img.MimeType, "image/"))
	if err != nil {
		return nil, err
	}
	repeated := true
	if gtex.Sampler != nil && int(*gtex.Sampler) < len(doc.Samplers) {
		repeated = doc.Samplers[*gtex.Sampler].WrapS == gltf.WrapRepeat
	}
	tex, err := CreateTextureFromImage(decoded, img.Name, repeated)
	if err != nil {
		return nil, err
	}
	tex.Id = int32(texIdx)
	return tex, nil
}
