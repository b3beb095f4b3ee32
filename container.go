package moose

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// 容器解析错误
var (
	ErrTooShort           = errors.New("file is too short")
	ErrBadMagic           = errors.New("incorrect magic number")
	ErrUnsupportedVersion = errors.New("unsupported GLB version")
	ErrLengthMismatch     = errors.New("header length does not match file length")
	ErrMissingChunkHeader = errors.New("missing chunk header")
	ErrNotJSONChunk       = errors.New("first chunk must be JSON")
	ErrChunkOutOfBounds   = errors.New("chunk length exceeds file bounds")
	ErrInvalidJSON        = errors.New("invalid JSON content")
	ErrNotSchema          = errors.New("not a recognized MOOSE schema")
)

// ParseError 容器读取失败, Offset 为出错字段的字节偏移
type ParseError struct {
	Offset int
	Err    error
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid GLB at offset %d: %v: %s", e.Offset, e.Err, e.Detail)
	}
	return fmt.Sprintf("invalid GLB at offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseError(offset int, err error, detail string) *ParseError {
	return &ParseError{Offset: offset, Err: err, Detail: detail}
}

type glbHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

type chunkHeader struct {
	Length uint32
	Type   uint32
}

// marshalSchema 紧凑 JSON, 不转义 HTML 字符, nil map 写成 {}
func marshalSchema(schema *OntologicalSchema) ([]byte, error) {
	doc := OntologicalSchema{
		MooseVersion:       MOOSE_VERSION,
		RelationshipMatrix: schema.RelationshipMatrix,
		CustomScripts:      schema.CustomScripts,
	}
	if doc.RelationshipMatrix == nil {
		doc.RelationshipMatrix = RelationshipMatrix{}
	}
	for _, row := range doc.RelationshipMatrix {
		if row == nil {
			doc.RelationshipMatrix = copyMatrix(doc.RelationshipMatrix)
			break
		}
	}
	if doc.CustomScripts == nil {
		doc.CustomScripts = map[string]string{}
	}

	buf := bytes.NewBuffer(nil)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

func copyMatrix(m RelationshipMatrix) RelationshipMatrix {
	c := make(RelationshipMatrix, len(m))
	for k, row := range m {
		if row == nil {
			c[k] = map[string]string{}
			continue
		}
		r := make(map[string]string, len(row))
		for col, label := range row {
			r[col] = label
		}
		c[k] = r
	}
	return c
}

// WriteContainer 把本体文档写成只有一个 JSON 块的 GLB 容器. mooseVersion 总是被置为 "1.0"
func WriteContainer(schema *OntologicalSchema) ([]byte, error) {
	if schema == nil {
		schema = &OntologicalSchema{}
	}
	js, err := marshalSchema(schema)
	if err != nil {
		return nil, fmt.Errorf("encode schema failed: %w", err)
	}
	js = padBytes(js, 4, PaddingChar)

	total := GLB_HEADER_SIZE + GLB_CHUNK_HEADER + len(js)
	buf := bytes.NewBuffer(make([]byte, 0, total))
	if err := writeLittleByte(buf, &glbHeader{Magic: GLB_MAGIC, Version: GLB_VERSION, Length: uint32(total)}); err != nil {
		return nil, err
	}
	if err := writeLittleByte(buf, &chunkHeader{Length: uint32(len(js)), Type: CHUNK_TYPE_JSON}); err != nil {
		return nil, err
	}
	buf.Write(js)
	return buf.Bytes(), nil
}

// readJSONChunk 校验容器头并返回首个 JSON 块
func readJSONChunk(data []byte) ([]byte, error) {
	if len(data) < GLB_HEADER_SIZE {
		return nil, parseError(0, ErrTooShort, fmt.Sprintf("%d bytes", len(data)))
	}
	rd := bytes.NewReader(data)
	var hdr glbHeader
	if err := readLittleByte(rd, &hdr); err != nil {
		return nil, parseError(0, ErrTooShort, err.Error())
	}
	if hdr.Magic != GLB_MAGIC {
		return nil, parseError(0, ErrBadMagic, fmt.Sprintf("0x%08X", hdr.Magic))
	}
	if hdr.Version != GLB_VERSION {
		return nil, parseError(4, ErrUnsupportedVersion, fmt.Sprintf("version %d, only version %d is supported", hdr.Version, GLB_VERSION))
	}
	if int(hdr.Length) != len(data) {
		return nil, parseError(8, ErrLengthMismatch, fmt.Sprintf("header says %d, file has %d", hdr.Length, len(data)))
	}

	offset := GLB_HEADER_SIZE
	if offset+GLB_CHUNK_HEADER > len(data) {
		return nil, parseError(offset, ErrMissingChunkHeader, "")
	}
	var chk chunkHeader
	if err := readLittleByte(rd, &chk); err != nil {
		return nil, parseError(offset, ErrMissingChunkHeader, err.Error())
	}
	if chk.Type != CHUNK_TYPE_JSON {
		return nil, parseError(offset+4, ErrNotJSONChunk, fmt.Sprintf("type 0x%08X", chk.Type))
	}
	offset += GLB_CHUNK_HEADER
	if uint64(offset)+uint64(chk.Length) > uint64(len(data)) {
		return nil, parseError(offset-GLB_CHUNK_HEADER, ErrChunkOutOfBounds, fmt.Sprintf("%d bytes at %d, file has %d", chk.Length, offset, len(data)))
	}
	return data[offset : offset+int(chk.Length)], nil
}

// checkSignature 本体文件签名: mooseVersion == "1.0" 且 relationshipMatrix 为对象
func checkSignature(raw map[string]json.RawMessage) error {
	var version string
	if v, ok := raw["mooseVersion"]; !ok || json.Unmarshal(v, &version) != nil || version != MOOSE_VERSION {
		return errors.New("mooseVersion signature missing")
	}
	m, ok := raw["relationshipMatrix"]
	if !ok {
		return errors.New("relationshipMatrix missing")
	}
	m = bytes.TrimSpace(m)
	if len(m) == 0 || m[0] != '{' {
		return errors.New("relationshipMatrix is not an object")
	}
	return nil
}

var utf8BOM = []byte("\xEF\xBB\xBF")

// ReadContainer 解析 WriteContainer 写出的容器, 拒绝其他任何 GLB
func ReadContainer(data []byte) (*OntologicalSchema, error) {
	chunk, err := readJSONChunk(data)
	if err != nil {
		return nil, err
	}
	offset := GLB_HEADER_SIZE + GLB_CHUNK_HEADER
	chunk = bytes.TrimPrefix(chunk, utf8BOM)
	if !json.Valid(chunk) {
		return nil, parseError(offset, ErrInvalidJSON, "failed to parse JSON content")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(chunk, &raw); err != nil || raw == nil {
		return nil, parseError(offset, ErrNotSchema, "document is not an object")
	}
	if err := checkSignature(raw); err != nil {
		return nil, parseError(offset, ErrNotSchema, err.Error())
	}

	// 签名正确但值不是字符串(如 customScripts: 5)时同样拒绝
	schema := &OntologicalSchema{}
	if err := json.Unmarshal(chunk, schema); err != nil {
		return nil, parseError(offset, ErrNotSchema, err.Error())
	}
	return schema, nil
}

// ClassifyContainer 判断数据是本体文件, 普通 GLB 模型, 还是无法识别
func ClassifyContainer(data []byte) ContainerKind {
	_, err := ReadContainer(data)
	switch {
	case err == nil:
		return KindOntology
	case errors.Is(err, ErrNotSchema):
		return KindModel
	default:
		return KindUnknown
	}
}

func WriteContainerTo(path string, schema *OntologicalSchema) error {
	data, err := WriteContainer(schema)
	if err != nil {
		return err
	}
	return writeFileTo(path, data)
}

func ReadContainerFrom(path string) (*OntologicalSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ReadContainer(data)
}
