package moose

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

const (
	TEXTURE_FORMAT_R    = 0
	TEXTURE_FORMAT_RGB  = 4
	TEXTURE_FORMAT_RGBA = 6
)

const (
	TEXTURE_COMPRESSED_ZLIB = 1
)

var (
	ErrUnknownImageFormat = errors.New("unknown image format")
	ErrInvalidDataURL     = errors.New("invalid data URL")
)

// Texture 纹理结构体
type Texture struct {
	Id         int32     `json:"id"`
	Name       string    `json:"name"`
	Size       [2]uint64 `json:"size"`
	Format     uint16    `json:"format"`
	Compressed uint16    `json:"compressed"`
	Data       []byte    `json:"-"`
	Repeated   bool      `json:"repeated"`
}

func CompressImage(buf []byte) []byte {
	var bt []byte
	bf := bytes.NewBuffer(bt)
	w := zlib.NewWriter(bf)
	w.Write(buf)
	w.Close()
	return bf.Bytes()
}

func DecompressImage(src []byte) ([]byte, error) {
	bf := bytes.NewBuffer(src)
	r, er := zlib.NewReader(bf)
	if er != nil {
		return nil, er
	}
	return io.ReadAll(r)
}

// LoadTexture 把纹理数据还原为图像
func LoadTexture(tex *Texture, flipY bool) (image.Image, error) {
	w := int(tex.Size[0])
	h := int(tex.Size[1])
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	data := tex.Data
	var sz int
	switch tex.Format {
	case TEXTURE_FORMAT_RGB:
		sz = 3
	case TEXTURE_FORMAT_RGBA:
		sz = 4
	case TEXTURE_FORMAT_R:
		sz = 1
	default:
		return nil, fmt.Errorf("unsupported texture format %d", tex.Format)
	}
	if tex.Compressed == TEXTURE_COMPRESSED_ZLIB {
		var e error
		data, e = DecompressImage(data)
		if e != nil {
			return nil, e
		}
	}
	if len(data) < w*h*sz {
		return nil, fmt.Errorf("texture %q: %d bytes for %dx%d", tex.Name, len(data), w, h)
	}

	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			p := i*w*sz + j*sz
			var c color.NRGBA
			switch sz {
			case 4:
				c = color.NRGBA{R: data[p], G: data[p+1], B: data[p+2], A: data[p+3]}
			case 3:
				c = color.NRGBA{R: data[p], G: data[p+1], B: data[p+2], A: 255}
			case 1:
				c = color.NRGBA{R: data[p], G: data[p], B: data[p], A: 255}
			}

			y := i
			if flipY {
				y = h - i - 1
			}
			img.Set(j, y, c)
		}
	}
	return img, nil
}

func decodeImage(rd io.Reader, format string) (image.Image, error) {
	switch format {
	case "jpeg", "jpg":
		return jpeg.Decode(rd)
	case "png":
		return png.Decode(rd)
	case "gif":
		return gif.Decode(rd)
	case "bmp":
		return bmp.Decode(rd)
	case "tif", "tiff":
		return tiff.Decode(rd)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownImageFormat, format)
	}
}

// CreateTexture 从图像文件创建纹理
func CreateTexture(name string, repet bool) (*Texture, error) {
	buf, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	img, err := decodeImage(bytes.NewReader(buf), format)
	if err != nil {
		return nil, err
	}
	return CreateTextureFromImage(img, name, repet)
}

// TextureFromDataURL 解码编辑器上传的 data:image/...;base64, 纹理
func TextureFromDataURL(id int32, name, dataURL string) (*Texture, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, ErrInvalidDataURL
	}
	comma := strings.IndexByte(dataURL, ',')
	if comma < 0 {
		return nil, ErrInvalidDataURL
	}
	meta := dataURL[len("data:"):comma]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURL)
	}
	mime := strings.TrimSuffix(meta, ";base64")
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%w: mime %q", ErrInvalidDataURL, mime)
	}
	raw, err := base64.StdEncoding.DecodeString(dataURL[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	img, err := decodeImage(bytes.NewReader(raw), strings.TrimPrefix(mime, "image/"))
	if err != nil {
		return nil, err
	}
	tex, err := CreateTextureFromImage(img, name, true)
	if err != nil {
		return nil, err
	}
	tex.Id = id
	return tex, nil
}

func CreateTextureFromImage(img image.Image, name string, repet bool) (*Texture, error) {
	bd := img.Bounds()
	buf1 := make([]byte, 0, bd.Dx()*bd.Dy()*4)

	for y := bd.Min.Y; y < bd.Max.Y; y++ {
		for x := bd.Min.X; x < bd.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			buf1 = append(buf1, c.R, c.G, c.B, c.A)
		}
	}
	t := &Texture{}
	_, fn := filepath.Split(name)
	t.Name = fn
	t.Format = TEXTURE_FORMAT_RGBA
	t.Size = [2]uint64{uint64(bd.Dx()), uint64(bd.Dy())}
	t.Compressed = TEXTURE_COMPRESSED_ZLIB
	t.Data = CompressImage(buf1)
	t.Repeated = repet
	return t, nil
}
