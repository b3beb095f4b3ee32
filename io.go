package moose

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
)

func writeLittleByte(wt io.Writer, v interface{}) error {
	return binary.Write(wt, binary.LittleEndian, v)
}

func readLittleByte(rd io.Reader, v interface{}) error {
	return binary.Read(rd, binary.LittleEndian, v)
}

// padBytes 用 ch 把 data 补齐到 unit 的整数倍
func padBytes(data []byte, unit int, ch byte) []byte {
	padding := calcPadding(len(data), unit)
	if padding == 0 {
		return data
	}
	return append(data, bytes.Repeat([]byte{ch}, padding)...)
}

// calcPadding 计算需要的填充字节数
func calcPadding(offset, unit int) int {
	padding := offset % unit
	if padding != 0 {
		padding = unit - padding
	}
	return padding
}

func writeFileTo(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
