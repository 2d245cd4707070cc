// Package testutil builds image fixtures for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// EXIF describes the tags written into a fixture. Zero values are omitted.
type EXIF struct {
	Model            string
	LensModel        string
	DateTimeOriginal string

	// APEX values as signed/unsigned rationals; a zero denominator omits the tag
	ShutterSpeed [2]int32
	Aperture     [2]uint32
	FocalLength  [2]uint32

	ISO      uint16
	Keywords []byte
}

// Keywords encodes s the way Windows writes XPKeywords: UTF-16LE with a
// trailing null character.
func Keywords(s string) []byte {
	var b []byte
	for _, r := range s {
		b = binary.LittleEndian.AppendUint16(b, uint16(r))
	}
	return append(b, 0, 0)
}

// SampleEXIF is a fully populated record whose rendered values are known:
// 1/100, f/4.0, 50 mm, 15.01.2023, ISO 100, "test keywords".
func SampleEXIF() *EXIF {
	return &EXIF{
		Model:            "Test Camera",
		LensModel:        "Test Lens",
		DateTimeOriginal: "2023:01:15 12:00:00",
		ShutterSpeed:     [2]int32{6643856, 1000000},
		Aperture:         [2]uint32{4, 1},
		FocalLength:      [2]uint32{50, 1},
		ISO:              100,
		Keywords:         Keywords("test;keywords"),
	}
}

// JPEG encodes a solid width×height image and, when x is non-nil, embeds x
// in an APP1 segment right after SOI.
func JPEG(t testing.TB, width, height int, x *EXIF) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(width, height), &jpeg.Options{Quality: 90}))
	if x == nil {
		return buf.Bytes()
	}

	return InsertAPP1(t, buf.Bytes(), TIFF(x))
}

// PNG encodes a solid width×height image without metadata
func PNG(t testing.TB, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(width, height)))
	return buf.Bytes()
}

// WriteFile writes data to dir/name, creating parents, and returns the path
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// InsertAPP1 splices an Exif APP1 segment carrying tiff after the SOI marker
func InsertAPP1(t testing.TB, jpegData, tiff []byte) []byte {
	t.Helper()
	require.True(t, len(jpegData) >= 2 && jpegData[0] == 0xFF && jpegData[1] == 0xD8, "not a JPEG")

	payload := append([]byte("Exif\x00\x00"), tiff...)
	require.LessOrEqual(t, len(payload)+2, 0xFFFF, "EXIF too large for one segment")

	out := make([]byte, 0, len(jpegData)+len(payload)+4)
	out = append(out, 0xFF, 0xD8, 0xFF, 0xE1)
	out = binary.BigEndian.AppendUint16(out, uint16(len(payload)+2))
	out = append(out, payload...)
	return append(out, jpegData[2:]...)
}

func solid(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	c := color.RGBA{R: 200, G: 80, B: 40, A: 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// TIFF types used by the fixtures
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeSRational = 10
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

// TIFF serialises x as a little-endian TIFF structure with IFD0 and an Exif
// sub-IFD, the layout cameras write into APP1.
func TIFF(x *EXIF) []byte {
	le := binary.LittleEndian

	var ifd0, sub []ifdEntry
	if x.Model != "" {
		ifd0 = append(ifd0, asciiEntry(0x0110, x.Model))
	}
	if len(x.Keywords) > 0 {
		ifd0 = append(ifd0, ifdEntry{tag: 0x9C9E, typ: typeByte, count: uint32(len(x.Keywords)), data: x.Keywords})
	}

	if x.ISO != 0 {
		sub = append(sub, ifdEntry{tag: 0x8827, typ: typeShort, count: 1, data: le.AppendUint16(nil, x.ISO)})
	}
	if x.DateTimeOriginal != "" {
		sub = append(sub, asciiEntry(0x9003, x.DateTimeOriginal))
	}
	if x.ShutterSpeed[1] != 0 {
		data := le.AppendUint32(nil, uint32(x.ShutterSpeed[0]))
		data = le.AppendUint32(data, uint32(x.ShutterSpeed[1]))
		sub = append(sub, ifdEntry{tag: 0x9201, typ: typeSRational, count: 1, data: data})
	}
	if x.Aperture[1] != 0 {
		sub = append(sub, rationalEntry(0x9202, x.Aperture))
	}
	if x.FocalLength[1] != 0 {
		sub = append(sub, rationalEntry(0x920A, x.FocalLength))
	}
	if x.LensModel != "" {
		sub = append(sub, asciiEntry(0xA434, x.LensModel))
	}

	const headerSize = 8
	if len(sub) > 0 {
		// placeholder; the offset is patched once IFD0's size is known
		ifd0 = append(ifd0, ifdEntry{tag: 0x8769, typ: typeLong, count: 1, data: make([]byte, 4)})
	}
	sortEntries(ifd0)
	sortEntries(sub)

	subOffset := headerSize + ifdSize(ifd0)
	for i := range ifd0 {
		if ifd0[i].tag == 0x8769 {
			ifd0[i].data = le.AppendUint32(nil, subOffset)
		}
	}

	out := []byte{'I', 'I', 0x2A, 0x00}
	out = le.AppendUint32(out, headerSize)
	out = append(out, encodeIFD(ifd0, headerSize)...)
	if len(sub) > 0 {
		out = append(out, encodeIFD(sub, subOffset)...)
	}
	return out
}

func asciiEntry(tag uint16, s string) ifdEntry {
	data := append([]byte(s), 0)
	return ifdEntry{tag: tag, typ: typeASCII, count: uint32(len(data)), data: data}
}

func rationalEntry(tag uint16, r [2]uint32) ifdEntry {
	data := binary.LittleEndian.AppendUint32(nil, r[0])
	data = binary.LittleEndian.AppendUint32(data, r[1])
	return ifdEntry{tag: tag, typ: typeRational, count: 1, data: data}
}

func sortEntries(entries []ifdEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })
}

// ifdSize is the directory plus its out-of-line value area, word aligned
func ifdSize(entries []ifdEntry) uint32 {
	size := uint32(2 + 12*len(entries) + 4)
	for _, e := range entries {
		if len(e.data) > 4 {
			size += uint32(len(e.data) + len(e.data)%2)
		}
	}
	return size
}

func encodeIFD(entries []ifdEntry, start uint32) []byte {
	le := binary.LittleEndian

	dir := le.AppendUint16(nil, uint16(len(entries)))
	var values []byte
	valueOffset := start + uint32(2+12*len(entries)+4)

	for _, e := range entries {
		dir = le.AppendUint16(dir, e.tag)
		dir = le.AppendUint16(dir, e.typ)
		dir = le.AppendUint32(dir, e.count)
		if len(e.data) <= 4 {
			inline := make([]byte, 4)
			copy(inline, e.data)
			dir = append(dir, inline...)
			continue
		}
		dir = le.AppendUint32(dir, valueOffset+uint32(len(values)))
		values = append(values, e.data...)
		if len(e.data)%2 == 1 {
			values = append(values, 0)
		}
	}

	dir = le.AppendUint32(dir, 0)
	return append(dir, values...)
}
