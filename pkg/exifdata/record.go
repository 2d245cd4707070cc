package exifdata

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// Record holds the EXIF fields photopost renders into captions. Every field
// is optional; nil means the tag was not present or had an unusable type.
type Record struct {
	CameraModel      *string
	LensModel        *string
	ShutterSpeed     *float64 // APEX
	Aperture         *float64 // APEX
	DateTimeOriginal *string
	FocalLength      *float64 // millimetres
	ISO              *int
	Keywords         []byte // XPKeywords, UTF-16

	// Raw is the TIFF structure the fields were read from
	Raw []byte
}

// Extract decodes the embedded EXIF table from an image stream. It returns
// nil when the image carries no metadata or the metadata cannot be read,
// including structures whose entries point past the end of the segment.
func Extract(r io.Reader) *Record {
	raw, err := readTIFF(r)
	if err != nil || checkTIFF(raw) != nil {
		return nil
	}

	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return nil
	}

	rec := &Record{
		CameraModel:      stringTag(x, exif.Model),
		LensModel:        stringTag(x, exif.LensModel),
		ShutterSpeed:     numberTag(x, exif.ShutterSpeedValue),
		Aperture:         numberTag(x, exif.ApertureValue),
		DateTimeOriginal: stringTag(x, exif.DateTimeOriginal),
		FocalLength:      numberTag(x, exif.FocalLength),
		ISO:              intTag(x, exif.ISOSpeedRatings),
		Raw:              raw,
	}
	if tag, err := x.Get(exif.XPKeywords); err == nil && len(tag.Val) > 0 {
		rec.Keywords = append([]byte(nil), tag.Val...)
	}
	return rec
}

// ExtractFile opens path and calls Extract
func ExtractFile(path string) *Record {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	return Extract(f)
}

func stringTag(x *exif.Exif, name exif.FieldName) *string {
	tag, err := x.Get(name)
	if err != nil {
		return nil
	}
	s, err := tag.StringVal()
	if err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// numberTag reads the first value of a rational, integer or float tag
func numberTag(x *exif.Exif, name exif.FieldName) *float64 {
	tag, err := x.Get(name)
	if err != nil || tag.Count == 0 {
		return nil
	}

	var v float64
	switch tag.Format() {
	case tiff.RatVal:
		num, den, err := tag.Rat2(0)
		if err != nil || den == 0 {
			return nil
		}
		v = float64(num) / float64(den)
	case tiff.IntVal:
		n, err := tag.Int64(0)
		if err != nil {
			return nil
		}
		v = float64(n)
	case tiff.FloatVal:
		f, err := tag.Float(0)
		if err != nil {
			return nil
		}
		v = f
	default:
		return nil
	}
	return &v
}

func intTag(x *exif.Exif, name exif.FieldName) *int {
	tag, err := x.Get(name)
	if err != nil || tag.Count == 0 {
		return nil
	}
	n, err := tag.Int(0)
	if err != nil {
		return nil
	}
	return &n
}
