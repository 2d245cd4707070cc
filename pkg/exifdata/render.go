package exifdata

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
)

const exifDateLayout = "2006:01:02 15:04:05"

// Camera returns the camera model
func (r *Record) Camera() (string, bool) {
	if r.CameraModel == nil {
		return "", false
	}
	return *r.CameraModel, true
}

// Lens returns the lens model
func (r *Record) Lens() (string, bool) {
	if r.LensModel == nil {
		return "", false
	}
	return *r.LensModel, true
}

// Shutter renders the APEX shutter speed value. Exposures of a second or
// longer are whole seconds followed by unit; shorter ones are 1/N.
func (r *Record) Shutter(unit string) (string, bool) {
	if r.ShutterSpeed == nil {
		return "", false
	}
	speed := math.Pow(2, -*r.ShutterSpeed)
	if math.IsInf(speed, 0) || math.IsNaN(speed) || speed <= 0 {
		return "", false
	}
	if speed >= 1 {
		return fmt.Sprintf("%.0f %s", speed, unit), true
	}
	return fmt.Sprintf("1/%d", int64(math.RoundToEven(1/speed))), true
}

// FNumber renders the APEX aperture value as f/N.N
func (r *Record) FNumber() (string, bool) {
	if r.Aperture == nil {
		return "", false
	}
	return fmt.Sprintf("f/%.1f", math.Pow(2, *r.Aperture/2)), true
}

// Focal renders the focal length truncated to whole millimetres
func (r *Record) Focal() (string, bool) {
	if r.FocalLength == nil {
		return "", false
	}
	return fmt.Sprintf("%d mm", int64(*r.FocalLength)), true
}

// Date renders DateTimeOriginal as DD.MM.YYYY. A value that does not match
// the EXIF layout is reported as absent.
func (r *Record) Date() (string, bool) {
	if r.DateTimeOriginal == nil {
		return "", false
	}
	t, err := time.Parse(exifDateLayout, *r.DateTimeOriginal)
	if err != nil {
		return "", false
	}
	return t.Format("02.01.2006"), true
}

// ISOValue renders the first ISO speed rating
func (r *Record) ISOValue() (string, bool) {
	if r.ISO == nil {
		return "", false
	}
	return strconv.Itoa(*r.ISO), true
}

// Tags decodes the UTF-16 keyword list into space separated words
func (r *Record) Tags() (string, bool) {
	if len(r.Keywords) == 0 || len(r.Keywords)%2 != 0 {
		return "", false
	}

	dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	decoded, err := dec.Bytes(r.Keywords)
	if err != nil || bytes.ContainsRune(decoded, '\uFFFD') {
		return "", false
	}

	s := strings.Trim(string(decoded), "\x00")
	s = strings.ReplaceAll(s, ";", " ")
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}
