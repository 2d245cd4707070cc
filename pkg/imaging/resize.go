// Package imaging downsizes oversized photos before they are sent.
package imaging

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	"photopost/pkg/exifdata"
	"photopost/pkg/logger"
	"photopost/pkg/storage"
)

// maxAPP1Payload is the largest EXIF body that fits one JPEG segment
const maxAPP1Payload = 0xFFFF - 2

// Options control when and how far an image is scaled down
type Options struct {
	// Threshold is the longest side above which an image is resized
	Threshold int
	// MaxDimension bounds both sides of the resized image
	MaxDimension int
	// Quality is the JPEG quality of the resized copy
	Quality int
	// PreserveExif copies the source EXIF segment into the resized copy
	PreserveExif bool
}

// Result describes the file that should be sent
type Result struct {
	Path    string
	Resized bool
	Width   int
	Height  int
}

// Resizer prepares photos for transmission
type Resizer struct {
	opts      Options
	workspace *storage.Workspace
	logger    logger.Logger
}

// NewResizer creates a Resizer writing its output into ws
func NewResizer(opts Options, ws *storage.Workspace, log logger.Logger) *Resizer {
	return &Resizer{
		opts:      opts,
		workspace: ws,
		logger:    log.WithField("component", "resizer"),
	}
}

// Prepare returns path unchanged when the image is within the threshold.
// Otherwise it writes a downscaled JPEG copy into the workspace and returns
// that instead. The original file is never modified.
func (r *Resizer) Prepare(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Result{}, fmt.Errorf("read image header: %w", err)
	}

	if max(cfg.Width, cfg.Height) <= r.opts.Threshold {
		r.logger.DebugWithFields("Image within size limit", map[string]interface{}{
			"photo":  path,
			"width":  cfg.Width,
			"height": cfg.Height,
		})
		return Result{Path: path, Width: cfg.Width, Height: cfg.Height}, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Result{}, fmt.Errorf("rewind image: %w", err)
	}
	src, _, err := image.Decode(f)
	if err != nil {
		return Result{}, fmt.Errorf("decode image: %w", err)
	}

	dst := r.scale(src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: r.opts.Quality}); err != nil {
		return Result{}, fmt.Errorf("encode jpeg: %w", err)
	}
	encoded := buf.Bytes()

	if r.opts.PreserveExif {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return Result{}, fmt.Errorf("rewind image: %w", err)
		}
		encoded = r.withExif(encoded, exifdata.Extract(f), path)
	}

	out, err := r.workspace.Save(outputName(path), func(w io.Writer) error {
		_, err := w.Write(encoded)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	b := dst.Bounds()
	r.logger.InfoWithFields("Image resized", map[string]interface{}{
		"photo":     path,
		"format":    format,
		"from":      fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"to":        fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
		"resized":   out,
		"bytes":     len(encoded),
		"kept_exif": len(encoded) > buf.Len(),
	})

	return Result{Path: out, Resized: true, Width: b.Dx(), Height: b.Dy()}, nil
}

// scale fits src inside MaxDimension×MaxDimension keeping its aspect ratio.
// Transparent areas are flattened onto white since JPEG has no alpha.
func (r *Resizer) scale(src image.Image) *image.RGBA {
	w, h := TargetSize(src.Bounds().Dx(), src.Bounds().Dy(), r.opts.MaxDimension)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

// TargetSize returns the dimensions of a w×h image scaled so that neither
// side exceeds limit. Images already within limit are returned unchanged.
func TargetSize(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	ratio := math.Min(float64(limit)/float64(w), float64(limit)/float64(h))
	nw := max(1, int(math.Round(float64(w)*ratio)))
	nh := max(1, int(math.Round(float64(h)*ratio)))
	return min(nw, limit), min(nh, limit)
}

// withExif inserts the source EXIF block right after SOI when it fits one
// APP1 segment.
func (r *Resizer) withExif(encoded []byte, rec *exifdata.Record, path string) []byte {
	if rec == nil || len(rec.Raw) == 0 {
		return encoded
	}

	payload := append([]byte("Exif\x00\x00"), rec.Raw...)
	if len(payload) > maxAPP1Payload {
		r.logger.WarnWithFields("EXIF too large to carry over", map[string]interface{}{
			"photo": path,
			"bytes": len(payload),
		})
		return encoded
	}

	out := make([]byte, 0, len(encoded)+len(payload)+4)
	out = append(out, encoded[:2]...)
	out = append(out, 0xFF, 0xE1)
	out = binary.BigEndian.AppendUint16(out, uint16(len(payload)+2))
	out = append(out, payload...)
	return append(out, encoded[2:]...)
}

// outputName keeps the source base name, switching to .jpg for other formats
func outputName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return base
	default:
		return strings.TrimSuffix(base, ext) + ".jpg"
	}
}
