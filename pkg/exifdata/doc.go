// Package exifdata reads the EXIF fields photopost puts in captions and
// renders them as labelled lines.
//
// Extraction never fails: anything that prevents reading the metadata yields
// a nil *Record. Each renderer returns (value, ok) so that a missing or
// malformed field simply drops its line from the caption.
package exifdata
