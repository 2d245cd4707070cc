package exifdata

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerAPP1 = 0xE1

	// IFDs followed before giving up on a looping or absurd structure
	maxIFDs = 16

	tagExifIFD    = 0x8769
	tagGPSIFD     = 0x8825
	tagInteropIFD = 0xA005
)

var (
	errNoExif  = errors.New("no exif segment")
	errBadTIFF = errors.New("malformed tiff structure")
)

var exifHeader = []byte("Exif\x00\x00")

// typeSizes maps TIFF field types to their size in bytes
var typeSizes = map[uint16]uint64{
	1: 1, 2: 1, 3: 2, 4: 4, 5: 8, 6: 1, 7: 1, 8: 2, 9: 4, 10: 8, 11: 4, 12: 8,
}

// readTIFF returns the TIFF structure carried by a JPEG APP1 segment, or the
// whole stream when it is a TIFF file itself.
func readTIFF(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil {
		return nil, errNoExif
	}
	switch string(head) {
	case "II*\x00", "MM\x00*":
		return io.ReadAll(br)
	}
	if head[0] != 0xFF || head[1] != markerSOI {
		return nil, errNoExif
	}
	if _, err := br.Discard(2); err != nil {
		return nil, err
	}

	for {
		marker, err := nextMarker(br)
		if err != nil {
			return nil, err
		}
		switch {
		case marker == markerSOS || marker == markerEOI:
			return nil, errNoExif
		case marker >= 0xD0 && marker <= 0xD7, marker == 0x01:
			continue
		}

		var size [2]byte
		if _, err := io.ReadFull(br, size[:]); err != nil {
			return nil, err
		}
		n := int(binary.BigEndian.Uint16(size[:]))
		if n < 2 {
			return nil, errBadTIFF
		}
		payload := make([]byte, n-2)
		if _, err := io.ReadFull(br, payload); err != nil {
			return nil, err
		}
		if marker == markerAPP1 && bytes.HasPrefix(payload, exifHeader) {
			return payload[len(exifHeader):], nil
		}
	}
}

// nextMarker skips to the next 0xFF-prefixed marker, ignoring fill bytes
func nextMarker(br *bufio.Reader) (byte, error) {
	b, err := br.ReadByte()
	if err != nil {
		return 0, err
	}
	if b != 0xFF {
		return 0, errBadTIFF
	}
	for b == 0xFF {
		if b, err = br.ReadByte(); err != nil {
			return 0, err
		}
	}
	return b, nil
}

// checkTIFF walks the IFD chain and the Exif, GPS and interoperability
// sub-IFDs, and fails when any entry claims more data than the structure
// holds. Decoders allocate by the declared count, so one corrupt count would
// otherwise exhaust memory.
func checkTIFF(data []byte) error {
	if len(data) < 8 {
		return errBadTIFF
	}
	var order binary.ByteOrder
	switch string(data[:4]) {
	case "II*\x00":
		order = binary.LittleEndian
	case "MM\x00*":
		order = binary.BigEndian
	default:
		return errBadTIFF
	}

	size := uint64(len(data))
	queue := []uint64{uint64(order.Uint32(data[4:8]))}
	seen := make(map[uint64]bool)

	for len(queue) > 0 {
		offset := queue[0]
		queue = queue[1:]
		if offset == 0 || seen[offset] {
			continue
		}
		if len(seen) == maxIFDs {
			return errBadTIFF
		}
		seen[offset] = true

		if offset+2 > size {
			return errBadTIFF
		}
		entries := uint64(order.Uint16(data[offset:]))
		end := offset + 2 + entries*12
		if end+4 > size {
			return errBadTIFF
		}

		for i := uint64(0); i < entries; i++ {
			e := data[offset+2+i*12:]
			tag := order.Uint16(e[0:2])
			typ := order.Uint16(e[2:4])
			count := uint64(order.Uint32(e[4:8]))
			value := uint64(order.Uint32(e[8:12]))

			length := count * typeSizes[typ]
			if length > size || (length > 4 && value+length > size) {
				return errBadTIFF
			}

			switch tag {
			case tagExifIFD, tagGPSIFD, tagInteropIFD:
				queue = append(queue, value)
			}
		}

		queue = append(queue, uint64(order.Uint32(data[end:end+4])))
	}
	return nil
}
