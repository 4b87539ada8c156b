package raster

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"rasterprep/internal/imagery"
)

// ErrDType marks a raster whose pixel datatype could not be determined.
// Discovery treats it as a non-fatal, per-candidate condition.
var ErrDType = errors.New("read raster datatype")

// TIFF tag and sample-format constants, per the TIFF 6.0 baseline.
const (
	tagBitsPerSample = 258
	tagSampleFormat  = 339

	fieldTypeShort = 3

	sampleFormatUint  = 1
	sampleFormatInt   = 2
	sampleFormatFloat = 3
)

// ReadDType determines the pixel datatype of a GeoTIFF by reading only
// the first image file directory. This deliberately stops far short of
// raster I/O: discovery needs the datatype to plan the rescale step and
// nothing else.
func ReadDType(path string) (imagery.DType, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDType, path, err)
	}
	defer file.Close()

	dtype, err := readDType(file)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDType, path, err)
	}
	return dtype, nil
}

func readDType(r io.ReadSeeker) (imagery.DType, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return "", err
	}

	var order binary.ByteOrder
	switch {
	case header[0] == 'I' && header[1] == 'I':
		order = binary.LittleEndian
	case header[0] == 'M' && header[1] == 'M':
		order = binary.BigEndian
	default:
		return "", errors.New("not a TIFF file")
	}
	if magic := order.Uint16(header[2:4]); magic != 42 {
		return "", fmt.Errorf("unexpected TIFF magic %d", magic)
	}

	ifdOffset := order.Uint32(header[4:8])
	if _, err := r.Seek(int64(ifdOffset), io.SeekStart); err != nil {
		return "", err
	}

	var countBuf [2]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return "", err
	}
	entryCount := int(order.Uint16(countBuf[:]))

	entries := make([]byte, entryCount*12)
	if _, err := io.ReadFull(r, entries); err != nil {
		return "", err
	}

	bits := uint16(0)
	format := uint16(sampleFormatUint)
	for i := 0; i < entryCount; i++ {
		entry := entries[i*12 : (i+1)*12]
		var value uint16
		var err error
		switch order.Uint16(entry[0:2]) {
		case tagBitsPerSample:
			if value, err = shortValue(r, order, entry); err != nil {
				return "", err
			}
			bits = value
		case tagSampleFormat:
			if value, err = shortValue(r, order, entry); err != nil {
				return "", err
			}
			format = value
		}
	}
	if bits == 0 {
		return "", errors.New("missing BitsPerSample tag")
	}

	switch {
	case format == sampleFormatFloat && bits == 32:
		return imagery.DTypeFloat32, nil
	case format == sampleFormatInt && bits == 16:
		return imagery.DTypeInt16, nil
	case format == sampleFormatInt && bits == 32:
		return imagery.DTypeInt32, nil
	case format == sampleFormatUint && bits <= 8:
		return imagery.DTypeUInt8, nil
	case format == sampleFormatUint && bits == 16:
		return imagery.DTypeUInt16, nil
	case format == sampleFormatUint && bits == 32:
		return imagery.DTypeUInt32, nil
	default:
		return "", fmt.Errorf("unsupported sample layout: %d bits, format %d", bits, format)
	}
}

// shortValue reads the first SHORT of an IFD entry. Multi-band rasters
// store per-band values out of line; bands share a datatype in these
// products, so the first value is authoritative.
func shortValue(r io.ReadSeeker, order binary.ByteOrder, entry []byte) (uint16, error) {
	if fieldType := order.Uint16(entry[2:4]); fieldType != fieldTypeShort {
		return 0, fmt.Errorf("unexpected IFD field type %d", fieldType)
	}
	count := order.Uint32(entry[4:8])
	if count == 0 {
		return 0, errors.New("empty IFD entry")
	}
	if count <= 2 {
		return order.Uint16(entry[8:10]), nil
	}

	offset := order.Uint32(entry[8:12])
	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return 0, err
	}
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return order.Uint16(buf[:]), nil
}
