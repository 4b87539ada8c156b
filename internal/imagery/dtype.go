package imagery

import "strings"

// DType names a source pixel datatype using the lowercase vendor
// spelling that also appears in output file names.
type DType string

const (
	DTypeUInt8   DType = "uint8"
	DTypeUInt16  DType = "uint16"
	DTypeInt16   DType = "int16"
	DTypeUInt32  DType = "uint32"
	DTypeInt32   DType = "int32"
	DTypeFloat32 DType = "float32"
)

// ParseDType normalizes a datatype string. Unknown values are returned
// as-is so vendor-specific spellings survive round trips through
// reports; callers that need strictness compare against the constants.
func ParseDType(value string) DType {
	return DType(strings.ToLower(strings.TrimSpace(value)))
}

// EightBit reports whether the datatype already is unsigned 8-bit, in
// which case the rescale step is unnecessary.
func (d DType) EightBit() bool {
	return d == DTypeUInt8
}
