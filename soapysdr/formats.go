package soapysdr

import "fmt"

// Stream format tokens. Complex formats are interleaved: each complex sample
// occupies two adjacent elements (real, imaginary) of the native type.
const (
	FormatCF64 = "CF64"
	FormatCF32 = "CF32"
	FormatCS32 = "CS32"
	FormatCU32 = "CU32"
	FormatCS16 = "CS16"
	FormatCU16 = "CU16"
	FormatCS12 = "CS12"
	FormatCU12 = "CU12"
	FormatCS8  = "CS8"
	FormatCU8  = "CU8"
	FormatCS4  = "CS4"
	FormatCU4  = "CU4"
	FormatF64  = "F64"
	FormatF32  = "F32"
	FormatS32  = "S32"
	FormatU32  = "U32"
	FormatS16  = "S16"
	FormatU16  = "U16"
	FormatS8   = "S8"
	FormatU8   = "U8"
)

// Sample is the closed set of native element types a stream buffer or a
// converter buffer may hold.
type Sample interface {
	int8 | int16 | int32 | uint8 | uint16 | uint32 | float32 | float64
}

// Kind tags one of the supported native element types.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindUint8
	KindUint16
	KindUint32
	KindFloat32
	KindFloat64
)

type kindFormats struct {
	name    string
	scalar  string
	complex string
	size    int
}

var kindTable = map[Kind]kindFormats{
	KindInt8:    {"int8", FormatS8, FormatCS8, 1},
	KindInt16:   {"int16", FormatS16, FormatCS16, 2},
	KindInt32:   {"int32", FormatS32, FormatCS32, 4},
	KindUint8:   {"uint8", FormatU8, FormatCU8, 1},
	KindUint16:  {"uint16", FormatU16, FormatCU16, 2},
	KindUint32:  {"uint32", FormatU32, FormatCU32, 4},
	KindFloat32: {"float32", FormatF32, FormatCF32, 4},
	KindFloat64: {"float64", FormatF64, FormatCF64, 8},
}

func (k Kind) String() string {
	if kf, ok := kindTable[k]; ok {
		return kf.name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Size returns the size in bytes of one element of the kind, or 0 if the
// kind is not supported.
func (k Kind) Size() int {
	return kindTable[k].size
}

// KindOf returns the Kind tag for T.
func KindOf[T Sample]() Kind {
	var zero T
	switch any(zero).(type) {
	case int8:
		return KindInt8
	case int16:
		return KindInt16
	case int32:
		return KindInt32
	case uint8:
		return KindUint8
	case uint16:
		return KindUint16
	case uint32:
		return KindUint32
	case float32:
		return KindFloat32
	case float64:
		return KindFloat64
	}
	return KindInvalid
}

// ScalarFormat returns the scalar format token for k.
// It fails with ErrUnsupportedType for kinds outside the supported set.
func ScalarFormat(k Kind) (string, error) {
	kf, ok := kindTable[k]
	if !ok {
		return "", &UnsupportedTypeError{Kind: k}
	}
	return kf.scalar, nil
}

// ComplexFormat returns the complex-interleaved format token for k.
// It fails with ErrUnsupportedType for kinds outside the supported set.
func ComplexFormat(k Kind) (string, error) {
	kf, ok := kindTable[k]
	if !ok {
		return "", &UnsupportedTypeError{Kind: k}
	}
	return kf.complex, nil
}

// ScalarFormatOf returns the scalar format token for T, e.g. "S16" for int16.
func ScalarFormatOf[T Sample]() string {
	return kindTable[KindOf[T]()].scalar
}

// ComplexFormatOf returns the complex format token for T, e.g. "CS16" for int16.
func ComplexFormatOf[T Sample]() string {
	return kindTable[KindOf[T]()].complex
}

// formatInfo describes one format token. bits is the storage per element
// (per complex sample for complex formats).
type formatInfo struct {
	complex bool
	bits    int
}

var formatTable = map[string]formatInfo{
	FormatCF64: {true, 128},
	FormatCF32: {true, 64},
	FormatCS32: {true, 64},
	FormatCU32: {true, 64},
	FormatCS16: {true, 32},
	FormatCU16: {true, 32},
	FormatCS12: {true, 24},
	FormatCU12: {true, 24},
	FormatCS8:  {true, 16},
	FormatCU8:  {true, 16},
	FormatCS4:  {true, 8},
	FormatCU4:  {true, 8},
	FormatF64:  {false, 64},
	FormatF32:  {false, 32},
	FormatS32:  {false, 32},
	FormatU32:  {false, 32},
	FormatS16:  {false, 16},
	FormatU16:  {false, 16},
	FormatS8:   {false, 8},
	FormatU8:   {false, 8},
}

// FormatToSize returns the number of bytes occupied by one stream element of
// the given format (one complex sample for complex formats). Unknown formats
// return 0.
func FormatToSize(format string) int {
	return formatTable[format].bits / 8
}

// IsComplex reports whether format is a complex-interleaved format token.
func IsComplex(format string) bool {
	return formatTable[format].complex
}

// IsKnownFormat reports whether format belongs to the fixed token vocabulary.
func IsKnownFormat(format string) bool {
	_, ok := formatTable[format]
	return ok
}
