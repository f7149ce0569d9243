package soapysdr

import (
	"encoding/binary"
	"math"
)

// Built-in converters. Scalar conventions, per pair:
//
//	float  -> float   out = in * scalar
//	float  -> signed  out = round(in * scalar), saturated to the type range
//	signed -> float   out = in * scalar
//	float  -> uint    out = round(in * scalar) + offset, saturated (offset binary)
//	uint   -> float   out = (in - offset) * scalar
//	int    -> int     bit operations between widths/signedness; scalar ignored
//	CS12  <-> CS16    12-bit packed <-> left-justified 16-bit; scalar ignored
//	CS12  <-> CF32    via the left-justified 16-bit value, as float <-> signed
//
// offset is 1<<(bits-1): 128 for 8-bit, 32768 for 16-bit. A converter pair
// round-trips with scalars s and 1/s, e.g. F32 -> S16 with 32767 and back
// with 1/32767.

type floatType interface{ float32 | float64 }

type signedType interface{ int8 | int16 | int32 }

type unsignedType interface{ uint8 | uint16 | uint32 }

func signedLimits[I signedType]() (lo, hi float64) {
	var zero I
	switch any(zero).(type) {
	case int8:
		return math.MinInt8, math.MaxInt8
	case int16:
		return math.MinInt16, math.MaxInt16
	default:
		return math.MinInt32, math.MaxInt32
	}
}

func unsignedLimits[U unsignedType]() (offset, hi float64) {
	var zero U
	switch any(zero).(type) {
	case uint8:
		return 1 << 7, math.MaxUint8
	case uint16:
		return 1 << 15, math.MaxUint16
	default:
		return 1 << 31, math.MaxUint32
	}
}

func roundSat(v, lo, hi float64) float64 {
	v = math.Round(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Generic priority

func copyElems[T Sample](in, out []T, _ float64) { copy(out, in) }

func scaleFloats[S, D floatType](in []S, out []D, scalar float64) {
	for i := range in {
		out[i] = D(float64(in[i]) * scalar)
	}
}

func floatToSigned[F floatType, I signedType](in []F, out []I, scalar float64) {
	lo, hi := signedLimits[I]()
	for i := range in {
		out[i] = I(roundSat(float64(in[i])*scalar, lo, hi))
	}
}

func signedToFloat[I signedType, F floatType](in []I, out []F, scalar float64) {
	for i := range in {
		out[i] = F(float64(in[i]) * scalar)
	}
}

func floatToUnsigned[F floatType, U unsignedType](in []F, out []U, scalar float64) {
	offset, hi := unsignedLimits[U]()
	for i := range in {
		out[i] = U(roundSat(math.Round(float64(in[i])*scalar)+offset, 0, hi))
	}
}

func unsignedToFloat[U unsignedType, F floatType](in []U, out []F, scalar float64) {
	offset, _ := unsignedLimits[U]()
	for i := range in {
		out[i] = F((float64(in[i]) - offset) * scalar)
	}
}

func s16ToU16(in []int16, out []uint16, _ float64) {
	for i := range in {
		out[i] = uint16(in[i]) ^ 0x8000
	}
}

func u16ToS16(in []uint16, out []int16, _ float64) {
	for i := range in {
		out[i] = int16(in[i] ^ 0x8000)
	}
}

func s16ToS8(in []int16, out []int8, _ float64) {
	for i := range in {
		out[i] = int8(in[i] >> 8)
	}
}

func s8ToS16(in []int8, out []int16, _ float64) {
	for i := range in {
		out[i] = int16(in[i]) << 8
	}
}

func s16ToU8(in []int16, out []uint8, _ float64) {
	for i := range in {
		out[i] = uint8(in[i]>>8) ^ 0x80
	}
}

func u8ToS16(in []uint8, out []int16, _ float64) {
	for i := range in {
		out[i] = int16(int8(in[i]^0x80)) << 8
	}
}

func s8ToU8(in []int8, out []uint8, _ float64) {
	for i := range in {
		out[i] = uint8(in[i]) ^ 0x80
	}
}

func u8ToS8(in []uint8, out []int8, _ float64) {
	for i := range in {
		out[i] = int8(in[i] ^ 0x80)
	}
}

// Vectorized priority: unrolled in blocks of four with float32 arithmetic.

func unrolledF32ToSigned[I signedType](in []float32, out []I, scalar float64) {
	lo, hi := signedLimits[I]()
	s := float32(scalar)
	i := 0
	for ; i+4 <= len(in); i += 4 {
		x := in[i : i+4 : i+4]
		y := out[i : i+4 : i+4]
		y[0] = I(roundSat(float64(x[0]*s), lo, hi))
		y[1] = I(roundSat(float64(x[1]*s), lo, hi))
		y[2] = I(roundSat(float64(x[2]*s), lo, hi))
		y[3] = I(roundSat(float64(x[3]*s), lo, hi))
	}
	for ; i < len(in); i++ {
		out[i] = I(roundSat(float64(in[i]*s), lo, hi))
	}
}

func unrolledSignedToF32[I signedType](in []I, out []float32, scalar float64) {
	s := float32(scalar)
	i := 0
	for ; i+4 <= len(in); i += 4 {
		x := in[i : i+4 : i+4]
		y := out[i : i+4 : i+4]
		y[0] = float32(x[0]) * s
		y[1] = float32(x[1]) * s
		y[2] = float32(x[2]) * s
		y[3] = float32(x[3]) * s
	}
	for ; i < len(in); i++ {
		out[i] = float32(in[i]) * s
	}
}

func unrolledF32ToU8(in []float32, out []uint8, scalar float64) {
	s := float32(scalar)
	i := 0
	for ; i+4 <= len(in); i += 4 {
		x := in[i : i+4 : i+4]
		y := out[i : i+4 : i+4]
		y[0] = uint8(roundSat(math.Round(float64(x[0]*s))+128, 0, math.MaxUint8))
		y[1] = uint8(roundSat(math.Round(float64(x[1]*s))+128, 0, math.MaxUint8))
		y[2] = uint8(roundSat(math.Round(float64(x[2]*s))+128, 0, math.MaxUint8))
		y[3] = uint8(roundSat(math.Round(float64(x[3]*s))+128, 0, math.MaxUint8))
	}
	for ; i < len(in); i++ {
		out[i] = uint8(roundSat(math.Round(float64(in[i]*s))+128, 0, math.MaxUint8))
	}
}

func unrolledS16ToS8(in []int16, out []int8, _ float64) {
	i := 0
	for ; i+4 <= len(in); i += 4 {
		x := in[i : i+4 : i+4]
		y := out[i : i+4 : i+4]
		y[0] = int8(x[0] >> 8)
		y[1] = int8(x[1] >> 8)
		y[2] = int8(x[2] >> 8)
		y[3] = int8(x[3] >> 8)
	}
	for ; i < len(in); i++ {
		out[i] = int8(in[i] >> 8)
	}
}

func unrolledS8ToS16(in []int8, out []int16, _ float64) {
	i := 0
	for ; i+4 <= len(in); i += 4 {
		x := in[i : i+4 : i+4]
		y := out[i : i+4 : i+4]
		y[0] = int16(x[0]) << 8
		y[1] = int16(x[1]) << 8
		y[2] = int16(x[2]) << 8
		y[3] = int16(x[3]) << 8
	}
	for ; i < len(in); i++ {
		out[i] = int16(in[i]) << 8
	}
}

const signBits8 = 0x8080808080808080

// flipSign8 flips the sign bit of n bytes, eight at a time.
func flipSign8(in, out []byte, n int, _ float64) {
	i := 0
	for ; i+8 <= n; i += 8 {
		binary.LittleEndian.PutUint64(out[i:i+8], binary.LittleEndian.Uint64(in[i:i+8])^signBits8)
	}
	for ; i < n; i++ {
		out[i] = in[i] ^ 0x80
	}
}

// Custom priority: 256-entry lookup tables for 8-bit sources.

func lutS8ToF32(in []int8, out []float32, scalar float64) {
	var lut [256]float32
	for b := range lut {
		lut[b] = float32(float64(int8(uint8(b))) * scalar)
	}
	for i, v := range in {
		out[i] = lut[uint8(v)]
	}
}

func lutU8ToF32(in []uint8, out []float32, scalar float64) {
	var lut [256]float32
	for b := range lut {
		lut[b] = float32((float64(b) - 128) * scalar)
	}
	for i, v := range in {
		out[i] = lut[v]
	}
}

// CS12: three bytes per complex sample, 12-bit I and Q.

func unpackCS12(in []byte) (i, q int16) {
	p0, p1, p2 := uint16(in[0]), uint16(in[1]), uint16(in[2])
	return int16(p1<<12 | p0<<4), int16(p2<<8 | p1&0xf0)
}

func packCS12(out []byte, i, q int16) {
	ui, uq := uint16(i), uint16(q)
	out[0] = byte(ui >> 4)
	out[1] = byte((ui>>12)&0x0f) | byte(uq&0xf0)
	out[2] = byte(uq >> 8)
}

func cs12ToCS16(in, out []byte, numElems int, _ float64) {
	o := byteView[int16](out, 2*numElems)
	for k := 0; k < numElems; k++ {
		o[2*k], o[2*k+1] = unpackCS12(in[3*k : 3*k+3])
	}
}

func cs16ToCS12(in, out []byte, numElems int, _ float64) {
	v := byteView[int16](in, 2*numElems)
	for k := 0; k < numElems; k++ {
		packCS12(out[3*k:3*k+3], v[2*k], v[2*k+1])
	}
}

func cs12ToCF32(in, out []byte, numElems int, scalar float64) {
	o := byteView[float32](out, 2*numElems)
	for k := 0; k < numElems; k++ {
		i, q := unpackCS12(in[3*k : 3*k+3])
		o[2*k] = float32(float64(i) * scalar)
		o[2*k+1] = float32(float64(q) * scalar)
	}
}

func cf32ToCS12(in, out []byte, numElems int, scalar float64) {
	v := byteView[float32](in, 2*numElems)
	for k := 0; k < numElems; k++ {
		i := int16(roundSat(float64(v[2*k])*scalar, math.MinInt16, math.MaxInt16))
		q := int16(roundSat(float64(v[2*k+1])*scalar, math.MinInt16, math.MaxInt16))
		packCS12(out[3*k:3*k+3], i, q)
	}
}

// Registration

func mustRegister(source, target string, priority Priority, fn ConverterFunc) {
	if err := RegisterConverter(source, target, priority, fn); err != nil {
		panic(err)
	}
}

// registerPair registers f for the scalar formats of S and D and for their
// complex counterparts, where it runs over twice as many elements.
func registerPair[S, D Sample](priority Priority, f func(in []S, out []D, scalar float64)) {
	mustRegister(ScalarFormatOf[S](), ScalarFormatOf[D](), priority,
		func(in, out []byte, numElems int, scalar float64) {
			f(byteView[S](in, numElems), byteView[D](out, numElems), scalar)
		})
	mustRegister(ComplexFormatOf[S](), ComplexFormatOf[D](), priority,
		func(in, out []byte, numElems int, scalar float64) {
			n := 2 * numElems
			f(byteView[S](in, n), byteView[D](out, n), scalar)
		})
}

func registerRawPair(scalarSrc, scalarDst, complexSrc, complexDst string, priority Priority, f func(in, out []byte, n int, scalar float64)) {
	mustRegister(scalarSrc, scalarDst, priority, f)
	mustRegister(complexSrc, complexDst, priority,
		func(in, out []byte, numElems int, scalar float64) { f(in, out, 2*numElems, scalar) })
}

func init() {
	registerPair(PriorityGeneric, scaleFloats[float32, float32])
	registerPair(PriorityGeneric, scaleFloats[float64, float64])
	registerPair(PriorityGeneric, scaleFloats[float32, float64])
	registerPair(PriorityGeneric, scaleFloats[float64, float32])

	registerPair(PriorityGeneric, copyElems[int32])
	registerPair(PriorityGeneric, copyElems[int16])
	registerPair(PriorityGeneric, copyElems[int8])
	registerPair(PriorityGeneric, copyElems[uint16])
	registerPair(PriorityGeneric, copyElems[uint8])

	registerPair(PriorityGeneric, floatToSigned[float32, int32])
	registerPair(PriorityGeneric, signedToFloat[int32, float32])
	registerPair(PriorityGeneric, floatToSigned[float32, int16])
	registerPair(PriorityGeneric, signedToFloat[int16, float32])
	registerPair(PriorityGeneric, floatToSigned[float32, int8])
	registerPair(PriorityGeneric, signedToFloat[int8, float32])
	registerPair(PriorityGeneric, floatToUnsigned[float32, uint16])
	registerPair(PriorityGeneric, unsignedToFloat[uint16, float32])
	registerPair(PriorityGeneric, floatToUnsigned[float32, uint8])
	registerPair(PriorityGeneric, unsignedToFloat[uint8, float32])

	registerPair(PriorityGeneric, s16ToU16)
	registerPair(PriorityGeneric, u16ToS16)
	registerPair(PriorityGeneric, s16ToS8)
	registerPair(PriorityGeneric, s8ToS16)
	registerPair(PriorityGeneric, s16ToU8)
	registerPair(PriorityGeneric, u8ToS16)
	registerPair(PriorityGeneric, s8ToU8)
	registerPair(PriorityGeneric, u8ToS8)

	registerPair(PriorityVectorized, unrolledF32ToSigned[int16])
	registerPair(PriorityVectorized, unrolledSignedToF32[int16])
	registerPair(PriorityVectorized, unrolledF32ToSigned[int8])
	registerPair(PriorityVectorized, unrolledSignedToF32[int8])
	registerPair(PriorityVectorized, unrolledF32ToU8)
	registerPair(PriorityVectorized, unrolledS16ToS8)
	registerPair(PriorityVectorized, unrolledS8ToS16)
	registerRawPair(FormatS8, FormatU8, FormatCS8, FormatCU8, PriorityVectorized, flipSign8)
	registerRawPair(FormatU8, FormatS8, FormatCU8, FormatCS8, PriorityVectorized, flipSign8)

	registerPair(PriorityCustom, lutS8ToF32)
	registerPair(PriorityCustom, lutU8ToF32)

	mustRegister(FormatCS12, FormatCS16, PriorityGeneric, cs12ToCS16)
	mustRegister(FormatCS16, FormatCS12, PriorityGeneric, cs16ToCS12)
	mustRegister(FormatCS12, FormatCF32, PriorityGeneric, cs12ToCF32)
	mustRegister(FormatCF32, FormatCS12, PriorityGeneric, cf32ToCS12)
}
