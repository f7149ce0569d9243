// Package soapysdr provides the streaming data path of a SoapySDR binding:
// sample streams over one or more device channels, zero-copy transfers of
// caller-owned buffers, and conversion between sample formats.
//
// The package does not open hardware itself. Streams are set up on a Device,
// which the native package implements over the SoapySDR C library and the
// loopback package implements in memory. NullDevice mirrors the SoapySDR
// "null" driver and is handy in tests.
//
// # Quick Start
//
//	dev, _ := native.Make(soapysdr.Kwargs{"driver": "hackrf"})
//	defer dev.Close()
//
//	tx, _ := soapysdr.SetupComplexTxStreamOf[float32](dev, []uint{0}, nil)
//	defer tx.Close()
//	tx.Activate(soapysdr.FlagNone, 0, 0)
//
//	mtu, _ := tx.MTU()
//	buf := make([]float32, 2*mtu) // interleaved I/Q
//	code, res, err := soapysdr.WriteSingle(tx, buf, soapysdr.FlagNone, 0, 100000)
//
// # Formats
//
// Streams carry one of the format tokens (FormatCF32, FormatS16, ...). Each
// Go sample type maps to exactly one scalar and one complex token:
//
//	float32 F32 CF32    int32  S32 CS32    uint32 U32 CU32
//	float64 F64 CF64    int16  S16 CS16    uint16 U16 CU16
//	                    int8   S8  CS8     uint8  U8  CU8
//
// Complex buffers hold interleaved I/Q pairs, so a buffer of 2N elements
// holds N samples, and element counts passed to the device are sample counts.
//
// # Errors
//
// Misuse is reported as an error before the native layer is reached: a wrong
// buffer count (ErrArityMismatch), empty or unequal buffers
// (ErrInconsistentBuffers), an odd complex buffer (ErrOddComplexLength), a
// buffer type that does not match the stream format (ErrFormatMismatch), or
// an operation in the wrong lifecycle state (ErrInvalidState).
//
// What the device reports is returned as an ErrorCode. Timeouts, overflows
// and NotSupported are normal on real hardware and do not become errors
// unless the caller asks for it with ErrorCode.Err.
//
// # Conversion
//
// Convert and ComplexConvert translate buffers between sample types with a
// scalar applied on the way. Float to fixed point multiplies by scalar and
// rounds with saturation; fixed point to float multiplies by scalar; unsigned
// types are offset binary. Converting with s and back with 1/s returns the
// input up to the quantization of the narrower type. Several implementations
// may exist for one pair; ListPriorities ranks them and the highest is used
// unless a priority is given.
//
// # Thread Safety
//
// Calls on one Stream are serialized, so Close waits for an in-flight Read
// or Write to return. Use one goroutine per stream regardless: interleaving
// transfers from several goroutines gives no ordering guarantee. The
// converter registry and format functions are safe for concurrent use.
package soapysdr
