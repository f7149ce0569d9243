package soapysdr

import (
	"errors"
	"testing"
	"unsafe"
)

func buffers[T Sample](lengths ...int) [][]T {
	out := make([][]T, len(lengths))
	for i, n := range lengths {
		out[i] = make([]T, n)
	}
	return out
}

func checkValidation[T Sample](t *testing.T) {
	t.Helper()
	for _, format := range []string{ScalarFormatOf[T](), ComplexFormatOf[T]()} {
		t.Run(format, func(t *testing.T) {
			_, err := validateBuffers(2, format, buffers[T](100, 100, 100))
			var ae *ArityError
			if !errors.As(err, &ae) {
				t.Fatalf("3 buffers on 2 channels: got %v, want ArityError", err)
			}
			if ae.Expected != 2 || ae.Found != 3 {
				t.Errorf("ArityError = %+v, want expected 2 found 3", ae)
			}
			if !errors.Is(err, ErrArityMismatch) {
				t.Error("ArityError should match ErrArityMismatch")
			}

			_, err = validateBuffers(3, format, buffers[T](100, 100, 50))
			if !errors.Is(err, ErrInconsistentBuffers) {
				t.Errorf("lengths {100,100,50}: got %v, want ErrInconsistentBuffers", err)
			}

			_, err = validateBuffers(2, format, [][]T{make([]T, 4), nil})
			if !errors.Is(err, ErrInconsistentBuffers) {
				t.Errorf("nil buffer: got %v, want ErrInconsistentBuffers", err)
			}

			n, err := validateBuffers(2, format, buffers[T](100, 100))
			if err != nil {
				t.Fatalf("valid set rejected: %v", err)
			}
			want := 100
			if IsComplex(format) {
				want = 50
			}
			if n != want {
				t.Errorf("numElems = %d, want %d", n, want)
			}
		})
	}
}

func TestValidateBuffersAllKinds(t *testing.T) {
	t.Run("int8", checkValidation[int8])
	t.Run("int16", checkValidation[int16])
	t.Run("int32", checkValidation[int32])
	t.Run("uint8", checkValidation[uint8])
	t.Run("uint16", checkValidation[uint16])
	t.Run("uint32", checkValidation[uint32])
	t.Run("float32", checkValidation[float32])
	t.Run("float64", checkValidation[float64])
}

func TestValidateOddComplex(t *testing.T) {
	_, err := validateBuffers(1, FormatCS16, buffers[int16](7))
	if !errors.Is(err, ErrOddComplexLength) {
		t.Errorf("got %v, want ErrOddComplexLength", err)
	}
	// Odd length is fine for a scalar stream.
	if n, err := validateBuffers(1, FormatS16, buffers[int16](7)); err != nil || n != 7 {
		t.Errorf("scalar odd length: n=%d err=%v", n, err)
	}
}

func TestValidateFormatMismatch(t *testing.T) {
	_, err := validateBuffers(1, FormatCF32, buffers[int16](8))
	var fe *FormatMismatchError
	if !errors.As(err, &fe) {
		t.Fatalf("got %v, want FormatMismatchError", err)
	}
	if fe.Found != FormatCF32 || len(fe.Expected) != 2 || fe.Expected[0] != FormatS16 || fe.Expected[1] != FormatCS16 {
		t.Errorf("FormatMismatchError = %+v", fe)
	}
	if !errors.Is(err, ErrFormatMismatch) {
		t.Error("FormatMismatchError should match ErrFormatMismatch")
	}
}

func TestValidateDoesNotMutate(t *testing.T) {
	buffs := [][]float32{{1, 2, 3, 4}, {5, 6, 7, 8}}
	if _, err := validateBuffers(2, FormatCF32, buffs); err != nil {
		t.Fatal(err)
	}
	if buffs[0][0] != 1 || buffs[1][3] != 8 || len(buffs) != 2 {
		t.Error("validation changed its input")
	}
}

func TestValidateAddrs(t *testing.T) {
	var a, b [4]float32
	addrs := []unsafe.Pointer{unsafe.Pointer(&a[0]), unsafe.Pointer(&b[0])}

	if err := validateAddrs(2, addrs, 4); err != nil {
		t.Errorf("valid addresses rejected: %v", err)
	}
	if err := validateAddrs(1, addrs, 4); !errors.Is(err, ErrArityMismatch) {
		t.Errorf("arity: got %v", err)
	}
	if err := validateAddrs(2, []unsafe.Pointer{addrs[0], nil}, 4); !errors.Is(err, ErrInconsistentBuffers) {
		t.Errorf("nil address: got %v", err)
	}
	if err := validateAddrs(2, addrs, 0); !errors.Is(err, ErrInconsistentBuffers) {
		t.Errorf("zero elements: got %v", err)
	}
}
