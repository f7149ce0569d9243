package soapysdr

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"unsafe"
)

// Priority ranks implementations of the same conversion. A higher priority
// is faster or more specialized; all priorities produce the same values up
// to floating-point rounding.
type Priority int

const (
	PriorityGeneric    Priority = 0
	PriorityVectorized Priority = 3
	PriorityCustom     Priority = 5
)

func (p Priority) String() string {
	switch p {
	case PriorityGeneric:
		return "generic"
	case PriorityVectorized:
		return "vectorized"
	case PriorityCustom:
		return "custom"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

// ConverterFunc converts numElems stream elements (complex samples for
// complex formats) from in to out, applying scalar. Buffers are raw bytes in
// the registered source and target formats and are at least large enough.
type ConverterFunc func(in, out []byte, numElems int, scalar float64)

type converterRegistry struct {
	mu sync.RWMutex
	// source -> target -> priority
	funcs map[string]map[string]map[Priority]ConverterFunc
}

var converters = &converterRegistry{
	funcs: make(map[string]map[string]map[Priority]ConverterFunc),
}

// RegisterConverter adds fn as the converter from source to target at the
// given priority. Registering the same triple twice is an error.
func RegisterConverter(source, target string, priority Priority, fn ConverterFunc) error {
	if fn == nil {
		return fmt.Errorf("register %s -> %s: nil converter", source, target)
	}
	converters.mu.Lock()
	defer converters.mu.Unlock()

	targets, ok := converters.funcs[source]
	if !ok {
		targets = make(map[string]map[Priority]ConverterFunc)
		converters.funcs[source] = targets
	}
	prios, ok := targets[target]
	if !ok {
		prios = make(map[Priority]ConverterFunc)
		targets[target] = prios
	}
	if _, dup := prios[priority]; dup {
		return fmt.Errorf("register %s -> %s: %s converter already registered", source, target, priority)
	}
	prios[priority] = fn
	return nil
}

// ListTargetFormats returns the sorted formats source can be converted to.
func ListTargetFormats(source string) []string {
	converters.mu.RLock()
	defer converters.mu.RUnlock()

	out := make([]string, 0, len(converters.funcs[source]))
	for target := range converters.funcs[source] {
		out = append(out, target)
	}
	sort.Strings(out)
	return out
}

// ListSourceFormats returns the sorted formats that can be converted to target.
func ListSourceFormats(target string) []string {
	converters.mu.RLock()
	defer converters.mu.RUnlock()

	var out []string
	for source, targets := range converters.funcs {
		if _, ok := targets[target]; ok {
			out = append(out, source)
		}
	}
	sort.Strings(out)
	return out
}

// ListAvailableSourceFormats returns every format with at least one converter.
func ListAvailableSourceFormats() []string {
	converters.mu.RLock()
	defer converters.mu.RUnlock()

	out := make([]string, 0, len(converters.funcs))
	for source := range converters.funcs {
		out = append(out, source)
	}
	sort.Strings(out)
	return out
}

// ListPriorities returns the priorities registered for source -> target in
// ascending order. The last element is the best available. The list is
// empty iff the pair is not convertible.
func ListPriorities(source, target string) []Priority {
	converters.mu.RLock()
	defer converters.mu.RUnlock()

	prios := converters.funcs[source][target]
	out := make([]Priority, 0, len(prios))
	for p := range prios {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// ListTargetFormatsOf returns the formats the scalar format of T converts to.
func ListTargetFormatsOf[T Sample]() []string {
	return ListTargetFormats(ScalarFormatOf[T]())
}

// ListComplexTargetFormatsOf returns the formats the complex format of T
// converts to.
func ListComplexTargetFormatsOf[T Sample]() []string {
	return ListTargetFormats(ComplexFormatOf[T]())
}

// ListSourceFormatsOf returns the formats that convert to the scalar format of T.
func ListSourceFormatsOf[T Sample]() []string {
	return ListSourceFormats(ScalarFormatOf[T]())
}

// ListComplexSourceFormatsOf returns the formats that convert to the complex
// format of T.
func ListComplexSourceFormatsOf[T Sample]() []string {
	return ListSourceFormats(ComplexFormatOf[T]())
}

// ListPrioritiesOf returns the priorities for the scalar formats of S and D.
func ListPrioritiesOf[S, D Sample]() []Priority {
	return ListPriorities(ScalarFormatOf[S](), ScalarFormatOf[D]())
}

// ListComplexPrioritiesOf returns the priorities for the complex formats of
// S and D.
func ListComplexPrioritiesOf[S, D Sample]() []Priority {
	return ListPriorities(ComplexFormatOf[S](), ComplexFormatOf[D]())
}

// lookup returns the converter for the pair at priority, or the highest
// priority one when best is set.
func (r *converterRegistry) lookup(source, target string, priority Priority, best bool) (ConverterFunc, Priority, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prios := r.funcs[source][target]
	if len(prios) == 0 {
		return nil, 0, &PairError{Source: source, Target: target}
	}
	if best {
		ordered := make([]Priority, 0, len(prios))
		for p := range prios {
			ordered = append(ordered, p)
		}
		slices.Sort(ordered)
		top := ordered[len(ordered)-1]
		return prios[top], top, nil
	}
	fn, ok := prios[priority]
	if !ok {
		return nil, 0, &PairError{Source: source, Target: target, Priority: priority, HasPriority: true}
	}
	return fn, priority, nil
}

// ConvertRaw converts numElems elements between two formats given as raw
// bytes, using the best available converter.
func ConvertRaw(source, target string, in, out []byte, numElems int, scalar float64) error {
	return convertRaw(source, target, 0, true, in, out, numElems, scalar)
}

// ConvertRawWithPriority is ConvertRaw with an explicit converter priority.
func ConvertRawWithPriority(source, target string, priority Priority, in, out []byte, numElems int, scalar float64) error {
	return convertRaw(source, target, priority, false, in, out, numElems, scalar)
}

func convertRaw(source, target string, priority Priority, best bool, in, out []byte, numElems int, scalar float64) error {
	fn, _, err := converters.lookup(source, target, priority, best)
	if err != nil {
		return err
	}
	if numElems < 0 {
		return fmt.Errorf("%w: negative element count %d", ErrLengthMismatch, numElems)
	}
	if size := FormatToSize(source); size > 0 && len(in) < numElems*size {
		return fmt.Errorf("%w: source holds %d bytes, need %d", ErrLengthMismatch, len(in), numElems*size)
	}
	if size := FormatToSize(target); size > 0 && len(out) < numElems*size {
		return fmt.Errorf("%w: destination holds %d bytes, need %d", ErrLengthMismatch, len(out), numElems*size)
	}
	if numElems == 0 {
		return nil
	}
	fn(in, out, numElems, scalar)
	return nil
}

// Convert converts src into dst element-wise between the scalar formats of
// S and D using the best available converter. Both slices must have the same
// length. See the package documentation for the meaning of scalar per pair.
func Convert[S, D Sample](src []S, dst []D, scalar float64) error {
	return convertTyped(ScalarFormatOf[S](), ScalarFormatOf[D](), 0, true, src, dst, len(src), scalar)
}

// ConvertWithPriority is Convert with an explicit converter priority.
func ConvertWithPriority[S, D Sample](src []S, dst []D, priority Priority, scalar float64) error {
	return convertTyped(ScalarFormatOf[S](), ScalarFormatOf[D](), priority, false, src, dst, len(src), scalar)
}

// ComplexConvert converts complex-interleaved src into dst between the
// complex formats of S and D. Lengths count elements, not samples: both must
// be equal and even.
func ComplexConvert[S, D Sample](src []S, dst []D, scalar float64) error {
	if len(src)%2 != 0 {
		return fmt.Errorf("%w: got %d elements", ErrOddLength, len(src))
	}
	return convertTyped(ComplexFormatOf[S](), ComplexFormatOf[D](), 0, true, src, dst, len(src)/2, scalar)
}

// ComplexConvertWithPriority is ComplexConvert with an explicit priority.
func ComplexConvertWithPriority[S, D Sample](src []S, dst []D, priority Priority, scalar float64) error {
	if len(src)%2 != 0 {
		return fmt.Errorf("%w: got %d elements", ErrOddLength, len(src))
	}
	return convertTyped(ComplexFormatOf[S](), ComplexFormatOf[D](), priority, false, src, dst, len(src)/2, scalar)
}

func convertTyped[S, D Sample](source, target string, priority Priority, best bool, src []S, dst []D, numElems int, scalar float64) error {
	if len(src) != len(dst) {
		return fmt.Errorf("%w: source has %d elements, destination %d", ErrLengthMismatch, len(src), len(dst))
	}
	return convertRaw(source, target, priority, best, sliceBytes(src), sliceBytes(dst), numElems, scalar)
}

// sliceBytes views s as its underlying bytes without copying.
func sliceBytes[T Sample](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*int(unsafe.Sizeof(zero)))
}

// byteView reinterprets the first n elements of b as []T. b must hold at
// least n elements of T.
func byteView[T Sample](b []byte, n int) []T {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n)
}
