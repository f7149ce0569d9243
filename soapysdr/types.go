package soapysdr

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Direction of a stream relative to the host.
type Direction int

const (
	Tx Direction = 0
	Rx Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Tx:
		return "TX"
	case Rx:
		return "RX"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// StreamFlags is a bitmask passed to and reported by stream operations.
type StreamFlags int

const (
	FlagNone StreamFlags = 0
	// FlagEndBurst marks the last element of a transmit burst.
	FlagEndBurst StreamFlags = 1 << 1
	// FlagHasTime indicates the time argument or result is valid.
	FlagHasTime StreamFlags = 1 << 2
	// FlagEndAbrupt reports that a burst ended abruptly (overflow/underflow).
	FlagEndAbrupt StreamFlags = 1 << 3
	// FlagOnePacket requests or reports a single packet transfer.
	FlagOnePacket StreamFlags = 1 << 4
	// FlagMoreFragments reports that the read left data for a following call.
	FlagMoreFragments StreamFlags = 1 << 5
	// FlagWaitTrigger delays the operation until an external trigger.
	FlagWaitTrigger StreamFlags = 1 << 6
	FlagUser0       StreamFlags = 1 << 16
	FlagUser1       StreamFlags = 1 << 17
	FlagUser2       StreamFlags = 1 << 18
	FlagUser3       StreamFlags = 1 << 19
	FlagUser4       StreamFlags = 1 << 20
)

var flagNames = []struct {
	flag StreamFlags
	name string
}{
	{FlagEndBurst, "EndBurst"},
	{FlagHasTime, "HasTime"},
	{FlagEndAbrupt, "EndAbrupt"},
	{FlagOnePacket, "OnePacket"},
	{FlagMoreFragments, "MoreFragments"},
	{FlagWaitTrigger, "WaitTrigger"},
	{FlagUser0, "UserFlag0"},
	{FlagUser1, "UserFlag1"},
	{FlagUser2, "UserFlag2"},
	{FlagUser3, "UserFlag3"},
	{FlagUser4, "UserFlag4"},
}

// Has reports whether all bits of flag are set in f.
func (f StreamFlags) Has(flag StreamFlags) bool {
	return f&flag == flag
}

func (f StreamFlags) String() string {
	if f == FlagNone {
		return "None"
	}
	var parts []string
	rest := f
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
			rest &^= fn.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", int(rest)))
	}
	return strings.Join(parts, "|")
}

// StreamResult is returned by every read, write and status call.
type StreamResult struct {
	// NumSamples is the number of elements transferred per channel. It may be
	// less than requested; a short transfer is not an error by itself.
	NumSamples uint
	Flags      StreamFlags
	// TimeNs is the hardware timestamp, valid only if Flags has FlagHasTime.
	TimeNs    int64
	TimeoutUs int
	// ChanMask is set by ReadStatus only.
	ChanMask uint
}

// Kwargs holds stream or device arguments.
type Kwargs map[string]string

// KwargsFromString parses markup of the form "key0=value0, key1=value1".
// Keys without '=' map to an empty value; empty entries are skipped.
func KwargsFromString(markup string) Kwargs {
	kw := Kwargs{}
	for _, pair := range strings.Split(markup, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, val, _ := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		kw[key] = strings.TrimSpace(val)
	}
	return kw
}

// String renders the arguments as markup with keys sorted.
func (kw Kwargs) String() string {
	keys := make([]string, 0, len(kw))
	for k := range kw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + kw[k]
	}
	return strings.Join(parts, ", ")
}

// Clone returns an independent copy of kw.
func (kw Kwargs) Clone() Kwargs {
	out := make(Kwargs, len(kw))
	for k, v := range kw {
		out[k] = v
	}
	return out
}

const nsPerSecond = 1_000_000_000

// TicksToTimeNs converts a tick count at the given rate to nanoseconds.
// Fractional rates are handled without accumulating float error over large
// tick counts.
func TicksToTimeNs(ticks int64, rate float64) int64 {
	ratell := int64(rate)
	if ratell == 0 {
		return int64(math.Round(float64(ticks) * nsPerSecond / rate))
	}
	full := ticks / ratell
	rem := ticks - full*ratell
	part := float64(full) * (rate - float64(ratell))
	frac := ((float64(rem) - part) * nsPerSecond) / rate
	return full*nsPerSecond + int64(math.Round(frac))
}

// TimeNsToTicks converts nanoseconds to a tick count at the given rate.
func TimeNsToTicks(timeNs int64, rate float64) int64 {
	ratell := int64(rate)
	if ratell == 0 {
		return int64(math.Round(float64(timeNs) * rate / nsPerSecond))
	}
	full := timeNs / nsPerSecond
	rem := timeNs - full*nsPerSecond
	part := float64(full) * (rate - float64(ratell))
	frac := part + (float64(rem)*rate)/nsPerSecond
	return full*ratell + int64(math.Round(frac))
}
