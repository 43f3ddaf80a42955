package insts

import "fmt"

// Single-bit masks.
const (
	B0  uint32 = 1 << 0
	B1  uint32 = 1 << 1
	B2  uint32 = 1 << 2
	B3  uint32 = 1 << 3
	B4  uint32 = 1 << 4
	B5  uint32 = 1 << 5
	B6  uint32 = 1 << 6
	B7  uint32 = 1 << 7
	B8  uint32 = 1 << 8
	B9  uint32 = 1 << 9
	B10 uint32 = 1 << 10
	B11 uint32 = 1 << 11
	B12 uint32 = 1 << 12
	B13 uint32 = 1 << 13
	B14 uint32 = 1 << 14
	B15 uint32 = 1 << 15
	B16 uint32 = 1 << 16
	B17 uint32 = 1 << 17
	B18 uint32 = 1 << 18
	B19 uint32 = 1 << 19
	B20 uint32 = 1 << 20
	B21 uint32 = 1 << 21
	B22 uint32 = 1 << 22
	B23 uint32 = 1 << 23
	B24 uint32 = 1 << 24
	B25 uint32 = 1 << 25
	B26 uint32 = 1 << 26
	B27 uint32 = 1 << 27
	B28 uint32 = 1 << 28
	B29 uint32 = 1 << 29
	B30 uint32 = 1 << 30
	B31 uint32 = 1 << 31
)

// FieldError reports a field accessor configured outside the 32-bit word.
// It is raised as a panic: it means the codec's own tables are wrong.
type FieldError struct {
	Shift int
	Count int
}

func (e FieldError) Error() string {
	return fmt.Sprintf("insts: bad field shift=%d count=%d", e.Shift, e.Count)
}

func checkField(shift, count int) {
	if shift < 0 || count < 1 || shift+count > 32 {
		panic(FieldError{Shift: shift, Count: count})
	}
}

// Bit returns bit n (0-31) of word as 0 or 1.
func Bit(word uint32, n int) uint32 {
	checkField(n, 1)
	return (word >> uint(n)) & 1
}

// Bits returns the count-wide unsigned field of word starting at shift.
func Bits(word uint32, shift, count int) uint32 {
	checkField(shift, count)
	return (word >> uint(shift)) & fieldMask(count)
}

// SignedBits returns the count-wide field starting at shift, sign extended.
// The field is moved to the top of the 32-bit lane and shifted back down
// arithmetically, which propagates its top bit whatever the width.
func SignedBits(word uint32, shift, count int) int32 {
	checkField(shift, count)
	up := uint(32 - count)
	return int32(Bits(word, shift, count)<<up) >> up
}

func fieldMask(count int) uint32 {
	if count >= 32 {
		return ^uint32(0)
	}
	return (uint32(1) << uint(count)) - 1
}

// placeField places value into a count-wide field at shift. Values wider than
// the field are a caller bug.
func placeField(value uint32, shift, count int) uint32 {
	checkField(shift, count)
	if value&^fieldMask(count) != 0 {
		panic(fmt.Sprintf("insts: value %#x does not fit %d-bit field", value, count))
	}
	return value << uint(shift)
}
