package insts

import "math/bits"

// RotateRight rotates the low width bits of value right by rotate.
func RotateRight(value uint64, rotate, width uint) uint64 {
	if width == 0 || width > 64 {
		panic("insts: rotate width out of range")
	}
	rotate %= width
	if rotate == 0 {
		return value
	}
	return (value&((uint64(1)<<rotate)-1))<<(width-rotate) | value>>rotate
}

// RepeatBitsAcrossReg replicates the low width bits of value across a
// regSize-bit register.
func RepeatBitsAcrossReg(regSize int, value uint64, width uint) uint64 {
	switch width {
	case 2, 4, 8, 16, 32:
	default:
		panic("insts: bad replication width")
	}
	if regSize != XRegSizeInBits && regSize != WRegSizeInBits {
		panic("insts: bad register size")
	}
	result := value & ((uint64(1) << width) - 1)
	for i := width; i < uint(regSize); i *= 2 {
		result |= result << i
	}
	return result
}

// DecodeLogicalImmediate reconstructs the value of a logical immediate from
// its N, immS and immR fields for a regSize-bit operation.
//
//	N   imms    immr    size        S             R
//	1  ssssss  rrrrrr    64    UInt(ssssss)  UInt(rrrrrr)
//	0  0sssss  xrrrrr    32    UInt(sssss)   UInt(rrrrr)
//	0  10ssss  xxrrrr    16    UInt(ssss)    UInt(rrrr)
//	0  110sss  xxxrrr     8    UInt(sss)     UInt(rrr)
//	0  1110ss  xxxxrr     4    UInt(ss)      UInt(rr)
//	0  11110s  xxxxxr     2    UInt(s)       UInt(r)
//
// S+1 low bits are set in a size-bit element, which is rotated right by R and
// repeated across the register. The S bits must not be all set.
//
// Zero cannot be encoded, so zero is returned for reserved encodings. N=1 is
// reserved for 32-bit operations.
func DecodeLogicalImmediate(n, imms, immr uint32, regSize int) uint64 {
	imms &= 0x3f
	immr &= 0x3f
	if n == 1 {
		if regSize != XRegSizeInBits || imms == 0x3f {
			return 0
		}
		run := (uint64(1) << (imms + 1)) - 1
		return RotateRight(run, uint(immr), XRegSizeInBits)
	}
	if imms>>1 == 0x1f {
		return 0
	}
	for width := uint32(0x20); width >= 0x2; width >>= 1 {
		if imms&width != 0 {
			continue
		}
		mask := width - 1
		if imms&mask == mask {
			return 0
		}
		run := (uint64(1) << ((imms & mask) + 1)) - 1
		return RepeatBitsAcrossReg(regSize, RotateRight(run, uint(immr&mask), uint(width)), uint(width))
	}
	panic("insts: unreachable logical immediate width")
}

// ImmLogical decodes the logical immediate of a LogicalImm word, or 0 if the
// encoding is reserved.
func (w Word) ImmLogical() uint64 {
	regSize := WRegSizeInBits
	if w.SFField() == 1 {
		regSize = XRegSizeInBits
	}
	return DecodeLogicalImmediate(w.NField(), w.ImmSField(), w.ImmRField(), regSize)
}

// EncodeLogicalImmediate finds the N, immS and immR fields encoding value
// for a regSize-bit operation. ok is false if value is not a logical
// immediate.
func EncodeLogicalImmediate(value uint64, regSize int) (n, imms, immr uint32, ok bool) {
	switch regSize {
	case XRegSizeInBits:
	case WRegSizeInBits:
		if value>>32 != 0 {
			return 0, 0, 0, false
		}
		value |= value << 32
	default:
		return 0, 0, 0, false
	}
	if value == 0 || value == ^uint64(0) {
		return 0, 0, 0, false
	}

	// Smallest element size the value repeats with.
	size := uint(64)
	for size > 2 {
		half := size / 2
		if bits.RotateLeft64(value, -int(half)) != value {
			break
		}
		size = half
	}
	if regSize == WRegSizeInBits && size == 64 {
		return 0, 0, 0, false
	}

	elemMask := uint64(1)<<size - 1
	if size == 64 {
		elemMask = ^uint64(0)
	}
	elem := value & elemMask
	ones := uint(bits.OnesCount64(elem))
	run := uint64(1)<<ones - 1

	for r := uint(0); r < size; r++ {
		if RotateRight(run, r, size) != elem {
			continue
		}
		if size == 64 {
			n = 1
		}
		imms = uint32(ones-1) | uint32(0x3f&^(size<<1-1))
		return n, imms, uint32(r), true
	}
	return 0, 0, 0, false
}
