package insts

// RdMode tells whether Rd=31 is SP or ZR. It does not check that the
// instruction has an Rd field.
//
// SP is the destination of:
//   - add/sub (immediate) when not setting the flags
//   - add/sub (extended register) when not setting the flags
//   - logical (immediate) other than ANDS
//
// Everything else writes ZR.
func (w Word) RdMode() R31Type {
	if w.IsAddSubImmOp() || (w.IsAddSubShiftExtOp() && w.IsExtend()) {
		if w.HasS() {
			return R31IsZR
		}
		return R31IsSP
	}
	if w.IsLogicalImmOp() {
		if w.Bits(29, 2) == 0b11 {
			return R31IsZR
		}
		return R31IsSP
	}
	return R31IsZR
}

// RnMode tells whether Rn=31 is SP or ZR. It does not check that the
// instruction has an Rn field.
//
// SP is the base or source of all loads and stores, add/sub (immediate) and
// add/sub (extended register). Everything else reads ZR.
func (w Word) RnMode() R31Type {
	if w.IsLoadStoreOp() ||
		w.IsAddSubImmOp() ||
		(w.IsAddSubShiftExtOp() && w.IsExtend()) {
		return R31IsSP
	}
	return R31IsZR
}

// Rd returns the resolved destination register.
func (w Word) Rd() Register { return RegisterFromField(w.RdField(), w.RdMode()) }

// Rn returns the resolved first source register.
func (w Word) Rn() Register { return RegisterFromField(w.RnField(), w.RnMode()) }

// Rm returns the second source register. Rm is never SP.
func (w Word) Rm() Register { return RegisterFromField(w.RmField(), R31IsZR) }

// Ra returns the accumulator register. Ra is never SP.
func (w Word) Ra() Register { return RegisterFromField(w.RaField(), R31IsZR) }

// Rt returns the transfer register of a load or store. Rt is never SP.
func (w Word) Rt() Register { return RegisterFromField(w.RtField(), R31IsZR) }
