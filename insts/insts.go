// Package insts provides the ARM64 instruction-word codec.
//
// A 32-bit instruction word is classified into an opcode family by mask/fixed
// pattern matching, its operand fields are extracted with the ISA bit
// positions, register index 31 is resolved to SP or ZR depending on the
// instruction, and logical immediates are reconstructed from their N/immS/immR
// fields. It supports:
//   - Data Processing (Immediate): ADD, SUB, AND, ORR, EOR, MOVN, MOVZ, MOVK, ADR, ADRP
//   - Data Processing (Register): ADD, SUB (shifted/extended), AND, BIC, ORR, ORN, EOR, EON
//   - Branches and system: B, BL, B.cond, CBZ, CBNZ, TBZ, TBNZ, BR, BLR, RET, SVC, BRK, HLT, HINT
//   - Load/store register: LDR, LDRS*, STR
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x9100A820) // ADD X0, X1, #42
//	fmt.Println(inst)                   // add x0, x1, #0x2a
//
// All decoding is a pure function of the word and safe for concurrent use.
package insts
