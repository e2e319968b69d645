package codeview

import "github.com/go-delve/delve/pkg/dwarf/regnum"

type Register uint16

const RegNone Register = 0

// x86 registers.
const (
	RegEAX    Register = 17
	RegECX    Register = 18
	RegEDX    Register = 19
	RegEBX    Register = 20
	RegESP    Register = 21
	RegEBP    Register = 22
	RegESI    Register = 23
	RegEDI    Register = 24
	RegES     Register = 25
	RegCS     Register = 26
	RegSS     Register = 27
	RegDS     Register = 28
	RegFS     Register = 29
	RegGS     Register = 30
	RegEIP    Register = 33
	RegEFLAGS Register = 34
	RegST0    Register = 128
	RegXMM0   Register = 154
)

// AMD64 registers.
const (
	RegRAX Register = 328
	RegRBX Register = 329
	RegRCX Register = 330
	RegRDX Register = 331
	RegRSI Register = 332
	RegRDI Register = 333
	RegRBP Register = 334
	RegRSP Register = 335
	RegR8  Register = 336
	RegRIP Register = 33
)

var x86Registers = map[int]Register{
	0:  RegEAX,
	1:  RegECX,
	2:  RegEDX,
	3:  RegEBX,
	4:  RegESP,
	5:  RegEBP,
	6:  RegESI,
	7:  RegEDI,
	8:  RegEIP,
	9:  RegEFLAGS,
	10: RegCS,
	11: RegSS,
	12: RegDS,
	13: RegES,
	14: RegFS,
	15: RegGS,
}

var amd64Registers = map[uint64]Register{
	regnum.AMD64_Rax: RegRAX,
	regnum.AMD64_Rbx: RegRBX,
	regnum.AMD64_Rcx: RegRCX,
	regnum.AMD64_Rdx: RegRDX,
	regnum.AMD64_Rsi: RegRSI,
	regnum.AMD64_Rdi: RegRDI,
	regnum.AMD64_Rbp: RegRBP,
	regnum.AMD64_Rsp: RegRSP,
	regnum.AMD64_Rip: RegRIP,
}

// X86Register translates a DWARF i386 register number.
func X86Register(dwarfReg int) Register {
	switch {
	case dwarfReg >= 16 && dwarfReg <= 23:
		return RegST0 + Register(dwarfReg-16)
	case dwarfReg >= 32 && dwarfReg <= 39:
		return RegXMM0 + Register(dwarfReg-32)
	}
	return x86Registers[dwarfReg]
}

// AMD64Register translates a DWARF x86-64 register number.
func AMD64Register(dwarfReg int) Register {
	if dwarfReg < 0 {
		return RegNone
	}
	r := uint64(dwarfReg)
	if r >= regnum.AMD64_R8 && r <= regnum.AMD64_R15 {
		return RegR8 + Register(r-regnum.AMD64_R8)
	}
	return amd64Registers[r]
}
