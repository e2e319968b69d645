package dwarfhelper

import (
	"fmt"

	"github.com/go-delve/delve/pkg/dwarf/op"
)

type LocationKind uint8

const (
	LocInvalid LocationKind = iota
	// LocInReg: the value lives in register Reg.
	LocInReg
	// LocAbs: the value lives at the absolute address Offset.
	LocAbs
	// LocRegRel: the value lives at Reg + Offset.
	LocRegRel
)

// Location is the result of evaluating a location expression. Reg and Offset
// are only meaningful for the kinds that use them.
type Location struct {
	Kind   LocationKind
	Reg    int
	Offset int64
}

func InReg(reg int) Location { return Location{Kind: LocInReg, Reg: reg} }
func Abs(off int64) Location { return Location{Kind: LocAbs, Offset: off} }
func RegRel(reg int, off int64) Location { return Location{Kind: LocRegRel, Reg: reg, Offset: off} }
func (l Location) IsInvalid() bool { return l.Kind == LocInvalid }
func (l Location) IsInReg() bool { return l.Kind == LocInReg }
func (l Location) IsAbs() bool { return l.Kind == LocAbs }
func (l Location) IsRegRel() bool { return l.Kind == LocRegRel }

func (l Location) String() string {
	switch l.Kind {
	case LocInReg:
		return fmt.Sprintf("reg%d", l.Reg)
	case LocAbs:
		return fmt.Sprintf("%#x", l.Offset)
	case LocRegRel:
		return fmt.Sprintf("reg%d%+d", l.Reg, l.Offset)
	}
	return "invalid"
}

// DecodeLocation evaluates a variable or frame base location. frameBase may
// be nil when no frame base is in scope.
func DecodeLocation(v Value, frameBase *Location, addrSize int) Location {
	switch x := v.(type) {
	case Block:
		return evaluate(x, nil, frameBase, addrSize)
	case ExprLoc:
		return evaluate(x, nil, frameBase, addrSize)
	}
	return Location{}
}

// DecodeMemberLocation evaluates a data member location. The expression
// starts with the base address of the aggregate, zero, on the stack.
func DecodeMemberLocation(v Value) Location {
	switch x := v.(type) {
	case Constant:
		return Abs(int64(x))
	case Block:
		return evaluate(x, []Location{Abs(0)}, nil, 8)
	case ExprLoc:
		return evaluate(x, []Location{Abs(0)}, nil, 8)
	}
	return Location{}
}

func evaluate(expr []byte, stack []Location, frameBase *Location, addrSize int) Location {
	if len(expr) == 0 {
		return Location{}
	}
	push := func(l Location) { stack = append(stack, l) }
	pop := func() (Location, bool) {
		if len(stack) == 0 {
			return Location{}, false
		}
		l := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return l, true
	}

	r := newReader(expr, 0)
	for r.left() > 0 {
		o := op.Opcode(r.u8())
		switch {
		case o >= op.DW_OP_lit0 && o <= op.DW_OP_lit31:
			push(Abs(int64(o - op.DW_OP_lit0)))
			continue
		case o >= op.DW_OP_reg0 && o <= op.DW_OP_reg31:
			push(InReg(int(o - op.DW_OP_reg0)))
			continue
		case o >= op.DW_OP_breg0 && o <= op.DW_OP_breg31:
			push(RegRel(int(o-op.DW_OP_breg0), r.sleb()))
			continue
		}

		switch o {
		case op.DW_OP_addr:
			push(Abs(int64(r.sized(addrSize))))
		case op.DW_OP_const1u:
			push(Abs(int64(r.u8())))
		case op.DW_OP_const1s:
			push(Abs(int64(int8(r.u8()))))
		case op.DW_OP_const2u:
			push(Abs(int64(r.u16())))
		case op.DW_OP_const2s:
			push(Abs(int64(int16(r.u16()))))
		case op.DW_OP_const4u:
			push(Abs(int64(r.u32())))
		case op.DW_OP_const4s:
			push(Abs(int64(int32(r.u32()))))
		case op.DW_OP_const8u, op.DW_OP_const8s:
			push(Abs(int64(r.u64())))
		case op.DW_OP_constu:
			push(Abs(int64(r.uleb())))
		case op.DW_OP_consts:
			push(Abs(r.sleb()))
		case op.DW_OP_regx:
			push(InReg(int(r.uleb())))
		case op.DW_OP_bregx:
			reg := int(r.uleb())
			push(RegRel(reg, r.sleb()))
		case op.DW_OP_fbreg:
			off := r.sleb()
			if frameBase == nil {
				return Location{}
			}
			switch frameBase.Kind {
			case LocInReg:
				push(RegRel(frameBase.Reg, off))
			case LocRegRel:
				push(RegRel(frameBase.Reg, frameBase.Offset+off))
			default:
				return Location{}
			}
		case op.DW_OP_plus_uconst:
			top, ok := pop()
			if !ok {
				return Location{}
			}
			l, ok := add(top, Abs(int64(r.uleb())))
			if !ok {
				return Location{}
			}
			push(l)
		case op.DW_OP_plus:
			b, okb := pop()
			a, oka := pop()
			if !oka || !okb {
				return Location{}
			}
			l, ok := add(a, b)
			if !ok {
				return Location{}
			}
			push(l)
		case op.DW_OP_minus:
			b, okb := pop()
			a, oka := pop()
			if !oka || !okb || !b.IsAbs() {
				return Location{}
			}
			l, ok := add(a, Abs(-b.Offset))
			if !ok {
				return Location{}
			}
			push(l)
		case op.DW_OP_neg:
			a, ok := pop()
			if !ok || !a.IsAbs() {
				return Location{}
			}
			push(Abs(-a.Offset))
		case op.DW_OP_dup:
			if len(stack) == 0 {
				return Location{}
			}
			push(stack[len(stack)-1])
		case op.DW_OP_drop:
			if _, ok := pop(); !ok {
				return Location{}
			}
		case op.DW_OP_swap:
			if len(stack) < 2 {
				return Location{}
			}
			n := len(stack)
			stack[n-1], stack[n-2] = stack[n-2], stack[n-1]
		case op.DW_OP_over:
			if len(stack) < 2 {
				return Location{}
			}
			push(stack[len(stack)-2])
		case op.DW_OP_nop, op.DW_OP_stack_value:
		default:
			return Location{}
		}
		if r.err != nil {
			return Location{}
		}
	}
	if r.err != nil || len(stack) != 1 {
		return Location{}
	}
	return stack[0]
}

func add(a, b Location) (Location, bool) {
	if a.IsAbs() {
		a, b = b, a
	}
	if !b.IsAbs() {
		return Location{}, false
	}
	switch a.Kind {
	case LocAbs:
		return Abs(a.Offset + b.Offset), true
	case LocInReg:
		return RegRel(a.Reg, b.Offset), true
	case LocRegRel:
		return RegRel(a.Reg, a.Offset+b.Offset), true
	}
	return Location{}, false
}
