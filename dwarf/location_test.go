package dwarfhelper

import (
	"testing"

	"github.com/go-delve/delve/pkg/dwarf/dwarfbuilder"
	"github.com/go-delve/delve/pkg/dwarf/op"
	"github.com/stretchr/testify/assert"
)

func TestDecodeLocation(t *testing.T) {
	fb := InReg(5)
	rel := RegRel(4, 16)
	tests := []struct {
		name      string
		value     Value
		frameBase *Location
		want      Location
	}{
		{"register", ExprLoc(dwarfbuilder.LocationBlock(op.DW_OP_reg5)), nil, InReg(5)},
		{"register x", ExprLoc(dwarfbuilder.LocationBlock(op.DW_OP_regx, uint(17))), nil, InReg(17)},
		{"base register", ExprLoc(dwarfbuilder.LocationBlock(op.DW_OP_breg5, 8)), &fb, RegRel(5, 8)},
		{"base register x", Block(dwarfbuilder.LocationBlock(op.DW_OP_bregx, uint(6), -12)), nil, RegRel(6, -12)},
		{"frame base register", ExprLoc(dwarfbuilder.LocationBlock(op.DW_OP_fbreg, -20)), &fb, RegRel(5, -20)},
		{"frame base relative", ExprLoc(dwarfbuilder.LocationBlock(op.DW_OP_fbreg, 8)), &rel, RegRel(4, 24)},
		{"frame base missing", ExprLoc(dwarfbuilder.LocationBlock(op.DW_OP_fbreg, 8)), nil, Location{}},
		{"address", ExprLoc([]byte{byte(op.DW_OP_addr), 0x00, 0x20, 0x40, 0, 0, 0, 0, 0}), nil, Abs(0x402000)},
		{"literal", ExprLoc(dwarfbuilder.LocationBlock(op.DW_OP_lit7)), nil, Abs(7)},
		{"arithmetic", ExprLoc(dwarfbuilder.LocationBlock(op.DW_OP_constu, uint(10), op.DW_OP_lit3, op.DW_OP_minus)), nil, Abs(7)},
		{"register plus", ExprLoc(dwarfbuilder.LocationBlock(op.DW_OP_reg3, op.DW_OP_plus_uconst, uint(8))), nil, RegRel(3, 8)},
		{"stack value", ExprLoc(dwarfbuilder.LocationBlock(op.DW_OP_lit1, op.DW_OP_stack_value)), nil, Abs(1)},
		{"empty", ExprLoc(nil), nil, Location{}},
		{"deref", ExprLoc(dwarfbuilder.LocationBlock(op.DW_OP_breg5, 0, op.DW_OP_deref)), nil, Location{}},
		{"two values", ExprLoc(dwarfbuilder.LocationBlock(op.DW_OP_lit1, op.DW_OP_lit2)), nil, Location{}},
		{"underflow", ExprLoc(dwarfbuilder.LocationBlock(op.DW_OP_plus)), nil, Location{}},
		{"truncated", ExprLoc([]byte{byte(op.DW_OP_const4u), 1}), nil, Location{}},
		{"truncated leb128", ExprLoc([]byte{byte(op.DW_OP_constu), 0x80}), nil, Location{}},
		{"truncated sleb128", ExprLoc([]byte{byte(op.DW_OP_breg5), 0xff}), nil, Location{}},
		{"location list", SecOffset(0x40), nil, Location{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeLocation(tt.value, tt.frameBase, 8)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeMemberLocation(t *testing.T) {
	assert.Equal(t, Abs(12), DecodeMemberLocation(Constant(12)))
	assert.Equal(t, Abs(4), DecodeMemberLocation(Block(dwarfbuilder.LocationBlock(op.DW_OP_plus_uconst, uint(4)))))
	assert.Equal(t, Abs(0), DecodeMemberLocation(ExprLoc(dwarfbuilder.LocationBlock(op.DW_OP_nop))))
	assert.True(t, DecodeMemberLocation(nil).IsInvalid())
	assert.True(t, DecodeMemberLocation(ExprLoc(dwarfbuilder.LocationBlock(op.DW_OP_deref))).IsInvalid())
}

func TestLocationString(t *testing.T) {
	assert.Equal(t, "reg5", InReg(5).String())
	assert.Equal(t, "reg5-8", RegRel(5, -8).String())
	assert.Equal(t, "0x10", Abs(16).String())
	assert.Equal(t, "invalid", Location{}.String())
}
