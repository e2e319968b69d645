package dwarfhelper

// Class is the attribute class of a decoded value.
type Class uint8

const (
	ClassInvalid Class = iota
	ClassAddress
	ClassBlock
	ClassConstant
	ClassString
	ClassFlag
	ClassReference
	ClassExprLoc
	ClassSecOffset
)

// Value is a decoded attribute value. The set of implementations is closed.
type Value interface {
	Class() Class
}

type (
	Address uint64
	Block   []byte
	// Constant holds data1..data8, sdata, udata and implicit_const values.
	// Unsigned forms are zero-extended.
	Constant int64
	String   string
	Flag     bool
	// Reference is a section-absolute .debug_info offset.
	Reference uint64
	ExprLoc   []byte
	SecOffset uint64
)

func (Address) Class() Class { return ClassAddress }
func (Block) Class() Class { return ClassBlock }
func (Constant) Class() Class { return ClassConstant }
func (String) Class() Class { return ClassString }
func (Flag) Class() Class { return ClassFlag }
func (Reference) Class() Class { return ClassReference }
func (ExprLoc) Class() Class { return ClassExprLoc }
func (SecOffset) Class() Class { return ClassSecOffset }

// IsExpression reports whether v holds a location expression.
func IsExpression(v Value) bool {
	switch v.(type) {
	case Block, ExprLoc:
		return true
	}
	return false
}

func asUint(v Value) (uint64, bool) {
	switch x := v.(type) {
	case Address:
		return uint64(x), true
	case Constant:
		return uint64(x), true
	case SecOffset:
		return uint64(x), true
	case Reference:
		return uint64(x), true
	}
	return 0, false
}

func asFlag(v Value) bool {
	switch x := v.(type) {
	case Flag:
		return bool(x)
	case Constant:
		return x != 0
	}
	return false
}
