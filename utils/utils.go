package utils

import (
	"debug/dwarf"
	"strings"

	mapset "github.com/deckarep/golang-set"
)

var typeTagList = []interface{}{
	dwarf.TagBaseType,
	dwarf.TagTypedef,
	dwarf.TagPointerType,
	dwarf.TagSubroutineType,
	dwarf.TagArrayType,
	dwarf.TagConstType,
	dwarf.TagStructType,
	dwarf.TagReferenceType,
	dwarf.TagClassType,
	dwarf.TagEnumerationType,
	dwarf.TagStringType,
	dwarf.TagUnionType,
	dwarf.TagPtrToMemberType,
	dwarf.TagSetType,
	dwarf.TagSubrangeType,
	dwarf.TagFileType,
	dwarf.TagPackedType,
	dwarf.TagThrownType,
	dwarf.TagVolatileType,
	dwarf.TagRestrictType,
	dwarf.TagInterfaceType,
	dwarf.TagUnspecifiedType,
	dwarf.TagMutableType,
	dwarf.TagSharedType,
	dwarf.TagRvalueReferenceType,
}

var (
	typeTags       = mapset.NewSetFromSlice(typeTagList)
	aggregateTags  = mapset.NewSet(dwarf.TagStructType, dwarf.TagClassType, dwarf.TagUnionType)
	qualifierAttrs = map[dwarf.Tag]uint16{
		dwarf.TagConstType:    1,
		dwarf.TagVolatileType: 2,
		dwarf.TagRestrictType: 0,
		dwarf.TagPackedType:   0,
		dwarf.TagSharedType:   0,
	}
)

// IsTypeTag 判断tag是否会生成一个类型记录
func IsTypeTag(tag dwarf.Tag) bool {
	return typeTags.Contains(tag)
}

func IsAggregateTag(tag dwarf.Tag) bool {
	return aggregateTags.Contains(tag)
}

// QualifierAttr returns the modifier attribute for a qualifier tag.
func QualifierAttr(tag dwarf.Tag) (uint16, bool) {
	attr, ok := qualifierAttrs[tag]
	return attr, ok
}

// IsRelativePath reports whether path is neither rooted nor has a drive letter.
func IsRelativePath(path string) bool {
	if path == "" {
		return true
	}
	if path[0] == '/' || path[0] == '\\' {
		return false
	}
	if len(path) >= 2 && path[1] == ':' {
		return false
	}
	return true
}

// WindowsPath joins a relative name to its directory and converts the
// separators to backslashes.
func WindowsPath(dir, name string) string {
	path := name
	if dir != "" && IsRelativePath(name) {
		if strings.HasSuffix(dir, "/") || strings.HasSuffix(dir, "\\") {
			path = dir + name
		} else {
			path = dir + "\\" + name
		}
	}
	return strings.ReplaceAll(path, "/", "\\")
}

// ReplaceDots replaces every '.' in name with r. A zero r keeps the name.
func ReplaceDots(name string, r byte) string {
	if r == 0 || r == '.' {
		return name
	}
	return strings.ReplaceAll(name, ".", string(r))
}
