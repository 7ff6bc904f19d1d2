package wasmbind

import (
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
)

// Param is a named, WIT-typed function parameter.
type Param struct {
	Name string
	Type wit.Type
}

// Signature describes one exported host function in WIT terms. Core wasm
// signatures are derived from it, never written by hand.
type Signature struct {
	Name   string
	Params []Param
	Result wit.Type
}

// signatures returns the host interface in export order.
func signatures() []Signature {
	return []Signature{
		{
			Name: "add-dependency",
			Params: []Param{
				{Name: "dependent", Type: wit.U32{}},
				{Name: "dependency", Type: wit.U32{}},
			},
			Result: wit.S32{},
		},
		{
			Name:   "dec-ref",
			Params: []Param{{Name: "h", Type: wit.U32{}}},
			Result: wit.S32{},
		},
		{
			Name:   "ref-count",
			Params: []Param{{Name: "h", Type: wit.U32{}}},
			Result: wit.S64{},
		},
		{
			Name:   "valid",
			Params: []Param{{Name: "h", Type: wit.U32{}}},
			Result: wit.S32{},
		},
	}
}

// CoreParams flattens the WIT parameter list to core wasm value types.
func (s Signature) CoreParams() []api.ValueType {
	var flat []api.ValueType
	for _, p := range s.Params {
		flat = append(flat, flattenType(p.Type)...)
	}
	return flat
}

// CoreResults flattens the WIT result to core wasm value types.
func (s Signature) CoreResults() []api.ValueType {
	return flattenType(s.Result)
}

// WIT renders the signature in WIT function syntax.
func (s Signature) WIT() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteString(": func(")
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		b.WriteString(": ")
		b.WriteString(witTypeStr(p.Type))
	}
	b.WriteByte(')')
	if s.Result != nil {
		b.WriteString(" -> ")
		b.WriteString(witTypeStr(s.Result))
	}
	return b.String()
}

// flattenType maps a WIT type to its core wasm representation. This
// interface carries only numeric primitives: everything a guest passes
// is a handle id, a status, or a count.
func flattenType(t wit.Type) []api.ValueType {
	if t == nil {
		return nil
	}

	switch t.(type) {
	case wit.Bool, wit.U8, wit.U16, wit.U32, wit.S8, wit.S16, wit.S32, wit.Char:
		return []api.ValueType{api.ValueTypeI32}
	case wit.U64, wit.S64:
		return []api.ValueType{api.ValueTypeI64}
	case wit.F32:
		return []api.ValueType{api.ValueTypeF32}
	case wit.F64:
		return []api.ValueType{api.ValueTypeF64}
	default:
		return []api.ValueType{api.ValueTypeI32}
	}
}

func witTypeStr(t wit.Type) string {
	switch t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	default:
		return fmt.Sprintf("%T", t)
	}
}
