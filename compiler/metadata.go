package compiler

import "fmt"

// EstaStruct describes one struct type collected from the source
// program: its dense tag, its total cell size (2 header cells plus one
// per field), and the stack/heap offset of each named field relative
// to the struct's base address. FieldOrder preserves the field list's
// declaration order (Fields, a map, does not), which the data
// segment's per-struct field block (link.go) must reproduce.
type EstaStruct struct {
	Id         string
	Tag        int
	Size       int
	Fields     map[string]int
	FieldOrder []string
}

// MetaData is the struct table produced by the middle end and consumed
// by the code generator when resolving constructors and field access.
type MetaData struct {
	Structs []EstaStruct
}

// Get returns the struct with the given id, or a SemanticError if no
// such struct was declared.
func (md MetaData) Get(id string) (EstaStruct, error) {
	for _, s := range md.Structs {
		if s.Id == id {
			return s, nil
		}
	}
	return EstaStruct{}, SemanticError{Message: fmt.Sprintf("unknown struct '%s'", id)}
}
