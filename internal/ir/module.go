package ir

import "github.com/tilt-lang/tilt/internal/types"

// Import is a lowered host function declaration.
type Import struct {
	Name       string // dotted host name, e.g. "host.print_i32"
	ParamTypes []types.Type
	Result     types.Type
}

// Module is a complete lowered program: its host imports and its
// function definitions, in source order.
type Module struct {
	Imports []*Import
	Funcs   []*Func
}

// FindFunc returns the function named name, or nil.
func (m *Module) FindFunc(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FindImport returns the import named name, or nil.
func (m *Module) FindImport(name string) *Import {
	for _, imp := range m.Imports {
		if imp.Name == name {
			return imp
		}
	}
	return nil
}
