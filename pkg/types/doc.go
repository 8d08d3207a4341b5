// Package types provides a structural type system and an Oracle over it.
//
// It defines primitive types (string, number, boolean, date, none), lists,
// unions, typed records ("typedDict") and nominal objects, plus the special
// "any" and "void" types. Types have a canonical string form that ParseType
// reads back:
//
//	t, err := types.ParseType("{name: string, tags: [string], score: number?}")
//
// The Oracle answers assignability and decomposition questions for the
// stack resolver and the update propagator:
//
//	var o types.Oracle
//	o.IsAssignable(types.String(), types.Maybe(types.String())) // true
//
// Values can be checked against a type, and maps of values against a Schema:
//
//	err := types.Validate(types.Schema{"propLimit": types.Number()}, cfg)
//
// This package depends only on pkg/domain and the standard library.
package types
