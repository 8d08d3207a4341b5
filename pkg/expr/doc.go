// Package expr provides a small typed expression language used as the input
// of configuration nodes.
//
// Expressions are constants, variables and operation calls. Their serialized
// form (String) is also their source syntax, so Parse(e.String()) yields an
// equivalent expression:
//
//	42            "text"          none
//	input         input.name      input["key"]
//	input.count() input[0]        a.summary.loss
//
// Types are assigned by the Refiner, which looks variables up in a
// domain.Frame and infers operation result types through a domain.Oracle.
// Codec converts expressions to and from the plain-data form used by
// persistence.
package expr
