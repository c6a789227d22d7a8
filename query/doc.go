// Package query holds the unexecuted shape of a query and compiles it into
// dialect statements.
//
// A Spec accumulates selects, predicates, orderings and paging. The Compiler
// turns a Spec into a dialect.Statement using squirrel for statement assembly
// and placeholder numbering:
//
//	s := &query.Spec{}
//	s.Where(query.EQ("status", "active"), query.In("role", "admin", "owner").Or())
//	s.OrderBy("created_at", query.Desc)
//	s.SetLimit(10)
//
//	stmt, err := query.NewCompiler(dialect.Postgres).Select("users", s)
//	// SELECT * FROM "users" WHERE "status" = $1 OR "role" IN ($2,$3)
//	//   ORDER BY "created_at" DESC LIMIT 10
//
// Predicates render strictly in append order with their AND/OR connectors;
// use Group to parenthesize.
package query
