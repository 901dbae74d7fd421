/*
Package expr implements the small expression language shared by action
conditions, template arithmetic and form visibility rules.

The grammar only knows literals, path lookups into a scope map, comparison,
arithmetic and boolean operators. There is no call syntax, so expressions cannot
reach code; identifiers associated with code execution in script engines
(constructor, __proto__, eval, window, ...) are additionally rejected with a
SecurityError at compile time.

	e, err := expr.Compile("formData.age >= 18 && user.role === 'admin'")
	ok := expr.Truthy(e.Eval(scope))

Paths may be written bare (pageState.count) or wrapped in template braces
({{pageState.count}}); both forms are equivalent.
*/
package expr
