package schema

import "golang.org/x/text/cases"

// Fold returns the case-folded form of an identifier, used wherever
// schema and table names are compared.
func Fold(name string) string {
	return cases.Fold().String(name)
}

// SameName reports whether two identifiers are equal ignoring case
func SameName(a, b string) bool {
	return Fold(a) == Fold(b)
}
