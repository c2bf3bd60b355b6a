package repo

import "strings"

// Kind names a repository type.
type Kind string

// Known repository kinds.
const (
	KindSuiteResult Kind = "suite-result"
	KindSuiteTime   Kind = "suite-time"
	KindSubsetSize  Kind = "subset-size"
)

// LatestVersion is the version string of the live, non-frozen repository of
// a namespace.
const LatestVersion = "LATEST"

// Delimiter separates the escaped components of an identifier.
const Delimiter = "_"

// Identifier returns the cache key and store key for a repository:
// escape(namespace) + "_" + escape(version) + "_" + escape(kind), where
// escape doubles every "_". Component boundaries stay unambiguous as long as
// no component begins or ends with "_": ("a_b", "c") and ("a", "b_c") differ,
// while ("a_", "b") and ("a", "_b") both yield "a___b". The scheme is kept as
// is because it names files in existing data directories.
func Identifier(namespace, version string, kind Kind) string {
	return escape(namespace) + Delimiter + escape(version) + Delimiter + escape(string(kind))
}

func escape(s string) string {
	return strings.ReplaceAll(s, Delimiter, Delimiter+Delimiter)
}
