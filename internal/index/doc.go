// Package index persists image fingerprints in SQLite and answers the
// equality lookups the matcher issues.
//
// An index lives for one run. Open takes an exclusive lock next to the
// database file so two runs never share it; an empty path gives a
// throwaway database under the temp dir that Close removes.
package index
