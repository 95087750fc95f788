package helpdb

// Merge merges src into dst in place.
//
// When both dst and src hold a table under the same key the tables are merged
// recursively. In every other case the source value replaces the destination
// value wholesale: the key was absent, the source holds text, or the
// destination holds text where the source holds a table. Keys absent from src
// are never touched, so merging the same source twice has the same effect as
// merging it once.
//
// Values are deep-copied into dst; later changes to src do not leak into dst.
func Merge(dst, src Table) {
	for k, sv := range src {
		dv, exists := dst[k]
		if exists && sv.IsTable() && dv.IsTable() {
			Merge(dv.table, sv.table)
			continue
		}
		dst[k] = sv.Clone()
	}
}
