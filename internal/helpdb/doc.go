// Package helpdb defines the help database model and the recursive merge used
// to combine databases.
//
// A database is a Table: a map from key to Value. A Value is a tagged variant
// holding either help text or a nested Table. Nested tables carry
// locale-scoped help, so a database such as
//
//	aboutHelp = "Shown when no locale is active."
//	fr        = { aboutHelp = "Affiché en français." }
//
// is a Table with one text entry and one table entry.
//
// Tables are plain maps and carry no locking; the registry package owns the
// synchronization of the live database.
package helpdb
