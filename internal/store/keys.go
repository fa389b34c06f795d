package store

import "strings"

const (
	// indexRoot prefixes every secondary index key so index entries never
	// share a prefix with primary records.
	indexRoot = "idx:"

	// sep separates index values from each other and from the record id.
	// NUL cannot appear in owner ids, categories or NanoIDs.
	sep = "\x00"
)

// recordKey is the primary key of an entity: prefix + id.
func recordKey(prefix, id string) []byte {
	return []byte(prefix + id)
}

// indexPrefix is the key prefix shared by every entry of one index value,
// e.g. "idx:rec:owner_category:u1\x00movie\x00".
func indexPrefix(prefix, name, value string) []byte {
	return []byte(indexRoot + prefix + name + ":" + value + sep)
}

// indexKey is a single index entry pointing at id.
func indexKey(prefix, name, value, id string) []byte {
	return append(indexPrefix(prefix, name, value), id...)
}

// indexValue joins the parts of a compound index value.
func indexValue(parts ...string) string {
	return strings.Join(parts, sep)
}
