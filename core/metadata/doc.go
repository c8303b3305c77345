// Package metadata discovers and parses token metadata records.
//
// A record is one JSON file per token. Trait lists are read from
// "attributes" or "traits" (objects with trait_type/value, or
// [category, value] pairs), or from the record's own keys in declaration
// order. Declaration order is layer order.
//
// Traits with an empty category, an empty value or a skip value ("none")
// are dropped and counted in Token.Ignored.
package metadata
