// Package layers indexes layer images and resolves trait values to files.
//
// # Layout conventions
//
// A layer root is partitioned into categories. Without a manifest every
// first-level directory is a category (files at any depth below it belong to
// it), and files kept at the root use a prefix: "Hat__Gold Hat.png" belongs to
// category "Hat". A TOML manifest can declare the categories explicitly:
//
//	[[category]]
//	name = "Background"
//	dir = "bg"
//	aliases = ["Backdrop"]
//
// Declared categories are validated when the index is built; a missing
// directory fails with a *CategoryDirError before any token is rendered.
//
// # Resolution
//
// Index.Resolve compares naming.Normalize keys exactly and only inside the
// trait's own category. Several files with the same key are not an error:
// the shortest filename wins, then the lexicographically first, and the
// others are returned as Alternatives so the caller can report the ambiguity.
//
// # Caching
//
// Cache keeps built indices for a TTL and uses singleflight so concurrent
// runs against the same root share one directory walk.
package layers
