// Package naming canonicalizes trait and layer names for comparison.
//
// Collections that lost their generation instructions usually still have the
// layer images, but their filenames rarely match the trait values written in
// the metadata: case differs, extensions are present or not, and generators
// append rarity weights ("Gold Hat#20.png", "red_1.png").
//
// # Normalize
//
// Normalize folds all of these spellings onto one key:
//
//	naming.Normalize("Gold_Hat-07.png") // "goldhat"
//	naming.Normalize("gold hat")        // "goldhat"
//	naming.Normalize("Trait99")         // "trait99" (no separator, digits kept)
//
// Only a trailing separator ("#", "_", "-") followed by digits or a known
// rarity word is treated as a suffix. Normalize is idempotent.
//
// # Ordering
//
// NaturalLess orders names with embedded numbers numerically and is used for
// deterministic token discovery order.
package naming
