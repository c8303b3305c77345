// Package reconcile compares the three places a token lives: its metadata
// record, its rebuilt image in the output directory and its published copy
// in the bucket.
//
// Indices for each source are built concurrently and cached with a TTL
// behind a singleflight group, so repeated targeted lookups do not rescan
// large collections.
//
// # Architecture
//
// 1. Sources: MetadataSource, DirSource and BucketSource load one index each,
// keyed by token id.
//
// 2. Engine: builds the union of keys and reports presence, stale images
// (metadata newer than the image) and size differences between the local
// and published copies.
//
// 3. Plan: turns results into actions (rebuild, publish, delete) that a
// Mutator executes once confirmed.
//
// # Usage Example
//
//	spec := &reconcile.Spec{
//	    Metadata: &reconcile.MetadataSource{Dir: "metadata"},
//	    Output:   &reconcile.DirSource{Dir: "output", Extension: ".png"},
//	    CacheTTL: 5 * time.Minute,
//	}
//
//	plan, err := reconcile.ReconcileWithPlan(ctx, spec, reconcile.Options{DoRebuild: true})
//	executed, err := reconcile.ApplyPlan(ctx, spec, mutator, plan, opts)
package reconcile
