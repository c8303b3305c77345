package reconcile

import (
	"context"
	"fmt"
	"sort"
)

// Source names used in Result.Paths.
const (
	SourceMetadata = "metadata"
	SourceOutput   = "output"
	SourceBucket   = "bucket"
)

// ReconcileAll compares every source and returns one result per token,
// sorted by id.
func ReconcileAll(ctx context.Context, spec *Spec) ([]Result, error) {
	cache, err := BuildCache(ctx, spec)
	if err != nil {
		return nil, err
	}
	return resultsFromCache(cache), nil
}

// ReconcileOne returns the result for one token. Cached indices are reused
// while they are fresh.
func ReconcileOne(ctx context.Context, spec *Spec, id string) (*Result, error) {
	var (
		cache *Cache
		err   error
	)
	if spec.CacheTTL > 0 {
		cache, err = GetOrBuildCache(ctx, spec)
	} else {
		cache, err = BuildCache(ctx, spec)
	}
	if err != nil {
		return nil, err
	}
	result := buildResult(id, cache)
	return &result, nil
}

func resultsFromCache(cache *Cache) []Result {
	union := buildUnion(cache)

	results := make([]Result, 0, len(union))
	for key := range union {
		results = append(results, buildResult(key, cache))
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ID < results[j].ID
	})
	return results
}

// buildUnion creates a union of all keys from every source.
func buildUnion(cache *Cache) map[string]struct{} {
	union := make(map[string]struct{})
	for _, index := range []map[string]Entry{cache.Metadata, cache.Output, cache.Bucket} {
		for key := range index {
			union[key] = struct{}{}
		}
	}
	return union
}

// buildResult creates a Result for a single key.
func buildResult(key string, cache *Cache) Result {
	md, mdPresent := cache.Metadata[key]
	out, outPresent := cache.Output[key]
	obj, objPresent := cache.Bucket[key]

	result := Result{
		ID:              key,
		MetadataPresent: mdPresent,
		OutputPresent:   outPresent,
		BucketPresent:   objPresent,
		Mismatch:        []string{},
		Paths:           make(map[string]string),
	}
	if mdPresent {
		result.Paths[SourceMetadata] = md.Path
	}
	if outPresent {
		result.Paths[SourceOutput] = out.Path
	}
	if objPresent {
		result.Paths[SourceBucket] = obj.Path
	}

	if mdPresent && outPresent && md.ModTime.After(out.ModTime) {
		result.Stale = true
		result.Mismatch = append(result.Mismatch, "stale: metadata newer than output")
	}
	if outPresent && objPresent && out.Size != obj.Size {
		result.Mismatch = append(result.Mismatch, fmt.Sprintf("size: output=%d bucket=%d", out.Size, obj.Size))
	}

	return result
}
