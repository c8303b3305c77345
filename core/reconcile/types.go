package reconcile

import "time"

// Entry is a token's presence in one source.
type Entry struct {
	// Key is the token identifier.
	Key string `json:"key"`

	// Path is the file path, or the object key for the bucket.
	Path string `json:"path"`

	// Size is the file or object size in bytes. Zero for metadata records.
	Size int64 `json:"size"`

	// ModTime is the last modification time.
	ModTime time.Time `json:"mod_time"`
}

// Result represents the reconciliation output for a single token.
// It contains presence flags for each source and any detected mismatches.
type Result struct {
	// ID is the token identifier.
	ID string `json:"id"`

	// MetadataPresent indicates whether a metadata record declares the token.
	MetadataPresent bool `json:"metadata_present"`

	// OutputPresent indicates whether a rebuilt image exists locally.
	OutputPresent bool `json:"output_present"`

	// BucketPresent indicates whether the image is published.
	BucketPresent bool `json:"bucket_present"`

	// Stale is set when the metadata record changed after the image was written.
	Stale bool `json:"stale"`

	// Mismatch describes differences between sources, e.g. "size: output=10 bucket=12".
	Mismatch []string `json:"mismatch"`

	// Paths maps each source name to where the token was found.
	Paths map[string]string `json:"paths,omitempty"`
}

// Spec defines the sources of one reconciliation.
type Spec struct {
	// Metadata lists the records that should have an image.
	Metadata Source

	// Output lists the rebuilt images.
	Output Source

	// Bucket lists the published images. Nil when publishing is disabled.
	Bucket Source

	// CacheTTL is the time-to-live for cached indices.
	// If zero, caching is disabled.
	CacheTTL time.Duration
}

// CacheKey returns a unique key for caching based on the sources.
func (s *Spec) CacheKey() string {
	key := s.Metadata.Name() + "|" + s.Output.Name()
	if s.Bucket != nil {
		key += "|" + s.Bucket.Name()
	}
	return key
}

// ActionType represents the type of repair action.
type ActionType string

const (
	// ActionRebuild renders a token whose image is missing or stale.
	ActionRebuild ActionType = "rebuild"
	// ActionPublish uploads a local image missing from the bucket.
	ActionPublish ActionType = "publish"
	// ActionDeleteOutput removes a local image without a metadata record.
	ActionDeleteOutput ActionType = "delete_output"
	// ActionDeleteObject removes a published image without a metadata record.
	ActionDeleteObject ActionType = "delete_object"
)

// Action represents a planned repair.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Key is the token identifier.
	Key string `json:"key"`

	// Path is the metadata file, local image or object key the action works on.
	Path string `json:"path"`

	// Reason explains why this action is needed.
	Reason string `json:"reason"`
}

// Plan contains reconciliation results and planned actions.
type Plan struct {
	// Results contains per-token reconciliation data.
	Results []Result `json:"results"`

	// Actions contains planned repairs.
	Actions []Action `json:"actions"`

	// Summary provides aggregate counts.
	Summary PlanSummary `json:"summary"`
}

// PlanSummary provides aggregate statistics for a plan.
type PlanSummary struct {
	// TotalItems is the total number of distinct tokens.
	TotalItems int `json:"total_items"`

	// MissingOutput counts records without a rebuilt image.
	MissingOutput int `json:"missing_output"`

	// MissingBucket counts rebuilt images that are not published.
	MissingBucket int `json:"missing_bucket"`

	// Orphaned counts images without a metadata record.
	Orphaned int `json:"orphaned"`

	// Stale counts images older than their metadata record.
	Stale int `json:"stale"`

	// Mismatches counts tokens with differing copies.
	Mismatches int `json:"mismatches"`

	// RebuildActions counts planned rebuilds.
	RebuildActions int `json:"rebuild_actions"`

	// PublishActions counts planned uploads.
	PublishActions int `json:"publish_actions"`

	// PurgeActions counts planned deletions.
	PurgeActions int `json:"purge_actions"`
}

// Options controls which repairs are planned and whether they run.
type Options struct {
	// DryRun prevents execution of any action if true.
	DryRun bool `json:"dry_run"`

	// DoRebuild plans renders for missing or stale images.
	DoRebuild bool `json:"rebuild"`

	// DoPublish plans uploads for unpublished or differing images.
	DoPublish bool `json:"publish"`

	// DoPurge plans deletion of images without a metadata record.
	DoPurge bool `json:"purge"`

	// Confirmed indicates the caller confirmed the actions.
	// If false, nothing runs regardless of DryRun.
	Confirmed bool `json:"confirmed"`
}
