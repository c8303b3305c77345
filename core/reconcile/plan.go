package reconcile

import (
	"context"
	"fmt"
	"strings"
)

// Mutator carries out planned actions.
type Mutator interface {
	// Rebuild renders the token of a metadata file.
	Rebuild(ctx context.Context, action Action) error

	// Publish uploads a local image.
	Publish(ctx context.Context, action Action) error

	// DeleteOutput removes a local image.
	DeleteOutput(ctx context.Context, action Action) error

	// DeleteObject removes a published image.
	DeleteObject(ctx context.Context, action Action) error
}

// ReconcileWithPlan performs reconciliation and returns a plan with results and actions.
// It does NOT execute actions; use ApplyPlan for that.
func ReconcileWithPlan(ctx context.Context, spec *Spec, opts Options) (*Plan, error) {
	cache, err := GetOrBuildCache(ctx, spec)
	if err != nil {
		return nil, err
	}

	results := resultsFromCache(cache)
	summary, actions := buildPlanFromResults(results, spec.Bucket != nil, opts)

	return &Plan{
		Results: results,
		Actions: actions,
		Summary: summary,
	}, nil
}

// ApplyPlan executes the actions in a plan: deletions first, then rebuilds,
// then uploads. It stops at the first failure and returns the number of
// actions executed. Requires opts.Confirmed=true and opts.DryRun=false to
// actually execute.
func ApplyPlan(ctx context.Context, spec *Spec, m Mutator, plan *Plan, opts Options) (executed int, err error) {
	if !opts.Confirmed || opts.DryRun {
		return 0, nil
	}
	defer InvalidateCache(spec)

	byType := make(map[ActionType][]Action)
	for _, action := range plan.Actions {
		byType[action.Type] = append(byType[action.Type], action)
	}

	steps := []struct {
		typ ActionType
		run func(context.Context, Action) error
	}{
		{ActionDeleteOutput, m.DeleteOutput},
		{ActionDeleteObject, m.DeleteObject},
		{ActionRebuild, m.Rebuild},
		{ActionPublish, m.Publish},
	}

	for _, step := range steps {
		for _, action := range byType[step.typ] {
			if err := ctx.Err(); err != nil {
				return executed, err
			}
			if err := step.run(ctx, action); err != nil {
				return executed, fmt.Errorf("failed to %s %s: %w", action.Type, action.Key, err)
			}
			executed++
		}
	}

	return executed, nil
}

// ReconcileAndApply is a convenience wrapper that plans and optionally applies actions.
func ReconcileAndApply(ctx context.Context, spec *Spec, m Mutator, opts Options) (*Plan, int, error) {
	plan, err := ReconcileWithPlan(ctx, spec, opts)
	if err != nil {
		return nil, 0, err
	}

	executed, err := ApplyPlan(ctx, spec, m, plan, opts)
	return plan, executed, err
}

// buildPlanFromResults generates a summary and action plan from reconciliation results.
func buildPlanFromResults(results []Result, withBucket bool, opts Options) (PlanSummary, []Action) {
	var summary PlanSummary
	var actions []Action

	summary.TotalItems = len(results)

	for _, result := range results {
		orphan := !result.MetadataPresent && (result.OutputPresent || result.BucketPresent)

		if result.MetadataPresent && !result.OutputPresent {
			summary.MissingOutput++
		}
		if withBucket && result.OutputPresent && !result.BucketPresent {
			summary.MissingBucket++
		}
		if orphan {
			summary.Orphaned++
		}
		if result.Stale {
			summary.Stale++
		}
		if len(result.Mismatch) > 0 {
			summary.Mismatches++
		}

		if orphan {
			// Orphans are never rebuilt or published.
			if opts.DoPurge {
				reason := "no metadata record"
				if result.OutputPresent {
					actions = append(actions, Action{Type: ActionDeleteOutput, Key: result.ID, Path: result.Paths[SourceOutput], Reason: reason})
					summary.PurgeActions++
				}
				if result.BucketPresent {
					actions = append(actions, Action{Type: ActionDeleteObject, Key: result.ID, Path: result.Paths[SourceBucket], Reason: reason})
					summary.PurgeActions++
				}
			}
			continue
		}

		if opts.DoRebuild && result.MetadataPresent && (!result.OutputPresent || result.Stale) {
			actions = append(actions, Action{
				Type:   ActionRebuild,
				Key:    result.ID,
				Path:   result.Paths[SourceMetadata],
				Reason: getRebuildReason(result),
			})
			summary.RebuildActions++
			// A rebuilt image is uploaded by the driver's publisher.
			continue
		}

		if opts.DoPublish && withBucket && result.OutputPresent && (!result.BucketPresent || hasSizeMismatch(result)) {
			actions = append(actions, Action{
				Type:   ActionPublish,
				Key:    result.ID,
				Path:   result.Paths[SourceOutput],
				Reason: getPublishReason(result),
			})
			summary.PublishActions++
		}
	}

	return summary, actions
}

func hasSizeMismatch(result Result) bool {
	for _, m := range result.Mismatch {
		if strings.HasPrefix(m, "size:") {
			return true
		}
	}
	return false
}

func getRebuildReason(result Result) string {
	if !result.OutputPresent {
		return "missing in: [output]"
	}
	return "metadata newer than output"
}

func getPublishReason(result Result) string {
	if !result.BucketPresent {
		return "missing in: [bucket]"
	}
	return fmt.Sprintf("mismatch: %v", result.Mismatch)
}
