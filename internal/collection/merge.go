// Package collection implements the merge and aggregation rules for
// per-disease organization collections.
package collection

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/nando-support/discovery-cli/internal/model"
)

// ErrNotFound reports that a collection has no organization with the
// requested URL.
var ErrNotFound = eris.New("collection: organization not found")

// MergeResult summarizes one merge pass.
type MergeResult struct {
	Added   int
	Updated int
}

// Merge folds newly discovered organizations into a collection. URLs are the
// natural key: a re-discovered organization updates descriptive fields in
// place, a new URL is appended. Human-assigned terminal statuses
// (human_approved, rejected) are never overwritten by an automated pass.
// Merging the same organization twice produces no duplicate and no count
// drift. Aggregate counts are not recomputed here; callers derive them via
// model.ComputeOrganizationStats after all merges for a pass.
func Merge(col *model.OrganizationCollection, orgs []model.ValidatedOrganization) MergeResult {
	var res MergeResult
	for _, incoming := range orgs {
		if incoming.URL == "" {
			continue
		}
		existing := col.FindOrganization(incoming.URL)
		if existing == nil {
			col.Organizations = append(col.Organizations, incoming)
			res.Added++
			continue
		}
		updateExisting(existing, incoming)
		res.Updated++
	}
	col.LastUpdated = time.Now()
	return res
}

// updateExisting overwrites non-authoritative fields and appends the token
// audit trail. Identity fields (URL, Source, AddedAt) and human verification
// metadata are preserved.
func updateExisting(existing *model.ValidatedOrganization, incoming model.ValidatedOrganization) {
	existing.Name = incoming.Name
	existing.Type = incoming.Type
	existing.ContactInfo = incoming.ContactInfo
	existing.Activities = incoming.Activities
	existing.DiseaseSpecificity = incoming.DiseaseSpecificity
	existing.Confidence = incoming.Confidence
	existing.Available = incoming.Available
	if !incoming.LastChecked.IsZero() {
		existing.LastChecked = incoming.LastChecked
	}
	existing.TokenUsage = append(existing.TokenUsage, incoming.TokenUsage...)

	if existing.Status.Terminal() {
		return
	}
	existing.Status = incoming.Status
	existing.ValidationScore = incoming.ValidationScore
	existing.ValidationNotes = incoming.ValidationNotes
}

// ApplyHumanValidation moves an organization to a terminal state. Approve
// selects human_approved, otherwise rejected. The organization is looked up
// by URL; ErrNotFound is returned when the collection has no such entry.
func ApplyHumanValidation(col *model.OrganizationCollection, url string, approve bool, notes string) (*model.ValidatedOrganization, error) {
	org := col.FindOrganization(url)
	if org == nil {
		return nil, ErrNotFound
	}

	if approve {
		org.Status = model.StatusHumanApproved
	} else {
		org.Status = model.StatusRejected
	}
	org.HumanVerified = true
	org.HumanVerifiedAt = time.Now()
	if notes != "" {
		org.HumanNotes = notes
	}
	col.LastUpdated = time.Now()
	return org, nil
}
