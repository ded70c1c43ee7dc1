package model

import "time"

// OrganizationStats holds aggregate counts over a disease's collection,
// recomputed after every merge.
type OrganizationStats struct {
	Total       int                      `json:"total_count"`
	ByType      map[OrganizationType]int `json:"by_type"`
	BySource    map[string]int           `json:"by_source"`
	Available   int                      `json:"available_count"`
	Unavailable int                      `json:"unavailable_count"`
	LastUpdated time.Time                `json:"last_updated"`
}

// ComputeOrganizationStats derives aggregate counts from a collection.
func ComputeOrganizationStats(c *OrganizationCollection) OrganizationStats {
	stats := OrganizationStats{
		ByType:      make(map[OrganizationType]int),
		BySource:    make(map[string]int),
		LastUpdated: time.Now(),
	}
	for _, org := range c.Organizations {
		stats.Total++
		stats.ByType[org.Type]++
		stats.BySource[org.Source]++
		if org.Available {
			stats.Available++
		} else {
			stats.Unavailable++
		}
	}
	return stats
}

// SearchStats is the per-disease counter document, denormalized from the
// collection and updated after every search pass.
type SearchStats struct {
	DiseaseID         string            `json:"disease_id"`
	DiseaseName       string            `json:"disease_name"`
	SearchCount       int               `json:"search_count"`
	LastSearched      time.Time         `json:"last_searched,omitzero"`
	MatchesFound      int               `json:"approximate_matches_found"`
	VerifiedCount     int               `json:"verified_organizations"`
	ApprovedCount     int               `json:"human_approved_organizations"`
	RejectedCount     int               `json:"rejected_organizations"`
	SearchTermsUsed   []string          `json:"search_terms_used,omitempty"`
	TokenUsage        []TokenUsage      `json:"token_usage,omitempty"`
	OrganizationStats OrganizationStats `json:"organization_stats"`
}

// CountByStatus tallies organizations by validation status.
func CountByStatus(orgs []ValidatedOrganization) map[ValidationStatus]int {
	counts := make(map[ValidationStatus]int)
	for _, org := range orgs {
		counts[org.Status]++
	}
	return counts
}
