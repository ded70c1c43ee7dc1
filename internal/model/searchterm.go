package model

import "time"

// TermRole describes what kind of organization a search term targets.
type TermRole string

const (
	TermRolePatient TermRole = "patient"
	TermRoleFamily  TermRole = "family"
	TermRoleSupport TermRole = "support"
	TermRoleGeneral TermRole = "general"
)

// ValidTermRole reports whether s is a known term role.
func ValidTermRole(s string) bool {
	switch TermRole(s) {
	case TermRolePatient, TermRoleFamily, TermRoleSupport, TermRoleGeneral:
		return true
	}
	return false
}

// SearchTerm is a user-editable unit of query vocabulary. IDs are unique
// within a SearchConfig.
type SearchTerm struct {
	ID        string    `json:"id"`
	Term      string    `json:"term"`
	Language  string    `json:"language"` // BCP 47 tag, usually "ja" or "en"
	Role      TermRole  `json:"type"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchConfig holds the per-disease discovery configuration, persisted as
// one JSON document per disease.
type SearchConfig struct {
	DiseaseID                string       `json:"disease_id"`
	Terms                    []SearchTerm `json:"search_terms"`
	MaxTokenLimit            int          `json:"max_token_limit"`
	UseApproximateMatching   bool         `json:"use_approximate_matching"`
	TwoStepValidation        bool         `json:"two_step_validation"`
	RequireHumanVerification bool         `json:"require_human_verification"`
	LastUpdated              time.Time    `json:"last_updated"`
}

// EnabledTerms returns the subset of terms currently enabled.
func (c SearchConfig) EnabledTerms() []SearchTerm {
	var out []SearchTerm
	for _, t := range c.Terms {
		if t.Enabled {
			out = append(out, t)
		}
	}
	return out
}
