// Package planner turns a disease record and its editable search terms into
// search-engine queries.
package planner

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/nando-support/discovery-cli/internal/model"
)

// Plan produces the ordered query list for one disease. Each enabled term
// contributes a role-specific query; with no enabled terms the planner falls
// back to a minimal hard-coded set built from the disease's names. Queries
// are not deduplicated here — URL results are deduplicated after the search
// step instead.
func Plan(disease model.DiseaseRecord, terms []model.SearchTerm) []string {
	var queries []string
	for _, t := range terms {
		if !t.Enabled {
			continue
		}
		queries = append(queries, queryFor(t))
	}
	if len(queries) > 0 {
		return queries
	}

	queries = []string{
		disease.NameJa + " 患者会",
		disease.NameJa + " 家族会",
		disease.NameJa + " 支援団体",
		disease.NameJa + " 患者支援",
	}
	if name := strings.TrimSpace(disease.NameEn); name != "" {
		queries = append(queries,
			name+" patient association japan",
			name+" support group japan",
		)
	}
	return queries
}

// queryFor appends the role suffix matching the term's role and language.
func queryFor(t model.SearchTerm) string {
	english := strings.HasPrefix(t.Language, "en")
	switch t.Role {
	case model.TermRolePatient:
		if english {
			return t.Term + " patient association japan"
		}
		return t.Term + " 患者会"
	case model.TermRoleFamily:
		if english {
			return t.Term + " family support group japan"
		}
		return t.Term + " 家族会"
	case model.TermRoleSupport:
		if english {
			return t.Term + " support organization japan"
		}
		return t.Term + " 支援団体"
	default:
		return t.Term
	}
}

// ValidLanguage reports whether tag parses as a BCP 47 language tag.
func ValidLanguage(tag string) bool {
	_, err := language.Parse(tag)
	return err == nil
}

// DefaultConfig seeds a search configuration for a disease that has none:
// the primary name under each core role, plus English-name terms when the
// catalog has an English name.
func DefaultConfig(disease model.DiseaseRecord) model.SearchConfig {
	now := time.Now()
	term := func(text, lang string, role model.TermRole) model.SearchTerm {
		return model.SearchTerm{
			ID:        uuid.NewString(),
			Term:      text,
			Language:  lang,
			Role:      role,
			Enabled:   true,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	terms := []model.SearchTerm{
		term(disease.NameJa, "ja", model.TermRolePatient),
		term(disease.NameJa, "ja", model.TermRoleFamily),
		term(disease.NameJa, "ja", model.TermRoleSupport),
	}
	if name := strings.TrimSpace(disease.NameEn); name != "" {
		terms = append(terms,
			term(name, "en", model.TermRolePatient),
			term(name, "en", model.TermRoleSupport),
		)
	}

	return model.SearchConfig{
		DiseaseID:              disease.ID,
		Terms:                  terms,
		MaxTokenLimit:          16000,
		UseApproximateMatching: true,
		TwoStepValidation:      true,
		LastUpdated:            now,
	}
}
