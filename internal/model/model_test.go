package model

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenUsageTotalInvariant(t *testing.T) {
	u := NewTokenUsage("mistral:latest", 450, 110)
	assert.Equal(t, 560, u.TotalTokens)
	assert.False(t, u.Timestamp.IsZero())

	z := ZeroTokenUsage("mistral:latest")
	assert.Zero(t, z.TotalTokens)
	assert.Equal(t, "mistral:latest", z.Model)
}

func TestOrgTypeFromLabel(t *testing.T) {
	cases := map[string]OrganizationType{
		"患者会":     OrgTypePatient,
		"家族会":     OrgTypeFamily,
		"支援団体":    OrgTypeSupport,
		"医療機関":    OrgTypeMedical,
		"研究機関":    OrgTypeResearch,
		"政府機関":    OrgTypeGovernment,
		"行政機関":    OrgTypeGovernment,
		"その他":     OrgTypeOther,
		"patient": OrgTypePatient,
		"謎の分類":    OrgTypeOther,
		"":        OrgTypeOther,
	}
	for label, want := range cases {
		assert.Equal(t, want, OrgTypeFromLabel(label), label)
	}
}

func TestValidationStatusTerminal(t *testing.T) {
	assert.True(t, StatusHumanApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusExtracted.Terminal())
	assert.False(t, StatusVerified.Terminal())
}

func TestRecordAvailabilityRingBuffer(t *testing.T) {
	org := ValidatedOrganization{URL: "https://a.example.org"}
	for i := 0; i < 15; i++ {
		org.RecordAvailability(AvailabilityRecord{
			URL:        org.URL,
			CheckedAt:  time.Now(),
			Available:  i%2 == 0,
			StatusCode: 200 + i,
		})
	}
	require.Len(t, org.AvailabilityLog, 10, "history keeps only the most recent probes")
	assert.Equal(t, 205, org.AvailabilityLog[0].StatusCode, "oldest surviving probe")
	assert.Equal(t, 214, org.AvailabilityLog[9].StatusCode)
	assert.True(t, org.Available, "current flag follows the last probe")
}

func TestFindOrganization(t *testing.T) {
	col := OrganizationCollection{Organizations: []ValidatedOrganization{
		{URL: "https://a.example.org", Name: "A"},
		{URL: "https://b.example.org", Name: "B"},
	}}
	got := col.FindOrganization("https://b.example.org")
	require.NotNil(t, got)
	assert.Equal(t, "B", got.Name)

	// The pointer aliases the slice entry.
	got.Name = "B改"
	assert.Equal(t, "B改", col.Organizations[1].Name)

	assert.Nil(t, col.FindOrganization("https://c.example.org"))
}

func TestComputeOrganizationStats(t *testing.T) {
	col := &OrganizationCollection{Organizations: []ValidatedOrganization{
		{URL: "u1", Type: OrgTypePatient, Source: "auto", Available: true},
		{URL: "u2", Type: OrgTypePatient, Source: "auto", Available: false},
		{URL: "u3", Type: OrgTypeFamily, Source: "manual", Available: true},
	}}
	stats := ComputeOrganizationStats(col)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByType[OrgTypePatient])
	assert.Equal(t, 1, stats.ByType[OrgTypeFamily])
	assert.Equal(t, 2, stats.BySource["auto"])
	assert.Equal(t, 1, stats.BySource["manual"])
	assert.Equal(t, 2, stats.Available)
	assert.Equal(t, 1, stats.Unavailable)
}

func TestCountByStatus(t *testing.T) {
	orgs := []ValidatedOrganization{
		{URL: "u1", Status: StatusVerified},
		{URL: "u2", Status: StatusVerified},
		{URL: "u3", Status: StatusHumanApproved},
		{URL: "u4", Status: StatusRejected},
	}
	counts := CountByStatus(orgs)
	assert.Equal(t, 2, counts[StatusVerified])
	assert.Equal(t, 1, counts[StatusHumanApproved])
	assert.Equal(t, 1, counts[StatusRejected])
}

func TestEnabledTerms(t *testing.T) {
	sc := SearchConfig{Terms: []SearchTerm{
		{ID: "1", Term: "a", Enabled: true},
		{ID: "2", Term: "b", Enabled: false},
		{ID: "3", Term: "c", Enabled: true},
	}}
	enabled := sc.EnabledTerms()
	require.Len(t, enabled, 2)
	for _, term := range enabled {
		assert.True(t, term.Enabled, fmt.Sprintf("term %s", term.ID))
	}
}

func TestSearchable(t *testing.T) {
	assert.True(t, DiseaseRecord{NameJa: "筋ジストロフィー"}.Searchable())
	assert.False(t, DiseaseRecord{NameJa: "代謝系疾患"}.Searchable(), "category rows are not sweepable")
	assert.False(t, DiseaseRecord{NameJa: "神経・筋疾患"}.Searchable())
	assert.True(t, DiseaseRecord{NameJa: "指定難病"}.Searchable(), "generic names with real communities stay searchable")
}

func TestValidTermRole(t *testing.T) {
	for _, role := range []string{"patient", "family", "support", "general"} {
		assert.True(t, ValidTermRole(role), role)
	}
	assert.False(t, ValidTermRole("sponsor"))
	assert.False(t, ValidTermRole(""))
}
