package model

import "time"

// OrganizationType classifies who runs a candidate organization.
type OrganizationType string

const (
	OrgTypePatient    OrganizationType = "patient"
	OrgTypeFamily     OrganizationType = "family"
	OrgTypeSupport    OrganizationType = "support"
	OrgTypeMedical    OrganizationType = "medical"
	OrgTypeResearch   OrganizationType = "research"
	OrgTypeGovernment OrganizationType = "government"
	OrgTypeOther      OrganizationType = "other"
)

// orgTypeLabels maps the Japanese labels the extraction prompt asks for onto
// the internal enum. Unknown labels fall through to OrgTypeOther.
var orgTypeLabels = map[string]OrganizationType{
	"患者会":  OrgTypePatient,
	"家族会":  OrgTypeFamily,
	"支援団体": OrgTypeSupport,
	"医療機関": OrgTypeMedical,
	"研究機関": OrgTypeResearch,
	"政府機関": OrgTypeGovernment,
	"行政機関": OrgTypeGovernment,
	"その他":  OrgTypeOther,
}

// OrgTypeFromLabel maps an extraction label (Japanese or internal value) to
// the internal enum.
func OrgTypeFromLabel(label string) OrganizationType {
	if t, ok := orgTypeLabels[label]; ok {
		return t
	}
	switch OrganizationType(label) {
	case OrgTypePatient, OrgTypeFamily, OrgTypeSupport, OrgTypeMedical,
		OrgTypeResearch, OrgTypeGovernment, OrgTypeOther:
		return OrganizationType(label)
	}
	return OrgTypeOther
}

// ValidationStatus tracks a candidate through the validation state machine:
// pending → extracted → verified → {human_approved, rejected}.
type ValidationStatus string

const (
	StatusPending       ValidationStatus = "pending"
	StatusExtracted     ValidationStatus = "extracted"
	StatusVerified      ValidationStatus = "verified"
	StatusHumanApproved ValidationStatus = "human_approved"
	StatusRejected      ValidationStatus = "rejected"
)

// ValidValidationStatus reports whether s is a known status value.
func ValidValidationStatus(s string) bool {
	switch ValidationStatus(s) {
	case StatusPending, StatusExtracted, StatusVerified, StatusHumanApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether the status was assigned by a human and must not
// be reset by a later automated pass.
func (s ValidationStatus) Terminal() bool {
	return s == StatusHumanApproved || s == StatusRejected
}

// availabilityHistoryLimit bounds the per-organization availability ring buffer.
const availabilityHistoryLimit = 10

// AvailabilityRecord is one availability probe of an organization's website.
type AvailabilityRecord struct {
	URL            string    `json:"url"`
	CheckedAt      time.Time `json:"check_date"`
	Available      bool      `json:"is_available"`
	StatusCode     int       `json:"status_code,omitempty"`
	ResponseTimeMs int64     `json:"response_time_ms,omitempty"`
	Error          string    `json:"error_message,omitempty"`
}

// ValidatedOrganization is a discovered patient-support organization. The URL
// is the natural key: no two organizations in one disease's collection share
// a URL.
type ValidatedOrganization struct {
	URL                string               `json:"url"`
	Name               string               `json:"name"`
	Type               OrganizationType     `json:"organization_type"`
	ContactInfo        string               `json:"contact_info,omitempty"`
	Activities         string               `json:"activities,omitempty"`
	DiseaseSpecificity float64              `json:"disease_specificity"`
	Confidence         float64              `json:"extraction_confidence"`
	Source             string               `json:"source"` // "auto" or "manual"
	AddedAt            time.Time            `json:"added_date"`
	LastChecked        time.Time            `json:"last_checked,omitzero"`
	Available          bool                 `json:"is_available"`
	AvailabilityLog    []AvailabilityRecord `json:"availability_history,omitempty"`
	Status             ValidationStatus     `json:"validation_status"`
	ValidationScore    float64              `json:"validation_score"`
	ValidationNotes    string               `json:"validation_notes,omitempty"`
	HumanVerified      bool                 `json:"human_verified"`
	HumanVerifiedAt    time.Time            `json:"human_verification_date,omitzero"`
	HumanNotes         string               `json:"human_verification_notes,omitempty"`
	TokenUsage         []TokenUsage         `json:"token_usage,omitempty"`
}

// RecordAvailability appends a probe result, keeping only the most recent
// entries, and updates the current availability flag.
func (o *ValidatedOrganization) RecordAvailability(rec AvailabilityRecord) {
	o.Available = rec.Available
	o.LastChecked = rec.CheckedAt
	o.AvailabilityLog = append(o.AvailabilityLog, rec)
	if n := len(o.AvailabilityLog); n > availabilityHistoryLimit {
		o.AvailabilityLog = o.AvailabilityLog[n-availabilityHistoryLimit:]
	}
}

// ManualEntry is a free-text note attached to a disease's collection by an
// operator, outside the automated pipeline.
type ManualEntry struct {
	ID        string    `json:"id"`
	DiseaseID string    `json:"disease_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	URL       string    `json:"url,omitempty"`
	EntryType string    `json:"entry_type"` // "note", "contact", "resource"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrganizationCollection is the per-disease aggregate, persisted as one JSON
// document and always read and written whole.
type OrganizationCollection struct {
	DiseaseID     string                  `json:"disease_id"`
	DiseaseName   string                  `json:"disease_name"`
	Organizations []ValidatedOrganization `json:"organizations"`
	ManualEntries []ManualEntry           `json:"manual_entries,omitempty"`
	SearchConfig  *SearchConfig           `json:"search_config,omitempty"`
	LastUpdated   time.Time               `json:"last_updated"`
	TokenUsage    []TokenUsage            `json:"token_usage,omitempty"`
}

// FindOrganization returns a pointer to the organization with the given URL,
// or nil if the collection has none.
func (c *OrganizationCollection) FindOrganization(url string) *ValidatedOrganization {
	for i := range c.Organizations {
		if c.Organizations[i].URL == url {
			return &c.Organizations[i]
		}
	}
	return nil
}
