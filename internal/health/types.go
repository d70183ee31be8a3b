package health

import (
	"strings"
	"time"
)

// VitalType identifies a time-series vital stream.
type VitalType string

const (
	VitalHeartRate   VitalType = "heartRate"
	VitalSystolic    VitalType = "systolic"
	VitalDiastolic   VitalType = "diastolic"
	VitalSpO2        VitalType = "spo2"
	VitalTemperature VitalType = "temperature"
	VitalWeight      VitalType = "weight"
	VitalSugar       VitalType = "sugar"
)

// VitalRecord is a single timestamped reading. Records are immutable once
// written. Storage preserves insertion order only, so consumers must sort by
// Timestamp to find the latest reading.
type VitalRecord struct {
	ID         string    `json:"id,omitempty"`
	Type       VitalType `json:"type"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	Timestamp  int64     `json:"timestamp"` // unix milliseconds
	RecordedBy string    `json:"recordedBy,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

// DoseStatus is the outcome recorded for a single dose.
type DoseStatus string

const (
	DoseTaken   DoseStatus = "taken"
	DoseSkipped DoseStatus = "skipped"
	DoseMissed  DoseStatus = "missed"
)

// AdherenceLogEntry records one dose event. Date is the local calendar date
// in YYYY-MM-DD, Time is HH:MM in 24-hour format.
type AdherenceLogEntry struct {
	Date   string     `json:"date"`
	Time   string     `json:"time"`
	Status DoseStatus `json:"status"`
}

// Medication is a clinician-owned prescription with an append-only adherence
// log. Reminders reference medications by name; reconciliation auto-creates
// missing entries with PrescribedBy set to SelfReminder.
type Medication struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Dosage       string              `json:"dosage"`
	Frequency    string              `json:"frequency"`
	StartDate    string              `json:"startDate"` // YYYY-MM-DD
	EndDate      string              `json:"endDate,omitempty"`
	IsActive     bool                `json:"isActive"`
	Instructions string              `json:"instructions,omitempty"`
	PrescribedBy string              `json:"prescribedBy,omitempty"`
	AdherenceLog []AdherenceLogEntry `json:"adherenceLog,omitempty"`
}

// SelfReminder marks medications auto-created by reminder reconciliation
// rather than prescribed by a clinician.
const SelfReminder = "self-reminder"

// Defaults applied when reconciliation creates a medication the reminder
// did not fully describe.
const (
	DefaultDosage    = "As per reminder"
	DefaultFrequency = "Daily"
)

// NameMatches reports whether the medication name matches the given name
// after trimming and case folding. This is the identity rule used by
// reconciliation.
func (m *Medication) NameMatches(name string) bool {
	return strings.EqualFold(strings.TrimSpace(m.Name), strings.TrimSpace(name))
}

// ExtractedMedication is a medication pulled out of a prescription by the
// assistant. It is untrusted input: consumers must route it through the same
// case-insensitive reconciliation as manual entry.
type ExtractedMedication struct {
	Name      string   `json:"name"`
	Dosage    string   `json:"dosage,omitempty"`
	Frequency string   `json:"frequency,omitempty"`
	Times     []string `json:"times,omitempty"`
}

// ConditionStatus is the lifecycle state of a diagnosed condition.
type ConditionStatus string

const (
	ConditionActive  ConditionStatus = "active"
	ConditionCured   ConditionStatus = "cured"
	ConditionManaged ConditionStatus = "managed"
)

// ConditionSeverity grades a condition.
type ConditionSeverity string

const (
	SeverityMild     ConditionSeverity = "mild"
	SeverityModerate ConditionSeverity = "moderate"
	SeveritySevere   ConditionSeverity = "severe"
	SeverityCritical ConditionSeverity = "critical"
)

// MedicalCondition is a diagnosed condition on the patient record.
type MedicalCondition struct {
	ID            string            `json:"id"`
	Condition     string            `json:"condition"`
	DiagnosedDate string            `json:"diagnosedDate,omitempty"`
	Status        ConditionStatus   `json:"status"`
	Severity      ConditionSeverity `json:"severity,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	AddedBy       string            `json:"addedBy,omitempty"`
}

// AllergySeverity grades an allergy.
type AllergySeverity string

const (
	AllergyMild            AllergySeverity = "mild"
	AllergyModerate        AllergySeverity = "moderate"
	AllergySevere          AllergySeverity = "severe"
	AllergyLifeThreatening AllergySeverity = "life-threatening"
)

// Allergy is a recorded allergen with reaction and severity.
type Allergy struct {
	ID       string          `json:"id"`
	Allergen string          `json:"allergen"`
	Reaction string          `json:"reaction,omitempty"`
	Severity AllergySeverity `json:"severity"`
	Notes    string          `json:"notes,omitempty"`
	AddedBy  string          `json:"addedBy,omitempty"`
}

// Trend compares a score against the previous snapshot.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// HealthScoreRecord is one snapshot in the append-only score history.
type HealthScoreRecord struct {
	Score   int      `json:"score"` // 0-100
	Trend   Trend    `json:"trend"`
	Factors []string `json:"factors,omitempty"`
	Date    string   `json:"date"` // RFC 3339
}

// Report points at an uploaded document in the external asset store. Only
// the identifiers needed to derive a signed URL are kept here.
type Report struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	AssetID      string `json:"assetId"`
	ResourceType string `json:"resourceType"`
	Version      int64  `json:"version"`
	Format       string `json:"format"`
	UploadedBy   string `json:"uploadedBy,omitempty"`
	UploadedAt   string `json:"uploadedAt"`
}

// PatientHealthData is the aggregate medical record the engines consume.
// Reminders are owned separately per user and reconciled into this record,
// never the reverse.
type PatientHealthData struct {
	ID                 string                      `json:"id,omitempty"`
	Name               string                      `json:"name,omitempty"`
	Conditions         []MedicalCondition          `json:"conditions,omitempty"`
	Medications        []Medication                `json:"medications,omitempty"`
	Allergies          []Allergy                   `json:"allergies,omitempty"`
	VitalsHistory      map[VitalType][]VitalRecord `json:"vitalsHistory,omitempty"`
	HealthScoreHistory []HealthScoreRecord         `json:"healthScoreHistory,omitempty"`
	Reports            []Report                    `json:"reports,omitempty"`
}

// ActiveMedications returns the medications currently flagged active.
func (p *PatientHealthData) ActiveMedications() []Medication {
	var active []Medication
	for _, m := range p.Medications {
		if m.IsActive {
			active = append(active, m)
		}
	}
	return active
}

// LatestVital returns the most recent reading of the given type, sorted by
// timestamp rather than list position.
func (p *PatientHealthData) LatestVital(t VitalType) (VitalRecord, bool) {
	records := p.VitalsHistory[t]
	if len(records) == 0 {
		return VitalRecord{}, false
	}
	latest := records[0]
	for _, r := range records[1:] {
		if r.Timestamp > latest.Timestamp {
			latest = r
		}
	}
	return latest, true
}

// DateOf formats a time as the calendar date string used in adherence logs.
func DateOf(t time.Time) string {
	return t.Format("2006-01-02")
}

// TimeOf formats a time as the HH:MM string used in adherence logs.
func TimeOf(t time.Time) string {
	return t.Format("15:04")
}
