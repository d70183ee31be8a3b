package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func vitalsOK() map[VitalType][]VitalRecord {
	return map[VitalType][]VitalRecord{
		VitalHeartRate: {{Type: VitalHeartRate, Value: 72, Timestamp: testNow.UnixMilli()}},
		VitalSystolic:  {{Type: VitalSystolic, Value: 120, Timestamp: testNow.UnixMilli()}},
	}
}

// medWithLog builds an active medication whose adherence log has taken doses
// on the first `taken` of the trailing `total` days.
func medWithLog(name string, taken, total int) Medication {
	m := Medication{ID: name, Name: name, IsActive: true}
	for i := 0; i < total; i++ {
		status := DoseSkipped
		if i < taken {
			status = DoseTaken
		}
		m.AdherenceLog = append(m.AdherenceLog, AdherenceLogEntry{
			Date:   DateOf(testNow.AddDate(0, 0, -i)),
			Time:   "08:00",
			Status: status,
		})
	}
	return m
}

func TestComputeHealthScore_BaselineIs100(t *testing.T) {
	patient := &PatientHealthData{VitalsHistory: vitalsOK()}

	result := ComputeHealthScore(patient, testNow)

	assert.Equal(t, 100, result.Score)
	assert.Equal(t, TrendStable, result.Trend)
	assert.Contains(t, result.Factors, "No active conditions")
}

func TestComputeHealthScore_NoVitalsPenalty(t *testing.T) {
	patient := &PatientHealthData{}

	result := ComputeHealthScore(patient, testNow)

	assert.Equal(t, 95, result.Score)
	assert.Contains(t, result.Factors, "No vitals recorded")
}

func TestComputeHealthScore_AdherenceTiers(t *testing.T) {
	cases := []struct {
		name   string
		taken  int
		total  int
		score  int
		factor string
	}{
		{"very low below 50", 3, 7, 70, "Very low medication adherence"}, // ~43%
		{"low below 70", 4, 7, 80, "Low medication adherence"},          // ~57%
		{"moderate below 90", 6, 7, 90, "Moderate adherence"},           // ~86%
		{"good at 100", 7, 7, 100, "Good adherence"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			patient := &PatientHealthData{
				Medications:   []Medication{medWithLog("Aspirin", tc.taken, tc.total)},
				VitalsHistory: vitalsOK(),
			}

			result := ComputeHealthScore(patient, testNow)

			assert.Equal(t, tc.score, result.Score)
			assert.Contains(t, result.Factors, tc.factor)
		})
	}
}

func TestComputeHealthScore_InactiveMedicationsIgnored(t *testing.T) {
	med := medWithLog("Old med", 0, 7)
	med.IsActive = false
	patient := &PatientHealthData{
		Medications:   []Medication{med},
		VitalsHistory: vitalsOK(),
	}

	result := ComputeHealthScore(patient, testNow)

	assert.Equal(t, 100, result.Score)
}

func TestComputeHealthScore_CriticalDominatesSevere(t *testing.T) {
	patient := &PatientHealthData{
		Conditions: []MedicalCondition{
			{Condition: "Heart failure", Status: ConditionActive, Severity: SeverityCritical},
			{Condition: "Asthma", Status: ConditionActive, Severity: SeveritySevere},
		},
		VitalsHistory: vitalsOK(),
	}

	result := ComputeHealthScore(patient, testNow)

	// Only the critical penalty applies, not critical plus severe.
	assert.Equal(t, 75, result.Score)
	assert.Contains(t, result.Factors, "1 critical condition(s)")
}

func TestComputeHealthScore_CuredConditionsIgnored(t *testing.T) {
	patient := &PatientHealthData{
		Conditions: []MedicalCondition{
			{Condition: "Pneumonia", Status: ConditionCured, Severity: SeverityCritical},
		},
		VitalsHistory: vitalsOK(),
	}

	result := ComputeHealthScore(patient, testNow)

	assert.Equal(t, 100, result.Score)
}

func TestComputeHealthScore_SevereAllergyPenaltyAppliesOnce(t *testing.T) {
	patient := &PatientHealthData{
		Allergies: []Allergy{
			{Allergen: "Penicillin", Severity: AllergySevere},
			{Allergen: "Peanuts", Severity: AllergyLifeThreatening},
		},
		VitalsHistory: vitalsOK(),
	}

	result := ComputeHealthScore(patient, testNow)

	assert.Equal(t, 90, result.Score)
	assert.Contains(t, result.Factors, "2 severe allergy(s)")
}

func TestComputeHealthScore_AbnormalVitals(t *testing.T) {
	patient := &PatientHealthData{
		VitalsHistory: map[VitalType][]VitalRecord{
			VitalHeartRate: {{Type: VitalHeartRate, Value: 130, Timestamp: testNow.UnixMilli()}},
			VitalSystolic:  {{Type: VitalSystolic, Value: 160, Timestamp: testNow.UnixMilli()}},
		},
	}

	result := ComputeHealthScore(patient, testNow)

	assert.Equal(t, 80, result.Score)
	assert.Contains(t, result.Factors, "Abnormal heart rate")
	assert.Contains(t, result.Factors, "Abnormal blood pressure")
}

func TestComputeHealthScore_LatestVitalWinsByTimestamp(t *testing.T) {
	// Insertion order has the abnormal reading last, but the normal reading
	// carries the later timestamp.
	patient := &PatientHealthData{
		VitalsHistory: map[VitalType][]VitalRecord{
			VitalHeartRate: {
				{Type: VitalHeartRate, Value: 72, Timestamp: testNow.UnixMilli()},
				{Type: VitalHeartRate, Value: 180, Timestamp: testNow.Add(-time.Hour).UnixMilli()},
			},
		},
	}

	result := ComputeHealthScore(patient, testNow)

	assert.Equal(t, 100, result.Score)
}

func TestComputeHealthScore_WorstCaseStaysBounded(t *testing.T) {
	patient := &PatientHealthData{
		Medications: []Medication{medWithLog("Everything", 0, 7)},
		Conditions: []MedicalCondition{
			{Condition: "Sepsis", Status: ConditionActive, Severity: SeverityCritical},
		},
		Allergies: []Allergy{
			{Allergen: "Latex", Severity: AllergySevere},
		},
		VitalsHistory: map[VitalType][]VitalRecord{
			VitalHeartRate: {{Type: VitalHeartRate, Value: 40, Timestamp: testNow.UnixMilli()}},
			VitalSystolic:  {{Type: VitalSystolic, Value: 200, Timestamp: testNow.UnixMilli()}},
		},
	}

	result := ComputeHealthScore(patient, testNow)

	assert.GreaterOrEqual(t, result.Score, 0)
	assert.Equal(t, 15, result.Score) // 100-30-25-10-10-10
}

func TestComputeHealthScore_Trend(t *testing.T) {
	base := &PatientHealthData{VitalsHistory: vitalsOK()}

	base.HealthScoreHistory = []HealthScoreRecord{{Score: 80}}
	assert.Equal(t, TrendUp, ComputeHealthScore(base, testNow).Trend)

	base.HealthScoreHistory = []HealthScoreRecord{{Score: 100}}
	assert.Equal(t, TrendStable, ComputeHealthScore(base, testNow).Trend)

	bad := &PatientHealthData{
		Conditions: []MedicalCondition{
			{Condition: "Heart failure", Status: ConditionActive, Severity: SeverityCritical},
		},
		VitalsHistory:      vitalsOK(),
		HealthScoreHistory: []HealthScoreRecord{{Score: 100}},
	}
	assert.Equal(t, TrendDown, ComputeHealthScore(bad, testNow).Trend)
}

func TestComputeHealthScore_TrendWithinDeltaIsStable(t *testing.T) {
	patient := &PatientHealthData{
		VitalsHistory:      vitalsOK(),
		HealthScoreHistory: []HealthScoreRecord{{Score: 96}},
	}

	// 100 vs 96 is within the +-5 band.
	assert.Equal(t, TrendStable, ComputeHealthScore(patient, testNow).Trend)
}

func TestComputeHealthScore_Deterministic(t *testing.T) {
	patient := &PatientHealthData{
		Medications:   []Medication{medWithLog("Aspirin", 5, 7)},
		VitalsHistory: vitalsOK(),
	}

	first := ComputeHealthScore(patient, testNow)
	second := ComputeHealthScore(patient, testNow)

	assert.Equal(t, first, second)
}

func TestSnapshot(t *testing.T) {
	result := ScoreResult{Score: 85, Trend: TrendUp, Factors: []string{"Good adherence"}}

	record := result.Snapshot(testNow)

	assert.Equal(t, 85, record.Score)
	assert.Equal(t, TrendUp, record.Trend)
	assert.Equal(t, testNow.Format(time.RFC3339), record.Date)
}
