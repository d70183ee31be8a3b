package health

import (
	"fmt"
	"time"
)

// ScoreResult is the output of the health-score engine.
type ScoreResult struct {
	Score   int      `json:"score"`
	Trend   Trend    `json:"trend"`
	Factors []string `json:"factors"`
}

// Penalty weights and thresholds for the additive scoring model.
const (
	maxScore = 100
	minScore = 0

	penaltyVeryLowAdherence  = 30
	penaltyLowAdherence      = 20
	penaltyModerateAdherence = 10
	penaltyCriticalCondition = 25
	penaltySevereCondition   = 15
	penaltySevereAllergy     = 10
	penaltyNoVitals          = 5
	penaltyAbnormalVital     = 10

	trendDelta = 5

	adherenceWindow = 7 * 24 * time.Hour
)

// Normal ranges for the two vitals that gate the score. Diastolic, SpO2 and
// temperature are recorded but not scored.
const (
	heartRateMin = 50
	heartRateMax = 100
	systolicMin  = 90
	systolicMax  = 140
)

// ComputeHealthScore derives a bounded composite score from the patient
// record. It is pure: the same record and clock always produce the same
// result, and nothing is persisted. Callers append the result to
// HealthScoreHistory after every mutation of vitals, medications, conditions
// or allergies.
func ComputeHealthScore(patient *PatientHealthData, now time.Time) ScoreResult {
	var factors []string
	score := maxScore

	// Medication adherence over the trailing 7 days, active medications only.
	if active := patient.ActiveMedications(); len(active) > 0 {
		taken, total := countDoses(active, now)
		if total > 0 {
			adherence := float64(taken) / float64(total) * 100
			switch {
			case adherence < 50:
				score -= penaltyVeryLowAdherence
				factors = append(factors, "Very low medication adherence")
			case adherence < 70:
				score -= penaltyLowAdherence
				factors = append(factors, "Low medication adherence")
			case adherence < 90:
				score -= penaltyModerateAdherence
				factors = append(factors, "Moderate adherence")
			default:
				factors = append(factors, "Good adherence")
			}
		}
	}

	// Condition severity. Critical dominates severe; the branches are
	// mutually exclusive.
	var critical, severe, active int
	for _, c := range patient.Conditions {
		if c.Status != ConditionActive {
			continue
		}
		active++
		switch c.Severity {
		case SeverityCritical:
			critical++
		case SeveritySevere:
			severe++
		}
	}
	switch {
	case critical > 0:
		score -= penaltyCriticalCondition
		factors = append(factors, fmt.Sprintf("%d critical condition(s)", critical))
	case severe > 0:
		score -= penaltySevereCondition
		factors = append(factors, fmt.Sprintf("%d severe condition(s)", severe))
	case active == 0:
		factors = append(factors, "No active conditions")
	}

	// High-risk allergies.
	severeAllergies := 0
	for _, a := range patient.Allergies {
		if a.Severity == AllergySevere || a.Severity == AllergyLifeThreatening {
			severeAllergies++
		}
	}
	if severeAllergies > 0 {
		score -= penaltySevereAllergy
		factors = append(factors, fmt.Sprintf("%d severe allergy(s)", severeAllergies))
	}

	// Vitals. Only heart rate and systolic pressure gate the score.
	if len(patient.VitalsHistory) == 0 {
		score -= penaltyNoVitals
		factors = append(factors, "No vitals recorded")
	} else {
		if hr, ok := patient.LatestVital(VitalHeartRate); ok {
			if hr.Value < heartRateMin || hr.Value > heartRateMax {
				score -= penaltyAbnormalVital
				factors = append(factors, "Abnormal heart rate")
			}
		}
		if bp, ok := patient.LatestVital(VitalSystolic); ok {
			if bp.Value > systolicMax || bp.Value < systolicMin {
				score -= penaltyAbnormalVital
				factors = append(factors, "Abnormal blood pressure")
			}
		}
	}

	if score < minScore {
		score = minScore
	}
	if score > maxScore {
		score = maxScore
	}

	trend := TrendStable
	if n := len(patient.HealthScoreHistory); n > 0 {
		last := patient.HealthScoreHistory[n-1].Score
		if score > last+trendDelta {
			trend = TrendUp
		} else if score < last-trendDelta {
			trend = TrendDown
		}
	}

	if factors == nil {
		factors = []string{}
	}
	return ScoreResult{Score: score, Trend: trend, Factors: factors}
}

// Snapshot converts a result into a history record dated at now.
func (r ScoreResult) Snapshot(now time.Time) HealthScoreRecord {
	return HealthScoreRecord{
		Score:   r.Score,
		Trend:   r.Trend,
		Factors: r.Factors,
		Date:    now.Format(time.RFC3339),
	}
}

// countDoses aggregates adherence log entries across medications whose date
// falls inside the trailing window ending at now.
func countDoses(meds []Medication, now time.Time) (taken, total int) {
	cutoff := now.Add(-adherenceWindow)
	for _, m := range meds {
		for _, entry := range m.AdherenceLog {
			d, err := time.ParseInLocation("2006-01-02", entry.Date, now.Location())
			if err != nil {
				continue
			}
			if d.Before(cutoff) || d.After(now) {
				continue
			}
			total++
			if entry.Status == DoseTaken {
				taken++
			}
		}
	}
	return taken, total
}
