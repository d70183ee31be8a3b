package health

import "time"

// ComputeAdherence returns the percentage of doses marked taken across all
// medications in the trailing 7-day window. ok is false when no doses were
// logged at all, which callers must render as "no data" rather than zero.
//
// Unlike the score engine this intentionally counts inactive medications
// too, matching the dashboard it was lifted from.
func ComputeAdherence(meds []Medication, now time.Time) (percent int, ok bool) {
	taken, total := countDoses(meds, now)
	if total == 0 {
		return 0, false
	}
	return int(float64(taken) / float64(total) * 100), true
}

// TodayLogStatus returns the status of the dose logged for today's calendar
// date, if any. It never reports missed: missed doses arise from the
// reminder sweep, not from adherence lookups.
func TodayLogStatus(med *Medication, now time.Time) (DoseStatus, bool) {
	today := DateOf(now)
	for _, entry := range med.AdherenceLog {
		if entry.Date == today {
			return entry.Status, true
		}
	}
	return "", false
}

// CalculateStreak counts consecutive days with at least one taken dose,
// walking backward from today. A streak survives today not being logged yet:
// if today is absent but yesterday was taken, the count starts at yesterday.
// The scan is capped at 365 days.
func CalculateStreak(patient *PatientHealthData, now time.Time) int {
	takenDates := make(map[string]struct{})
	for _, m := range patient.Medications {
		for _, entry := range m.AdherenceLog {
			if entry.Status == DoseTaken {
				takenDates[entry.Date] = struct{}{}
			}
		}
	}
	if len(takenDates) == 0 {
		return 0
	}

	streak := 0
	if _, ok := takenDates[DateOf(now)]; ok {
		streak++
	}

	for i := 1; i < 365; i++ {
		day := DateOf(now.AddDate(0, 0, -i))
		if _, ok := takenDates[day]; ok {
			streak++
			continue
		}
		if i == 1 && streak == 0 {
			return 0
		}
		break
	}

	return streak
}

// DayAdherence is one bar of the 7-day adherence chart: how many active
// medications had a taken dose on that day versus how many were scheduled.
type DayAdherence struct {
	Date  string `json:"date"`  // short weekday name
	Count int    `json:"count"` // doses taken
	Total int    `json:"total"` // active medications scheduled
}

// WeeklyAdherence builds per-day adherence counts for the last 7 days,
// oldest first, for the patient dashboard chart.
func WeeklyAdherence(meds []Medication, now time.Time) []DayAdherence {
	days := make([]DayAdherence, 0, 7)
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		dateStr := DateOf(day)

		taken, total := 0, 0
		for _, m := range meds {
			if !m.IsActive {
				continue
			}
			total++
			for _, entry := range m.AdherenceLog {
				if entry.Date == dateStr && entry.Status == DoseTaken {
					taken++
					break
				}
			}
		}

		days = append(days, DayAdherence{
			Date:  day.Format("Mon"),
			Count: taken,
			Total: total,
		})
	}
	return days
}
