package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/regulars-api/internal/models"
)

const dateLayout = "2006-01-02"

// DateOnly truncates t to its calendar date in loc, returned as UTC midnight so
// dates compare as whole days regardless of zone.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole days from a to b.
func daysBetween(a, b time.Time) int {
	return int(DateOnly(b, nil).Sub(DateOnly(a, nil)).Hours() / 24)
}

// ComputePassStatus derives the status of a pass on the given club-local date.
func ComputePassStatus(pass models.Pass, settings models.Settings, today time.Time) models.PassStatus {
	switch pass.Type {
	case models.PassTypeMonthly:
		if pass.EndDate == nil {
			return models.PassStatusExpired
		}
		left := daysBetween(today, *pass.EndDate)
		if left < 0 {
			return models.PassStatusExpired
		}
		if left <= settings.MonthlyExpiryWarningDays {
			return models.PassStatusExpiringSoon
		}
		return models.PassStatusActive
	case models.PassTypeClassPack:
		remaining := pass.Remaining()
		if remaining <= 0 {
			return models.PassStatusExpired
		}
		if remaining <= settings.ClassPackExpiryWarningRemaining {
			return models.PassStatusExpiringSoon
		}
		return models.PassStatusActive
	case models.PassTypeDropIn:
		if pass.Remaining() >= 1 {
			return models.PassStatusActive
		}
		return models.PassStatusExpired
	default:
		return models.PassStatusExpired
	}
}

// RankPasses orders passes newest first by start date, then by creation time.
// The input slice is not modified.
func RankPasses(passes []models.Pass) []models.Pass {
	ranked := make([]models.Pass, len(passes))
	copy(ranked, passes)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.After(b.StartDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return ranked
}

// LookupPass selects the pass that represents a (dancer, batch) pair on today: the
// first started, non-expired pass in rank order, else the most recent started pass.
// Passes starting after today are not in force and never selected. A nil result means
// no pass has started for the pair.
func LookupPass(passes []models.Pass, settings models.Settings, today time.Time) *models.Pass {
	day := DateOnly(today, nil)
	var fallback *models.Pass
	ranked := RankPasses(passes)
	for i := range ranked {
		if DateOnly(ranked[i].StartDate, nil).After(day) {
			continue
		}
		if ComputePassStatus(ranked[i], settings, today) != models.PassStatusExpired {
			return &ranked[i]
		}
		if fallback == nil {
			fallback = &ranked[i]
		}
	}
	return fallback
}

// LookupStatus returns the status of the lookup pass, or none when there is no pass.
func LookupStatus(passes []models.Pass, settings models.Settings, today time.Time) (*models.Pass, models.PassStatus) {
	pass := LookupPass(passes, settings, today)
	if pass == nil {
		return nil, models.PassStatusNone
	}
	return pass, ComputePassStatus(*pass, settings, today)
}

// PassMessage renders the human-readable renewal message for a pass.
func PassMessage(pass models.Pass, status models.PassStatus) string {
	switch pass.Type {
	case models.PassTypeMonthly:
		end := ""
		if pass.EndDate != nil {
			end = pass.EndDate.Format(dateLayout)
		}
		if status == models.PassStatusExpiringSoon {
			return fmt.Sprintf("Monthly pass expiring soon (ends %s)", end)
		}
		if status == models.PassStatusExpired {
			return fmt.Sprintf("Monthly pass expired (ended %s)", end)
		}
		return "Monthly pass active"
	case models.PassTypeClassPack:
		if status == models.PassStatusExpired {
			return "Class pack exhausted"
		}
		if status == models.PassStatusExpiringSoon {
			return fmt.Sprintf("Class pack low: %d remaining", pass.Remaining())
		}
		return fmt.Sprintf("Class pack: %d of %d remaining", pass.Remaining(), pass.Total())
	case models.PassTypeDropIn:
		if status == models.PassStatusExpired {
			return "Drop-in used"
		}
		return "Drop-in available"
	default:
		return "No active pass"
	}
}

// groupPasses buckets passes by dancer and batch.
func groupPasses(passes []models.Pass) map[passKey][]models.Pass {
	grouped := make(map[passKey][]models.Pass)
	for _, p := range passes {
		k := passKey{dancerID: p.DancerID, batchID: p.BatchID}
		grouped[k] = append(grouped[k], p)
	}
	return grouped
}

type passKey struct {
	dancerID string
	batchID  string
}
