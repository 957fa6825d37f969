package availability

import (
	"time"

	"bookline/pkg/model"
)

// FindConflict scans the given reservations for the first one whose
// half-open interval overlaps [start, start+duration). Cancelled
// reservations are skipped even if a caller forgets to filter them out.
// excludeID lets a reschedule avoid conflicting with the reservation being
// moved; pass "" when creating.
//
// Callers bound the scan by pre-filtering candidates to a window of one day
// either side of start; that is an efficiency measure only, the overlap
// test itself needs no such restriction.
func FindConflict(start time.Time, durationMin int, reservations []*model.Reservation, excludeID string) *model.Reservation {
	end := start.Add(time.Duration(durationMin) * time.Minute)

	for _, r := range reservations {
		if r.ID == excludeID {
			continue
		}
		if !r.IsActive() {
			continue
		}
		if r.Overlaps(start, end) {
			return r
		}
	}
	return nil
}
