package importer

import "time"

// Batch is the mapped content of one uploaded sheet.
type Batch struct {
	Candidates  []CandidateSession
	Clients     []ClientIdentity
	RowsRead    int
	RowsSkipped int
}

// Collect maps every row and gathers the distinct clients in first-seen
// order, keyed by email when present and by name otherwise.
func Collect(rows []Row, locale Locale, now time.Time) Batch {
	batch := Batch{
		Candidates: make([]CandidateSession, 0, len(rows)),
		RowsRead:   len(rows),
	}
	seen := make(map[string]struct{})
	for _, row := range rows {
		candidate, reason := MapRow(row, locale, now)
		if reason != SkipNone {
			batch.RowsSkipped++
			continue
		}
		batch.Candidates = append(batch.Candidates, candidate)

		key := candidate.Client.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		batch.Clients = append(batch.Clients, candidate.Client)
	}
	return batch
}
