package domain

// Snapshot is the complete local entity state, used for the authoritative
// full-sync exchange with the remote.
type Snapshot struct {
	Settings    *UserSettings `json:"settings,omitempty"`
	Books       []*Book       `json:"books"`
	Ratings     []*Rating     `json:"ratings"`
	Tags        []*Tag        `json:"tags"`
	Collections []*Collection `json:"collections"`
	ReadingLogs []*ReadingLog `json:"reading_logs"`
}

// Counts returns the number of records in the snapshot, settings included.
func (s *Snapshot) Counts() int {
	n := len(s.Books) + len(s.Ratings) + len(s.Tags) + len(s.Collections) + len(s.ReadingLogs)
	if s.Settings != nil {
		n++
	}
	return n
}
