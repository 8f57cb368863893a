package types

// PaperRef references a persisted paper from a digest entry.
type PaperRef struct {
	ID              string `json:"arxiv_id"`
	Title           string `json:"title"`
	InnovationScore int    `json:"innovation_score"`
	AbstractURL     string `json:"abstract_url"`
	// RecordID is the workspace record identifier returned by the upsert
	RecordID string `json:"record_id,omitempty"`
}

// CategoryHighlights groups a digest's paper references under one category,
// ordered descending by innovation score.
type CategoryHighlights struct {
	Category string     `json:"category"`
	Papers   []PaperRef `json:"papers"`
}

// DigestDocument is the single daily artifact composed from the successfully
// persisted papers of one run. It is created once per run and never edited.
type DigestDocument struct {
	Date             string               `json:"date"`
	ExecutiveSummary string               `json:"executive_summary"`
	Highlights       []CategoryHighlights `json:"highlights_by_category"`
	// PersistFailed counts papers that could not be written this run,
	// surfaced on the digest so partial failures stay visible
	PersistFailed int `json:"persist_failed,omitempty"`
}

// PaperIDs returns every paper ID referenced by the digest, in section order.
func (d *DigestDocument) PaperIDs() []string {
	var ids []string
	for _, section := range d.Highlights {
		for _, ref := range section.Papers {
			ids = append(ids, ref.ID)
		}
	}
	return ids
}
