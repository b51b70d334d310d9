package models

// ImportResult is the outcome for one product directory in an uploaded
// archive. Failure of one directory never affects its siblings.
type ImportResult struct {
	Success     bool   `json:"success"`
	ProductSlug string `json:"productSlug,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ImportSummary aggregates per-directory outcomes for one archive import.
type ImportSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// ImportResponse is the 200 body for an archive import. The call returns 200
// even when individual products failed; only archive-level problems are non-200.
type ImportResponse struct {
	Success bool           `json:"success"`
	Summary ImportSummary  `json:"summary"`
	Results []ImportResult `json:"results"`
}
