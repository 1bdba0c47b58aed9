package models

// ExtractedMetric is computed per call and never persisted.
type ExtractedMetric struct {
	Type         string  `json:"type"`
	Value        float64 `json:"value"`
	Unit         string  `json:"unit"`
	Confidence   float64 `json:"confidence"`
	OriginalText string  `json:"original_text"`
}
