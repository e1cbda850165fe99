package predictions

import (
	"github.com/cropbase/cropbase/pkg/api/types/fields"
)

// Request scores field-seasons with a model.
//
// VersionTag "" selects the production model.
type Request struct {
	FieldSeasonIds []int64 `json:"fieldSeasonIds"`
	VersionTag     string  `json:"versionTag,omitempty"`
}

// Item is the outcome of one field-season in a batch.
type Item struct {
	FieldSeasonId int64              `json:"fieldSeasonId"`
	Prediction    *fields.Prediction `json:"prediction,omitempty"`
	Error         *string            `json:"error,omitempty"`
}

// Response reports a (batch) prediction.
type Response struct {
	VersionTag string `json:"versionTag"`
	Items      []Item `json:"items"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
}
