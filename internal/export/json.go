package export

import (
	"encoding/json"
	"io"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/storage"
)

type runDocument struct {
	Run    *storage.RunMetadata             `json:"run"`
	Time   []float64                        `json:"time,omitempty"`
	Series map[battery.SeriesName][]float64 `json:"series,omitempty"`
}

// RunToJSON writes a stored run with its series as one JSON document. b may
// be nil for failed runs.
func RunToJSON(w io.Writer, meta *storage.RunMetadata, b *battery.SeriesBundle) error {
	doc := runDocument{Run: meta}
	if b != nil {
		doc.Time = b.Time()
		doc.Series = make(map[battery.SeriesName][]float64)
		for _, name := range battery.SeriesNames() {
			doc.Series[name] = b.Values(name)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
