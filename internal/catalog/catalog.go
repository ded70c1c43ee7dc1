// Package catalog loads the NANDO disease spreadsheet into a read-only
// in-memory catalog. The catalog is loaded once at startup and never
// mutated afterwards.
package catalog

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/nando-support/discovery-cli/internal/model"
)

// Column headers in the NANDO export.
const (
	colID               = "NANDO ID"
	colNameJa           = "疾患名（日本語）"
	colSynonymsJa       = "疾患名類義語（日本語）"
	colNameEn           = "疾患名（英語）"
	colSynonymsEn       = "疾患名類義語（英語）"
	colIntractable      = "指定難病情報センター"
	colChildhoodChronic = "小児慢性特定疾病情報センター"
)

// Catalog is the immutable disease registry.
type Catalog struct {
	byID  map[string]model.DiseaseRecord
	order []string
}

// Load reads the spreadsheet at path. The first row must be the header row.
func Load(path string) (*Catalog, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: open spreadsheet")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("catalog: spreadsheet has no sheets")
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) < 2 {
		return nil, eris.New("catalog: spreadsheet has no data rows")
	}

	headers := make(map[string]int)
	for i, cell := range sheet.Rows[0].Cells {
		headers[strings.TrimSpace(cell.String())] = i
	}
	if _, ok := headers[colID]; !ok {
		return nil, eris.Errorf("catalog: missing %q column", colID)
	}

	cat := &Catalog{byID: make(map[string]model.DiseaseRecord)}
	for _, row := range sheet.Rows[1:] {
		cellAt := func(name string) string {
			idx, ok := headers[name]
			if !ok || idx >= len(row.Cells) {
				return ""
			}
			return strings.TrimSpace(row.Cells[idx].String())
		}

		id := cellAt(colID)
		if id == "" {
			continue
		}

		rec := model.DiseaseRecord{
			ID:               id,
			NameJa:           cellAt(colNameJa),
			NameEn:           cellAt(colNameEn),
			SynonymsJa:       splitSynonyms(cellAt(colSynonymsJa)),
			SynonymsEn:       splitSynonyms(cellAt(colSynonymsEn)),
			Intractable:      cellAt(colIntractable) != "",
			ChildhoodChronic: cellAt(colChildhoodChronic) != "",
		}
		if _, dup := cat.byID[id]; dup {
			zap.L().Warn("catalog: duplicate disease id, keeping first", zap.String("id", id))
			continue
		}
		cat.byID[id] = rec
		cat.order = append(cat.order, id)
	}

	zap.L().Info("catalog: loaded", zap.Int("diseases", len(cat.order)))
	return cat, nil
}

func splitSynonyms(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// GetByID returns the disease with the given ID.
func (c *Catalog) GetByID(id string) (model.DiseaseRecord, bool) {
	rec, ok := c.byID[id]
	return rec, ok
}

// GetAll returns every disease in spreadsheet order.
func (c *Catalog) GetAll() []model.DiseaseRecord {
	out := make([]model.DiseaseRecord, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Counts returns totals for the two classification flags.
func (c *Catalog) Counts() (total, intractable, childhoodChronic int) {
	for _, id := range c.order {
		rec := c.byID[id]
		total++
		if rec.Intractable {
			intractable++
		}
		if rec.ChildhoodChronic {
			childhoodChronic++
		}
	}
	return total, intractable, childhoodChronic
}

// Search returns diseases whose names (optionally synonyms) contain query,
// case-insensitively, in spreadsheet order.
func (c *Catalog) Search(query string, includeSynonyms bool) []model.DiseaseRecord {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var out []model.DiseaseRecord
	for _, id := range c.order {
		rec := c.byID[id]
		if matches(rec, query, includeSynonyms) {
			out = append(out, rec)
		}
	}
	return out
}

func matches(rec model.DiseaseRecord, query string, includeSynonyms bool) bool {
	if strings.Contains(strings.ToLower(rec.NameJa), query) {
		return true
	}
	if rec.NameEn != "" && strings.Contains(strings.ToLower(rec.NameEn), query) {
		return true
	}
	if !includeSynonyms {
		return false
	}
	for _, syn := range rec.SynonymsJa {
		if strings.Contains(strings.ToLower(syn), query) {
			return true
		}
	}
	for _, syn := range rec.SynonymsEn {
		if strings.Contains(strings.ToLower(syn), query) {
			return true
		}
	}
	return false
}
