package model

// DiseaseRecord is an immutable catalog entry loaded once from the NANDO
// spreadsheet at startup. Records are never mutated after load.
type DiseaseRecord struct {
	ID               string   `json:"disease_id"`
	NameJa           string   `json:"name_ja"`
	NameEn           string   `json:"name_en,omitempty"`
	SynonymsJa       []string `json:"synonyms_ja,omitempty"`
	SynonymsEn       []string `json:"synonyms_en,omitempty"`
	Intractable      bool     `json:"is_intractable"`
	ChildhoodChronic bool     `json:"is_childhood_chronic"`
}

// categoryNames are NANDO entries that name a disease category rather than a
// searchable disease. Sweeping them produces junk queries like "代謝系疾患 患者会".
var categoryNames = map[string]bool{
	"代謝系疾患": true, "神経・筋疾患": true, "循環器系疾患": true, "免疫系疾患": true,
	"皮膚・結合組織疾患": true, "血液系疾患": true, "腎・泌尿器系疾患": true,
	"呼吸器系疾患": true, "骨・関節系疾患": true, "内分泌系疾患": true,
	"視覚系疾患": true, "聴覚・平衡機能系疾患": true, "消化器系疾患": true,
	"耳鼻科系疾患": true,
}

// searchableGenerics are category-style names that still have real patient
// communities and are worth searching.
var searchableGenerics = map[string]bool{
	"染色体または遺伝子に変化を伴う症候群": true,
	"遺伝検査用疾患群":          true,
	"難病":                true,
	"指定難病":              true,
}

// Searchable reports whether the record names a concrete disease worth
// sweeping, as opposed to a category-level grouping.
func (d DiseaseRecord) Searchable() bool {
	if categoryNames[d.NameJa] {
		return searchableGenerics[d.NameJa]
	}
	return true
}
