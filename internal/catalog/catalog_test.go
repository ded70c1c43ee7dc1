package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeFixture(t *testing.T, rows ...[]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("NANDO")
	require.NoError(t, err)
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}
	path := filepath.Join(t.TempDir(), "nando.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

var fixtureHeader = []string{
	"NANDO ID", "疾患名（日本語）", "疾患名類義語（日本語）",
	"疾患名（英語）", "疾患名類義語（英語）",
	"指定難病情報センター", "小児慢性特定疾病情報センター",
}

func loadFixture(t *testing.T) *Catalog {
	t.Helper()
	path := writeFixture(t,
		fixtureHeader,
		[]string{"NANDO:1200964", "筋ジストロフィー", "進行性筋ジストロフィー, PMD", "muscular dystrophy", "MD", "https://example.org/113", ""},
		[]string{"NANDO:1200001", "ベーチェット病", "", "Behcet's disease", "", "https://example.org/56", "https://example.org/c/56"},
		[]string{"NANDO:0000001", "難病", "", "intractable disease", "", "", ""},
	)
	cat, err := Load(path)
	require.NoError(t, err)
	return cat
}

func TestLoadParsesRows(t *testing.T) {
	cat := loadFixture(t)

	rec, ok := cat.GetByID("NANDO:1200964")
	require.True(t, ok)
	assert.Equal(t, "筋ジストロフィー", rec.NameJa)
	assert.Equal(t, "muscular dystrophy", rec.NameEn)
	assert.Equal(t, []string{"進行性筋ジストロフィー", "PMD"}, rec.SynonymsJa)
	assert.Equal(t, []string{"MD"}, rec.SynonymsEn)
	assert.True(t, rec.Intractable)
	assert.False(t, rec.ChildhoodChronic)

	rec, ok = cat.GetByID("NANDO:1200001")
	require.True(t, ok)
	assert.True(t, rec.ChildhoodChronic)

	rec, ok = cat.GetByID("NANDO:0000001")
	require.True(t, ok)
	assert.False(t, rec.Intractable)
	assert.Nil(t, rec.SynonymsJa)

	_, ok = cat.GetByID("NANDO:9999999")
	assert.False(t, ok)
}

func TestGetAllPreservesSpreadsheetOrder(t *testing.T) {
	cat := loadFixture(t)
	all := cat.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, "NANDO:1200964", all[0].ID)
	assert.Equal(t, "NANDO:1200001", all[1].ID)
	assert.Equal(t, "NANDO:0000001", all[2].ID)
}

func TestCounts(t *testing.T) {
	cat := loadFixture(t)
	total, intractable, childhood := cat.Counts()
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, intractable)
	assert.Equal(t, 1, childhood)
}

func TestSearch(t *testing.T) {
	cat := loadFixture(t)

	t.Run("japanese name", func(t *testing.T) {
		hits := cat.Search("ジストロフィー", true)
		require.Len(t, hits, 1)
		assert.Equal(t, "NANDO:1200964", hits[0].ID)
	})

	t.Run("english name case-insensitive", func(t *testing.T) {
		hits := cat.Search("BEHCET", true)
		require.Len(t, hits, 1)
		assert.Equal(t, "NANDO:1200001", hits[0].ID)
	})

	t.Run("synonym only matched when included", func(t *testing.T) {
		assert.Len(t, cat.Search("PMD", true), 1)
		assert.Empty(t, cat.Search("PMD", false))
	})

	t.Run("empty query", func(t *testing.T) {
		assert.Empty(t, cat.Search("  ", true))
	})
}

func TestLoadSkipsBlankAndDuplicateIDs(t *testing.T) {
	path := writeFixture(t,
		fixtureHeader,
		[]string{"NANDO:1", "疾患A", "", "", "", "", ""},
		[]string{"", "IDなし", "", "", "", "", ""},
		[]string{"NANDO:1", "疾患A重複", "", "", "", "x", ""},
	)
	cat, err := Load(path)
	require.NoError(t, err)

	all := cat.GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, "疾患A", all[0].NameJa, "first occurrence wins")
	assert.False(t, all[0].Intractable)
}

func TestLoadMissingIDColumn(t *testing.T) {
	path := writeFixture(t,
		[]string{"疾患名（日本語）"},
		[]string{"筋ジストロフィー"},
	)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NANDO ID")
}

func TestLoadNoDataRows(t *testing.T) {
	path := writeFixture(t, fixtureHeader)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.xlsx"))
	require.Error(t, err)
}
