package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nando-support/discovery-cli/internal/catalog"
	"github.com/nando-support/discovery-cli/internal/model"
)

var (
	diseasesQuery    string
	diseasesSynonyms bool
	diseasesLimit    int
)

var diseasesCmd = &cobra.Command{
	Use:   "diseases",
	Short: "List or search the disease catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(cfg.Catalog.Path)
		if err != nil {
			return err
		}

		var diseases []model.DiseaseRecord
		if diseasesQuery != "" {
			diseases = cat.Search(diseasesQuery, diseasesSynonyms)
		} else {
			diseases = cat.GetAll()
		}

		total, intractable, childhood := cat.Counts()
		fmt.Printf("catalog: %d diseases (%d intractable, %d childhood chronic)\n", total, intractable, childhood)
		fmt.Printf("matched: %d\n\n", len(diseases))

		shown := 0
		for _, d := range diseases {
			if diseasesLimit > 0 && shown >= diseasesLimit {
				fmt.Printf("... and %d more\n", len(diseases)-shown)
				break
			}
			marker := " "
			if !d.Searchable() {
				marker = "-"
			}
			fmt.Printf("%s %-18s %s", marker, d.ID, d.NameJa)
			if d.NameEn != "" {
				fmt.Printf(" (%s)", d.NameEn)
			}
			fmt.Println()
			shown++
		}
		return nil
	},
}

func init() {
	diseasesCmd.Flags().StringVar(&diseasesQuery, "query", "", "filter by name")
	diseasesCmd.Flags().BoolVar(&diseasesSynonyms, "synonyms", true, "match synonyms too")
	diseasesCmd.Flags().IntVar(&diseasesLimit, "limit", 50, "max rows to print (0 for all)")
	rootCmd.AddCommand(diseasesCmd)
}
