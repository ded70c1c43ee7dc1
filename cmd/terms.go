package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nando-support/discovery-cli/internal/catalog"
	"github.com/nando-support/discovery-cli/internal/model"
	"github.com/nando-support/discovery-cli/internal/planner"
	"github.com/nando-support/discovery-cli/internal/store"
)

var (
	termText     string
	termLanguage string
	termRole     string
	termID       string
)

var termsCmd = &cobra.Command{
	Use:   "terms <disease-id>",
	Short: "Show a disease's search terms",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, _, err := loadTermsConfig(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("disease: %s (two-step validation: %v, approximate matching: %v)\n\n",
			sc.DiseaseID, sc.TwoStepValidation, sc.UseApproximateMatching)
		for _, t := range sc.Terms {
			state := "enabled"
			if !t.Enabled {
				state = "disabled"
			}
			fmt.Printf("%s  [%s/%s] %-8s %s\n", t.ID, t.Language, t.Role, state, t.Term)
		}
		return nil
	},
}

var termsAddCmd = &cobra.Command{
	Use:   "add <disease-id>",
	Short: "Add a search term",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if termText == "" {
			return eris.New("--term is required")
		}
		if !planner.ValidLanguage(termLanguage) {
			return eris.Errorf("invalid language tag: %s", termLanguage)
		}
		if !model.ValidTermRole(termRole) {
			return eris.Errorf("unknown term type: %s", termRole)
		}

		sc, st, err := loadTermsConfig(args[0])
		if err != nil {
			return err
		}

		now := time.Now()
		term := model.SearchTerm{
			ID:        uuid.NewString(),
			Term:      termText,
			Language:  termLanguage,
			Role:      model.TermRole(termRole),
			Enabled:   true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		sc.Terms = append(sc.Terms, term)
		sc.LastUpdated = now
		if err := st.SaveSearchConfig(sc); err != nil {
			return eris.Wrap(err, "save search config")
		}

		fmt.Printf("added %s: %s\n", term.ID, term.Term)
		return nil
	},
}

var termsToggleCmd = &cobra.Command{
	Use:   "toggle <disease-id>",
	Short: "Enable or disable a search term",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if termID == "" {
			return eris.New("--id is required")
		}

		sc, st, err := loadTermsConfig(args[0])
		if err != nil {
			return err
		}

		for i := range sc.Terms {
			if sc.Terms[i].ID != termID {
				continue
			}
			sc.Terms[i].Enabled = !sc.Terms[i].Enabled
			sc.Terms[i].UpdatedAt = time.Now()
			sc.LastUpdated = sc.Terms[i].UpdatedAt
			if err := st.SaveSearchConfig(sc); err != nil {
				return eris.Wrap(err, "save search config")
			}
			fmt.Printf("%s enabled=%v\n", termID, sc.Terms[i].Enabled)
			return nil
		}
		return eris.Errorf("search term not found: %s", termID)
	},
}

// loadTermsConfig resolves the disease and returns its stored search config,
// seeding a default one when the disease has never been configured.
func loadTermsConfig(diseaseID string) (*model.SearchConfig, *store.Store, error) {
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "load disease catalog")
	}
	disease, ok := cat.GetByID(diseaseID)
	if !ok {
		return nil, nil, eris.Errorf("disease not found in catalog: %s", diseaseID)
	}

	st, err := store.New(cfg.Data.Dir)
	if err != nil {
		return nil, nil, eris.Wrap(err, "init store")
	}

	sc, err := st.LoadSearchConfig(disease.ID)
	if eris.Is(err, store.ErrNotFound) {
		seeded := planner.DefaultConfig(disease)
		return &seeded, st, nil
	} else if err != nil {
		return nil, nil, eris.Wrap(err, "load search config")
	}
	return sc, st, nil
}

func init() {
	termsAddCmd.Flags().StringVar(&termText, "term", "", "term text (required)")
	termsAddCmd.Flags().StringVar(&termLanguage, "language", "ja", "BCP 47 language tag")
	termsAddCmd.Flags().StringVar(&termRole, "type", string(model.TermRoleGeneral), "term type: patient, family, support, general")
	termsToggleCmd.Flags().StringVar(&termID, "id", "", "term ID (required)")

	termsCmd.AddCommand(termsAddCmd, termsToggleCmd)
	rootCmd.AddCommand(termsCmd)
}
