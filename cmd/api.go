package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nando-support/discovery-cli/internal/collection"
	"github.com/nando-support/discovery-cli/internal/model"
	"github.com/nando-support/discovery-cli/internal/planner"
	"github.com/nando-support/discovery-cli/internal/store"
	"github.com/nando-support/discovery-cli/internal/sweep"
	"github.com/nando-support/discovery-cli/internal/usage"
	"github.com/nando-support/discovery-cli/pkg/llm"
)

func newRouter(e *env) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/diseases", e.handleListDiseases)
		r.Route("/diseases/{diseaseID}", func(r chi.Router) {
			r.Get("/", e.handleGetDisease)
			r.Get("/search-config", e.handleGetSearchConfig)
			r.Put("/search-config", e.handlePutSearchConfig)
			r.Post("/search-terms", e.handleAddSearchTerm)
			r.Put("/search-terms/{termID}", e.handleUpdateSearchTerm)
			r.Delete("/search-terms/{termID}", e.handleDeleteSearchTerm)
			r.Post("/search", e.handleSearch)
			r.Get("/organizations", e.handleGetOrganizations)
			r.Post("/organizations/validate", e.handleValidateOrganization)
			r.Post("/availability/check", e.handleCheckAvailability)
			r.Get("/availability", e.handleAvailabilityStatus)
			r.Get("/manual-entries", e.handleListManualEntries)
			r.Post("/manual-entries", e.handleAddManualEntry)
			r.Get("/stats", e.handleGetStats)
		})
		r.Get("/stats", e.handleAllStats)
		r.Post("/sweep", e.handleStartSweep)
		r.Delete("/sweep", e.handleCancelSweep)
		r.Get("/sweep/status", e.handleSweepStatus)
		r.Get("/sweep/jobs/{jobID}", e.handleSweepJob)
		r.Get("/usage", e.handleUsage)
		r.Get("/models", e.handleModels)
	})

	return r
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (e *env) diseaseFromPath(w http.ResponseWriter, r *http.Request) (model.DiseaseRecord, bool) {
	id := chi.URLParam(r, "diseaseID")
	disease, ok := e.catalog.GetByID(id)
	if !ok {
		respondError(w, http.StatusNotFound, "disease not found: "+id)
		return model.DiseaseRecord{}, false
	}
	return disease, true
}

func (e *env) handleListDiseases(w http.ResponseWriter, r *http.Request) {
	var diseases []model.DiseaseRecord
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		includeSynonyms := r.URL.Query().Get("include_synonyms") != "false"
		diseases = e.catalog.Search(q, includeSynonyms)
	} else {
		diseases = e.catalog.GetAll()
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"diseases": diseases,
		"total":    len(diseases),
	})
}

func (e *env) handleGetDisease(w http.ResponseWriter, r *http.Request) {
	disease, ok := e.diseaseFromPath(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, disease)
}

// loadOrDefaultConfig returns the stored search config, or a default seeded
// from the catalog when none has been saved yet.
func (e *env) loadOrDefaultConfig(disease model.DiseaseRecord) (*model.SearchConfig, error) {
	sc, err := e.store.LoadSearchConfig(disease.ID)
	if eris.Is(err, store.ErrNotFound) {
		seeded := planner.DefaultConfig(disease)
		return &seeded, nil
	}
	return sc, err
}

func (e *env) handleGetSearchConfig(w http.ResponseWriter, r *http.Request) {
	disease, ok := e.diseaseFromPath(w, r)
	if !ok {
		return
	}
	sc, err := e.loadOrDefaultConfig(disease)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "load search config")
		return
	}
	respondJSON(w, http.StatusOK, sc)
}

func (e *env) handlePutSearchConfig(w http.ResponseWriter, r *http.Request) {
	disease, ok := e.diseaseFromPath(w, r)
	if !ok {
		return
	}
	var sc model.SearchConfig
	if !decodeJSON(w, r, &sc) {
		return
	}
	for _, t := range sc.Terms {
		if strings.TrimSpace(t.Term) == "" {
			respondError(w, http.StatusBadRequest, "search term text is required")
			return
		}
		if !model.ValidTermRole(string(t.Role)) {
			respondError(w, http.StatusBadRequest, "unknown term type: "+string(t.Role))
			return
		}
		if !planner.ValidLanguage(t.Language) {
			respondError(w, http.StatusBadRequest, "invalid language tag: "+t.Language)
			return
		}
	}
	sc.DiseaseID = disease.ID
	sc.LastUpdated = time.Now()
	if err := e.store.SaveSearchConfig(&sc); err != nil {
		respondError(w, http.StatusInternalServerError, "save search config")
		return
	}
	respondJSON(w, http.StatusOK, sc)
}

type searchTermRequest struct {
	Term     string `json:"term"`
	Language string `json:"language"`
	Role     string `json:"type"`
	Enabled  *bool  `json:"enabled"`
}

func (e *env) handleAddSearchTerm(w http.ResponseWriter, r *http.Request) {
	disease, ok := e.diseaseFromPath(w, r)
	if !ok {
		return
	}
	var req searchTermRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Term) == "" {
		respondError(w, http.StatusBadRequest, "term is required")
		return
	}
	if req.Language == "" {
		req.Language = "ja"
	}
	if !planner.ValidLanguage(req.Language) {
		respondError(w, http.StatusBadRequest, "invalid language tag: "+req.Language)
		return
	}
	if req.Role == "" {
		req.Role = string(model.TermRoleGeneral)
	}
	if !model.ValidTermRole(req.Role) {
		respondError(w, http.StatusBadRequest, "unknown term type: "+req.Role)
		return
	}

	sc, err := e.loadOrDefaultConfig(disease)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "load search config")
		return
	}

	now := time.Now()
	term := model.SearchTerm{
		ID:        uuid.NewString(),
		Term:      strings.TrimSpace(req.Term),
		Language:  req.Language,
		Role:      model.TermRole(req.Role),
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sc.Terms = append(sc.Terms, term)
	sc.LastUpdated = now
	if err := e.store.SaveSearchConfig(sc); err != nil {
		respondError(w, http.StatusInternalServerError, "save search config")
		return
	}
	respondJSON(w, http.StatusCreated, term)
}

func (e *env) handleUpdateSearchTerm(w http.ResponseWriter, r *http.Request) {
	disease, ok := e.diseaseFromPath(w, r)
	if !ok {
		return
	}
	var req searchTermRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sc, err := e.store.LoadSearchConfig(disease.ID)
	if eris.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "no search config for disease")
		return
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, "load search config")
		return
	}

	termID := chi.URLParam(r, "termID")
	var term *model.SearchTerm
	for i := range sc.Terms {
		if sc.Terms[i].ID == termID {
			term = &sc.Terms[i]
			break
		}
	}
	if term == nil {
		respondError(w, http.StatusNotFound, "search term not found: "+termID)
		return
	}

	if req.Term != "" {
		term.Term = strings.TrimSpace(req.Term)
	}
	if req.Language != "" {
		if !planner.ValidLanguage(req.Language) {
			respondError(w, http.StatusBadRequest, "invalid language tag: "+req.Language)
			return
		}
		term.Language = req.Language
	}
	if req.Role != "" {
		if !model.ValidTermRole(req.Role) {
			respondError(w, http.StatusBadRequest, "unknown term type: "+req.Role)
			return
		}
		term.Role = model.TermRole(req.Role)
	}
	if req.Enabled != nil {
		term.Enabled = *req.Enabled
	}
	term.UpdatedAt = time.Now()
	sc.LastUpdated = term.UpdatedAt

	if err := e.store.SaveSearchConfig(sc); err != nil {
		respondError(w, http.StatusInternalServerError, "save search config")
		return
	}
	respondJSON(w, http.StatusOK, term)
}

func (e *env) handleDeleteSearchTerm(w http.ResponseWriter, r *http.Request) {
	disease, ok := e.diseaseFromPath(w, r)
	if !ok {
		return
	}
	sc, err := e.store.LoadSearchConfig(disease.ID)
	if eris.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "no search config for disease")
		return
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, "load search config")
		return
	}

	termID := chi.URLParam(r, "termID")
	kept := sc.Terms[:0]
	found := false
	for _, t := range sc.Terms {
		if t.ID == termID {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	if !found {
		respondError(w, http.StatusNotFound, "search term not found: "+termID)
		return
	}
	sc.Terms = kept
	sc.LastUpdated = time.Now()

	if err := e.store.SaveSearchConfig(sc); err != nil {
		respondError(w, http.StatusInternalServerError, "save search config")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": termID})
}

func (e *env) handleSearch(w http.ResponseWriter, r *http.Request) {
	disease, ok := e.diseaseFromPath(w, r)
	if !ok {
		return
	}
	stats, err := e.runner.SearchAndUpdate(r.Context(), disease)
	if err != nil {
		zap.L().Error("api: search failed", zap.String("disease", disease.ID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (e *env) handleGetOrganizations(w http.ResponseWriter, r *http.Request) {
	disease, ok := e.diseaseFromPath(w, r)
	if !ok {
		return
	}
	col, err := e.store.LoadCollection(disease.ID)
	if eris.Is(err, store.ErrNotFound) {
		col = &model.OrganizationCollection{DiseaseID: disease.ID, DiseaseName: disease.NameJa}
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, "load collection")
		return
	}
	respondJSON(w, http.StatusOK, col)
}

type validateRequest struct {
	URL     string `json:"url"`
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

func (e *env) handleValidateOrganization(w http.ResponseWriter, r *http.Request) {
	disease, ok := e.diseaseFromPath(w, r)
	if !ok {
		return
	}
	var req validateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	col, err := e.store.LoadCollection(disease.ID)
	if eris.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "no organizations for disease")
		return
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, "load collection")
		return
	}

	org, err := collection.ApplyHumanValidation(col, req.URL, req.Approve, req.Notes)
	if eris.Is(err, collection.ErrNotFound) {
		respondError(w, http.StatusNotFound, "organization not found: "+req.URL)
		return
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, "apply validation")
		return
	}

	col.LastUpdated = time.Now()
	if err := e.store.SaveCollection(col); err != nil {
		respondError(w, http.StatusInternalServerError, "save collection")
		return
	}
	e.refreshStatusCounts(disease, col)

	respondJSON(w, http.StatusOK, org)
}

// availabilityStatus is one organization's current availability view.
type availabilityStatus struct {
	URL            string                     `json:"url"`
	Name           string                     `json:"name"`
	Available      bool                       `json:"is_available"`
	LastChecked    time.Time                  `json:"last_checked,omitzero"`
	StatusCode     int                        `json:"status_code,omitempty"`
	ResponseTimeMs int64                      `json:"response_time_ms,omitempty"`
	Error          string                     `json:"error_message,omitempty"`
	History        []model.AvailabilityRecord `json:"history,omitempty"`
}

func availabilityView(org *model.ValidatedOrganization) availabilityStatus {
	st := availabilityStatus{
		URL:         org.URL,
		Name:        org.Name,
		Available:   org.Available,
		LastChecked: org.LastChecked,
		History:     org.AvailabilityLog,
	}
	if n := len(org.AvailabilityLog); n > 0 {
		last := org.AvailabilityLog[n-1]
		st.StatusCode = last.StatusCode
		st.ResponseTimeMs = last.ResponseTimeMs
		st.Error = last.Error
	}
	return st
}

// handleCheckAvailability probes every organization's site in the disease's
// collection and records the results in each availability history.
func (e *env) handleCheckAvailability(w http.ResponseWriter, r *http.Request) {
	disease, ok := e.diseaseFromPath(w, r)
	if !ok {
		return
	}
	col, err := e.store.LoadCollection(disease.ID)
	if eris.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "no organizations for disease")
		return
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, "load collection")
		return
	}

	g, gctx := errgroup.WithContext(r.Context())
	g.SetLimit(4)
	for i := range col.Organizations {
		org := &col.Organizations[i]
		g.Go(func() error {
			res := e.checker.Check(gctx, org.URL)
			org.RecordAvailability(model.AvailabilityRecord{
				URL:            org.URL,
				CheckedAt:      time.Now(),
				Available:      res.Available,
				StatusCode:     res.StatusCode,
				ResponseTimeMs: res.ResponseTimeMs,
				Error:          res.Error,
			})
			return nil
		})
	}
	g.Wait() //nolint:errcheck // probes never return errors

	col.LastUpdated = time.Now()
	if err := e.store.SaveCollection(col); err != nil {
		respondError(w, http.StatusInternalServerError, "save collection")
		return
	}
	e.refreshStatusCounts(disease, col)

	statuses := make([]availabilityStatus, 0, len(col.Organizations))
	available := 0
	for i := range col.Organizations {
		if col.Organizations[i].Available {
			available++
		}
		statuses = append(statuses, availabilityView(&col.Organizations[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"checked":       len(col.Organizations),
		"available":     available,
		"unavailable":   len(col.Organizations) - available,
		"organizations": statuses,
	})
}

// handleAvailabilityStatus reports the recorded availability of each
// organization, including the probe history, without probing.
func (e *env) handleAvailabilityStatus(w http.ResponseWriter, r *http.Request) {
	disease, ok := e.diseaseFromPath(w, r)
	if !ok {
		return
	}
	col, err := e.store.LoadCollection(disease.ID)
	if eris.Is(err, store.ErrNotFound) {
		respondJSON(w, http.StatusOK, []availabilityStatus{})
		return
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, "load collection")
		return
	}
	statuses := make([]availabilityStatus, 0, len(col.Organizations))
	for i := range col.Organizations {
		statuses = append(statuses, availabilityView(&col.Organizations[i]))
	}
	respondJSON(w, http.StatusOK, statuses)
}

// refreshStatusCounts updates the persisted stats after a human decision.
// Best effort: a stats write failure is logged, not surfaced.
func (e *env) refreshStatusCounts(disease model.DiseaseRecord, col *model.OrganizationCollection) {
	stats, err := e.store.LoadStats(disease.ID)
	if eris.Is(err, store.ErrNotFound) {
		stats = &model.SearchStats{DiseaseID: disease.ID, DiseaseName: disease.NameJa}
	} else if err != nil {
		zap.L().Warn("api: load stats", zap.String("disease", disease.ID), zap.Error(err))
		return
	}
	counts := model.CountByStatus(col.Organizations)
	stats.VerifiedCount = counts[model.StatusVerified]
	stats.ApprovedCount = counts[model.StatusHumanApproved]
	stats.RejectedCount = counts[model.StatusRejected]
	stats.OrganizationStats = model.ComputeOrganizationStats(col)
	if err := e.store.SaveStats(stats); err != nil {
		zap.L().Warn("api: save stats", zap.String("disease", disease.ID), zap.Error(err))
	}
}

func (e *env) handleListManualEntries(w http.ResponseWriter, r *http.Request) {
	disease, ok := e.diseaseFromPath(w, r)
	if !ok {
		return
	}
	col, err := e.store.LoadCollection(disease.ID)
	if eris.Is(err, store.ErrNotFound) {
		respondJSON(w, http.StatusOK, []model.ManualEntry{})
		return
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, "load collection")
		return
	}
	entries := col.ManualEntries
	if entries == nil {
		entries = []model.ManualEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

type manualEntryRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	URL       string `json:"url"`
	EntryType string `json:"entry_type"`
}

func (e *env) handleAddManualEntry(w http.ResponseWriter, r *http.Request) {
	disease, ok := e.diseaseFromPath(w, r)
	if !ok {
		return
	}
	var req manualEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	switch req.EntryType {
	case "note", "contact", "resource":
	case "":
		req.EntryType = "note"
	default:
		respondError(w, http.StatusBadRequest, "unknown entry type: "+req.EntryType)
		return
	}

	col, err := e.store.LoadCollection(disease.ID)
	if eris.Is(err, store.ErrNotFound) {
		col = &model.OrganizationCollection{DiseaseID: disease.ID, DiseaseName: disease.NameJa}
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, "load collection")
		return
	}

	now := time.Now()
	entry := model.ManualEntry{
		ID:        uuid.NewString(),
		DiseaseID: disease.ID,
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		URL:       req.URL,
		EntryType: req.EntryType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	col.ManualEntries = append(col.ManualEntries, entry)
	col.LastUpdated = now
	if err := e.store.SaveCollection(col); err != nil {
		respondError(w, http.StatusInternalServerError, "save collection")
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

func (e *env) handleGetStats(w http.ResponseWriter, r *http.Request) {
	disease, ok := e.diseaseFromPath(w, r)
	if !ok {
		return
	}
	stats, err := e.store.LoadStats(disease.ID)
	if eris.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "no stats for disease: "+disease.ID)
		return
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, "load stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (e *env) handleAllStats(w http.ResponseWriter, r *http.Request) {
	all, err := e.store.AllStats()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "load stats")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"stats": all,
		"total": len(all),
	})
}

type sweepRequest struct {
	DiseaseIDs []string `json:"disease_ids"`
}

func (e *env) handleStartSweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}

	var diseases []model.DiseaseRecord
	if len(req.DiseaseIDs) > 0 {
		for _, id := range req.DiseaseIDs {
			disease, ok := e.catalog.GetByID(id)
			if !ok {
				respondError(w, http.StatusNotFound, "disease not found: "+id)
				return
			}
			diseases = append(diseases, disease)
		}
	} else {
		diseases = e.catalog.GetAll()
	}

	job, err := e.runner.StartSweep(diseases)
	if eris.Is(err, sweep.ErrSweepRunning) {
		respondJSON(w, http.StatusConflict, map[string]any{
			"error": "sweep already running",
			"job":   job,
		})
		return
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, "start sweep")
		return
	}
	respondJSON(w, http.StatusAccepted, job)
}

func (e *env) handleCancelSweep(w http.ResponseWriter, _ *http.Request) {
	if !e.runner.CancelSweep() {
		respondError(w, http.StatusNotFound, "no active sweep")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "canceling"})
}

func (e *env) handleSweepStatus(w http.ResponseWriter, _ *http.Request) {
	if job, ok := e.runner.ActiveJob(); ok {
		respondJSON(w, http.StatusOK, map[string]any{"active": true, "job": job})
		return
	}
	jobs := e.runner.Jobs()
	if len(jobs) == 0 {
		respondJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"active": false,
		"job":    jobs[len(jobs)-1],
	})
}

func (e *env) handleSweepJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	job, ok := e.runner.Job(id)
	if !ok {
		respondError(w, http.StatusNotFound, "job not found: "+id)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (e *env) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("scope") == "all" {
		// Lifetime totals across every persisted stats document.
		all, err := e.store.AllStats()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "load stats")
			return
		}
		var records []model.TokenUsage
		for _, st := range all {
			records = append(records, st.TokenUsage...)
		}
		respondJSON(w, http.StatusOK, usage.Summarize(records))
		return
	}
	respondJSON(w, http.StatusOK, e.ledger.Summary())
}

func (e *env) handleModels(w http.ResponseWriter, r *http.Request) {
	models := llm.AvailableModels(r.Context(), e.provider)
	respondJSON(w, http.StatusOK, map[string]any{
		"provider": e.provider.Name(),
		"current":  e.provider.Model(),
		"models":   models,
	})
}
