/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/panelforge/internal/audit"
	"github.com/friendsincode/panelforge/internal/auth"
	"github.com/friendsincode/panelforge/internal/cache"
	"github.com/friendsincode/panelforge/internal/config"
	"github.com/friendsincode/panelforge/internal/events"
	"github.com/friendsincode/panelforge/internal/ingest"
	"github.com/friendsincode/panelforge/internal/models"
	"github.com/friendsincode/panelforge/internal/planner"
	"github.com/friendsincode/panelforge/internal/render"
	"github.com/friendsincode/panelforge/internal/schedule"
)

const defaultUploadLimit = 32 << 20 // 32 MB multipart cap when not configured

// API exposes HTTP handlers.
type API struct {
	db         *gorm.DB
	imports    *ingest.Service
	planner    *planner.Service
	cache      *cache.Cache
	bus        *events.Bus
	audit      *audit.Service
	basePolicy schedule.Policy
	uploadMax  int64
	adminToken string
	logger     zerolog.Logger
}

// New creates the API router wrapper. planCache may be nil; uploadMax of
// zero falls back to the built-in multipart limit. adminToken, when set,
// lets the key management routes be bootstrapped before any API key exists.
func New(db *gorm.DB, imports *ingest.Service, plannerSvc *planner.Service, planCache *cache.Cache, bus *events.Bus, auditSvc *audit.Service, basePolicy schedule.Policy, uploadMax int64, adminToken string, logger zerolog.Logger) *API {
	if uploadMax <= 0 {
		uploadMax = defaultUploadLimit
	}
	return &API{
		db:         db,
		imports:    imports,
		planner:    plannerSvc,
		cache:      planCache,
		bus:        bus,
		audit:      auditSvc,
		basePolicy: basePolicy,
		uploadMax:  uploadMax,
		adminToken: adminToken,
		logger:     logger,
	}
}

type planRequest struct {
	ImportID string                 `json:"import_id"`
	Panel    []panelMemberRequest   `json:"panel"`
	Policy   *config.PolicyDefaults `json:"policy"`
}

type panelMemberRequest struct {
	Person          string `json:"person"`
	DurationMinutes int    `json:"duration_minutes"`
}

type keyCreateRequest struct {
	Name          string `json:"name"`
	ExpiresInDays int    `json:"expires_in_days"`
}

// Routes mounts API routes on provided router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(a.db))

			pr.Route("/imports", func(r chi.Router) {
				r.Get("/", a.handleImportsList)
				r.Post("/", a.handleImportsCreate)
				r.Route("/{importID}", func(r chi.Router) {
					r.Get("/", a.handleImportsGet)
					r.Delete("/", a.handleImportsArchive)
				})
			})

			pr.Route("/plans", func(r chi.Router) {
				r.Get("/", a.handlePlansList)
				r.Post("/", a.handlePlansCreate)
				r.Route("/{planSetID}", func(r chi.Router) {
					r.Get("/", a.handlePlansGet)
					r.Get("/html", a.handlePlansHTML)
					r.Get("/ical", a.handlePlansICal)
				})
			})

			pr.Get("/audit", a.handleAuditList)
		})

		// Key management accepts the admin bootstrap token as well, so the
		// first key can be created before any key exists.
		r.Route("/keys", func(r chi.Router) {
			r.Use(a.keyManagementAuth)
			r.Get("/", a.handleKeysList)
			r.Post("/", a.handleKeysCreate)
			r.Delete("/{keyID}", a.handleKeysRevoke)
		})
	})
}

// keyManagementAuth admits requests carrying the configured admin token,
// falling back to regular API key auth otherwise.
func (a *API) keyManagementAuth(next http.Handler) http.Handler {
	keyed := auth.Middleware(a.db)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := r.Header.Get("X-Admin-Token"); token != "" && a.adminToken != "" {
			if subtle.ConstantTimeCompare([]byte(token), []byte(a.adminToken)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		keyed.ServeHTTP(w, r)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleImportsCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.uploadMax)
	if err := r.ParseMultipartForm(a.uploadMax); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_multipart")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file_required")
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}
	timezone := r.FormValue("timezone")
	if timezone == "" {
		timezone = "UTC"
	}

	imp, result, err := a.imports.CreateImport(r.Context(), name, timezone, header.Filename, file)
	if err != nil {
		if imp != nil && imp.Status == models.AvailabilityImportFailed {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error":     "csv_parse_failed",
				"detail":    imp.Error,
				"import_id": imp.ID,
			})
			return
		}
		a.logger.Error().Err(err).Msg("import upload failed")
		writeError(w, http.StatusBadRequest, "import_failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"import":       imp,
		"persons":      result.Persons,
		"rows":         result.RowCount,
		"skipped_rows": result.Skipped,
	})
}

func (a *API) handleImportsList(w http.ResponseWriter, r *http.Request) {
	imports, err := a.imports.ListImports(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list imports failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, imports)
}

func (a *API) handleImportsGet(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")

	if a.cache != nil {
		if imp, ok := a.cache.GetImport(r.Context(), importID); ok {
			writeJSON(w, http.StatusOK, imp)
			return
		}
	}

	imp, err := a.imports.GetImport(r.Context(), importID)
	if errors.Is(err, ingest.ErrImportNotFound) {
		writeError(w, http.StatusNotFound, "import_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if a.cache != nil {
		_ = a.cache.SetImport(r.Context(), imp)
	}

	writeJSON(w, http.StatusOK, imp)
}

func (a *API) handleImportsArchive(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")
	err := a.imports.ArchiveImport(r.Context(), importID)
	if errors.Is(err, ingest.ErrImportNotFound) {
		writeError(w, http.StatusNotFound, "import_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if a.cache != nil {
		_ = a.cache.InvalidateImportPlans(r.Context(), importID)
	}
	// Cached plan sets derived from this import are flushed individually.
	if sets, err := a.planner.List(r.Context(), importID); err == nil {
		for _, set := range sets {
			a.bus.Publish(events.EventPlanInvalidated, events.Payload{"plan_set_id": set.ID})
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handlePlansCreate(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.ImportID == "" {
		writeError(w, http.StatusBadRequest, "import_id_required")
		return
	}
	if len(req.Panel) == 0 {
		writeError(w, http.StatusBadRequest, "panel_required")
		return
	}

	policy := a.basePolicy
	if req.Policy != nil {
		var err error
		policy, err = req.Policy.Apply(policy)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":  "invalid_policy",
				"detail": err.Error(),
			})
			return
		}
	}

	panel := make(models.PanelRequest, 0, len(req.Panel))
	for _, member := range req.Panel {
		panel = append(panel, models.PanelMember{
			Person:          member.Person,
			DurationMinutes: member.DurationMinutes,
		})
	}

	planSet, err := a.planner.Run(r.Context(), planner.Request{
		ImportID: req.ImportID,
		Panel:    panel,
		Policy:   policy,
	})
	if errors.Is(err, ingest.ErrImportNotFound) {
		writeError(w, http.StatusNotFound, "import_not_found")
		return
	}
	var cfgErr *schedule.ConfigError
	if errors.As(err, &cfgErr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  "invalid_config",
			"detail": cfgErr.Error(),
		})
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusGatewayTimeout, "plan_timeout")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("planning run failed")
		writeError(w, http.StatusInternalServerError, "plan_failed")
		return
	}

	writeJSON(w, http.StatusCreated, planSet)
}

func (a *API) handlePlansList(w http.ResponseWriter, r *http.Request) {
	sets, err := a.planner.List(r.Context(), r.URL.Query().Get("import_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, sets)
}

func (a *API) handlePlansGet(w http.ResponseWriter, r *http.Request) {
	planSet, err := a.planner.Get(r.Context(), chi.URLParam(r, "planSetID"))
	if errors.Is(err, planner.ErrPlanNotFound) {
		writeError(w, http.StatusNotFound, "plan_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, planSet)
}

func (a *API) handlePlansHTML(w http.ResponseWriter, r *http.Request) {
	planSetID := chi.URLParam(r, "planSetID")

	if a.cache != nil {
		if html, ok := a.cache.GetPlanHTML(r.Context(), planSetID); ok {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(html))
			return
		}
	}

	doc, err := a.planDocument(r.Context(), planSetID)
	if err != nil {
		a.writeDocumentError(w, err)
		return
	}

	html, err := render.HTML(*doc)
	if err != nil {
		a.logger.Error().Err(err).Str("plan_set_id", planSetID).Msg("render plan html failed")
		writeError(w, http.StatusInternalServerError, "render_failed")
		return
	}

	if a.cache != nil {
		_ = a.cache.SetPlanHTML(r.Context(), planSetID, string(html))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(html)
}

func (a *API) handlePlansICal(w http.ResponseWriter, r *http.Request) {
	planSetID := chi.URLParam(r, "planSetID")

	doc, err := a.planDocument(r.Context(), planSetID)
	if err != nil {
		a.writeDocumentError(w, err)
		return
	}

	result, err := render.ICal(*doc)
	if err != nil {
		a.logger.Error().Err(err).Str("plan_set_id", planSetID).Msg("render plan ical failed")
		writeError(w, http.StatusInternalServerError, "render_failed")
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	_, _ = w.Write(result.Data)
}

// planDocument assembles the render inputs for a plan set: the stored
// options plus the import's display name and the policy's timezone.
func (a *API) planDocument(ctx context.Context, planSetID string) (*render.Document, error) {
	planSet, err := a.planner.Get(ctx, planSetID)
	if err != nil {
		return nil, err
	}

	title := "Interview Plan"
	if imp, err := a.imports.GetImport(ctx, planSet.ImportID); err == nil {
		title = imp.Name
	}

	loc := time.UTC
	if planSet.Policy.Timezone != "" {
		if parsed, err := time.LoadLocation(planSet.Policy.Timezone); err == nil {
			loc = parsed
		}
	}

	return &render.Document{
		Title:    title,
		PlanSet:  planSet,
		Location: loc,
	}, nil
}

func (a *API) writeDocumentError(w http.ResponseWriter, err error) {
	if errors.Is(err, planner.ErrPlanNotFound) {
		writeError(w, http.StatusNotFound, "plan_not_found")
		return
	}
	writeError(w, http.StatusInternalServerError, "db_error")
}

func (a *API) handleKeysCreate(w http.ResponseWriter, r *http.Request) {
	var req keyCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}
	if req.ExpiresInDays <= 0 {
		req.ExpiresInDays = 90
	}

	plaintext, apiKey, err := auth.GenerateAPIKey(req.Name, time.Duration(req.ExpiresInDays)*24*time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "key_generation_failed")
		return
	}
	if err := a.db.WithContext(r.Context()).Create(apiKey).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.bus.Publish(events.EventAuditAPIKeyCreate, events.Payload{
		"key_id":   apiKey.ID,
		"key_name": apiKey.Name,
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"key":     plaintext,
		"api_key": apiKey,
	})
}

func (a *API) handleKeysList(w http.ResponseWriter, r *http.Request) {
	keys, err := auth.ListAPIKeys(a.db.WithContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (a *API) handleKeysRevoke(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "keyID")
	err := auth.RevokeAPIKey(a.db.WithContext(r.Context()), keyID)
	if errors.Is(err, auth.ErrAPIKeyNotFound) {
		writeError(w, http.StatusNotFound, "key_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.bus.Publish(events.EventAuditAPIKeyRevoke, events.Payload{"key_id": keyID})

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAuditList(w http.ResponseWriter, r *http.Request) {
	if a.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "audit_not_available")
		return
	}

	filters := audit.QueryFilters{}
	if raw := r.URL.Query().Get("action"); raw != "" {
		action := models.AuditAction(raw)
		filters.Action = &action
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			filters.Limit = limit
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset > 0 {
			filters.Offset = offset
		}
	}

	logs, total, err := a.audit.Query(r.Context(), filters)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"logs":  logs,
		"total": total,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
