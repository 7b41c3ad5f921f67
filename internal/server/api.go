package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/cloudscope/cloudscope/internal/errors"
	"github.com/cloudscope/cloudscope/internal/profiles"
	"github.com/cloudscope/cloudscope/telemetry"
	"github.com/cloudscope/cloudscope/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.CodeConfiguration, apperrors.CodeValidation:
		return http.StatusBadRequest
	case apperrors.CodeAuthentication:
		return http.StatusUnauthorized
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.WithContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Wrap(err, apperrors.CodeValidation, "invalid request body")
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, apperrors.New(apperrors.CodeValidation, "invalid profile id")
	}
	return id, nil
}

func redactAll(in []types.Profile) []types.Profile {
	out := make([]types.Profile, len(in))
	for i := range in {
		out[i] = in[i].Redacted()
	}
	return out
}

// enrichAccount fills in the account number behind the profile's
// credentials. Best effort: an unreachable STS just leaves the field
// empty.
func (s *Server) enrichAccount(r *http.Request, profile *types.Profile) {
	account, err := s.account(r.Context(), profile)
	if err != nil {
		s.log.WithContext(r.Context()).Warn().Err(err).Str("profile", profile.Name).
			Msg("could not resolve account number")
		return
	}
	profile.AccountNumber = account
}

// ─── Health & metrics ───

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := "ok"

	count, err := s.store.Count(ctx)
	if err != nil {
		status = "degraded"
	}

	var activeName any
	if active, err := s.store.Active(ctx); err == nil && active != nil {
		activeName = active.DisplayName()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"profiles":       count,
		"active_profile": activeName,
		"cache_enabled":  s.cacheEnabled,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	registry := telemetry.PrometheusRegistry
	if registry == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics not initialized")
		return
	}
	promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// ─── Profiles ───

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, redactAll(list))
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var in profiles.CreateProfileInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	token, err := profiles.ResolveSessionToken(r.Context(), in, s.account)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	profile := &types.Profile{
		Name:            in.Name,
		CustomName:      in.CustomName,
		AccessKeyID:     in.AccessKeyID,
		SecretAccessKey: in.SecretAccessKey,
		SessionToken:    token,
		Region:          in.Region,
	}
	s.enrichAccount(r, profile)

	created, err := s.store.Create(r.Context(), profile)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created.Redacted())
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	profile, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile.Redacted())
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	var in profiles.UpdateProfileInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	updated, err := s.store.Update(r.Context(), id, in.CustomName, in.Region)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated.Redacted())
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.inventory.InvalidateProfile(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImportCredentials(w http.ResponseWriter, r *http.Request) {
	var in profiles.ImportCredentialsInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	profile, err := profiles.ParseCredentials(in.CredentialsText, s.defaultRegion)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.enrichAccount(r, profile)

	created, err := s.store.Create(r.Context(), profile)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created.Redacted())
}

func (s *Server) handleImportConfig(w http.ResponseWriter, r *http.Request) {
	var in profiles.ImportConfigInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	candidates, problems, err := profiles.ParseConfig(r.Context(), in.ConfigText, s.store.GetByName)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	created := make([]types.Profile, 0, len(candidates))
	for i := range candidates {
		stored, err := s.store.Create(r.Context(), &candidates[i])
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		created = append(created, stored.Redacted())
	}

	if len(created) == 0 && len(problems) > 0 {
		writeError(w, http.StatusBadRequest, strings.Join(problems, "; "))
		return
	}
	if len(problems) > 0 {
		s.log.WithContext(r.Context()).Warn().Strs("problems", problems).Msg("config import partially failed")
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleFromRole(w http.ResponseWriter, r *http.Request) {
	var in profiles.FromRoleInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	source, err := s.store.Get(r.Context(), in.SourceProfileID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	profile, err := profiles.FromRole(r.Context(), in, source, s.account)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	created, err := s.store.Create(r.Context(), profile)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created.Redacted())
}

func (s *Server) handleDeactivateProfiles(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeactivateAll(r.Context()); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "all profiles deactivated"})
}

func (s *Server) handleActivateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	activated, err := s.store.Activate(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activated.Redacted())
}

// ─── Resources ───

func (s *Server) activeProfile(r *http.Request) (*types.Profile, error) {
	active, err := s.store.Active(r.Context())
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, apperrors.New(apperrors.CodeConfiguration, "no active profile")
	}
	return active, nil
}

func (s *Server) handleGetResources(w http.ResponseWriter, r *http.Request) {
	active, err := s.activeProfile(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	collection, err := s.inventory.GetAllResources(r.Context(), active)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, collection)
}

func (s *Server) handleRefreshResources(w http.ResponseWriter, r *http.Request) {
	active, err := s.activeProfile(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	collection, err := s.inventory.RefreshResources(r.Context(), active)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, collection)
}

func (s *Server) handleGetResourcesByCategory(w http.ResponseWriter, r *http.Request) {
	active, err := s.activeProfile(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	category := types.Category(r.PathValue("category"))
	collection, err := s.inventory.GetResourcesByCategory(r.Context(), active, category)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, collection)
}
