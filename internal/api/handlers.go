package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rwandaorbitguard/orbit-guard/internal/events"
	"github.com/rwandaorbitguard/orbit-guard/internal/logging"
	"github.com/rwandaorbitguard/orbit-guard/internal/prediction"
	"github.com/rwandaorbitguard/orbit-guard/internal/scene"
	"github.com/rwandaorbitguard/orbit-guard/internal/session"
	"github.com/rwandaorbitguard/orbit-guard/internal/stats"
	"github.com/rwandaorbitguard/orbit-guard/kb"
	"github.com/rwandaorbitguard/orbit-guard/model"
)

const maxBodyBytes = 1 << 16

var errBadRequest = errors.New("bad request")

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PredictResponse is the prediction answer plus its dashboard severity.
type PredictResponse struct {
	prediction.Response
	Severity model.Severity `json:"severity"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		WriteJSONError(r.Context(), w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := s.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	WriteJSON(r.Context(), w, http.StatusOK, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, err := session.FromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := s.sessions.Logout(r.Context(), sess.Token); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	s.dropSubmitter(sess.Token)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.sceneFor(w, r)
	if !ok {
		return
	}
	WriteJSON(r.Context(), w, http.StatusOK, stats.Compute(sc.Catalog()))
}

func (s *Server) handleSatellites(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.sceneFor(w, r)
	if !ok {
		return
	}
	WriteJSON(r.Context(), w, http.StatusOK, sc.Catalog().ListSatellites(satelliteFilter(r.URL.Query())))
}

func (s *Server) handleDebris(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.sceneFor(w, r)
	if !ok {
		return
	}
	WriteJSON(r.Context(), w, http.StatusOK, sc.Catalog().ListDebris(debrisFilter(r.URL.Query())))
}

func (s *Server) handleCollisions(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.sceneFor(w, r)
	if !ok {
		return
	}
	f, err := collisionFilter(r.URL.Query())
	if err != nil {
		WriteJSONError(r.Context(), w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(r.Context(), w, http.StatusOK, sc.Catalog().ListCollisions(f))
}

func (s *Server) handleRefreshCollisions(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.sceneFor(w, r)
	if !ok {
		return
	}
	if err := sc.RefreshCollisions(r.Context()); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	WriteJSON(r.Context(), w, http.StatusOK, sc.Catalog().ListCollisions(kb.CollisionFilter{}))
}

func (s *Server) handleOrbit(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.sceneFor(w, r)
	if !ok {
		return
	}
	path, err := sc.OrbitPath(r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	WriteJSON(r.Context(), w, http.StatusOK, path)
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.sceneFor(w, r)
	if !ok {
		return
	}
	f, err := sceneFilters(r.URL.Query())
	if err != nil {
		WriteJSONError(r.Context(), w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(r.Context(), w, http.StatusOK, sc.Snapshot(f))
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, err := session.FromContext(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var raw map[string]json.RawMessage
	if err := decodeBody(r, &raw); err != nil {
		WriteJSONError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	form := prediction.Form{
		X:  rawField(raw["x_start"]),
		Y:  rawField(raw["y_start"]),
		Z:  rawField(raw["z_start"]),
		Vx: rawField(raw["Vx_start"]),
		Vy: rawField(raw["Vy_start"]),
		Vz: rawField(raw["Vz_start"]),
	}
	// Invalid input never leaves the process, so it costs no rate budget.
	if _, err := form.Parse(); err != nil {
		writeError(ctx, w, err)
		return
	}
	if !s.limiter.Allow(clientKey(r)) {
		WriteJSONError(ctx, w, http.StatusTooManyRequests, "too many prediction requests")
		return
	}

	resp, err := s.submitter(sess.Token).Submit(ctx, form)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	out := PredictResponse{Response: resp, Severity: resp.Severity()}
	if err := s.publisher.Publish(ctx, events.ChannelPredictions, events.PredictionEvent{
		Status:         string(resp.Status),
		MissDistanceKm: resp.MissDistanceKm,
		Severity:       string(out.Severity),
		At:             s.clock(),
	}); err != nil {
		logging.FromContext(ctx, s.log).Warn(ctx, "prediction event dropped", logging.Err(err))
	}
	WriteJSON(ctx, w, http.StatusOK, out)
}

func (s *Server) sceneFor(w http.ResponseWriter, r *http.Request) (*scene.Scene, bool) {
	sess, err := session.FromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return nil, false
	}
	sc, err := sess.Scene()
	if err != nil {
		writeError(r.Context(), w, err)
		return nil, false
	}
	return sc, true
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body", errBadRequest)
	}
	return nil
}

// rawField turns a JSON string or number into the text the form validates.
func rawField(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func listParam[T ~string](q url.Values, key string) []T {
	var out []T
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, T(strings.ToLower(part)))
			}
		}
	}
	return out
}

func satelliteFilter(q url.Values) kb.SatelliteFilter {
	return kb.SatelliteFilter{
		Types:    listParam[model.SatelliteType](q, "type"),
		Statuses: listParam[model.SatelliteStatus](q, "status"),
		Query:    q.Get("q"),
	}
}

func debrisFilter(q url.Values) kb.DebrisFilter {
	return kb.DebrisFilter{
		Sizes: listParam[model.DebrisSize](q, "size"),
		Query: q.Get("q"),
	}
}

func collisionFilter(q url.Values) (kb.CollisionFilter, error) {
	f := kb.CollisionFilter{
		Severities: listParam[model.Severity](q, "severity"),
		Query:      q.Get("q"),
	}
	var err error
	if f.MinDistance, err = floatParam(q, "minDistance"); err != nil {
		return f, err
	}
	if f.MaxProbability, err = floatParam(q, "maxProbability"); err != nil {
		return f, err
	}
	return f, nil
}

func sceneFilters(q url.Values) (scene.Filters, error) {
	f := scene.DefaultFilters()
	toggles := map[string]*bool{
		"showSatellites": &f.ShowSatellites,
		"showDebris":     &f.ShowDebris,
		"showOrbits":     &f.ShowOrbits,
		"showCollisions": &f.ShowCollisions,
	}
	for key, dst := range toggles {
		if v := q.Get(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return f, fmt.Errorf("%s: %q is not a boolean", key, v)
			}
			*dst = b
		}
	}
	f.Satellites = kb.SatelliteFilter{Types: listParam[model.SatelliteType](q, "type")}
	f.Debris = kb.DebrisFilter{Sizes: listParam[model.DebrisSize](q, "size")}
	f.Collisions = kb.CollisionFilter{Severities: listParam[model.Severity](q, "severity")}
	return f, nil
}

func floatParam(q url.Values, key string) (float64, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, v)
	}
	return f, nil
}
