// Package predictiontest provides an in-process stand-in for the external
// prediction service.
package predictiontest

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/rwandaorbitguard/orbit-guard/internal/prediction"
)

// Documented samples and their expected classification.
var (
	RedAlertSample = prediction.Request{
		X: 1000, Y: 1000, Z: 1000,
		Vx: -0.907527, Vy: -3.804930, Vz: -2.024133,
	}
	GreenLightSample = prediction.Request{
		X: -8843.131454, Y: 13138.221690, Z: 100000.0,
		Vx: -0.907527, Vy: -3.804930, Vz: -2.024133,
	}
)

const (
	// SafetyThresholdKm is reported on every answer.
	SafetyThresholdKm = 50.0
	// ModelRMSEMeters is reported on every answer.
	ModelRMSEMeters = 312.5

	// missDistanceScale turns the position norm (metres) into a stand-in
	// miss distance in km for inputs other than the documented samples.
	missDistanceScale = 0.01
	sampleTolerance   = 1e-6
)

// Server is an httptest server answering like the prediction service.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	requests   []prediction.Request
	failStatus int
	block      chan struct{}
}

// NewServer starts a server. Callers must Close it.
func NewServer() *Server {
	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// FailWith makes subsequent requests answer with status code.
// Zero restores normal behaviour.
func (s *Server) FailWith(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = code
}

// Hold blocks every request until the returned release func is called.
func (s *Server) Hold() (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.block = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.block = nil
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Requests returns the decoded bodies received so far.
func (s *Server) Requests() []prediction.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]prediction.Request(nil), s.requests...)
}

// Classify returns the answer the server gives for req.
func Classify(req prediction.Request) prediction.Response {
	resp := prediction.Response{
		SafetyThresholdKm: SafetyThresholdKm,
		ModelRMSEMeters:   ModelRMSEMeters,
	}
	switch {
	case closeTo(req, RedAlertSample):
		resp.Status = prediction.StatusRedAlert
		resp.MissDistanceKm = 0.42
		return resp
	case closeTo(req, GreenLightSample):
		resp.Status = prediction.StatusGreenLight
		resp.MissDistanceKm = 1240.77
		return resp
	}
	resp.MissDistanceKm = req.Position().Norm() * missDistanceScale
	if resp.MissDistanceKm < SafetyThresholdKm {
		resp.Status = prediction.StatusRedAlert
	} else {
		resp.Status = prediction.StatusGreenLight
	}
	return resp
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req prediction.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	fail := s.failStatus
	block := s.block
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-r.Context().Done():
			return
		}
	}
	if fail != 0 {
		http.Error(w, http.StatusText(fail), fail)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Classify(req))
}

func closeTo(a, b prediction.Request) bool {
	av := []float64{a.X, a.Y, a.Z, a.Vx, a.Vy, a.Vz}
	bv := []float64{b.X, b.Y, b.Z, b.Vx, b.Vy, b.Vz}
	for i := range av {
		if math.Abs(av[i]-bv[i]) > sampleTolerance {
			return false
		}
	}
	return true
}
