// Package server exposes the finder core over a local HTTP API for a
// companion frontend. State lives in the same store the CLI uses; this is
// not a remote storage service.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/rs/cors"

	"github.com/kass/go-resource-finder/pkg/location"
	"github.com/kass/go-resource-finder/pkg/models"
	"github.com/kass/go-resource-finder/pkg/places"
	"github.com/kass/go-resource-finder/pkg/saved"
	"github.com/kass/go-resource-finder/pkg/view"
)

// Server wires the core components behind HTTP handlers. The session is
// shared across requests so a save can reference the last search's results.
type Server struct {
	finder  *places.Finder
	saved   *saved.Store
	loc     *location.State
	creds   *places.Credentials
	session *view.Session
	mu      sync.Mutex
}

// New builds a server over the given components.
func New(finder *places.Finder, savedStore *saved.Store, loc *location.State, creds *places.Credentials) *Server {
	return &Server{
		finder:  finder,
		saved:   savedStore,
		loc:     loc,
		creds:   creds,
		session: view.NewSession(savedStore),
	}
}

// Handler returns the routed handler with CORS applied for local frontends.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /saved", s.handleSavedList)
	mux.HandleFunc("POST /saved/{id}", s.handleSave)
	mux.HandleFunc("DELETE /saved/{id}", s.handleRemove)
	mux.HandleFunc("GET /location", s.handleGetLocation)
	mux.HandleFunc("PUT /location", s.handlePutLocation)
	mux.HandleFunc("PUT /key", s.handlePutKey)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})
	return c.Handler(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type searchResponse struct {
	Results    []models.Card `json:"results"`
	Count      int           `json:"count"`
	Cached     bool          `json:"cached"`
	SavedCount int           `json:"saved_count"`
	Error      string        `json:"error,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		query = places.DefaultCategory
	}
	radius, _ := strconv.Atoi(r.URL.Query().Get("radius"))
	if radius == 0 {
		radius = places.DefaultRadius
	}
	category := r.URL.Query().Get("category")
	mode, err := view.ParseSortMode(r.URL.Query().Get("sort"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.finder.Search(r.Context(), query, radius, category, s.loc.Load())

	s.mu.Lock()
	s.session.SetSearchResults(result.Places)
	s.session.SetSortMode(mode)
	cards := s.session.Display()
	savedCount := s.session.SavedCount()
	s.mu.Unlock()

	resp := searchResponse{
		Results:    cards,
		Count:      len(cards),
		Cached:     result.FromCache,
		SavedCount: savedCount,
	}
	status := http.StatusOK
	switch {
	case errors.Is(err, places.ErrMissingAPIKey):
		resp.Error = "missing API key"
		status = http.StatusPreconditionFailed
	case err != nil:
		log.Println("Search error:", err)
		resp.Error = "fetch failed"
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleSavedList(w http.ResponseWriter, r *http.Request) {
	mode, err := view.ParseSortMode(r.URL.Query().Get("sort"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	list := view.SortResources(s.saved.List(), mode)
	writeJSON(w, http.StatusOK, map[string]any{
		"resources": list,
		"count":     len(list),
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	results := s.session.SearchResults()
	s.mu.Unlock()

	rec, ok, err := s.saved.Save(id, results)
	if err != nil {
		http.Error(w, "failed to save", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "place not in current results", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.saved.Remove(r.PathValue("id")); err != nil {
		http.Error(w, "failed to remove", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.loc.Load())
}

func (s *Server) handlePutLocation(w http.ResponseWriter, r *http.Request) {
	var coord models.Coordinate
	if err := json.NewDecoder(r.Body).Decode(&coord); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	// Reject out-of-range input before it reaches the persisted state.
	if err := location.Validate(coord.Lat, coord.Lng); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	saved, err := s.loc.Save(coord.Lat, coord.Lng)
	if err != nil {
		http.Error(w, "failed to save location", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handlePutKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := s.creds.Set(body.Key); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
