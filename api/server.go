package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"airracer/game/race"
	"airracer/protocol"
	ws "airracer/transport/websocket"
)

// Server is the HTTP server: WebSocket endpoint plus read-only ops API.
type Server struct {
	svc     *race.Service
	wsh     *ws.Handler
	router  *mux.Router
	version string
}

// NewServer creates an API server over the given race service.
func NewServer(svc *race.Service, wsh *ws.Handler, version string) *Server {
	s := &Server{
		svc:     svc,
		wsh:     wsh,
		router:  mux.NewRouter(),
		version: version,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{code}", s.handleGetRoom).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/info", s.handleInfo).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Handlers

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := s.svc.Rooms()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"rooms": rooms,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]

	if !race.ValidRoomCode(code) {
		respondError(w, http.StatusBadRequest, race.ErrInvalidRoomCode.Error())
		return
	}

	room, ok := s.svc.Room(code)
	if !ok {
		respondError(w, http.StatusNotFound, race.ErrRoomNotFound.Error())
		return
	}
	respondJSON(w, http.StatusOK, room)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// handleInfo advertises the websocket endpoint so a lobby page can derive the
// server address from its own host plus the fixed port convention.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":         "AirRacer Multiplayer Server",
		"version":      s.version,
		"websocket":    "/ws",
		"default_port": protocol.DefaultPort,
		"rooms":        s.svc.RoomCount(),
	})
}

// WebSocket

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.wsh == nil {
		respondError(w, http.StatusServiceUnavailable, "websocket transport not configured")
		return
	}
	s.wsh.ServeWS(w, r)
}
