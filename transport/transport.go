// Package transport is a thin, optional HTTP+JSON front end over the
// command surface, per spec §6's wire framing sketch. It is deliberately
// minimal: a single loopback listener accepting POSTed JSON request
// objects and returning JSON response envelopes. WebSocket upgrade and
// the binary framing variant are out of scope here.
package transport

import (
	"encoding/json"
	"net/http"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"memengine/command"
)

var log = logger.NewLogger(coloransi.Color(coloransi.White, coloransi.ColorOrange, "transport"))

// request is the wire shape of an incoming command: {command, id, params},
// with the command's parameters as string values nested under "params".
// Parameter keys placed beside command and id are not read.
type request struct {
	Command string            `json:"command"`
	ID      string            `json:"id,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
}

// response is the wire shape of a command's result, per §6.
type response struct {
	Success bool        `json:"success"`
	ID      string      `json:"id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Server wraps an engine handle with an HTTP mux dispatching POST / to
// the command surface.
type Server struct {
	engine *command.Engine
	mux    *http.ServeMux
}

// NewServer builds a transport around an already-initialized engine.
func NewServer(engine *command.Engine) *Server {
	s := &Server{engine: engine, mux: http.NewServeMux()}
	s.mux.HandleFunc("/", s.handle)
	return s
}

// ListenAndServe starts the loopback listener at addr (e.g. "127.0.0.1:8787").
func (s *Server) ListenAndServe(addr string) error {
	log.Infoln("transport listening on ", addr)
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST is supported", http.StatusMethodNotAllowed)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, response{Success: false, Error: "invalid request body: " + err.Error()})
		return
	}

	data, err := s.engine.Dispatch(req.Command, command.Params(req.Params))
	if err != nil {
		log.Debugln("command ", req.Command, " failed: ", err)
		writeJSON(w, response{Success: false, ID: req.ID, Error: err.Error()})
		return
	}

	writeJSON(w, response{Success: true, ID: req.ID, Data: data})
}

func writeJSON(w http.ResponseWriter, resp response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warn("failed to encode response: ", err)
	}
}
