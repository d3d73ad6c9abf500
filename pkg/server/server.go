// Package server exposes the compiler over HTTP for the web front end.
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/Mohtashimkhan22/C-to-ARM-Cross-Compiler/pkg/pipeline"
)

// DefaultPort matches the deployed front end's configuration.
const DefaultPort = 10000

// allowedOrigin is the hosted web editor.
const allowedOrigin = "https://crosscompiler.netlify.app"

type compileRequest struct {
	Code string `json:"code"`
}

type compileResponse struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Server holds the HTTP handlers. Each request compiles into its own
// temporary directory so concurrent requests never share artifacts.
type Server struct {
	mux *http.ServeMux
}

func New() *Server {
	s := &Server{mux: http.NewServeMux()}
	s.mux.HandleFunc("/compiler", s.handleCompile)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed,
			compileResponse{Error: "POST only"})
		return
	}
	var req compileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest,
			compileResponse{Error: "invalid request body"})
		return
	}

	dir, err := os.MkdirTemp("", "armcc-*")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			compileResponse{Error: err.Error()})
		return
	}
	defer os.RemoveAll(dir)

	// The response carries everything the driver prints, diagnostics
	// included; success reflects the run itself, not the diagnostics. The
	// web front end renders the output either way.
	var driverOut bytes.Buffer
	_, err = pipeline.Compile(req.Code, pipeline.Options{Dir: dir, Log: &driverOut})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			compileResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK,
		compileResponse{Success: true, Output: driverOut.String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ListenAndServe blocks serving on the given port.
func ListenAndServe(port int) error {
	return http.ListenAndServe(fmt.Sprintf(":%d", port), New())
}
