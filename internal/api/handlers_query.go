package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dgallion1/mdq"
)

type queryRequest struct {
	Query       string `json:"query"`
	Input       string `json:"input"`
	InputFormat string `json:"input_format"`
	ListStyle   string `json:"list_style"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+int64(s.cfg.MaxQueryBytes)+64*1024)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		q := r.URL.Query()
		req = queryRequest{
			Query:       q.Get("query"),
			Input:       q.Get("input"),
			InputFormat: q.Get("input_format"),
			ListStyle:   q.Get("list_style"),
		}
	}

	if !s.checkQuery(w, req.Query) {
		return
	}
	if int64(len(req.Input)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("input exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	opts, err := s.queryOptions(req.InputFormat, req.ListStyle)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	opts.Logger = s.log

	results, err := mdq.Run(req.Query, req.Input, &opts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, mdq.ErrQuery) {
			status = http.StatusBadRequest
		}
		jsonError(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"results": results})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if !s.checkQuery(w, query) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"diagnostics": mdq.Diagnose(query)})
}

func (s *Server) handleFunctions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"functions": mdq.Functions()})
}

// checkQuery writes an error response and returns false when the query is
// missing or too long.
func (s *Server) checkQuery(w http.ResponseWriter, query string) bool {
	if query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return false
	}
	if len(query) > s.cfg.MaxQueryBytes {
		jsonError(w, fmt.Sprintf("query exceeds max size (%d bytes)", s.cfg.MaxQueryBytes), http.StatusRequestEntityTooLarge)
		return false
	}
	return true
}

// queryOptions resolves request options against the server defaults.
func (s *Server) queryOptions(inputFormat, listStyle string) (mdq.Options, error) {
	opts := mdq.Options{
		MaxDepth:  s.cfg.MaxDepth,
		Pdftotext: s.cfg.PDFFallbackPdftotext,
	}
	if inputFormat == "" {
		inputFormat = s.cfg.DefaultInputFormat
	}
	f, err := mdq.ParseInputFormat(inputFormat)
	if err != nil {
		return opts, err
	}
	opts.InputFormat = f
	if listStyle != "" {
		style, err := mdq.ParseListStyle(listStyle)
		if err != nil {
			return opts, err
		}
		opts.ListStyle = style
	}
	return opts, nil
}
