// Package server is the local preview server: it wraps a generated snippet
// in a harness page with an iframe so the document renders exactly as the
// WordPress embed would, sandboxed and reloadable on save.
package server

import (
	"net/http"

	"github.com/wpembed/toolscope/internal/utils"
)

type Server struct {
	Title string
	// Load re-reads the snippet on every request so edits to the file
	// show up on refresh.
	Load func() (string, error)
}

func New(title string, load func() (string, error)) *Server {
	return &Server{Title: title, Load: load}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleIndex)
	mux.HandleFunc("GET /tool", s.handleTool)
	return mux
}

func (s *Server) Start(addr string) error {
	utils.Log.Infof("Preview server on http://%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}
