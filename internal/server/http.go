package server

import (
	"context"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/livebridge/livebridge/internal/config"
	"github.com/livebridge/livebridge/internal/logging"
)

// Server is the HTTP front: the WebSocket endpoint plus the static touch UI
// with single-page fallback.
type Server struct {
	cfg     config.Config
	hub     *Hub
	handler Handler
	web     fs.FS
	log     *logrus.Entry
}

// New creates the HTTP server. web holds the static UI; nil disables static
// serving.
func New(cfg config.Config, hub *Hub, handler Handler, web fs.FS) *Server {
	return &Server{
		cfg:     cfg,
		hub:     hub,
		handler: handler,
		web:     web,
		log:     logging.Component("http"),
	}
}

// Routes builds the request mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/", s.handleStatic)
	return mux
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(s.cfg.HTTPPort),
		Handler: s.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on http://localhost:%d", s.cfg.HTTPPort)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

// handleStatic serves the embedded UI. Unknown extensionless paths fall back
// to index.html so client-side routing works.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if s.web == nil {
		http.NotFound(w, r)
		return
	}

	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name == "" || name == "." {
		name = "index.html"
	}
	if strings.Contains(name, "..") {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	data, err := fs.ReadFile(s.web, name)
	if err != nil {
		if path.Ext(name) != "" {
			http.NotFound(w, r)
			return
		}
		// SPA fallback
		data, err = fs.ReadFile(s.web, "index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		name = "index.html"
	}

	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Write(data)
}
