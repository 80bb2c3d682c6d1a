// Package fixtures serves a local copy of the pages the scenarios open, so that they can be run
// without network access.
package fixtures

import (
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/adqa/browser-test-harness/framework"
	"github.com/adqa/browser-test-harness/framework/helpers"

	"github.com/gorilla/mux"
)

//go:embed pages/*.html
var pageFiles embed.FS

var pages = template.Must(template.ParseFS(pageFiles, "pages/*.html")) //nolint:gochecknoglobals

const (
	// DefaultAdID is the ad that the preview URL returned by ExpandableURL refers to.
	DefaultAdID = "f576e12f"

	// DefaultExpandDelay is how long the modal takes to appear after the banner is tapped.
	DefaultExpandDelay = 1500 * time.Millisecond

	listenerTimeout = time.Second * 10
)

type pageParams struct {
	ID          string
	DelayMillis int64
}

// NewHandler returns the fixture site's routes:
//
//	GET /preview/{id}         the page that embeds the ad; "delay" sets the expand delay in ms
//	GET /preview/{id}/banner  the collapsed ad
//	GET /preview/{id}/modal   the expanded ad
//	GET /smoke                a static page
func NewHandler(logger framework.Logger) http.Handler {
	if logger == nil {
		logger = framework.NullLogger()
	}
	router := mux.NewRouter()
	router.HandleFunc("/preview/{id}", servePage(logger, "preview.html")).Methods("GET")
	router.HandleFunc("/preview/{id}/banner", servePage(logger, "banner.html")).Methods("GET")
	router.HandleFunc("/preview/{id}/modal", servePage(logger, "modal.html")).Methods("GET")
	router.HandleFunc("/smoke", servePage(logger, "smoke.html")).Methods("GET")
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK) // used to test whether the listener is active yet
	}).Methods("HEAD")
	return router
}

func servePage(logger framework.Logger, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := pageParams{ID: mux.Vars(r)["id"], DelayMillis: DefaultExpandDelay.Milliseconds()}
		if d := r.URL.Query().Get("delay"); d != "" {
			ms, err := strconv.ParseInt(d, 10, 64)
			if err != nil || ms < 0 {
				http.Error(w, "delay must be a non-negative number of milliseconds", http.StatusBadRequest)
				return
			}
			params.DelayMillis = ms
		}
		logger.Printf("Fixture request: %s %s", r.Method, r.URL)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if err := pages.ExecuteTemplate(w, name, params); err != nil {
			logger.Printf("Could not render %s: %s", name, err)
		}
	}
}

// Server is a running fixture site.
type Server struct {
	server   *http.Server
	listener net.Listener
}

// Start serves the fixture site on addr, such as "127.0.0.1:0", and waits until it responds.
func Start(addr string, logger framework.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not listen on %s: %w", addr, err)
	}
	s := &Server{
		server: &http.Server{
			Handler:           NewHandler(logger),
			ReadHeaderTimeout: 10 * time.Second, // arbitrary but non-infinite timeout to avoid Slowloris Attack
		},
		listener: listener,
	}
	go func() {
		_ = s.server.Serve(listener)
	}()

	ok, _, _ := helpers.Poll(func() (bool, error) {
		req, _ := http.NewRequest("HEAD", s.BaseURL(), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false, nil
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK, nil
	}, listenerTimeout, 10*time.Millisecond)
	if !ok {
		_ = s.Close()
		return nil, fmt.Errorf("could not detect fixture listener at %s", s.BaseURL())
	}
	return s, nil
}

func (s *Server) BaseURL() string {
	return "http://" + s.listener.Addr().String()
}

// ExpandableURL returns the address of the local expandable ad preview.
func (s *Server) ExpandableURL() string {
	return fmt.Sprintf("%s/preview/%s", s.BaseURL(), DefaultAdID)
}

func (s *Server) SmokeURL() string {
	return s.BaseURL() + "/smoke"
}

func (s *Server) Close() error {
	return s.server.Close()
}
