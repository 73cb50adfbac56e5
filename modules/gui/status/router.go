package status

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	modular "github.com/GoCodeAlone/modular-gui"
	"github.com/GoCodeAlone/modular-gui/modules/gui"
)

// Exiter asks a GUI to close, waiting on the UI thread no longer than ctx
// allows. *gui.Thread satisfies it.
type Exiter interface {
	RequestExitContext(ctx context.Context)
}

// Status is the body of GET /gui/status.
type Status struct {
	Created        bool     `json:"created"`
	Running        bool     `json:"running"`
	LifetimeLinked bool     `json:"lifetimeLinked"`
	Shutdown       bool     `json:"shutdown"`
	Windows        []string `json:"windows"`
}

type errorBody struct {
	Error string `json:"error"`
}

type handler struct {
	appCtx    gui.AppContext
	exiter    Exiter
	logger    modular.Logger
	uiTimeout time.Duration
}

// NewRouter returns the diagnostics routes for one GUI:
//
//	GET  /gui/status  state of the application context and open windows
//	POST /gui/exit    asks the GUI to close, which stops a linked host
func NewRouter(appCtx gui.AppContext, exiter Exiter, logger modular.Logger, uiTimeout time.Duration) chi.Router {
	if uiTimeout <= 0 {
		uiTimeout = 2 * time.Second
	}
	h := &handler{appCtx: appCtx, exiter: exiter, logger: logger, uiTimeout: uiTimeout}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/gui", func(r chi.Router) {
		r.Get("/status", h.status)
		r.Post("/exit", h.exit)
	})
	return r
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	s := Status{
		Running:        h.appCtx.IsRunning(),
		LifetimeLinked: h.appCtx.IsLifetimeLinked(),
		Windows:        []string{},
	}
	select {
	case <-h.appCtx.Created():
		s.Created = true
	default:
	}

	if app, ok := h.appCtx.App(); ok {
		s.Shutdown = app.IsShutdown()
		if d, err := h.appCtx.Dispatcher(); err == nil {
			ctx, cancel := context.WithTimeout(r.Context(), h.uiTimeout)
			titles, err := gui.RunOnUI(ctx, d, func() ([]string, error) {
				windows := app.Windows()
				titles := make([]string, 0, len(windows))
				for _, win := range windows {
					titles = append(titles, win.Title())
				}
				return titles, nil
			})
			cancel()
			if err == nil {
				s.Windows = titles
			} else {
				h.logger.Debug("Window list unavailable", "error", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, s)
}

func (h *handler) exit(w http.ResponseWriter, r *http.Request) {
	if !h.appCtx.IsRunning() {
		writeJSON(w, http.StatusConflict, errorBody{Error: "GUI is not running"})
		return
	}
	h.logger.Info("GUI exit requested over HTTP")
	ctx, cancel := context.WithTimeout(r.Context(), h.uiTimeout)
	h.exiter.RequestExitContext(ctx)
	cancel()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "exiting"})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
