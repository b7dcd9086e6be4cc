package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"paddle/models"
	"paddle/server/cell_views"
	"paddle/server/fastview"
	"paddle/server/root_view"

	"github.com/gorilla/mux"
	channerics "github.com/niceyeti/channerics/channels"
)

const shutdownGracePeriod = 5 * time.Second

// InputFunc receives the actions decoded from client key presses. It reports
// whether the action was accepted.
type InputFunc func(models.Action) bool

// Server serves a single page and its websocket: the page renders the game and
// its key presses are forwarded to an InputFunc. The ele-update channel is shared,
// so only one client at a time receives a given update.
type Server struct {
	addr     string
	router   *mux.Router
	rootView *root_view.RootView
	latest   atomic.Pointer[models.Frame]
	input    InputFunc
}

// Stats is the json body of the /stats endpoint.
type Stats struct {
	Score    int    `json:"score"`
	Episodes int    `json:"episodes"`
	Mode     string `json:"mode"`
	Rule     string `json:"rule,omitempty"`
}

// NewServer initializes all of the views and returns a server. The input func may be nil
// when key presses have no effect, e.g. when an agent is playing.
func NewServer(
	ctx context.Context,
	addr string,
	initial models.Frame,
	frames <-chan models.Frame,
	input InputFunc,
) (*Server, error) {
	server := &Server{
		addr:  addr,
		input: input,
	}
	server.latest.Store(&initial)

	rootView, err := root_view.NewRootView(ctx, initial, server.track(ctx.Done(), frames))
	if err != nil {
		return nil, err
	}
	server.rootView = rootView

	server.router = mux.NewRouter()
	server.router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	server.router.HandleFunc("/ws", server.serveWebsocket)
	server.router.HandleFunc("/stats", server.serveStats).Methods(http.MethodGet)
	return server, nil
}

// track records each frame for the index and stats, and forwards it to the views
// only when they are ready: frames are dropped while no client drains the views.
func (server *Server) track(done <-chan struct{}, frames <-chan models.Frame) <-chan models.Frame {
	views := make(chan models.Frame)
	go func() {
		defer close(views)
		for frame := range channerics.OrDone(done, frames) {
			latest := frame
			server.latest.Store(&latest)
			select {
			case views <- frame:
			default:
			}
		}
	}()
	return views
}

// Handler returns the server's router.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Serve listens until the context is cancelled, then shuts down gracefully.
func (server *Server) Serve(ctx context.Context) (err error) {
	httpServer := &http.Server{
		Addr:    server.addr,
		Handler: server.router,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	shutdown := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		shutdown <- httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("serving on http://%s", server.addr)
	if err = httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	if err = <-shutdown; err != nil {
		err = fmt.Errorf("shutdown: %w", err)
	}
	return
}

// serveWebsocket publishes view updates to the client and reads its key presses.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	cli, err := fastview.NewClient(server.rootView.Updates(), server.onMessage, w, r)
	if err != nil {
		log.Println(err)
		return
	}

	if err := cli.Sync(); err != nil {
		log.Printf("client %s: %v", cli.ID(), err)
	}
}

// onMessage forwards key presses to the input func. Unrecognized messages are
// logged and ignored.
func (server *Server) onMessage(msg []byte) error {
	action, err := ParseKey(msg)
	if err != nil {
		log.Printf("ignoring message %q: %v", msg, err)
		return nil
	}
	if server.input != nil && !server.input(action) {
		log.Printf("dropped key %s", action)
	}
	return nil
}

// ErrUnknownKey is returned for key messages other than left and right.
var ErrUnknownKey = errors.New("unknown key")

// KeyMessage is the json sent by the page on keydown.
type KeyMessage struct {
	Key string
}

// ParseKey decodes a client key message into an action.
func ParseKey(msg []byte) (models.Action, error) {
	var key KeyMessage
	if err := json.Unmarshal(msg, &key); err != nil {
		return models.Stay, fmt.Errorf("parse key: %w", err)
	}

	switch strings.ToLower(key.Key) {
	case "left", "arrowleft":
		return models.MoveLeft, nil
	case "right", "arrowright":
		return models.MoveRight, nil
	}
	return models.Stay, fmt.Errorf("%w: %q", ErrUnknownKey, key.Key)
}

func (server *Server) serveStats(w http.ResponseWriter, _ *http.Request) {
	frame := server.latest.Load()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Stats{
		Score:    frame.Score,
		Episodes: frame.Episodes,
		Mode:     frame.Mode,
		Rule:     frame.Rule,
	})
}

// Serve the index.html main page, drawn at the latest frame.
func (server *Server) serveIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")

	var page bytes.Buffer
	board := cell_views.Convert(*server.latest.Load())
	if err := renderTemplate(&page, server.rootView, board); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_, _ = page.WriteTo(w)
}

func renderTemplate(
	w io.Writer,
	vc fastview.ViewComponent,
	data interface{},
) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}

	err = t.Execute(w, data)
	return
}
