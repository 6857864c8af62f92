package session

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/vecview/internal/auth"
	"github.com/inamate/vecview/internal/document"
	"github.com/inamate/vecview/internal/engine"
	"github.com/inamate/vecview/internal/render/raster"
)

// Options configures every session a Handler opens.
type Options struct {
	Engine engine.Options
	// MaxFPS caps frames per second per session.
	MaxFPS float64
	// MaxPixels bounds the viewport area a client may request.
	MaxPixels int
	// OriginPatterns is passed to the websocket handshake.
	OriginPatterns []string
}

func (o Options) withDefaults() Options {
	if o.MaxFPS <= 0 {
		o.MaxFPS = 30
	}
	return o
}

// Store loads and saves the documents sessions open.
type Store interface {
	Saver
	Latest(ctx context.Context, id string) (*document.Document, int, error)
}

// Backgrounds resolves background asset ids.
type Backgrounds interface {
	Load(id string) (image.Image, error)
}

// Handler upgrades GET /ws/documents/{documentId} to a viewport session.
type Handler struct {
	hub         *Hub
	store       Store
	backgrounds Backgrounds
	opts        Options
	// notFound reports whether a store error means the document is missing.
	notFound func(error) bool
}

func NewHandler(hub *Hub, store Store, backgrounds Backgrounds, opts Options, notFound func(error) bool) *Handler {
	if notFound == nil {
		notFound = func(error) bool { return false }
	}
	return &Handler{hub: hub, store: store, backgrounds: backgrounds, opts: opts.withDefaults(), notFound: notFound}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["documentId"]
	userID := auth.UserIDFromContext(r.Context())

	doc, version, err := h.store.Latest(r.Context(), documentID)
	if err != nil {
		if h.notFound(err) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		slog.Error("load document for session", "error", err, "documentID", documentID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	doc.Version = version

	target, err := raster.New()
	if err != nil {
		slog.Error("create render target", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	e := engine.New(target, h.opts.Engine)
	if err := e.Load(doc); err != nil {
		slog.Warn("document does not load", "error", err, "documentID", documentID)
		http.Error(w, "document cannot be opened", http.StatusUnprocessableEntity)
		return
	}
	if doc.Background != "" && h.backgrounds != nil {
		if img, err := h.backgrounds.Load(doc.Background); err == nil {
			e.SetBackground(img)
		} else {
			slog.Warn("background unavailable", "error", err, "assetID", doc.Background)
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.opts.OriginPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	s := NewSession(h.hub, conn, e, target, h.store, h.opts, userID, clientID)
	if err := s.Serve(r.Context()); err != nil && !errors.Is(err, ErrHubClosed) {
		slog.Debug("session ended", "error", err, "client", clientID)
	}
}
