package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/inamate/vecview/internal/document"
	"github.com/inamate/vecview/internal/geom"
)

const maxUploadSize = 8 << 20 // 8MB

// ErrNotFound is what a Loader returns for an unknown document.
var ErrNotFound = errors.New("not found")

// Loader fetches stored documents.
type Loader interface {
	Latest(ctx context.Context, id string) (*document.Document, int, error)
}

// Backgrounds resolves background asset ids.
type Backgrounds interface {
	Load(id string) (image.Image, error)
}

type Handler struct {
	loader      Loader
	backgrounds Backgrounds
	defaults    Options
	// notFound reports whether a loader error means the document is missing.
	notFound func(error) bool
}

// NewHandler builds the export endpoints. loader and backgrounds may be nil;
// notFound classifies loader errors as 404s.
func NewHandler(loader Loader, backgrounds Backgrounds, defaults Options, notFound func(error) bool) *Handler {
	if notFound == nil {
		notFound = func(err error) bool { return errors.Is(err, ErrNotFound) }
	}
	return &Handler{loader: loader, backgrounds: backgrounds, defaults: defaults, notFound: notFound}
}

// ExportDocument handles POST /export with a document JSON body.
func (h *Handler) ExportDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	var doc document.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document"})
		return
	}
	h.export(w, r, &doc)
}

// ExportStored handles GET /api/documents/{documentId}/export.
func (h *Handler) ExportStored(w http.ResponseWriter, r *http.Request) {
	if h.loader == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	id := mux.Vars(r)["documentId"]

	doc, _, err := h.loader.Latest(r.Context(), id)
	if err != nil {
		if h.notFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		slog.Error("load document for export", "error", err, "documentID", id)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	h.export(w, r, doc)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, doc *document.Document) {
	opts, err := ParseQuery(r.URL.Query(), h.defaults)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if doc.Background != "" && h.backgrounds != nil {
		img, err := h.backgrounds.Load(doc.Background)
		if err != nil {
			slog.Warn("export background unavailable", "error", err, "assetID", doc.Background)
		} else {
			opts.Render.Background = img
		}
	}

	var buf bytes.Buffer
	res, err := Render(doc, opts, &buf)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, ErrTooLarge) || errors.Is(err, ErrBadSize) || errors.Is(err, ErrBadFormat) {
			status = http.StatusBadRequest
		}
		slog.Warn("export failed", "error", err, "documentID", doc.ID)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	name := sanitize(doc.Name)
	w.Header().Set("Content-Type", opts.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, opts.Format.Ext()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())

	slog.Info("export complete",
		"documentID", doc.ID,
		"format", opts.Format,
		"width", opts.Width,
		"height", opts.Height,
		"drawn", res.Drawn,
		"culled", res.Culled,
		"size", buf.Len(),
	)
}

var regionKeys = [6]string{"minX", "minY", "minZ", "maxX", "maxY", "maxZ"}

// ParseQuery reads export options from query parameters over defaults.
// A region needs minX, minY, maxX and maxY; minZ and maxZ default to 0.
func ParseQuery(q url.Values, defaults Options) (Options, error) {
	opts := defaults
	var err error
	if opts.Format, err = ParseFormat(q.Get("format")); err != nil {
		return opts, err
	}

	ints := map[string]*int{"width": &opts.Width, "height": &opts.Height, "quality": &opts.Quality}
	for key, dst := range ints {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, fmt.Errorf("invalid %s: %q", key, v)
			}
			*dst = n
		}
	}
	if v := q.Get("padding"); v != "" {
		if opts.Padding, err = strconv.ParseFloat(v, 64); err != nil || opts.Padding < 0 {
			return opts, fmt.Errorf("invalid padding: %q", v)
		}
	}

	bools := map[string]*bool{
		"grid":     &opts.Render.ShowGrid,
		"axes":     &opts.Render.ShowAxes,
		"scalebar": &opts.Render.ShowScaleBar,
		"view":     &opts.SavedView,
	}
	for key, dst := range bools {
		if v := q.Get(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return opts, fmt.Errorf("invalid %s: %q", key, v)
			}
			*dst = b
		}
	}

	var corner [6]float64
	present := 0
	for i, key := range regionKeys {
		v := q.Get(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid %s: %q", key, v)
		}
		corner[i] = f
		present++
	}
	if present > 0 {
		for _, key := range []string{"minX", "minY", "maxX", "maxY"} {
			if q.Get(key) == "" {
				return opts, fmt.Errorf("region needs %s", key)
			}
		}
		box := geom.NewBox(geom.Vec(corner[0], corner[1], corner[2]), geom.Vec(corner[3], corner[4], corner[5]))
		opts.Region = &box
	}
	return opts, nil
}

func sanitize(name string) string {
	if name == "" {
		return "drawing"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
