// Package export renders whole documents, or regions of them, to PNG, JPEG
// or SVG images outside of any interactive session.
package export

import (
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/inamate/vecview/internal/document"
	"github.com/inamate/vecview/internal/engine"
	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/render"
	"github.com/inamate/vecview/internal/render/raster"
	"github.com/inamate/vecview/internal/render/svg"
	"github.com/inamate/vecview/internal/view"
)

var (
	ErrBadFormat = errors.New("unsupported export format")
	ErrTooLarge  = errors.New("export size too large")
	ErrBadSize   = errors.New("export size must be positive")
)

type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatSVG  Format = "svg"
)

// ParseFormat accepts png, jpeg (or jpg) and svg.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "svg":
		return FormatSVG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatSVG:
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// Options describes one export.
type Options struct {
	Format  Format
	Width   int
	Height  int
	Padding float64
	// Region, if non-nil, is the world box to fit. Otherwise the visible
	// content is fitted, or the saved view is used when SavedView is set.
	Region    *geom.Box3
	SavedView bool
	Render    render.Options
	// Quality is the JPEG quality, 1 to 100.
	Quality int
	// MaxPixels bounds Width×Height; zero means no bound.
	MaxPixels int
}

// DefaultOptions is a 1280×720 PNG fitted with the default padding.
func DefaultOptions() Options {
	return Options{
		Format:  FormatPNG,
		Width:   1280,
		Height:  720,
		Padding: view.DefaultPadding,
		Render:  render.DefaultOptions(),
		Quality: 90,
	}
}

// Result reports what was drawn.
type Result struct {
	Drawn  int
	Culled int
	View   view.Settings
}

// Render draws doc with opts and writes the encoded image to w.
func Render(doc *document.Document, opts Options, w io.Writer) (Result, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return Result{}, ErrBadSize
	}
	if opts.MaxPixels > 0 && opts.Width*opts.Height > opts.MaxPixels {
		return Result{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, opts.Width, opts.Height, opts.MaxPixels)
	}

	var (
		target render.Target
		rt     *raster.Target
		st     *svg.Target
	)
	switch opts.Format {
	case FormatPNG, FormatJPEG:
		t, err := raster.New()
		if err != nil {
			return Result{}, err
		}
		target, rt = t, t
	case FormatSVG:
		st = svg.New()
		target = st
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrBadFormat, opts.Format)
	}

	e := engine.New(target, engine.Options{
		Width:   opts.Width,
		Height:  opts.Height,
		Render:  opts.Render,
		Padding: opts.Padding,
	})
	if err := e.Load(doc); err != nil {
		return Result{}, err
	}
	switch {
	case opts.Region != nil:
		e.SetView(e.RegionView(*opts.Region, opts.Width, opts.Height, opts.Padding))
	case !opts.SavedView || doc.View == nil:
		e.ZoomExtents()
	}

	res := e.Render()
	if !res.OK {
		return Result{}, errors.New("render failed")
	}
	out := Result{Drawn: res.Drawn, Culled: res.Culled, View: e.View()}

	switch opts.Format {
	case FormatSVG:
		_, err := st.WriteTo(w)
		return out, err
	case FormatJPEG:
		q := opts.Quality
		if q <= 0 || q > 100 {
			q = 90
		}
		return out, jpeg.Encode(w, rt.Image(), &jpeg.Options{Quality: q})
	default:
		return out, png.Encode(w, rt.Image())
	}
}
