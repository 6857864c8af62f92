package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inamate/vecview/internal/document"
	"github.com/inamate/vecview/internal/engine"
	"github.com/inamate/vecview/internal/export"
	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/typeid"
	"github.com/inamate/vecview/internal/view"
)

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "vdraw",
		Short:         "Render vector drawing documents",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	root.AddCommand(newRenderCmd(), newSampleCmd(), newInfoCmd())
	return root
}

func readDocument(path string, stdin io.Reader) (*document.Document, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return document.Parse(data)
}

func newRenderCmd() *cobra.Command {
	opts := export.DefaultOptions()
	var (
		output string
		format string
		region string
	)

	cmd := &cobra.Command{
		Use:   "render <document.json|->",
		Short: "Render a document to PNG, JPEG or SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			if format == "" {
				format = formatFromPath(output)
			}
			if opts.Format, err = export.ParseFormat(format); err != nil {
				return err
			}
			if region != "" {
				box, err := parseRegion(region)
				if err != nil {
					return err
				}
				opts.Region = &box
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}

			res, err := export.Render(doc, opts, w)
			if err != nil {
				return err
			}
			slog.Debug("rendered", "drawn", res.Drawn, "culled", res.Culled, "zoom", res.View.Zoom.X)
			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%dx%d, %d elements drawn, %d culled)\n",
					output, opts.Width, opts.Height, res.Drawn, res.Culled)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "output file (default stdout)")
	f.StringVarP(&format, "format", "f", "", "png, jpeg or svg (default from the output extension)")
	f.IntVar(&opts.Width, "width", opts.Width, "image width in pixels")
	f.IntVar(&opts.Height, "height", opts.Height, "image height in pixels")
	f.Float64Var(&opts.Padding, "padding", opts.Padding, "fit margin in percent")
	f.StringVar(&region, "region", "", "world region minX,minY,maxX,maxY or minX,minY,minZ,maxX,maxY,maxZ")
	f.BoolVar(&opts.SavedView, "saved-view", false, "use the view stored in the document")
	f.BoolVar(&opts.Render.ShowGrid, "grid", opts.Render.ShowGrid, "draw the grid")
	f.BoolVar(&opts.Render.ShowAxes, "axes", opts.Render.ShowAxes, "draw the axes")
	f.BoolVar(&opts.Render.ShowScaleBar, "scale-bar", opts.Render.ShowScaleBar, "draw the scale bar")
	f.Float64Var(&opts.Render.GridSpacing, "grid-spacing", opts.Render.GridSpacing, "grid spacing in world units")
	f.IntVar(&opts.Quality, "quality", opts.Quality, "JPEG quality")
	return cmd
}

func formatFromPath(path string) string {
	switch {
	case strings.HasSuffix(path, ".svg"):
		return "svg"
	case strings.HasSuffix(path, ".jpg"), strings.HasSuffix(path, ".jpeg"):
		return "jpeg"
	}
	return "png"
}

func parseRegion(s string) (geom.Box3, error) {
	parts := strings.Split(s, ",")
	v := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Box3{}, fmt.Errorf("invalid region %q: %w", s, err)
		}
		v[i] = f
	}
	switch len(v) {
	case 4:
		return geom.NewBox(geom.Vec(v[0], v[1], 0), geom.Vec(v[2], v[3], 0)), nil
	case 6:
		return geom.NewBox(geom.Vec(v[0], v[1], v[2]), geom.Vec(v[3], v[4], v[5])), nil
	}
	return geom.Box3{}, fmt.Errorf("invalid region %q: want 4 or 6 numbers", s)
}

func newSampleCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write the sample document as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := document.NewSampleDocument(typeid.NewDocumentID())
			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			data = append(data, '\n')
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(output, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <document.json|->",
		Short: "Print layers, element counts and visible bounds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			m, err := engine.BuildScene(doc)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "document %s %q\n", doc.ID, doc.Name)
			for _, l := range m.Layers() {
				state := "visible"
				if !l.Visible() {
					state = "hidden"
				}
				fmt.Fprintf(out, "  layer %s %q: %d elements, %s\n", l.ID(), l.Name(), l.Len(), state)
			}
			b := m.VisibleBounds()
			if b.IsEmpty() {
				fmt.Fprintln(out, "  bounds: empty")
			} else {
				fmt.Fprintf(out, "  bounds: (%g, %g, %g) - (%g, %g, %g)\n", b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
			}
			fit := view.NewZooming(1).ZoomExtents(view.Default(geom.Rect{Width: 1280, Height: 720}), m, view.DefaultPadding)
			fmt.Fprintf(out, "  fit zoom at 1280x720: %g\n", fit.Zoom.X)
			return nil
		},
	}
}
