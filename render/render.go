// Package render draws the two-panel single-task versus multitask figure
// with gonum/plot and encodes it as PNG, SVG or PDF.
package render

import (
	"bytes"
	"io"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/YuminosukeSato/mtgp/pipeline"
	"github.com/YuminosukeSato/mtgp/pkg/errors"
	"github.com/YuminosukeSato/mtgp/pkg/log"
)

const (
	// DownloadFilename is the name of the downloadable image.
	DownloadFilename = "st_vs_mt.png"
	// DownloadDPI is the resolution of the downloadable image.
	DownloadDPI = 300
	// DisplayDPI is the resolution of the figure embedded in the page.
	DisplayDPI = 100
)

// Format is an output encoding.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
	PDF Format = "pdf"
)

// ParseFormat parses "png", "svg" or "pdf", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case PNG, SVG, PDF:
		return f, nil
	default:
		return "", errors.NewValidationError("format", "must be png, svg or pdf", s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case SVG:
		return "image/svg+xml"
	case PDF:
		return "application/pdf"
	default:
		return "image/png"
	}
}

// Options controls the size and encoding of the figure.
type Options struct {
	Format Format
	// DPI only applies to PNG.
	DPI    int
	Width  vg.Length
	Height vg.Length
}

// DefaultOptions returns a 10×5 inch PNG at DisplayDPI.
func DefaultOptions() Options {
	return Options{
		Format: PNG,
		DPI:    DisplayDPI,
		Width:  10 * vg.Inch,
		Height: 5 * vg.Inch,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Format == "" {
		o.Format = d.Format
	}
	if o.DPI <= 0 {
		o.DPI = d.DPI
	}
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	return o
}

// canvas is a vg canvas that can encode itself.
type canvas interface {
	vg.CanvasSizer
	io.WriterTo
}

func newCanvas(o Options) (canvas, error) {
	switch o.Format {
	case PNG:
		c := vgimg.NewWith(vgimg.UseWH(o.Width, o.Height), vgimg.UseDPI(o.DPI))
		return pngCanvas{c}, nil
	case SVG:
		return vgsvg.New(o.Width, o.Height), nil
	case PDF:
		return vgpdf.New(o.Width, o.Height), nil
	default:
		return nil, errors.NewValidationError("format", "must be png, svg or pdf", string(o.Format))
	}
}

// pngCanvas adds PNG encoding to a raster canvas.
type pngCanvas struct {
	*vgimg.Canvas
}

func (c pngCanvas) WriteTo(w io.Writer) (int64, error) {
	return vgimg.PngCanvas{Canvas: c.Canvas}.WriteTo(w)
}

// Write renders res and encodes it to w.
func Write(w io.Writer, res *pipeline.Result, opts Options) error {
	start := time.Now()
	opts = opts.withDefaults()

	panels, err := Panels(res)
	if err != nil {
		return err
	}
	c, err := newCanvas(opts)
	if err != nil {
		return err
	}

	err = errors.SafeExecute("render.Write", func() error {
		drawPanels(c, panels)
		return nil
	})
	if err != nil {
		return err
	}

	n, err := c.WriteTo(w)
	if err != nil {
		return errors.Wrapf(err, "encode %s figure", opts.Format)
	}

	log.GetLoggerWithName("render").Debug("figure rendered",
		log.OperationKey, log.OperationRender,
		"format", string(opts.Format),
		log.SizeKey, n,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// PNGBytes renders res as a PNG at dpi.
func PNGBytes(res *pipeline.Result, dpi int) ([]byte, error) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.DPI = dpi
	if err := Write(&buf, res, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawPanels lays the panels out side by side on c.
func drawPanels(c vg.CanvasSizer, panels []*plot.Plot) {
	dc := draw.New(c)
	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(panels),
		PadX:      vg.Points(30),
		PadTop:    vg.Points(8),
		PadBottom: vg.Points(8),
		PadLeft:   vg.Points(8),
		PadRight:  vg.Points(12),
	}
	canvases := plot.Align([][]*plot.Plot{panels}, tiles, dc)
	for i, p := range panels {
		p.Draw(canvases[0][i])
	}
}
