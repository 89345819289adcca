package command

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"filethings/internal/apperr"
)

// RasterizedSVG is the content of image.svg_to_png.
type RasterizedSVG struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	Data   []int `json:"data"`
}

// svgToPNG renders svg at width x height. A zero dimension takes the view
// box size.
func svgToPNG(svg string, width, height int) (int, int, []byte, error) {
	icon, err := oksvg.ReadIconStream(strings.NewReader(svg), oksvg.WarnErrorMode)
	if err != nil {
		return 0, 0, nil, apperr.Wrap(apperr.KindFormat, err, "Invalid SVG")
	}
	if width <= 0 {
		width = int(icon.ViewBox.W)
	}
	if height <= 0 {
		height = int(icon.ViewBox.H)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, nil, apperr.Format("SVG has no size, pass width and height")
	}

	icon.SetTarget(0, 0, float64(width), float64(height))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(width, height, scanner), 1)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return 0, 0, nil, apperr.IO(err, "Failed to encode png data")
	}
	return width, height, buf.Bytes(), nil
}

func sizeParams(p Params) (int, int) {
	w, _, err := p.Uint("width", 0)
	if err != nil {
		w = 0
	}
	h, _, err := p.Uint("height", 0)
	if err != nil {
		h = 0
	}
	return int(w), int(h)
}

func (d *Dispatcher) imageSVGToPNG(_ context.Context, p Params) (*Envelope, error) {
	svg, ok := p["svg"].(string)
	if !ok {
		return nil, apperr.Param("Missing 'svg' parameter")
	}
	width, height := sizeParams(p)
	w, h, data, err := svgToPNG(svg, width, height)
	if err != nil {
		return nil, err
	}
	nums := make([]int, len(data))
	for i, b := range data {
		nums[i] = int(b)
	}
	return withContent(RasterizedSVG{Width: w, Height: h, Data: nums}), nil
}

func (d *Dispatcher) fileSVGToPNG(_ context.Context, p Params) (*Envelope, error) {
	input, err := p.String("input_file")
	if err != nil {
		return nil, err
	}
	output, err := p.String("output_file")
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(input)
	if err != nil {
		return nil, apperr.IO(err, "")
	}
	width, height := sizeParams(p)
	_, _, data, err := svgToPNG(string(raw), width, height)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return nil, apperr.IO(err, "")
	}
	env := NewEnvelope()
	env.AddOutputPath(output)
	return env, nil
}

type conversion struct {
	input, output     string
	srcExt, targetExt string
}

func parseConversion(p Params) (conversion, error) {
	input, output, err := inputOutput(p)
	if err != nil {
		return conversion{}, err
	}
	_, _, src := splitFilePath(input)
	_, _, target := splitFilePath(output)
	return conversion{
		input:     input,
		output:    output,
		srcExt:    strings.ToLower(src),
		targetExt: strings.ToLower(target),
	}, nil
}

func (d *Dispatcher) fileImageToSVG(_ context.Context, p Params) (*Envelope, error) {
	conv, err := parseConversion(p)
	if err != nil {
		return nil, err
	}
	if conv.srcExt == conv.targetExt {
		env := NewEnvelope()
		env.Status = StatusIgnored
		env.Message = "Source and target format are the same"
		return env, nil
	}
	return nil, apperr.Unsupported("Image tracing is not built in, use a tool.exe function")
}

func (d *Dispatcher) fileRemoveBackground(_ context.Context, p Params) (*Envelope, error) {
	if _, err := parseConversion(p); err != nil {
		return nil, err
	}
	return nil, apperr.Unsupported("Background removal is not built in, use a tool.model function")
}

// filePNGOptimize re-encodes any decodable image as a maximally compressed
// PNG.
func (d *Dispatcher) filePNGOptimize(_ context.Context, p Params) (*Envelope, error) {
	conv, err := parseConversion(p)
	if err != nil {
		return nil, err
	}
	src, err := os.Open(conv.input)
	if err != nil {
		return nil, apperr.IO(err, "")
	}
	img, _, err := image.Decode(src)
	src.Close()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFormat, err, "Failed to decode %s", conv.input)
	}

	if err := ensureParentDir(conv.output); err != nil {
		return nil, apperr.IO(err, "")
	}
	out, err := os.Create(conv.output)
	if err != nil {
		return nil, apperr.IO(err, "")
	}
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(out, img); err != nil {
		out.Close()
		return nil, apperr.IO(err, "")
	}
	if err := out.Close(); err != nil {
		return nil, apperr.IO(err, "")
	}

	env := withContent(conv.output)
	env.AddOutputPath(conv.output)
	return env, nil
}
