package command

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"filethings/internal/apperr"
)

const (
	exifDateLayout    = "2006:01:02 15:04:05"
	displayDateLayout = "2006-01-02 15:04:05"
)

func decodeExif(path string) (*exif.Exif, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.IO(err, "")
	}
	defer f.Close()
	x, err := exif.Decode(f)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFormat, err, "Failed to read exif data")
	}
	return x, nil
}

func tagString(tag *tiff.Tag) string {
	if tag.Format() == tiff.StringVal {
		if s, err := tag.StringVal(); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return tag.String()
}

// fileExifGet reads the requested EXIF tags. Only DateTimeOriginal is
// supported, returned as "2006-01-02 15:04:05".
func (d *Dispatcher) fileExifGet(_ context.Context, p Params) (*Envelope, error) {
	input, err := p.String("input_file", "file")
	if err != nil {
		return nil, err
	}
	tags, ok := p["tags"].([]any)
	if !ok {
		return nil, apperr.Param("Missing tags parameter")
	}
	x, err := decodeExif(input)
	if err != nil {
		return nil, err
	}

	out := map[string]string{}
	for _, t := range tags {
		name, isStr := t.(string)
		if !isStr {
			return nil, apperr.Param("Invalid tag name")
		}
		switch name {
		case "DateTimeOriginal":
			tag, err := x.Get(exif.DateTimeOriginal)
			if err != nil {
				return nil, apperr.NotFound("No DateTimeOriginal field found")
			}
			raw := tagString(tag)
			if ts, err := time.Parse(exifDateLayout, raw); err == nil {
				raw = ts.Format(displayDateLayout)
			}
			out[name] = raw
		default:
			return nil, apperr.Unsupported("Tag %s not supported", name)
		}
	}
	return withContent(out), nil
}

type exifCollector map[string]string

func (c exifCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	c[string(name)] = tagString(tag)
	return nil
}

// fileInfoMetadata returns every EXIF field of input_file. Files without
// EXIF data give an empty object.
func (d *Dispatcher) fileInfoMetadata(_ context.Context, p Params) (*Envelope, error) {
	input, err := p.String("input_file", "input_path")
	if err != nil {
		return nil, err
	}
	if !pathExists(input) {
		return nil, apperr.NotFound("Path not exist")
	}
	if isDir(input) {
		return withContent(map[string]string{}), nil
	}

	fields := exifCollector{}
	x, err := decodeExif(input)
	if err != nil {
		if !apperr.Is(err, apperr.KindFormat) {
			return nil, err
		}
		d.svc.Log.Debug("metadata", "no exif data", "file", input, "err", err)
		return withContent(fields), nil
	}
	if err := x.Walk(fields); err != nil {
		d.svc.Log.Error("metadata", "walk exif failed", "file", input, "err", err)
	}
	return withContent(fields), nil
}
