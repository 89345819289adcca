package command

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"golang.org/x/image/font/sfnt"

	"filethings/internal/apperr"
)

var fontNameIDs = []sfnt.NameID{
	sfnt.NameIDFamily,
	sfnt.NameIDSubfamily,
	sfnt.NameIDUniqueIdentifier,
	sfnt.NameIDFull,
	sfnt.NameIDVersion,
	sfnt.NameIDPostScript,
}

// FontName is one entry of a font's name table.
type FontName struct {
	Name   string `json:"name"`
	NameID string `json:"name_id"`
}

// FontInfo describes one installed font file.
type FontInfo struct {
	Path       string     `json:"path"`
	Ext        string     `json:"ext"`
	FullName   string     `json:"full_name"`
	FamilyName string     `json:"family_name"`
	LocalName  string     `json:"local_name"`
	Names      []FontName `json:"names"`
}

// FontList is the content of font.list_system_fonts.
type FontList struct {
	Fonts   []FontInfo `json:"fonts"`
	HomeDir string     `json:"home_dir"`
}

func parseFont(data []byte) (*sfnt.Font, error) {
	f, err := sfnt.Parse(data)
	if err == nil {
		return f, nil
	}
	coll, cerr := sfnt.ParseCollection(data)
	if cerr != nil {
		return nil, err
	}
	return coll.Font(0)
}

func describeFont(path, ext string, data []byte) (FontInfo, error) {
	f, err := parseFont(data)
	if err != nil {
		return FontInfo{}, err
	}
	info := FontInfo{Path: path, Ext: ext, Names: []FontName{}}
	var buf sfnt.Buffer
	for _, id := range fontNameIDs {
		name, err := f.Name(&buf, id)
		if err != nil || name == "" {
			continue
		}
		info.Names = append(info.Names, FontName{Name: name, NameID: strconv.Itoa(int(id))})
		switch id {
		case sfnt.NameIDFamily:
			info.FamilyName = name
		case sfnt.NameIDFull:
			info.FullName = name
		}
	}
	return info, nil
}

// fontListSystemFonts lists the fonts in the user font dir, optionally
// filtered by extension, sorted by full name.
func (d *Dispatcher) fontListSystemFonts(_ context.Context, p Params) (*Envelope, error) {
	raw, _, err := p.Array("exts")
	if err != nil {
		return nil, apperr.Param("exts must be an array")
	}
	exts := map[string]bool{}
	for _, v := range raw {
		s, _ := v.(string)
		exts[s] = true
	}

	dir, err := d.svc.Paths.FontDir()
	if err != nil {
		return nil, apperr.IO(err, "")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperr.IO(err, "")
	}

	fonts := []FontInfo{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		_, _, ext := splitFilePath(path)
		if len(exts) > 0 && !exts[ext] {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			d.svc.Log.Error("font", "unable to read font file", "path", path, "err", err)
			continue
		}
		info, err := describeFont(path, ext, data)
		if err != nil {
			d.svc.Log.Error("font", "unable to parse font file", "path", path, "err", err)
			continue
		}
		fonts = append(fonts, info)
	}
	sort.SliceStable(fonts, func(i, j int) bool { return fonts[i].FullName < fonts[j].FullName })

	return withContent(FontList{Fonts: fonts, HomeDir: homeDir()}), nil
}
