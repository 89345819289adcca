package functions

import (
	"sort"
	"strings"
)

// PseudoExtensions are the internal tokens describing a selection's shape.
var PseudoExtensions = []string{"/file", "/dir", "/files", "/dirs", "/paths"}

// Supported is the result of SupportedFunctions.
type Supported struct {
	Names []string                `json:"names"`
	Items map[string]FileFunction `json:"items"`
}

// SupportedFunctions returns the file functions applicable to a selection
// whose extensions (real and pseudo) are exts. Every real extension narrows
// the set; each pseudo token present then adds the functions listing it and
// removes the ones listing its negation.
func SupportedFunctions(reg *FileRegistry, exts []string) (Supported, error) {
	all, err := reg.List()
	if err != nil {
		return Supported{}, err
	}
	return supportedFrom(all, exts), nil
}

func supportedFrom(all map[string]FileFunction, exts []string) Supported {
	input := NewStringSet(exts...)

	selected := make(map[string]bool, len(all))
	for name := range all {
		selected[name] = true
	}

	for ext := range input {
		if strings.HasPrefix(ext, "/") {
			continue
		}
		for name := range selected {
			m := all[name].Matches.Extensions
			if !m.Has("*") && !m.Has("/all") && !m.Has(ext) {
				delete(selected, name)
			}
		}
	}

	for _, token := range PseudoExtensions {
		if !input.Has(token) {
			continue
		}
		for name, fn := range all {
			allow := fn.Matches.Extensions.Has(token)
			deny := fn.Matches.Extensions.Has("!" + token)
			switch {
			case allow && !deny:
				selected[name] = true
			case deny:
				delete(selected, name)
			}
		}
	}

	out := Supported{Names: make([]string, 0, len(selected)), Items: make(map[string]FileFunction, len(selected))}
	for name := range selected {
		out.Names = append(out.Names, name)
		out.Items[name] = all[name]
	}
	sort.Strings(out.Names)
	return out
}
