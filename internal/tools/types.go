package tools

// Status captures the probed state of a registered tool.
type Status struct {
	Tool      string `json:"tool"`
	Type      string `json:"type"`
	Path      string `json:"path"`
	Version   string `json:"version,omitempty"`
	Minimum   string `json:"minimum,omitempty"`
	Maximum   string `json:"maximum,omitempty"`
	Available bool   `json:"available"`
	Satisfied bool   `json:"satisfied"`
	Error     string `json:"error,omitempty"`
}
