package command

import "encoding/json"

const (
	StatusOK      = "ok"
	StatusIgnored = "ignored"
	StatusError   = "error"
)

// Envelope is the uniform result of every command.
type Envelope struct {
	Content     any      `json:"content"`
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	OutputPaths []string `json:"output_paths"`
}

// NewEnvelope returns an ok envelope with null content.
func NewEnvelope() *Envelope {
	return &Envelope{Status: StatusOK, OutputPaths: []string{}}
}

// withContent is shorthand for an ok envelope carrying content.
func withContent(content any) *Envelope {
	env := NewEnvelope()
	env.Content = content
	return env
}

func (e *Envelope) AddOutputPath(path string) {
	e.OutputPaths = append(e.OutputPaths, path)
}

// JSON encodes the envelope. output_paths is always an array.
func (e *Envelope) JSON() (string, error) {
	out := *e
	if out.OutputPaths == nil {
		out.OutputPaths = []string{}
	}
	if out.Status == "" {
		out.Status = StatusOK
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
