// Package modelcard reads the YAML front matter of a model's README.md.
package modelcard

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var delimiter = []byte("---")

// Card is the front matter of a model card. Keys other than name and
// hyper_params are kept in Extra.
type Card struct {
	Name        string         `yaml:"name"`
	HyperParams map[string]any `yaml:"hyper_params,omitempty"`
	Extra       map[string]any `yaml:",inline"`
	Body        string         `yaml:"-"`
}

var ErrNoFrontMatter = errors.New("no front matter")

func Load(path string) (*Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model card: %w", err)
	}
	card, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("model card %s: %w", path, err)
	}
	return card, nil
}

// Parse splits a "---" delimited YAML header from the markdown body and
// decodes it. The name is required.
func Parse(data []byte) (*Card, error) {
	meta, body, err := split(data)
	if err != nil {
		return nil, err
	}
	var card Card
	if err := yaml.Unmarshal(meta, &card); err != nil {
		return nil, fmt.Errorf("parsing front matter: %w", err)
	}
	if card.Name == "" {
		return nil, fmt.Errorf("front matter: name is required")
	}
	if card.HyperParams == nil {
		card.HyperParams = map[string]any{}
	}
	card.Body = string(body)
	return &card, nil
}

func split(data []byte) (meta, body []byte, err error) {
	data = bytes.TrimLeft(data, " \t\r\n\ufeff")
	first, rest, ok := cutLine(data)
	if !ok || !bytes.Equal(bytes.TrimSpace(first), delimiter) {
		return nil, nil, ErrNoFrontMatter
	}
	var lines [][]byte
	for {
		line, next, more := cutLine(rest)
		if bytes.Equal(bytes.TrimSpace(line), delimiter) {
			return bytes.Join(lines, []byte("\n")), bytes.TrimLeft(next, "\r\n"), nil
		}
		if !more {
			return nil, nil, fmt.Errorf("unterminated front matter")
		}
		lines = append(lines, line)
		rest = next
	}
}

func cutLine(data []byte) (line, rest []byte, more bool) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return bytes.TrimSuffix(data[:i], []byte("\r")), data[i+1:], true
	}
	return data, nil, false
}
