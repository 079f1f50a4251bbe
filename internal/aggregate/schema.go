package aggregate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/xeipuuv/gojsonschema"

	"github.com/proteingym/pg2-benchmark/internal/metric"
)

// ParseError reports a per-fold metric file that is not valid JSON or does
// not have the shape of a metric set.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing metric file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

const foldFileSchema = `{
  "type": "object",
  "additionalProperties": {
    "type": ["number", "string", "null"]
  }
}`

var foldSchema = gojsonschema.NewStringLoader(foldFileSchema)

func readFoldFile(fs afero.Fs, path string) (*metric.Set, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	res, err := gojsonschema.Validate(foldSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, &ParseError{Path: path, Err: errors.New(strings.Join(msgs, "; "))}
	}

	set := metric.NewSet()
	if err := set.UnmarshalJSON(data); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return set, nil
}
