package docker

import (
	"bytes"
	"strings"
	"testing"
)

func TestReadBuildOutput(t *testing.T) {
	stream := `{"stream":"Step 1/2 : FROM alpine\n"}
{"status":"Pulling fs layer","id":"abc"}
{"stream":"Successfully built 123\n"}
`
	var out bytes.Buffer
	if err := readBuildOutput(strings.NewReader(stream), &out); err != nil {
		t.Fatalf("readBuildOutput: %v", err)
	}
	want := "Step 1/2 : FROM alpine\nPulling fs layer\nSuccessfully built 123\n"
	if out.String() != want {
		t.Errorf("output: got %q, want %q", out.String(), want)
	}
}

func TestReadBuildOutputError(t *testing.T) {
	stream := `{"stream":"Step 1/2 : RUN false\n"}
{"errorDetail":{"code":1,"message":"The command '/bin/sh -c false' returned a non-zero code: 1"},"error":"ignored"}
`
	var out bytes.Buffer
	err := readBuildOutput(strings.NewReader(stream), &out)
	if err == nil || !strings.Contains(err.Error(), "non-zero code: 1") {
		t.Fatalf("got %v", err)
	}
	if !strings.Contains(out.String(), "RUN false") {
		t.Errorf("output before the error should be kept: %q", out.String())
	}
}
