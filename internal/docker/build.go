package docker

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/moby/moby/api/types/jsonstream"
	"github.com/moby/moby/client"
)

// BuildOptions returns the image build options that tag the build and pass
// buildArgs as Dockerfile ARGs.
func BuildOptions(tag string, buildArgs map[string]string) client.ImageBuildOptions {
	args := make(map[string]*string, len(buildArgs))
	for k, v := range buildArgs {
		args[k] = &v
	}
	return client.ImageBuildOptions{
		Tags:        []string{tag},
		Dockerfile:  "Dockerfile",
		BuildArgs:   args,
		Remove:      true,
		ForceRemove: true,
	}
}

// WriteContext writes dir as a tar build context. The .git directory is left
// out.
func WriteContext(w io.Writer, dir string) error {
	tw := tar.NewWriter(w)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == "." {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return fmt.Errorf("archiving build context %s: %w", dir, err)
	}
	return tw.Close()
}

// BuildImage builds a model project's Dockerfile through the docker daemon,
// streaming the build output to out.
func BuildImage(ctx context.Context, contextDir, tag string, buildArgs map[string]string, out io.Writer) error {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(WriteContext(pw, contextDir))
	}()
	defer pr.Close()

	res, err := cli.ImageBuild(ctx, pr, BuildOptions(tag, buildArgs))
	if err != nil {
		return fmt.Errorf("building image %s from %s: %w", tag, contextDir, err)
	}
	defer res.Body.Close()
	if err := readBuildOutput(res.Body, out); err != nil {
		return fmt.Errorf("building image %s from %s: %w", tag, contextDir, err)
	}
	return nil
}

// readBuildOutput copies the stream lines of a build response to out and
// returns the first error message the daemon reports.
func readBuildOutput(r io.Reader, out io.Writer) error {
	dec := json.NewDecoder(r)
	for {
		var msg jsonstream.Message
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading build output: %w", err)
		}
		if msg.Error != nil {
			return errors.New(msg.Error.Message)
		}
		if msg.Stream != "" {
			io.WriteString(out, msg.Stream)
		} else if msg.Status != "" {
			fmt.Fprintln(out, msg.Status)
		}
	}
}
