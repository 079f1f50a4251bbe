package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/proteingym/pg2-benchmark/internal/modelcard"
)

const (
	PyprojectFile = "pyproject.toml"
	ModelCardFile = "README.md"
	Dockerfile    = "Dockerfile"
)

type Check struct {
	Name    string
	OK      bool
	Warning bool
	Message string
}

// Report collects the checks run against one model project.
type Report struct {
	Dir         string
	ProjectName string
	EntryPoints []string
	Card        *modelcard.Card
	Checks      []Check
}

// OK is false when any check failed. Warnings do not count.
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if !c.OK && !c.Warning {
			return false
		}
	}
	return true
}

func (r *Report) pass(name, format string, args ...any) {
	r.Checks = append(r.Checks, Check{Name: name, OK: true, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) fail(name, format string, args ...any) {
	r.Checks = append(r.Checks, Check{Name: name, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) warn(name, format string, args ...any) {
	r.Checks = append(r.Checks, Check{Name: name, Warning: true, Message: fmt.Sprintf(format, args...)})
}

type pyproject struct {
	Project *struct {
		Name    string            `toml:"name"`
		Scripts map[string]string `toml:"scripts"`
	} `toml:"project"`
}

// ValidateProject checks that dir is a runnable model project: a
// pyproject.toml naming the project and its console scripts, a model card
// with front matter, and a Dockerfile. required lists entry points that must
// be among the scripts.
func ValidateProject(dir string, required ...string) *Report {
	r := &Report{Dir: dir}
	info, err := os.Stat(dir)
	if err != nil {
		r.fail("project", "Project path does not exist: %s", dir)
		return r
	}
	if !info.IsDir() {
		r.fail("project", "Project path is not a directory: %s", dir)
		return r
	}

	checkPyproject(r, filepath.Join(dir, PyprojectFile), required)
	checkModelCard(r, filepath.Join(dir, ModelCardFile))

	if _, err := os.Stat(filepath.Join(dir, Dockerfile)); err != nil {
		r.warn("dockerfile", "No Dockerfile in %s; an image must be provided", dir)
	} else {
		r.pass("dockerfile", "Found %s", Dockerfile)
	}
	return r
}

func checkPyproject(r *Report, path string, required []string) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.fail("pyproject", "File does not exist: %s", path)
		return
	}
	var doc pyproject
	if err := toml.Unmarshal(data, &doc); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			r.fail("pyproject", "Invalid TOML in %s at line %d, column %d: %v", path, row, col, derr)
			return
		}
		r.fail("pyproject", "Invalid TOML in %s: %v", path, err)
		return
	}
	if doc.Project == nil {
		r.fail("pyproject", "File does not contain a project header: %s", path)
		return
	}
	if strings.TrimSpace(doc.Project.Name) == "" {
		r.fail("pyproject", "The project header does not contain a name: %s", path)
		return
	}
	r.ProjectName = doc.Project.Name
	r.pass("pyproject", "Project %s", doc.Project.Name)

	for name, target := range doc.Project.Scripts {
		if module, fn, ok := strings.Cut(target, ":"); !ok || module == "" || fn == "" {
			r.fail("entry points", "Script %q target %q is not module:function", name, target)
			return
		}
		r.EntryPoints = append(r.EntryPoints, name)
	}
	sort.Strings(r.EntryPoints)
	if len(r.EntryPoints) == 0 {
		r.fail("entry points", "No entry points found for project: %s", doc.Project.Name)
		return
	}
	var missing []string
	for _, want := range required {
		if !r.hasEntryPoint(want) {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		r.fail("entry points", "Missing entry points %s (found %s)", strings.Join(missing, ", "), strings.Join(r.EntryPoints, ", "))
		return
	}
	r.pass("entry points", "Entry points %s", strings.Join(r.EntryPoints, ", "))
}

func (r *Report) hasEntryPoint(name string) bool {
	for _, ep := range r.EntryPoints {
		if ep == name {
			return true
		}
	}
	return false
}

func checkModelCard(r *Report, path string) {
	if _, err := os.Stat(path); err != nil {
		r.fail("model card", "Model does not have a model card at %s", path)
		return
	}
	card, err := modelcard.Load(path)
	if err != nil {
		r.fail("model card", "Error loading model card from %s: %v", path, err)
		return
	}
	r.Card = card
	r.pass("model card", "Loaded %s with hyper parameters %v", card.Name, card.HyperParams)
}
