package context

import (
	"errors"
	"os"
	"path/filepath"
)

var errTimeout = errors.New("context: subprocess timed out")

// marker associates a single project type with the file or directory name
// that identifies it. The first matching marker wins; order reflects
// specificity (a more specific tool manifest before its looser sibling).
type marker struct {
	name        string
	projectType string
	isDir       bool
}

// builtinMarkers is the fixed detection table. Unlike the teacher's
// multi-type detector with a YAML override file, project_type here is a
// single value (matching the Rust original and rpc.ContextInfo.Project),
// so the table is consulted top to bottom and the first hit is returned.
var builtinMarkers = []marker{
	{name: "go.mod", projectType: "go"},
	{name: "Cargo.toml", projectType: "rust"},
	{name: "package.json", projectType: "node"},
	{name: "pyproject.toml", projectType: "python"},
	{name: "setup.py", projectType: "python"},
	{name: "requirements.txt", projectType: "python"},
	{name: "Gemfile", projectType: "ruby"},
	{name: "pom.xml", projectType: "java"},
	{name: "build.gradle", projectType: "java"},
	{name: "build.gradle.kts", projectType: "java"},
	{name: "CMakeLists.txt", projectType: "cmake"},
	{name: "Makefile", projectType: "make"},
	{name: "composer.json", projectType: "php"},
	{name: "mix.exs", projectType: "elixir"},
	{name: "*.csproj", projectType: "dotnet", isDir: false},
	{name: ".terraform", projectType: "terraform", isDir: true},
}

// maxScanDepth bounds the upward walk so a command run from deep within
// an unrelated filesystem tree doesn't scan all the way to root.
const maxScanDepth = 10

// detectProjectType walks upward from dir up to maxScanDepth levels,
// returning the project type of the first directory containing a marker.
func detectProjectType(dir string) string {
	cur := dir
	for depth := 0; depth < maxScanDepth; depth++ {
		if pt, ok := matchMarkers(cur); ok {
			return pt
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	return ""
}

func matchMarkers(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}

	for _, m := range builtinMarkers {
		if m.name == "*.csproj" {
			for n := range names {
				if matched, _ := filepath.Match("*.csproj", n); matched {
					return m.projectType, true
				}
			}
			continue
		}
		if names[m.name] {
			return m.projectType, true
		}
	}
	return "", false
}
