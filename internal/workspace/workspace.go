package workspace

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// DirName is the project-local workspace directory.
const DirName = ".openfleet"

//go:embed all:templates
var templateFS embed.FS

// Workspace describes the .openfleet directory tree inside a project:
// status.md as the anchor point, per-agent scratchpads, session
// records, transcripts, review artifacts and the shared log file.
type Workspace struct {
	Root string
}

// New returns the workspace rooted inside projectDir.
func New(projectDir string) *Workspace {
	return &Workspace{Root: filepath.Join(projectDir, DirName)}
}

// Resolve returns the workspace at dir, the configured workspace.dir
// value. Relative paths are rooted in the current working directory;
// an empty dir falls back to DirName.
func Resolve(dir string) (*Workspace, error) {
	if dir == "" {
		dir = DirName
	}
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}
	return &Workspace{Root: dir}, nil
}

// Default returns the workspace for the current working directory.
func Default() (*Workspace, error) {
	return Resolve(DirName)
}

func (w *Workspace) StatusFile() string  { return filepath.Join(w.Root, "status.md") }
func (w *Workspace) Templates() string   { return filepath.Join(w.Root, ".templates") }
func (w *Workspace) Agents() string      { return filepath.Join(w.Root, "agents") }
func (w *Workspace) Sessions() string    { return filepath.Join(w.Root, "sessions") }
func (w *Workspace) Transcripts() string { return filepath.Join(w.Root, "transcripts") }
func (w *Workspace) Reviews() string     { return filepath.Join(w.Root, "reviews") }
func (w *Workspace) Stories() string     { return filepath.Join(w.Root, "stories") }
func (w *Workspace) Docs() string        { return filepath.Join(w.Root, "docs") }
func (w *Workspace) LogFile() string     { return filepath.Join(w.Root, "openfleet.log") }

// Init seeds the workspace from the embedded template tree on first
// run. It is idempotent: if the root directory already exists nothing
// is touched.
func (w *Workspace) Init() error {
	if _, err := os.Stat(w.Root); err == nil {
		return nil
	}

	if err := w.copyTemplates(); err != nil {
		return err
	}

	// Runtime directories are created empty rather than shipped as
	// templates.
	for _, dir := range []string{
		w.Agents(), w.Sessions(), w.Transcripts(), w.Reviews(), w.Stories(), w.Docs(),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	log.Info().Str("root", w.Root).Msg("Initialized workspace directory")
	return nil
}

func (w *Workspace) copyTemplates() error {
	return fs.WalkDir(templateFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel("templates", path)
		if err != nil {
			return err
		}
		dest := filepath.Join(w.Root, rel)

		if d.IsDir() {
			return os.MkdirAll(dest, 0755)
		}

		data, err := templateFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", path, err)
		}
		return os.WriteFile(dest, data, 0644)
	})
}
