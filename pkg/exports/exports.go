// Package exports renders the kernel NFS export table (/etc/exports).
//
// The primary directory becomes the NFSv4 pseudo root (fsid=0). Extra
// directories, and optionally every subdirectory of the primary directory,
// are exported next to it with increasing fsids. Every entry gets the same
// client list and option set.
package exports

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/paulissoft/nfs-server-alpine/internal/logger"
	"github.com/spf13/afero"
)

var (
	// ErrDirectoryMissing is returned when the primary export directory does
	// not exist or is not a directory.
	ErrDirectoryMissing = errors.New("export directory does not exist")

	// ErrDuplicateDirectory is returned when a directory would be exported twice.
	ErrDuplicateDirectory = errors.New("directory exported more than once")
)

// Config describes what to export and how.
type Config struct {
	// File is where the export table is written
	File string `mapstructure:"file" yaml:"file" validate:"required"`

	// Directory is the primary export, served as the NFSv4 root
	Directory string `mapstructure:"directory" yaml:"directory" validate:"required,startswith=/"`

	// ExtraDirectories are exported alongside the primary directory
	ExtraDirectories []string `mapstructure:"extra_directories" yaml:"extra_directories" validate:"dive,startswith=/"`

	// Subdirectories exports every immediate, non-hidden subdirectory of
	// Directory as well
	Subdirectories bool `mapstructure:"subdirectories" yaml:"subdirectories"`

	// Permitted lists the client specs (host, wildcard, CIDR), separated by
	// spaces or commas
	Permitted string `mapstructure:"permitted" yaml:"permitted" validate:"required"`

	// ReadOnly exports with "ro" instead of "rw"
	ReadOnly bool `mapstructure:"read_only" yaml:"read_only"`

	// Sync exports with "sync" instead of "async"
	Sync bool `mapstructure:"sync" yaml:"sync"`

	// Options are appended to every entry's option list
	Options []string `mapstructure:"options" yaml:"options"`
}

// DefaultOptions are the export options used when none are configured.
func DefaultOptions() []string {
	return []string{"no_subtree_check", "no_auth_nlm", "insecure", "no_root_squash"}
}

// Entry is one line of the export table.
type Entry struct {
	Directory string
	FSID      int
	Clients   []string

	// Access is "rw" or "ro"
	Access string

	// Options follow access and fsid in the option list
	Options []string
}

// String renders the entry in exports(5) syntax.
func (e Entry) String() string {
	opts := append([]string{e.Access, fmt.Sprintf("fsid=%d", e.FSID)}, e.Options...)
	optList := strings.Join(opts, ",")

	var b strings.Builder
	b.WriteString(e.Directory)
	for _, c := range e.Clients {
		b.WriteString(" ")
		b.WriteString(c)
		b.WriteString("(")
		b.WriteString(optList)
		b.WriteString(")")
	}
	return b.String()
}

// Entries builds the export table entries for cfg, reading the directory
// tree from fsys.
func Entries(fsys afero.Fs, cfg Config) ([]Entry, error) {
	info, err := fsys.Stat(cfg.Directory)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryMissing, cfg.Directory)
	}

	dirs := []string{cfg.Directory}
	dirs = append(dirs, cfg.ExtraDirectories...)

	if cfg.Subdirectories {
		children, err := afero.ReadDir(fsys, cfg.Directory)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", cfg.Directory, err)
		}
		// afero.ReadDir sorts by name
		for _, child := range children {
			if !child.IsDir() || strings.HasPrefix(child.Name(), ".") {
				continue
			}
			dirs = append(dirs, path.Join(filepath.ToSlash(cfg.Directory), child.Name()))
		}
	}

	clients := splitClients(cfg.Permitted)
	if len(clients) == 0 {
		clients = []string{"*"}
	}

	access := "rw"
	if cfg.ReadOnly {
		access = "ro"
	}
	options := optionList(cfg)

	seen := make(map[string]bool, len(dirs))
	entries := make([]Entry, 0, len(dirs))
	for i, dir := range dirs {
		dir = path.Clean(dir)
		if seen[dir] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDirectory, dir)
		}
		seen[dir] = true

		entries = append(entries, Entry{
			Directory: dir,
			FSID:      i,
			Clients:   clients,
			Access:    access,
			Options:   options,
		})
	}

	return entries, nil
}

// Render returns the export table for cfg.
func Render(fsys afero.Fs, cfg Config) ([]byte, error) {
	entries, err := Entries(fsys, cfg)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.String())
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

func optionList(cfg Config) []string {
	mode := "async"
	if cfg.Sync {
		mode = "sync"
	}

	opts := cfg.Options
	if opts == nil {
		opts = DefaultOptions()
	}

	return append([]string{mode}, opts...)
}

func splitClients(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

// Generator writes the export table to its configured location.
type Generator struct {
	fs  afero.Fs
	cfg Config
}

// NewGenerator creates a Generator writing through fsys.
func NewGenerator(fsys afero.Fs, cfg Config) *Generator {
	return &Generator{fs: fsys, cfg: cfg}
}

// Path returns the export table location.
func (g *Generator) Path() string {
	return g.cfg.File
}

// Generate renders and writes the export table, replacing any previous one.
func (g *Generator) Generate() error {
	data, err := Render(g.fs, g.cfg)
	if err != nil {
		return err
	}

	if err := g.fs.MkdirAll(filepath.Dir(g.cfg.File), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", g.cfg.File, err)
	}
	if err := afero.WriteFile(g.fs, g.cfg.File, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", g.cfg.File, err)
	}

	logger.Info("Wrote export table %s", g.cfg.File)
	return nil
}
