package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/codefionn/selenai/internal/consts"
	"github.com/codefionn/selenai/internal/logger"
	"github.com/codefionn/selenai/internal/tools"
)

// FileInfo represents file metadata
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// FileSystem is the confined view of the workspace that capabilities use.
// Every path is interpreted relative to the workspace root.
type FileSystem interface {
	// Root returns the canonical workspace root
	Root() string
	// Resolve returns the canonical path for p or a PathTraversal error
	Resolve(p string) (string, error)
	// ReadFile reads the entire file
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// WriteFile writes data, creating parent directories
	WriteFile(ctx context.Context, path string, data []byte) error
	// Stat returns file information
	Stat(ctx context.Context, path string) (*FileInfo, error)
	// ListDir lists directory contents sorted by name
	ListDir(ctx context.Context, path string) ([]*FileInfo, error)
}

// Workspace implements FileSystem on top of os.Root. The Guard produces
// precise PathTraversal errors up front; os.Root then refuses to leave the
// root at open time, so a symlink swapped in between the check and the
// operation still cannot escape.
type Workspace struct {
	guard *Guard
	root  *os.Root
	log   *logger.Logger
}

// OpenWorkspace opens dir as a confined workspace.
func OpenWorkspace(dir string) (*Workspace, error) {
	guard, err := NewGuard(dir)
	if err != nil {
		return nil, err
	}
	root, err := os.OpenRoot(guard.Root())
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace root: %w", err)
	}
	return &Workspace{
		guard: guard,
		root:  root,
		log:   logger.Global().WithPrefix("fs"),
	}, nil
}

// Close releases the root handle.
func (w *Workspace) Close() error {
	return w.root.Close()
}

func (w *Workspace) Root() string {
	return w.guard.Root()
}

func (w *Workspace) Resolve(p string) (string, error) {
	return w.guard.Resolve(p)
}

// Guard exposes the path guard for callers that only need resolution.
func (w *Workspace) Guard() *Guard {
	return w.guard
}

func (w *Workspace) rel(op, p string) (string, error) {
	rel, err := w.guard.Rel(p)
	if err != nil {
		return "", withOp(err, op, p)
	}
	return rel, nil
}

func (w *Workspace) ReadFile(ctx context.Context, path string) ([]byte, error) {
	rel, err := w.rel("read_file", path)
	if err != nil {
		return nil, err
	}
	f, err := w.root.Open(rel)
	if err != nil {
		return nil, classify("read_file", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, classify("read_file", path, err)
	}
	if info.IsDir() {
		return nil, tools.NewError(tools.KindIO, "read_file", path, errors.New("is a directory"))
	}
	if info.Size() > consts.MaxFileSize {
		return nil, tools.NewError(tools.KindIO, "read_file", path,
			fmt.Errorf("file exceeds size limit (%d bytes)", consts.MaxFileSize))
	}

	data, err := io.ReadAll(io.LimitReader(f, consts.MaxFileSize+1))
	if err != nil {
		return nil, classify("read_file", path, err)
	}
	if len(data) > consts.MaxFileSize {
		return nil, tools.NewError(tools.KindIO, "read_file", path,
			fmt.Errorf("file exceeds size limit (%d bytes)", consts.MaxFileSize))
	}
	return data, nil
}

// ReadText reads a file that must be valid UTF-8.
func (w *Workspace) ReadText(ctx context.Context, path string) (string, error) {
	return ReadText(ctx, w, path)
}

// ReadText reads a UTF-8 file through any FileSystem.
func ReadText(ctx context.Context, fsys FileSystem, path string) (string, error) {
	data, err := fsys.ReadFile(ctx, path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", tools.NewError(tools.KindIO, "read_file", path, errors.New("file is not valid UTF-8"))
	}
	return string(data), nil
}

func (w *Workspace) WriteFile(ctx context.Context, path string, data []byte) error {
	rel, err := w.rel("write_file", path)
	if err != nil {
		return err
	}
	if rel == "." {
		return tools.NewError(tools.KindIO, "write_file", path, errors.New("is a directory"))
	}
	if inVCSMetadata(rel) {
		return tools.Errorf(tools.KindCapabilityDenied, "write_file", "%s is inside repository metadata", path)
	}
	if dir := filepath.Dir(rel); dir != "." {
		if err := w.root.MkdirAll(dir, 0755); err != nil {
			return classify("write_file", path, err)
		}
	}
	if err := w.root.WriteFile(rel, data, 0644); err != nil {
		return classify("write_file", path, err)
	}
	w.log.Debug("wrote %s (%d bytes)", rel, len(data))
	return nil
}

func (w *Workspace) Stat(ctx context.Context, path string) (*FileInfo, error) {
	rel, err := w.rel("stat", path)
	if err != nil {
		return nil, err
	}
	info, err := w.root.Stat(rel)
	if err != nil {
		return nil, classify("stat", path, err)
	}
	return toFileInfo(rel, info), nil
}

func (w *Workspace) ListDir(ctx context.Context, path string) ([]*FileInfo, error) {
	rel, err := w.rel("list_dir", path)
	if err != nil {
		return nil, err
	}
	f, err := w.root.Open(rel)
	if err != nil {
		return nil, classify("list_dir", path, err)
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, classify("list_dir", path, err)
	}

	result := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if err := EnsureSingleComponent(entry.Name(), "entry"); err != nil {
			w.log.Warn("skipping suspicious directory entry %q in %s", entry.Name(), rel)
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info
			continue
		}
		result = append(result, toFileInfo(filepath.Join(rel, entry.Name()), info))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func toFileInfo(rel string, info iofs.FileInfo) *FileInfo {
	return &FileInfo{
		Path:    filepath.ToSlash(rel),
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}
}

// classify maps an os error into the tool taxonomy. os.Root reports an
// escape attempt with "path escapes from parent".
func classify(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "path escapes from parent") {
		return tools.NewError(tools.KindPathTraversal, op, path, err)
	}
	return tools.NewError(tools.KindIO, op, path, err)
}

func withOp(err error, op, path string) error {
	var te *tools.Error
	if errors.As(err, &te) {
		return &tools.Error{Kind: te.Kind, Op: op, Path: path, Err: te.Err}
	}
	return classify(op, path, err)
}
