package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/codefionn/selenai/internal/tools"
)

// maxSymlinkHops bounds manual resolution of dangling links.
const maxSymlinkHops = 40

// Guard confines paths to a canonical workspace root.
type Guard struct {
	root string
}

// NewGuard canonicalizes root (absolute, symlinks resolved). The root must
// exist.
func NewGuard(root string) (*Guard, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root %s: %w", root, err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize workspace root %s: %w", abs, err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", canonical)
	}
	return &Guard{root: canonical}, nil
}

// Root returns the canonical workspace root.
func (g *Guard) Root() string {
	return g.root
}

// Resolve maps requested (relative to the root, or absolute) to a canonical
// path inside the root. Any ".." segment is refused outright, and the
// symlink-resolved target is re-checked against the root. The returned
// path may name a file that does not exist yet.
func (g *Guard) Resolve(requested string) (string, error) {
	if strings.ContainsRune(requested, 0) {
		return "", tools.Errorf(tools.KindIO, "resolve", "path contains NUL byte")
	}
	if requested == "" {
		requested = "."
	}
	if hasDotDot(requested) {
		return "", tools.NewError(tools.KindPathTraversal, "", requested, nil)
	}

	candidate := requested
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(g.root, candidate)
	}
	candidate = filepath.Clean(candidate)
	if !Within(g.root, candidate) {
		return "", tools.NewError(tools.KindPathTraversal, "", requested, nil)
	}

	resolved, err := canonicalizeWithMissing(candidate, 0)
	if err != nil {
		if errors.Is(err, errTooManyLinks) {
			return "", tools.NewError(tools.KindPathTraversal, "", requested, err)
		}
		return "", tools.NewError(tools.KindIO, "", requested, err)
	}
	if !Within(g.root, resolved) {
		return "", tools.NewError(tools.KindPathTraversal, "", requested, nil)
	}
	return resolved, nil
}

// Rel resolves requested and returns it relative to the root, suitable for
// os.Root operations.
func (g *Guard) Rel(requested string) (string, error) {
	resolved, err := g.Resolve(requested)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(g.root, resolved)
	if err != nil {
		return "", tools.NewError(tools.KindPathTraversal, "", requested, err)
	}
	return rel, nil
}

// inVCSMetadata reports whether rel lies inside a .git directory. Files
// there (hooks, core.fsmonitor) decide what later git commands execute.
func inVCSMetadata(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.EqualFold(part, ".git") {
			return true
		}
	}
	return false
}

// CheckWritable resolves p and refuses targets inside repository metadata.
func CheckWritable(fsys FileSystem, p string) error {
	resolved, err := fsys.Resolve(p)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(fsys.Root(), resolved)
	if err != nil {
		return tools.NewError(tools.KindPathTraversal, "write_file", p, err)
	}
	if inVCSMetadata(rel) {
		return tools.Errorf(tools.KindCapabilityDenied, "write_file", "%s is inside repository metadata", p)
	}
	return nil
}

// EnsureSingleComponent rejects names that are empty, "." / "..", or carry
// a separator. Used for directory entry names and user supplied file names
// that are later joined onto a trusted directory.
func EnsureSingleComponent(value, kind string) error {
	if value == "" || value == "." || value == ".." ||
		strings.ContainsAny(value, `/\`) || strings.ContainsRune(value, 0) ||
		filepath.Base(value) != value {
		return tools.Errorf(tools.KindPathTraversal, kind, "%s name must be a single path segment: %q", kind, value)
	}
	return nil
}

// Within reports whether path is root or below it. Both must be clean and
// absolute.
func Within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func hasDotDot(p string) bool {
	for _, part := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == filepath.Separator }) {
		if part == ".." {
			return true
		}
	}
	return false
}

var errTooManyLinks = errors.New("too many levels of symbolic links")

// canonicalizeWithMissing resolves every symlink in path. Trailing
// components that do not exist yet are appended verbatim to the canonical
// form of the deepest existing ancestor. Dangling links are followed by
// hand so a link to a missing file outside the root is still caught.
func canonicalizeWithMissing(path string, hops int) (string, error) {
	if hops > maxSymlinkHops {
		return "", errTooManyLinks
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	var missing []string
	current := path
	for {
		info, lerr := os.Lstat(current)
		if lerr == nil {
			if info.Mode()&os.ModeSymlink != 0 {
				target, rerr := os.Readlink(current)
				if rerr != nil {
					return "", rerr
				}
				if !filepath.IsAbs(target) {
					target = filepath.Join(filepath.Dir(current), target)
				}
				return canonicalizeWithMissing(joinMissing(filepath.Clean(target), missing), hops+1)
			}
			base, err := filepath.EvalSymlinks(current)
			if err != nil {
				return "", err
			}
			return joinMissing(base, missing), nil
		}
		if !errors.Is(lerr, fs.ErrNotExist) {
			return "", lerr
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("unable to canonicalize %s: %w", path, fs.ErrNotExist)
		}
		missing = append(missing, filepath.Base(current))
		current = parent
	}
}

// joinMissing appends segments collected deepest-first.
func joinMissing(base string, missing []string) string {
	out := base
	for i := len(missing) - 1; i >= 0; i-- {
		out = filepath.Join(out, missing[i])
	}
	return out
}
