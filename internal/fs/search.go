package fs

import (
	"bufio"
	"bytes"
	"context"
	"path"
	"regexp"
	"sort"
	"sync"

	"github.com/codefionn/selenai/internal/consts"
	"github.com/codefionn/selenai/internal/tools"
	"golang.org/x/sync/errgroup"
)

// searchWorkers bounds concurrent file scans.
const searchWorkers = 8

// maxSearchFileSize skips large files, they are rarely source.
const maxSearchFileSize = consts.BufferSize1MB

// Match is one matching line.
type Match struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Search finds lines matching the regular expression pattern below dir,
// honoring .gitignore files through cache. Results are ordered by path and
// line and capped at consts.MaxSearchMatches.
func Search(ctx context.Context, fsys FileSystem, cache *IgnoreCache, pattern, dir string) ([]Match, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, tools.NewError(tools.KindArgumentParse, "search", pattern, err)
	}
	if dir == "" {
		dir = "."
	}

	info, err := fsys.Stat(ctx, dir)
	if err != nil {
		return nil, withOp(err, "search", dir)
	}

	var files []string
	if info.IsDir {
		files, err = collectFiles(ctx, fsys, cache, info.Path)
		if err != nil {
			return nil, err
		}
	} else {
		files = []string{info.Path}
	}

	var (
		mu      sync.Mutex
		matches []Match
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(searchWorkers)
	for _, file := range files {
		g.Go(func() error {
			found, err := scanFile(gctx, fsys, re, file)
			if err != nil {
				// Unreadable files are skipped, not fatal
				return nil
			}
			if len(found) == 0 {
				return nil
			}
			mu.Lock()
			matches = append(matches, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Path != matches[j].Path {
			return matches[i].Path < matches[j].Path
		}
		return matches[i].Line < matches[j].Line
	})
	if len(matches) > consts.MaxSearchMatches {
		matches = matches[:consts.MaxSearchMatches]
	}
	return matches, nil
}

func collectFiles(ctx context.Context, fsys FileSystem, cache *IgnoreCache, start string) ([]string, error) {
	var files []string
	queue := []string{start}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir := queue[0]
		queue = queue[1:]

		entries, err := fsys.ListDir(ctx, dir)
		if err != nil {
			if dir == start {
				return nil, withOp(err, "search", dir)
			}
			continue
		}
		for _, entry := range entries {
			rel := path.Join(dir, entry.Name)
			if cache != nil && cache.Ignored(ctx, rel, entry.IsDir) {
				continue
			}
			if entry.IsDir {
				queue = append(queue, rel)
				continue
			}
			if entry.Size > maxSearchFileSize {
				continue
			}
			files = append(files, rel)
		}
	}
	return files, nil
}

func scanFile(ctx context.Context, fsys FileSystem, re *regexp.Regexp, file string) ([]Match, error) {
	data, err := fsys.ReadFile(ctx, file)
	if err != nil {
		return nil, err
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, nil
	}

	var found []Match
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, consts.BufferSize64KB), consts.BufferSize1MB)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if re.MatchString(text) {
			found = append(found, Match{Path: file, Line: line, Text: text})
		}
	}
	return found, nil
}
