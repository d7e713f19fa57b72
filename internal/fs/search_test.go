package fs

import (
	"context"
	"testing"

	"github.com/codefionn/selenai/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchHonorsGitignore(t *testing.T) {
	ctx := context.Background()
	ws := openTestWorkspace(t)
	cache := NewIgnoreCache(ws)
	defer cache.Close()

	require.NoError(t, ws.WriteFile(ctx, ".gitignore", []byte("build/\n*.log\n!keep.log\n")))
	require.NoError(t, ws.WriteFile(ctx, "main.go", []byte("package main\n// TODO: wire flags\n")))
	require.NoError(t, ws.WriteFile(ctx, "build/out.go", []byte("// TODO: generated\n")))
	require.NoError(t, ws.WriteFile(ctx, "debug.log", []byte("TODO in log\n")))
	require.NoError(t, ws.WriteFile(ctx, "keep.log", []byte("TODO kept\n")))
	require.NoError(t, ws.WriteFile(ctx, "pkg/util.go", []byte("x\n// TODO: util\n")))

	matches, err := Search(ctx, ws, cache, "TODO", ".")
	require.NoError(t, err)

	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, m.Path)
	}
	assert.Equal(t, []string{"keep.log", "main.go", "pkg/util.go"}, paths)
	assert.Equal(t, 2, matches[1].Line)
	assert.Equal(t, "// TODO: wire flags", matches[1].Text)
}

func TestSearchSubdirAndErrors(t *testing.T) {
	ctx := context.Background()
	ws := openTestWorkspace(t)
	require.NoError(t, ws.WriteFile(ctx, "a/x.txt", []byte("needle\n")))
	require.NoError(t, ws.WriteFile(ctx, "b/y.txt", []byte("needle\n")))

	matches, err := Search(ctx, ws, nil, "needle", "a")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a/x.txt", matches[0].Path)

	_, err = Search(ctx, ws, nil, "([", ".")
	assert.ErrorIs(t, err, tools.ErrArgumentParse)

	_, err = Search(ctx, ws, nil, "needle", "../")
	assert.ErrorIs(t, err, tools.ErrPathTraversal)
}

func TestIgnoreRules(t *testing.T) {
	rules := parseIgnoreRules([]byte("# comment\n/vendor\nnode_modules/\n*.tmp\n!important.tmp\ndocs/*.md\n"))

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"vendor", true, true},
		{"pkg/vendor", true, false},
		{"node_modules", true, true},
		{"web/node_modules", true, true},
		{"node_modules", false, false},
		{"a.tmp", false, true},
		{"deep/b.tmp", false, true},
		{"important.tmp", false, false},
		{"docs/readme.md", false, true},
		{"other/docs/readme.md", false, false},
		{"main.go", false, false},
	}
	for _, tt := range tests {
		got, _ := rules.match(tt.path, tt.isDir)
		assert.Equal(t, tt.want, got, tt.path)
	}
}
