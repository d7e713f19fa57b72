package script

import (
	"go/scanner"
	"go/token"
	"path"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/codefionn/selenai/internal/tools"
)

// allowedPackages is the standard library subset loaded into every
// interpreter. Nothing here touches the filesystem, the network or other
// processes; those go through the host package.
var allowedPackages = []string{
	"bytes",
	"encoding/base64",
	"encoding/json",
	"errors",
	"fmt",
	"maps",
	"math",
	"path",
	"regexp",
	"slices",
	"sort",
	"strconv",
	"strings",
	"time",
	"unicode/utf8",
}

// AllowedImports lists the importable standard library packages.
func AllowedImports() []string {
	return append([]string(nil), allowedPackages...)
}

func isAllowedImport(pkg string) bool {
	if pkg == hostPackage {
		return true
	}
	i := sort.SearchStrings(allowedPackages, pkg)
	return i < len(allowedPackages) && allowedPackages[i] == pkg
}

// deniedSymbols are removed from allowed packages. Each schedules work
// that can outlive the invocation.
var deniedSymbols = map[string][]string{
	"time": {"AfterFunc", "NewTicker", "NewTimer", "Tick"},
}

// allowedSymbols filters stdlib.Symbols down to allowedPackages.
func allowedSymbols() interp.Exports {
	out := make(interp.Exports, len(allowedPackages))
	for _, pkg := range allowedPackages {
		key := pkg + "/" + path.Base(pkg)
		syms, ok := stdlib.Symbols[key]
		if !ok {
			continue
		}
		if denied := deniedSymbols[pkg]; len(denied) > 0 {
			filtered := make(map[string]reflect.Value, len(syms))
			for name, v := range syms {
				filtered[name] = v
			}
			for _, name := range denied {
				delete(filtered, name)
			}
			syms = filtered
		}
		out[key] = syms
	}
	return out
}

// validateSource rejects go statements and imports outside the allowed
// set before the interpreter sees the source.
func validateSource(source string) error {
	if startsGoroutine(source) {
		return tools.Errorf(tools.KindCapabilityDenied, "go",
			"go statements are not allowed; scripts run on a single goroutine")
	}

	var forbidden []string
	for _, pkg := range scanImports(source) {
		if !isAllowedImport(pkg) {
			forbidden = append(forbidden, pkg)
		}
	}
	if len(forbidden) > 0 {
		return tools.Errorf(tools.KindCapabilityDenied, "import",
			"forbidden imports %s (allowed: host, %s)", strings.Join(forbidden, ", "), strings.Join(allowedPackages, ", "))
	}
	return nil
}

// startsGoroutine reports whether source contains a go statement.
func startsGoroutine(source string) bool {
	fset := token.NewFileSet()
	file := fset.AddFile("script", fset.Base(), len(source))

	var s scanner.Scanner
	s.Init(file, []byte(source), nil, 0)
	for {
		_, tok, _ := s.Scan()
		switch tok {
		case token.EOF:
			return false
		case token.GO:
			return true
		}
	}
}

// scanImports lists the import paths of source. It tokenizes instead of
// parsing so REPL fragments without a package clause work.
func scanImports(source string) []string {
	fset := token.NewFileSet()
	file := fset.AddFile("script", fset.Base(), len(source))

	var s scanner.Scanner
	s.Init(file, []byte(source), nil, 0)

	var imports []string
	next := func() (token.Token, string) {
		_, tok, lit := s.Scan()
		return tok, lit
	}
	for {
		tok, _ := next()
		if tok == token.EOF {
			return imports
		}
		if tok != token.IMPORT {
			continue
		}

		tok, lit := next()
		if tok == token.LPAREN {
			for {
				tok, lit = next()
				if tok == token.RPAREN || tok == token.EOF {
					break
				}
				if tok == token.STRING {
					imports = appendImport(imports, lit)
				}
			}
			continue
		}
		// optional alias: import f "fmt"
		if tok == token.IDENT || tok == token.PERIOD {
			tok, lit = next()
		}
		if tok == token.STRING {
			imports = appendImport(imports, lit)
		}
	}
}

func appendImport(imports []string, lit string) []string {
	pkg, err := strconv.Unquote(lit)
	if err != nil {
		pkg = strings.Trim(lit, "\"`")
	}
	return append(imports, pkg)
}
