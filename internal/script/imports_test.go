package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/traefik/yaegi/stdlib"

	"github.com/codefionn/selenai/internal/tools"
)

func TestScanImports(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{"none", `x := 1`, nil},
		{"single", `import "fmt"`, []string{"fmt"}},
		{"aliased", `import f "fmt"`, []string{"fmt"}},
		{"dot", `import . "strings"`, []string{"strings"}},
		{"block", "import (\n\t\"os\"\n\tx \"net/http\"\n)\n", []string{"os", "net/http"}},
		{"raw string", "import `os/exec`", []string{"os/exec"}},
		{"in string literal", `s := "import \"os\""`, nil},
		{"in comment", "// import \"os\"\nx := 1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scanImports(tt.source))
		})
	}
}

func TestValidateImports(t *testing.T) {
	assert.NoError(t, validateSource("import \"strings\"\nimport \"host\"\nimport \"encoding/json\""))

	for _, source := range []string{
		`import "os"`,
		`import "os/exec"`,
		`import "net/http"`,
		`import "unsafe"`,
		`import "syscall"`,
		`import "reflect"`,
		"import (\n\"fmt\"\n\"io/ioutil\"\n)",
	} {
		err := validateSource(source)
		if assert.Error(t, err, source) {
			assert.Equal(t, tools.KindCapabilityDenied, tools.KindOf(err))
		}
	}
}

func TestAllowedSymbolsExcludeDangerousPackages(t *testing.T) {
	syms := allowedSymbols()
	assert.Contains(t, syms, "fmt/fmt")
	assert.Contains(t, syms, "strings/strings")
	for _, key := range []string{"os/os", "os/exec/exec", "net/http/http", "syscall/syscall", "unsafe/unsafe", "reflect/reflect"} {
		assert.NotContains(t, syms, key)
	}
}

func TestValidateSourceRejectsGoStatements(t *testing.T) {
	for _, source := range []string{
		`go f()`,
		"go func() {\n\thost.WriteFile(\"x\", \"y\")\n}()",
		"for {\n\tgo work()\n}",
	} {
		err := validateSource(source)
		if assert.Error(t, err, source) {
			assert.Equal(t, tools.KindCapabilityDenied, tools.KindOf(err))
		}
	}

	for _, source := range []string{
		`s := "go func() {}()"`,
		"// go f()\nx := 1",
		"gopher := 1\n_ = gopher",
	} {
		assert.NoError(t, validateSource(source), source)
	}
}

func TestAllowedSymbolsDropDeferredTimers(t *testing.T) {
	syms := allowedSymbols()["time/time"]
	assert.Contains(t, syms, "Sleep")
	assert.Contains(t, syms, "Now")
	for _, name := range []string{"AfterFunc", "NewTimer", "NewTicker", "Tick"} {
		assert.NotContains(t, syms, name)
	}

	// The shared stdlib table is left intact.
	assert.Contains(t, stdlib.Symbols["time/time"], "AfterFunc")
}
