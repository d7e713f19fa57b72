package sandbox

import (
	"strconv"
	"strings"

	"github.com/codefionn/selenai/internal/tools"
)

const opRunCommand = "run_command"

// PathResolver confines path arguments to the workspace.
type PathResolver interface {
	Resolve(p string) (string, error)
}

// Shape describes one allow-listed command: the program, its subcommand and
// the flags it may carry.
type Shape struct {
	Command    string
	Subcommand string
	// Flags may appear anywhere after the subcommand.
	Flags map[string]bool
	// NumericFlags take a positive integer, either as the next argument or
	// after "=".
	NumericFlags map[string]bool
	// Paths allows positional arguments, each resolved inside the workspace.
	Paths bool
}

func flagSet(flags ...string) map[string]bool {
	m := make(map[string]bool, len(flags))
	for _, f := range flags {
		m[f] = true
	}
	return m
}

// DefaultShapes are the inspection commands every workspace allows.
var DefaultShapes = []Shape{
	{
		Command:    "git",
		Subcommand: "status",
		Flags:      flagSet("--porcelain", "--short", "-s", "--branch", "-b"),
	},
	{
		Command:    "git",
		Subcommand: "diff",
		Flags:      flagSet("--stat", "--cached", "--staged", "--name-only", "--name-status", "--no-color"),
		Paths:      true,
	},
	{
		Command:      "git",
		Subcommand:   "log",
		Flags:        flagSet("--oneline"),
		NumericFlags: flagSet("-n", "--max-count"),
	},
}

// deniedPrefixes are refused in any argument of any command.
var deniedPrefixes = []string{"--output", "--exec", "-c"}

// Policy decides whether a command line may run.
type Policy struct {
	shapes   []Shape
	prefixes [][]string
}

// NewPolicy returns a policy with the default shapes plus the configured
// command prefixes ("go version", "cargo metadata --no-deps", ...).
func NewPolicy(allowed []string) *Policy {
	p := &Policy{shapes: DefaultShapes}
	for _, entry := range allowed {
		fields := strings.Fields(entry)
		if len(fields) == 0 {
			continue
		}
		p.prefixes = append(p.prefixes, fields)
	}
	return p
}

// Describe lists the allowed command shapes for help output.
func (p *Policy) Describe() []string {
	var out []string
	for _, s := range p.shapes {
		out = append(out, s.Command+" "+s.Subcommand)
	}
	for _, prefix := range p.prefixes {
		out = append(out, strings.Join(prefix, " "))
	}
	return out
}

// Check returns nil when name/args is allowed. Disallowed command lines
// yield CapabilityDenied, path arguments leaving the workspace
// PathTraversal.
func (p *Policy) Check(name string, args []string, paths PathResolver) error {
	if name == "" {
		return tools.Errorf(tools.KindCapabilityDenied, opRunCommand, "empty command")
	}
	for _, arg := range args {
		if err := checkArgument(arg); err != nil {
			return err
		}
	}

	for _, shape := range p.shapes {
		if shape.Command != name || len(args) == 0 || args[0] != shape.Subcommand {
			continue
		}
		return shape.check(args[1:], paths)
	}

	argv := append([]string{name}, args...)
	for _, prefix := range p.prefixes {
		if hasPrefix(argv, prefix) {
			return nil
		}
	}
	return tools.Errorf(tools.KindCapabilityDenied, opRunCommand, "command not allowed: %s", strings.Join(argv, " "))
}

func checkArgument(arg string) error {
	if strings.ContainsRune(arg, 0) {
		return tools.Errorf(tools.KindCapabilityDenied, opRunCommand, "argument contains NUL byte")
	}
	for _, denied := range deniedPrefixes {
		if strings.HasPrefix(arg, denied) {
			return tools.Errorf(tools.KindCapabilityDenied, opRunCommand, "argument %q not allowed", arg)
		}
	}
	if strings.Contains(arg, "..") {
		return tools.NewError(tools.KindPathTraversal, opRunCommand, arg, nil)
	}
	return nil
}

func (s Shape) check(args []string, paths PathResolver) error {
	afterSeparator := false
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case afterSeparator || (!strings.HasPrefix(arg, "-") && s.Paths):
			if paths == nil {
				return tools.Errorf(tools.KindCapabilityDenied, opRunCommand, "path arguments unavailable")
			}
			if _, err := paths.Resolve(arg); err != nil {
				return err
			}
		case arg == "--" && s.Paths:
			afterSeparator = true
		case s.Flags[arg]:
		case s.NumericFlags[arg]:
			if i+1 >= len(args) || !isCount(args[i+1]) {
				return tools.Errorf(tools.KindCapabilityDenied, opRunCommand, "%s expects a positive count", arg)
			}
			i++
		default:
			if name, value, ok := strings.Cut(arg, "="); ok && s.NumericFlags[name] && isCount(value) {
				continue
			}
			return tools.Errorf(tools.KindCapabilityDenied, opRunCommand, "%s %s: argument %q not allowed", s.Command, s.Subcommand, arg)
		}
	}
	return nil
}

func isCount(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n > 0
}

func hasPrefix(argv, prefix []string) bool {
	if len(argv) < len(prefix) {
		return false
	}
	for i, tok := range prefix {
		if argv[i] != tok {
			return false
		}
	}
	return true
}
