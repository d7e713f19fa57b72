package sandbox

// AccessLevel represents the level of filesystem access granted to a path.
type AccessLevel int

const (
	// AccessReadOnly allows reading and executing
	AccessReadOnly AccessLevel = iota
	// AccessReadWrite allows reading, writing, and executing
	AccessReadWrite
)

func (a AccessLevel) String() string {
	if a == AccessReadWrite {
		return "rw"
	}
	return "ro"
}

// DirectoryPermission is one path a sandboxed command may touch.
type DirectoryPermission struct {
	Path   string
	Access AccessLevel
}

// ExecSubcommand is the hidden CLI verb that re-executes the binary, applies
// the Landlock ruleset and then execs the restricted command.
const ExecSubcommand = "__sandbox-exec"
