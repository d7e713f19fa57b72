package script

// prelude is evaluated once per interpreter. It only composes the host
// package and interpreter builtins.
const prelude = `
func Repr(v interface{}) string {
	return host.Repr(v)
}

func Map(xs []interface{}, f func(interface{}) interface{}) []interface{} {
	out := make([]interface{}, 0, len(xs))
	for _, x := range xs {
		out = append(out, f(x))
	}
	return out
}

func Filter(xs []interface{}, keep func(interface{}) bool) []interface{} {
	out := make([]interface{}, 0, len(xs))
	for _, x := range xs {
		if keep(x) {
			out = append(out, x)
		}
	}
	return out
}

func Keys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func Join(xs []string, sep string) string {
	return strings.Join(xs, sep)
}
`
