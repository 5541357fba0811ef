// Package stageid defines the step-identity value every stage and progress
// message carries: a (module_name, optional_path) pair.
package stageid

import "github.com/orneryd/corpusgraph/pkg/pool"

// ID identifies one stage execution. Path is empty for manipulators, which
// address no filesystem path of their own.
type ID struct {
	ModuleName string
	Path       string
}

func (id ID) String() string {
	if id.Path == "" {
		return id.ModuleName
	}
	b := pool.GetStringBuilder()
	defer pool.PutStringBuilder(b)
	b.WriteString(id.ModuleName)
	b.WriteByte('(')
	b.WriteString(id.Path)
	b.WriteByte(')')
	return b.String()
}
