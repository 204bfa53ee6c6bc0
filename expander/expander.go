// Package expander turns a command line into an argv vector using POSIX
// shell word expansion: quote-aware splitting, parameter expansion, tilde
// expansion, and pathname globbing. It is the boundary between the string a
// caller writes and the vector the spawn primitive needs.
//
// Command substitution is not supported; a command line containing $( ) or
// backquotes fails to expand.
package expander

import (
	"io/fs"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"

	"github.com/guseggert/pipecmd/errdefs"
)

// Expand expands cmdline into an argv vector. argv[0] is the binary name or
// path; PATH lookup happens later, at spawn time. The process environment
// feeds parameter expansion.
func Expand(cmdline string) ([]string, error) {
	parser := syntax.NewParser()
	var words []*syntax.Word
	err := parser.Words(strings.NewReader(cmdline), func(w *syntax.Word) bool {
		words = append(words, w)
		return true
	})
	if err != nil {
		return nil, errdefs.OS("expand", cmdline, err)
	}

	cfg := &expand.Config{
		Env: expand.ListEnviron(os.Environ()...),
		ReadDir2: func(dir string) ([]fs.DirEntry, error) {
			return os.ReadDir(dir)
		},
	}
	argv, err := expand.Fields(cfg, words...)
	if err != nil {
		return nil, errdefs.OS("expand", cmdline, err)
	}
	if len(argv) == 0 {
		return nil, errdefs.Usagef("command %q expanded to an empty argv", cmdline)
	}
	return argv, nil
}
