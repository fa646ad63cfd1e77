// Package all registers every built-in backend via side effects.
//
// Import it for its side effects:
//
//	import _ "github.com/relwatch/relwatch/all"
package all

import (
	_ "github.com/relwatch/relwatch/internal/cargo"
	_ "github.com/relwatch/relwatch/internal/debian"
	_ "github.com/relwatch/relwatch/internal/folder"
	_ "github.com/relwatch/relwatch/internal/github"
	_ "github.com/relwatch/relwatch/internal/npm"
	_ "github.com/relwatch/relwatch/internal/pypi"
	_ "github.com/relwatch/relwatch/internal/rubygems"
	_ "github.com/relwatch/relwatch/internal/sourceforge"
)
