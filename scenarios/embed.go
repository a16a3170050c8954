// Package scenarios provides the embedded scenario files.
package scenarios

import "embed"

// FS contains all embedded scenario directories.
//
//go:embed all:calculator all:notes-api all:debug-hunt
var FS embed.FS
