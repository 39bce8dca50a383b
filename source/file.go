// Package source holds the raw chunk of Lua source text being processed by
// the rest of the pipeline, along with the line-indexed view of it that
// diagnostics need.
package source

import "strings"

// File represents a chunk of Lua source to be processed by the front end. The
// "Contents" field is a raw string representation of the file's contents. The
// "Lines" field is a cached slice of the file's contents split by '\n' so that
// error messages aren't required to repeatedly split the contents.
type File struct {
	Filename string
	Contents string
	Lines    []string
}

// NewFile builds a File from a chunk name and its contents, pre-splitting
// the contents into lines for diagnostic rendering.
func NewFile(filename, contents string) *File {
	return &File{
		Filename: filename,
		Contents: contents,
		Lines:    strings.SplitAfter(contents, "\n"),
	}
}
