package parser

import "fmt"

// FileError is the fatal tier of parse failures: the file itself could not
// be opened or read. Per-line problems never surface as errors; they are
// counted in ImportStats instead.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
