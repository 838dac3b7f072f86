package cli

import "fmt"

type noPreviewError struct {
	path string
}

func (e noPreviewError) Error() string {
	return fmt.Sprintf("no preview available: %s", e.path)
}

func errNoPreview(path string) error {
	return noPreviewError{path: path}
}

type negativeFlagError struct {
	flag string
}

func (e negativeFlagError) Error() string {
	return fmt.Sprintf("--%s must not be negative", e.flag)
}

func errNegativeFlag(flag string) error {
	return negativeFlagError{flag: flag}
}
