package utils

import "fmt"

// ConfigError reports an invalid pipeline configuration, such as an
// unknown algorithm or colour scheme name. It is raised before any
// grid is read.
type ConfigError struct {
	Field string
	Value string
	Msg   string
}

func (e *ConfigError) Error() string {
	if len(e.Value) > 0 {
		return fmt.Sprintf("invalid configuration: %s %q: %s", e.Field, e.Value, e.Msg)
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Msg)
}

// InputError reports an input grid that is missing or cannot be read.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}
