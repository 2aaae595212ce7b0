package levelgraph

import (
	"fmt"
	"strings"
)

// ConfigError reports an unusable level catalog. It is fatal at startup.
type ConfigError struct {
	Problems []string
	Err      error
}

func (e *ConfigError) Error() string {
	if len(e.Problems) == 0 && e.Err != nil {
		return fmt.Sprintf("level graph config: %v", e.Err)
	}
	return fmt.Sprintf("level graph validation failed:\n  %s", strings.Join(e.Problems, "\n  "))
}

func (e *ConfigError) Unwrap() error { return e.Err }
