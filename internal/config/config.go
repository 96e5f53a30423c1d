// Package config loads the language-server process configuration the
// session needs to spawn a child server. Parsing itself (file discovery,
// flags) is out of the hard core per spec.md; this package only defines the
// record and a TOML loader, the format the teacher's go.mod already carries
// a dependency for.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Language is the set of codeLanguage values recognized by spec.md §6.
type Language string

const (
	Python     Language = "python"
	Java       Language = "java"
	Rust       Language = "rust"
	CSharp     Language = "csharp"
	TypeScript Language = "typescript"
	JavaScript Language = "javascript"
	Go         Language = "go"
	Ruby       Language = "ruby"
)

var knownLanguages = map[Language]bool{
	Python: true, Java: true, Rust: true, CSharp: true,
	TypeScript: true, JavaScript: true, Go: true, Ruby: true,
}

// Config is the configuration record of spec.md §6 plus the process
// launch parameters §4.1 requires ("configured argv, working directory,
// and environment").
type Config struct {
	// RepositoryRoot is the directory all relative paths are resolved
	// against, and where the symbol cache is persisted.
	RepositoryRoot string `toml:"repository_root"`

	// CodeLanguage selects the concrete language-server subclass. Out of
	// core scope to interpret beyond validating it is one of the known
	// values; the caller is responsible for picking Command/Args that
	// actually start a matching server.
	CodeLanguage Language `toml:"code_language"`

	// Command and Args describe the child process to spawn.
	Command string   `toml:"command"`
	Args    []string `toml:"args"`

	// Env, if non-empty, replaces the inherited environment entirely;
	// an empty slice means "inherit os.Environ()".
	Env []string `toml:"env"`

	// TraceLspCommunication logs the method of each outbound request or
	// notification and each inbound server request or notification at
	// DEBUG when true; responses are not logged.
	TraceLspCommunication bool `toml:"trace_lsp_communication"`

	// InitializeTimeoutSeconds and ShutdownTimeoutSeconds bound the
	// initialize/shutdown handshakes (spec.md §5 "Timeouts"). Zero means
	// "use the 30s default".
	InitializeTimeoutSeconds int `toml:"initialize_timeout_seconds"`
	ShutdownTimeoutSeconds   int `toml:"shutdown_timeout_seconds"`

	// AttributeAssignmentFallback gates the heuristic referencing-symbol
	// fallback described in spec.md §4.6/§9; disabled by default because
	// the spec marks it language-specific and optional.
	AttributeAssignmentFallback bool `toml:"attribute_assignment_fallback"`
}

// Load parses a TOML configuration file at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields Load cannot validate structurally.
func (c *Config) Validate() error {
	if c.RepositoryRoot == "" {
		return fmt.Errorf("config: repository_root is required")
	}
	if c.Command == "" {
		return fmt.Errorf("config: command is required")
	}
	if c.CodeLanguage != "" && !knownLanguages[c.CodeLanguage] {
		return fmt.Errorf("config: unrecognized code_language %q", c.CodeLanguage)
	}
	return nil
}
