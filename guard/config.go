package guard

type Config struct {
	// Confirm requires an explicit operator approval before every command.
	Confirm bool

	Redaction RedactionConfig
	Audit     AuditConfig
	Approvals ApprovalsConfig

	// OutputExcerptBytes caps the command output copied into audit events.
	OutputExcerptBytes int
}

type RedactionConfig struct {
	Enabled  bool
	Patterns []RegexPattern
}

type RegexPattern struct {
	Name string `mapstructure:"name" yaml:"name"`
	Re   string `mapstructure:"re" yaml:"re"`
}

type AuditConfig struct {
	JSONLPath      string
	RotateMaxBytes int64
}

type ApprovalsConfig struct {
	Enabled bool
}

const defaultOutputExcerptBytes = 2048

func DefaultConfig() Config {
	return Config{
		Confirm:            true,
		Redaction:          RedactionConfig{Enabled: true},
		OutputExcerptBytes: defaultOutputExcerptBytes,
	}
}
