package main

import (
	"time"

	"github.com/quailyquaily/cmdbridge/policy"
	"github.com/quailyquaily/cmdbridge/shell"
	"github.com/spf13/viper"
)

// setDefaults registers a default for every configuration key.
// policy.forbidden_patterns has none here: when it is unset the stock list
// applies.
func setDefaults() {
	viper.SetDefault("policy.file", "")
	viper.SetDefault("policy.root_dir", ".")
	viper.SetDefault("policy.timeout_seconds", policy.DefaultTimeoutSeconds)
	viper.SetDefault("policy.allowed_commands", policy.DefaultAllowedCommands)
	viper.SetDefault("policy.aliases", policy.DefaultAliases)
	viper.SetDefault("policy.directory_commands", policy.DefaultDirectoryCommands)
	viper.SetDefault("policy.confine_arguments", true)

	viper.SetDefault("shell.name", "auto")
	viper.SetDefault("shell.max_output_bytes", shell.DefaultMaxOutputBytes)

	viper.SetDefault("guard.confirm", true)
	viper.SetDefault("guard.output_excerpt_bytes", 2048)
	viper.SetDefault("guard.redaction.enabled", true)
	viper.SetDefault("guard.audit.jsonl_path", "")
	viper.SetDefault("guard.audit.rotate_max_bytes", int64(16*1024*1024))
	viper.SetDefault("guard.approvals.enabled", false)

	viper.SetDefault("history.enabled", true)
	viper.SetDefault("db.driver", "sqlite")
	viper.SetDefault("db.dsn", "")
	viper.SetDefault("db.automigrate", true)
	viper.SetDefault("db.pool.max_open_conns", 1)
	viper.SetDefault("db.pool.max_idle_conns", 1)
	viper.SetDefault("db.pool.conn_max_lifetime", time.Duration(0))
	viper.SetDefault("db.sqlite.busy_timeout_ms", 5000)
	viper.SetDefault("db.sqlite.wal", true)
	viper.SetDefault("db.sqlite.foreign_keys", true)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}
