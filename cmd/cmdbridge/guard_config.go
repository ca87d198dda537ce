package main

import (
	"log/slog"
	"strings"

	"github.com/quailyquaily/cmdbridge/db"
	"github.com/quailyquaily/cmdbridge/guard"
	"github.com/quailyquaily/cmdbridge/internal/pathutil"
	"github.com/quailyquaily/cmdbridge/policy"
	"github.com/spf13/viper"
)

func guardConfigFromViper() guard.Config {
	var patterns []guard.RegexPattern
	_ = viper.UnmarshalKey("guard.redaction.patterns", &patterns)

	return guard.Config{
		Confirm: viper.GetBool("guard.confirm"),
		Redaction: guard.RedactionConfig{
			Enabled:  viper.GetBool("guard.redaction.enabled"),
			Patterns: patterns,
		},
		Audit: guard.AuditConfig{
			JSONLPath:      strings.TrimSpace(viper.GetString("guard.audit.jsonl_path")),
			RotateMaxBytes: viper.GetInt64("guard.audit.rotate_max_bytes"),
		},
		Approvals: guard.ApprovalsConfig{
			Enabled: viper.GetBool("guard.approvals.enabled"),
		},
		OutputExcerptBytes: viper.GetInt("guard.output_excerpt_bytes"),
	}
}

// guardFromViper wires the audit sink and approval store. Failures to open
// either are logged and the guard runs without them.
func guardFromViper(pol *policy.Policy, log *slog.Logger) *guard.Guard {
	if log == nil {
		log = slog.Default()
	}
	cfg := guardConfigFromViper()

	jsonlPath := cfg.Audit.JSONLPath
	if jsonlPath == "" {
		if p, err := pathutil.StateFile("guard_audit.jsonl"); err == nil {
			jsonlPath = p
		}
	}
	jsonlPath = pathutil.ExpandHomePath(jsonlPath)

	var sink guard.AuditSink
	if strings.TrimSpace(jsonlPath) != "" {
		s, err := guard.NewJSONLAuditSink(jsonlPath, cfg.Audit.RotateMaxBytes)
		if err != nil {
			log.Warn("guard_audit_sink_error", "error", err.Error())
		} else {
			sink = s
		}
	}

	var approvals guard.ApprovalStore
	if cfg.Approvals.Enabled {
		dsn, err := db.ResolveSQLiteDSN(viper.GetString("db.dsn"))
		if err != nil {
			log.Warn("guard_approvals_dsn_error", "error", err.Error())
		}
		if strings.TrimSpace(dsn) != "" && err == nil {
			st, err := guard.NewSQLiteApprovalStore(dsn)
			if err != nil {
				log.Warn("guard_approvals_store_error", "error", err.Error())
			} else {
				approvals = st
			}
		}
	}

	if !cfg.Confirm {
		log.Warn("guard_confirmation_disabled", "root", pol.RootDir())
	}
	log.Info("guard_enabled",
		"root", pol.RootDir(),
		"allowed_commands", len(pol.AllowedCommands()),
		"timeout_seconds", pol.TimeoutSeconds(),
		"confirm", cfg.Confirm,
		"audit_jsonl", jsonlPath,
		"approvals_enabled", approvals != nil,
	)

	return guard.New(cfg, pol, sink, approvals, log)
}
