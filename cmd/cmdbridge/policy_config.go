package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/quailyquaily/cmdbridge/internal/pathutil"
	"github.com/quailyquaily/cmdbridge/policy"
	"github.com/spf13/viper"
)

// policyOverrides come from command-line flags and win over both the
// policy.* keys and a policy file.
type policyOverrides struct {
	RootDir        string
	TimeoutSeconds int
}

// specFromViper builds the policy spec. A policy.file replaces the policy.*
// keys entirely.
func specFromViper(o policyOverrides) (policy.Spec, error) {
	var spec policy.Spec
	if path := pathutil.ExpandHomePath(strings.TrimSpace(viper.GetString("policy.file"))); path != "" {
		s, err := policy.LoadFile(path)
		if err != nil {
			return policy.Spec{}, fmt.Errorf("load policy file: %w", err)
		}
		spec = s
	} else {
		spec = policy.Default(viper.GetString("policy.root_dir"))
		spec.TimeoutSeconds = viper.GetInt("policy.timeout_seconds")
		spec.AllowedCommands = viper.GetStringSlice("policy.allowed_commands")
		spec.Aliases = viper.GetStringMapString("policy.aliases")
		spec.DirectoryCommands = viper.GetStringSlice("policy.directory_commands")
		spec.ConfineArguments = viper.GetBool("policy.confine_arguments")
		if viper.IsSet("policy.forbidden_patterns") {
			var patterns []policy.Pattern
			if err := viper.UnmarshalKey("policy.forbidden_patterns", &patterns); err != nil {
				return policy.Spec{}, fmt.Errorf("policy.forbidden_patterns: %w", err)
			}
			spec.ForbiddenPatterns = patterns
		}
	}

	if o.RootDir != "" {
		spec.RootDir = o.RootDir
	}
	if o.TimeoutSeconds > 0 {
		spec.TimeoutSeconds = o.TimeoutSeconds
	}

	root := pathutil.ExpandHomePath(strings.TrimSpace(spec.RootDir))
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return policy.Spec{}, fmt.Errorf("policy root: %w", err)
	}
	spec.RootDir = abs
	return spec, nil
}

func policyFromViper(o policyOverrides) (*policy.Policy, error) {
	spec, err := specFromViper(o)
	if err != nil {
		return nil, err
	}
	return policy.New(spec)
}
