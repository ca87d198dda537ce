package policy

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Spec is the serialisable form of a Policy, as read from config files.
type Spec struct {
	RootDir           string            `yaml:"root_dir" mapstructure:"root_dir" json:"root_dir" validate:"required,dir"`
	TimeoutSeconds    int               `yaml:"timeout_seconds" mapstructure:"timeout_seconds" json:"timeout_seconds" validate:"gt=0"`
	AllowedCommands   []string          `yaml:"allowed_commands" mapstructure:"allowed_commands" json:"allowed_commands" validate:"required,min=1,dive,cmdtoken"`
	Aliases           map[string]string `yaml:"aliases,omitempty" mapstructure:"aliases" json:"aliases,omitempty" validate:"dive,keys,cmdtoken,endkeys,cmdtoken"`
	DirectoryCommands []string          `yaml:"directory_commands,omitempty" mapstructure:"directory_commands" json:"directory_commands,omitempty" validate:"dive,cmdtoken"`
	ForbiddenPatterns []Pattern         `yaml:"forbidden_patterns" mapstructure:"forbidden_patterns" json:"forbidden_patterns" validate:"dive"`

	// ConfineArguments extends the root confinement to path-looking
	// arguments of commands that do not change directory.
	ConfineArguments bool `yaml:"confine_arguments" mapstructure:"confine_arguments" json:"confine_arguments"`
}

type patternRules struct {
	Name      string `validate:"required"`
	Substring string `validate:"required_without=Regex,excluded_with=Regex"`
	Regex     string `validate:"required_without=Substring,excluded_with=Substring,regexp"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("cmdtoken", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return false
		}
		return strings.IndexFunc(s, unicode.IsSpace) < 0
	})
	_ = v.RegisterValidation("regexp", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		_, err := regexp.Compile(s)
		return err == nil
	})
	return v
}

// Validate checks the shape of the spec. It does not touch the allowlist
// semantics: an alias may point at a command that is not allowed, in which
// case commands using it are rejected.
func (s Spec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid policy: %w", describe(err))
	}
	for i, p := range s.ForbiddenPatterns {
		r := patternRules{Name: p.Name, Substring: p.Substring, Regex: p.Regex}
		if err := validate.Struct(r); err != nil {
			return fmt.Errorf("invalid policy: forbidden_patterns[%d]: %w", i, describe(err))
		}
	}
	return nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		switch fe.Tag() {
		case "required", "required_without":
			msgs = append(msgs, field+" is required")
		case "excluded_with":
			msgs = append(msgs, field+" cannot be combined with "+strings.ToLower(fe.Param()))
		case "dir":
			msgs = append(msgs, fmt.Sprintf("%s %q is not an existing directory", field, fe.Value()))
		case "cmdtoken":
			msgs = append(msgs, fmt.Sprintf("%s %q must be a single non-empty token", field, fe.Value()))
		case "regexp":
			msgs = append(msgs, fmt.Sprintf("%s %q does not compile", field, fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s%s", field, fe.Tag(), paramSuffix(fe.Param())))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}

func (s Spec) clone() Spec {
	out := s
	out.AllowedCommands = append([]string(nil), s.AllowedCommands...)
	out.DirectoryCommands = append([]string(nil), s.DirectoryCommands...)
	out.ForbiddenPatterns = append([]Pattern(nil), s.ForbiddenPatterns...)
	if s.Aliases != nil {
		out.Aliases = make(map[string]string, len(s.Aliases))
		for k, v := range s.Aliases {
			out.Aliases[k] = v
		}
	}
	return out
}
