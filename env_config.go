// env_config.go: Environment variable support for tessera configuration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agilira/go-errors"
)

// EnvConfig holds the configuration read from TESSERA_* variables.
type EnvConfig struct {
	File         string `env:"TESSERA_FILE"`
	Encoding     string `env:"TESSERA_ENCODING"`
	CommentMarks string `env:"TESSERA_COMMENT_MARKS"`
	LineEnding   string `env:"TESSERA_LINE_ENDING"`
	Header       string `env:"TESSERA_HEADER"`

	AuditEnabled       bool          `env:"TESSERA_AUDIT_ENABLED"`
	AuditOutputFile    string        `env:"TESSERA_AUDIT_OUTPUT_FILE"`
	AuditMinLevel      string        `env:"TESSERA_AUDIT_MIN_LEVEL"`
	AuditBufferSize    int           `env:"TESSERA_AUDIT_BUFFER_SIZE"`
	AuditFlushInterval time.Duration `env:"TESSERA_AUDIT_FLUSH_INTERVAL"`
}

// LoadConfigFromEnv builds a Config from TESSERA_* environment variables,
// with defaults for everything unset.
func LoadConfigFromEnv() (*Config, error) {
	envConfig, err := loadEnvVars()
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to load environment configuration")
	}

	config := &Config{}
	if err := convertEnvToConfig(envConfig, config); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to convert environment configuration")
	}
	return config.WithDefaults(), nil
}

// MergeEnv overlays the TESSERA_* variables that are set onto base and
// returns the result. Unset variables keep the values of base.
func MergeEnv(base Config) (*Config, error) {
	env, err := loadEnvVars()
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to load environment configuration")
	}
	merged := base
	if err := convertEnvToConfig(env, &merged); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to convert environment configuration")
	}
	return merged.WithDefaults(), nil
}

func loadEnvVars() (*EnvConfig, error) {
	env := &EnvConfig{
		File:         os.Getenv("TESSERA_FILE"),
		Encoding:     os.Getenv("TESSERA_ENCODING"),
		CommentMarks: os.Getenv("TESSERA_COMMENT_MARKS"),
		LineEnding:   os.Getenv("TESSERA_LINE_ENDING"),
		Header:       os.Getenv("TESSERA_HEADER"),

		AuditEnabled:    parseBool(os.Getenv("TESSERA_AUDIT_ENABLED")),
		AuditOutputFile: os.Getenv("TESSERA_AUDIT_OUTPUT_FILE"),
		AuditMinLevel:   os.Getenv("TESSERA_AUDIT_MIN_LEVEL"),
	}

	if v := os.Getenv("TESSERA_AUDIT_BUFFER_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeInvalidConfig, "invalid TESSERA_AUDIT_BUFFER_SIZE").
				WithContext("value", v)
		}
		env.AuditBufferSize = size
	}
	if v := os.Getenv("TESSERA_AUDIT_FLUSH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeInvalidConfig, "invalid TESSERA_AUDIT_FLUSH_INTERVAL").
				WithContext("value", v)
		}
		env.AuditFlushInterval = d
	}
	return env, nil
}

func convertEnvToConfig(env *EnvConfig, config *Config) error {
	if env.File != "" {
		config.File = env.File
	}
	if env.Header != "" {
		config.Header = env.Header
	}

	style, err := styleFromEnv(env, config.Style)
	if err != nil {
		return err
	}
	config.Style = style

	if env.AuditEnabled {
		config.Audit.Enabled = true
	}
	if env.AuditOutputFile != "" {
		config.Audit.OutputFile = env.AuditOutputFile
	}
	if env.AuditMinLevel != "" {
		level, err := ParseAuditLevel(env.AuditMinLevel)
		if err != nil {
			return err
		}
		config.Audit.MinLevel = level
	}
	if env.AuditBufferSize != 0 {
		config.Audit.BufferSize = env.AuditBufferSize
	}
	if env.AuditFlushInterval != 0 {
		config.Audit.FlushInterval = env.AuditFlushInterval
	}
	return nil
}

func styleFromEnv(env *EnvConfig, base *LexicalStyle) (*LexicalStyle, error) {
	if env.Encoding == "" && env.CommentMarks == "" && env.LineEnding == "" {
		return base, nil
	}
	return BuildStyle(base, env.Encoding, env.CommentMarks, env.LineEnding)
}

// BuildStyle derives a style from base (FlexibleStyle when nil) with the
// given encoding name, comment marks and line ending. Empty arguments keep
// the base setting. Line endings are "lf", "crlf", "cr" or "native".
func BuildStyle(base *LexicalStyle, encodingName, commentMarks, lineEnding string) (*LexicalStyle, error) {
	style := base
	if style == nil {
		style = FlexibleStyle()
	}

	var err error
	if encodingName != "" {
		if style, err = style.WithEncodingName(encodingName); err != nil {
			return nil, err
		}
	}
	if commentMarks != "" {
		if style, err = style.WithCommentMarks(commentMarks); err != nil {
			return nil, err
		}
	}
	if lineEnding != "" {
		term, err := ParseLineEnding(lineEnding)
		if err != nil {
			return nil, err
		}
		if style, err = style.WithLineTerminator(term); err != nil {
			return nil, err
		}
	}
	return style, nil
}

// ParseLineEnding maps a line ending name to its terminator.
func ParseLineEnding(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "lf", "unix":
		return "\n", nil
	case "crlf", "windows", "dos":
		return "\r\n", nil
	case "cr", "mac":
		return "\r", nil
	case "native", "platform":
		return platformLineTerminator(), nil
	default:
		return "", errors.New(ErrCodeInvalidStyle, "unknown line ending").
			WithContext("line_ending", name)
	}
}

// parseBool parses boolean values from environment variables
// Supports: true/false, 1/0, yes/no, on/off, enabled/disabled
func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on", "enabled":
		return true
	default:
		return false
	}
}

// GetEnvWithDefault returns environment variable value or default if not set
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
