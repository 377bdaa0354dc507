package models

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/darkace1998/crash-video-recorder/constants"
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors: ", len(e)))
	for i, err := range e {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Validate checks enum-like fields. Numeric recording values are clamped
// at session start instead of being rejected here.
func (s *Settings) Validate() error {
	var errs ValidationErrors

	if s.Recording.Directory == "" {
		errs = append(errs, ValidationError{Field: "Recording.Directory", Message: "cannot be empty"})
	}
	if !isValidProfile(s.Recording.Profile) && s.Recording.Profile != "" {
		errs = append(errs, ValidationError{
			Field:   "Recording.Profile",
			Message: fmt.Sprintf("invalid profile %q, must be one of: desktop, mobile, custom", s.Recording.Profile),
		})
	}
	if s.Recording.SettleDelay < 0 {
		errs = append(errs, ValidationError{Field: "Recording.SettleDelay", Message: "cannot be negative"})
	}
	if s.Recording.FlushTimeout < 0 {
		errs = append(errs, ValidationError{Field: "Recording.FlushTimeout", Message: "cannot be negative"})
	}
	if s.Recorder.SegmentSeconds < 0 {
		errs = append(errs, ValidationError{Field: "Recorder.SegmentSeconds", Message: "cannot be negative"})
	}

	if !isValidReporterType(s.Reporter.Type) && s.Reporter.Type != "" {
		errs = append(errs, ValidationError{
			Field:   "Reporter.Type",
			Message: fmt.Sprintf("invalid reporter type %q, must be one of: spool, sentry, none", s.Reporter.Type),
		})
	}
	if s.Reporter.Type == constants.ReporterSentry && s.Reporter.Sentry.DSN == "" {
		errs = append(errs, ValidationError{Field: "Reporter.Sentry.DSN", Message: "required for sentry reporter"})
	}
	if s.Reporter.Type == constants.ReporterSpool && s.Reporter.Spool.DatabasePath == "" {
		errs = append(errs, ValidationError{Field: "Reporter.Spool.DatabasePath", Message: "required for spool reporter"})
	}

	var logErrs ValidationErrors
	if err := s.Logging.Validate(); err != nil && errors.As(err, &logErrs) {
		errs = append(errs, logErrs...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Validate validates the LoggingSettings fields and returns any validation errors.
func (l *LoggingSettings) Validate() error {
	var errs ValidationErrors

	if !isValidLogLevel(l.Level) && l.Level != "" {
		errs = append(errs, ValidationError{
			Field:   "Logging.Level",
			Message: fmt.Sprintf("invalid log level %q, must be one of: debug, info, warn, error", l.Level),
		})
	}
	if !isValidLogFormat(l.Format) && l.Format != "" {
		errs = append(errs, ValidationError{
			Field:   "Logging.Format",
			Message: fmt.Sprintf("invalid log format %q, must be one of: json, text", l.Format),
		})
	}
	for component, level := range l.Components {
		if !isValidLogLevel(level) {
			errs = append(errs, ValidationError{
				Field:   "Logging.Components." + component,
				Message: fmt.Sprintf("invalid log level %q, must be one of: debug, info, warn, error", level),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// RecordingConfig resolves the configured profile into a recording config.
func (r *RecordingSettings) RecordingConfig() RecordingConfig {
	switch r.Profile {
	case constants.ProfileMobile:
		return MobilePreset()
	case constants.ProfileCustom:
		return r.Custom
	default:
		return DesktopPreset()
	}
}

func isValidProfile(profile string) bool {
	switch profile {
	case constants.ProfileDesktop, constants.ProfileMobile, constants.ProfileCustom:
		return true
	default:
		return false
	}
}

func isValidReporterType(reporterType string) bool {
	switch reporterType {
	case constants.ReporterSpool, constants.ReporterSentry, constants.ReporterNone:
		return true
	default:
		return false
	}
}

func isValidLogLevel(level string) bool {
	switch level {
	case constants.LogLevelDebug, constants.LogLevelInfo,
		constants.LogLevelWarn, constants.LogLevelError:
		return true
	default:
		return false
	}
}

func isValidLogFormat(format string) bool {
	switch format {
	case constants.LogFormatJSON, constants.LogFormatText:
		return true
	default:
		return false
	}
}

// ToYAML serializes the Settings to YAML bytes.
func (s *Settings) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings to YAML: %w", err)
	}
	return data, nil
}

// SettingsFromYAML deserializes Settings from YAML bytes.
func SettingsFromYAML(data []byte) (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings from YAML: %w", err)
	}
	return &settings, nil
}

// IsValidationError checks if an error is a ValidationError or ValidationErrors.
func IsValidationError(err error) bool {
	var ve ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}
