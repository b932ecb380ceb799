package gpa

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML configuration file, applies GPA_* environment
// overrides and validates the result. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, NewErrorWithCause(ErrorTypeInvalidArgument, "failed to read config file", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, NewErrorWithCause(ErrorTypeInvalidArgument, "failed to parse config file", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, NewErrorWithCause(ErrorTypeInvalidArgument, "failed to apply environment overrides", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration names a supported driver and a target database.
func (c Config) Validate() error {
	dialect, err := DialectFor(c.Driver)
	if err != nil {
		return err
	}
	if c.ConnectionURL != "" {
		return nil
	}
	if c.Database == "" {
		return NewError(ErrorTypeValidation, "database is required when connection_url is empty")
	}
	if dialect != DialectSQLite && c.Host == "" {
		return NewError(ErrorTypeValidation, fmt.Sprintf("host is required for %s", c.Driver))
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return NewError(ErrorTypeValidation, "pool sizes must not be negative")
	}
	return nil
}

// applyEnvOverrides walks the struct fields and overrides them from their env tag
func applyEnvOverrides(s interface{}) error {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if field.Kind() == reflect.Struct {
			if err := applyEnvOverrides(field.Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}
		envValue, exists := os.LookupEnv(envTag)
		if !exists {
			continue
		}
		if err := setFieldFromEnv(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s from env var %s: %w", fieldType.Name, envTag, err)
		}
	}
	return nil
}

func setFieldFromEnv(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration format: %w", err)
			}
			field.SetInt(int64(duration))
			return nil
		}
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer format: %w", err)
		}
		field.SetInt(intValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean format: %w", err)
		}
		field.SetBool(boolValue)
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}
