package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/rgbnode/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "RGBNODE_"

// binding ties one options field to its three sources.
type binding struct {
	name  string
	value reflect.Value
	flag  string
	toml  string
	env   string
}

// LoadConfig fills opts (a pointer to a flat options struct) with the
// precedence CLI flag > env var > config file > field default. Fields whose
// flag was set on cmd are left alone. The file is named by a string field
// called Config; a missing file is not an error.
//
// A file that fails to parse is returned as an error before anything is
// applied. Values of the wrong type are skipped and reported together once
// every other field has been applied.
func LoadConfig(opts any, cmd *cobra.Command) error {
	fields := bindings(opts)

	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changed[f.Name] = true
			}
		})
	}

	file, err := readTOML(configPath(fields))
	if err != nil {
		return err
	}

	var errs []error
	for _, b := range fields {
		if changed[b.flag] {
			continue
		}
		if b.toml != "" {
			if value := getNestedValue(file, b.toml); value != nil {
				if err := assignTOML(b.value, value); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", b.toml, err))
				}
			}
		}
		if b.env != "" {
			if value := os.Getenv(EnvPrefix + b.env); value != "" {
				if err := assignString(b.value, value); err != nil {
					errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, b.env, err))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func bindings(opts any) []binding {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	out := make([]binding, 0, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		out = append(out, binding{
			name:  f.Name,
			value: v.Field(i),
			flag:  flagName(f),
			toml:  f.Tag.Get("toml"),
			env:   f.Tag.Get("env"),
		})
	}
	return out
}

func configPath(fields []binding) string {
	for _, b := range fields {
		if b.name == "Config" && b.value.Kind() == reflect.String {
			return b.value.String()
		}
	}
	return ""
}

// readTOML parses path into a generic table. An empty path or a missing
// file yields an empty table.
func readTOML(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil
	}
	var table map[string]any
	if err := toml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config %s: %w", path, err)
	}
	return table, nil
}

// flagName returns the CLI flag humacli registers for a field: the name
// tag when present, otherwise the kebab-cased field name.
func flagName(field reflect.StructField) string {
	if name := field.Tag.Get("name"); name != "" {
		return name
	}
	return fieldNameToFlag(field.Name)
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Example: "LoggingLevel" -> "logging-level", "BusURL" -> "bus-url".
func fieldNameToFlag(fieldName string) string {
	runes := []rune(fieldName)
	var sb strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (nextLower && unicode.IsUpper(runes[i-1])) {
				sb.WriteByte('-')
			}
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// getNestedValue looks up a dotted path such as "bus.url".
func getNestedValue(data map[string]any, path string) any {
	head, rest, nested := strings.Cut(path, ".")
	value, ok := data[head]
	if !ok {
		return nil
	}
	if !nested {
		return value
	}
	table, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	return getNestedValue(table, rest)
}

var errType = errors.New("unsupported value")

// assignTOML stores a decoded TOML value. Integers may arrive as int64 or
// float64; arrays only fill string slices.
func assignTOML(field reflect.Value, value any) error {
	if !field.CanSet() {
		return nil
	}

	switch {
	case field.Kind() == reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
			return nil
		}
	case field.Kind() == reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
			return nil
		}
	case field.CanInt():
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
			return nil
		case int:
			field.SetInt(int64(n))
			return nil
		case float64:
			field.SetInt(int64(n))
			return nil
		}
	case isStringSlice(field):
		if arr, ok := value.([]any); ok {
			slice := make([]string, 0, len(arr))
			for _, item := range arr {
				s, ok := item.(string)
				if !ok {
					return fmt.Errorf("%w: array item %v (%T)", errType, item, item)
				}
				slice = append(slice, s)
			}
			field.Set(reflect.ValueOf(slice))
			return nil
		}
	}
	return fmt.Errorf("%w: %v (%T) for %s field", errType, value, value, field.Type())
}

// assignString parses an env value. Lists are comma separated.
func assignString(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch {
	case field.Kind() == reflect.String:
		field.SetString(value)
	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case field.CanInt():
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case isStringSlice(field):
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("%w: %s field", errType, field.Type())
	}
	return nil
}

func isStringSlice(field reflect.Value) bool {
	return field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String
}

// LoadLoggingConfig reads the [logging] section: level and format, every
// other string key a module level. A nested [logging.modules] table is
// accepted too. Returns the defaults when the file cannot be read or parsed.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}

	table, err := readTOML(configPath)
	if err != nil || table == nil {
		return cfg
	}
	section, ok := table["logging"].(map[string]any)
	if !ok {
		return cfg
	}

	for key, value := range section {
		switch v := value.(type) {
		case string:
			switch key {
			case "level":
				cfg.Level = v
			case "format":
				cfg.Format = v
			default:
				cfg.Modules[key] = v
			}
		case map[string]any:
			if key != "modules" {
				continue
			}
			for module, level := range v {
				if s, ok := level.(string); ok {
					cfg.Modules[module] = s
				}
			}
		}
	}
	return cfg
}
