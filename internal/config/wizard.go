package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/klytics/fuelkit/internal/mqtt"
)

// ConfigIssue represents a validation finding.
type ConfigIssue struct {
	Key      string `json:"key"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Fix      string `json:"fix"`
}

// keyKinds lists the settable keys and how their values are parsed.
var keyKinds = map[string]string{
	"limit":           "float",
	"broker_address":  "string",
	"broker_port":     "int",
	"topic":           "string",
	"file_path":       "string",
	"sheet":           "string",
	"column":          "int",
	"client_id":       "string",
	"username":        "string",
	"password":        "string",
	"qos":             "int",
	"retain":          "bool",
	"connect_timeout": "duration",
	"history.enabled": "bool",
	"history.path":    "string",
	"output.color":    "bool",
}

// Keys returns every recognized configuration key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(keyKinds))
	for k := range keyKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Wizard runs the interactive setup wizard, reading answers from reader and
// writing prompts to out. Nil arguments default to stdin and stdout.
func Wizard(reader io.Reader, out io.Writer) error {
	if reader == nil {
		reader = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	scanner := bufio.NewScanner(reader)
	answers := make(map[string]interface{})

	ask := func(key, label string) error {
		current := viper.GetString(key)
		fmt.Fprintf(out, "  %s [%s]: ", label, current)
		scanner.Scan()
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			answer = current
		}
		v, err := parseValue(key, answer)
		if err != nil {
			return err
		}
		answers[key] = v
		return nil
	}

	steps := []struct {
		title string
		keys  [][2]string
	}{
		{"Spreadsheet", [][2]string{{"file_path", "Spreadsheet path"}, {"column", "Fuel column (0 = A, 5 = F)"}}},
		{"Broker", [][2]string{{"broker_address", "Broker address"}, {"topic", "Topic"}}},
		{"Tank", [][2]string{{"limit", "Tank capacity"}}},
	}

	fmt.Fprintln(out, "fuelkit setup")
	fmt.Fprintln(out, strings.Repeat("-", 48))
	fmt.Fprintln(out)

	for i, step := range steps {
		fmt.Fprintf(out, "Step %d/%d: %s\n", i+1, len(steps), step.title)
		for _, k := range step.keys {
			if err := ask(k[0], k[1]); err != nil {
				return err
			}
		}
		fmt.Fprintln(out)
	}

	for k, v := range answers {
		viper.Set(k, v)
	}
	if err := SaveConfig(answers); err != nil {
		return fmt.Errorf("could not save config: %w", err)
	}

	fmt.Fprintf(out, "Config file: %s\n", ConfigPath())
	fmt.Fprintln(out, "Type 'fuelkit config show' to see all settings.")
	return nil
}

// WizardNonInteractive writes the defaults for the main keys to the config
// file, leaving keys the file already sets untouched.
func WizardNonInteractive() error {
	file, err := fileConfig()
	if err != nil {
		return err
	}
	defaults := viper.New()
	setDefaults(defaults)

	values := make(map[string]interface{})
	for _, k := range []string{"limit", "broker_address", "broker_port", "topic", "file_path", "column"} {
		if !file.IsSet(k) {
			values[k] = defaults.Get(k)
		}
	}
	return SaveConfig(values)
}

// Validate checks config values and returns a list of issues.
func Validate() []ConfigIssue {
	var issues []ConfigIssue

	path := ExpandPath(viper.GetString("file_path"))
	if info, err := os.Stat(path); err != nil {
		issues = append(issues, ConfigIssue{
			Key:      "file_path",
			Severity: "error",
			Message:  fmt.Sprintf("spreadsheet %s not found", path),
			Fix:      "fuelkit config set file_path /path/to/Gasolina.xlsx",
		})
	} else if info.IsDir() {
		issues = append(issues, ConfigIssue{
			Key:      "file_path",
			Severity: "error",
			Message:  fmt.Sprintf("%s is a directory, not a spreadsheet", path),
		})
	} else {
		issues = append(issues, ConfigIssue{
			Key:      "file_path",
			Severity: "info",
			Message:  fmt.Sprintf("spreadsheet %s found", path),
		})
	}

	if _, err := mqtt.BrokerURL(viper.GetString("broker_address"), viper.GetInt("broker_port")); err != nil {
		issues = append(issues, ConfigIssue{
			Key:      "broker_address",
			Severity: "error",
			Message:  err.Error(),
			Fix:      "fuelkit config set broker_address localhost",
		})
	}

	topic := viper.GetString("topic")
	switch {
	case topic == "":
		issues = append(issues, ConfigIssue{
			Key:      "topic",
			Severity: "error",
			Message:  "topic is empty",
			Fix:      "fuelkit config set topic car/bmw/fuel_load",
		})
	case strings.ContainsAny(topic, "+#"):
		issues = append(issues, ConfigIssue{
			Key:      "topic",
			Severity: "error",
			Message:  fmt.Sprintf("topic %q contains wildcards and cannot be published to", topic),
		})
	}

	if limit := viper.GetFloat64("limit"); limit <= 0 {
		issues = append(issues, ConfigIssue{
			Key:      "limit",
			Severity: "warning",
			Message:  fmt.Sprintf("limit is %v; remaining capacity will be negative", limit),
		})
	}

	if col := viper.GetInt("column"); col < 0 {
		issues = append(issues, ConfigIssue{
			Key:      "column",
			Severity: "error",
			Message:  fmt.Sprintf("column must be zero or positive, got %d", col),
		})
	}

	if qos := viper.GetInt("qos"); qos < 0 || qos > 2 {
		issues = append(issues, ConfigIssue{
			Key:      "qos",
			Severity: "error",
			Message:  fmt.Sprintf("qos must be 0, 1 or 2, got %d", qos),
		})
	}

	if viper.GetString("username") != "" && viper.GetString("password") == "" {
		issues = append(issues, ConfigIssue{
			Key:      "password",
			Severity: "warning",
			Message:  "username is set without a password",
			Fix:      "export FUELKIT_PASSWORD=...",
		})
	}

	return issues
}

// ToEnv returns all config values as a map of env var name -> value.
func ToEnv() map[string]string {
	env := make(map[string]string)
	for _, k := range Keys() {
		v := viper.GetString(k)
		if v == "" {
			continue
		}
		env[EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(k, ".", "_"))] = v
	}
	return env
}

// Set validates and sets a config value, then saves it to disk.
func Set(key, value string) error {
	v, err := parseValue(key, value)
	if err != nil {
		return err
	}
	viper.Set(key, v)
	return SaveConfig(map[string]interface{}{key: v})
}

func parseValue(key, value string) (interface{}, error) {
	kind, ok := keyKinds[key]
	if !ok {
		return nil, fmt.Errorf("unknown key %q (known keys: %s)", key, strings.Join(Keys(), ", "))
	}

	switch kind {
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number, got %q", key, value)
		}
		return f, nil
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer, got %q", key, value)
		}
		return n, nil
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false, got %q", key, value)
		}
		return b, nil
	case "duration":
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("%s must be a duration like 10s, got %q", key, value)
		}
	}
	return value, nil
}

// Get retrieves a config value.
func Get(key string) string {
	return viper.GetString(key)
}

// ResetConfig deletes the config file and restores defaults.
func ResetConfig() error {
	path := ConfigPath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete config: %w", err)
	}
	viper.Reset()
	setDefaults(viper.GetViper())
	return nil
}

// fileConfig returns a viper instance holding only what the config file sets,
// without defaults, environment or flags.
func fileConfig() (*viper.Viper, error) {
	file := viper.New()
	file.SetConfigType("yaml")
	path := ConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return file, nil
	}
	file.SetConfigFile(path)
	if err := file.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return file, nil
}

// SaveConfig merges values into ~/.fuelkit/config.yaml. Settings that come
// from the environment, .env or flags are never written.
func SaveConfig(values map[string]interface{}) error {
	file, err := fileConfig()
	if err != nil {
		return err
	}
	for k, v := range values {
		file.Set(k, v)
	}

	dir := configDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := file.WriteConfigAs(path); err != nil {
		return fmt.Errorf("could not write config: %w", err)
	}

	// The file may hold broker credentials.
	os.Chmod(path, 0600)
	return nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// ShowConfig renders the effective configuration as YAML with the password masked.
func ShowConfig() string {
	settings := make(map[string]interface{})
	for _, k := range Keys() {
		settings[k] = viper.Get(k)
	}
	if p := viper.GetString("password"); p != "" {
		settings["password"] = "****"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n", ConfigPath()))

	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		sb.WriteString(fmt.Sprintf("# could not render config: %v\n", err))
	}
	enc.Close()

	return sb.String()
}
