package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Scenario defines a cycle to build, run and check.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// RunID is an optional fixed run id for deterministic traces.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty" json:"run_id,omitempty"`

	// DurationMS is how long the cycle runs before dispose. Zero means the
	// harness default.
	DurationMS int `yaml:"duration_ms,omitempty" json:"duration_ms,omitempty"`

	// SettleMS is how long the harness keeps recording after dispose, to
	// prove that nothing more arrives.
	SettleMS int `yaml:"settle_ms,omitempty" json:"settle_ms,omitempty"`

	// Drivers maps driver keys to driver definitions.
	Drivers map[string]DriverSpec `yaml:"drivers" json:"drivers"`

	// Main maps sink keys to sink pipelines.
	Main map[string]SinkSpec `yaml:"main,omitempty" json:"main,omitempty"`

	// Assertions validate the recorded trace.
	Assertions []Assertion `yaml:"assertions" json:"assertions"`
}

// DriverSpec selects and configures a driver.
type DriverSpec struct {
	// Type is one of const, echo, clock, log, kv.
	Type string `yaml:"type" json:"type"`

	// Values are emitted by a const driver.
	Values []any `yaml:"values,omitempty" json:"values,omitempty"`

	// Ops transform what an echo driver sends back.
	Ops []OpSpec `yaml:"ops,omitempty" json:"ops,omitempty"`

	// PeriodMS and Count configure a clock driver. Count 0 ticks forever.
	PeriodMS int `yaml:"period_ms,omitempty" json:"period_ms,omitempty"`
	Count    int `yaml:"count,omitempty" json:"count,omitempty"`
}

// SinkSpec describes one sink produced by main. Exactly one of From and
// Values is set.
type SinkSpec struct {
	// From is the driver key whose source feeds this sink.
	From string `yaml:"from,omitempty" json:"from,omitempty"`

	// Values is a static list emitted on subscription.
	Values []any `yaml:"values,omitempty" json:"values,omitempty"`

	// Ops transform the stream, in order.
	Ops []OpSpec `yaml:"ops,omitempty" json:"ops,omitempty"`
}

// Driver types.
const (
	DriverConst = "const"
	DriverEcho  = "echo"
	DriverClock = "clock"
	DriverLog   = "log"
	DriverKV    = "kv"
)

// Format is a scenario file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatForPath picks the format from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unsupported scenario file extension: %s", filepath.Ext(path))
	}
}

// IsScenarioFile reports whether path has a scenario file extension.
func IsScenarioFile(path string) bool {
	_, err := FormatForPath(path)
	return err == nil
}

// LoadScenario reads and parses a scenario file (.yaml, .yml or .cue).
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	return ParseScenario(data, format, path)
}

// ParseScenario parses and validates scenario data. filename is used in
// CUE error positions only.
func ParseScenario(data []byte, format Format, filename string) (*Scenario, error) {
	var scenario Scenario
	switch format {
	case FormatYAML:
		// Strict field validation catches typos like "assertion:" vs "assertions:"
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&scenario); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case FormatCUE:
		if err := decodeCUE(data, filename, &scenario); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported scenario format %q", format)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// decodeCUE evaluates a CUE scenario, requires it to be concrete, and
// decodes its JSON form strictly into s.
func decodeCUE(data []byte, filename string, s *Scenario) error {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return fmt.Errorf("failed to compile CUE: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("CUE scenario is not concrete: %w", err)
	}

	raw, err := v.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to export CUE: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(s); err != nil {
		return fmt.Errorf("failed to decode CUE scenario: %w", err)
	}
	return nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.DurationMS < 0 {
		return fmt.Errorf("duration_ms must be non-negative")
	}

	if s.SettleMS < 0 {
		return fmt.Errorf("settle_ms must be non-negative")
	}

	if len(s.Drivers) == 0 {
		return fmt.Errorf("drivers map is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, key := range sortedKeys(s.Drivers) {
		if err := validateDriver(key, s.Drivers[key]); err != nil {
			return err
		}
	}

	for _, key := range sortedKeys(s.Main) {
		sink := s.Main[key]
		if (sink.From == "") == (sink.Values == nil) {
			return fmt.Errorf("main.%s: exactly one of from or values is required", key)
		}
		if sink.From != "" {
			if _, ok := s.Drivers[sink.From]; !ok {
				return fmt.Errorf("main.%s: from references unknown driver %q", key, sink.From)
			}
		}
		if err := validateOps(fmt.Sprintf("main.%s", key), sink.Ops); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateDriver(key string, d DriverSpec) error {
	switch d.Type {
	case DriverConst, DriverLog, DriverKV:
	case DriverEcho:
		if err := validateOps(fmt.Sprintf("drivers.%s", key), d.Ops); err != nil {
			return err
		}
	case DriverClock:
		if d.PeriodMS <= 0 {
			return fmt.Errorf("drivers.%s: period_ms must be positive for clock", key)
		}
		if d.Count < 0 {
			return fmt.Errorf("drivers.%s: count must be non-negative", key)
		}
	case "":
		return fmt.Errorf("drivers.%s: type is required", key)
	default:
		return fmt.Errorf("drivers.%s: unknown driver type %q", key, d.Type)
	}

	if d.Type != DriverEcho && len(d.Ops) > 0 {
		return fmt.Errorf("drivers.%s: ops are only supported by echo", key)
	}
	if d.Type != DriverConst && d.Values != nil {
		return fmt.Errorf("drivers.%s: values are only supported by const", key)
	}
	return nil
}
