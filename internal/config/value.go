package config

import "fmt"

// ConfigSource represents the origin of a configuration value.
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceConfigFile  ConfigSource = "config.toml"
	SourceEnvironment ConfigSource = "environment"
	SourceFlag        ConfigSource = "flag"
)

// String returns the string representation of the ConfigSource.
func (s ConfigSource) String() string {
	return string(s)
}

// StringValue is a string setting with its source.
type StringValue struct {
	Value  string
	Source ConfigSource
}

// IntValue is an int setting with its source.
type IntValue struct {
	Value  int
	Source ConfigSource
}

// BoolValue is a bool setting with its source.
type BoolValue struct {
	Value  bool
	Source ConfigSource
}

func NewStringValue(value string) StringValue {
	return StringValue{Value: value, Source: SourceDefault}
}

func NewIntValue(value int) IntValue {
	return IntValue{Value: value, Source: SourceDefault}
}

func NewBoolValue(value bool) BoolValue {
	return BoolValue{Value: value, Source: SourceDefault}
}

// Display renders the value for tables, showing unset strings explicitly.
func (v StringValue) Display() string {
	if v.Value == "" {
		return "(not set)"
	}
	return v.Value
}

func (v IntValue) Display() string {
	return fmt.Sprintf("%d", v.Value)
}

func (v BoolValue) Display() string {
	return fmt.Sprintf("%t", v.Value)
}
