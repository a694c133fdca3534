package model

import (
	"time"
)

// ConfigType identifies how a ConfigEntry's text value is interpreted.
type ConfigType string

const (
	ConfigTypeInteger ConfigType = "integer"
	ConfigTypeDecimal ConfigType = "decimal"
	ConfigTypeBoolean ConfigType = "boolean"
	ConfigTypeJSON    ConfigType = "json"
	ConfigTypeString  ConfigType = "string"
)

// IsValid reports whether t is one of the supported config types.
func (t ConfigType) IsValid() bool {
	switch t {
	case ConfigTypeInteger, ConfigTypeDecimal, ConfigTypeBoolean, ConfigTypeJSON, ConfigTypeString:
		return true
	}
	return false
}

// IsNumeric reports whether min/max bounds apply to values of type t.
func (t ConfigType) IsNumeric() bool {
	return t == ConfigTypeInteger || t == ConfigTypeDecimal
}

// ConfigEntry is a business-rule configuration record. Value is always the
// canonical text form of a value that satisfies Type, Min, Max and Pattern.
type ConfigEntry struct {
	Key             string     `json:"key" toml:"key"`
	Value           string     `json:"value" toml:"value"`
	Type            ConfigType `json:"type" toml:"type"`
	Description     string     `json:"description,omitempty" toml:"description"`
	Category        string     `json:"category" toml:"category"`
	Editable        bool       `json:"editable" toml:"editable"`
	RequiresRestart bool       `json:"requires_restart" toml:"requires_restart"`
	Pattern         string     `json:"validation_pattern,omitempty" toml:"validation_pattern"`
	Min             *float64   `json:"min,omitempty" toml:"min"`
	Max             *float64   `json:"max,omitempty" toml:"max"`
	UpdatedBy       string     `json:"updated_by,omitempty" toml:"-"`
	CreatedAt       time.Time  `json:"created_at" toml:"-"`
	UpdatedAt       time.Time  `json:"updated_at" toml:"-"`
}

// Metadata returns the descriptive part of the entry without its value.
func (e *ConfigEntry) Metadata() *ConfigMetadata {
	return &ConfigMetadata{
		Key:             e.Key,
		Type:            e.Type,
		Description:     e.Description,
		Category:        e.Category,
		Editable:        e.Editable,
		RequiresRestart: e.RequiresRestart,
		Pattern:         e.Pattern,
		Min:             e.Min,
		Max:             e.Max,
		UpdatedBy:       e.UpdatedBy,
		UpdatedAt:       e.UpdatedAt,
	}
}

// ConfigMetadata describes a config key: its type, constraints and audit fields.
type ConfigMetadata struct {
	Key             string     `json:"key"`
	Type            ConfigType `json:"type"`
	Description     string     `json:"description,omitempty"`
	Category        string     `json:"category"`
	Editable        bool       `json:"editable"`
	RequiresRestart bool       `json:"requires_restart"`
	Pattern         string     `json:"validation_pattern,omitempty"`
	Min             *float64   `json:"min,omitempty"`
	Max             *float64   `json:"max,omitempty"`
	UpdatedBy       string     `json:"updated_by,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ConfigChange is the audit record written for every successful config write.
type ConfigChange struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	Actor     string    `json:"actor"`
	ChangedAt time.Time `json:"changed_at"`
}
