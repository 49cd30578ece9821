// Package config loads the agent settings from YAML.
//
// Load reads the file, applies MQTT_STAT_* environment overrides and calls
// Validate, which fills defaults (port, topics, alarm ramp, control address)
// before checking the broker, topic and ramp settings.
package config
