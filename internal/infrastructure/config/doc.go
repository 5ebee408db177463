// Package config handles loading and validating Hass Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//   - Declarative MQTT entity definitions (the entities: section)
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(len(cfg.Entities))
//
// Entity definitions carry only structural defaults here (QoS, encoding).
// Per-kind semantic validation lives in the entity package so one broken
// definition fails that entity's construction, not config loading.
package config
