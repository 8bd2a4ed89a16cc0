// Package config loads cmdflow configuration.
//
// Values come from a YAML file (cmdflow.yml, .cmdflow.yml, config/cmdflow.yml
// or the user config directory), a .env file, and CMDFLOW_* environment
// variables, later sources overriding earlier ones:
//
//	cfg, err := config.Load(config.WithConfigFile("ci/cmdflow.yml"))
//	// CMDFLOW_ENGINE_STRATEGY=threadpool overrides engine.strategy
//
// Load applies defaults and validates the result.
package config
