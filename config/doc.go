// Package config loads service configuration with viper and godotenv.
//
// LoadConfig looks for config.yml under ./cmd/<service>/, ./config/ or the
// working directory, loads an optional .env file, and binds every
// environment variable under all of its nested key spellings so that
// DASHSCOPE_API_KEY fills dashscope.api_key without explicit bindings.
package config
