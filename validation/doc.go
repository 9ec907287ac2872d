// Package validation validates request bodies and configuration.
//
// Struct tag validation uses go-playground/validator with json or
// mapstructure names in messages:
//
//	type EnrollRequest struct {
//	    AudioURL string `json:"audio_url" validate:"omitempty,http_url"`
//	    Prefix   string `json:"prefix" validate:"omitempty,voice_prefix"`
//	}
//	err := validation.Struct(req)
//
// The programmatic Validator collects cross-field checks:
//
//	v := validation.New()
//	v.Range("server.port", cfg.Port, 0, 65535)
//	err := v.Err()
package validation
