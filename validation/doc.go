// Package validation provides configuration and input validation for httpsmgr.
//
// Struct tag validation (go-playground/validator) checks config structs;
// programmatic validation collects field errors for CLI input.
//
// # Struct Tag Validation
//
//	type Config struct {
//	    Name        string        `yaml:"name" validate:"required"`
//	    DialTimeout time.Duration `yaml:"dial_timeout" validate:"gte=0"`
//	}
//	err := validation.Validate(&cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.TargetURL("url", raw)
//	if appErr := v.Validate(); appErr != nil { ... }
package validation
