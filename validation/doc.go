// Package validation validates configuration and pipeline definitions.
//
// Struct tags cover most rules:
//
//	type NodeDef struct {
//	    Name   string     `yaml:"name" validate:"required"`
//	    Stages []StageDef `yaml:"stages" validate:"dive"`
//	}
//	err := validation.Validate(def)
//
// A Validator collects the checks tags cannot express:
//
//	v := validation.New()
//	v.Check("engine.strategy", parseErr)
//	err := v.Validate()
//
// Both return an AppError with code INVALID_INPUT whose "fields" detail
// lists every failed field.
package validation
