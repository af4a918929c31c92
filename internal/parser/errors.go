package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrAutoModeUnsupported = errors.New("auto mode not implemented")
	ErrInvalid             = errors.New("invalid value")
	ErrUnknownWeapon       = errors.New("no such weapon")
	ErrUnknownShip         = errors.New("no such ship")
	ErrDuplicateFleet      = errors.New("duplicate fleet name")
	ErrInsufficientPower   = errors.New("insufficient power")
	ErrAmbiguousWeapon     = errors.New("weapon cannot be both a projectile weapon and a hangar")
)

// LoadError locates a problem inside a runspec or design file. Path is the
// chain of keys and indices leading to the offending value.
type LoadError struct {
	File string
	Path []string
	Err  error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(": ")
	}
	if len(e.Path) > 0 {
		b.WriteString(strings.Join(e.Path, " > "))
		b.WriteString(": ")
	}
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func loadErr(file string, err error, path ...string) *LoadError {
	return &LoadError{File: file, Path: path, Err: err}
}

var indexPattern = regexp.MustCompile(`\[(\d+)\]`)

// fromValidation converts the first validator failure into a LoadError.
func fromValidation(file string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return loadErr(file, err)
	}
	fe := verrs[0]

	ns := indexPattern.ReplaceAllString(fe.Namespace(), ".$1")
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		// drop the root struct name
		parts = parts[1:]
	}

	rule := fe.Tag()
	if fe.Param() != "" {
		rule += "=" + fe.Param()
	}
	return loadErr(file, fmt.Errorf("%w: %v fails %s", ErrInvalid, fe.Value(), rule), parts...)
}
