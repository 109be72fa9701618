// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `loader.go` calls `validateStruct` right after it unmarshals the merged
// Koanf tree.  Any tag failure aborts startup, so neither binary runs with
// partial or malformed configuration.
//
// The CLI never touches the database, so the `database` section is skipped
// by the common check and validated separately by `ValidateServer`, which
// cmd/web calls before opening the pool.

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = validator.New()

// validateStruct checks every section except Database.
func validateStruct(c *Config) error {
	return describe(v.StructExcept(c, "Database"))
}

// ValidateServer checks the sections only cmd/web needs.
func (c *Config) ValidateServer() error {
	return describe(v.Struct(&c.Database))
}

// describe flattens validator errors into one readable line.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config: %s", strings.Join(parts, "; "))
}
