package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	// Validate catalog settings
	if err := c.validateCatalog(); err != nil {
		errors = append(errors, err...)
	}

	// Validate ontology settings
	if err := c.validateOntology(); err != nil {
		errors = append(errors, err...)
	}

	// Validate filter settings
	if err := c.validateFilter(); err != nil {
		errors = append(errors, err...)
	}

	// Validate accession settings
	if err := c.validateAccession(); err != nil {
		errors = append(errors, err...)
	}

	// Validate verification settings
	if err := c.validateVerification(); err != nil {
		errors = append(errors, err...)
	}

	// Validate logging settings
	if err := c.validateLogging(); err != nil {
		errors = append(errors, err...)
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateCatalog() ValidationErrors {
	var errors ValidationErrors

	validDrivers := map[string]bool{"sqlite": true, "mysql": true, "": true}
	if !validDrivers[c.Catalog.Driver] {
		errors = append(errors, ValidationError{
			Field:   "catalog.driver",
			Message: "driver must be 'sqlite' or 'mysql'",
		})
		return errors
	}

	switch c.Catalog.Driver {
	case "sqlite", "":
		if c.Catalog.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "catalog.path",
				Message: "path is required for the sqlite driver",
			})
		}
	case "mysql":
		if c.Catalog.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "catalog.host",
				Message: "host is required for the mysql driver",
			})
		}

		if c.Catalog.Port <= 0 || c.Catalog.Port > 65535 {
			errors = append(errors, ValidationError{
				Field:   "catalog.port",
				Message: "port must be between 1 and 65535",
			})
		}

		if c.Catalog.User == "" {
			errors = append(errors, ValidationError{
				Field:   "catalog.user",
				Message: "user is required for the mysql driver",
			})
		}

		if c.Catalog.Database == "" {
			errors = append(errors, ValidationError{
				Field:   "catalog.database",
				Message: "database name is required for the mysql driver",
			})
		}

		validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
		if !validTLS[c.Catalog.TLS] {
			errors = append(errors, ValidationError{
				Field:   "catalog.tls",
				Message: "tls must be 'disable', 'preferred', or 'required'",
			})
		}
	}

	if c.Catalog.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "catalog.max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if c.Catalog.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "catalog.max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateOntology() ValidationErrors {
	var errors ValidationErrors

	if c.Ontology.Root == "" {
		errors = append(errors, ValidationError{
			Field:   "ontology.root",
			Message: "root type name is required",
		})
	}

	return errors
}

func (c *Config) validateFilter() ValidationErrors {
	var errors ValidationErrors

	if c.Filter.Workers <= 0 {
		errors = append(errors, ValidationError{
			Field:   "filter.workers",
			Message: "workers must be positive",
		})
	}

	if c.Filter.Chunks < 0 {
		errors = append(errors, ValidationError{
			Field:   "filter.chunks",
			Message: "chunks cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateAccession() ValidationErrors {
	var errors ValidationErrors

	if c.Accession.MaxEntries <= 0 {
		errors = append(errors, ValidationError{
			Field:   "accession.max_entries",
			Message: "max_entries must be positive",
		})
	}

	return errors
}

func (c *Config) validateVerification() ValidationErrors {
	var errors ValidationErrors

	validMethods := map[string]bool{"count": true, "sha256": true, "": true}
	if !validMethods[c.Verification.Method] {
		errors = append(errors, ValidationError{
			Field:   "verification.method",
			Message: "method must be 'count' or 'sha256'",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
