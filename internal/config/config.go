// Package config provides configuration structures and loading for ontocat.
package config

// Config represents the complete application configuration.
type Config struct {
	Catalog      CatalogConfig      `yaml:"catalog" mapstructure:"catalog"`
	Ontology     OntologyConfig     `yaml:"ontology" mapstructure:"ontology"`
	Filter       FilterConfig       `yaml:"filter" mapstructure:"filter"`
	Accession    AccessionConfig    `yaml:"accession" mapstructure:"accession"`
	Verification VerificationConfig `yaml:"verification" mapstructure:"verification"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// CatalogConfig represents the catalog database connection configuration.
// The sqlite driver needs only a file path; mysql needs host credentials.
type CatalogConfig struct {
	Driver             string `yaml:"driver" mapstructure:"driver"` // sqlite or mysql
	Path               string `yaml:"path" mapstructure:"path"`     // sqlite database file
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// OntologyConfig represents the ontology sources for a project.
type OntologyConfig struct {
	Manifest string `yaml:"manifest" mapstructure:"manifest"` // type manifest YAML path
	Root     string `yaml:"root" mapstructure:"root"`         // root type name
	Store    string `yaml:"store" mapstructure:"store"`       // record store snapshot path
}

// FilterConfig represents predicate filter execution settings.
type FilterConfig struct {
	Workers   int  `yaml:"workers" mapstructure:"workers"`
	Chunks    int  `yaml:"chunks" mapstructure:"chunks"` // 0 means one chunk per worker
	OnMissing bool `yaml:"on_missing" mapstructure:"on_missing"`
}

// AccessionConfig represents the accession journal settings.
type AccessionConfig struct {
	Path       string `yaml:"path" mapstructure:"path"`
	MaxEntries int    `yaml:"max_entries" mapstructure:"max_entries"`
	Actor      string `yaml:"actor" mapstructure:"actor"`
}

// VerificationConfig represents catalog write verification settings.
type VerificationConfig struct {
	Method           string `yaml:"method" mapstructure:"method"` // "count" or "sha256"
	SkipVerification bool   `yaml:"skip_verification" mapstructure:"skip_verification"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Driver:             "sqlite",
			Path:               "ontocat.db",
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Ontology: OntologyConfig{
			Root: "Informant",
		},
		Filter: FilterConfig{
			Workers:   4,
			Chunks:    0,
			OnMissing: false,
		},
		Accession: AccessionConfig{
			Path:       "accession_record.json",
			MaxEntries: 500,
		},
		Verification: VerificationConfig{
			Method:           "count",
			SkipVerification: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// EffectiveChunks returns the chunk count to use for a parallel filter,
// falling back to one chunk per worker when unset.
func (fc FilterConfig) EffectiveChunks() int {
	if fc.Chunks > 0 {
		return fc.Chunks
	}
	return fc.Workers
}
