// =============================================================================
// PCA Consolidation - Configuration Module
// =============================================================================
//
// This module loads the main application configuration and the source
// profiles that describe each secretariat's export layout.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): directories, database, outputs, generator
//   2. Source Profiles (sources/*.yaml): file patterns, parsing settings,
//      column mapping, defaults and transformation rules
//
// OVERRIDES:
//   Any main config key can be overridden from the environment through
//   viper (PCA_DATABASE_PATH, PCA_LOG_LEVEL, PCA_GENERATOR_API_KEY, ...).
//   See ApplyOverrides.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for demand exports (*.csv, *.xlsx).
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the consolidated reports.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives exports after a successful run.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir keeps a copy of every report.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// SourcesDir holds one YAML profile per export layout.
	// Default: "./sources"
	SourcesDir string `yaml:"sources_dir"`

	// =========================================================================
	// STORAGE
	// =========================================================================

	// DatabasePath is the SQLite document store.
	// Default: "./data/pca.db"
	DatabasePath string `yaml:"database_path"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel: "debug", "info", "warn", "error". Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat: "auto", "console", "json". Default: "auto"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat names report files. Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Current date (YYYYMMDD)
	//   {type}      - Report kind ("pca")
	// Default: "{type}_{timestamp}"
	OutputNameFormat string `yaml:"output_name_format"`

	// OutputFormats lists the report formats to write: xlsx, xml, yaml, json.
	// Default: [xlsx, yaml]
	OutputFormats []string `yaml:"output_formats"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency bounds the number of exports parsed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps consolidating when an export fails to load.
	// Default: true (set explicitly to false to stop on the first failure)
	ContinueOnError *bool `yaml:"continue_on_error"`

	// =========================================================================
	// GENERATION
	// =========================================================================

	Generator GeneratorConfig `yaml:"generator"`
}

// GeneratorConfig selects the document text generator.
type GeneratorConfig struct {
	// Provider is "canned" (static texts) or "gemini". Default: "canned"
	Provider string `yaml:"provider"`

	// Model is the Gemini model name. Default: "gemini-2.0-flash"
	Model string `yaml:"model"`

	// APIKey for the Gemini API. Usually set through PCA_GENERATOR_API_KEY.
	APIKey string `yaml:"api_key"`

	// Delay simulates generation latency for the canned provider.
	// 0 disables it. Default: 1.5s
	Delay *time.Duration `yaml:"delay"`
}

// DefaultGeneratorDelay is the canned generator latency when none is set.
const DefaultGeneratorDelay = 1500 * time.Millisecond

// CannedDelay reports the effective canned generator delay.
func (g GeneratorConfig) CannedDelay() time.Duration {
	if g.Delay == nil {
		return DefaultGeneratorDelay
	}
	return *g.Delay
}

// ShouldContinueOnError reports the effective continue_on_error setting.
func (c *MainConfig) ShouldContinueOnError() bool {
	return c.ContinueOnError == nil || *c.ContinueOnError
}

// =============================================================================
// SOURCE PROFILE STRUCTURE
// =============================================================================

// SourceConfig describes one export layout, usually one secretariat's.
type SourceConfig struct {
	// Name is used in logs. Code keys the profile map.
	Name string `yaml:"name"`
	Code string `yaml:"code"`

	// FileMatchingPatterns are glob patterns matched against the file name.
	// Examples: "educacao_*.csv", "*_saude_*.xlsx"
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// CSVSettings apply to *.csv exports.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// Sheet is the worksheet read from *.xlsx exports. Empty means the
	// first sheet.
	Sheet string `yaml:"sheet"`

	// ColumnMapping maps item fields to export headers.
	ColumnMapping ColumnMapping `yaml:"column_mapping"`

	// Defaults fill fields that are absent or empty in the export.
	Defaults Defaults `yaml:"defaults"`

	// TransformationRules are applied per column before mapping.
	TransformationRules []TransformationRule `yaml:"transformation_rules"`
}

// CSVSettings contains settings for parsing CSV exports.
type CSVSettings struct {
	// Delimiter: ",", ";", "|", "tab". Default: ";" (spreadsheet exports in
	// pt-BR locales use semicolons).
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows, merged column-wise.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// DataStartRow is the 1-based row where data begins. Default: HeaderRows+1
	DataStartRow int `yaml:"data_start_row"`

	// Encoding: "UTF-8", "ISO-8859-1", "Windows-1252". Default: "UTF-8"
	Encoding string `yaml:"encoding"`
}

// ColumnMapping maps DemandItem fields to export headers.
type ColumnMapping struct {
	ID              string `yaml:"id"`
	Description     string `yaml:"descricao"`
	Quantity        string `yaml:"quantidade"`
	UnitValue       string `yaml:"valor_unitario"`
	Value           string `yaml:"valor"`
	Unit            string `yaml:"unidade"`
	TechnicalDetail string `yaml:"detalhamento_tecnico"`
	Secretariat     string `yaml:"secretaria"`
	Priority        string `yaml:"prioridade"`
	ContractingDate string `yaml:"data_contratacao"`
	DocumentID      string `yaml:"documento_id"`
	DocumentType    string `yaml:"tipo_documento"`
}

// Defaults fill item fields the export leaves empty.
type Defaults struct {
	Secretariat  string `yaml:"secretaria"`
	DocumentType string `yaml:"tipo_documento"`
	Priority     string `yaml:"prioridade"`
}

// TransformationRule lists the actions applied to one column.
type TransformationRule struct {
	// Field is the export header, as it appears after header cleaning.
	Field string `yaml:"field"`

	// Actions run in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction is a single transformation step.
//
// Supported types:
//   - "trim", "uppercase", "lowercase", "normalize_whitespace"
//   - "replace"             : Find -> Value
//   - "regex_replace"       : Find (pattern) -> Value
//   - "lookup"              : LookupTable, unknown values kept
//   - "lookup_with_default" : LookupTable, unknown values become Value
//   - "format_date"         : Value "input_layout|output_layout"
//   - "if_empty_use_default": Value
//   - "if_empty_use_field"  : Value is another header
//   - "extract_digits"
type TransformationAction struct {
	Type        string            `yaml:"type"`
	Value       string            `yaml:"value"`
	Find        string            `yaml:"find,omitempty"`
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file. A missing
// file is not an error: defaults are used so the CLI runs out of the box.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset option.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.SourcesDir == "" {
		config.SourcesDir = "./sources"
	}
	if config.DatabasePath == "" {
		config.DatabasePath = "./data/pca.db"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "auto"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{type}_{timestamp}"
	}
	if len(config.OutputFormats) == 0 {
		config.OutputFormats = []string{"xlsx", "yaml"}
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Generator.Provider == "" {
		config.Generator.Provider = "canned"
	}
	if config.Generator.Model == "" {
		config.Generator.Model = "gemini-2.0-flash"
	}
	if config.Generator.Delay == nil {
		delay := DefaultGeneratorDelay
		config.Generator.Delay = &delay
	}
}

// Validate checks option values and creates the working directories.
func (c *MainConfig) Validate() error {
	for _, format := range c.OutputFormats {
		switch strings.ToLower(format) {
		case "xlsx", "xml", "yaml", "json":
		default:
			return fmt.Errorf("unsupported output format %q", format)
		}
	}

	switch c.Generator.Provider {
	case "canned", "gemini":
	default:
		return fmt.Errorf("unsupported generator provider %q", c.Generator.Provider)
	}

	dirs := []string{
		c.InputDir,
		c.OutputDir,
		c.InputArchiveDir,
		c.OutputArchiveDir,
		c.SourcesDir,
		filepath.Dir(c.DatabasePath),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// LoadSourceConfigs loads all source profiles from a directory, keyed by
// profile code (or file name when the code is empty).
func LoadSourceConfigs(sourcesDir string) (map[string]*SourceConfig, error) {
	configs := make(map[string]*SourceConfig)

	files, err := filepath.Glob(filepath.Join(sourcesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list source profiles: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(sourcesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list source profiles: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		source, err := loadSourceConfig(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}

		key := source.Code
		if key == "" {
			key = filepath.Base(file)
		}

		configs[key] = source
	}

	return configs, nil
}

// loadSourceConfig loads a single source profile.
func loadSourceConfig(filePath string) (*SourceConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var source SourceConfig
	if err := yaml.Unmarshal(data, &source); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	ApplySourceDefaults(&source)

	return &source, nil
}

// DefaultSource returns the profile used for exports no profile matches:
// standard headers, semicolon CSV, UTF-8.
func DefaultSource() *SourceConfig {
	source := &SourceConfig{Name: "default", Code: "default"}
	ApplySourceDefaults(source)
	return source
}

// ApplySourceDefaults sets default values for a source profile.
func ApplySourceDefaults(source *SourceConfig) {
	if source.CSVSettings.Delimiter == "" {
		source.CSVSettings.Delimiter = ";"
	}
	if source.CSVSettings.HeaderRows == 0 {
		source.CSVSettings.HeaderRows = 1
	}
	if source.CSVSettings.DataStartRow == 0 {
		source.CSVSettings.DataStartRow = source.CSVSettings.HeaderRows + 1
	}
	if source.CSVSettings.Encoding == "" {
		source.CSVSettings.Encoding = "UTF-8"
	}

	m := &source.ColumnMapping
	setDefault(&m.ID, "id")
	setDefault(&m.Description, "descricao")
	setDefault(&m.Quantity, "quantidade")
	setDefault(&m.UnitValue, "valor_unitario")
	setDefault(&m.Value, "valor")
	setDefault(&m.Unit, "unidade")
	setDefault(&m.TechnicalDetail, "detalhamento_tecnico")
	setDefault(&m.Secretariat, "secretaria")
	setDefault(&m.Priority, "prioridade")
	setDefault(&m.ContractingDate, "data_contratacao")
	setDefault(&m.DocumentID, "documento_id")
	setDefault(&m.DocumentType, "tipo_documento")
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// MatchSource returns the first profile with a pattern matching the file
// name, or nil. Profiles are tried in code order so the result does not
// depend on map iteration.
func MatchSource(filePath string, sources map[string]*SourceConfig) *SourceConfig {
	fileName := filepath.Base(filePath)

	codes := make([]string, 0, len(sources))
	for code := range sources {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		for _, pattern := range sources[code].FileMatchingPatterns {
			matched, err := filepath.Match(pattern, fileName)
			if err != nil {
				continue
			}
			if matched {
				return sources[code]
			}
		}
	}

	return nil
}
