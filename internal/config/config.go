package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"promap/internal/services"
)

//go:embed sample_config.cfg
var sampleConfig string

// Config encapsulates all configuration values for a promap run.
//
// Keys by concern:
//   - Resources: cpus, tmp_dir
//   - Read preprocessing: umi_pattern, adapter, read_length_min, read_length_max
//   - References: bowtie_genome_prefix, bowtie_rdna_prefix, bedtools_chrominfo_file
//   - Layout: log_dir, reads_dir, align_*_dir
//   - Logging: log_format, log_level
type Config struct {
	CPUs          int    `toml:"cpus"`
	TmpDir        string `toml:"tmp_dir"`
	UMIPattern    string `toml:"umi_pattern"`
	Adapter       string `toml:"adapter"`
	ReadLengthMin int    `toml:"read_length_min"`
	ReadLengthMax int    `toml:"read_length_max"`

	BowtieGenomePrefix    string `toml:"bowtie_genome_prefix"`
	BowtieRDNAPrefix      string `toml:"bowtie_rdna_prefix"`
	BedtoolsChromInfoFile string `toml:"bedtools_chrominfo_file"` // reserved; no stage reads it

	LogDir           string `toml:"log_dir"`
	ReadsDir         string `toml:"reads_dir"`
	AlignRibosomeDir string `toml:"align_ribosome_dir"`
	AlignUnmappedDir string `toml:"align_unmapped_dir"`
	AlignBAMDir      string `toml:"align_bam_dir"`
	AlignBedgraphDir string `toml:"align_bedgraph_dir"`

	LogFormat string `toml:"log_format"`
	LogLevel  string `toml:"log_level"`

	// Extra holds keys present in the override file that promap does not use.
	Extra map[string]string `toml:"-"`
}

// Keys lists every recognized configuration key in display order.
func Keys() []string {
	return []string{
		"cpus", "tmp_dir", "umi_pattern", "adapter", "read_length_min", "read_length_max",
		"bowtie_genome_prefix", "bowtie_rdna_prefix", "bedtools_chrominfo_file",
		"log_dir", "reads_dir", "align_ribosome_dir", "align_unmapped_dir", "align_bam_dir", "align_bedgraph_dir",
		"log_format", "log_level",
	}
}

// Load locates and parses a configuration file. An explicit path that does not
// exist is an error; an empty path falls back to promap.cfg in the working
// directory and to pure defaults when that file is absent. It returns the
// config, the resolved path, and whether a file was read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		if err := cfg.decodeFile(resolvedPath); err != nil {
			return nil, "", false, err
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func (c *Config) decodeFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.NewDecoder(file).Decode(c); err != nil {
			return services.Wrap(services.ErrConfiguration, "config", "parse "+path, "", err)
		}
		return nil
	}

	overrides, err := parseFlat(file)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "config", "parse "+path, "", err)
	}
	for _, entry := range overrides {
		if err := c.Set(entry.key, entry.value); err != nil {
			return services.Wrap(services.ErrConfiguration, "config", fmt.Sprintf("%s line %d", path, entry.line), "", err)
		}
	}
	return nil
}

// Set assigns a single key. Unknown keys are kept in Extra.
func (c *Config) Set(key, value string) error {
	switch key {
	case "cpus":
		return setInt(&c.CPUs, key, value)
	case "tmp_dir":
		c.TmpDir = value
	case "umi_pattern":
		c.UMIPattern = value
	case "adapter":
		c.Adapter = value
	case "read_length_min":
		return setInt(&c.ReadLengthMin, key, value)
	case "read_length_max":
		return setInt(&c.ReadLengthMax, key, value)
	case "bowtie_genome_prefix":
		c.BowtieGenomePrefix = value
	case "bowtie_rdna_prefix":
		c.BowtieRDNAPrefix = value
	case "bedtools_chrominfo_file":
		c.BedtoolsChromInfoFile = value
	case "log_dir":
		c.LogDir = value
	case "reads_dir":
		c.ReadsDir = value
	case "align_ribosome_dir":
		c.AlignRibosomeDir = value
	case "align_unmapped_dir":
		c.AlignUnmappedDir = value
	case "align_bam_dir":
		c.AlignBAMDir = value
	case "align_bedgraph_dir":
		c.AlignBedgraphDir = value
	case "log_format":
		c.LogFormat = value
	case "log_level":
		c.LogLevel = value
	default:
		if c.Extra == nil {
			c.Extra = make(map[string]string)
		}
		c.Extra[key] = value
	}
	return nil
}

// Lookup returns the effective value of a key as it would be written in a
// config file.
func (c *Config) Lookup(key string) (string, bool) {
	switch key {
	case "cpus":
		return strconv.Itoa(c.CPUs), true
	case "tmp_dir":
		return c.TmpDir, true
	case "umi_pattern":
		return c.UMIPattern, true
	case "adapter":
		return c.Adapter, true
	case "read_length_min":
		return strconv.Itoa(c.ReadLengthMin), true
	case "read_length_max":
		return strconv.Itoa(c.ReadLengthMax), true
	case "bowtie_genome_prefix":
		return c.BowtieGenomePrefix, true
	case "bowtie_rdna_prefix":
		return c.BowtieRDNAPrefix, true
	case "bedtools_chrominfo_file":
		return c.BedtoolsChromInfoFile, true
	case "log_dir":
		return c.LogDir, true
	case "reads_dir":
		return c.ReadsDir, true
	case "align_ribosome_dir":
		return c.AlignRibosomeDir, true
	case "align_unmapped_dir":
		return c.AlignUnmappedDir, true
	case "align_bam_dir":
		return c.AlignBAMDir, true
	case "align_bedgraph_dir":
		return c.AlignBedgraphDir, true
	case "log_format":
		return c.LogFormat, true
	case "log_level":
		return c.LogLevel, true
	}
	value, ok := c.Extra[key]
	return value, ok
}

// ExtraKeys returns the unrecognized keys in sorted order.
func (c *Config) ExtraKeys() []string {
	keys := make([]string, 0, len(c.Extra))
	for key := range c.Extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MissingReferences names the required reference keys that are still empty.
// Load does not fail on them; callers use this for advisory output only.
func (c *Config) MissingReferences() []string {
	var missing []string
	if strings.TrimSpace(c.BowtieGenomePrefix) == "" {
		missing = append(missing, "bowtie_genome_prefix")
	}
	if strings.TrimSpace(c.BowtieRDNAPrefix) == "" {
		missing = append(missing, "bowtie_rdna_prefix")
	}
	return missing
}

// OutputDirectories lists the directories stages write their products into.
func (c *Config) OutputDirectories() []string {
	return []string{c.TmpDir, c.AlignRibosomeDir, c.AlignUnmappedDir, c.AlignBAMDir, c.AlignBedgraphDir}
}

// EnsureDirectories creates the log directory and every output directory.
func (c *Config) EnsureDirectories() error {
	dirs := append([]string{c.LogDir}, c.OutputDirectories()...)
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Validate rejects values no run could use. It does not look at the
// filesystem.
func (c *Config) Validate() error {
	if c.CPUs < 1 {
		return services.Wrap(services.ErrConfiguration, "config", "cpus", fmt.Sprintf("must be positive, got %d", c.CPUs), nil)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return services.Wrap(services.ErrConfiguration, "config", "log_format", fmt.Sprintf("unsupported value %q", c.LogFormat), nil)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return services.Wrap(services.ErrConfiguration, "config", "log_level", fmt.Sprintf("unsupported value %q", c.LogLevel), nil)
	}
	return nil
}

func (c *Config) normalize() error {
	if c.CPUs == 0 {
		c.CPUs = runtime.NumCPU()
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}

	paths := []struct {
		key   string
		value *string
	}{
		{"tmp_dir", &c.TmpDir},
		{"log_dir", &c.LogDir},
		{"reads_dir", &c.ReadsDir},
		{"align_ribosome_dir", &c.AlignRibosomeDir},
		{"align_unmapped_dir", &c.AlignUnmappedDir},
		{"align_bam_dir", &c.AlignBAMDir},
		{"align_bedgraph_dir", &c.AlignBedgraphDir},
		{"bowtie_genome_prefix", &c.BowtieGenomePrefix},
		{"bowtie_rdna_prefix", &c.BowtieRDNAPrefix},
		{"bedtools_chrominfo_file", &c.BedtoolsChromInfoFile},
	}
	for _, p := range paths {
		expanded, err := expandPath(strings.TrimSpace(*p.value))
		if err != nil {
			return fmt.Errorf("%s: %w", p.key, err)
		}
		*p.value = expanded
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) != "" {
		expanded, err := expandPath(strings.TrimSpace(path))
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, &services.ConfigNotFoundError{Path: expanded}
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, &services.ConfigNotFoundError{Path: expanded}
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs(DefaultConfigName)
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return projectPath, false, nil
}

func setInt(dst *int, key, value string) error {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s: %q is not an integer", key, value)
	}
	*dst = parsed
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
