// CLAUDE:SUMMARY Resolves the single hansardwatch Config once at startup: defaults < YAML file < environment (.env via godotenv).
// Package config resolves hansardwatch configuration once at startup.
//
// Precedence, lowest first: built-in defaults, optional YAML file, process
// environment. A .env file in the working directory is loaded first and
// never overrides variables already set.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredential is returned by ValidateMail when a required mail
// setting is absent.
var ErrMissingCredential = errors.New("config: missing mail credential")

// Config is the top-level configuration shared by both binaries.
type Config struct {
	Root     string        `yaml:"root"`
	LogLevel string        `yaml:"log_level"`
	Portal   PortalConfig  `yaml:"portal"`
	Browser  BrowserConfig `yaml:"browser"`
	State    StateConfig   `yaml:"state"`
	Digest   DigestConfig  `yaml:"digest"`
	Mail     MailConfig    `yaml:"mail"`
	Archive  ArchiveConfig `yaml:"archive"`
}

// PortalConfig describes the search portal and how far to scan it.
type PortalConfig struct {
	URL         string        `yaml:"url"`
	Query       string        `yaml:"query"`
	MaxResults  int           `yaml:"max_results"`
	SettleDelay time.Duration `yaml:"settle_delay"` // stall before opening the download menu
	SortByDate  bool          `yaml:"sort_by_date"`
	// DocxFallback fetches the row's .docx link when the text export fails.
	DocxFallback bool `yaml:"docx_fallback"`
}

// BrowserConfig controls the Chrome instance.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"` // DevTools WebSocket URL; empty launches a local Chrome
	Headless         bool     `yaml:"headless"`
	Stealth          bool     `yaml:"stealth"`
	ResourceBlocking []string `yaml:"resource_blocking"`
}

// StateConfig locates the files shared between the scanner and the digester.
type StateConfig struct {
	Backend        string `yaml:"backend"` // json | sqlite | memory
	SeenPath       string `yaml:"seen_path"`
	TranscriptsDir string `yaml:"transcripts_dir"`
	NewFilesPath   string `yaml:"new_files_path"`
}

// DigestConfig controls keyword excerpting.
type DigestConfig struct {
	Radius       int      `yaml:"radius"`
	KeywordsFile string   `yaml:"keywords_file"`
	Keywords     []string `yaml:"-"` // resolved by ResolveKeywords
	Consume      bool     `yaml:"consume"`
}

// MailConfig holds SMTP delivery settings.
type MailConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	User     string   `yaml:"user"`
	Password string   `yaml:"-"`
	To       []string `yaml:"to"`
	FromName string   `yaml:"from_name"`
}

// ArchiveConfig enables the optional S3 archive of new transcripts.
type ArchiveConfig struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// Enabled reports whether a bucket is configured.
func (a ArchiveConfig) Enabled() bool { return a.Bucket != "" }

// Default returns the built-in configuration rooted at root.
func Default(root string) *Config {
	return &Config{
		Root:     root,
		LogLevel: "info",
		Portal: PortalConfig{
			URL:         "https://search.parliament.tas.gov.au/search/",
			Query:       "AUTHOR CONTAINS (House of Assembly)",
			MaxResults:  10,
			SettleDelay: 15 * time.Second,
			SortByDate:  true,
		},
		Browser: BrowserConfig{
			Headless: true,
			Stealth:  true,
		},
		State: StateConfig{
			Backend: "json",
		},
		Digest: DigestConfig{
			Radius: 0,
		},
		Mail: MailConfig{
			Host:     "smtp.gmail.com",
			Port:     465,
			FromName: "Hansard Watch",
		},
	}
}

// Load resolves the configuration. path may be empty; HANSARD_CONFIG is
// consulted in that case. getenv is os.Getenv outside tests.
func Load(path string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		_ = godotenv.Load()
		getenv = os.Getenv
	}

	root := getenv("HANSARD_ROOT")
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("config: getwd: %w", err)
		}
		root = wd
	}
	cfg := Default(root)

	if path == "" {
		path = getenv("HANSARD_CONFIG")
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	cfg.resolvePaths()

	kws, err := ResolveKeywords(getenv("KEYWORDS"), cfg.Digest.KeywordsFile)
	if err != nil {
		return nil, err
	}
	cfg.Digest.Keywords = kws
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	var errs []error
	setInt := func(name string, dst *int) {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %s=%q: not an integer", name, v))
			return
		}
		*dst = n
	}
	setStr := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}

	setInt("MAX_RESULTS", &c.Portal.MaxResults)
	wait := -1
	setInt("WAIT_BEFORE_DOWNLOAD_SECONDS", &wait)
	if wait >= 0 {
		c.Portal.SettleDelay = time.Duration(wait) * time.Second
	}
	setInt("PARAGRAPH_RADIUS", &c.Digest.Radius)
	setStr("LOG_LEVEL", &c.LogLevel)
	setStr("CHROME_REMOTE_URL", &c.Browser.Remote)
	setStr("STATE_BACKEND", &c.State.Backend)
	setStr("KEYWORDS_FILE", &c.Digest.KeywordsFile)

	setStr("SMTP_HOST", &c.Mail.Host)
	setInt("SMTP_PORT", &c.Mail.Port)
	setStr("EMAIL_USER", &c.Mail.User)
	c.Mail.Password = getenv("EMAIL_PASS")
	if to := getenv("EMAIL_TO"); strings.TrimSpace(to) != "" {
		c.Mail.To = splitList(to, ",")
	}

	setStr("ARCHIVE_S3_BUCKET", &c.Archive.Bucket)
	setStr("ARCHIVE_S3_PREFIX", &c.Archive.Prefix)
	setStr("ARCHIVE_S3_REGION", &c.Archive.Region)
	setStr("ARCHIVE_S3_ENDPOINT", &c.Archive.Endpoint)

	if c.Portal.MaxResults < 0 {
		errs = append(errs, fmt.Errorf("config: max_results must be >= 0, got %d", c.Portal.MaxResults))
	}
	if c.Digest.Radius < 0 {
		errs = append(errs, fmt.Errorf("config: paragraph radius must be >= 0, got %d", c.Digest.Radius))
	}
	return errors.Join(errs...)
}

// resolvePaths fills unset paths relative to Root.
func (c *Config) resolvePaths() {
	abs := func(p, def string) string {
		if p == "" {
			p = def
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(c.Root, p)
		}
		return p
	}
	seenDefault := filepath.Join("state", "seen.json")
	if c.State.Backend == "sqlite" {
		seenDefault = filepath.Join("state", "seen.db")
	}
	c.State.SeenPath = abs(c.State.SeenPath, seenDefault)
	c.State.TranscriptsDir = abs(c.State.TranscriptsDir, "transcripts")
	c.State.NewFilesPath = abs(c.State.NewFilesPath, "new_files.txt")
	c.Digest.KeywordsFile = abs(c.Digest.KeywordsFile, "keywords.txt")
}

// ValidateMail checks the settings the digester cannot run without. It
// must be called before any network activity.
func (c *Config) ValidateMail() error {
	var missing []string
	if c.Mail.User == "" {
		missing = append(missing, "EMAIL_USER")
	}
	if c.Mail.Password == "" {
		missing = append(missing, "EMAIL_PASS")
	}
	if len(c.Mail.To) == 0 {
		missing = append(missing, "EMAIL_TO")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredential, strings.Join(missing, ", "))
	}
	if c.Mail.Host == "" || c.Mail.Port <= 0 {
		return fmt.Errorf("config: invalid SMTP server %q:%d", c.Mail.Host, c.Mail.Port)
	}
	return nil
}

func splitList(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
