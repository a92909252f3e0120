package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Secret credentials (never logged)
	EmailTo      string `long:"email-to" env:"EMAIL_TO" description:"Digest recipient address"`
	EmailFrom    string `long:"email-from" env:"EMAIL_FROM" description:"Digest sender address (also SMTP username)"`
	EmailPass    string `long:"email-pass" env:"EMAIL_PASS" description:"SMTP password for the sender address"`
	GoogleAPIKey string `long:"google-api-key" env:"GOOGLE_API_KEY" description:"Google API key for Custom Search"`
	GoogleCSEID  string `long:"google-cse-id" env:"GOOGLE_CSE_ID" description:"Google Custom Search Engine ID"`
	SerpAPIKey   string `long:"serpapi-key" env:"SERPAPI_KEY" description:"SerpAPI key"`

	// Scheduling configuration
	Schedule      string `long:"schedule" env:"SCHEDULE" default:"0 4 * * *" description:"Cron expression for the daily run, evaluated in UTC"`
	OverlapPolicy string `long:"overlap-policy" env:"OVERLAP_POLICY" default:"skip" choice:"skip" choice:"wait" description:"Behavior when a trigger fires while a run is in progress"`
	JobTimeout    int    `long:"job-timeout" env:"JOB_TIMEOUT" default:"600" description:"Maximum run duration in seconds"`

	// Application configuration
	OrgsDir      string `long:"orgs-dir" env:"ORGS_DIR" default:"./orgs" description:"Directory containing organization watch configuration files"`
	DBPath       string `long:"db-path" env:"DB_PATH" default:"./news-digest.db" description:"Path to the SQLite database file"`
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Email delivery configuration
	SMTPHost string `long:"smtp-host" env:"SMTP_HOST" default:"smtp.gmail.com" description:"SMTP server host"`
	SMTPPort int    `long:"smtp-port" env:"SMTP_PORT" default:"587" description:"SMTP server port"`

	// External program mode
	ExecCommand    string   `long:"exec-command" env:"EXEC_COMMAND" description:"External program to run instead of the built-in pipeline"`
	ExecArgs       []string `long:"exec-arg" env:"EXEC_ARGS" env-delim:"," description:"Arguments for the external program"`
	ExecSourceDir  string   `long:"exec-source-dir" env:"EXEC_SOURCE_DIR" description:"Source tree copied into the fresh workspace before each run"`
	RuntimeBin     string   `long:"runtime-bin" env:"RUNTIME_BIN" default:"python3" description:"Runtime binary required by the external program"`
	RuntimeVersion string   `long:"runtime-version" env:"RUNTIME_VERSION" default:"3.10" description:"Required major.minor runtime version"`
	InstallCommand string   `long:"install-command" env:"INSTALL_COMMAND" default:"pip install requests" description:"Dependency installation command run before the external program"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"News Digest/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		EmailTo:        raw.EmailTo,
		EmailFrom:      raw.EmailFrom,
		EmailPass:      raw.EmailPass,
		GoogleAPIKey:   raw.GoogleAPIKey,
		GoogleCSEID:    raw.GoogleCSEID,
		SerpAPIKey:     raw.SerpAPIKey,
		Schedule:       raw.Schedule,
		OverlapPolicy:  raw.OverlapPolicy,
		JobTimeout:     raw.JobTimeout,
		OrgsDir:        raw.OrgsDir,
		DBPath:         raw.DBPath,
		Port:           raw.Port,
		APIAccessKey:   raw.APIAccessKey,
		SMTPHost:       raw.SMTPHost,
		SMTPPort:       raw.SMTPPort,
		ExecCommand:    raw.ExecCommand,
		ExecArgs:       raw.ExecArgs,
		ExecSourceDir:  raw.ExecSourceDir,
		RuntimeBin:     raw.RuntimeBin,
		RuntimeVersion: raw.RuntimeVersion,
		InstallCommand: raw.InstallCommand,
		UserAgent:      raw.UserAgent,
		Timezone:       raw.Timezone,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
