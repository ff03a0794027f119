package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jacoelho/feedpoll/internal/exit"
	"github.com/jacoelho/feedpoll/internal/feed"
	"github.com/jacoelho/feedpoll/internal/formatter"
	"github.com/jacoelho/feedpoll/internal/httpclient"
	"github.com/jacoelho/feedpoll/internal/log"
	"github.com/jacoelho/feedpoll/internal/stream"
	"github.com/jacoelho/feedpoll/internal/targets"
)

const (
	DefaultHost            = "http://api.pachube.com"
	DefaultConnectTimeout  = 15 * time.Second
	DefaultResponseTimeout = 15 * time.Second

	// APIKeyVariable is the key read from -env-file.
	APIKeyVariable = "API_KEY"
	// APIKeyEnv is consulted when neither -api-key nor -env-file provide a key.
	APIKeyEnv = "PACHUBE_API_KEY"
)

var (
	ErrNoTargets         = errors.New("no targets specified: use -feed or -targets")
	ErrConflictingSource = errors.New("-feed and -targets cannot be combined")
	ErrDatastreamNoFeed  = errors.New("-datastream requires -feed")
	ErrInvalidFormat     = errors.New("format must be text or json")
	ErrInvalidLogLevel   = errors.New("log level must be debug, info, warn or error")
	ErrInvalidHost       = errors.New("host must be an http or https URL")
	ErrInvalidTimeout    = errors.New("timeouts must be positive")
	ErrInvalidMaxDepth   = errors.New("max depth must be at least 1")
	ErrInvalidInterval   = errors.New("interval cannot be negative")
)

// Config represents the complete configuration for the feedpoll tool.
type Config struct {
	// Targets
	FeedID       string
	DatastreamID string
	APIKey       string
	EnvFile      string
	TargetsFile  string
	Targets      []feed.Target

	// HTTP client configuration
	Host            string
	Insecure        bool
	CACertFile      string
	ConnectTimeout  time.Duration
	ResponseTimeout time.Duration

	// Parsing
	ReadTimeout time.Duration
	MaxDepth    int

	// Run loop
	Interval time.Duration
	Repeat   int // Additional cycles after the first (negative = forever)

	// Output
	Format   string
	LogLevel string
	Debug    bool
}

// TLSConfig returns a TLS configuration based on the config settings.
func (c *Config) TLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: c.Insecure,
	}

	if c.CACertFile != "" {
		caCertPool, err := x509.SystemCertPool()
		if err != nil {
			caCertPool = x509.NewCertPool()
		}

		caCert, err := os.ReadFile(c.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate file %s: %w", c.CACertFile, err)
		}

		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate from %s", c.CACertFile)
		}

		tlsConfig.RootCAs = caCertPool
	}

	return tlsConfig, nil
}

// HTTPClient creates an HTTP client configured with the settings from this Config.
func (c *Config) HTTPClient() (*http.Client, error) {
	tlsConfig, err := c.TLSConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS configuration: %w", err)
	}

	return httpclient.New(tlsConfig, c.ConnectTimeout, c.ResponseTimeout), nil
}

// ParserOptions returns the stream options for a target.
func (c *Config) ParserOptions(t feed.Target) stream.Options {
	return stream.Options{
		RootIsRecord: t.Single(),
		ReadTimeout:  c.ReadTimeout,
		MaxDepth:     c.MaxDepth,
	}
}

// EffectiveLogLevel returns the log level, with -debug forcing debug.
func (c *Config) EffectiveLogLevel() string {
	if c.Debug {
		return log.LevelDebug
	}
	return c.LogLevel
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTargets
	}

	for _, t := range c.Targets {
		if err := t.Validate(); err != nil {
			return err
		}
	}

	u, err := url.Parse(c.Host)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w, got: %s", ErrInvalidHost, c.Host)
	}

	if c.ConnectTimeout <= 0 || c.ResponseTimeout <= 0 || c.ReadTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Interval < 0 {
		return ErrInvalidInterval
	}

	if c.MaxDepth < 1 {
		return ErrInvalidMaxDepth
	}

	if c.Format != formatter.FormatText && c.Format != formatter.FormatJSON {
		return fmt.Errorf("%w, got: %s", ErrInvalidFormat, c.Format)
	}

	if !log.ValidLevel(c.LogLevel) {
		return fmt.Errorf("%w, got: %s", ErrInvalidLogLevel, c.LogLevel)
	}

	if c.CACertFile != "" {
		if _, err := os.Stat(c.CACertFile); err != nil {
			return fmt.Errorf("CA certificate file %s not found: %w", c.CACertFile, err)
		}
	}

	return nil
}

// Parse parses command-line arguments and returns a validated Config.
// If parsing fails or help is requested, returns nil config and exit result.
func Parse(args []string) (*Config, *exit.Result) {
	return parse(args, os.Getenv)
}

func parse(args []string, getenv func(string) string) (*Config, *exit.Result) {
	if len(args) == 0 {
		return nil, exit.Errorf("Error: %v\n\n%s", ErrNoTargets, Usage())
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)

	// Suppress the default usage output since we handle it ourselves
	fs.Usage = func() {}
	// Suppress error output since we handle it ourselves
	fs.SetOutput(io.Discard)

	var (
		feedID          = fs.String("feed", "", "Feed ID to poll")
		datastreamID    = fs.String("datastream", "", "Datastream ID within -feed")
		apiKey          = fs.String("api-key", "", "API key sent with every request")
		envFile         = fs.String("env-file", "", "Path to key=value file providing API_KEY")
		targetsFile     = fs.String("targets", "", "Path to YAML file listing targets")
		host            = fs.String("host", DefaultHost, "Base URL of the feed service")
		connectTimeout  = fs.Duration("connect-timeout", DefaultConnectTimeout, "Timeout for connecting and TLS handshake")
		responseTimeout = fs.Duration("response-timeout", DefaultResponseTimeout, "Timeout waiting for response headers")
		readTimeout     = fs.Duration("read-timeout", stream.DefaultReadTimeout, "Timeout waiting for each body byte")
		interval        = fs.Duration("interval", 0, "Minimum time between requests (0 for no pacing)")
		repeat          = fs.Int("repeat", 0, "Number of additional cycles after the first (negative for infinite loop)")
		format          = fs.String("format", formatter.FormatText, "Record output format: text or json")
		logLevel        = fs.String("log-level", log.LevelInfo, "Log level: debug, info, warn or error")
		debug           = fs.Bool("debug", false, "Enable debug logging")
		insecure        = fs.Bool("insecure", false, "Skip TLS certificate verification")
		caCertFile      = fs.String("cacert", "", "Path to CA certificate file for TLS verification")
		maxDepth        = fs.Int("max-depth", stream.DefaultMaxDepth, "Maximum document nesting depth")
	)

	if err := fs.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil, exit.Success(Usage())
		}
		return nil, exit.Errorf("Error: failed to parse arguments: %v\n\n%s", err, Usage())
	}

	if fs.NArg() > 0 {
		return nil, exit.Errorf("Error: unexpected arguments: %s\n\n%s", strings.Join(fs.Args(), " "), Usage())
	}

	// Key precedence: flag, then env file, then environment
	key := *apiKey
	if key == "" && *envFile != "" {
		variables, err := loadVariableFile(*envFile)
		if err != nil {
			return nil, exit.Errorf("Error: failed to load env file: %v\n\n%s", err, Usage())
		}
		key = variables[APIKeyVariable]
	}
	if key == "" {
		key = getenv(APIKeyEnv)
	}

	resolved, err := resolveTargets(*feedID, *datastreamID, *targetsFile, key)
	if err != nil {
		return nil, exit.Errorf("Error: %v\n\n%s", err, Usage())
	}

	config := &Config{
		FeedID:          *feedID,
		DatastreamID:    *datastreamID,
		APIKey:          key,
		EnvFile:         *envFile,
		TargetsFile:     *targetsFile,
		Targets:         resolved,
		Host:            strings.TrimSpace(*host),
		Insecure:        *insecure,
		CACertFile:      *caCertFile,
		ConnectTimeout:  *connectTimeout,
		ResponseTimeout: *responseTimeout,
		ReadTimeout:     *readTimeout,
		MaxDepth:        *maxDepth,
		Interval:        *interval,
		Repeat:          *repeat,
		Format:          strings.ToLower(*format),
		LogLevel:        strings.ToLower(*logLevel),
		Debug:           *debug,
	}

	if err := config.Validate(); err != nil {
		return nil, exit.Errorf("Error: %v\n\n%s", err, Usage())
	}

	return config, nil
}

func resolveTargets(feedID, datastreamID, targetsFile, key string) ([]feed.Target, error) {
	switch {
	case targetsFile != "" && (feedID != "" || datastreamID != ""):
		return nil, ErrConflictingSource
	case targetsFile != "":
		f, err := targets.Load(targetsFile)
		if err != nil {
			return nil, err
		}
		return f.Resolve(key), nil
	case datastreamID != "" && feedID == "":
		return nil, ErrDatastreamNoFeed
	case feedID != "":
		return []feed.Target{{FeedID: feedID, DatastreamID: datastreamID, APIKey: key}}, nil
	default:
		return nil, ErrNoTargets
	}
}

// loadVariableFile loads variables from a key=value format file.
// It supports comments (lines starting with #) and empty lines.
func loadVariableFile(filename string) (map[string]string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	variables := make(map[string]string)

	for lineNum, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid format at line %d: %s (expected key=value)", lineNum+1, line)
		}

		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("empty key at line %d: %s", lineNum+1, line)
		}

		variables[key] = strings.TrimSpace(value)
	}

	return variables, nil
}

// Usage returns a usage string for the CLI tool.
func Usage() string {
	return `feedpoll - poll sensor feeds and print their datastreams

Usage: feedpoll [options]

Targets:
  -feed ID                  Feed ID to poll
  -datastream ID            Poll a single datastream of -feed
  -targets FILE             YAML file listing targets (cannot be combined with -feed)
  -api-key KEY              API key (falls back to API_KEY in -env-file, then $PACHUBE_API_KEY)
  -env-file FILE            Path to key=value file providing API_KEY

Connection:
  -host URL                 Base URL of the feed service (default: http://api.pachube.com)
  -connect-timeout DURATION Timeout for connecting and TLS handshake (default: 15s)
  -response-timeout DURATION Timeout waiting for response headers (default: 15s)
  -read-timeout DURATION    Timeout waiting for each body byte (default: 5s)
  -insecure                 Skip TLS certificate verification
  -cacert FILE              Path to CA certificate file for TLS verification

Run loop:
  -interval DURATION        Minimum time between requests (default: 0, no pacing)
  -repeat N                 Additional cycles after the first (negative for infinite)
  -max-depth N              Maximum document nesting depth (default: 64)

Output:
  -format text|json         Record output format (default: text)
  -log-level LEVEL          debug, info, warn or error (default: info)
  -debug                    Shorthand for -log-level debug
  -h, -help                 Show this help message

Examples:
  feedpoll -feed 504 -api-key KEY                      # Poll a feed once
  feedpoll -feed 504 -datastream temp -env-file .env   # Poll one datastream
  feedpoll -targets feeds.yaml -interval 10s -repeat -1 # Poll forever, pacing requests`
}
