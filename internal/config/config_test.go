package config

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jacoelho/feedpoll/internal/feed"
	"github.com/jacoelho/feedpoll/internal/formatter"
	"github.com/jacoelho/feedpoll/internal/stream"
)

// generateTestCertificate creates a self-signed certificate for testing purposes
func generateTestCertificate() ([]byte, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{Organization: []string{"feedpoll test"}},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, err
	}

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}), nil
}

func noEnv(string) string { return "" }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// base returns the configuration produced by defaults for the given targets.
func base(targets ...feed.Target) *Config {
	return &Config{
		Targets:         targets,
		Host:            DefaultHost,
		ConnectTimeout:  DefaultConnectTimeout,
		ResponseTimeout: DefaultResponseTimeout,
		ReadTimeout:     stream.DefaultReadTimeout,
		MaxDepth:        stream.DefaultMaxDepth,
		Format:          formatter.FormatText,
		LogLevel:        "info",
	}
}

func TestParse(t *testing.T) {
	tempDir := t.TempDir()
	envFile := writeFile(t, tempDir, "keys.env", "# feed keys\nAPI_KEY=from-file\n")
	emptyEnvFile := writeFile(t, tempDir, "empty.env", "OTHER=x\n")
	badEnvFile := writeFile(t, tempDir, "bad.env", "no equals sign\n")
	targetsFile := writeFile(t, tempDir, "targets.yaml", `api_key: file-key
targets:
  - name: office
    feed: 504
  - feed: 504
    datastream: temperature
`)
	caCertFile := writeFile(t, tempDir, "ca.pem", "-----BEGIN CERTIFICATE-----\ntest\n-----END CERTIFICATE-----\n")

	tests := []struct {
		name   string
		args   []string
		env    map[string]string
		want   func() *Config
		wantOK bool
	}{
		{
			name:   "feed_with_api_key",
			args:   []string{"feedpoll", "-feed", "504", "-api-key", "k"},
			wantOK: true,
			want: func() *Config {
				c := base(feed.Target{FeedID: "504", APIKey: "k"})
				c.FeedID, c.APIKey = "504", "k"
				return c
			},
		},
		{
			name:   "single_datastream",
			args:   []string{"feedpoll", "-feed", "504", "-datastream", "temp", "-api-key", "k"},
			wantOK: true,
			want: func() *Config {
				c := base(feed.Target{FeedID: "504", DatastreamID: "temp", APIKey: "k"})
				c.FeedID, c.DatastreamID, c.APIKey = "504", "temp", "k"
				return c
			},
		},
		{
			name:   "key_from_env_file",
			args:   []string{"feedpoll", "-feed", "504", "-env-file", envFile},
			env:    map[string]string{APIKeyEnv: "from-env"},
			wantOK: true,
			want: func() *Config {
				c := base(feed.Target{FeedID: "504", APIKey: "from-file"})
				c.FeedID, c.APIKey, c.EnvFile = "504", "from-file", envFile
				return c
			},
		},
		{
			name:   "env_file_without_key_falls_back_to_environment",
			args:   []string{"feedpoll", "-feed", "504", "-env-file", emptyEnvFile},
			env:    map[string]string{APIKeyEnv: "from-env"},
			wantOK: true,
			want: func() *Config {
				c := base(feed.Target{FeedID: "504", APIKey: "from-env"})
				c.FeedID, c.APIKey, c.EnvFile = "504", "from-env", emptyEnvFile
				return c
			},
		},
		{
			name:   "flag_beats_environment",
			args:   []string{"feedpoll", "-feed", "504", "-api-key", "flag"},
			env:    map[string]string{APIKeyEnv: "from-env"},
			wantOK: true,
			want: func() *Config {
				c := base(feed.Target{FeedID: "504", APIKey: "flag"})
				c.FeedID, c.APIKey = "504", "flag"
				return c
			},
		},
		{
			name:   "targets_file",
			args:   []string{"feedpoll", "-targets", targetsFile},
			wantOK: true,
			want: func() *Config {
				c := base(
					feed.Target{Name: "office", FeedID: "504", APIKey: "file-key"},
					feed.Target{FeedID: "504", DatastreamID: "temperature", APIKey: "file-key"},
				)
				c.TargetsFile = targetsFile
				return c
			},
		},
		{
			name: "all_options",
			args: []string{
				"feedpoll", "-feed", "1", "-api-key", "k",
				"-host", "https://feeds.example.com",
				"-connect-timeout", "2s", "-response-timeout", "3s", "-read-timeout", "250ms",
				"-interval", "10s", "-repeat", "-1", "-format", "JSON", "-log-level", "warn",
				"-debug", "-insecure", "-cacert", caCertFile, "-max-depth", "8",
			},
			wantOK: true,
			want: func() *Config {
				return &Config{
					FeedID:          "1",
					APIKey:          "k",
					Targets:         []feed.Target{{FeedID: "1", APIKey: "k"}},
					Host:            "https://feeds.example.com",
					Insecure:        true,
					CACertFile:      caCertFile,
					ConnectTimeout:  2 * time.Second,
					ResponseTimeout: 3 * time.Second,
					ReadTimeout:     250 * time.Millisecond,
					MaxDepth:        8,
					Interval:        10 * time.Second,
					Repeat:          -1,
					Format:          formatter.FormatJSON,
					LogLevel:        "warn",
					Debug:           true,
				}
			},
		},
		{name: "no_arguments", args: []string{}},
		{name: "no_targets", args: []string{"feedpoll", "-api-key", "k"}},
		{name: "missing_api_key", args: []string{"feedpoll", "-feed", "504"}},
		{name: "datastream_without_feed", args: []string{"feedpoll", "-datastream", "temp", "-api-key", "k"}},
		{name: "feed_and_targets", args: []string{"feedpoll", "-feed", "1", "-targets", targetsFile, "-api-key", "k"}},
		{name: "missing_targets_file", args: []string{"feedpoll", "-targets", "/nonexistent/targets.yaml"}},
		{name: "missing_env_file", args: []string{"feedpoll", "-feed", "1", "-env-file", "/nonexistent/.env"}},
		{name: "invalid_env_file", args: []string{"feedpoll", "-feed", "1", "-env-file", badEnvFile}},
		{name: "invalid_format", args: []string{"feedpoll", "-feed", "1", "-api-key", "k", "-format", "xml"}},
		{name: "invalid_log_level", args: []string{"feedpoll", "-feed", "1", "-api-key", "k", "-log-level", "trace"}},
		{name: "invalid_host", args: []string{"feedpoll", "-feed", "1", "-api-key", "k", "-host", "ftp://x"}},
		{name: "zero_read_timeout", args: []string{"feedpoll", "-feed", "1", "-api-key", "k", "-read-timeout", "0s"}},
		{name: "negative_interval", args: []string{"feedpoll", "-feed", "1", "-api-key", "k", "-interval", "-1s"}},
		{name: "zero_max_depth", args: []string{"feedpoll", "-feed", "1", "-api-key", "k", "-max-depth", "0"}},
		{name: "missing_cacert", args: []string{"feedpoll", "-feed", "1", "-api-key", "k", "-cacert", "/nonexistent/ca.pem"}},
		{name: "invalid_repeat_format", args: []string{"feedpoll", "-feed", "1", "-api-key", "k", "-repeat", "x"}},
		{name: "unexpected_positional", args: []string{"feedpoll", "-feed", "1", "-api-key", "k", "extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(key string) string { return tt.env[key] }
			cfg, exitResult := parse(tt.args, getenv)

			if !tt.wantOK {
				if exitResult == nil {
					t.Fatalf("parse() expected error but got config %+v", cfg)
				}
				if exitResult.ExitCode != 1 {
					t.Errorf("parse() error should have exit code 1, got %d", exitResult.ExitCode)
				}
				if !strings.Contains(exitResult.Message, "Usage:") {
					t.Errorf("parse() error message should include usage, got %q", exitResult.Message)
				}
				return
			}

			if exitResult != nil {
				t.Fatalf("parse() unexpected error: exit code %d, message: %s", exitResult.ExitCode, exitResult.Message)
			}

			if want := tt.want(); !reflect.DeepEqual(cfg, want) {
				t.Errorf("parse() = %+v, want %+v", cfg, want)
			}
		})
	}
}

func TestParseHelpFlag(t *testing.T) {
	for _, flag := range []string{"-help", "--help", "-h"} {
		_, exitResult := parse([]string{"feedpoll", flag}, noEnv)
		if exitResult == nil {
			t.Fatalf("expected exit result for %s", flag)
		}
		if exitResult.ExitCode != 0 {
			t.Errorf("expected exit code 0 for %s, got %d", flag, exitResult.ExitCode)
		}
	}
}

func TestLoadVariableFile(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    map[string]string
		wantErr bool
	}{
		{
			name:    "plain",
			content: "API_KEY=abc\nOTHER=1",
			want:    map[string]string{"API_KEY": "abc", "OTHER": "1"},
		},
		{
			name:    "comments_blank_lines_and_spaces",
			content: "# keys\n\n  API_KEY = abc \n# API_KEY=old\n",
			want:    map[string]string{"API_KEY": "abc"},
		},
		{
			name:    "value_with_equals",
			content: "API_KEY=a=b",
			want:    map[string]string{"API_KEY": "a=b"},
		},
		{
			name:    "missing_equals",
			content: "API_KEY",
			wantErr: true,
		},
		{
			name:    "empty_key",
			content: "=abc",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tempDir, tt.name+".env", tt.content)
			got, err := loadVariableFile(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadVariableFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("loadVariableFile() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := loadVariableFile("/nonexistent/file.env"); err == nil {
		t.Error("loadVariableFile() expected error for missing file")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return base(feed.Target{FeedID: "1", APIKey: "k"})
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no_targets", mutate: func(c *Config) { c.Targets = nil }, want: ErrNoTargets},
		{name: "target_without_key", mutate: func(c *Config) { c.Targets[0].APIKey = "" }, want: feed.ErrInvalidTarget},
		{name: "host_without_scheme", mutate: func(c *Config) { c.Host = "api.pachube.com" }, want: ErrInvalidHost},
		{name: "zero_connect_timeout", mutate: func(c *Config) { c.ConnectTimeout = 0 }, want: ErrInvalidTimeout},
		{name: "negative_interval", mutate: func(c *Config) { c.Interval = -time.Second }, want: ErrInvalidInterval},
		{name: "zero_max_depth", mutate: func(c *Config) { c.MaxDepth = 0 }, want: ErrInvalidMaxDepth},
		{name: "bad_format", mutate: func(c *Config) { c.Format = "csv" }, want: ErrInvalidFormat},
		{name: "bad_log_level", mutate: func(c *Config) { c.LogLevel = "loud" }, want: ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConfig_TLSConfig(t *testing.T) {
	tempDir := t.TempDir()

	validCertContent, err := generateTestCertificate()
	if err != nil {
		t.Fatalf("Failed to generate test certificate: %v", err)
	}
	validCACert := writeFile(t, tempDir, "ca.pem", string(validCertContent))
	invalidCACert := writeFile(t, tempDir, "invalid_ca.pem", "-----BEGIN CERTIFICATE-----\ninvalid\n-----END CERTIFICATE-----")

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		checkFn func(*testing.T, *tls.Config)
	}{
		{
			name:   "default_config",
			config: &Config{},
			checkFn: func(t *testing.T, tlsConfig *tls.Config) {
				if tlsConfig.InsecureSkipVerify {
					t.Error("Expected InsecureSkipVerify to be false")
				}
				if tlsConfig.RootCAs != nil {
					t.Error("Expected RootCAs to be nil")
				}
			},
		},
		{
			name:   "insecure_config",
			config: &Config{Insecure: true},
			checkFn: func(t *testing.T, tlsConfig *tls.Config) {
				if !tlsConfig.InsecureSkipVerify {
					t.Error("Expected InsecureSkipVerify to be true")
				}
			},
		},
		{
			name:   "with_valid_ca_cert",
			config: &Config{CACertFile: validCACert},
			checkFn: func(t *testing.T, tlsConfig *tls.Config) {
				if tlsConfig.RootCAs == nil {
					t.Error("Expected RootCAs to be set")
				}
			},
		},
		{
			name:    "with_nonexistent_ca_cert",
			config:  &Config{CACertFile: "/nonexistent/ca.pem"},
			wantErr: true,
		},
		{
			name:    "with_invalid_ca_cert",
			config:  &Config{CACertFile: invalidCACert},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tlsConfig, err := tt.config.TLSConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.TLSConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.checkFn != nil {
				tt.checkFn(t, tlsConfig)
			}
		})
	}
}

func TestConfig_HTTPClient(t *testing.T) {
	c := &Config{
		Insecure:        true,
		ConnectTimeout:  2 * time.Second,
		ResponseTimeout: 3 * time.Second,
	}

	client, err := c.HTTPClient()
	if err != nil {
		t.Fatalf("HTTPClient() unexpected error: %v", err)
	}
	if client.Timeout != 0 {
		t.Errorf("expected no whole-request timeout, got %v", client.Timeout)
	}

	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if !transport.TLSClientConfig.InsecureSkipVerify {
		t.Error("expected InsecureSkipVerify to be true")
	}
	if transport.ResponseHeaderTimeout != 3*time.Second {
		t.Errorf("ResponseHeaderTimeout = %v, want 3s", transport.ResponseHeaderTimeout)
	}

	c.CACertFile = "/nonexistent/ca.pem"
	if _, err := c.HTTPClient(); err == nil {
		t.Error("HTTPClient() expected error for missing CA file")
	}
}

func TestConfig_ParserOptions(t *testing.T) {
	c := &Config{ReadTimeout: time.Second, MaxDepth: 10}

	got := c.ParserOptions(feed.Target{FeedID: "1", DatastreamID: "temp"})
	want := stream.Options{RootIsRecord: true, ReadTimeout: time.Second, MaxDepth: 10}
	if got != want {
		t.Errorf("ParserOptions() = %+v, want %+v", got, want)
	}

	if c.ParserOptions(feed.Target{FeedID: "1"}).RootIsRecord {
		t.Error("ParserOptions() whole feed should not be a root record")
	}
}

func TestConfig_EffectiveLogLevel(t *testing.T) {
	c := &Config{LogLevel: "warn"}
	if got := c.EffectiveLogLevel(); got != "warn" {
		t.Errorf("EffectiveLogLevel() = %q, want warn", got)
	}
	c.Debug = true
	if got := c.EffectiveLogLevel(); got != "debug" {
		t.Errorf("EffectiveLogLevel() with debug = %q, want debug", got)
	}
}

func TestUsage(t *testing.T) {
	usage := Usage()

	expectedSections := []string{
		"Usage: feedpoll [options]",
		"-feed",
		"-datastream",
		"-targets",
		"-read-timeout",
		"-interval",
		"-repeat",
		"-format",
		"Examples:",
	}

	for _, section := range expectedSections {
		if !strings.Contains(usage, section) {
			t.Errorf("Usage() missing expected section: %s", section)
		}
	}
}
