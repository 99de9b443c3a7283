package config

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Content formats for fetched messages
const (
	ContentFormatFull    = "full"
	ContentFormatSummary = "summary"
)

// Auth mechanisms
const (
	AuthAuto  = "auto"
	AuthPlain = "plain"
	AuthLogin = "login"
)

// Config holds the application configuration
type Config struct {
	Mailbox MailboxConfig

	SearchResultLimit int
	ContentFormat     string
	SummaryLength     int

	LogLevel  string
	LogFormat string
}

// MailboxConfig holds the connection settings for the IMAP account
type MailboxConfig struct {
	Host     string
	Port     int
	Secure   bool
	StartTLS bool // only consulted when Secure is false
	Username string
	Password string
	TLS      TLSOptions

	AuthMechanism  string
	DialTimeout    time.Duration
	CommandTimeout time.Duration
}

// TLSOptions mirrors the tlsOptions object accepted in IMAP_TLS_OPTIONS
type TLSOptions struct {
	RejectUnauthorized *bool  `json:"rejectUnauthorized,omitempty"`
	ServerName         string `json:"servername,omitempty"`
	MinVersion         string `json:"minVersion,omitempty"`
}

// Addr returns host:port
func (m *MailboxConfig) Addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// TLSConfig builds the crypto/tls configuration for the connection
func (m *MailboxConfig) TLSConfig() *tls.Config {
	cfg := &tls.Config{
		ServerName: m.Host,
		MinVersion: tls.VersionTLS12,
	}
	if m.TLS.ServerName != "" {
		cfg.ServerName = m.TLS.ServerName
	}
	if m.TLS.RejectUnauthorized != nil && !*m.TLS.RejectUnauthorized {
		cfg.InsecureSkipVerify = true //nolint:gosec
	}
	switch m.TLS.MinVersion {
	case "TLSv1":
		cfg.MinVersion = tls.VersionTLS10
	case "TLSv1.1":
		cfg.MinVersion = tls.VersionTLS11
	case "TLSv1.3":
		cfg.MinVersion = tls.VersionTLS13
	}
	return cfg
}

// String never includes the password
func (m MailboxConfig) String() string {
	return fmt.Sprintf("%s@%s", m.Username, m.Addr())
}

// LoadConfig loads configuration from environment variables and, when
// configFile is not empty, from that file. Environment wins over the file.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFile == "" {
		configFile = v.GetString("config_file")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		Mailbox: MailboxConfig{
			Host:           v.GetString("imap_host"),
			Port:           v.GetInt("imap_port"),
			Secure:         !strings.EqualFold(v.GetString("imap_secure"), "false"),
			StartTLS:       v.GetBool("imap_starttls"),
			Username:       firstNonEmpty(v.GetString("email_user"), v.GetString("imap_username")),
			Password:       firstNonEmpty(v.GetString("email_password"), v.GetString("imap_password")),
			AuthMechanism:  strings.ToLower(v.GetString("imap_auth_mechanism")),
			DialTimeout:    v.GetDuration("imap_dial_timeout"),
			CommandTimeout: v.GetDuration("imap_command_timeout"),
		},
		SearchResultLimit: v.GetInt("search_result_limit"),
		ContentFormat:     strings.ToLower(v.GetString("email_content_format")),
		SummaryLength:     v.GetInt("email_summary_length"),
		LogLevel:          v.GetString("log_level"),
		LogFormat:         strings.ToLower(v.GetString("log_format")),
	}

	if raw := strings.TrimSpace(v.GetString("imap_tls_options")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg.Mailbox.TLS); err != nil {
			return nil, fmt.Errorf("invalid IMAP_TLS_OPTIONS: %w", err)
		}
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("imap_port", 993)
	v.SetDefault("imap_secure", "true")
	v.SetDefault("imap_starttls", false)
	v.SetDefault("imap_auth_mechanism", AuthAuto)
	v.SetDefault("imap_dial_timeout", 30*time.Second)
	v.SetDefault("imap_command_timeout", time.Duration(0))
	v.SetDefault("search_result_limit", 100)
	v.SetDefault("email_content_format", ContentFormatFull)
	v.SetDefault("email_summary_length", 500)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var missing []string
	if c.Mailbox.Host == "" {
		missing = append(missing, "IMAP_HOST")
	}
	if c.Mailbox.Username == "" {
		missing = append(missing, "EMAIL_USER")
	}
	if c.Mailbox.Password == "" {
		missing = append(missing, "EMAIL_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required IMAP configuration: %s", strings.Join(missing, ", "))
	}

	if c.Mailbox.Port < 1 || c.Mailbox.Port > 65535 {
		return fmt.Errorf("invalid IMAP_PORT: %d", c.Mailbox.Port)
	}

	switch c.Mailbox.AuthMechanism {
	case AuthAuto, AuthPlain, AuthLogin:
	default:
		return fmt.Errorf("invalid IMAP_AUTH_MECHANISM: %q", c.Mailbox.AuthMechanism)
	}

	if c.SearchResultLimit < 1 || c.SearchResultLimit > 1000 {
		return fmt.Errorf("SEARCH_RESULT_LIMIT must be between 1 and 1000")
	}

	switch c.ContentFormat {
	case ContentFormatFull, ContentFormatSummary:
	default:
		return fmt.Errorf("invalid EMAIL_CONTENT_FORMAT: %q", c.ContentFormat)
	}

	if c.SummaryLength < 1 {
		return fmt.Errorf("EMAIL_SUMMARY_LENGTH must be positive")
	}

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
