// Package config loads the YAML configuration of the backend and the desktop shell.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Store kinds
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
	StoreRemote = "remote"
)

// Transcriber kinds
const (
	TranscriberGroq   = "groq"
	TranscriberRemote = "remote"
)

// ServerSection is the HTTP listener configuration
type ServerSection struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	APIKey      string `yaml:"api_key"`
	BodyLimitMB int    `yaml:"body_limit_mb"`
}

// Addr returns host:port
func (s ServerSection) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MongoSection configures the document store
type MongoSection struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// GroqSection configures the hosted speech-to-text API
type GroqSection struct {
	APIKey         string `yaml:"api_key"`
	Endpoint       string `yaml:"endpoint"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	EnableHTTP2    bool   `yaml:"enable_http2"`
}

// DriveSection configures the optional Google Drive archive
type DriveSection struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	FolderName      string `yaml:"folder_name"`
}

// ArchiveSection configures where inserted records are exported.
// Empty values disable the corresponding archiver.
type ArchiveSection struct {
	LocalDir string       `yaml:"local_dir"`
	Drive    DriveSection `yaml:"drive"`
}

// RemoteSection points the desktop shell at a backend
type RemoteSection struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// StoreSection selects the desktop history store
type StoreSection struct {
	Kind       string        `yaml:"kind"`
	SQLitePath string        `yaml:"sqlite_path"`
	Mongo      MongoSection  `yaml:"mongo"`
	Remote     RemoteSection `yaml:"remote"`
}

// TranscriberSection selects the desktop transcription client
type TranscriberSection struct {
	Kind string `yaml:"kind"`
}

// CaptureSection configures microphone capture
type CaptureSection struct {
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
	TempDir    string `yaml:"temp_dir"`
	FFmpegPath string `yaml:"ffmpeg_path"`
}

// WorkflowSection holds the display windows of the recording workflow
type WorkflowSection struct {
	ErrorDisplaySeconds   int `yaml:"error_display_seconds"`
	SuccessDisplaySeconds int `yaml:"success_display_seconds"`
}

// RedisSection configures the cross-process toggle channel
type RedisSection struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// HotkeySection configures toggle delivery
type HotkeySection struct {
	Redis RedisSection `yaml:"redis"`
}

// CleanupSection configures the temp file sweeper
type CleanupSection struct {
	IntervalMinutes int `yaml:"interval_minutes"`
	MaxAgeHours     int `yaml:"max_age_hours"`
}

// NotifySection toggles success feedback
type NotifySection struct {
	Beep    bool `yaml:"beep"`
	Desktop bool `yaml:"desktop"`
}

// ServerConfig is the backend configuration
type ServerConfig struct {
	Server  ServerSection  `yaml:"server"`
	Mongo   MongoSection   `yaml:"mongo"`
	Groq    GroqSection    `yaml:"groq"`
	Archive ArchiveSection `yaml:"archive"`
}

// DesktopConfig is the desktop shell configuration
type DesktopConfig struct {
	Server      ServerSection      `yaml:"server"`
	Store       StoreSection       `yaml:"store"`
	Transcriber TranscriberSection `yaml:"transcriber"`
	Groq        GroqSection        `yaml:"groq"`
	Capture     CaptureSection     `yaml:"capture"`
	Workflow    WorkflowSection    `yaml:"workflow"`
	Hotkey      HotkeySection      `yaml:"hotkey"`
	Cleanup     CleanupSection     `yaml:"cleanup"`
	Notify      NotifySection      `yaml:"notify"`
	Archive     ArchiveSection     `yaml:"archive"`
}

func defaultGroq() GroqSection {
	return GroqSection{
		Endpoint:       "https://api.groq.com/openai/v1/audio/transcriptions",
		Model:          "whisper-large-v3-turbo",
		TimeoutSeconds: 60,
		EnableHTTP2:    true,
	}
}

func defaultMongo() MongoSection {
	return MongoSection{
		URI:        "mongodb://localhost:27017",
		Database:   "voice_clipboard",
		Collection: "transcriptions",
	}
}

// DefaultServerConfig returns the backend defaults
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{Host: "0.0.0.0", Port: 3000, BodyLimitMB: 25},
		Mongo:  defaultMongo(),
		Groq:   defaultGroq(),
	}
}

// DefaultDesktopConfig returns the desktop defaults
func DefaultDesktopConfig() *DesktopConfig {
	return &DesktopConfig{
		Server:      ServerSection{Host: "127.0.0.1", Port: 3002, BodyLimitMB: 25},
		Store:       StoreSection{Kind: StoreSQLite, SQLitePath: "voice-clipboard.db", Mongo: defaultMongo()},
		Transcriber: TranscriberSection{Kind: TranscriberGroq},
		Groq:        defaultGroq(),
		Capture:     CaptureSection{SampleRate: 16000, Channels: 1, TempDir: os.TempDir(), FFmpegPath: "ffmpeg"},
		Workflow:    WorkflowSection{ErrorDisplaySeconds: 3, SuccessDisplaySeconds: 3},
		Hotkey:      HotkeySection{Redis: RedisSection{Channel: "voiceclip:toggle"}},
		Cleanup:     CleanupSection{IntervalMinutes: 30, MaxAgeHours: 1},
		Notify:      NotifySection{Beep: true},
	}
}

// LoadServer reads a backend config. A missing file yields the defaults.
func LoadServer(path string) (*ServerConfig, error) {
	cfg := DefaultServerConfig()
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}

	overrideString(&cfg.Server.APIKey, "API_KEY")
	overrideString(&cfg.Groq.APIKey, "GROQ_API_KEY")
	overrideString(&cfg.Mongo.URI, "MONGODB_URI")
	overrideString(&cfg.Mongo.Database, "DB_NAME")
	if err := overrideInt(&cfg.Server.Port, "PORT"); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

// LoadDesktop reads a desktop config. A missing file yields the defaults.
func LoadDesktop(path string) (*DesktopConfig, error) {
	cfg := DefaultDesktopConfig()
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}

	overrideString(&cfg.Groq.APIKey, "GROQ_API_KEY")
	overrideString(&cfg.Store.Mongo.URI, "MONGODB_URI")
	overrideString(&cfg.Store.Mongo.Database, "DB_NAME")
	overrideString(&cfg.Store.Remote.APIKey, "API_KEY")

	return cfg, cfg.Validate()
}

// Validate rejects configurations the backend cannot start with
func (c *ServerConfig) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive, got %d", c.Server.Port)
	}
	if c.Server.BodyLimitMB <= 0 {
		return fmt.Errorf("server.body_limit_mb must be positive, got %d", c.Server.BodyLimitMB)
	}
	if c.Mongo.URI == "" {
		return errors.New("mongo.uri is required")
	}
	return nil
}

// Validate rejects configurations the desktop shell cannot start with
func (c *DesktopConfig) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive, got %d", c.Server.Port)
	}

	switch c.Store.Kind {
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path is required for the sqlite store")
		}
	case StoreMongo:
		if c.Store.Mongo.URI == "" {
			return errors.New("store.mongo.uri is required for the mongo store")
		}
	case StoreRemote:
		if c.Store.Remote.BaseURL == "" {
			return errors.New("store.remote.base_url is required for the remote store")
		}
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}

	switch c.Transcriber.Kind {
	case TranscriberGroq:
	case TranscriberRemote:
		if c.Store.Remote.BaseURL == "" {
			return errors.New("store.remote.base_url is required for the remote transcriber")
		}
	default:
		return fmt.Errorf("unknown transcriber kind %q", c.Transcriber.Kind)
	}

	if c.Capture.SampleRate <= 0 || c.Capture.Channels <= 0 {
		return errors.New("capture.sample_rate and capture.channels must be positive")
	}
	if c.Workflow.ErrorDisplaySeconds < 0 || c.Workflow.SuccessDisplaySeconds < 0 {
		return errors.New("workflow display windows must not be negative")
	}
	return nil
}

func decodeFile(path string, out interface{}) error {
	if path == "" {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func overrideString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, env string) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", env, err)
	}
	*dst = n
	return nil
}
