package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"remote-file-manager/internal/domain"
)

// PasswordEnv переопределяет remote.password, чтобы не хранить пароль в файле.
const PasswordEnv = "REMOTE_PASSWORD"

type ServerConfig struct {
	Port          int   `yaml:"port"`
	MaxUploadSize int64 `yaml:"max_upload_size"`
	// CORSOrigin значение Access-Control-Allow-Origin, по умолчанию "*".
	CORSOrigin string `yaml:"cors_origin"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type RemoteConfig struct {
	Protocol       string        `yaml:"protocol"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	Root           string        `yaml:"root"`
	Timeout        time.Duration `yaml:"timeout"`
	ExplicitTLS    bool          `yaml:"explicit_tls"`
	KnownHostsFile string        `yaml:"known_hosts_file"`
	// LocalPath каталог на диске для протокола local.
	LocalPath string `yaml:"local_path"`
}

type SessionsConfig struct {
	PoolSize          int           `yaml:"pool_size"`
	MaxDedicated      int           `yaml:"max_dedicated"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	ExclusiveFailFast bool          `yaml:"exclusive_fail_fast"`
}

type ProgressConfig struct {
	EvictionDelay time.Duration `yaml:"eviction_delay"`
}

type TransferConfig struct {
	SpoolDir string `yaml:"spool_dir"`
}

type ClipboardConfig struct {
	Backend       string        `yaml:"backend"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

type JournalConfig struct {
	Path string `yaml:"path"`
}

type FileConfig struct {
	MaxPathLength  int    `yaml:"max_path_length"`
	ValidNameRegex string `yaml:"valid_name_regex"`
}

type RoutesConfig struct {
	List             string `yaml:"list"`
	Download         string `yaml:"download"`
	DownloadProgress string `yaml:"download_progress"`
	Upload           string `yaml:"upload"`
	UploadProgress   string `yaml:"upload_progress"`
	Delete           string `yaml:"delete"`
	DeleteFile       string `yaml:"delete_file"`
	DeletePath       string `yaml:"delete_path"`
	Rename           string `yaml:"rename"`
	CreateFolder     string `yaml:"create_folder"`
	Copy             string `yaml:"copy"`
	CopiedItems      string `yaml:"copied_items"`
	Paste            string `yaml:"paste"`
	Move             string `yaml:"move"`
	PendingMoves     string `yaml:"pending_moves"`
	ZipDownload      string `yaml:"zip_download"`
	ZipProgress      string `yaml:"zip_progress"`
	Metrics          string `yaml:"metrics"`
	Health           string `yaml:"health"`
}

type Messages struct {
	CannotList     string `yaml:"cannot_list"`
	CannotDownload string `yaml:"cannot_download"`
	CannotUpload   string `yaml:"cannot_upload"`
	CannotDelete   string `yaml:"cannot_delete"`
	CannotRename   string `yaml:"cannot_rename"`
	CannotCreate   string `yaml:"cannot_create"`
	CannotCopy     string `yaml:"cannot_copy"`
	CannotPaste    string `yaml:"cannot_paste"`
	CannotMove     string `yaml:"cannot_move"`
	PartialMove    string `yaml:"partial_move"`
	CannotZip      string `yaml:"cannot_zip"`
	BadRequest     string `yaml:"bad_request"`
	NotFound       string `yaml:"not_found"`
	Conflict       string `yaml:"conflict"`
	Busy           string `yaml:"busy"`
	InternalError  string `yaml:"internal_error"`

	Uploaded      string `yaml:"uploaded"`
	FileDeleted   string `yaml:"file_deleted"`
	PathDeleted   string `yaml:"path_deleted"`
	Renamed       string `yaml:"renamed"`
	FolderCreated string `yaml:"folder_created"`
	Copied        string `yaml:"copied"`
	Pasted        string `yaml:"pasted"`
	Moved         string `yaml:"moved"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Remote    RemoteConfig    `yaml:"remote"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Progress  ProgressConfig  `yaml:"progress"`
	Transfer  TransferConfig  `yaml:"transfer"`
	Clipboard ClipboardConfig `yaml:"clipboard"`
	Journal   JournalConfig   `yaml:"journal"`
	File      FileConfig      `yaml:"file"`
	Routes    RoutesConfig    `yaml:"routes"`
	Messages  Messages        `yaml:"messages"`
}

func LoadConfig(filename string) *Config {
	cfg, err := LoadConfigWithError(filename)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func LoadConfigWithError(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse разбирает YAML, подставляет значения по умолчанию и валидирует результат.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if unmarshalErr := yaml.Unmarshal(data, &cfg); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	if password := os.Getenv(PasswordEnv); password != "" {
		cfg.Remote.Password = password
	}

	applyDefaults(&cfg)

	// локальные пути делаю абсолютными, чтобы не зависеть от рабочего каталога.
	paths := map[string]*string{
		"transfer spool dir": &cfg.Transfer.SpoolDir,
		"journal path":       &cfg.Journal.Path,
	}
	if cfg.Remote.Protocol == domain.ProtocolLocal {
		paths["remote local path"] = &cfg.Remote.LocalPath
	}

	for name, path := range paths {
		if *path == "" {
			continue
		}
		absPath, absErr := filepath.Abs(*path)
		if absErr != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", name, absErr)
		}
		*path = absPath
	}

	if validationErr := validateConfig(&cfg); validationErr != nil {
		return nil, validationErr
	}

	return &cfg, nil
}

type validationError struct {
	field string
	msg   string
}

func (e validationError) Error() string {
	return fmt.Sprintf("%s: %s", e.field, e.msg)
}

func validateConfig(cfg *Config) error {
	type validator func() error

	validators := []validator{
		func() error { return validatePort("server.port", cfg.Server.Port) },
		func() error { return validatePositiveInt64("server.max_upload_size", cfg.Server.MaxUploadSize) },
		func() error {
			return validateOneOf("remote.protocol", cfg.Remote.Protocol,
				domain.ProtocolFTP, domain.ProtocolSFTP, domain.ProtocolLocal)
		},
		func() error { return validateRemoteEndpoint(&cfg.Remote) },
		func() error { return validateAbsoluteRoot("remote.root", cfg.Remote.Root) },
		func() error { return validatePositiveInt("sessions.pool_size", cfg.Sessions.PoolSize) },
		func() error { return validateNonNegativeInt("sessions.max_dedicated", cfg.Sessions.MaxDedicated) },
		func() error {
			return validatePositiveDuration("sessions.reconnect_interval", cfg.Sessions.ReconnectInterval)
		},
		func() error { return validateOneOf("clipboard.backend", cfg.Clipboard.Backend, "memory", "redis") },
		func() error {
			if cfg.Clipboard.Backend != "redis" {
				return nil
			}
			return validateRequiredString("clipboard.redis_addr", cfg.Clipboard.RedisAddr)
		},
		func() error { return validateRequiredString("journal.path", cfg.Journal.Path) },
		func() error { return validateRequiredString("file.valid_name_regex", cfg.File.ValidNameRegex) },
		func() error { return validatePositiveInt("file.max_path_length", cfg.File.MaxPathLength) },
		func() error { return validateOneOf("log.format", cfg.Log.Format, "text", "json") },
	}

	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}

	return nil
}

func validateRemoteEndpoint(remote *RemoteConfig) error {
	if remote.Protocol == domain.ProtocolLocal {
		return validateRequiredString("remote.local_path", remote.LocalPath)
	}
	if err := validateRequiredString("remote.host", remote.Host); err != nil {
		return err
	}
	if err := validatePort("remote.port", remote.Port); err != nil {
		return err
	}
	return validateRequiredString("remote.user", remote.User)
}

func validateRequiredString(field, value string) error {
	if value == "" {
		return validationError{field: field, msg: "is required"}
	}
	return nil
}

func validatePositiveInt(field string, value int) error {
	if value <= 0 {
		return validationError{field: field, msg: "must be greater than 0"}
	}
	return nil
}

func validateNonNegativeInt(field string, value int) error {
	if value < 0 {
		return validationError{field: field, msg: "must not be negative"}
	}
	return nil
}

func validatePositiveInt64(field string, value int64) error {
	if value <= 0 {
		return validationError{field: field, msg: "must be greater than 0"}
	}
	return nil
}

func validatePositiveDuration(field string, value time.Duration) error {
	if value <= 0 {
		return validationError{field: field, msg: "must be a positive duration"}
	}
	return nil
}

func validateOneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return validationError{
		field: field,
		msg:   fmt.Sprintf("must be one of %s, got %q", strings.Join(allowed, ", "), value),
	}
}

func validateAbsoluteRoot(field, value string) error {
	if !strings.HasPrefix(value, domain.PathRoot) {
		return validationError{field: field, msg: fmt.Sprintf("must be an absolute path, got %q", value)}
	}
	if strings.Contains(value, domain.PathTraversalPrefix) {
		return validationError{field: field, msg: "must not contain .."}
	}
	return nil
}

func validatePort(field string, port int) error {
	if port <= 0 || port > 65535 {
		return validationError{
			field: field,
			msg:   fmt.Sprintf("must be between 1 and 65535, got %d", port),
		}
	}
	return nil
}
