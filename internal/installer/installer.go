package installer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
)

const (
	// ServerKey is the name the server is registered under in mcpServers.
	ServerKey = "filesystem"

	serversPath = "mcpServers"
	entryPath   = serversPath + "." + ServerKey

	backupTimeFormat = "20060102_150405.000"
)

// ServerEntry is the mcpServers.filesystem value.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

// BackupInfo is written next to every backup as <backup>.meta.
type BackupInfo struct {
	OriginalPath string    `json:"original_path"`
	BackupPath   string    `json:"backup_path"`
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
}

// Result describes what Install or Uninstall did.
type Result struct {
	ConfigPath string
	BackupPath string
	Document   []byte
	Changed    bool
}

// Installer edits a Claude Desktop config file, touching only the
// mcpServers.filesystem entry.
type Installer struct {
	configPath string
	dryRun     bool
	version    string
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures an Installer.
type Option func(*Installer)

// WithDryRun computes the merged document without writing anything.
func WithDryRun(enabled bool) Option {
	return func(in *Installer) { in.dryRun = enabled }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(in *Installer) { in.logger = logger }
}

// WithVersion sets the version recorded in backup metadata.
func WithVersion(v string) Option {
	return func(in *Installer) { in.version = v }
}

// New creates an installer for the config file at configPath.
func New(configPath string, opts ...Option) *Installer {
	in := &Installer{
		configPath: configPath,
		version:    "1.0.0",
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// ConfigPath returns the Claude Desktop config location for goos.
func ConfigPath(goos, home string, getenv func(string) string) string {
	switch goos {
	case "windows":
		appData := getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "Claude", "claude_desktop_config.json")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json")
	default:
		return filepath.Join(home, ".config", "claude", "claude_desktop_config.json")
	}
}

// DefaultConfigPath returns the config location for the running platform.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return ConfigPath(runtime.GOOS, home, os.Getenv), nil
}

// Load reads the config document. A missing file reads as an empty object.
func (in *Installer) Load() ([]byte, error) {
	data, err := os.ReadFile(in.configPath)
	if os.IsNotExist(err) {
		in.logger.Debug("Config file does not exist, starting empty", zap.String("path", in.configPath))
		return []byte("{}"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []byte("{}"), nil
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("config file %s is not a JSON object", in.configPath)
	}
	return data, nil
}

// Install sets mcpServers.filesystem to entry, keeping every other key.
func (in *Installer) Install(entry ServerEntry) (*Result, error) {
	if entry.Command == "" {
		return nil, fmt.Errorf("server command must not be empty")
	}
	if entry.Args == nil {
		entry.Args = []string{}
	}
	if entry.Env == nil {
		entry.Env = map[string]string{}
	}

	doc, err := in.Load()
	if err != nil {
		return nil, err
	}

	want, err := sonic.ConfigStd.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode server entry: %w", err)
	}
	existing := gjson.GetBytes(doc, entryPath)
	if existing.Exists() && bytes.Equal(pretty.Ugly([]byte(existing.Raw)), want) {
		in.logger.Info("Server entry already up to date", zap.String("path", in.configPath))
		return &Result{ConfigPath: in.configPath, Document: format(doc)}, nil
	}

	if existing.Exists() {
		in.logger.Info("Replacing existing server entry", zap.String("path", in.configPath))
	}
	doc, err = sjson.SetRawBytes(doc, entryPath, want)
	if err != nil {
		return nil, fmt.Errorf("failed to set %s: %w", entryPath, err)
	}
	return in.commit(doc)
}

// Uninstall removes mcpServers.filesystem, and mcpServers itself when it
// ends up empty.
func (in *Installer) Uninstall() (*Result, error) {
	doc, err := in.Load()
	if err != nil {
		return nil, err
	}
	if !gjson.GetBytes(doc, entryPath).Exists() {
		in.logger.Info("Server entry not found, nothing to remove", zap.String("path", in.configPath))
		return &Result{ConfigPath: in.configPath, Document: format(doc)}, nil
	}

	doc, err = sjson.DeleteBytes(doc, entryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to remove %s: %w", entryPath, err)
	}
	if servers := gjson.GetBytes(doc, serversPath); servers.IsObject() && len(servers.Map()) == 0 {
		doc, err = sjson.DeleteBytes(doc, serversPath)
		if err != nil {
			return nil, fmt.Errorf("failed to remove empty %s: %w", serversPath, err)
		}
	}
	return in.commit(doc)
}

func (in *Installer) commit(doc []byte) (*Result, error) {
	res := &Result{
		ConfigPath: in.configPath,
		Document:   format(doc),
		Changed:    true,
	}
	if in.dryRun {
		in.logger.Info("Dry run, not writing config", zap.String("path", in.configPath))
		return res, nil
	}

	backup, err := in.Backup()
	if err != nil {
		return nil, err
	}
	res.BackupPath = backup

	if err := in.write(res.Document); err != nil {
		return nil, err
	}
	in.logger.Info("Config updated", zap.String("path", in.configPath), zap.String("backup", backup))
	return res, nil
}

// Backup copies the current config to <config>.backup_<timestamp> and
// writes its metadata. It returns "" when there is nothing to back up.
func (in *Installer) Backup() (string, error) {
	src, err := os.Open(in.configPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to open config file: %w", err)
	}
	defer src.Close()

	now := in.now()
	backupPath := fmt.Sprintf("%s.backup_%s", in.configPath, now.Format(backupTimeFormat))

	dst, err := os.Create(backupPath)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("failed to copy config file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to close backup file: %w", err)
	}

	meta, err := sonic.ConfigStd.MarshalIndent(BackupInfo{
		OriginalPath: in.configPath,
		BackupPath:   backupPath,
		Timestamp:    now,
		Version:      in.version,
	}, "", "  ")
	if err == nil {
		err = os.WriteFile(backupPath+".meta", meta, 0o644)
	}
	if err != nil {
		in.logger.Warn("Failed to write backup metadata", zap.String("backup", backupPath), zap.Error(err))
	}
	return backupPath, nil
}

// ListBackups returns the backups of the config file, oldest first.
func (in *Installer) ListBackups() ([]string, error) {
	matches, err := filepath.Glob(in.configPath + ".backup_*")
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	var backups []string
	for _, m := range matches {
		if !strings.HasSuffix(m, ".meta") {
			backups = append(backups, m)
		}
	}
	return backups, nil
}

func (in *Installer) write(doc []byte) error {
	if err := os.MkdirAll(filepath.Dir(in.configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp := in.configPath + ".tmp"
	if err := os.WriteFile(tmp, doc, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, in.configPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

func format(doc []byte) []byte {
	return pretty.PrettyOptions(doc, &pretty.Options{Indent: "  ", Width: 80})
}
