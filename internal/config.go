package internal

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Config holds application settings
type Config struct {
	// User configurable settings
	UploaderUID    int64
	ReportKeyword  string
	SummaryModel   string
	SummaryTimeout time.Duration
	WatchInterval  time.Duration
	MineAttempts   int
	MineWait       time.Duration
	Downloader     string
	Encoder        string
	Verbose        bool
	Quiet          bool
	MCPLogEnabled  bool
	Prompt         string
	Cookies        string
	OpenAIAPIKey   string
	ASR            ASRCredentials

	// Fixed XDG paths (not configurable)
	ConfigDir  string
	DataDir    string
	CacheDir   string
	ReportsDir string
	IndexPath  string
	TempDir    string
}

//go:embed config.toml prompt.txt
var defaultFS embed.FS

// ensureDefaultFile checks if a file exists in the specified directory
// and creates it from the embedded default if it doesn't exist
func ensureDefaultFile(configDir, embedFilename, description string) error {
	filePath := filepath.Join(configDir, embedFilename)

	if FileExists(filePath) {
		return nil
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultContent, err := defaultFS.ReadFile(embedFilename)
	if err != nil {
		return fmt.Errorf("reading embedded default %s: %w", description, err)
	}

	if err := os.WriteFile(filePath, defaultContent, 0644); err != nil {
		return fmt.Errorf("writing default %s: %w", description, err)
	}

	fmt.Printf("Created default %s at %s\n", description, filePath)
	return nil
}

// EnsureDefaultConfig checks if a config file exists in the XDG config directory
// and creates it from the embedded default if it doesn't exist
func EnsureDefaultConfig(configDir string) error {
	return ensureDefaultFile(configDir, "config.toml", "configuration")
}

// EnsureDefaultPrompt checks if a prompt.txt file exists in the XDG config directory
// and creates it from the embedded default if it doesn't exist
func EnsureDefaultPrompt(configDir string) error {
	return ensureDefaultFile(configDir, "prompt.txt", "prompt template")
}

// InitConfig initializes Viper and loads configuration
func InitConfig() *Config {
	// XDG standard directories
	configDir := filepath.Join(xdg.ConfigHome, "bilidigest")
	dataDir := filepath.Join(xdg.DataHome, "bilidigest")
	cacheDir := filepath.Join(xdg.CacheHome, "bilidigest")

	reportsDir := filepath.Join(dataDir, "reports")
	tempDir := filepath.Join(cacheDir, "media")

	// Initialize viper
	v := viper.New()

	// Set default values for configurable settings
	v.SetDefault("uploader_uid", 0)
	v.SetDefault("report_keyword", "AI早报")
	v.SetDefault("summary_model", "gpt-4o-mini")
	v.SetDefault("summary_timeout", 2*time.Minute)
	v.SetDefault("watch_interval", 10*time.Minute)
	v.SetDefault("mine_attempts", defaultMineAttempts)
	v.SetDefault("mine_wait", defaultMineWait)
	v.SetDefault("downloader", "you-get")
	v.SetDefault("encoder", "ffmpeg")
	v.SetDefault("verbose", false)
	v.SetDefault("mcp_log", false)
	v.SetDefault("prompt", "") // if empty will use default prompt template
	v.SetDefault("cookies", "")

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("BILIDIGEST")
	v.AutomaticEnv()

	// Keys that live in well-known env vars outside our prefix
	_ = v.BindEnv("openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("cookies", "BILI_COOKIES")
	_ = v.BindEnv("asr_app_id", "TX_APPID")
	_ = v.BindEnv("asr_secret_id", "TX_SECRET_ID")
	_ = v.BindEnv("asr_secret_key", "TX_SECRET_KEY")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: Error reading config file: %v\n", err)
		}
	}

	config := &Config{
		// User configurable settings
		UploaderUID:    v.GetInt64("uploader_uid"),
		ReportKeyword:  v.GetString("report_keyword"),
		SummaryModel:   v.GetString("summary_model"),
		SummaryTimeout: v.GetDuration("summary_timeout"),
		WatchInterval:  v.GetDuration("watch_interval"),
		MineAttempts:   v.GetInt("mine_attempts"),
		MineWait:       v.GetDuration("mine_wait"),
		Downloader:     v.GetString("downloader"),
		Encoder:        v.GetString("encoder"),
		Verbose:        v.GetBool("verbose"),
		MCPLogEnabled:  v.GetBool("mcp_log"),
		Prompt:         v.GetString("prompt"),
		Cookies:        v.GetString("cookies"),
		OpenAIAPIKey:   v.GetString("openai_api_key"),
		ASR: ASRCredentials{
			AppID:     v.GetString("asr_app_id"),
			SecretID:  v.GetString("asr_secret_id"),
			SecretKey: v.GetString("asr_secret_key"),
		},

		// Fixed XDG paths
		ConfigDir:  configDir,
		DataDir:    dataDir,
		CacheDir:   cacheDir,
		ReportsDir: reportsDir,
		IndexPath:  filepath.Join(dataDir, "processed_videos.json"),
		TempDir:    tempDir,
	}

	if config.Verbose {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	return config
}
