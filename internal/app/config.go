package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"streamadesk/internal/domain"
)

const (
	minBufferSizeMB     = 1
	maxBufferSizeMB     = 50
	defaultBufferSizeMB = 5
	defaultSubtitleSize = 20
)

type Config struct {
	// Remote media server.
	Server      string
	Port        string
	SSL         bool
	InsecureSSL bool
	Username    string
	Password    string

	// Playback.
	PlaybackMode      domain.PlaybackMode
	BufferSizeMB      int
	DownloadRateBytes int64 // bytes/sec, 0 = unlimited
	PlayerPath        string
	PlayerArgs        []string
	SubtitleSize      int
	SubtitleBold      bool

	// Local control surface.
	ControlAddr string

	// Optional watch-history persistence.
	MongoURI      string
	MongoDatabase string

	TMDBImageBaseURL string

	LogLevel  string
	LogFormat string
}

func LoadConfig() Config {
	return Config{
		Server:            getEnv("STREAMA_SERVER", ""),
		Port:              getEnv("STREAMA_PORT", "8080"),
		SSL:               getEnvBool("STREAMA_SSL", false),
		InsecureSSL:       getEnvBool("STREAMA_INSECURE_SSL", false),
		Username:          getEnv("STREAMA_USERNAME", ""),
		Password:          getEnv("STREAMA_PASSWORD", ""),
		PlaybackMode:      domain.ParsePlaybackMode(getEnv("PLAYBACK_MODE", "prebuffer")),
		BufferSizeMB:      clampBufferSize(int(getEnvInt64("PLAYBACK_BUFFER_MB", defaultBufferSizeMB))),
		DownloadRateBytes: getEnvInt64("DOWNLOAD_RATE_BYTES", 0),
		PlayerPath:        getEnv("PLAYER_PATH", "mpv"),
		PlayerArgs:        splitArgs(getEnv("PLAYER_ARGS", "")),
		SubtitleSize:      int(getEnvInt64("SUBTITLE_SIZE", defaultSubtitleSize)),
		SubtitleBold:      getEnvBool("SUBTITLE_BOLD", false),
		ControlAddr:       getEnv("CONTROL_ADDR", "127.0.0.1:8099"),
		MongoURI:          getEnv("MONGO_URI", ""),
		MongoDatabase:     getEnv("MONGO_DB", "streamadesk"),
		TMDBImageBaseURL:  getEnv("TMDB_IMAGE_BASE_URL", "https://image.tmdb.org/t/p/"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
}

// BaseURL builds the media server root URL from server, port and SSL flag.
// Empty when no server is configured.
func (c Config) BaseURL() string {
	if strings.TrimSpace(c.Server) == "" {
		return ""
	}
	protocol := "http"
	if c.SSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s:%s", protocol, c.Server, c.Port)
}

// clampBufferSize keeps the prebuffer size inside [1, 50] MB. Out-of-range
// configs fall back to the default rather than the nearest bound: a wildly
// wrong value usually means a misconfigured unit.
func clampBufferSize(mb int) int {
	if mb < minBufferSizeMB || mb > maxBufferSizeMB {
		return defaultBufferSizeMB
	}
	return mb
}

func splitArgs(raw string) []string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
