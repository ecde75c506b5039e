package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Default tunables from spec §3–§4.
const (
	DefaultLazyThreshold   = 10 * 1024 * 1024  // LAZY_THRESHOLD
	DefaultChunkSize       = 1 * 1024 * 1024   // CHUNK_SIZE
	DefaultTransferExpiry  = 300               // seconds, TTL
	DefaultPollInterval    = 300               // milliseconds
	DefaultMaxFileSize     = 10 * 1024 * 1024 * 1024 // 10 GiB per file
	DefaultMaxTotalSize    = 20 * 1024 * 1024 * 1024 // 20 GiB per transfer
	DefaultPort            = 9876
	CompressionNone        = "none"
	CompressionGzip        = "gzip"
)

// Config holds the sync behavior knobs persisted at config.json (spec §6).
type Config struct {
	SyncFiles          bool     `json:"sync_files"`
	SyncText           bool     `json:"sync_text"`
	SyncImages         bool     `json:"sync_images"`
	MaxFileSize        int64    `json:"max_file_size"`
	MaxTotalSize       int64    `json:"max_total_size"`
	IgnoredExtensions  []string `json:"ignored_extensions"`
	LazyThreshold      int64    `json:"lazy_threshold"`
	ChunkSize          int64    `json:"chunk_size"`
	TransferExpiry     int      `json:"transfer_expiry"`
	Port               int      `json:"port"`
	PollIntervalMillis int      `json:"poll_interval_ms"`
	// MaxBandwidthBps throttles outbound FILE_CHUNK streaming. 0 = unlimited.
	MaxBandwidthBps int64 `json:"max_bandwidth_bps"`
	// CompressionMode is "none" or "gzip"; governs compression of outbound
	// FILE_CHUNK payloads. Inline and image payloads are never compressed.
	CompressionMode string `json:"compression_mode"`
	// MinFreeDiskBytes is stored and settable, but no component reads it:
	// inbound transfers are accepted regardless of free disk space.
	MinFreeDiskBytes int64 `json:"min_free_disk_bytes"`
}

// ConfigPath returns the default config.json path (~/.yank/config.json).
func ConfigPath() (string, error) {
	return yankFilePath("config.json")
}

// Default returns a Config populated with spec defaults.
func Default() *Config {
	return &Config{
		SyncFiles:          true,
		SyncText:           true,
		SyncImages:         true,
		MaxFileSize:        DefaultMaxFileSize,
		MaxTotalSize:       DefaultMaxTotalSize,
		IgnoredExtensions:  nil,
		LazyThreshold:      DefaultLazyThreshold,
		ChunkSize:          DefaultChunkSize,
		TransferExpiry:     DefaultTransferExpiry,
		Port:               DefaultPort,
		PollIntervalMillis: DefaultPollInterval,
		MaxBandwidthBps:    0,
		CompressionMode:    CompressionNone,
		MinFreeDiskBytes:   0,
	}
}

// Load reads config.json at path. If the file does not exist, it returns
// Default() without error — config.json is optional.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as indented JSON.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.LazyThreshold <= 0 {
		c.LazyThreshold = DefaultLazyThreshold
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.TransferExpiry <= 0 {
		c.TransferExpiry = DefaultTransferExpiry
	}
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.PollIntervalMillis <= 0 {
		c.PollIntervalMillis = DefaultPollInterval
	}
	if c.MaxBandwidthBps < 0 {
		return fmt.Errorf("max_bandwidth_bps must be >= 0")
	}
	switch c.CompressionMode {
	case "", CompressionNone:
		c.CompressionMode = CompressionNone
	case CompressionGzip:
	default:
		return fmt.Errorf("compression_mode must be %q or %q, got %q", CompressionNone, CompressionGzip, c.CompressionMode)
	}
	return nil
}

// Set applies a single "key value" override, mirroring the CLI's
// `config --set K V`. Keys match the JSON field names.
func (c *Config) Set(key, value string) error {
	switch key {
	case "sync_files":
		return setBool(&c.SyncFiles, value)
	case "sync_text":
		return setBool(&c.SyncText, value)
	case "sync_images":
		return setBool(&c.SyncImages, value)
	case "max_file_size":
		return setByteSize(&c.MaxFileSize, value)
	case "max_total_size":
		return setByteSize(&c.MaxTotalSize, value)
	case "ignored_extensions":
		c.IgnoredExtensions = splitCSV(value)
	case "lazy_threshold":
		return setByteSize(&c.LazyThreshold, value)
	case "chunk_size":
		return setByteSize(&c.ChunkSize, value)
	case "transfer_expiry":
		return setInt(&c.TransferExpiry, value)
	case "port":
		return setInt(&c.Port, value)
	case "poll_interval_ms":
		return setInt(&c.PollIntervalMillis, value)
	case "max_bandwidth_bps":
		return setByteSize(&c.MaxBandwidthBps, value)
	case "compression_mode":
		c.CompressionMode = value
	case "min_free_disk_bytes":
		return setByteSize(&c.MinFreeDiskBytes, value)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return c.validate()
}

func setBool(dst *bool, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid bool %q: %w", value, err)
	}
	*dst = b
	return nil
}

func setInt(dst *int, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", value, err)
	}
	*dst = n
	return nil
}

func setByteSize(dst *int64, value string) error {
	n, err := ParseByteSize(value)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseByteSize converts human-readable sizes like "256mb", "1gb" to bytes.
// A bare number is interpreted as bytes.
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	type suffix struct {
		s string
		m int64
	}
	// Longest suffix first so "mb" isn't matched as "b".
	suffixes := []suffix{
		{"gb", 1024 * 1024 * 1024},
		{"mb", 1024 * 1024},
		{"kb", 1024},
		{"b", 1},
	}

	for _, sfx := range suffixes {
		if strings.HasSuffix(s, sfx.s) {
			numStr := strings.TrimSuffix(s, sfx.s)
			num, err := strconv.ParseInt(numStr, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid number %q: %w", numStr, err)
			}
			return num * sfx.m, nil
		}
	}

	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unknown size format %q", s)
	}
	return num, nil
}
