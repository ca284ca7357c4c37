package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/campusshare/campusshare/internal/flagx"
	"github.com/campusshare/campusshare/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "24h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	DatabaseDSN              string         `json:"database_dsn"`
	MetricsAddr              string         `json:"metrics_addr"`
	BlobBackend              string         `json:"blob_backend"`
	BlobDir                  string         `json:"blob_dir"`
	S3RootUser               string         `json:"s3_root_user"`
	S3RootPassword           string         `json:"s3_root_password"`
	S3Bucket                 string         `json:"s3_bucket"`
	S3Region                 string         `json:"s3_region"`
	S3BaseEndpoint           string         `json:"s3_base_endpoint"`
	RetentionDays            int            `json:"retention_days"`
	SweepInterval            timex.Duration `json:"sweep_interval"`
	OrphanScan               bool           `json:"orphan_scan"`
	OrphanGrace              timex.Duration `json:"orphan_grace"`
	MaxClipCount             int            `json:"max_clip_count"`
	MaxClipChars             int            `json:"max_clip_chars"`
	DefaultStorageLimitBytes int64          `json:"default_storage_limit_bytes"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is:
//
//	The -c or -config command-line flags.
//	If it is not set, no JSON file is loaded.
//
// If the file path is found, parseJson attempts to read and unmarshal it
// into a JsonConfig. The resulting values are copied into the target Config.
// If the file cannot be read or contains invalid JSON, the function panics.
//
// The caller is expected to merge these values with defaults and
// command-line flags as part of the full configuration process.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.DatabaseDSN = c.DatabaseDSN
	config.MetricsAddr = c.MetricsAddr
	config.BlobBackend = c.BlobBackend
	config.BlobDir = c.BlobDir
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.RetentionDays = c.RetentionDays
	config.SweepInterval = time.Duration(c.SweepInterval.Duration)
	config.OrphanScan = c.OrphanScan
	config.OrphanGrace = time.Duration(c.OrphanGrace.Duration)
	config.MaxClipCount = c.MaxClipCount
	config.MaxClipChars = c.MaxClipChars
	config.DefaultStorageLimitBytes = c.DefaultStorageLimitBytes
}
