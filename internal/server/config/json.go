package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/avolkovs/fieldvault/internal/flagx"
	"github.com/avolkovs/fieldvault/internal/timex"
)

// JsonConfig is the intermediate DTO for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing
// both string values such as "1h" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config struct.
type JsonConfig struct {
	DatabaseDSN          string         `json:"database_dsn"`
	StorageBackend       string         `json:"storage_backend"`
	StorageRoot          string         `json:"storage_root"`
	MaxObjectSize        int64          `json:"max_object_size"`
	CompressionThreshold int64          `json:"compression_threshold"`
	DefaultMaxVersions   int            `json:"default_max_versions"`
	GrantSecret          string         `json:"grant_secret"`
	GrantTTL             timex.Duration `json:"grant_ttl"`
	SweepInterval        timex.Duration `json:"sweep_interval"`
	S3RootUser           string         `json:"s3_root_user"`
	S3RootPassword       string         `json:"s3_root_password"`
	S3Bucket             string         `json:"s3_bucket"`
	S3Region             string         `json:"s3_region"`
	S3BaseEndpoint       string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config command-line flags into the provided Config. No file flag
// means no overlay. A file that cannot be read or parsed panics; a broken
// config should stop startup, not be silently ignored.
func parseJson(config *Config) {
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
	config.StorageBackend = c.StorageBackend
	config.StorageRoot = c.StorageRoot
	config.MaxObjectSize = c.MaxObjectSize
	config.CompressionThreshold = c.CompressionThreshold
	config.DefaultMaxVersions = c.DefaultMaxVersions
	config.GrantSecret = c.GrantSecret
	config.GrantTTL = time.Duration(c.GrantTTL.Duration)
	config.SweepInterval = time.Duration(c.SweepInterval.Duration)
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
