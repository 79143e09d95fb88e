package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/custodia-project/custodia/internal/flagx"
	"github.com/custodia-project/custodia/internal/timex"
)

// JsonConfig is the intermediate DTO used when reading JSON configuration
// files. Duration fields accept both "15m" strings and integer nanoseconds
// via timex.Duration; values are then copied into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP      string         `json:"endpoint_addr_http"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	MaxUploadSizeBytes    int64          `json:"max_upload_size_bytes"`
	WriteCredentialTTL    timex.Duration `json:"write_credential_ttl"`
	ReplayConcurrency     int            `json:"replay_concurrency"`
	S3RootUser            string         `json:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. If no file is named, nothing
// happens; an unreadable or invalid file panics, since starting with half a
// config is worse than not starting.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

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

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.TokenValidityDuration = time.Duration(c.TokenValidityDuration.Duration)
	config.MaxUploadSizeBytes = c.MaxUploadSizeBytes
	config.WriteCredentialTTL = time.Duration(c.WriteCredentialTTL.Duration)
	config.ReplayConcurrency = c.ReplayConcurrency
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
