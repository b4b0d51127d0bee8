package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// JsonConfig is the on-disk shape of the optional JSON config file. Zero
// values leave the corresponding Config field untouched.
type JsonConfig struct {
	AppName                  string   `json:"app_name"`
	Env                      string   `json:"app_env"`
	HTTPAddr                 string   `json:"http_addr"`
	GRPCAddr                 string   `json:"grpc_addr"`
	DatabaseDSN              string   `json:"database_url"`
	DBMaxOpenConns           int      `json:"db_max_open_conns"`
	DBMaxIdleConns           int      `json:"db_max_idle_conns"`
	SecretKey                string   `json:"secret_key"`
	TokenAlgorithm           string   `json:"token_algorithm"`
	AccessTokenExpireMinutes int      `json:"access_token_expire_minutes"`
	BcryptCost               int      `json:"bcrypt_cost"`
	CORSOrigins              []string `json:"cors_origins"`
	S3Bucket                 string   `json:"bucket_name"`
	S3CredentialsFile        string   `json:"sa_key_path"`
	S3Region                 string   `json:"s3_region"`
	S3BaseEndpoint           string   `json:"s3_endpoint"`
	S3AccessKey              string   `json:"s3_access_key"`
	S3SecretKey              string   `json:"s3_secret_key"`
	S3PublicBaseURL          string   `json:"s3_public_base_url"`
	MaxUploadMB              int      `json:"max_upload_mb"`
}

// parseJson overlays values from the JSON file at path onto config.
// An empty path is a no-op.
func parseJson(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&config.AppName, c.AppName)
	setString(&config.Env, c.Env)
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setInt(&config.DBMaxOpenConns, c.DBMaxOpenConns)
	setInt(&config.DBMaxIdleConns, c.DBMaxIdleConns)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.TokenAlgorithm, c.TokenAlgorithm)
	if c.AccessTokenExpireMinutes != 0 {
		config.AccessTokenValidityDuration = time.Duration(c.AccessTokenExpireMinutes) * time.Minute
	}
	setInt(&config.BcryptCost, c.BcryptCost)
	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = c.CORSOrigins
	}
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3CredentialsFile, c.S3CredentialsFile)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3PublicBaseURL, c.S3PublicBaseURL)
	if c.MaxUploadMB != 0 {
		config.MaxUploadBytes = int64(c.MaxUploadMB) << 20
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
