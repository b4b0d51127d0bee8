package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// parseEnv loads dotenvPath into the process environment (existing variables
// win, a missing file is fine) and then overlays environment variables onto
// config through viper. Values already in config act as defaults.
func parseEnv(config *Config, dotenvPath string) error {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_NAME", config.AppName)
	v.SetDefault("APP_ENV", config.Env)
	v.SetDefault("HTTP_ADDR", config.HTTPAddr)
	v.SetDefault("GRPC_ADDR", config.GRPCAddr)
	v.SetDefault("DATABASE_URL", config.DatabaseDSN)
	v.SetDefault("DB_MAX_OPEN_CONNS", config.DBMaxOpenConns)
	v.SetDefault("DB_MAX_IDLE_CONNS", config.DBMaxIdleConns)
	v.SetDefault("SECRET_KEY", config.SecretKey)
	v.SetDefault("TOKEN_ALGORITHM", config.TokenAlgorithm)
	v.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", int(config.AccessTokenValidityDuration/time.Minute))
	v.SetDefault("BCRYPT_COST", config.BcryptCost)
	v.SetDefault("CORS_ORIGINS", strings.Join(config.CORSOrigins, ","))
	v.SetDefault("BUCKET_NAME", config.S3Bucket)
	v.SetDefault("SA_KEY_PATH", config.S3CredentialsFile)
	v.SetDefault("S3_REGION", config.S3Region)
	v.SetDefault("S3_ENDPOINT", config.S3BaseEndpoint)
	v.SetDefault("S3_ACCESS_KEY", config.S3AccessKey)
	v.SetDefault("S3_SECRET_KEY", config.S3SecretKey)
	v.SetDefault("S3_PUBLIC_BASE_URL", config.S3PublicBaseURL)
	v.SetDefault("MAX_UPLOAD_MB", int(config.MaxUploadBytes>>20))

	config.AppName = v.GetString("APP_NAME")
	config.Env = v.GetString("APP_ENV")
	config.HTTPAddr = v.GetString("HTTP_ADDR")
	config.GRPCAddr = v.GetString("GRPC_ADDR")
	config.DatabaseDSN = v.GetString("DATABASE_URL")
	config.DBMaxOpenConns = v.GetInt("DB_MAX_OPEN_CONNS")
	config.DBMaxIdleConns = v.GetInt("DB_MAX_IDLE_CONNS")
	config.SecretKey = v.GetString("SECRET_KEY")
	config.TokenAlgorithm = strings.ToUpper(v.GetString("TOKEN_ALGORITHM"))
	config.AccessTokenValidityDuration = time.Duration(v.GetInt("ACCESS_TOKEN_EXPIRE_MINUTES")) * time.Minute
	config.BcryptCost = v.GetInt("BCRYPT_COST")
	config.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	config.S3Bucket = v.GetString("BUCKET_NAME")
	config.S3CredentialsFile = v.GetString("SA_KEY_PATH")
	config.S3Region = v.GetString("S3_REGION")
	config.S3BaseEndpoint = v.GetString("S3_ENDPOINT")
	config.S3AccessKey = v.GetString("S3_ACCESS_KEY")
	config.S3SecretKey = v.GetString("S3_SECRET_KEY")
	config.S3PublicBaseURL = v.GetString("S3_PUBLIC_BASE_URL")
	config.MaxUploadBytes = int64(v.GetInt("MAX_UPLOAD_MB")) << 20

	return nil
}

// splitList parses a comma-separated list, trimming blanks.
func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
