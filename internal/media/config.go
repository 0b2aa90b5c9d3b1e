package media

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	BackendCloudinary = "cloudinary"
	BackendS3         = "s3"
)

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	Folder        string
}

type Config struct {
	Backend    string
	Cloudinary CloudinaryConfig
	S3         S3Config
	TempDir    string
	MaxBytes   int64
}

// ConfigFromEnv reads MEDIA_BACKEND, CLOUDINARY_*, S3_* and UPLOAD_* variables.
func ConfigFromEnv() Config {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("MEDIA_BACKEND")))
	if backend == "" {
		backend = BackendCloudinary
	}
	tmp := os.Getenv("UPLOAD_TMP_DIR")
	if tmp == "" {
		tmp = "./public/temp"
	}
	max := int64(10 << 20)
	if v, err := strconv.ParseInt(os.Getenv("UPLOAD_MAX_BYTES"), 10, 64); err == nil && v > 0 {
		max = v
	}
	folder := os.Getenv("CLOUDINARY_FOLDER")
	return Config{
		Backend: backend,
		Cloudinary: CloudinaryConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
			Folder:    folder,
		},
		S3: S3Config{
			Bucket:        os.Getenv("S3_BUCKET"),
			Region:        envOr("S3_REGION", "us-east-1"),
			Endpoint:      os.Getenv("S3_ENDPOINT"),
			AccessKey:     os.Getenv("S3_ACCESS_KEY"),
			SecretKey:     os.Getenv("S3_SECRET_KEY"),
			PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
			Folder:        envOr("S3_FOLDER", "users"),
		},
		TempDir:  tmp,
		MaxBytes: max,
	}
}

// Stager returns the temp-file stager for this config.
func (c Config) Stager() Stager {
	return Stager{Dir: c.TempDir, MaxBytes: c.MaxBytes}
}

// NewUploader builds the uploader selected by cfg.Backend.
func NewUploader(ctx context.Context, cfg Config) (Uploader, error) {
	switch cfg.Backend {
	case BackendCloudinary:
		return NewCloudinaryUploader(cfg.Cloudinary)
	case BackendS3:
		return NewS3Uploader(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
