package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/grievance-api/models"
)

// Config holds the project config values
type Config struct {
	URL               string
	DatabaseName      string
	BaseURL           string
	Port              string
	Env               string
	CategoriesFile    string
	SessionBuffer     int
	StaleWriteRetries int
	QueryTimeout      time.Duration
	DigestSchedule    string
	JWTSecret         string
	SendgridAPIKey    string
	MailFrom          string
	Cloudinary        CloudinaryConfig
}

// CloudinaryConfig holds the credentials used to sign direct uploads
type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string
}

// New sets up all config related services
func New() *Config {
	c := &Config{
		URL:               os.Getenv("DB_URI"),
		DatabaseName:      os.Getenv("DB_NAME"),
		BaseURL:           os.Getenv("BASE_URL"),
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "production"),
		CategoriesFile:    os.Getenv("CATEGORIES_FILE"),
		SessionBuffer:     getEnvInt("SESSION_BUFFER", 64),
		StaleWriteRetries: getEnvInt("STALE_WRITE_RETRIES", 3),
		QueryTimeout:      time.Duration(getEnvInt("QUERY_TIMEOUT_SECONDS", 10)) * time.Second,
		DigestSchedule:    getEnv("DIGEST_SCHEDULE", "0 8 * * *"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		SendgridAPIKey:    os.Getenv("SENDGRID_API_KEY"),
		MailFrom:          getEnv("MAIL_FROM", "no-reply@grievance.local"),
		Cloudinary: CloudinaryConfig{
			CloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:       os.Getenv("CLOUDINARY_API_KEY"),
			APISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
			UploadPreset: os.Getenv("CLOUDINARY_UPLOAD_PRESET"),
		},
	}

	//setup zap logger and replace default logger
	if _, err := setLogger(c.Env); err != nil {
		_, _ = setLogger("production")
		zap.S().Warnw("falling back to production logger", "env", c.Env, "error", err)
	}
	return c
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	writeError(message, httpStatusCode, false, w, err)
}

// RetryableErrorStatus is ErrorStatus for failures the client should retry
// after refetching, such as a stale write.
func RetryableErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	writeError(message, httpStatusCode, true, w, err)
}

func writeError(message string, httpStatusCode int, retryable bool, w http.ResponseWriter, err error) {
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	zap.S().Errorw(message, "status", httpStatusCode, "error", errText)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	b, _ := json.Marshal(models.ErrorMessageResponse{
		Response: models.MessageError{Message: message, Error: errText, Retryable: retryable},
	})
	_, _ = w.Write(b)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
