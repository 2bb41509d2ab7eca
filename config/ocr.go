package config

import (
	"os"
	"strings"
	"time"
)

// OcrConfig holds the external OCR service settings. The service is
// slow (full-page document recognition), so timeouts are in minutes.
type OcrConfig struct {
	Endpoint         string
	FallbackEndpoint string
	Token            string
	RequestTimeout   time.Duration
	FallbackTimeout  time.Duration
	WorkerCount      int
	DevMode          bool
}

func GetOcrConfig() OcrConfig {
	cfg := OcrConfig{
		Endpoint:         strings.TrimSpace(os.Getenv("OCR_API_ENDPOINT")),
		FallbackEndpoint: strings.TrimSpace(os.Getenv("FALLBACK_OCR_API_ENDPOINT")),
		Token:            strings.TrimSpace(os.Getenv("OCR_API_TOKEN")),
		RequestTimeout:   3 * time.Minute,
		FallbackTimeout:  3 * time.Minute,
		WorkerCount:      3,
		DevMode:          !strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production"),
	}

	if cfg.FallbackEndpoint == "" {
		cfg.FallbackEndpoint = "http://localhost:1880/testingupload"
	}
	if n := intFromEnv("OCR_REQUEST_TIMEOUT_SECONDS", 0); n > 0 {
		cfg.RequestTimeout = time.Duration(n) * time.Second
	}
	if n := intFromEnv("OCR_FALLBACK_TIMEOUT_SECONDS", 0); n > 0 {
		cfg.FallbackTimeout = time.Duration(n) * time.Second
	}
	if n := intFromEnv("OCR_WORKER_COUNT", 0); n > 0 {
		cfg.WorkerCount = n
	}

	return cfg
}
