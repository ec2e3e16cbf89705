package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string
	HTTPAddr      string

	// ReferenceYear год для правила возраста здания; 0 = текущий год по часам
	ReferenceYear int

	PDFBackend   string
	PdftotextBin string

	ClassifierBackend string
	ModelPath         string
	LabelsPath        string
	OrtLibPath        string
	ModelInput        string
	ModelOutput       string
	ModelPreload      bool

	MaxUploadBytes int64

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:     os.Getenv("TELEGRAM_TOKEN"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		PDFBackend:        getEnv("PDF_BACKEND", "native"),
		PdftotextBin:      getEnv("PDFTOTEXT_BIN", "pdftotext"),
		ClassifierBackend: getEnv("CLASSIFIER_BACKEND", "onnx"),
		ModelPath:         getEnv("MODEL_PATH", "models/resnet-18/model.onnx"),
		LabelsPath:        getEnv("LABELS_PATH", "models/resnet-18/config.json"),
		OrtLibPath:        os.Getenv("ORT_LIB_PATH"),
		ModelInput:        getEnv("MODEL_INPUT", "pixel_values"),
		ModelOutput:       getEnv("MODEL_OUTPUT", "logits"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.ReferenceYear, err = intEnv("REFERENCE_YEAR", 0); err != nil {
		return nil, err
	}
	if cfg.ModelPreload, err = boolEnv("MODEL_PRELOAD", false); err != nil {
		return nil, err
	}
	maxUpload, err := intEnv("MAX_UPLOAD_BYTES", 20<<20)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	if c.TelegramToken == "" && c.HTTPAddr == "" {
		return errors.New("either TELEGRAM_TOKEN or HTTP_ADDR is required")
	}
	if c.ReferenceYear < 0 {
		return fmt.Errorf("REFERENCE_YEAR must not be negative, got %d", c.ReferenceYear)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	switch c.PDFBackend {
	case "native", "pdftotext":
	default:
		return fmt.Errorf("unknown PDF_BACKEND %q", c.PDFBackend)
	}
	switch c.ClassifierBackend {
	case "onnx", "gocv":
	default:
		return fmt.Errorf("unknown CLASSIFIER_BACKEND %q", c.ClassifierBackend)
	}
	return nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func intEnv(k string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func boolEnv(k string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}
