package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"TELEGRAM_TOKEN", "HTTP_ADDR", "REFERENCE_YEAR", "PDF_BACKEND", "PDFTOTEXT_BIN",
	"CLASSIFIER_BACKEND", "MODEL_PATH", "LABELS_PATH", "ORT_LIB_PATH", "MODEL_INPUT",
	"MODEL_OUTPUT", "MODEL_PRELOAD", "MAX_UPLOAD_BYTES", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Zero(t, cfg.ReferenceYear)
	require.Equal(t, "native", cfg.PDFBackend)
	require.Equal(t, "onnx", cfg.ClassifierBackend)
	require.Equal(t, "pixel_values", cfg.ModelInput)
	require.Equal(t, "logits", cfg.ModelOutput)
	require.False(t, cfg.ModelPreload)
	require.Equal(t, int64(20<<20), cfg.MaxUploadBytes)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("REFERENCE_YEAR", "2025")
	t.Setenv("PDF_BACKEND", "pdftotext")
	t.Setenv("CLASSIFIER_BACKEND", "gocv")
	t.Setenv("MODEL_PRELOAD", "true")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "123:abc", cfg.TelegramToken)
	require.Equal(t, 2025, cfg.ReferenceYear)
	require.Equal(t, "pdftotext", cfg.PDFBackend)
	require.Equal(t, "gocv", cfg.ClassifierBackend)
	require.True(t, cfg.ModelPreload)
	require.Equal(t, int64(1024), cfg.MaxUploadBytes)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"REFERENCE_YEAR", "last year"},
		{"REFERENCE_YEAR", "-1"},
		{"MODEL_PRELOAD", "maybe"},
		{"MAX_UPLOAD_BYTES", "0"},
		{"PDF_BACKEND", "ocr"},
		{"CLASSIFIER_BACKEND", "tflite"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestValidate_NeedsSurface(t *testing.T) {
	cfg := &Config{PDFBackend: "native", ClassifierBackend: "onnx", MaxUploadBytes: 1}
	require.Error(t, cfg.Validate())

	cfg.HTTPAddr = ":9000"
	require.NoError(t, cfg.Validate())
}
