package vision

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"underwriting-bot/internal/domain/entity"
)

var (
	// ErrUnsupportedImage возвращается, если изображение не удалось декодировать
	ErrUnsupportedImage = errors.New("unsupported image format")
	// ErrNotConfigured возвращается, если бэкенд не собран в бинарь
	ErrNotConfigured = errors.New("classifier backend is not available in this build")
	// ErrModelUnavailable оборачивает любую ошибку загрузки модели
	ErrModelUnavailable = errors.New("load image model")
)

const (
	BackendONNX = "onnx"
	BackendGoCV = "gocv"
)

// Config настройки классификатора
type Config struct {
	Backend    string // onnx | gocv
	ModelPath  string // ResNet-18 в формате ONNX
	LabelsPath string // config.json модели (id2label) или текст, по метке на строку
	OrtLibPath string // путь к libonnxruntime, пусто = поиск по умолчанию
	InputName  string // имя входного тензора
	OutputName string // имя выходного тензора
	TopK       int    // сколько строк ранжированного ответа возвращать
}

func (c *Config) setDefaults() {
	if c.Backend == "" {
		c.Backend = BackendONNX
	}
	if c.InputName == "" {
		c.InputName = "pixel_values"
	}
	if c.OutputName == "" {
		c.OutputName = "logits"
	}
	if c.TopK <= 0 {
		c.TopK = 5
	}
}

// LoadLabels читает список меток классов.
// Файл .json разбирается как config.json модели Hugging Face (поле id2label),
// остальные как текст: номер непустой строки = номер класса.
func LoadLabels(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return loadID2Label(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	var labels []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		labels = append(labels, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}

func loadID2Label(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	var cfg struct {
		ID2Label map[string]string `json:"id2label"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	if len(cfg.ID2Label) == 0 {
		return nil, fmt.Errorf("labels file %s has no id2label", path)
	}

	labels := make([]string, len(cfg.ID2Label))
	for key, label := range cfg.ID2Label {
		id, err := strconv.Atoi(key)
		if err != nil || id < 0 || id >= len(labels) {
			return nil, fmt.Errorf("labels file %s: bad class id %q", path, key)
		}
		labels[id] = label
	}
	return labels, nil
}

// softmax переводит логиты в вероятности
func softmax(logits []float32) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	maxLogit := float64(logits[0])
	for _, v := range logits[1:] {
		maxLogit = math.Max(maxLogit, float64(v))
	}
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(float64(v) - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// rank сортирует вероятности по убыванию и возвращает первые k меток
func rank(probs []float64, labels []string, k int) []entity.Prediction {
	n := len(probs)
	if len(labels) < n {
		n = len(labels)
	}
	preds := make([]entity.Prediction, 0, n)
	for i := 0; i < n; i++ {
		preds = append(preds, entity.Prediction{Label: labels[i], Score: probs[i]})
	}
	sort.SliceStable(preds, func(i, j int) bool { return preds[i].Score > preds[j].Score })
	if k > 0 && len(preds) > k {
		preds = preds[:k]
	}
	return preds
}
