package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	app "underwriting-bot/internal/application"
	"underwriting-bot/internal/domain/entity"
	"underwriting-bot/internal/infrastructure/pdf"
	"underwriting-bot/internal/infrastructure/vision"
)

// AssessResponse ответ POST /v1/assess
type AssessResponse struct {
	ID         string                 `json:"id,omitempty"`
	Text       string                 `json:"text,omitempty"`
	Fields     entity.ExtractedFields `json:"fields"`
	Label      string                 `json:"label,omitempty"`
	Confidence string                 `json:"confidence,omitempty"`
	Risk       entity.RiskCategory    `json:"risk,omitempty"`
	Score      *int                   `json:"score,omitempty"`
	Signals    []string               `json:"signals,omitempty"`
	Missing    []entity.Input         `json:"missing,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server HTTP-поверхность: здоровье, метрики и разовая оценка.
type Server struct {
	svc     *app.UnderwritingService
	metrics http.Handler
	logger  *zap.Logger
	srv     *http.Server
}

// New собирает сервер; metrics может быть nil
func New(addr string, svc *app.UnderwritingService, metrics http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, metrics: metrics, logger: logger}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler возвращает маршруты с логированием запросов
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	mux.HandleFunc("POST /v1/assess", s.handleAssess)
	return loggingMiddleware(s.logger)(mux)
}

// ListenAndServe блокируется до остановки сервера
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown дожидается завершения активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	limit := s.svc.MaxUploadBytes()
	if limit > 0 {
		// два файла плюс служебные части формы
		r.Body = http.MaxBytesReader(w, r.Body, 2*limit+1<<20)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("parse form: %v", err)})
		return
	}
	defer r.MultipartForm.RemoveAll()

	report, err := formFile(r, "report")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	image, err := formFile(r, "image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	eval, err := s.svc.Assess(r.Context(), report, image)
	if err != nil {
		status := errorStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("assessment failed", zap.Int("status", status), zap.Error(err))
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	resp := toResponse(eval)
	if !eval.Ready() {
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// errorStatus отделяет ошибки во входных файлах от отказов самого сервиса
func errorStatus(err error) int {
	switch {
	case errors.Is(err, app.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, app.ErrEmptyUpload),
		errors.Is(err, pdf.ErrInvalidDocument),
		errors.Is(err, vision.ErrUnsupportedImage):
		return http.StatusBadRequest
	case errors.Is(err, vision.ErrModelUnavailable),
		errors.Is(err, vision.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func toResponse(eval *app.Evaluation) AssessResponse {
	resp := AssessResponse{Fields: entity.ExtractedFields{}, Missing: eval.Missing}
	if eval.Report != nil {
		resp.Text = eval.Report.Text
		resp.Fields = eval.Report.Fields
	}
	if eval.Image != nil {
		resp.Label = eval.Image.Label
		resp.Confidence = fmt.Sprintf("%.2f", eval.Image.Confidence)
	}
	if a := eval.Assessment; a != nil {
		score := a.Score
		resp.ID = a.ID
		resp.Risk = a.Category
		resp.Score = &score
		resp.Signals = a.Signals
	}
	return resp
}

// formFile читает файл формы; отсутствие поля не ошибка
func formFile(r *http.Request, name string) ([]byte, error) {
	f, _, err := r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
