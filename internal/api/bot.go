package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	app "underwriting-bot/internal/application"
	"underwriting-bot/internal/container"
	"underwriting-bot/internal/domain/entity"
	"underwriting-bot/internal/infrastructure/pdf"
	"underwriting-bot/internal/infrastructure/vision"
)

const (
	msgStart = `🛡️ Привет! Я помогаю оценить риск при андеррайтинге недвижимости.

Загрузите два файла:
📄 отчёт об оценке (PDF)
📷 фото объекта (JPEG/PNG)

Когда будут оба, я посчитаю категорию риска.

📋 Команды:
/status — что уже загружено
/reset — начать заново
/help — справка`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Пришлите отчёт об оценке в PDF (документом)
2️⃣ Пришлите фото объекта (фото или документ JPEG/PNG)
3️⃣ Получите категорию риска: Low, Medium или High

Порядок не важен. Новый файл заменяет прежний того же типа.

Правила:
• здание старше 50 лет — 2 балла
• площадь больше 4000 кв. футов — 1 балл
• классификатор видит повреждение (broken, damaged, crack) — 2 балла
3+ балла — High Risk, 2 — Medium Risk, иначе Low Risk`

	msgNeedReport       = "📄 Пожалуйста, загрузите отчёт об оценке в PDF."
	msgNeedImage        = "📷 Пожалуйста, загрузите фото объекта (JPEG/PNG)."
	msgHaveReport       = "✅ Отчёт уже загружен."
	msgHaveImage        = "✅ Фото уже загружено."
	msgReset            = "🔄 Загрузки сброшены. Пришлите отчёт и фото заново."
	msgUnknownCommand   = "❓ Неизвестная команда. Используйте /help для справки."
	msgUnsupportedFile  = "⚠️ Поддерживаются только PDF-отчёты и фото JPEG/PNG."
	msgProcessingReport = "⏳ Читаю отчёт..."
	msgProcessingImage  = "⏳ Анализирую фото..."
	msgTooLarge         = "⚠️ Файл слишком большой."
	msgBadReport        = "⚠️ Не удалось прочитать PDF: %s"
	msgBadImage         = "⚠️ Не удалось обработать изображение: %s"
)

// Bot представляет Telegram-бота
type Bot struct {
	api        *tgbotapi.BotAPI
	container  *container.Container
	httpClient *http.Client
	logger     *zap.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	return &Bot{
		api:        api,
		container:  c,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}, nil
}

// Run запускает основной цикл обработки сообщений до отмены контекста
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// Обработка фото
	if len(msg.Photo) > 0 {
		// Берём файл с максимальным разрешением
		photo := msg.Photo[len(msg.Photo)-1]
		b.handleUpload(ctx, msg, entity.InputImage, photo.FileID, int64(photo.FileSize))
		return
	}

	// Обработка документов
	if msg.Document != nil {
		input, ok := documentInput(msg.Document.MimeType, msg.Document.FileName)
		if !ok {
			b.sendMessage(msg.Chat.ID, msgUnsupportedFile)
			return
		}
		b.handleUpload(ctx, msg, input, msg.Document.FileID, int64(msg.Document.FileSize))
		return
	}

	// Текстовое сообщение (не команда): подсказываем, чего не хватает
	b.sendStatus(ctx, msg)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.sendMessage(msg.Chat.ID, msgStart)

	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "reset", "cancel":
		if _, err := b.container.UserService.Reset(ctx, msg.From.ID, msg.Chat.ID); err != nil {
			b.logger.Warn("reset session failed", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		}
		b.sendMessage(msg.Chat.ID, msgReset)

	case "status":
		b.sendStatus(ctx, msg)

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

// sendStatus показывает текущий итог по сессии или следующий шаг
func (b *Bot) sendStatus(ctx context.Context, msg *tgbotapi.Message) {
	user, err := b.container.UserService.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.logger.Warn("get user failed", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		return
	}
	if user.State == entity.StateReady {
		if eval := b.container.UnderwritingService.Evaluate(user); eval.Ready() {
			b.sendHTML(msg.Chat.ID, renderAssessment(eval.Assessment))
			return
		}
	}
	b.sendMessage(msg.Chat.ID, renderState(user.State))
}

// handleUpload скачивает файл и передаёт его в сервис оценки
func (b *Bot) handleUpload(ctx context.Context, msg *tgbotapi.Message, input entity.Input, fileID string, size int64) {
	svc := b.container.UnderwritingService
	if limit := svc.MaxUploadBytes(); limit > 0 && size > limit {
		b.sendMessage(msg.Chat.ID, msgTooLarge)
		return
	}

	if input == entity.InputReport {
		b.sendMessage(msg.Chat.ID, msgProcessingReport)
	} else {
		b.sendMessage(msg.Chat.ID, msgProcessingImage)
	}

	data, err := b.downloadFile(ctx, fileID, svc.MaxUploadBytes())
	if err != nil {
		b.logger.Warn("download failed", zap.String("input", string(input)), zap.Error(err))
		b.replyUploadError(msg.Chat.ID, input, err)
		return
	}

	var eval *app.Evaluation
	if input == entity.InputReport {
		eval, err = svc.AcceptReport(ctx, msg.From.ID, msg.Chat.ID, data)
	} else {
		eval, err = svc.AcceptImage(ctx, msg.From.ID, msg.Chat.ID, data)
	}
	if err != nil {
		b.logger.Warn("upload rejected",
			zap.Int64("user_id", msg.From.ID),
			zap.String("input", string(input)),
			zap.Error(err),
		)
		b.replyUploadError(msg.Chat.ID, input, err)
		return
	}

	for _, text := range renderEvaluation(eval, input) {
		b.sendHTML(msg.Chat.ID, text)
	}
}

func (b *Bot) replyUploadError(chatID int64, input entity.Input, err error) {
	switch {
	case errors.Is(err, app.ErrTooLarge):
		b.sendMessage(chatID, msgTooLarge)
	case input == entity.InputReport:
		reason := "файл повреждён или не является PDF"
		if !errors.Is(err, pdf.ErrInvalidDocument) {
			reason = err.Error()
		}
		b.sendMessage(chatID, fmt.Sprintf(msgBadReport, reason))
	default:
		reason := "поддерживаются только JPEG и PNG"
		if !errors.Is(err, vision.ErrUnsupportedImage) {
			reason = err.Error()
		}
		b.sendMessage(chatID, fmt.Sprintf(msgBadImage, reason))
	}
}

// downloadFile скачивает файл из Telegram, не больше limit байт
func (b *Bot) downloadFile(ctx context.Context, fileID string, limit int64) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if limit > 0 {
		body = io.LimitReader(resp.Body, limit+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, app.ErrTooLarge
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// sendHTML отправляет сообщение с HTML-разметкой
func (b *Bot) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
