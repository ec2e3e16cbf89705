package entity

// UserState состояние пользователя в диалоге
type UserState string

const (
	StateMainMenu       UserState = "main_menu"       // Ничего не загружено
	StateAwaitingImage  UserState = "awaiting_image"  // Есть отчёт, ждём фото
	StateAwaitingReport UserState = "awaiting_report" // Есть фото, ждём отчёт
	StateReady          UserState = "ready"           // Оба входа на месте
)

// Input обязательный вход оценки
type Input string

const (
	InputReport Input = "report"
	InputImage  Input = "image"
)

// User представляет пользователя бота и его текущую сессию
type User struct {
	ID     int64     // Telegram User ID
	ChatID int64     // Telegram Chat ID
	State  UserState // выводится из загруженных файлов

	Report *ReportAnalysis // последний разобранный отчёт
	Image  *ImageLabel     // метка последнего фото
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateMainMenu,
	}
}

// AttachReport заменяет отчёт в сессии
func (u *User) AttachReport(report *ReportAnalysis) {
	u.Report = report
	u.syncState()
}

// AttachImage заменяет метку фото в сессии
func (u *User) AttachImage(label *ImageLabel) {
	u.Image = label
	u.syncState()
}

// Missing перечисляет недостающие входы в порядке отчёт, фото
func (u *User) Missing() []Input {
	var missing []Input
	if u.Report == nil {
		missing = append(missing, InputReport)
	}
	if u.Image == nil {
		missing = append(missing, InputImage)
	}
	return missing
}

func (u *User) syncState() {
	switch {
	case u.Report != nil && u.Image != nil:
		u.State = StateReady
	case u.Report != nil:
		u.State = StateAwaitingImage
	case u.Image != nil:
		u.State = StateAwaitingReport
	default:
		u.State = StateMainMenu
	}
}
