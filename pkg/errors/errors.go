package errors

import "fmt"

var (
	// JWT и токены
	ErrInvalidSigningMethod = fmt.Errorf("неверный метод подписи токена")
	ErrInvalidToken         = fmt.Errorf("недопустимый токен")
	ErrTokenExpired         = fmt.Errorf("срок действия токена истёк")
	ErrTokenIsNotRefresh    = fmt.Errorf("токен не является refresh-токеном")

	// Авторизация
	ErrEmptyAuthHeader    = fmt.Errorf("заголовок авторизации отсутствует")
	ErrInvalidAuthHeader  = fmt.Errorf("неверный формат заголовка авторизации")
	ErrInvalidCredentials = fmt.Errorf("неверные учётные данные")
	ErrForbidden          = fmt.Errorf("доступ запрещён")

	// Контекст
	ErrEmployeeIDNotFoundInContext = fmt.Errorf("EmployeeID не найден в контексте запроса")

	// Общие
	ErrNotFound   = fmt.Errorf("запись не найдена")
	ErrBadRequest = fmt.Errorf("неверный запрос")

	// Очередь заявлений: отказы по предусловиям, не фатальные ошибки.
	// Вызывающая сторона различает их и показывает точное сообщение.
	ErrQueueEmpty        = fmt.Errorf("очередь пуста")
	ErrAlreadyPriority   = fmt.Errorf("заявление уже приоритетное")
	ErrNotQueued         = fmt.Errorf("заявление не находится в очереди")
	ErrNotProblemQueue   = fmt.Errorf("заявление не находится в проблемной очереди")
	ErrUnknownQueueType  = fmt.Errorf("неизвестный тип очереди")
	ErrUnknownResolution = fmt.Errorf("неизвестное решение по проблемному делу")

	// Рабочее время
	ErrDayAlreadyFinished = fmt.Errorf("рабочий день уже завершён сегодня")
	ErrNoActiveDay        = fmt.Errorf("рабочий день не начат")
	ErrBreakAlreadyOpen   = fmt.Errorf("перерыв уже начат")
	ErrNoOpenBreak        = fmt.Errorf("активный перерыв не найден")
)

// HttpError связывает доменную ошибку с HTTP-кодом и сообщением для клиента.
type HttpError struct {
	Code    int
	Message string
	Err     error
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err}
}
