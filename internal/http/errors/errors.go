// errors стандартизирует ответы об ошибках HTTP-слоя портала.
// На вход он принимает доменную ошибку (сентинелы service/access/password),
// а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Для отказов в доступе (*access.Denial) наружу уходит причина отказа,
// для 401 сообщение всегда одно и то же.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/news-portal/internal/access"
	"github.com/pribylovaa/news-portal/internal/pkg/password"
	"github.com/pribylovaa/news-portal/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// BadRequest — ошибка разбора/валидации запроса на уровне транспорта.
// Msg безопасно показывать клиенту.
type BadRequest struct {
	Msg string
}

func (e *BadRequest) Error() string { return "invalid argument: " + e.Msg }
func (e *BadRequest) Unwrap() error { return service.ErrInvalidArgument }

// InvalidArgument — короткий конструктор BadRequest.
func InvalidArgument(msg string) error { return &BadRequest{Msg: msg} }

// ToHTTP конвертирует доменную ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - это программная ошибка вызова: возвращаем 500/internal,
//     чтобы не послать "200 OK" с телом ошибки и не маскировать баг;
//   - известные сентинелы маппятся по таблице ниже (errors.Is/As);
//   - всё прочее - 500/internal (без утечки деталей).
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := classify(err)
	return status, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	// Прокидываем request_id для фронта, чтобы он мог репортить баги с привязкой.
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// classify — таблица доменная ошибка -> HTTP/FE-код/сообщение:
//   - ErrInvalidArgument, ErrEmptyPassword, BadRequest -> 400
//   - ErrUnauthenticated, ErrInvalidCredentials, ErrInvalidToken -> 401
//   - Denial{ErrPolicyViolation} -> 403 policy_violation
//   - Denial{ErrForbidden} -> 403 permission_denied
//   - ErrNotFound -> 404
//   - ErrEmailTaken -> 409
//   - ErrUnavailable -> 503
//   - context.Canceled -> 499, context.DeadlineExceeded -> 504
//   - прочее -> 500/internal
func classify(err error) (int, string, string) {
	if err == nil {
		return http.StatusInternalServerError, "internal", "internal error"
	}

	var br *BadRequest
	if stderrors.As(err, &br) {
		return http.StatusBadRequest, "invalid_argument", br.Msg
	}

	var denial *access.Denial
	if stderrors.As(err, &denial) {
		reason := denial.Reason
		if stderrors.Is(denial, access.ErrPolicyViolation) {
			if reason == "" {
				reason = "policy violation"
			}
			return http.StatusForbidden, "policy_violation", reason
		}
		if reason == "" {
			reason = "permission denied"
		}
		return http.StatusForbidden, "permission_denied", reason
	}

	switch {
	case stderrors.Is(err, service.ErrInvalidArgument), stderrors.Is(err, password.ErrEmptyPassword):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case stderrors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "unauthenticated", service.ErrInvalidCredentials.Error()
	case stderrors.Is(err, access.ErrUnauthenticated), stderrors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case stderrors.Is(err, access.ErrPolicyViolation):
		return http.StatusForbidden, "policy_violation", "policy violation"
	case stderrors.Is(err, access.ErrForbidden):
		return http.StatusForbidden, "permission_denied", "permission denied"
	case stderrors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case stderrors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, "already_exists", "email already registered"
	case stderrors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable", "service unavailable"
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
