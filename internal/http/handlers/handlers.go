package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pribylovaa/news-portal/internal/access"
	"github.com/pribylovaa/news-portal/internal/config"
	apierrors "github.com/pribylovaa/news-portal/internal/http/errors"
	"github.com/pribylovaa/news-portal/internal/http/middleware"
	"github.com/pribylovaa/news-portal/internal/models"
	"github.com/pribylovaa/news-portal/internal/service"
)

// maxBodyBytes ограничивает размер JSON-тела запроса.
const maxBodyBytes = 1 << 20

// Handlers агрегирует зависимости REST-хендлеров.
type Handlers struct {
	svc      *service.Service
	oauth    config.OAuthConfig
	validate *validator.Validate
}

func New(svc *service.Service, oauth config.OAuthConfig) *Handlers {
	v := validator.New()

	// В сообщениях об ошибках используем имена из json-тегов.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(fld.Name)
		}
		return name
	})

	return &Handlers{svc: svc, oauth: oauth, validate: v}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля и хвосты.
// После разбора DTO прогоняется через validator.
func (h *Handlers) decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return apierrors.InvalidArgument("malformed json body")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apierrors.InvalidArgument("unexpected data after json body")
	}

	if err := h.validate.Struct(value); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apierrors.InvalidArgument(formatValidation(verrs))
		}
		return apierrors.InvalidArgument("invalid request")
	}

	return nil
}

func formatValidation(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := fe.Field()

		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed validation for %s", field, fe.Tag()))
		}
	}

	return strings.Join(msgs, "; ")
}

// pathID разбирает положительный int64 из параметра пути.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierrors.InvalidArgument("invalid " + name)
	}

	return id, nil
}

// listParams читает skip/limit из query; границы проверяет сервис.
func listParams(r *http.Request) (models.ListParams, error) {
	var p models.ListParams
	q := r.URL.Query()

	if v := q.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, apierrors.InvalidArgument("invalid skip")
		}
		p.Skip = n
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, apierrors.InvalidArgument("invalid limit")
		}
		p.Limit = n
	}

	return p, nil
}

// identity достаёт субъекта запроса, положенного middleware.RequireAuth.
func identity(r *http.Request) (models.Identity, error) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		return models.Identity{}, access.ErrUnauthenticated
	}

	return id, nil
}
