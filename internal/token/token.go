// token выпускает и проверяет access-токены (JWT, HS256).
//
// Claims: sub (id пользователя строкой), email, is_admin, is_verified,
// iss, iat, exp. Проверка требует подписи тем же ключом, exp > now,
// совпадения iss и наличия email. sub принимается и строкой, и числом.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pribylovaa/news-portal/internal/config"
	"github.com/pribylovaa/news-portal/internal/models"
)

var (
	// ErrInvalidToken — подпись, формат или обязательные claims не прошли проверку.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired — срок токена истёк. Всегда сопровождается ErrInvalidToken.
	ErrTokenExpired = errors.New("token expired")
	// ErrEmptySecret — ключ подписи не задан.
	ErrEmptySecret = errors.New("jwt secret is empty")
)

const defaultAccessTTL = 30 * time.Minute

// Codec — выпуск/проверка access-токенов. Неизменяем после создания.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewCodec создаёт Codec из конфигурации.
func NewCodec(cfg config.AuthConfig) (*Codec, error) {
	const op = "token.NewCodec"

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptySecret)
	}

	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = defaultAccessTTL
	}

	return &Codec{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    ttl,
	}, nil
}

// TTL — время жизни выпускаемых токенов.
func (c *Codec) TTL() time.Duration { return c.ttl }

// IssueAccess подписывает токен для identity и возвращает его вместе с моментом истечения.
//
// iat и exp в JWT целочисленные, поэтому now усекается до секунд и срок
// отсчитывается от начала секунды выпуска: токен, выпущенный в t, действителен
// при t' < floor(t)+ttl, то есть истекает не более чем на секунду раньше t+ttl.
// Возвращаемый момент совпадает с exp в токене.
func (c *Codec) IssueAccess(id models.Identity, now time.Time) (string, time.Time, error) {
	const op = "token.IssueAccess"

	if id.ID <= 0 || id.Email == "" {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	now = now.Truncate(time.Second)
	exp := jwt.NewNumericDate(now.Add(c.ttl))

	claims := jwt.MapClaims{
		"sub":         strconv.FormatInt(id.ID, 10),
		"email":       id.Email,
		"is_admin":    id.IsAdmin,
		"is_verified": id.IsVerified,
		"iat":         jwt.NewNumericDate(now),
		"exp":         exp,
	}
	if c.issuer != "" {
		claims["iss"] = c.issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, exp.UTC(), nil
}

// VerifyAccess проверяет токен на момент now и возвращает identity из claims.
// Истёкший токен даёт ошибку, для которой верны и ErrTokenExpired, и ErrInvalidToken.
func (c *Codec) VerifyAccess(tokenStr string, now time.Time) (models.Identity, error) {
	const op = "token.VerifyAccess"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithJSONNumber(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Identity{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, ErrTokenExpired)
		}

		return models.Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	id, err := subject(claims["sub"])
	if err != nil {
		return models.Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return models.Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	isAdmin, _ := claims["is_admin"].(bool)
	isVerified, _ := claims["is_verified"].(bool)

	return models.Identity{
		ID:         id,
		Email:      email,
		IsAdmin:    isAdmin,
		IsVerified: isVerified,
	}, nil
}

// subject разбирает sub, записанный строкой или числом.
func subject(v any) (int64, error) {
	var (
		id  int64
		err error
	)

	switch s := v.(type) {
	case string:
		id, err = strconv.ParseInt(s, 10, 64)
	case json.Number:
		id, err = s.Int64()
	default:
		return 0, ErrInvalidToken
	}

	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}

	return id, nil
}
