package models

import "time"

// Identity — аутентифицированный субъект запроса.
// Строится из claims access-токена и сверяется с живой записью пользователя.
type Identity struct {
	ID         int64
	Email      string
	IsAdmin    bool
	IsVerified bool
}

// TokenPair — пара токенов, выдаваемая при входе/регистрации/обновлении.
//
// Описание:
//   - AccessToken — короткоживущий JWT для доступа к API;
//   - RefreshToken — случайный секрет для обновления пары; на сервере хранится только его хэш;
//   - AccessExpiresAt/RefreshExpiresAt — моменты истечения (UTC).
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AuthResult — итог register/login/OAuth-входа.
type AuthResult struct {
	User    *User
	Tokens  TokenPair
	Session *RefreshSession
}
