package models

import "time"

// RefreshSession — серверная сессия, за которой стоит refresh-токен.
//
// Описание:
//   - TokenHash — base64url(sha256(token)), единственное, что лежит в БД;
//   - RefreshToken — «сырой» токен, заполняется только в момент выпуска;
//   - сессия мертва, как только наступил ExpiresAt (выборки фильтруют такие строки).
type RefreshSession struct {
	ID           int64
	UserID       int64
	TokenHash    string
	RefreshToken string
	UserAgent    string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

func (s RefreshSession) OwnerID() int64 { return s.UserID }

// Active сообщает, жива ли сессия на момент now.
func (s RefreshSession) Active(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
