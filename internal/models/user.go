// models содержит доменные сущности портала.
// Эти типы используются слоями бизнес-логики, хранилища и транспорта.
package models

import "time"

// User — зарегистрированный пользователь.
//
// Особенности:
//   - Email хранится в нижнем регистре и уникален;
//   - PasswordHash равен nil для аккаунтов, созданных через OAuth;
//   - роли (IsAdmin/IsVerified) читаются из хранилища на каждый запрос.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash *string
	GitHubID     *string
	Avatar       *string
	IsVerified   bool
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// OwnerID — владелец профиля совпадает с самим пользователем.
func (u User) OwnerID() int64 { return u.ID }

// Identity возвращает аутентифицированного субъекта по актуальной записи.
func (u User) Identity() Identity {
	return Identity{
		ID:         u.ID,
		Email:      u.Email,
		IsAdmin:    u.IsAdmin,
		IsVerified: u.IsVerified,
	}
}

// UserCreate — данные для создания пользователя.
// nil-поля не попадают в INSERT.
type UserCreate struct {
	Name         string
	Email        string
	PasswordHash *string
	GitHubID     *string
	Avatar       *string
	IsVerified   bool
	IsAdmin      bool
}

// UserUpdate — частичное обновление: применяются только не-nil поля.
type UserUpdate struct {
	Name         *string
	Avatar       *string
	GitHubID     *string
	PasswordHash *string
	IsVerified   *bool
	IsAdmin      *bool
}

// Empty сообщает, что обновлять нечего.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Avatar == nil && u.GitHubID == nil &&
		u.PasswordHash == nil && u.IsVerified == nil && u.IsAdmin == nil
}

// UserCounts — агрегаты по пользователям для админской статистики.
type UserCounts struct {
	Total    int64
	Admins   int64
	Verified int64
}

// AdminStats — сводная статистика портала.
type AdminStats struct {
	TotalUsers    int64 `json:"total_users"`
	TotalNews     int64 `json:"total_news"`
	TotalComments int64 `json:"total_comments"`
	AdminUsers    int64 `json:"admin_users"`
	VerifiedUsers int64 `json:"verified_users"`
	RegularUsers  int64 `json:"regular_users"`
}
