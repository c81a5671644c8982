// access — политики доступа к ресурсам портала.
//
// Политики — чистые функции от (identity, ресурс): nil означает «разрешено»,
// иначе *Denial. Denial разворачивается в один из сентинелов
// (ErrForbidden, ErrPolicyViolation и их уточнения), по которым
// транспорт выбирает HTTP-статус.
package access

import (
	"errors"
	"strings"

	"github.com/pribylovaa/news-portal/internal/models"
)

var (
	// ErrUnauthenticated — токен отсутствует/невалиден или пользователь удалён. HTTP 401.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden — прав не хватает. HTTP 403.
	ErrForbidden = errors.New("forbidden")
	// ErrPolicyViolation — действие запрещено бизнес-правилом. HTTP 403.
	ErrPolicyViolation = errors.New("policy violation")

	// Уточнения политики удаления пользователей; каждое оборачивает ErrPolicyViolation.
	ErrSelfDeletion          = policyError("cannot delete your own account")
	ErrAdminDeletion         = policyError("cannot delete another admin account")
	ErrSystemAccountDeletion = policyError("cannot delete the system account")
)

type policyErr struct{ msg string }

func (e *policyErr) Error() string { return e.msg }
func (e *policyErr) Unwrap() error { return ErrPolicyViolation }

func policyError(msg string) error { return &policyErr{msg: msg} }

// Denial — отказ в доступе с причиной для клиента.
type Denial struct {
	Kind   error
	Reason string
}

func (d *Denial) Error() string {
	if d.Reason == "" {
		return d.Kind.Error()
	}

	return d.Kind.Error() + ": " + d.Reason
}

func (d *Denial) Unwrap() error { return d.Kind }

func forbid(reason string) error {
	return &Denial{Kind: ErrForbidden, Reason: reason}
}

// Owned — ресурс с владельцем (author_id/user_id).
type Owned interface {
	OwnerID() int64
}

// VerifiedOrAdmin требуется для публикации новостей.
func VerifiedOrAdmin(id models.Identity) error {
	if id.IsVerified || id.IsAdmin {
		return nil
	}

	return forbid("user is not verified")
}

// AdminOnly — административные операции.
func AdminOnly(id models.Identity) error {
	if id.IsAdmin {
		return nil
	}

	return forbid("admin privileges required")
}

// OwnerOrAdmin разрешает изменение ресурса владельцу или администратору.
func OwnerOrAdmin[T Owned](id models.Identity, resource T) error {
	if id.IsAdmin || (id.ID != 0 && id.ID == resource.OwnerID()) {
		return nil
	}

	return forbid("not enough permissions")
}

// CanDeleteUser — правило удаления пользователя администратором:
// нельзя удалить себя, другого администратора и служебную учётную запись.
func CanDeleteUser(actor models.Identity, target models.User, systemEmail string) error {
	if err := AdminOnly(actor); err != nil {
		return err
	}

	switch {
	case actor.ID == target.ID:
		return &Denial{Kind: ErrSelfDeletion, Reason: ErrSelfDeletion.Error()}
	case systemEmail != "" && strings.EqualFold(target.Email, systemEmail):
		return &Denial{Kind: ErrSystemAccountDeletion, Reason: ErrSystemAccountDeletion.Error()}
	case target.IsAdmin:
		return &Denial{Kind: ErrAdminDeletion, Reason: ErrAdminDeletion.Error()}
	}

	return nil
}
