// password хэширует и проверяет пароли.
//
// Формат хранения — PHC-строка argon2id:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
//
// Для совместимости со старыми учётками Verify принимает и bcrypt-хэши
// ($2a$/$2b$/$2y$); NeedsRehash подсказывает, что такой хэш пора заменить.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/news-portal/internal/config"
)

var (
	// ErrEmptyPassword — пустой пароль хэшировать нельзя.
	ErrEmptyPassword = errors.New("password is empty")
	// ErrInvalidHash — строка не является argon2id PHC-хэшем.
	ErrInvalidHash = errors.New("invalid hash format")
)

const (
	saltLength = 16
	keyLength  = 32
)

// Hasher хранит параметры argon2id. Безопасен для конкурентного использования.
type Hasher struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

// New создаёт Hasher; нулевые параметры заменяются значениями по умолчанию.
func New(cfg config.PasswordConfig) *Hasher {
	h := &Hasher{
		memory:      cfg.Memory,
		iterations:  cfg.Iterations,
		parallelism: cfg.Parallelism,
	}

	if h.memory == 0 {
		h.memory = 64 * 1024
	}
	if h.iterations == 0 {
		h.iterations = 3
	}
	if h.parallelism == 0 {
		h.parallelism = 2
	}

	return h
}

// Hash возвращает PHC-строку. Соль случайна, длина результата для
// фиксированных параметров постоянна.
func (h *Hasher) Hash(plain string) (string, error) {
	const op = "password.Hash"

	if plain == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	key := argon2.IDKey([]byte(plain), salt, h.iterations, h.memory, h.parallelism, keyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.iterations, h.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify сравнивает пароль с хэшем за постоянное время.
// Битый или неизвестный формат хэша — просто false.
func (h *Hasher) Verify(plain, encoded string) bool {
	if plain == "" || encoded == "" {
		return false
	}

	if isBcrypt(encoded) {
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain)) == nil
	}

	p, salt, want, err := decode(encoded)
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(plain), salt, p.iterations, p.memory, p.parallelism, uint32(len(want)))

	return subtle.ConstantTimeCompare(want, got) == 1
}

// NeedsRehash сообщает, что хэш не argon2id или посчитан с другими параметрами.
func (h *Hasher) NeedsRehash(encoded string) bool {
	p, _, key, err := decode(encoded)
	if err != nil {
		return true
	}

	return p.memory != h.memory || p.iterations != h.iterations ||
		p.parallelism != h.parallelism || len(key) != keyLength
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

type params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

func decode(encoded string) (params, []byte, []byte, error) {
	var p params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, ErrInvalidHash
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return p, nil, nil, ErrInvalidHash
	}

	if p.memory == 0 || p.iterations == 0 || p.parallelism == 0 {
		return p, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, ErrInvalidHash
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrInvalidHash
	}

	return p, salt, key, nil
}
