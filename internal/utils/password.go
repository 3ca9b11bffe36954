package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2SaltLen = 16

// Argon2Params 密码哈希参数，来自security.password配置段
type Argon2Params struct {
	Time     uint32
	MemoryKB uint32
	Threads  uint8
	KeyLen   uint32
}

// DefaultArgon2Params 默认哈希参数
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:     1,
		MemoryKB: 64 * 1024,
		Threads:  4,
		KeyLen:   32,
	}
}

// Normalize 配置缺省项回退到默认值
func (p Argon2Params) Normalize() Argon2Params {
	def := DefaultArgon2Params()
	if p.Time == 0 {
		p.Time = def.Time
	}
	if p.MemoryKB == 0 {
		p.MemoryKB = def.MemoryKB
	}
	if p.Threads == 0 {
		p.Threads = def.Threads
	}
	if p.KeyLen == 0 {
		p.KeyLen = def.KeyLen
	}
	return p
}

// HashPassword 使用默认参数哈希密码
func HashPassword(password string) (string, error) {
	return HashPasswordWithParams(password, DefaultArgon2Params())
}

// HashPasswordWithParams 哈希密码，产出自描述的argon2id编码串
// 格式: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func HashPasswordWithParams(password string, params Argon2Params) (string, error) {
	params = params.Normalize()

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("生成盐失败: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, params.Time, params.MemoryKB, params.Threads, params.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, params.MemoryKB, params.Time, params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// VerifyPassword 校验密码，参数从编码串自身解出，与当前配置无关
func VerifyPassword(password, encoded string) (bool, error) {
	params, salt, key, err := decodeArgon2(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, params.Time, params.MemoryKB, params.Threads, params.KeyLen)
	return subtle.ConstantTimeCompare(key, computed) == 1, nil
}

// decodeArgon2 解析编码串
func decodeArgon2(encoded string) (Argon2Params, []byte, []byte, error) {
	var params Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, fmt.Errorf("无法识别的密码哈希格式")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, err
	}
	if version != argon2.Version {
		return params, nil, nil, fmt.Errorf("不兼容的argon2版本: %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&params.MemoryKB, &params.Time, &params.Threads); err != nil {
		return params, nil, nil, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, err
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, err
	}

	params.KeyLen = uint32(len(key))
	return params, salt, key, nil
}

// GenerateRandomString 生成URL安全的随机字符串
func GenerateRandomString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes)[:length], nil
}

// GenerateSessionID 生成会话ID（写入JWT声明）
func GenerateSessionID() (string, error) {
	return GenerateRandomString(32)
}
