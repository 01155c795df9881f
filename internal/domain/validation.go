package domain

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// 验证相关的错误定义
var (
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrEmailTooLong     = errors.New("email address too long")
	ErrLocalPartTooLong = errors.New("local part too long (max 64 chars)")
	ErrDomainTooLong    = errors.New("domain too long (max 253 chars)")
	ErrInvalidLocalPart = errors.New("invalid local part format")
	ErrInvalidDomain    = errors.New("invalid domain format")
)

// 验证常量
const (
	// RFC 5322 邮箱地址长度限制
	MaxEmailLength     = 254 // 整个邮箱地址最大长度
	MaxLocalPartLength = 64  // 本地部分最大长度(@前面)
	MaxDomainLength    = 253 // 域名最大长度
)

// 正则表达式
var (
	// 本地部分验证
	localPartRegex = regexp.MustCompile(`^[a-zA-Z0-9!#$%&'*+/=?^_{|}~-]+(\.[a-zA-Z0-9!#$%&'*+/=?^_{|}~-]+)*$`)

	// 域名验证（至少包含一个点，支持子域名）
	domainRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)
)

// EmailValidator 邮箱验证器
type EmailValidator struct{}

// NewEmailValidator 创建邮箱验证器
func NewEmailValidator() *EmailValidator {
	return &EmailValidator{}
}

// ValidateEmail 完整验证邮箱地址
func (v *EmailValidator) ValidateEmail(email string) error {
	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}

	// 拒绝带显示名或尖括号的写法，只接受裸地址
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return ErrInvalidEmail
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ErrInvalidEmail
	}

	if err := v.ValidateLocalPart(email[:at]); err != nil {
		return err
	}
	return v.ValidateDomain(email[at+1:])
}

// ValidateLocalPart 验证邮箱本地部分
func (v *EmailValidator) ValidateLocalPart(localPart string) error {
	if localPart == "" {
		return ErrInvalidLocalPart
	}
	if len(localPart) > MaxLocalPartLength {
		return ErrLocalPartTooLong
	}
	if !localPartRegex.MatchString(localPart) {
		return ErrInvalidLocalPart
	}
	return nil
}

// ValidateDomain 验证域名
func (v *EmailValidator) ValidateDomain(domain string) error {
	if domain == "" {
		return ErrInvalidDomain
	}
	if len(domain) > MaxDomainLength {
		return ErrDomainTooLong
	}
	if !domainRegex.MatchString(domain) {
		return ErrInvalidDomain
	}
	return nil
}

// IsEmail 判断字符串是否为合法邮箱地址
func IsEmail(email string) bool {
	return NewEmailValidator().ValidateEmail(email) == nil
}

// EmailDomain 返回邮箱的域名部分（小写）
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// EmailName 返回邮箱的本地部分，用作默认账户名
func EmailName(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at]
}

// ValidateAccountName 账户名长度不能超过 MaxAccountNameLength 个字符
func ValidateAccountName(name string) bool {
	return utf8.RuneCountInString(name) <= MaxAccountNameLength
}
