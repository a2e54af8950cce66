package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpExpiry         = 5 * time.Minute
	otpResendCooldown = 60 * time.Second
	otpMaxAttempts    = 5
	otpSendWindow     = time.Hour
	otpMaxPerWindow   = 5
	verifiedClaimTTL  = 10 * time.Minute
	devModeCode       = "123456"
)

var (
	// ErrInvalidCode covers wrong, expired and consumed codes alike so the
	// response never reveals which one it was.
	ErrInvalidCode = errors.New("invalid or expired verification code")
	// ErrCooldown is returned when a resend arrives inside the cooldown window
	ErrCooldown = errors.New("verification code was just sent, wait before resending")
	// ErrRateLimited is returned when the per-phone send or attempt budget is spent
	ErrRateLimited = errors.New("too many verification attempts, try again later")
)

// SMSSender delivers a one-time code to a phone number. Actual delivery is an
// external collaborator; the default implementation only logs.
type SMSSender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// LogSMSSender writes codes to the process log instead of sending them
type LogSMSSender struct{}

func (LogSMSSender) SendCode(ctx context.Context, phone, code string) error {
	log.Printf("SMS to %s: your Only Friends code is %s", phone, code)
	return nil
}

// OtpProvider defines the verification-code operations the auth handler needs
type OtpProvider interface {
	RequestCode(ctx context.Context, phone string) error
	VerifyCode(ctx context.Context, phone, code string) error
	MarkVerified(ctx context.Context, phone string) error
	ConsumeVerifiedClaim(ctx context.Context, phone string) (bool, error)
}

// RedisOtpProvider stores hashed codes, attempt counters, resend cooldowns
// and verified-phone claims in Redis with TTLs.
type RedisOtpProvider struct {
	rdb     *redis.Client
	sender  SMSSender
	salt    string
	devMode bool
}

// NewRedisOtpProvider creates a Redis-backed OTP provider. In dev mode no SMS
// is sent and only the fixed code "123456" verifies.
func NewRedisOtpProvider(rdb *redis.Client, sender SMSSender, salt string, devMode bool) *RedisOtpProvider {
	return &RedisOtpProvider{rdb: rdb, sender: sender, salt: salt, devMode: devMode}
}

func otpCodeKey(phone string) string     { return "otp:code:" + phone }
func otpAttemptKey(phone string) string  { return "otp:attempts:" + phone }
func otpCooldownKey(phone string) string { return "otp:cooldown:" + phone }
func otpWindowKey(phone string) string   { return "otp:window:" + phone }
func verifiedKey(phone string) string    { return "otp:verified:" + phone }

// RequestCode generates a 6-digit code, stores only its hash and hands the
// plaintext to the SMS sender. A resend replaces the previous code, so the
// old code stops verifying the moment a new one is issued.
func (p *RedisOtpProvider) RequestCode(ctx context.Context, phone string) error {
	ok, err := p.rdb.SetNX(ctx, otpCooldownKey(phone), "1", otpResendCooldown).Result()
	if err != nil {
		return fmt.Errorf("otp cooldown check: %w", err)
	}
	if !ok {
		return ErrCooldown
	}

	sends, err := p.rdb.Incr(ctx, otpWindowKey(phone)).Result()
	if err != nil {
		return fmt.Errorf("otp window check: %w", err)
	}
	if sends == 1 {
		p.rdb.Expire(ctx, otpWindowKey(phone), otpSendWindow)
	}
	if sends > otpMaxPerWindow {
		return ErrRateLimited
	}

	code := devModeCode
	if !p.devMode {
		code, err = generateCode()
		if err != nil {
			return fmt.Errorf("generate verification code: %w", err)
		}
	}

	pipe := p.rdb.TxPipeline()
	pipe.Set(ctx, otpCodeKey(phone), hashCodeHex(phone, code, p.salt), otpExpiry)
	pipe.Del(ctx, otpAttemptKey(phone))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store otp session: %w", err)
	}

	if p.devMode {
		return nil
	}
	if err := p.sender.SendCode(ctx, phone, code); err != nil {
		return fmt.Errorf("send verification code: %w", err)
	}
	return nil
}

// VerifyCode checks the submitted code against the stored hash with an
// attempt limit, consuming the session on success.
func (p *RedisOtpProvider) VerifyCode(ctx context.Context, phone, code string) error {
	storedHex, err := p.rdb.Get(ctx, otpCodeKey(phone)).Result()
	if err == redis.Nil {
		return ErrInvalidCode
	}
	if err != nil {
		return fmt.Errorf("load otp session: %w", err)
	}

	attempts, err := p.rdb.Incr(ctx, otpAttemptKey(phone)).Result()
	if err != nil {
		return fmt.Errorf("record otp attempt: %w", err)
	}
	if attempts == 1 {
		p.rdb.Expire(ctx, otpAttemptKey(phone), otpExpiry)
	}
	if attempts > otpMaxAttempts {
		p.rdb.Del(ctx, otpCodeKey(phone))
		return ErrRateLimited
	}

	stored, err := hex.DecodeString(storedHex)
	if err != nil {
		return ErrInvalidCode
	}
	provided := hashCodeBytes(phone, code, p.salt)
	if subtle.ConstantTimeCompare(provided, stored) != 1 {
		return ErrInvalidCode
	}

	p.rdb.Del(ctx, otpCodeKey(phone), otpAttemptKey(phone))
	return nil
}

// MarkVerified records a verified-phone claim so registration can complete
// without re-running verification
func (p *RedisOtpProvider) MarkVerified(ctx context.Context, phone string) error {
	return p.rdb.Set(ctx, verifiedKey(phone), "1", verifiedClaimTTL).Err()
}

// ConsumeVerifiedClaim atomically takes the verified-phone claim, reporting
// whether one existed
func (p *RedisOtpProvider) ConsumeVerifiedClaim(ctx context.Context, phone string) (bool, error) {
	n, err := p.rdb.Del(ctx, verifiedKey(phone)).Result()
	if err != nil {
		return false, fmt.Errorf("consume verified claim: %w", err)
	}
	return n > 0, nil
}

// generateCode draws a 6-digit code from crypto/rand
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// hashCodeHex returns SHA-256(phone:code:salt) as hex for storage
func hashCodeHex(phone, code, salt string) string {
	return hex.EncodeToString(hashCodeBytes(phone, code, salt))
}

func hashCodeBytes(phone, code, salt string) []byte {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", phone, code, salt)))
	return sum[:]
}
