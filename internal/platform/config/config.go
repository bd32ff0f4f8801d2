package config

import "os"

// UserService carries everything the identity binary needs at startup.
type UserService struct {
	Addr                   string
	JWTSigningKey          string
	CaptchaSecret          string
	CaptchaVerifyURL       string
	VerificationServiceURL string
	DatabaseURL            string
}

// VerificationService carries everything the verification binary needs.
type VerificationService struct {
	Addr     string
	RedisURL string
}

// UserServiceFromEnv builds the identity service config from environment
// variables so main stays lean.
func UserServiceFromEnv() UserService {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - must be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return UserService{
		Addr:                   envOr("NEXUS_USER_ADDR", ":8081"),
		JWTSigningKey:          jwtSigningKey,
		CaptchaSecret:          os.Getenv("CAPTCHA_SECRET"),
		CaptchaVerifyURL:       os.Getenv("CAPTCHA_VERIFY_URL"),
		VerificationServiceURL: envOr("VERIFICATION_SERVICE_URL", "http://localhost:8082"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
	}
}

// VerificationServiceFromEnv builds the verification service config.
func VerificationServiceFromEnv() VerificationService {
	return VerificationService{
		Addr:     envOr("NEXUS_VERIFY_ADDR", ":8082"),
		RedisURL: os.Getenv("REDIS_URL"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
