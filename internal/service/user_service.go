package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/metrics"
	"cobranza-bot/internal/repository"
)

// UserService coordina registro y login de operadores.
type UserService struct {
	logger       *zap.Logger
	users        repository.UserRepository
	loginLimiter RateLimiter
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, loginLimiter RateLimiter) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loginLimiter == nil {
		loginLimiter = NewRateLimiter(loginWindow, 5)
	}
	return &UserService{
		logger:       logger,
		users:        users,
		loginLimiter: loginLimiter,
	}
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("El email ya está registrado")
	ErrRateLimited        = errors.New("rate limited")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password must have at least 6 characters")
)

const (
	loginWindow       = time.Minute
	minPasswordLength = 6
)

// Register crea un usuario con rol operador, o admin si se pide explícitamente.
func (s *UserService) Register(ctx context.Context, emailAddr, password, role string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	if !validEmail(emailAddr) {
		return domain.User{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return domain.User{}, ErrWeakPassword
	}
	if role != domain.RoleAdmin {
		role = domain.RoleOperator
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.users.Create(ctx, domain.User{
		Email:        emailAddr,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	metrics.SecurityEvents.WithLabelValues("user_registered").Inc()
	s.logger.Info("user_registered", zap.Int64("user_id", user.ID), zap.String("role", user.Role))
	return user, nil
}

func (s *UserService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if !s.loginLimiter.Allow(emailAddr) {
		metrics.SecurityEvents.WithLabelValues("rate_limited").Inc()
		s.logger.Warn("rate_limited", zap.String("scope", "login"), zap.String("email", emailAddr))
		return domain.User{}, ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.loginFailed(emailAddr)
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		s.loginFailed(emailAddr)
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.loginFailed(emailAddr)
		return domain.User{}, ErrInvalidCredentials
	}

	metrics.SecurityEvents.WithLabelValues("login_success").Inc()
	s.logger.Info("login_success", zap.Int64("user_id", user.ID))
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) loginFailed(emailAddr string) {
	metrics.SecurityEvents.WithLabelValues("login_failed").Inc()
	s.logger.Warn("login_failed", zap.String("email", emailAddr))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}
