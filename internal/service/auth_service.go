package service

import (
	"context"
	"fmt"
	"time"

	"shiplabel-gateway/internal/core/domain"
	"shiplabel-gateway/internal/core/ports"
	"shiplabel-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	accountRepo ports.AccountRepository
	walletRepo  ports.WalletRepository
	subRepo     ports.SubscriptionRepository
	hashSvc     ports.HashService
	tokenSvc    ports.TokenService
	log         zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	accountRepo ports.AccountRepository,
	walletRepo ports.WalletRepository,
	subRepo ports.SubscriptionRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		accountRepo: accountRepo,
		walletRepo:  walletRepo,
		subRepo:     subRepo,
		hashSvc:     hashSvc,
		tokenSvc:    tokenSvc,
		log:         log,
	}
}

// Register creates a new account with its wallet (seeded with the initial
// grant) and the initial STANDARD subscription.
func (s *AuthServiceImpl) Register(ctx context.Context, email, password string) (*domain.Account, error) {
	existing, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrEmailExists()
	}

	passwordHash, err := s.hashSvc.Hash(password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create account: %w", err))
	}

	wallet := &domain.Wallet{
		ID:           uuid.New(),
		AccountID:    account.ID,
		Balance:      domain.InitialGrant,
		InitialGrant: domain.InitialGrant,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	if err := s.subRepo.Create(ctx, domain.NewSubscription(account.ID, now)); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create subscription: %w", err))
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Msg("account registered")

	return account, nil
}

// Login validates credentials and returns a JWT token with its expiry.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	account, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	ok, err := s.hashSvc.Verify(password, account.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiresAt, err := s.tokenSvc.Generate(account.ID, account.Email)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}
	return token, expiresAt, nil
}
