package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/db"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/httpx"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo      Repository
	tokens    *TokenStore
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, tokens *TokenStore, secret []byte, accessTTL time.Duration) *Service {
	return &Service{
		repo:      repo,
		tokens:    tokens,
		secret:    secret,
		accessTTL: accessTTL,
		now:       time.Now,
	}
}

// Login validates credentials and issues a token pair. Unknown email, wrong
// password, and deactivated account are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	account, err := s.repo.FindAccountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("auth: find account: %w", err)
	}
	if account == nil || !account.IsActive {
		return nil, fmt.Errorf("invalid credentials: %w", httpx.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", httpx.ErrUnauthorized)
	}
	return s.session(ctx, account)
}

// RegisterInput collects the company and owner fields for sign-up.
type RegisterInput struct {
	CompanyName    string
	CompanyEmail   string
	CompanyPhone   string
	CompanyAddress string
	OwnerEmail     string
	OwnerPassword  string
	FirstName      string
	LastName       string
	Phone          string
}

// Register creates a company and its owner account, then signs the owner in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.OwnerPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	account, err := s.repo.CreateCompanyWithOwner(ctx,
		CompanyInput{Name: in.CompanyName, Email: in.CompanyEmail, Phone: in.CompanyPhone, Address: in.CompanyAddress},
		OwnerInput{Email: in.OwnerEmail, PasswordHash: string(hash), FirstName: in.FirstName, LastName: in.LastName, Phone: in.Phone},
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("email already registered: %w", httpx.ErrConflict)
		}
		return nil, fmt.Errorf("auth: register: %w", err)
	}
	return s.session(ctx, account)
}

// Refresh rotates a refresh token and issues a fresh access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	id, err := s.tokens.Consume(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenInvalid) {
			return nil, fmt.Errorf("refresh token invalid: %w", httpx.ErrUnauthorized)
		}
		return nil, err
	}
	return s.issuePair(ctx, id)
}

// Logout revokes the refresh token. The access token simply ages out.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.Revoke(ctx, refreshToken)
}

func (s *Service) session(ctx context.Context, account *Account) (*Session, error) {
	pair, err := s.issuePair(ctx, shared.Identity{
		UserID:    account.ID,
		CompanyID: account.CompanyID,
		Role:      account.Role,
	})
	if err != nil {
		return nil, err
	}
	return &Session{
		TokenPair: *pair,
		UserID:    account.ID,
		CompanyID: account.CompanyID,
		Email:     account.Email,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Role:      account.Role,
	}, nil
}

func (s *Service) issuePair(ctx context.Context, id shared.Identity) (*TokenPair, error) {
	access, err := IssueAccessToken(s.secret, id, s.accessTTL, s.now())
	if err != nil {
		return nil, fmt.Errorf("auth: sign access token: %w", err)
	}
	refresh, err := s.tokens.Issue(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
