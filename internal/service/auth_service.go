package service

import (
	"context"
	"errors"
	"time"

	"go_saas_scaffold/internal/config"
	"go_saas_scaffold/internal/middleware"
	"go_saas_scaffold/internal/model"
	"go_saas_scaffold/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService interface {
	Register(ctx context.Context, req *model.RegisterRequest, meta RequestMeta) (*model.LoginResponse, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error)
	// Authenticate は middleware.UserAuthenticator の実装です
	Authenticate(ctx context.Context, userID uuid.UUID) (*model.User, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *model.UpdateProfileRequest, meta RequestMeta) (*model.User, error)
}

type authService struct {
	db          *gorm.DB
	userRepo    repository.UserRepository
	companyRepo repository.CompanyRepository
	audit       AuditRecorder
	cfg         *config.Config
}

func NewAuthService(db *gorm.DB, userRepo repository.UserRepository, companyRepo repository.CompanyRepository, audit AuditRecorder, cfg *config.Config) AuthService {
	return &authService{
		db:          db,
		userRepo:    userRepo,
		companyRepo: companyRepo,
		audit:       audit,
		cfg:         cfg,
	}
}

// Register は新しいユーザーを作成し、そのままログイン済みとしてトークンを返します。
func (s *authService) Register(ctx context.Context, req *model.RegisterRequest, meta RequestMeta) (*model.LoginResponse, error) {
	logger := middleware.GetLogger(ctx)
	var newUser *model.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Emailでの重複チェック
		_, err := s.userRepo.FindByEmail(ctx, tx, req.Email)
		if err == nil {
			logger.Warn("Email already exists", "email", req.Email)
			return model.NewAppError("DUPLICATE_EMAIL", "このメールアドレスは既に使用されています。", "email", model.ErrConflict)
		}
		if !errors.Is(err, model.ErrNotFound) {
			logger.Error("Failed to check email existence", "error", err)
			return model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部でエラーが発生しました。", "", err)
		}

		// 会社スラッグが指定されていれば所属を設定（有効な会社のみ）
		var companyID *uuid.UUID
		if req.CompanySlug != "" {
			company, err := s.companyRepo.FindActiveBySlug(ctx, tx, req.CompanySlug)
			if err != nil {
				if errors.Is(err, model.ErrNotFound) {
					logger.Warn("Register failed: company slug not found", "slug", req.CompanySlug)
					return model.NewAppError("COMPANY_NOT_FOUND", "指定された会社が見つかりません。", "company_slug", model.ErrInvalidInput)
				}
				return model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部でエラーが発生しました。", "", err)
			}
			companyID = &company.CompanyID
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("Failed to hash password", "error", err)
			return model.NewAppError("INTERNAL_SERVER_ERROR", "パスワードの処理中にエラーが発生しました。", "", err)
		}

		user := &model.User{
			UserID:       uuid.New(),
			Email:        req.Email,
			PasswordHash: string(hashedPassword),
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			IsActive:     true,
			CompanyID:    companyID,
			Permissions:  []string{},
		}

		if err := s.userRepo.Create(ctx, tx, user); err != nil {
			// レースコンディションでUNIQUE制約に当たった場合
			if errors.Is(err, model.ErrConflict) {
				logger.Warn("Conflict during user creation (race condition)", "error", err)
				return model.NewAppError("DUPLICATE_EMAIL", "このメールアドレスは既に使用されています。", "email", model.ErrConflict)
			}
			logger.Error("Failed to create user in DB", "error", err)
			return model.NewAppError("INTERNAL_SERVER_ERROR", "ユーザーの作成に失敗しました。", "", err)
		}
		newUser = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		CompanyID:   newUser.CompanyID,
		UserID:      &newUser.UserID,
		Action:      model.AuditActionCreate,
		ModelName:   "accounts.User",
		ObjectID:    newUser.UserID.String(),
		FieldName:   "email",
		NewValue:    newUser.Email,
		DataSubject: newUser.Email,
		Meta:        meta,
	})

	token, err := s.signToken(newUser)
	if err != nil {
		logger.Error("Failed to sign JWT after register", "error", err, "user_id", newUser.UserID)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "トークンの生成に失敗しました。", "", err)
	}

	logger.Info("User registered", "user_id", newUser.UserID, "email", newUser.Email)
	return &model.LoginResponse{AccessToken: token, User: model.NewUserResponse(newUser)}, nil
}

// Login はユーザーを認証し、JWTを返します
func (s *authService) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	logger := middleware.GetLogger(ctx).With("email", req.Email)

	user, err := s.userRepo.FindByEmail(ctx, s.db, req.Email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Warn("Login failed: user not found")
			// どちらが間違っているかは漏らさない
			return nil, model.NewAppError("AUTHENTICATION_FAILED", "メールアドレスまたはパスワードが正しくありません。", "", model.ErrUnauthenticated)
		}
		logger.Error("Login failed: db error on FindByEmail", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部エラー", "", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		logger.Warn("Login failed: password mismatch", "user_id", user.UserID)
		return nil, model.NewAppError("AUTHENTICATION_FAILED", "メールアドレスまたはパスワードが正しくありません。", "", model.ErrUnauthenticated)
	}

	if !user.IsActive {
		logger.Warn("Login failed: account not active", "user_id", user.UserID)
		return nil, model.NewAppError("ACCOUNT_NOT_ACTIVE", "アカウントが無効化されています。", "", model.ErrForbidden)
	}

	token, err := s.signToken(user)
	if err != nil {
		logger.Error("Failed to sign JWT", "error", err, "user_id", user.UserID)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "トークンの生成に失敗しました。", "", err)
	}

	logger.Info("Login successful", "user_id", user.UserID)
	return &model.LoginResponse{AccessToken: token, User: model.NewUserResponse(user)}, nil
}

// Authenticate はJWTの subject から有効なユーザーを解決します。
func (s *authService) Authenticate(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, model.ErrForbidden
	}
	return user, nil
}

func (s *authService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	logger := middleware.GetLogger(ctx)
	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("USER_NOT_FOUND", "ユーザーが見つかりません。", "", model.ErrNotFound)
		}
		logger.Error("Error finding user by ID", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部エラー", "", err)
	}
	return user, nil
}

// UpdateProfile は指定フィールドのみ更新し、個人データの変更を監査ログに残します。
func (s *authService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *model.UpdateProfileRequest, meta RequestMeta) (*model.User, error) {
	logger := middleware.GetLogger(ctx)

	before, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	changes := []struct {
		field    string
		old, new any
	}{}
	if req.FirstName != nil && *req.FirstName != before.FirstName {
		updates["first_name"] = *req.FirstName
		changes = append(changes, struct {
			field    string
			old, new any
		}{"first_name", before.FirstName, *req.FirstName})
	}
	if req.LastName != nil && *req.LastName != before.LastName {
		updates["last_name"] = *req.LastName
		changes = append(changes, struct {
			field    string
			old, new any
		}{"last_name", before.LastName, *req.LastName})
	}

	if len(updates) == 0 {
		return before, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.userRepo.Update(ctx, tx, userID, updates)
	})
	if err != nil {
		logger.Error("Failed to update profile", "error", err, "user_id", userID)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "プロフィールの更新に失敗しました。", "", err)
	}

	for _, ch := range changes {
		s.audit.Record(ctx, AuditEntry{
			CompanyID:   before.CompanyID,
			UserID:      &userID,
			Action:      model.AuditActionUpdate,
			ModelName:   "accounts.User",
			ObjectID:    userID.String(),
			FieldName:   ch.field,
			OldValue:    ch.old,
			NewValue:    ch.new,
			DataSubject: before.Email,
			Meta:        meta,
		})
	}

	return s.GetProfile(ctx, userID)
}

func (s *authService) signToken(user *model.User) (string, error) {
	claims := &jwt.RegisteredClaims{
		Issuer:    s.cfg.App.Name,
		Subject:   user.UserID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.cfg.JWT.AccessTokenTTL)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWT.SecretKey))
}
