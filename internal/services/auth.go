package services

import (
	"time"

	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/models"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegistrationRequest struct {
	ChatID      string `json:"chat_id" binding:"required"`
	Username    string `json:"username" binding:"required,min=3,max=50"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"max=100"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type AuthService interface {
	Register(db *gorm.DB, req RegistrationRequest) (*models.User, error)
	Login(db *gorm.DB, email, password string) (*models.User, error)
	GenerateTokens(db *gorm.DB, userID uuid.UUID) (*TokenPair, error)
	Refresh(db *gorm.DB, refreshToken string) (*TokenPair, error)
	Logout(db *gorm.DB, refreshToken string) error
}

type AuthServiceImpl struct {
	cfg config.AuthConfig
}

func NewAuthService(cfg config.AuthConfig) *AuthServiceImpl {
	return &AuthServiceImpl{cfg: cfg}
}

// Register creates API credentials. If the chat ID is already known
// from bot interactions, the existing user is upgraded in place.
func (s *AuthServiceImpl) Register(db *gorm.DB, req RegistrationRequest) (*models.User, error) {
	var existing models.User
	if err := db.Where("email = ? AND email != ''", req.Email).First(&existing).Error; err == nil {
		return nil, conflictErr("email %s is already registered", req.Email)
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BCryptCost)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = db.Where("chat_id = ?", req.ChatID).First(&user).Error
	switch {
	case err == nil:
		user.Email = req.Email
		user.Password = string(hashed)
		if req.DisplayName != "" {
			user.DisplayName = req.DisplayName
		}
		user.UpdatedAt = time.Now()
		if err := db.Save(&user).Error; err != nil {
			return nil, err
		}
	case err == gorm.ErrRecordNotFound:
		user = models.User{
			ID:          uuid.Must(uuid.NewV4()),
			ChatID:      req.ChatID,
			Username:    req.Username,
			DisplayName: req.DisplayName,
			Email:       req.Email,
			Password:    string(hashed),
			Timezone:    "UTC",
			IsActive:    true,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return &user, nil
}

func (s *AuthServiceImpl) Login(db *gorm.DB, email, password string) (*models.User, error) {
	var user models.User
	err := db.Where("email = ? AND email != '' AND is_active = ?", email, true).First(&user).Error
	if err != nil {
		return nil, wrapNotFound(err, "user with email %s", email)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, permissionErr("invalid credentials")
	}
	return &user, nil
}

func (s *AuthServiceImpl) GenerateTokens(db *gorm.DB, userID uuid.UUID) (*TokenPair, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"iss":     "taskhive",
		"exp":     time.Now().Add(s.cfg.AccessTokenTTL).Unix(),
	}
	access := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := access.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	refreshUUID := uuid.Must(uuid.NewV4())
	token := models.Token{
		ID:           uuid.Must(uuid.NewV4()),
		UserID:       userID,
		RefreshToken: refreshUUID,
		ExpiresAt:    time.Now().Add(s.cfg.RefreshTokenTTL),
		CreatedAt:    time.Now(),
	}
	if err := db.Create(&token).Error; err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshUUID.String(),
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// Refresh rotates the refresh token and issues a new access token.
func (s *AuthServiceImpl) Refresh(db *gorm.DB, refreshToken string) (*TokenPair, error) {
	var token models.Token
	err := db.Where("refresh_token = ? AND expires_at > ?", refreshToken, time.Now()).First(&token).Error
	if err != nil {
		return nil, wrapNotFound(err, "refresh token")
	}

	pair, err := s.GenerateTokens(db, token.UserID)
	if err != nil {
		return nil, err
	}

	if err := db.Delete(&token).Error; err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *AuthServiceImpl) Logout(db *gorm.DB, refreshToken string) error {
	result := db.Where("refresh_token = ?", refreshToken).Delete(&models.Token{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFoundErr("refresh token")
	}
	return nil
}
