package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/Evaldo-hub/associacaoufpa/internal/models"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	AdminUsername     = "admin"
	minPasswordLength = 6
	tempPasswordLen   = 10
	maxFailedLogins   = 5
	loginLockDuration = 10 * time.Minute
	emailDomain       = "associacao.local"
)

var usernameRe = regexp.MustCompile(`^[a-z0-9_.]{3,40}$`)

// Users manages accounts and authentication.
type Users struct {
	db    *gorm.DB
	cost  int
	clock clockwork.Clock
}

func NewUsers(db *gorm.DB, bcryptCost int, clock clockwork.Clock) *Users {
	return &Users{db: db, cost: bcryptCost, clock: clock}
}

// EnsureAdmin creates the default admin account when it does not exist.
// Without a configured password a random one is generated and returned.
func (u *Users) EnsureAdmin(ctx context.Context, password string) (string, error) {
	var n int64
	db := u.db.WithContext(ctx)
	if err := db.Model(&models.User{}).Where("username = ?", AdminUsername).Count(&n).Error; err != nil {
		return "", fmt.Errorf("check admin: %w", err)
	}
	if n > 0 {
		return "", nil
	}

	generated := ""
	if password == "" {
		var err error
		if password, err = util.RandomString(tempPasswordLen); err != nil {
			return "", err
		}
		generated = password
	}
	if _, err := u.CreateAdmin(ctx, AdminUsername, password); err != nil {
		return "", err
	}
	log.Info().Str("username", AdminUsername).Msg("default admin created")
	return generated, nil
}

// CreateAdmin creates an admin account that is not linked to a player.
func (u *Users) CreateAdmin(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernameRe.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-40 lowercase letters, digits, '_' or '.'", ErrInvalidInput)
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := util.HashPassword(password, u.cost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        username + "@" + emailDomain,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Active:       true,
	}
	if err := u.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("user %q: %w", username, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// Login checks credentials and records the login. Repeated failures lock
// the account for a while.
func (u *Users) Login(ctx context.Context, username, password, ip string) (*models.User, error) {
	username = strings.TrimSpace(username)

	var user models.User
	db := u.db.WithContext(ctx)
	if err := db.Where("LOWER(username) = LOWER(?)", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	now := u.clock.Now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, fmt.Errorf("%w: account locked until %s", ErrInvalidCredentials, user.LockedUntil.Format(time.RFC3339))
	}

	if !util.CheckPassword(password, user.PasswordHash) {
		user.FailedLoginAttempts++
		if user.FailedLoginAttempts >= maxFailedLogins {
			until := now.Add(loginLockDuration)
			user.LockedUntil = &until
			user.FailedLoginAttempts = 0
			log.Warn().Str("username", user.Username).Str("ip", ip).Msg("account locked after failed logins")
		}
		if err := db.Model(&user).Select("failed_login_attempts", "locked_until").Updates(&user).Error; err != nil {
			log.Error().Err(err).Uint("user_id", user.ID).Msg("record failed login")
		}
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, fmt.Errorf("%w: account disabled", ErrNotAuthorized)
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	user.LastLoginIP = ip
	if err := db.Model(&user).
		Select("failed_login_attempts", "locked_until", "last_login_at", "last_login_ip").
		Updates(&user).Error; err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	return &user, nil
}

// Get loads a user with the linked player.
func (u *Users) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).Preload("Player").First(&user, id).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

// GrantAccess creates or updates the account linked to a player. A new
// account gets a temporary password, returned only here.
func (u *Users) GrantAccess(ctx context.Context, actor Actor, playerID uint, role string) (*models.User, string, error) {
	if !actor.IsAdmin() {
		return nil, "", ErrNotAuthorized
	}
	switch role {
	case "":
		role = models.RolePlayer
	case models.RoleAdmin, models.RolePlayer, models.RoleViewer:
	default:
		return nil, "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	var (
		user models.User
		temp string
	)
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var player models.Player
		if err := tx.First(&player, playerID).Error; err != nil {
			return notFound(err, "player", playerID)
		}

		err := tx.Where("player_id = ?", playerID).First(&user).Error
		if err == nil {
			user.Role = role
			user.Active = true
			return tx.Model(&user).Select("role", "active").Updates(&user).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load user: %w", err)
		}

		username, err := u.freeUsername(tx, player.Name)
		if err != nil {
			return err
		}
		if temp, err = util.RandomString(tempPasswordLen); err != nil {
			return err
		}
		hash, err := util.HashPassword(temp, u.cost)
		if err != nil {
			return err
		}
		pid := player.ID
		user = models.User{
			Username:     username,
			Email:        username + "@" + emailDomain,
			PasswordHash: hash,
			Role:         role,
			PlayerID:     &pid,
			Active:       true,
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("user for player %d: %w", playerID, ErrAlreadyExists)
			}
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	log.Info().Uint("user_id", user.ID).Str("role", user.Role).Str("actor", actor.Name()).Msg("access granted")
	return &user, temp, nil
}

// freeUsername derives a username from a player name, adding a numeric
// suffix when it is taken.
func (u *Users) freeUsername(tx *gorm.DB, name string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r == ' ':
			b.WriteRune('_')
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		}
	}
	base := b.String()
	for len(base) < 3 {
		base += "_"
	}
	if len(base) > 36 {
		base = base[:36]
	}

	candidate := base
	for i := 2; ; i++ {
		var n int64
		if err := tx.Model(&models.User{}).Where("username = ?", candidate).Count(&n).Error; err != nil {
			return "", fmt.Errorf("check username: %w", err)
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
}

// SetPassword changes a password. Admins may change anyone's; other users
// only their own.
func (u *Users) SetPassword(ctx context.Context, actor Actor, userID uint, password string) error {
	if !actor.IsAdmin() && actor.UserID != userID {
		return ErrNotAuthorized
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := util.HashPassword(password, u.cost)
	if err != nil {
		return err
	}

	res := u.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"password_hash":         hash,
		"failed_login_attempts": 0,
		"locked_until":          nil,
	})
	if res.Error != nil {
		return fmt.Errorf("update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return nil
}

// RemoveUser deletes an account. The default admin cannot be removed.
func (u *Users) RemoveUser(ctx context.Context, actor Actor, userID uint) error {
	if !actor.IsAdmin() {
		return ErrNotAuthorized
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return notFound(err, "user", userID)
		}
		if user.Username == AdminUsername {
			return fmt.Errorf("%w: the default admin cannot be removed", ErrNotAuthorized)
		}
		return tx.Delete(&user).Error
	})
}

// List returns all accounts ordered by username.
func (u *Users) List(ctx context.Context, actor Actor) ([]models.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	var users []models.User
	if err := u.db.WithContext(ctx).Preload("Player").Order("username").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLength {
		return fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if len(pw) > 72 {
		return fmt.Errorf("%w: password too long", ErrInvalidInput)
	}
	return nil
}
