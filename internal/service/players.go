package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Evaldo-hub/associacaoufpa/internal/models"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"gorm.io/gorm"
)

// PlayerInput is the editable part of a Player. Active and Native are
// pointers so Update can tell "unset" from false.
type PlayerInput struct {
	Name     string                `json:"name"`
	Phone    string                `json:"phone"`
	Category models.PlayerCategory `json:"category"`
	Active   *bool                 `json:"active"`
	Native   *bool                 `json:"native"`
}

// PlayerFilter narrows List.
type PlayerFilter struct {
	ActiveOnly bool
	Category   models.PlayerCategory
}

type Players struct {
	db *gorm.DB
}

func NewPlayers(db *gorm.DB) *Players {
	return &Players{db: db}
}

func (in *PlayerInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := util.ValidateLabel(in.Name, 100); err != nil {
		return fmt.Errorf("%w: name: %v", ErrInvalidInput, err)
	}
	if len(in.Phone) > 20 {
		return fmt.Errorf("%w: phone too long", ErrInvalidInput)
	}
	if in.Category == "" {
		in.Category = models.PlayerMember
	}
	in.Category = models.PlayerCategory(strings.ToUpper(string(in.Category)))
	if !in.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, in.Category)
	}
	return nil
}

// Create registers a player. Names are unique.
func (p *Players) Create(ctx context.Context, actor Actor, in PlayerInput) (*models.Player, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	player := &models.Player{
		Name:     in.Name,
		Phone:    in.Phone,
		Category: in.Category,
		Active:   true,
	}
	if in.Active != nil {
		player.Active = *in.Active
	}
	if in.Native != nil {
		player.Native = *in.Native
	}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := p.ensureNameFree(tx, player.Name, 0); err != nil {
			return err
		}
		if err := tx.Create(player).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("player %q: %w", player.Name, ErrAlreadyExists)
			}
			return fmt.Errorf("insert player: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// Update replaces the editable fields of a player.
func (p *Players) Update(ctx context.Context, actor Actor, id uint, in PlayerInput) (*models.Player, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var player models.Player
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&player, id).Error; err != nil {
			return notFound(err, "player", id)
		}
		if err := p.ensureNameFree(tx, in.Name, id); err != nil {
			return err
		}

		player.Name = in.Name
		player.Phone = in.Phone
		player.Category = in.Category
		if in.Active != nil {
			player.Active = *in.Active
		}
		if in.Native != nil {
			player.Native = *in.Native
		}
		if err := tx.Save(&player).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("player %q: %w", player.Name, ErrAlreadyExists)
			}
			return fmt.Errorf("update player %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func (p *Players) ensureNameFree(tx *gorm.DB, name string, self uint) error {
	var n int64
	if err := tx.Model(&models.Player{}).
		Where("LOWER(name) = LOWER(?) AND id <> ?", name, self).
		Count(&n).Error; err != nil {
		return fmt.Errorf("check player name: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("player %q: %w", name, ErrAlreadyExists)
	}
	return nil
}

// ToggleActive flips the active flag. Players are never deleted.
func (p *Players) ToggleActive(ctx context.Context, actor Actor, id uint) (*models.Player, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	var player models.Player
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&player, id).Error; err != nil {
			return notFound(err, "player", id)
		}
		player.Active = !player.Active
		return tx.Model(&player).Update("active", player.Active).Error
	})
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// List returns players ordered by name.
func (p *Players) List(ctx context.Context, f PlayerFilter) ([]models.Player, error) {
	q := p.db.WithContext(ctx)
	if f.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	var players []models.Player
	if err := q.Order("name ASC").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return players, nil
}

func (p *Players) Get(ctx context.Context, id uint) (*models.Player, error) {
	var player models.Player
	if err := p.db.WithContext(ctx).First(&player, id).Error; err != nil {
		return nil, notFound(err, "player", id)
	}
	return &player, nil
}
