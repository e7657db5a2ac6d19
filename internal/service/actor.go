package service

import "github.com/Evaldo-hub/associacaoufpa/internal/models"

// Actor is whoever triggers an operation. It is passed explicitly to every
// workflow call.
type Actor struct {
	UserID   uint
	Username string
	Role     string
	PlayerID *uint
}

// System is used by maintenance commands.
var System = Actor{Username: "system", Role: models.RoleAdmin}

// ActorFromUser builds the Actor for an authenticated user.
func ActorFromUser(u *models.User) Actor {
	return Actor{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		PlayerID: u.PlayerID,
	}
}

// IsAdmin reports whether the actor may run admin-only operations.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Owns reports whether playerID is the actor's own linked player.
func (a Actor) Owns(playerID uint) bool {
	return a.PlayerID != nil && *a.PlayerID == playerID
}

// Name is what gets written to created_by / audit columns.
func (a Actor) Name() string {
	if a.Username == "" {
		return "anonymous"
	}
	return a.Username
}
