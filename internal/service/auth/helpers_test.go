package auth

import (
	"time"

	"github.com/rubberworks/queuegate/internal/domain/models"
)

func sessionFixture(id string, expires time.Time) models.Session {
	return models.Session{ID: id, User: models.SessionUser{ID: "u"}, ExpiresAt: expires}
}
