package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"github.com/lu123321/counseling-app/internal/apperr"
	"github.com/lu123321/counseling-app/internal/lifecycle"
	"github.com/lu123321/counseling-app/internal/model"
	"github.com/lu123321/counseling-app/internal/store"
	"github.com/lu123321/counseling-app/internal/view"
)

// ClientDirectory is the client collaborator consumed by the API: it
// validates linked clients and resolves display names.
type ClientDirectory interface {
	GetClient(ctx context.Context, id int64) (*model.Client, error)
}

// SessionService is the session collaborator consumed by the API and
// the lifecycle manager.
type SessionService interface {
	lifecycle.SessionFinalizer
	CreateSessionFromEvent(ctx context.Context, event *model.Event) (*model.Session, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.EventStore
	views     *view.Service
	lifecycle *lifecycle.Manager
	clients   ClientDirectory
	sessions  SessionService
	webpush   *webpush.Options
	loc       *time.Location
}

// NewHandler creates a new API handler.
func NewHandler(s store.EventStore, clients ClientDirectory, sessions SessionService, webpushOptions *webpush.Options, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		store:     s,
		views:     view.NewService(s, loc),
		lifecycle: lifecycle.NewManager(s, sessions),
		clients:   clients,
		sessions:  sessions,
		webpush:   webpushOptions,
		loc:       loc,
	}
}

// respondError maps the engine's error taxonomy onto HTTP statuses.
// Every payload carries enough detail for the client to build a
// human-readable message.
func respondError(c *gin.Context, err error) {
	var validation *apperr.ValidationError
	var notFound *apperr.NotFoundError
	var transition *apperr.InvalidTransitionError

	switch {
	case errors.As(err, &validation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validation.Error(), "field": validation.Field})
	case errors.As(err, &notFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &transition):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": transition.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
