package wsocket

import (
	"context"
	"net/http"
	"time"

	"orpheus_go_backend/internal/auth"
	apperrors "orpheus_go_backend/internal/errors"
	"orpheus_go_backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const writeWait = 10 * time.Second

// JobSource is the part of the job service the progress stream reads from.
type JobSource interface {
	Get(id, userID uuid.UUID) (models.GenerationJob, error)
	Subscribe(id uuid.UUID) (<-chan models.GenerationJob, func())
}

type Handler struct {
	jobs         JobSource
	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

// Message is one frame of the progress stream. Type is "progress" while the
// job runs, then "succeeded" or "failed" as the last frame.
type Message struct {
	Type string               `json:"type"`
	Job  models.GenerationJob `json:"job"`
}

func NewHandler(jobs JobSource, upgrader websocket.Upgrader, pingInterval time.Duration) *Handler {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Handler{
		jobs:         jobs,
		upgrader:     upgrader,
		pingInterval: pingInterval,
	}
}

// HandleJobProgress streams snapshots of one job until it finishes or the
// client goes away. Must run behind auth.AuthMiddleware.
func (h *Handler) HandleJobProgress(c *gin.Context) {
	log := zerolog.Ctx(c.Request.Context())

	user, ok := auth.CurrentUser(c)
	if !ok {
		apperrors.HandleError(c, apperrors.New401Error())
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperrors.HandleError(c, apperrors.New400Error("Invalid job ID"))
		return
	}

	// Subscribe before the first snapshot so no transition is lost.
	updates, unsubscribe := h.jobs.Subscribe(jobID)
	defer unsubscribe()

	job, err := h.jobs.Get(jobID, user.ID)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Error upgrading connection")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// The client never sends anything useful; reading only detects close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if done := h.send(conn, job); done {
		return
	}

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("job_id", jobID.String()).Msg("Progress stream closed by client")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if done := h.send(conn, update); done {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug().Err(err).Msg("Error sending ping")
				return
			}
		}
	}
}

// send writes one frame and reports whether the stream should end.
func (h *Handler) send(conn *websocket.Conn, job models.GenerationJob) bool {
	msg := Message{Type: "progress", Job: job}
	if job.Finished() {
		msg.Type = string(job.State)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		return true
	}
	if job.Finished() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, msg.Type),
			time.Now().Add(writeWait))
		return true
	}
	return false
}

// CheckOrigin builds an upgrader origin check from the allowed CORS origins.
func CheckOrigin(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
