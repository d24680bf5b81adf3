package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/llopes04/fieldsync/internal/offline"
	"github.com/llopes04/fieldsync/internal/records"
	"github.com/llopes04/fieldsync/internal/store"
	"github.com/llopes04/fieldsync/internal/sync"
)

// resource binds one record kind to its local collection and deletion
// protocol. Writes are offline-first: the local store is the source of
// truth for the response, and the matching remote intent is queued for
// replay. A queue failure is reported in the response but never fails
// the write itself.
type resource[T any] struct {
	handler    *httpHandler
	kind       records.Kind
	collection *store.Collection[T]
	recordID   func(T) string
	setID      func(*T, string)
	validate   func(T) error
	remove     func(ctx context.Context, id string) error
}

func registerResource[T any](group *gin.RouterGroup, path string, r resource[T]) {
	group.GET(path, r.handleList)
	group.POST(path, r.handleCreate)
	group.PUT(path+"/:id", r.handleUpdate)
	group.DELETE(path+"/:id", r.handleDelete)
}

func (r resource[T]) handleList(c *gin.Context) {
	list, err := r.collection.Load(c.Request.Context())
	if err != nil {
		r.handler.logger.Error("record list failed", zap.String("kind", string(r.kind)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": list})
}

func (r resource[T]) handleCreate(c *gin.Context) {
	var record T
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := r.validate(record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if r.recordID(record) == "" {
		id, err := r.handler.ids.NewID()
		if err != nil {
			r.handler.logger.Error("id generation failed", zap.String("kind", string(r.kind)), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "id_generation_failed"})
			return
		}
		r.setID(&record, id)
	}

	ctx := c.Request.Context()
	list, err := r.collection.Load(ctx)
	if err != nil {
		r.handler.logger.Error("record create failed", zap.String("kind", string(r.kind)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_failed"})
		return
	}
	list = append(list, record)
	if err := r.collection.Save(ctx, list); err != nil {
		r.handler.logger.Error("record create failed", zap.String("kind", string(r.kind)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_failed"})
		return
	}

	queued := r.enqueue(ctx, offline.ActionCreate, r.recordID(record), record)
	c.JSON(http.StatusCreated, gin.H{"record": record, "queued": queued})
}

func (r resource[T]) handleUpdate(c *gin.Context) {
	id := c.Param("id")

	var record T
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := r.validate(record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r.setID(&record, id)

	ctx := c.Request.Context()
	list, err := r.collection.Load(ctx)
	if err != nil {
		r.handler.logger.Error("record update failed", zap.String("kind", string(r.kind)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_failed"})
		return
	}
	found := false
	for i := range list {
		if r.recordID(list[i]) == id {
			list[i] = record
			found = true
			break
		}
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "record_not_found"})
		return
	}
	if err := r.collection.Save(ctx, list); err != nil {
		r.handler.logger.Error("record update failed", zap.String("kind", string(r.kind)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_failed"})
		return
	}

	queued := r.enqueue(ctx, offline.ActionUpdate, id, record)
	c.JSON(http.StatusOK, gin.H{"record": record, "queued": queued})
}

// handleDelete runs the remote-first deletion protocol. When the remote
// delete fails the local record is kept, the intent is queued, and the
// client is told the deletion is pending rather than done.
func (r resource[T]) handleDelete(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	err := r.remove(ctx, id)
	switch {
	case errors.Is(err, sync.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record_not_found"})
		return
	case err != nil:
		queued := r.enqueue(ctx, offline.ActionDelete, id, nil)
		if !queued {
			c.JSON(http.StatusBadGateway, gin.H{"error": "remote_delete_failed"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"queued":  true,
			"message": "Remote store unreachable; deletion queued and the record kept until replay.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"queued": false})
}

func (r resource[T]) enqueue(ctx context.Context, actionType offline.ActionType, targetID string, payload any) bool {
	if err := r.handler.offline.Enqueue(ctx, actionType, r.kind, targetID, payload); err != nil {
		r.handler.logger.Warn("offline enqueue failed",
			zap.String("kind", string(r.kind)),
			zap.String("type", string(actionType)),
			zap.Error(err))
		return false
	}
	return true
}
