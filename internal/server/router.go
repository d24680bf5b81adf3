package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/llopes04/fieldsync/internal/auth"
	"github.com/llopes04/fieldsync/internal/offline"
	"github.com/llopes04/fieldsync/internal/records"
	"github.com/llopes04/fieldsync/internal/store"
	"github.com/llopes04/fieldsync/internal/sync"
	"github.com/llopes04/fieldsync/internal/users"
)

const (
	accountIDContextKey = "fieldsync_account_id"
	usernameContextKey  = "fieldsync_username"
)

var (
	errMissingAccountService = errors.New("account service dependency required")
	errMissingTokenIssuer    = errors.New("token issuer dependency required")
	errMissingSyncEngine     = errors.New("sync engine dependency required")
	errMissingRecordStore    = errors.New("record store dependency required")
	errMissingOfflineLog     = errors.New("offline log dependency required")
	errInvalidAuthorization  = errors.New("authorization header missing or invalid")
)

// Dependencies lists the collaborators the HTTP surface exposes.
type Dependencies struct {
	Accounts *users.Service
	Tokens   *auth.TokenIssuer
	Engine   *sync.Engine
	Store    *store.Store
	Offline  *offline.Log
	IDs      records.IDProvider
	Logger   *zap.Logger
}

// NewHTTPHandler wires the gin router for the API server.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Accounts == nil {
		return nil, errMissingAccountService
	}
	if deps.Tokens == nil {
		return nil, errMissingTokenIssuer
	}
	if deps.Engine == nil {
		return nil, errMissingSyncEngine
	}
	if deps.Store == nil {
		return nil, errMissingRecordStore
	}
	if deps.Offline == nil {
		return nil, errMissingOfflineLog
	}

	ids := deps.IDs
	if ids == nil {
		ids = records.NewUUIDProvider()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		accounts: deps.Accounts,
		tokens:   deps.Tokens,
		engine:   deps.Engine,
		store:    deps.Store,
		offline:  deps.Offline,
		ids:      ids,
		logger:   logger,
	}

	router.GET("/health", handler.handleHealth)
	router.POST("/auth/register", handler.handleRegister)
	router.POST("/auth/login", handler.handleLogin)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)

	registerResource(protected, "/clients", resource[records.Client]{
		handler:    handler,
		kind:       records.KindClient,
		collection: deps.Store.Clients,
		recordID:   func(c records.Client) string { return c.ID },
		setID:      func(c *records.Client, id string) { c.ID = id },
		validate: func(c records.Client) error {
			if strings.TrimSpace(c.Name) == "" {
				return errors.New("nome is required")
			}
			return nil
		},
		remove: deps.Engine.DeleteClient,
	})
	registerResource(protected, "/orders", resource[records.ServiceOrder]{
		handler:    handler,
		kind:       records.KindServiceOrder,
		collection: deps.Store.Orders,
		recordID:   func(o records.ServiceOrder) string { return o.ID },
		setID:      func(o *records.ServiceOrder, id string) { o.ID = id },
		validate: func(o records.ServiceOrder) error {
			if strings.TrimSpace(o.Technician) == "" {
				return errors.New("tecnico is required")
			}
			if strings.TrimSpace(o.Date) == "" {
				return errors.New("data is required")
			}
			return nil
		},
		remove: deps.Engine.DeleteOrder,
	})
	registerResource(protected, "/rtis", resource[records.RTI]{
		handler:    handler,
		kind:       records.KindRTI,
		collection: deps.Store.RTIs,
		recordID:   func(r records.RTI) string { return r.ID },
		setID:      func(r *records.RTI, id string) { r.ID = id },
		validate: func(r records.RTI) error {
			if strings.TrimSpace(r.Technician) == "" {
				return errors.New("tecnico is required")
			}
			return nil
		},
		remove: deps.Engine.DeleteRTI,
	})

	protected.GET("/sync/pending", handler.handlePendingCount)
	protected.POST("/sync/upload", handler.handleSyncPass(handler.engine.Upload))
	protected.POST("/sync/download", handler.handleSyncPass(handler.engine.DownloadReplace))
	protected.POST("/sync/merge", handler.handleSyncPass(handler.engine.MergeFromRemote))
	protected.POST("/sync/replay", handler.handleSyncPass(handler.engine.ReplayOffline))

	return router, nil
}

type httpHandler struct {
	accounts *users.Service
	tokens   *auth.TokenIssuer
	engine   *sync.Engine
	store    *store.Store
	offline  *offline.Log
	ids      records.IDProvider
	logger   *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(accountIDContextKey, claims.Subject)
	c.Set(usernameContextKey, claims.Username)
	c.Next()
}
