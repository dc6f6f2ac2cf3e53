package hub

import (
	"net/http"
	"strconv"
	"time"

	"AgoraNotify/logger"
	"AgoraNotify/middleware/security"
	"AgoraNotify/module/notification/model"
	"AgoraNotify/tools/errs"

	"github.com/gin-gonic/gin"
)

// Publisher routes freshly created notifications, either straight into the hub
// or through the event bus when one is configured.
type Publisher interface {
	PublishNotification(n model.Notification) error
	PublishBroadcast(n model.Notification) error
}

// Handlers exposes the notification REST resource. All routes except Health
// sit behind the bearer-auth middleware.
type Handlers struct {
	hub *Hub
	pub Publisher // nil means deliver directly
}

func NewHandlers(h *Hub, pub Publisher) *Handlers {
	return &Handlers{hub: h, pub: pub}
}

// Register mounts the resource under /api/notifications.
func (x *Handlers) Register(r *gin.Engine) {
	r.GET("/api/notifications/health", x.Health)

	api := r.Group("/api/notifications", security.Middleware())
	api.GET("", x.List)
	api.GET("/unread-count", x.UnreadCount)
	api.GET("/online", x.Online)
	api.PUT("/:id/read", x.MarkRead)
	api.PUT("/mark-all-read", x.MarkAllRead)
	api.DELETE("/:id", x.Delete)
	api.POST("", x.Create)
	api.POST("/test", x.CreateTest)
}

func (x *Handlers) List(c *gin.Context) {
	user := c.GetString(security.CtxUserIDKey)
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	unreadOnly := c.Query("unread_only") == "true"

	list, err := x.hub.Store().List(c.Request.Context(), user, limit, offset, unreadOnly)
	if err != nil {
		logger.Errorf("[rest] list user=%s err=%v", user, err)
		c.JSON(http.StatusInternalServerError, errs.ErrInternal)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (x *Handlers) UnreadCount(c *gin.Context) {
	user := c.GetString(security.CtxUserIDKey)
	count, err := x.hub.Store().UnreadCount(c.Request.Context(), user)
	if err != nil {
		logger.Errorf("[rest] unread count user=%s err=%v", user, err)
		c.JSON(http.StatusInternalServerError, errs.ErrInternal)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// Online reports whether the caller currently holds a live connection, here or
// on another node when presence tracking is configured.
func (x *Handlers) Online(c *gin.Context) {
	user := c.GetString(security.CtxUserIDKey)
	online, err := x.hub.Online(c.Request.Context(), user)
	if err != nil {
		logger.Errorf("[rest] online user=%s err=%v", user, err)
		c.JSON(http.StatusInternalServerError, errs.ErrInternal)
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": online})
}

func (x *Handlers) MarkRead(c *gin.Context) {
	user := c.GetString(security.CtxUserIDKey)
	id := c.Param("id")
	ok, err := x.hub.Store().MarkRead(c.Request.Context(), user, id, time.Now().UTC())
	if err != nil {
		logger.Errorf("[rest] mark read user=%s id=%s err=%v", user, id, err)
		c.JSON(http.StatusInternalServerError, errs.ErrInternal)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, errs.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification marked as read"})
}

func (x *Handlers) MarkAllRead(c *gin.Context) {
	user := c.GetString(security.CtxUserIDKey)
	count, err := x.hub.Store().MarkAllRead(c.Request.Context(), user, time.Now().UTC())
	if err != nil {
		logger.Errorf("[rest] mark all read user=%s err=%v", user, err)
		c.JSON(http.StatusInternalServerError, errs.ErrInternal)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notifications marked as read", "count": count})
}

func (x *Handlers) Delete(c *gin.Context) {
	user := c.GetString(security.CtxUserIDKey)
	id := c.Param("id")
	ok, err := x.hub.Store().Delete(c.Request.Context(), user, id)
	if err != nil {
		logger.Errorf("[rest] delete user=%s id=%s err=%v", user, id, err)
		c.JSON(http.StatusInternalServerError, errs.ErrInternal)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, errs.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification deleted"})
}

type createRequest struct {
	Kind        model.Kind     `json:"type" binding:"required"`
	Title       string         `json:"title" binding:"required"`
	Message     string         `json:"message" binding:"required"`
	RecipientID string         `json:"recipient_id"`
	Data        map[string]any `json:"data"`
	Priority    model.Priority `json:"priority"`
	Broadcast   bool           `json:"broadcast"`
}

// Create mints and routes a notification. Broadcast requests fan out to every
// connected user and are never persisted.
func (x *Handlers) Create(c *gin.Context) {
	sender := c.GetString(security.CtxUserIDKey)
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrArgs.WithDetail(err.Error()))
		return
	}
	if !req.Kind.IsValid() {
		c.JSON(http.StatusBadRequest, errs.ErrArgs.WithDetail("unknown notification type"))
		return
	}
	if !req.Broadcast && req.RecipientID == "" {
		c.JSON(http.StatusBadRequest, errs.ErrArgs.WithDetail("recipient_id required"))
		return
	}

	n := x.hub.Mint(req.Kind, req.Title, req.Message, req.RecipientID, sender, "", req.Data, req.Priority)

	var err error
	switch {
	case req.Broadcast && x.pub != nil:
		err = x.pub.PublishBroadcast(n)
	case req.Broadcast:
		err = x.hub.Broadcast(c.Request.Context(), n, sender)
	case x.pub != nil:
		err = x.pub.PublishNotification(n)
	default:
		err = x.hub.Deliver(c.Request.Context(), n)
	}
	if err != nil {
		logger.Errorf("[rest] create err=%v", err)
		c.JSON(http.StatusInternalServerError, errs.ErrInternal)
		return
	}
	c.JSON(http.StatusCreated, n)
}

// CreateTest mints a system notification back to the caller so the real-time
// path can be checked end to end.
func (x *Handlers) CreateTest(c *gin.Context) {
	user := c.GetString(security.CtxUserIDKey)
	n := x.hub.Mint(model.KindSystem,
		"Test notification",
		"Real-time delivery check",
		user, "", "", map[string]any{"test": true}, model.PriorityNormal)
	if err := x.hub.Deliver(c.Request.Context(), n); err != nil {
		logger.Errorf("[rest] create test err=%v", err)
		c.JSON(http.StatusInternalServerError, errs.ErrInternal)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "test notification created"})
}

func (x *Handlers) Health(c *gin.Context) {
	users, conns := x.hub.Stats()
	total, err := x.hub.Store().Total(c.Request.Context())
	if err != nil {
		logger.Errorf("[rest] health err=%v", err)
		c.JSON(http.StatusInternalServerError, errs.ErrInternal)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":              "healthy",
		"module":              "notifications",
		"connected_users":     users,
		"active_connections":  conns,
		"total_notifications": total,
	})
}

func intQuery(c *gin.Context, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
