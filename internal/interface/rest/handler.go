package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/ehdrbdndns/steelart-dashboard/internal/domain"
	"github.com/ehdrbdndns/steelart-dashboard/internal/interface/rest/presenter"
	"github.com/ehdrbdndns/steelart-dashboard/internal/usecase"
)

// RealtimeSource streams collection events for the channel prefixes sent on input.
type RealtimeSource interface {
	Realtime(ctx context.Context, input <-chan []string, output chan<- domain.CollectionEvent)
}

type Handler struct {
	courseItems *usecase.CourseItemUsecase
	banners     *usecase.HomeBannerUsecase
	signal      RealtimeSource
}

func NewHandler(
	courseItems *usecase.CourseItemUsecase,
	banners *usecase.HomeBannerUsecase,
	signal RealtimeSource,
) *Handler {
	return &Handler{
		courseItems: courseItems,
		banners:     banners,
		signal:      signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.handleHealth)

	admin := e.Group("/api/admin")
	admin.GET("/courses/:id/items", h.handleListCourseItems)
	admin.POST("/courses/:id/items", h.handleAddCourseItem)
	admin.PATCH("/courses/:id/items/reorder", h.handleReorderCourseItems)
	admin.DELETE("/courses/:id/items/:itemId", h.handleRemoveCourseItem)

	admin.GET("/home-banners", h.handleListHomeBanners)
	admin.POST("/home-banners", h.handleCreateHomeBanner)
	admin.PATCH("/home-banners/reorder", h.handleReorderHomeBanners)
	admin.PATCH("/home-banners/:id", h.handleUpdateHomeBanner)
	admin.DELETE("/home-banners/:id", h.handleRemoveHomeBanner)

	if h.signal != nil {
		admin.GET("/realtime", h.handleRealtime)
	}
}

func (h *Handler) handleHealth(c echo.Context) error {
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ValidationError{Reason: fmt.Sprintf("%s must be a positive integer", name)}
	}
	return id, nil
}

type addCourseItemRequest struct {
	ArtworkID int64 `json:"artwork_id"`
	Seq       *int  `json:"seq"`
}

type courseItemPlacement struct {
	ID  int64 `json:"id"`
	Seq int   `json:"seq"`
}

type reorderCourseItemsRequest struct {
	Items []courseItemPlacement `json:"items"`
}

type createHomeBannerRequest struct {
	ArtworkID    int64 `json:"artwork_id"`
	IsActive     *bool `json:"is_active"`
	DisplayOrder *int  `json:"display_order"`
}

type updateHomeBannerRequest struct {
	IsActive *bool `json:"is_active"`
}

type homeBannerPlacement struct {
	ID           int64 `json:"id"`
	DisplayOrder int   `json:"display_order"`
}

type reorderHomeBannersRequest struct {
	Items []homeBannerPlacement `json:"items"`
}

func (h *Handler) handleListCourseItems(c echo.Context) error {
	ctx := c.Request().Context()

	courseID, err := pathID(c, "id")
	if err != nil {
		return presenter.Error(c, err)
	}

	items, err := h.courseItems.List(ctx, courseID)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.List(c, items)
}

func (h *Handler) handleAddCourseItem(c echo.Context) error {
	ctx := c.Request().Context()

	courseID, err := pathID(c, "id")
	if err != nil {
		return presenter.Error(c, err)
	}

	var req addCourseItemRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}
	if req.ArtworkID <= 0 {
		return presenter.BadRequestMessage(c, "artwork_id must be a positive integer")
	}
	if req.Seq != nil && *req.Seq <= 0 {
		return presenter.BadRequestMessage(c, "seq must be a positive integer")
	}

	item, err := h.courseItems.Add(ctx, usecase.AddCourseItemInput{
		CourseID:  courseID,
		ArtworkID: req.ArtworkID,
		Seq:       req.Seq,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, item)
}

func (h *Handler) handleRemoveCourseItem(c echo.Context) error {
	ctx := c.Request().Context()

	courseID, err := pathID(c, "id")
	if err != nil {
		return presenter.Error(c, err)
	}
	itemID, err := pathID(c, "itemId")
	if err != nil {
		return presenter.Error(c, err)
	}

	if err := h.courseItems.Remove(ctx, courseID, itemID); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"deleted": true})
}

func (h *Handler) handleReorderCourseItems(c echo.Context) error {
	ctx := c.Request().Context()

	courseID, err := pathID(c, "id")
	if err != nil {
		return presenter.Error(c, err)
	}

	var req reorderCourseItemsRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	placements := make([]domain.Placement, len(req.Items))
	for i, item := range req.Items {
		placements[i] = domain.Placement{MemberID: item.ID, Position: item.Seq}
	}

	if err := h.courseItems.Reorder(ctx, courseID, placements); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"reordered": true})
}

func (h *Handler) handleListHomeBanners(c echo.Context) error {
	ctx := c.Request().Context()

	banners, err := h.banners.List(ctx)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.List(c, banners)
}

func (h *Handler) handleCreateHomeBanner(c echo.Context) error {
	ctx := c.Request().Context()

	var req createHomeBannerRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}
	if req.ArtworkID <= 0 {
		return presenter.BadRequestMessage(c, "artwork_id must be a positive integer")
	}
	if req.IsActive == nil {
		return presenter.BadRequestMessage(c, "is_active is required")
	}
	if req.DisplayOrder != nil && *req.DisplayOrder <= 0 {
		return presenter.BadRequestMessage(c, "display_order must be a positive integer")
	}

	banner, err := h.banners.Create(ctx, usecase.CreateHomeBannerInput{
		ArtworkID:    req.ArtworkID,
		IsActive:     *req.IsActive,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, banner)
}

func (h *Handler) handleUpdateHomeBanner(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c, "id")
	if err != nil {
		return presenter.Error(c, err)
	}

	var req updateHomeBannerRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}
	if req.IsActive == nil {
		return presenter.BadRequestMessage(c, "is_active is required")
	}

	banner, err := h.banners.SetActive(ctx, id, *req.IsActive)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, banner)
}

func (h *Handler) handleRemoveHomeBanner(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c, "id")
	if err != nil {
		return presenter.Error(c, err)
	}

	if err := h.banners.Remove(ctx, id); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"deleted": true})
}

func (h *Handler) handleReorderHomeBanners(c echo.Context) error {
	ctx := c.Request().Context()

	var req reorderHomeBannersRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	placements := make([]domain.Placement, len(req.Items))
	for i, item := range req.Items {
		placements[i] = domain.Placement{MemberID: item.ID, Position: item.DisplayOrder}
	}

	if err := h.banners.Reorder(ctx, placements); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"reordered": true})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// realtimeMessage is a client frame on the realtime socket. "listen" adds the
// collections in Prefixes to the subscription; "h" is a heartbeat.
type realtimeMessage struct {
	Type     string   `json:"type"`
	Prefixes []string `json:"prefixes"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	listen := make(chan []string)
	events := make(chan domain.CollectionEvent)
	go h.signal.Realtime(ctx, listen, events)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		readRealtime(ctx, ws, listen)
	}()

	for {
		select {
		case <-closed:
			return nil
		case <-ctx.Done():
			return nil
		case event := <-events:
			if err := ws.WriteJSON(event); err != nil {
				slog.DebugContext(ctx, "realtime write failed",
					slog.String("error", err.Error()),
					slog.String("module", "realtime"),
				)
				return nil
			}
		}
	}
}

func readRealtime(ctx context.Context, ws *websocket.Conn, listen chan<- []string) {
	for {
		var msg realtimeMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.DebugContext(ctx, "realtime read ended",
					slog.String("error", err.Error()),
					slog.String("module", "realtime"),
				)
			}
			return
		}

		switch msg.Type {
		case "listen":
			select {
			case listen <- msg.Prefixes:
			case <-ctx.Done():
				return
			}
		case "h":
		default:
			slog.DebugContext(ctx, "unknown realtime message",
				slog.String("type", msg.Type),
				slog.String("module", "realtime"),
			)
		}
	}
}
