package rest

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/akashdesaidev/Threadspire/internal/domain"
	"github.com/akashdesaidev/Threadspire/internal/present/rest/middleware"
	"github.com/akashdesaidev/Threadspire/internal/present/rest/presenter"
	"github.com/akashdesaidev/Threadspire/internal/usecase"
)

type Handler struct {
	thread    *usecase.ThreadUsecase
	reaction  *usecase.ReactionUsecase
	bookmark  *usecase.BookmarkUsecase
	user      *usecase.UserUsecase
	analytics *usecase.AnalyticsUsecase
}

func NewHandler(
	thread *usecase.ThreadUsecase,
	reaction *usecase.ReactionUsecase,
	bookmark *usecase.BookmarkUsecase,
	user *usecase.UserUsecase,
	analytics *usecase.AnalyticsUsecase,
) *Handler {
	return &Handler{
		thread:    thread,
		reaction:  reaction,
		bookmark:  bookmark,
		user:      user,
		analytics: analytics,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/threads", h.handleListThreads)
	e.POST("/threads", h.handleCreateThread)
	e.GET("/threads/bookmarked", h.handleListBookmarks)
	e.GET("/threads/:id", h.handleGetThread)
	e.PUT("/threads/:id", h.handleUpdateThread)
	e.DELETE("/threads/:id", h.handleDeleteThread)
	e.GET("/threads/:id/forks", h.handleForks)
	e.POST("/threads/:id/bookmark", h.handleToggleBookmark)
	e.POST("/threads/:id/segments/:segmentId/reactions/:emoji", h.handleReact)

	e.POST("/users", h.handleRegister)
	e.PUT("/users/me", h.handleUpdateProfile)
	e.GET("/users/:id", h.handleProfile)
	e.GET("/users/:id/threads", h.handleListByAuthor)
	e.GET("/users/:id/analytics", h.handleAnalytics)
	e.GET("/users/:id/analytics/activity", h.handleThreadActivity)
	e.GET("/users/:id/collections", h.handleCollections)

	e.POST("/collections", h.handleCreateCollection)
	e.POST("/collections/:name/threads/:threadId", h.handleAddToCollection)
	e.DELETE("/collections/:name/threads/:threadId", h.handleRemoveFromCollection)
}

type threadPage struct {
	Threads    []domain.Thread   `json:"threads"`
	Pagination domain.Pagination `json:"pagination"`
}

func (h *Handler) handleListThreads(c echo.Context) error {
	ctx := c.Request().Context()

	page, limit, err := pageParams(c)
	if err != nil {
		return presenter.BadRequestMessage(c, err.Error())
	}

	threads, pagination, err := h.thread.List(ctx, middleware.RequesterID(ctx), usecase.ListThreadsInput{
		Status:  c.QueryParam("status"),
		Tags:    splitList(c.QueryParam("tags")),
		TagMode: c.QueryParam("tagMode"),
		Sort:    domain.ParseThreadSort(c.QueryParam("sort")),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, threadPage{Threads: threads, Pagination: pagination})
}

func (h *Handler) handleCreateThread(c echo.Context) error {
	ctx := c.Request().Context()

	var input usecase.CreateThreadInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	thread, err := h.thread.Create(ctx, middleware.RequesterID(ctx), input)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, thread)
}

func (h *Handler) handleListBookmarks(c echo.Context) error {
	ctx := c.Request().Context()

	page, limit, err := pageParams(c)
	if err != nil {
		return presenter.BadRequestMessage(c, err.Error())
	}

	threads, pagination, err := h.bookmark.ListBookmarks(ctx, middleware.RequesterID(ctx), page, limit)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, threadPage{Threads: threads, Pagination: pagination})
}

func (h *Handler) handleGetThread(c echo.Context) error {
	ctx := c.Request().Context()

	view, err := h.thread.Get(ctx, middleware.RequesterID(ctx), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, view)
}

func (h *Handler) handleUpdateThread(c echo.Context) error {
	ctx := c.Request().Context()

	var changes usecase.ThreadChanges
	if err := c.Bind(&changes); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	result, err := h.thread.Publish(ctx, middleware.RequesterID(ctx), c.Param("id"), changes)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, result)
}

func (h *Handler) handleDeleteThread(c echo.Context) error {
	ctx := c.Request().Context()

	err := h.thread.Delete(ctx, middleware.RequesterID(ctx), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"message": "thread deleted"})
}

func (h *Handler) handleForks(c echo.Context) error {
	ctx := c.Request().Context()

	page, limit, err := pageParams(c)
	if err != nil {
		return presenter.BadRequestMessage(c, err.Error())
	}

	threads, pagination, err := h.thread.Forks(ctx, c.Param("id"), page, limit)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, threadPage{Threads: threads, Pagination: pagination})
}

func (h *Handler) handleToggleBookmark(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.bookmark.ToggleBookmark(ctx, middleware.RequesterID(ctx), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, result)
}

func (h *Handler) handleReact(c echo.Context) error {
	ctx := c.Request().Context()

	emoji, err := url.PathUnescape(c.Param("emoji"))
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid reaction")
	}

	result, err := h.reaction.React(ctx, middleware.RequesterID(ctx), c.Param("id"), c.Param("segmentId"), emoji)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, result)
}

type registerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *Handler) handleRegister(c echo.Context) error {
	ctx := c.Request().Context()

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	user, err := h.user.Register(ctx, middleware.RequesterID(ctx), req.Name, req.Email)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, user)
}

func (h *Handler) handleUpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()

	var changes usecase.ProfileChanges
	if err := c.Bind(&changes); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	user, err := h.user.UpdateProfile(ctx, middleware.RequesterID(ctx), changes)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, user)
}

func (h *Handler) handleProfile(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.user.Profile(ctx, c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, user)
}

func (h *Handler) handleListByAuthor(c echo.Context) error {
	ctx := c.Request().Context()

	page, limit, err := pageParams(c)
	if err != nil {
		return presenter.BadRequestMessage(c, err.Error())
	}

	threads, pagination, err := h.thread.ListByAuthor(ctx, middleware.RequesterID(ctx), c.Param("id"), c.QueryParam("status"), page, limit)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, threadPage{Threads: threads, Pagination: pagination})
}

func (h *Handler) handleAnalytics(c echo.Context) error {
	ctx := c.Request().Context()

	summary, err := h.analytics.Summary(ctx, middleware.RequesterID(ctx), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, summary)
}

func (h *Handler) handleThreadActivity(c echo.Context) error {
	ctx := c.Request().Context()

	days := usecase.DefaultActivityDays
	if daysStr := c.QueryParam("days"); daysStr != "" {
		n, err := strconv.Atoi(daysStr)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid days parameter")
		}
		days = n
	}

	activity, err := h.analytics.ThreadActivity(ctx, middleware.RequesterID(ctx), c.Param("id"), usecase.ActivityQuery{
		ThreadID: c.QueryParam("threadId"),
		Emoji:    c.QueryParam("emoji"),
		Days:     days,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, activity)
}

func (h *Handler) handleCollections(c echo.Context) error {
	ctx := c.Request().Context()

	collections, err := h.bookmark.Collections(ctx, middleware.RequesterID(ctx), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, collections)
}

type collectionRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleCreateCollection(c echo.Context) error {
	ctx := c.Request().Context()

	var req collectionRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	collections, err := h.bookmark.CreateCollection(ctx, middleware.RequesterID(ctx), req.Name)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, collections)
}

func (h *Handler) handleAddToCollection(c echo.Context) error {
	ctx := c.Request().Context()

	name, err := url.PathUnescape(c.Param("name"))
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid collection name")
	}

	collection, err := h.bookmark.AddToCollection(ctx, middleware.RequesterID(ctx), name, c.Param("threadId"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, collection)
}

func (h *Handler) handleRemoveFromCollection(c echo.Context) error {
	ctx := c.Request().Context()

	name, err := url.PathUnescape(c.Param("name"))
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid collection name")
	}

	collection, err := h.bookmark.RemoveFromCollection(ctx, middleware.RequesterID(ctx), name, c.Param("threadId"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, collection)
}

type paramError string

func (e paramError) Error() string { return string(e) }

// pageParams reads page and limit; empty values are left to the defaults.
func pageParams(c echo.Context) (page, limit int, err error) {
	if s := c.QueryParam("page"); s != "" {
		if page, err = strconv.Atoi(s); err != nil {
			return 0, 0, paramError("invalid page parameter")
		}
	}
	if s := c.QueryParam("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil {
			return 0, 0, paramError("invalid limit parameter")
		}
	}
	return page, limit, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
