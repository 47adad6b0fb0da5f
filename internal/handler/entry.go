package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/andymattgee/swe-blog/internal/logging"
	"github.com/andymattgee/swe-blog/internal/model"
	"github.com/andymattgee/swe-blog/internal/service"
)

// EntryHandler serves /entries. Every call is scoped to the authenticated
// user; a foreign id answers exactly like a missing one.
type EntryHandler struct {
	Entries       *service.EntryService
	MaxImageBytes int64
	Log           logging.Logger
}

func NewEntryHandler(entries *service.EntryService, maxImageBytes int64, log logging.Logger) *EntryHandler {
	return &EntryHandler{Entries: entries, MaxImageBytes: maxImageBytes, Log: log}
}

type entryReq struct {
	Title               *string `json:"title"`
	ProfessionalContent *string `json:"professionalContent"`
	PersonalContent     *string `json:"personalContent"`
	RemoveImage         bool    `json:"removeImage"`
}

func (r entryReq) input() model.EntryInput {
	return model.EntryInput{
		Title:               r.Title,
		ProfessionalContent: r.ProfessionalContent,
		PersonalContent:     r.PersonalContent,
		RemoveImage:         r.RemoveImage,
	}
}

// bindEntry reads a JSON body or a multipart form carrying the same fields
// plus an optional "image" file.
func (h *EntryHandler) bindEntry(c echo.Context) (model.EntryInput, *service.ImageUpload, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		var req entryReq
		if err := c.Bind(&req); err != nil {
			return model.EntryInput{}, nil, &service.ValidationError{Field: "body", Msg: "invalid body"}
		}
		return req.input(), nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return model.EntryInput{}, nil, &service.ValidationError{Field: "body", Msg: "invalid multipart form"}
	}
	field := func(name string) *string {
		if v, ok := form.Value[name]; ok && len(v) > 0 {
			return &v[0]
		}
		return nil
	}
	var req entryReq
	req.Title = field("title")
	req.ProfessionalContent = field("professionalContent")
	req.PersonalContent = field("personalContent")
	if v := field("removeImage"); v != nil {
		req.RemoveImage, _ = strconv.ParseBool(*v)
	}
	img, err := readImage(c, "image", h.MaxImageBytes)
	if err != nil {
		return model.EntryInput{}, nil, err
	}
	return req.input(), img, nil
}

// List returns the user's entries, newest first.
func (h *EntryHandler) List(c echo.Context) error {
	u, err := currentUser(c)
	if u == nil {
		return err
	}
	ctx, cancel := requestCtx(c, dbTimeout)
	defer cancel()

	list, err := h.Entries.List(ctx, u.ID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "count": len(list), "data": list})
}

// Get returns a one-element array, the shape the web client reads.
func (h *EntryHandler) Get(c echo.Context) error {
	u, err := currentUser(c)
	if u == nil {
		return err
	}
	id, ok := parseID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := requestCtx(c, dbTimeout)
	defer cancel()

	e, err := h.Entries.Get(ctx, u.ID, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, []model.Entry{*e})
}

func (h *EntryHandler) Create(c echo.Context) error {
	u, err := currentUser(c)
	if u == nil {
		return err
	}
	in, img, err := h.bindEntry(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := requestCtx(c, uploadTimeout)
	defer cancel()

	e, err := h.Entries.Create(ctx, u.ID, in, img)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"entry": e})
}

func (h *EntryHandler) Update(c echo.Context) error {
	u, err := currentUser(c)
	if u == nil {
		return err
	}
	id, ok := parseID(c)
	if !ok {
		return notFound(c)
	}
	in, img, err := h.bindEntry(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := requestCtx(c, uploadTimeout)
	defer cancel()

	e, err := h.Entries.Update(ctx, u.ID, id, in, img)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"entry": e})
}

func (h *EntryHandler) Delete(c echo.Context) error {
	u, err := currentUser(c)
	if u == nil {
		return err
	}
	id, ok := parseID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := requestCtx(c, dbTimeout)
	defer cancel()

	if err := h.Entries.Delete(ctx, u.ID, id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Summarize queues an AI summary; the result appears on the entry later.
func (h *EntryHandler) Summarize(c echo.Context) error {
	u, err := currentUser(c)
	if u == nil {
		return err
	}
	id, ok := parseID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := requestCtx(c, dbTimeout)
	defer cancel()

	if err := h.Entries.RequestSummary(ctx, u.ID, id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"queued": true})
}
