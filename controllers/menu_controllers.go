package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/yeremiapane/menu-catalog/repositories"
	"github.com/yeremiapane/menu-catalog/services"
	"github.com/yeremiapane/menu-catalog/storage"
	"github.com/yeremiapane/menu-catalog/utils"
)

const (
	msgFetchError   = "Error fetching menu items"
	msgFetchOne     = "Error fetching menu item"
	msgCreateError  = "Error creating menu item"
	msgUpdateError  = "Error updating menu item"
	msgDeleteError  = "Error deleting menu item"
	msgNotFound     = "Menu item not found"
	msgInvalidID    = "Invalid menu item id"
	msgDeleted      = "Menu item deleted"
	msgTooLarge     = "Upload too large"
	msgFileNotFound = "File not found"
)

type MenuItemController struct {
	Service *services.MenuItemService
	Images  storage.ImageStore

	// MaxUploadBytes caps the request body of create and update.
	MaxUploadBytes int64
}

func NewMenuItemController(svc *services.MenuItemService, images storage.ImageStore, maxUploadBytes int64) *MenuItemController {
	return &MenuItemController{Service: svc, Images: images, MaxUploadBytes: maxUploadBytes}
}

type createMenuItemForm struct {
	Name     string `form:"name" binding:"required"`
	Price    string `form:"price" binding:"required"`
	Category string `form:"category" binding:"required"`
}

// GetMenuItems
// Endpoint: GET /menu-items?category=<exact>&search=<substring>
func (mc *MenuItemController) GetMenuItems(c *gin.Context) {
	filter := repositories.MenuItemFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}

	items, err := mc.Service.List(c.Request.Context(), filter)
	if err != nil {
		mc.respondError(c, err, msgFetchError)
		return
	}

	utils.RespondJSON(c, http.StatusOK, items)
}

// GetMenuItemByID
func (mc *MenuItemController) GetMenuItemByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	item, err := mc.Service.Get(c.Request.Context(), id)
	if err != nil {
		mc.respondError(c, err, msgFetchOne)
		return
	}

	utils.RespondJSON(c, http.StatusOK, item)
}

// CreateMenuItem
// Multipart form: name, price, category, image (optional file)
func (mc *MenuItemController) CreateMenuItem(c *gin.Context) {
	mc.limitBody(c)

	var form createMenuItemForm
	if err := c.ShouldBind(&form); err != nil {
		mc.respondBindError(c, err)
		return
	}

	upload, cleanup, ok := mc.formUpload(c)
	if !ok {
		return
	}
	defer cleanup()

	item, err := mc.Service.Create(c.Request.Context(), services.MenuItemInput{
		Name:     form.Name,
		Price:    form.Price,
		Category: form.Category,
	}, upload)
	if err != nil {
		mc.respondError(c, err, msgCreateError)
		return
	}

	utils.RespondJSON(c, http.StatusOK, item)
}

// UpdateMenuItem replaces name, price and category. The image changes only
// when a new file is attached.
func (mc *MenuItemController) UpdateMenuItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	mc.limitBody(c)

	// Parse form dulu, field yang kosong divalidasi di service
	if err := c.Request.ParseMultipartForm(mc.maxMemory()); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		mc.respondBindError(c, err)
		return
	}

	upload, cleanup, ok := mc.formUpload(c)
	if !ok {
		return
	}
	defer cleanup()

	item, err := mc.Service.Update(c.Request.Context(), id, services.MenuItemInput{
		Name:     c.PostForm("name"),
		Price:    c.PostForm("price"),
		Category: c.PostForm("category"),
	}, upload)
	if err != nil {
		mc.respondError(c, err, msgUpdateError)
		return
	}

	utils.RespondJSON(c, http.StatusOK, item)
}

// DeleteMenuItem removes the row and, best-effort, its image.
func (mc *MenuItemController) DeleteMenuItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := mc.Service.Delete(c.Request.Context(), id); err != nil {
		mc.respondError(c, err, msgDeleteError)
		return
	}

	utils.RespondMessage(c, http.StatusOK, msgDeleted)
}

// ServeImage streams a stored asset.
// Endpoint: GET /uploads/*filepath
func (mc *MenuItemController) ServeImage(c *gin.Context) {
	p := storage.PathPrefix + c.Param("filepath")

	obj, err := mc.Images.Open(c.Request.Context(), p)
	if err != nil {
		if errors.Is(err, storage.ErrImageNotFound) {
			utils.RespondError(c, http.StatusNotFound, msgFileNotFound)
			return
		}
		utils.ErrorLogger.Errorf("Error opening image %s: %v", p, err)
		utils.RespondError(c, http.StatusInternalServerError, "Error reading file")
		return
	}
	defer obj.Close()

	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj, nil)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, msgInvalidID)
		return 0, false
	}
	return uint(id), true
}

func (mc *MenuItemController) maxMemory() int64 {
	if mc.MaxUploadBytes > 0 {
		return mc.MaxUploadBytes
	}
	return 10 << 20
}

func (mc *MenuItemController) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, mc.maxMemory())
}

// formUpload returns the "image" file, or nil when none was sent.
func (mc *MenuItemController) formUpload(c *gin.Context) (*services.Upload, func(), bool) {
	noop := func() {}

	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, true
		}
		mc.respondBindError(c, err)
		return nil, noop, false
	}

	f, err := fh.Open()
	if err != nil {
		utils.ErrorLogger.Errorf("Error opening uploaded file: %v", err)
		utils.RespondError(c, http.StatusBadRequest, "Error processing uploaded file")
		return nil, noop, false
	}

	return &services.Upload{
		Filename: fh.Filename,
		Size:     fh.Size,
		Content:  f,
	}, func() { f.Close() }, true
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

func (mc *MenuItemController) respondBindError(c *gin.Context, err error) {
	if isTooLarge(err) {
		utils.RespondError(c, http.StatusRequestEntityTooLarge, msgTooLarge)
		return
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		utils.RespondError(c, http.StatusBadRequest, strings.ToLower(fe.Field())+" is required")
		return
	}

	utils.RespondError(c, http.StatusBadRequest, "Invalid form data")
}

func (mc *MenuItemController) respondError(c *gin.Context, err error, fallback string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.RespondError(c, http.StatusBadRequest, verr.Error())
	case errors.Is(err, repositories.ErrMenuItemNotFound):
		utils.RespondError(c, http.StatusNotFound, msgNotFound)
	default:
		utils.ErrorLogger.Errorf("%s: %v", fallback, err)
		c.Error(err)
		utils.RespondError(c, http.StatusInternalServerError, fallback)
	}
}
