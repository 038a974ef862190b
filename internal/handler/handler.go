package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kaistullich/Image-Converter/internal/domain"
	"github.com/kaistullich/Image-Converter/internal/repository"
	"github.com/kaistullich/Image-Converter/internal/service"
)

const (
	// UploadsURLPrefix is where the upload directory is served from.
	UploadsURLPrefix = "/static/uploaded_img"

	fileField   = "file"
	flashCookie = "flash"
)

type Handler struct {
	service       service.ImageService
	maxUploadSize int64
	log           *zap.Logger
}

func NewHandler(service service.ImageService, maxUploadSize int64, log *zap.Logger) *Handler {
	return &Handler{
		service:       service,
		maxUploadSize: maxUploadSize,
		log:           log,
	}
}

// Register mounts the page routes on router.
func (h *Handler) Register(router gin.IRouter) {
	router.GET("/", h.GetUI)
	router.POST("/", h.UploadImage)
	router.GET("/uploads/:filename", h.ShowImage)
	router.GET("/health", h.HealthCheck)
}

func (h *Handler) GetUI(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"Notice": h.popFlash(c)})
}

func (h *Handler) UploadImage(c *gin.Context) {
	req, closeFile, err := h.uploadRequest(c)
	if err != nil {
		h.log.Error("Failed to open uploaded file", zap.Error(err))
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{})
		return
	}
	defer closeFile()

	result := h.service.Upload(c.Request.Context(), req)

	switch result.State {
	case domain.StateRejected:
		h.setFlash(c, result.Reason.Notice())
		c.Redirect(http.StatusFound, "/")
	case domain.StateConverted:
		c.Redirect(http.StatusFound, "/uploads/"+url.PathEscape(result.Filename))
	default:
		c.HTML(http.StatusUnprocessableEntity, "error.html", gin.H{})
	}
}

func (h *Handler) ShowImage(c *gin.Context) {
	name := c.Param("filename")

	img, err := h.service.Lookup(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidName) {
			c.HTML(http.StatusNotFound, "error.html", gin.H{"Message": "Image not found."})
			return
		}
		h.log.Error("Failed to look up image", zap.String("filename", name), zap.Error(err))
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{})
		return
	}

	c.HTML(http.StatusOK, "upload_complete.html", gin.H{
		"ImgName": img.Name,
		"ImgURL":  UploadsURLPrefix + "/" + url.PathEscape(img.Name),
	})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

// uploadRequest reads the multipart form into an UploadRequest. A form that
// cannot be parsed is treated as one without a file part.
func (h *Handler) uploadRequest(c *gin.Context) (domain.UploadRequest, func(), error) {
	noop := func() {}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)

	form, err := c.MultipartForm()
	if err != nil {
		if isTooLarge(err) {
			return domain.UploadRequest{TooLarge: true}, noop, nil
		}
		h.log.Debug("Upload without multipart form", zap.Error(err))
		return domain.UploadRequest{}, noop, nil
	}

	if files := form.File[fileField]; len(files) > 0 {
		header := files[0]
		f, err := header.Open()
		if err != nil {
			return domain.UploadRequest{}, noop, err
		}
		return domain.UploadRequest{
			FieldPresent: true,
			Filename:     header.Filename,
			Content:      f,
		}, func() { closeQuietly(f) }, nil
	}

	// A file input submitted with nothing selected arrives as a plain value.
	if _, ok := form.Value[fileField]; ok {
		return domain.UploadRequest{FieldPresent: true}, noop, nil
	}

	return domain.UploadRequest{}, noop, nil
}

// isTooLarge reports whether err came from the MaxBytesReader. multipart
// wraps reader errors with %w, so errors.As reaches it from ReadForm.
func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func closeQuietly(f multipart.File) {
	_ = f.Close()
}

func (h *Handler) setFlash(c *gin.Context, notice string) {
	c.SetCookie(flashCookie, notice, 60, "/", "", false, true)
}

func (h *Handler) popFlash(c *gin.Context) string {
	notice, err := c.Cookie(flashCookie)
	if err != nil || notice == "" {
		return ""
	}
	c.SetCookie(flashCookie, "", -1, "/", "", false, true)
	return notice
}
