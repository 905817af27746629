package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"warehouse-system/internal/storage"
)

type DocumentHTTPHandler struct {
	store *storage.DocumentStore
}

func NewDocumentHTTPHandler(store *storage.DocumentStore) *DocumentHTTPHandler {
	return &DocumentHTTPHandler{
		store: store,
	}
}

// Upload accepts a multipart "file" field and returns where it was stored.
func (h *DocumentHTTPHandler) Upload(c *gin.Context) {
	if h.store == nil {
		handleError(c, storage.ErrStorageDisabled)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxDocumentSize+1<<20)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("File is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Failed to read file"))
		return
	}
	defer file.Close()

	ctx, cancel := requestContext(c)
	defer cancel()

	doc, err := h.store.Upload(ctx, fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(doc))
}
