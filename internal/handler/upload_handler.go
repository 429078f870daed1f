package handler

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

const (
	maxUploadBytes      = 10 << 20
	// multipart 边界与表单头的余量
	uploadEnvelopeBytes = 1 << 20
)

const (
	uploadTooLargeMessage   = "Images must be 10MB or smaller"
	unsupportedImageMessage = "Only PNG, JPEG, GIF or WebP images are allowed"
)

var imageExtensions = map[string]string{
	"png":  ".png",
	"jpeg": ".jpg",
	"gif":  ".gif",
	"webp": ".webp",
}

// UploadImage 处理区块图片上传，返回可直接填入 imageUrl 的地址。
func (a *API) UploadImage(c *gin.Context) {
	// 在解析表单之前限制请求体大小
	limit := int64(maxUploadBytes + uploadEnvelopeBytes)
	if c.Request.ContentLength > limit {
		respondError(c, http.StatusRequestEntityTooLarge, uploadTooLargeMessage)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	file, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, uploadTooLargeMessage)
			return
		}
		respondError(c, http.StatusBadRequest, "No image file was uploaded")
		return
	}
	if file.Size > maxUploadBytes {
		respondError(c, http.StatusRequestEntityTooLarge, uploadTooLargeMessage)
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "Failed to read the image")
		return
	}
	config, format, err := image.DecodeConfig(src)
	src.Close()
	if err != nil {
		respondError(c, http.StatusBadRequest, unsupportedImageMessage)
		return
	}
	ext, ok := imageExtensions[format]
	if !ok {
		respondError(c, http.StatusBadRequest, unsupportedImageMessage)
		return
	}

	if err := os.MkdirAll(a.uploadDir, 0o755); err != nil {
		a.logger.Error("create upload dir", zap.String("dir", a.uploadDir), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to prepare the upload directory")
		return
	}

	// 生成唯一文件名
	newFilename := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102"), uuid.NewString(), ext)
	if err := c.SaveUploadedFile(file, filepath.Join(a.uploadDir, newFilename)); err != nil {
		a.logger.Error("save upload", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to save the image")
		return
	}

	fileURL := path.Join("/", strings.Trim(a.uploadURL, "/"), newFilename)
	c.JSON(http.StatusOK, gin.H{
		"message": "Image uploaded",
		"data": gin.H{
			"url":    fileURL,
			"width":  config.Width,
			"height": config.Height,
			"format": format,
		},
	})
}
