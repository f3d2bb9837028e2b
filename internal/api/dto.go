package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ivlev/prompt2path/internal/analyzer"
	"github.com/ivlev/prompt2path/internal/director"
	"github.com/ivlev/prompt2path/internal/metadata"
	"github.com/ivlev/prompt2path/internal/source"
	apperrors "github.com/ivlev/prompt2path/pkg/errors"
	"github.com/ivlev/prompt2path/pkg/logger"
)

// GeneratePathRequest is the body of POST /v1/paths.
type GeneratePathRequest struct {
	Instruction   string            `json:"instruction" binding:"required"`
	SceneGeometry *analyzer.Summary `json:"sceneGeometry" binding:"required"`
	Duration      float64           `json:"duration" binding:"required,gt=0"`
	ModelID       string            `json:"modelId" binding:"required"`
	Camera        *CameraDTO        `json:"camera,omitempty"`
}

// CameraDTO is the viewer camera at request time.
type CameraDTO struct {
	Position director.Vec3 `json:"position"`
	Target   director.Vec3 `json:"target"`
}

// ErrorResponse is every non-2xx body. Error is the only field clients rely on.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// MetadataRequest is the body of PUT /v1/models/:id/metadata.
type MetadataRequest struct {
	OwnerID     string                `json:"ownerId"`
	Orientation *source.Orientation   `json:"orientation"`
	Preferences *metadata.Preferences `json:"preferences"`
}

func (r *MetadataRequest) apply(md *metadata.ModelMetadata) {
	if r.OwnerID != "" {
		md.OwnerID = r.OwnerID
	}
	if r.Orientation != nil {
		md.Orientation = *r.Orientation
	}
	if r.Preferences != nil {
		md.Preferences = *r.Preferences
	}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

func writeError(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed", err, "path", c.FullPath())
	}

	var body ErrorResponse
	body.Error = appErr.Error()
	body.Code = string(appErr.Code)
	body.RequestID = c.GetString("request_id")
	body.Retryable = apperrors.Retryable(err)
	c.AbortWithStatusJSON(status, body)
}

func bindError(c *gin.Context, err error) {
	var detail string
	if errors.Is(err, io.EOF) {
		detail = "request body is empty"
	} else {
		detail = err.Error()
	}
	writeError(c, apperrors.ErrInvalidParam.WithDetail(detail))
}
