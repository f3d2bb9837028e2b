package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/analyzer"
	"github.com/ivlev/prompt2path/internal/director"
	"github.com/ivlev/prompt2path/internal/engine"
	"github.com/ivlev/prompt2path/internal/geom"
	"github.com/ivlev/prompt2path/internal/metadata"
	"github.com/ivlev/prompt2path/internal/source"
	apperrors "github.com/ivlev/prompt2path/pkg/errors"
	"github.com/ivlev/prompt2path/pkg/logger"
)

// PathGenerator produces validated paths for scenes analyzed by the caller.
type PathGenerator interface {
	GenerateForScene(ctx context.Context, modelID string, summary analyzer.Summary, req engine.GenerateRequest) (*engine.Result, error)
}

// PathHandler serves the path-generation endpoint.
type PathHandler struct {
	generator PathGenerator
}

func NewPathHandler(generator PathGenerator) *PathHandler {
	return &PathHandler{generator: generator}
}

// Generate answers with the wire path or an {error} body.
func (h *PathHandler) Generate(c *gin.Context) {
	var req GeneratePathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	modelID := strings.TrimSpace(req.ModelID)
	if modelID == "" {
		writeError(c, apperrors.ErrInvalidParam.WithDetail("modelId is empty"))
		return
	}

	genReq := engine.GenerateRequest{Instruction: req.Instruction, Duration: req.Duration}
	if req.Camera != nil {
		genReq.Camera = &geom.Pose{Position: req.Camera.Position.Vec(), Target: req.Camera.Target.Vec()}
	} else {
		genReq.Camera = defaultCamera(*req.SceneGeometry)
	}

	res, err := h.generator.GenerateForScene(c.Request.Context(), modelID, *req.SceneGeometry, genReq)
	if err != nil {
		writeError(c, err)
		return
	}

	body, err := director.EncodeWire(res.Path)
	if err != nil {
		writeError(c, apperrors.ErrInternalError.WithError(err))
		return
	}
	logger.Info(c.Request.Context(), "path generated",
		"model_id", modelID, "provider", res.Provider, "keyframes", len(res.Path.Keyframes))
	c.Header("X-Path-Provider", res.Provider)
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// defaultCamera looks at the model center from the front, outside its bounding sphere.
func defaultCamera(s analyzer.Summary) *geom.Pose {
	center := mgl64.Vec3(s.Center)
	size := mgl64.Vec3(s.Dimensions)
	radius := size.Len() / 2
	if radius <= 0 {
		radius = 1
	}
	return &geom.Pose{
		Position: center.Add(mgl64.Vec3{0, radius * 0.5, radius * 2.5}),
		Target:   center,
	}
}

// MetadataHandler serves per-model metadata.
type MetadataHandler struct {
	store metadata.Store
}

func NewMetadataHandler(store metadata.Store) *MetadataHandler {
	return &MetadataHandler{store: store}
}

func (h *MetadataHandler) Get(c *gin.Context) {
	md, err := h.store.GetModelMetadata(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, md)
}

// Put merges the request into the stored metadata, creating it when absent.
func (h *MetadataHandler) Put(c *gin.Context) {
	id := c.Param("id")
	var req MetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx := c.Request.Context()
	md, err := h.store.GetModelMetadata(ctx, id)
	switch {
	case apperrors.IsKind(err, apperrors.CodeNotFound):
		md = &metadata.ModelMetadata{ModelID: id, Orientation: source.DefaultOrientation()}
	case err != nil:
		writeError(c, err)
		return
	}
	req.apply(md)

	if err := h.store.StoreModelMetadata(ctx, id, md); err != nil {
		writeError(c, err)
		return
	}
	stored, err := h.store.GetModelMetadata(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stored)
}

// PutEnvironment replaces the stored environment summary.
func (h *MetadataHandler) PutEnvironment(c *gin.Context) {
	id := c.Param("id")
	var env metadata.EnvironmentMetadata
	if err := c.ShouldBindJSON(&env); err != nil {
		bindError(c, err)
		return
	}
	if env.Constraints.MaxDistance <= 0 || env.Constraints.MinDistance > env.Constraints.MaxDistance {
		writeError(c, apperrors.ErrInvalidParam.WithDetail("constraints need 0 < minDistance <= maxDistance"))
		return
	}

	if err := h.store.StoreEnvironmentalMetadata(c.Request.Context(), id, &env); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
