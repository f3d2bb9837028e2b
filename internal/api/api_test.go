package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ivlev/prompt2path/internal/analyzer"
	"github.com/ivlev/prompt2path/internal/config"
	"github.com/ivlev/prompt2path/internal/director"
	"github.com/ivlev/prompt2path/internal/engine"
	"github.com/ivlev/prompt2path/internal/metadata"
	apperrors "github.com/ivlev/prompt2path/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGenerator struct {
	err     error
	modelID string
	req     engine.GenerateRequest
}

func (g *fakeGenerator) GenerateForScene(ctx context.Context, modelID string, summary analyzer.Summary, req engine.GenerateRequest) (*engine.Result, error) {
	g.modelID = modelID
	g.req = req
	if g.err != nil {
		return nil, g.err
	}
	return &engine.Result{
		ModelID:  modelID,
		Provider: "fake",
		Path: &director.CameraPath{
			ModelID: modelID,
			Keyframes: []director.Keyframe{
				{Position: director.Vec3{Z: 5}, Duration: 4, Easing: "linear"},
				{Position: director.Vec3{X: 5}, Duration: 4},
			},
			Duration: 8,
			Metadata: director.PathMetadata{Style: "orbit", Focus: "front"},
		},
	}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

func newTestRouter(gen PathGenerator, store metadata.Store, health *HealthHandler) *gin.Engine {
	cfg := config.Default()
	cfg.Observability.Metrics.Enabled = true
	return New(cfg, Deps{Paths: gen, Store: store, Health: health}).Engine()
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func pathRequest() map[string]any {
	return map[string]any{
		"instruction": "orbit the front",
		"duration":    8,
		"modelId":     "cube",
		"sceneGeometry": analyzer.Summary{
			VertexCount: 8,
			FaceCount:   12,
			BoundingBox: analyzer.BoxSummary{Min: [3]float64{-1, -1, -1}, Max: [3]float64{1, 1, 1}},
			Dimensions:  [3]float64{2, 2, 2},
		},
	}
}

func TestGeneratePath(t *testing.T) {
	gen := &fakeGenerator{}
	r := newTestRouter(gen, metadata.NewMemoryStore(), nil)

	w := do(r, http.MethodPost, "/v1/paths", pathRequest())
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}

	path, err := director.DecodeWire(w.Body.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(path.Keyframes) != 2 || path.Duration != 8 || path.Metadata.Style != "orbit" {
		t.Errorf("unexpected path: %+v", path)
	}
	if gen.modelID != "cube" || gen.req.Camera == nil {
		t.Errorf("generator got model %q camera %v", gen.modelID, gen.req.Camera)
	}
	t.Logf("body: %s", w.Body.String())
}

func TestGeneratePathErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		body   any
		status int
	}{
		{"empty body", nil, "", http.StatusBadRequest},
		{"missing scene", nil, map[string]any{"instruction": "x", "duration": 8, "modelId": "cube"}, http.StatusBadRequest},
		{"rejected path", apperrors.PathGenerationError(nil, "path rejected: keyframe 1: height"), pathRequest(), http.StatusBadGateway},
		{"bad scene", apperrors.AnalysisError("no geometry"), pathRequest(), http.StatusUnprocessableEntity},
		{"unknown failure", errors.New("boom"), pathRequest(), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeGenerator{err: tt.err}, metadata.NewMemoryStore(), nil)
			w := do(r, http.MethodPost, "/v1/paths", tt.body)
			if w.Code != tt.status {
				t.Fatalf("status %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if resp.Error == "" {
				t.Error("error body has no error message")
			}
		})
	}
}

func TestMetadataRoutes(t *testing.T) {
	store := metadata.NewMemoryStore()
	r := newTestRouter(&fakeGenerator{}, store, nil)

	if w := do(r, http.MethodGet, "/v1/models/cube/metadata", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown model: status %d", w.Code)
	}

	w := do(r, http.MethodPut, "/v1/models/cube/metadata", map[string]any{
		"ownerId":     "alice",
		"preferences": map[string]any{"defaultDistance": 6},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("put: status %d: %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/v1/models/cube/metadata", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: status %d", w.Code)
	}
	var md metadata.ModelMetadata
	if err := json.Unmarshal(w.Body.Bytes(), &md); err != nil {
		t.Fatal(err)
	}
	if md.ModelID != "cube" || md.OwnerID != "alice" || md.Preferences.DefaultDistance != 6 {
		t.Errorf("unexpected metadata: %+v", md)
	}
	if md.Orientation.Scale[0] != 1 {
		t.Errorf("new metadata lost the default orientation: %+v", md.Orientation)
	}

	w = do(r, http.MethodPut, "/v1/models/cube/environment", map[string]any{
		"constraints": map[string]any{"minDistance": 2.6, "maxDistance": 10, "minHeight": -0.9, "maxHeight": 4.4},
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("environment: status %d: %s", w.Code, w.Body.String())
	}
	stored, err := store.GetModelMetadata(context.Background(), "cube")
	if err != nil {
		t.Fatal(err)
	}
	if stored.EnvironmentSummary == nil || stored.EnvironmentSummary.Constraints.MaxDistance != 10 {
		t.Errorf("environment not stored: %+v", stored.EnvironmentSummary)
	}
	if stored.OwnerID != "alice" {
		t.Error("environment update dropped the owner")
	}

	w = do(r, http.MethodPut, "/v1/models/cube/environment", map[string]any{
		"constraints": map[string]any{"minDistance": 5, "maxDistance": 1},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("inverted constraints: status %d", w.Code)
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name     string
		required map[string]Pinger
		optional map[string]Pinger
		status   int
	}{
		{"all up", map[string]Pinger{"postgres": fakePinger{}}, map[string]Pinger{"redis": fakePinger{}}, http.StatusOK},
		{"cache down", map[string]Pinger{"postgres": fakePinger{}}, map[string]Pinger{"redis": fakePinger{errors.New("refused")}}, http.StatusOK},
		{"store down", map[string]Pinger{"postgres": fakePinger{errors.New("refused")}}, nil, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			health := NewHealthHandler("test", tt.required, tt.optional)
			r := newTestRouter(&fakeGenerator{}, metadata.NewMemoryStore(), health)
			w := do(r, http.MethodGet, "/ready", nil)
			if w.Code != tt.status {
				t.Fatalf("status %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			if tt.name == "cache down" && !strings.Contains(w.Body.String(), "degraded") {
				t.Errorf("optional failure not reported: %s", w.Body.String())
			}
		})
	}
}

func TestSystemRoutes(t *testing.T) {
	r := newTestRouter(&fakeGenerator{}, metadata.NewMemoryStore(), nil)
	for _, path := range []string{"/health", "/live", "/metrics"} {
		if w := do(r, http.MethodGet, path, nil); w.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, w.Code)
		}
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := do(r, http.MethodGet, "/panic", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"error"`) {
		t.Errorf("body: %s", w.Body.String())
	}
}
