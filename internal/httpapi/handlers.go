package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/abhisek/medipredict/internal/features"
	"github.com/abhisek/medipredict/internal/predict"
	"github.com/abhisek/medipredict/internal/schema"
	"github.com/abhisek/medipredict/internal/store"
)

// PredictRequest is the JSON body of POST /api/predict. Age is a pointer so
// a missing field can be told apart from age 0.
type PredictRequest struct {
	Fever               string `json:"fever" binding:"required"`
	Cough               string `json:"cough" binding:"required"`
	Fatigue             string `json:"fatigue" binding:"required"`
	DifficultyBreathing string `json:"difficulty_breathing" binding:"required"`
	Age                 *int   `json:"age" binding:"required"`
	Gender              string `json:"gender" binding:"required"`
	BloodPressure       string `json:"blood_pressure" binding:"required"`
	CholesterolLevel    string `json:"cholesterol_level" binding:"required"`
}

// Record converts the request to a patient record.
func (r PredictRequest) Record() features.PatientRecord {
	rec := features.PatientRecord{
		Fever:               r.Fever,
		Cough:               r.Cough,
		Fatigue:             r.Fatigue,
		DifficultyBreathing: r.DifficultyBreathing,
		Gender:              r.Gender,
		BloodPressure:       r.BloodPressure,
		CholesterolLevel:    r.CholesterolLevel,
	}
	if r.Age != nil {
		rec.Age = *r.Age
	}
	return rec
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":      "Disease Prediction API",
		"version":      APIVersion,
		"status":       "running",
		"model_loaded": s.svc.Bundle() != nil,
		"endpoints": gin.H{
			"predict":     "/api/predict",
			"model_info":  "/api/model/info",
			"health":      "/api/health",
			"diseases":    "/api/diseases",
			"symptoms":    "/api/symptoms",
			"predictions": "/api/predictions",
		},
	})
}

func (s *Server) health(c *gin.Context) {
	b := s.svc.Bundle()
	status := "healthy"
	if b == nil {
		status = "model_not_loaded"
	}
	body := gin.H{
		"status":       status,
		"timestamp":    time.Now().Format(time.RFC3339Nano),
		"model_loaded": b != nil,
	}
	if b != nil && b.Metadata.Version != "" {
		body["model_version"] = b.Metadata.Version
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) diseases(c *gin.Context) {
	names, err := s.svc.Diseases()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, names)
}

func (s *Server) modelInfo(c *gin.Context) {
	md, err := s.svc.Metadata()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, md)
}

func (s *Server) reload(c *gin.Context) {
	if s.dir == "" {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "reload_disabled", "detail": "no artifacts directory configured"})
		return
	}
	b, err := s.svc.Reload(s.dir)
	if err != nil {
		logger.Logf("reload from %s failed: %v", s.dir, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reload_failed", "detail": err.Error()})
		return
	}
	logger.Logf("reloaded model %q from %s", b.Metadata.Version, s.dir)
	c.JSON(http.StatusOK, b.Metadata)
}

func (s *Server) predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  predict.KindInvalidInput.String(),
			"detail": err.Error(),
		})
		return
	}

	res, err := s.predictor.Predict(c.Request.Context(), req.Record())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) symptoms(c *gin.Context) {
	bp, chol := schema.SeverityLevels, schema.SeverityLevels
	if b := s.svc.Bundle(); b != nil {
		bp, chol = b.Mappings.BPMapping.Keys(), b.Mappings.CholMapping.Keys()
	}
	c.JSON(http.StatusOK, gin.H{
		"symptoms": gin.H{
			"fever":                schema.YesNoDomain,
			"cough":                schema.YesNoDomain,
			"fatigue":              schema.YesNoDomain,
			"difficulty_breathing": schema.YesNoDomain,
		},
		"patient_profile": gin.H{
			"age":               fmt.Sprintf("%d-%d", schema.MinAge, schema.MaxAge),
			"gender":            schema.GenderDomain,
			"blood_pressure":    bp,
			"cholesterol_level": chol,
		},
	})
}

type listQuery struct {
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Before  int64  `form:"before" binding:"omitempty,min=1"`
	Disease string `form:"disease"`
}

const defaultListLimit = 50

func (s *Server) listPredictions(c *gin.Context) {
	if s.history == nil {
		historyDisabled(c)
		return
	}
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": predict.KindInvalidInput.String(), "detail": err.Error()})
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultListLimit
	}

	recs, err := s.history.Recent(c.Request.Context(), store.QueryOpts{
		Limit:   q.Limit,
		Before:  q.Before,
		Disease: q.Disease,
	})
	if err != nil {
		logger.Logf("list predictions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history_unavailable", "detail": err.Error()})
		return
	}
	if recs == nil {
		recs = []store.PredictionRecord{}
	}

	body := gin.H{"predictions": recs}
	if len(recs) == q.Limit {
		body["next_before"] = recs[len(recs)-1].Sequence
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) getPrediction(c *gin.Context) {
	if s.history == nil {
		historyDisabled(c)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": predict.KindInvalidInput.String(), "detail": "invalid prediction id"})
		return
	}
	rec, err := s.history.Get(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "detail": err.Error()})
		return
	}
	if err != nil {
		logger.Logf("get prediction %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history_unavailable", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func historyDisabled(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"error": "history_disabled", "detail": "prediction history is disabled"})
}

// statusFor maps a predict error kind to an HTTP status.
func statusFor(kind predict.ErrorKind) int {
	switch kind {
	case predict.KindArtifactNotLoaded:
		return http.StatusServiceUnavailable
	case predict.KindInvalidInput:
		return http.StatusBadRequest
	case predict.KindCanceled:
		return 499
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	kind := predict.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		logger.Logf("%s %s: %s: %v", c.Request.Method, c.Request.URL.Path, kind, err)
	}
	c.JSON(status, gin.H{"error": kind.String(), "detail": err.Error()})
}
