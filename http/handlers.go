package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"aquasense/db"
	"aquasense/monitoring"
	"aquasense/quality"
	"aquasense/registry"
)

// 包级依赖，由main注入
var (
	modelRegistry *registry.Registry
	monitorHub    *monitoring.Hub
	validator     = quality.NewValidator()

	predictionCache *lru.Cache[string, *PredictResponse]
)

// currentBundle 返回当前模型，测试可覆盖
var currentBundle = func() *registry.Bundle {
	if modelRegistry == nil {
		return nil
	}
	return modelRegistry.Current()
}

// SetRegistry 注入模型注册表
func SetRegistry(r *registry.Registry) { modelRegistry = r }

// SetMonitorHub 注入监控中心
func SetMonitorHub(h *monitoring.Hub) { monitorHub = h }

// InitPredictionCache 初始化预测结果缓存
func InitPredictionCache(size int) error {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[string, *PredictResponse](size)
	if err != nil {
		return err
	}
	predictionCache = cache
	return nil
}

// RegisterHandlers 注册所有API处理器
func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", handleHome)
	mux.HandleFunc("/", handleNotFound)

	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/model-info", handleModelInfo)
	mux.HandleFunc("POST /api/predict", handlePredict)
	mux.HandleFunc("GET /api/predict", handlePredictUsage)
	mux.HandleFunc("POST /api/check", handleGuidelineCheck)
	mux.HandleFunc("GET /api/models", handleModels)
	mux.HandleFunc("GET /api/predictions", handleRecentPredictions)
	mux.HandleFunc("GET /api/training-log", handleTrainingLog)
	mux.HandleFunc("GET /api/ws/monitor", handleMonitorWS)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger().Warn("response encode failed", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

const apiVersion = "1.0.0"

var apiEndpoints = map[string]string{
	"GET /api/health":       "service health and model status",
	"GET /api/model-info":   "metadata of the active model",
	"POST /api/predict":     "potability prediction for one sample",
	"POST /api/check":       "rule-based guideline check",
	"GET /api/models":       "all persisted model versions",
	"GET /api/predictions":  "recently served predictions",
	"GET /api/training-log": "training run history",
	"GET /api/ws/monitor":   "realtime event stream",
}

func handleHome(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"service":   "water potability prediction api",
		"version":   apiVersion,
		"status":    "running",
		"timestamp": time.Now().Format(time.RFC3339),
		"endpoints": apiEndpoints,
	})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":     "endpoint not found",
		"endpoints": apiEndpoints,
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	bundle := currentBundle()
	status := map[string]interface{}{
		"status":       "healthy",
		"model_loaded": bundle != nil,
		"timestamp":    time.Now().Format(time.RFC3339),
	}
	if bundle != nil {
		status["model_version"] = bundle.Metadata.TrainingDate
	}
	respondJSON(w, http.StatusOK, status)
}

func handleModelInfo(w http.ResponseWriter, r *http.Request) {
	bundle := currentBundle()
	if bundle == nil {
		respondJSON(w, http.StatusOK, map[string]string{
			"status":  "not_loaded",
			"message": "No trained model available, run a training first",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "loaded",
		"model_info": bundle.Metadata,
	})
}

// PredictResponse 预测接口响应体
type PredictResponse struct {
	Prediction      PredictionBlock    `json:"prediction"`
	InputParameters map[string]float64 `json:"input_parameters"`
	Validation      ValidationBlock    `json:"validation"`
	Metadata        ResponseMetadata   `json:"metadata"`
}

// PredictionBlock 预测结论
type PredictionBlock struct {
	RawPrediction     int                `json:"raw_prediction"`
	IsSafeToDrink     bool               `json:"is_safe_to_drink"`
	SafetyStatus      string             `json:"safety_status"`
	Confidence        float64            `json:"confidence"`
	ProbabilityScores map[string]float64 `json:"probability_scores"`
}

// ValidationBlock 输入校验结果
type ValidationBlock struct {
	IsValid  bool     `json:"is_valid"`
	Warnings []string `json:"warnings"`
}

// ResponseMetadata 响应附加信息
type ResponseMetadata struct {
	Timestamp    string `json:"timestamp"`
	ModelVersion string `json:"model_version"`
	Cached       bool   `json:"cached,omitempty"`
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	bundle := currentBundle()
	if bundle == nil {
		respondError(w, http.StatusServiceUnavailable, "Model not loaded")
		return
	}

	var input map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || len(input) == 0 {
		respondError(w, http.StatusBadRequest, "No input data provided")
		return
	}

	sample, missing, invalid := parseSample(input)
	if len(missing) > 0 {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":    "Missing required parameters",
			"missing":  missing,
			"required": quality.ParameterNames(),
		})
		return
	}
	if len(invalid) > 0 {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "Invalid parameter values",
			"invalid": invalid,
		})
		return
	}

	_, warnings := validator.ValidateRanges(sample)
	if warnings == nil {
		warnings = []string{}
	}

	// 命中缓存时跳过模型推理，落库与广播照常
	key := cacheKey(bundle.Metadata.TrainingDate, sample)
	if predictionCache != nil {
		if cached, ok := predictionCache.Get(key); ok {
			response := *cached
			response.Metadata.Timestamp = time.Now().Format(time.RFC3339)
			response.Metadata.Cached = true
			recordPrediction(sample, &response)
			respondJSON(w, http.StatusOK, &response)
			return
		}
	}

	transformed, err := bundle.Pipeline().Apply(sample.Vector())
	if err != nil {
		logger().Error("preprocessing failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Prediction failed")
		return
	}
	proba, err := bundle.Model.PredictProba(transformed)
	if err != nil {
		logger().Error("prediction failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Prediction failed")
		return
	}
	label := 0
	if proba[1] > proba[0] {
		label = 1
	}
	confidence := proba[label]

	safetyStatus := "Not Safe to Drink"
	if label == 1 {
		safetyStatus = "Safe to Drink"
	}

	inputParams := make(map[string]float64, 9)
	for i, name := range quality.ParameterNames() {
		inputParams[name] = sample.Vector()[i]
	}

	response := &PredictResponse{
		Prediction: PredictionBlock{
			RawPrediction: label,
			IsSafeToDrink: label == 1,
			SafetyStatus:  safetyStatus,
			Confidence:    confidence,
			ProbabilityScores: map[string]float64{
				"not_safe": proba[0],
				"safe":     proba[1],
			},
		},
		InputParameters: inputParams,
		Validation: ValidationBlock{
			IsValid:  len(warnings) == 0,
			Warnings: warnings,
		},
		Metadata: ResponseMetadata{
			Timestamp:    time.Now().Format(time.RFC3339),
			ModelVersion: bundle.Metadata.TrainingDate,
		},
	}

	if predictionCache != nil {
		predictionCache.Add(key, response)
	}
	recordPrediction(sample, response)

	respondJSON(w, http.StatusOK, response)
}

// recordPrediction 落库与广播尽力而为，失败不影响响应
func recordPrediction(sample quality.Sample, response *PredictResponse) {
	if err := db.SavePrediction(db.PredictionRecord{
		Inputs:         sample.Vector(),
		PredictedLabel: response.Prediction.RawPrediction,
		Confidence:     response.Prediction.Confidence,
		ModelVersion:   response.Metadata.ModelVersion,
		Warnings:       response.Validation.Warnings,
	}); err != nil {
		logger().Debug("prediction not persisted", zap.Error(err))
	}
	if monitorHub != nil {
		monitorHub.Publish(monitoring.PredictionEvent, response.Prediction)
	}
}

func handlePredictUsage(w http.ResponseWriter, r *http.Request) {
	example := map[string]float64{
		"ph":              7.0,
		"hardness":        200.0,
		"solids":          20000.0,
		"chloramines":     7.0,
		"sulfate":         350.0,
		"conductivity":    400.0,
		"organic_carbon":  14.0,
		"trihalomethanes": 80.0,
		"turbidity":       4.0,
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":             "Send a POST request with water quality parameters",
		"required_parameters": quality.ParameterNames(),
		"example":             example,
	})
}

func handleGuidelineCheck(w http.ResponseWriter, r *http.Request) {
	var input map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || len(input) == 0 {
		respondError(w, http.StatusBadRequest, "No input data provided")
		return
	}
	sample, missing, invalid := parseSample(input)
	if len(missing) > 0 {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":    "Missing required parameters",
			"missing":  missing,
			"required": quality.ParameterNames(),
		})
		return
	}
	if len(invalid) > 0 {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "Invalid parameter values",
			"invalid": invalid,
		})
		return
	}

	potable, violations := validator.CheckGuidelines(sample)
	if violations == nil {
		violations = []quality.Violation{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"potable":    potable,
		"violations": violations,
		"timestamp":  time.Now().Format(time.RFC3339),
	})
}

func handleModels(w http.ResponseWriter, r *http.Request) {
	if modelRegistry == nil {
		respondError(w, http.StatusServiceUnavailable, "Registry not configured")
		return
	}
	models, err := modelRegistry.Bundles()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list models")
		return
	}
	if models == nil {
		models = []registry.Metadata{}
	}
	versions := make([]string, 0, len(models))
	for _, meta := range models {
		versions = append(versions, meta.TrainingDate)
	}
	active := ""
	if bundle := currentBundle(); bundle != nil {
		active = bundle.Metadata.TrainingDate
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"versions": versions,
		"models":   models,
		"active":   active,
	})
}

func handleRecentPredictions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	records, err := db.RecentPredictions(limit)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Prediction history unavailable")
		return
	}
	if records == nil {
		records = []db.PredictionRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"predictions": records})
}

func handleTrainingLog(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	entries, err := db.LoadTrainingLog(limit)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Training history unavailable")
		return
	}
	if entries == nil {
		entries = []db.TrainingEntry{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func handleMonitorWS(w http.ResponseWriter, r *http.Request) {
	if monitorHub == nil {
		respondError(w, http.StatusServiceUnavailable, "Monitoring not enabled")
		return
	}
	monitorHub.HandleWebSocket(w, r)
}

// parseSample 提取九项参数，数值字符串同样接受
func parseSample(input map[string]interface{}) (quality.Sample, []string, []string) {
	var missing, invalid []string
	values := make([]float64, 9)
	for i, name := range quality.ParameterNames() {
		raw, ok := input[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		switch v := raw.(type) {
		case float64:
			values[i] = v
		case string:
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				invalid = append(invalid, name)
				continue
			}
			values[i] = parsed
		default:
			invalid = append(invalid, name)
		}
	}
	return quality.FromVector(values), missing, invalid
}

func cacheKey(version string, sample quality.Sample) string {
	return fmt.Sprintf("%s|%v", version, sample.Vector())
}
