package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"aquasense/monitoring"
	"aquasense/train"
)

// 训练状态，POST /api/train 异步执行一次完整训练
var (
	trainingMu     sync.Mutex
	trainingConfig *train.Config
	trainingState  = TrainingState{Status: "idle"}
)

// TrainingState 当前训练状态
type TrainingState struct {
	Status     string             `json:"status"` // idle, running, completed, failed
	StartedAt  string             `json:"started_at,omitempty"`
	FinishedAt string             `json:"finished_at,omitempty"`
	Error      string             `json:"error,omitempty"`
	Best       *train.ModelScore  `json:"best,omitempty"`
	Scores     []train.ModelScore `json:"scores,omitempty"`
}

// SetTrainingConfig 注入训练配置，未配置时训练接口返回503
func SetTrainingConfig(cfg *train.Config) {
	trainingMu.Lock()
	defer trainingMu.Unlock()
	trainingConfig = cfg
}

// RegisterTrainingHandlers 注册训练相关处理器
func RegisterTrainingHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/train", handleTrainStart)
	mux.HandleFunc("GET /api/train/status", handleTrainStatus)
}

// trainOverrides are optional per-request tweaks to the configured run.
type trainOverrides struct {
	Imputers []string `json:"imputers"`
	Models   []string `json:"models"`
	SMOTE    *bool    `json:"smote"`
}

func handleTrainStart(w http.ResponseWriter, r *http.Request) {
	var overrides trainOverrides
	if r.Body != nil {
		// 空请求体表示按配置训练
		_ = json.NewDecoder(r.Body).Decode(&overrides)
	}

	trainingMu.Lock()
	if trainingConfig == nil {
		trainingMu.Unlock()
		respondError(w, http.StatusServiceUnavailable, "Training not configured")
		return
	}
	if trainingState.Status == "running" {
		trainingMu.Unlock()
		respondError(w, http.StatusConflict, "Training already in progress")
		return
	}
	cfg := *trainingConfig
	if len(overrides.Imputers) > 0 {
		cfg.Imputers = overrides.Imputers
	}
	if len(overrides.Models) > 0 {
		cfg.Models = overrides.Models
	}
	if overrides.SMOTE != nil {
		cfg.SMOTE = *overrides.SMOTE
	}
	trainingState = TrainingState{
		Status:    "running",
		StartedAt: time.Now().Format(time.RFC3339),
	}
	trainingMu.Unlock()

	go runTraining(cfg)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":  "started",
		"message": "Training started, poll /api/train/status",
	})
}

func handleTrainStatus(w http.ResponseWriter, r *http.Request) {
	trainingMu.Lock()
	state := trainingState
	trainingMu.Unlock()
	respondJSON(w, http.StatusOK, state)
}

func runTraining(cfg train.Config) {
	result, err := train.Run(context.Background(), cfg, logger())

	trainingMu.Lock()
	trainingState.FinishedAt = time.Now().Format(time.RFC3339)
	if err != nil {
		trainingState.Status = "failed"
		trainingState.Error = err.Error()
	} else {
		trainingState.Status = "completed"
		trainingState.Best = &result.Best
		trainingState.Scores = result.Scores
	}
	trainingMu.Unlock()

	if err != nil {
		logger().Error("training run failed", zap.Error(err))
		if monitorHub != nil {
			monitorHub.Publish(monitoring.TrainingEvent, map[string]string{
				"status": "failed",
				"error":  err.Error(),
			})
		}
		return
	}

	if monitorHub != nil {
		monitorHub.Publish(monitoring.TrainingEvent, map[string]interface{}{
			"status":  "completed",
			"version": result.Timestamp,
			"best":    result.Best,
		})
	}
}
