package jobs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"
)

// TaskTypeUploadSweep removes stale catalog upload temp files. Uploads are
// deleted right after import; the sweep only catches files orphaned by a
// crash mid-request.
const TaskTypeUploadSweep = "uploads:sweep"

// uploadTempPattern matches the temp files the import handler creates.
const uploadTempPattern = "catalog-upload-*"

// UploadSweepPayload bounds how old a temp file must be before removal.
type UploadSweepPayload struct {
	MaxAgeHours int `json:"max_age_hours"`
}

// NewUploadSweepTask constructs an Asynq task for the sweep.
func NewUploadSweepTask(payload UploadSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeUploadSweep, data), nil
}

// HandleUploadSweepTask processes TaskTypeUploadSweep tasks.
func HandleUploadSweepTask(ctx context.Context, t *asynq.Task) error {
	var payload UploadSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	maxAge := time.Duration(payload.MaxAgeHours) * time.Hour
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return SweepUploads(os.TempDir(), maxAge, time.Now())
}

// SweepUploads removes upload temp files under dir older than maxAge.
func SweepUploads(dir string, maxAge time.Duration, now time.Time) error {
	matches, err := filepath.Glob(filepath.Join(dir, uploadTempPattern))
	if err != nil {
		return err
	}
	cutoff := now.Add(-maxAge)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(path)
		}
	}
	return nil
}
