package models

import (
	"time"

	"github.com/google/uuid"
)

// ProgressStage is one step of the resolution pipeline.
type ProgressStage string

const (
	StageAnalyzing        ProgressStage = "analyzing"
	StageGeneratingSQL    ProgressStage = "generating_sql"
	StageExecuting        ProgressStage = "executing"
	StageAnalyzingResults ProgressStage = "analyzing_results"
	StageCreatingViz      ProgressStage = "creating_visualization"
	StageCompleted        ProgressStage = "completed"
	StageFailed           ProgressStage = "failed"
)

// stagePercents maps each stage to its fixed completion percentage.
var stagePercents = map[ProgressStage]int{
	StageAnalyzing:        10,
	StageGeneratingSQL:    30,
	StageExecuting:        50,
	StageAnalyzingResults: 70,
	StageCreatingViz:      85,
	StageCompleted:        100,
	StageFailed:           0,
}

// Percent returns the fixed completion percentage for the stage.
// Unknown stages report 0.
func (s ProgressStage) Percent() int {
	return stagePercents[s]
}

// ProgressEvent is one pipeline status update. Events are emitted best-effort
// and never persisted by the pipeline itself.
type ProgressEvent struct {
	QuestionID uuid.UUID     `json:"question_id"`
	Stage      ProgressStage `json:"stage"`
	Percent    int           `json:"percent"`
	Message    string        `json:"message,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}
