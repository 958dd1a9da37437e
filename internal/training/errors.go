package training

import "fmt"

// Stage names a step of the training pipeline.
type Stage string

const (
	StageLoad     Stage = "load"
	StageEncode   Stage = "encode"
	StageSplit    Stage = "split"
	StageFit      Stage = "fit"
	StageEvaluate Stage = "evaluate"
	StagePersist  Stage = "persist"
)

// Stages lists the pipeline steps in execution order.
var Stages = []Stage{StageLoad, StageEncode, StageSplit, StageFit, StageEvaluate, StagePersist}

// StageError reports the stage a training run failed in. Every stage is
// fatal; there are no retries.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("training failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
