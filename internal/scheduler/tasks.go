package scheduler

import (
	"github.com/hibiken/asynq"
)

const TaskSweepEngagement = "outcomes.sweep.engagement"

const TaskSweepProgression = "outcomes.sweep.progression"

const TaskExpireOverdue = "outcomes.expire"

const TaskCalibrationCheck = "calibration.check"

// sweepTasks lists every periodic task in dispatch order.
var sweepTasks = []string{
	TaskSweepEngagement,
	TaskSweepProgression,
	TaskExpireOverdue,
	TaskCalibrationCheck,
}

// NewSweepTask builds a payload-less periodic task. The sweeps scan the
// whole pending set, so there is nothing to carry in the payload.
func NewSweepTask(name string) *asynq.Task {
	return asynq.NewTask(name, nil)
}
