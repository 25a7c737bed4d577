package ingestrun

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow ingests the manifest entries one after another, pausing between
// courses. Entry failures are recorded and the run moves on.
func Workflow(ctx workflow.Context, in Input) (Result, error) {
	res := Result{Courses: make([]CourseResult, 0, len(in.Courses))}
	log := workflow.GetLogger(ctx)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})

	if in.ClearFirst {
		if err := workflow.ExecuteActivity(ctx, ActivityClearResponses).Get(ctx, &res.Cleared); err != nil {
			return res, err
		}
	}

	pause := in.CoursePause
	if pause <= 0 {
		pause = DefaultCoursePause
	}
	for i, entry := range in.Courses {
		if i > 0 {
			if err := workflow.Sleep(ctx, pause); err != nil {
				return res, err
			}
		}
		var cr CourseResult
		if err := workflow.ExecuteActivity(ctx, ActivityIngestCourse, entry).Get(ctx, &cr); err != nil {
			log.Warn("course ingestion failed", "course_id", entry.CourseID, "error", err)
			cr = CourseResult{CourseID: entry.CourseID, File: entry.File, Error: err.Error()}
		}
		if cr.Error != "" {
			res.Failed++
		}
		res.Courses = append(res.Courses, cr)
	}
	return res, nil
}
