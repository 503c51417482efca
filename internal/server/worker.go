package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/mlplayground/internal/search"
	"github.com/cwbudde/mlplayground/internal/store"
)

// traceDirer is implemented by stores that keep files on disk, which is
// where job traces go.
type traceDirer interface {
	BaseDir() string
}

// runJob steps a job's search to completion or cancellation. Every step
// updates the job, is broadcast to SSE clients and, with a store, appended
// to the job trace. Checkpoints are saved every CheckpointInterval steps and
// once more when the job stops.
func runJob(ctx context.Context, jm *JobManager, checkpointStore store.Store, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.stepper == nil {
		err := errors.New("job has no search")
		markJobFailed(jm, jobID, err)
		return err
	}

	if err := ctx.Err(); err != nil {
		markJobCancelled(jm, jobID)
		return err
	}

	if err := jm.UpdateJob(jobID, func(j *Job) { j.State = StateRunning }); err != nil {
		return err
	}

	slog.Info("Starting job",
		"job_id", jobID,
		"algorithm", job.Config.Algorithm,
		"rows", job.Rows,
		"cols", job.Cols,
		"start", job.Start,
	)

	var trace *store.TraceWriter
	if fsStore, ok := checkpointStore.(traceDirer); ok {
		tw, err := store.NewTraceWriter(fsStore.BaseDir(), jobID, false)
		if err != nil {
			slog.Warn("Trace disabled", "job_id", jobID, "error", err)
		} else {
			trace = tw
		}
	}

	steps := 0
	var last search.Event
	observe := func(ev search.Event) {
		steps++
		last = ev
		jm.UpdateJob(jobID, func(j *Job) {
			j.Iterations = ev.Iteration
			j.Current = ev.Current
			j.Best = ev.Best
			j.BestValue = ev.BestValue
			j.Phase = ev.Phase
		})

		step := ev
		jm.broadcaster.Broadcast(ProgressEvent{
			JobID:      jobID,
			State:      StateRunning,
			Iterations: ev.Iteration,
			BestValue:  ev.BestValue,
			Step:       &step,
			Timestamp:  time.Now(),
		})

		if trace != nil {
			if err := trace.WriteEvent(ev); err != nil {
				slog.Warn("Failed to write trace entry", "job_id", jobID, "error", err)
			}
		}
		if checkpointStore != nil && job.Config.CheckpointInterval > 0 && steps%job.Config.CheckpointInterval == 0 {
			if err := saveCheckpoint(jm, checkpointStore, jobID, ev); err != nil {
				slog.Error("Failed to save checkpoint", "job_id", jobID, "error", err)
			}
		}
	}

	runner := search.Runner{
		Pace:     time.Duration(job.Config.PaceMillis) * time.Millisecond,
		Observer: observe,
	}
	start := time.Now()
	result, err := runner.Run(ctx, job.stepper)
	elapsed := time.Since(start)

	// Close before the job turns terminal so readers see the whole trace.
	if trace != nil {
		if err := trace.Close(); err != nil {
			slog.Warn("Failed to close trace", "job_id", jobID, "error", err)
		}
	}

	if checkpointStore != nil && steps > 0 {
		if err := saveCheckpoint(jm, checkpointStore, jobID, last); err != nil {
			slog.Error("Failed to save final checkpoint", "job_id", jobID, "error", err)
		}
	}

	if err != nil {
		markJobCancelled(jm, jobID)
		return err
	}

	endTime := time.Now()
	if err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Result = &result
		j.Best = result.Best
		j.BestValue = result.BestValue
		j.Current = result.Final
		j.Iterations = result.Iterations
		j.EndTime = &endTime
	}); err != nil {
		return err
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"steps", steps,
		"start_value", result.StartValue,
		"best_value", result.BestValue,
		"best", result.Best,
	)

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:      jobID,
		State:      StateCompleted,
		Iterations: result.Iterations,
		BestValue:  result.BestValue,
		Timestamp:  time.Now(),
	})
	return nil
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
	broadcastState(jm, jobID)
}

// markJobCancelled marks a job as cancelled and keeps its partial result.
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
		if j.stepper != nil {
			res := j.stepper.Result()
			j.Result = &res
		}
	})
	slog.Info("Job cancelled", "job_id", jobID)
	broadcastState(jm, jobID)
}

func broadcastState(jm *JobManager, jobID string) {
	job, ok := jm.GetJob(jobID)
	if !ok {
		return
	}
	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:      jobID,
		State:      job.State,
		Iterations: job.Iterations,
		BestValue:  job.BestValue,
		Timestamp:  time.Now(),
	})
}

// saveCheckpoint stores the job's grid with the state after ev.
func saveCheckpoint(jm *JobManager, checkpointStore store.Store, jobID string, ev search.Event) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	checkpoint := store.NewCheckpoint(jobID, job.grid, job.Start, ev, job.Config)
	if err := checkpointStore.SaveCheckpoint(jobID, checkpoint); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	slog.Debug("Checkpoint saved",
		"job_id", jobID,
		"iteration", ev.Iteration,
		"best_value", ev.BestValue,
	)
	return nil
}
