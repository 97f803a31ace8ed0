package store

import (
	"github.com/rs/zerolog"
)

// CleanupJob prunes expired judgment history rows. It is scheduled by the
// cron runner in the server entrypoint.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger
}

// NewCleanupJob creates the retention job over repo.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "history_cleanup").Logger(),
	}
}

// Name identifies the job in scheduler logs.
func (j *CleanupJob) Name() string { return "history_cleanup" }

// Run deletes expired rows, logging the count when anything was removed.
func (j *CleanupJob) Run() {
	deleted, err := j.repo.DeleteExpired()
	if err != nil {
		j.log.Error().Err(err).Msg("History cleanup failed")
		return
	}
	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Expired judgments removed")
	} else {
		j.log.Debug().Msg("No expired judgments")
	}
}
