// internal/jobs/auto_approve.go
package jobs

import (
	"time"

	"github.com/jasonlvhit/gocron"
	"github.com/sirupsen/logrus"

	"github.com/tabvault/storefront-backend/internal/services"
)

// AutoApprovalJob periodically sweeps pending commissions against the
// configured threshold. The sweep is idempotent, so overlapping runs and the
// on-demand admin trigger are both safe.
type AutoApprovalJob struct {
	commissionService *services.CommissionService
}

func NewAutoApprovalJob(commissionService *services.CommissionService) *AutoApprovalJob {
	return &AutoApprovalJob{commissionService: commissionService}
}

func (j *AutoApprovalJob) Run() {
	count, err := j.commissionService.AutoApproveCommissions(time.Now())
	if err != nil {
		logrus.WithError(err).Error("Auto-approval sweep failed")
		return
	}
	if count > 0 {
		logrus.WithField("count", count).Info("Auto-approval sweep finished")
	}
}

// Start schedules the sweep and blocks; run it on its own goroutine.
func (j *AutoApprovalJob) Start(intervalMinutes int) {
	if intervalMinutes < 1 {
		intervalMinutes = 60
	}

	s := gocron.NewScheduler()
	s.Every(uint64(intervalMinutes)).Minutes().Do(j.Run)
	<-s.Start()
}
