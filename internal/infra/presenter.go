package infra

import (
	"go.uber.org/zap"

	"github.com/seeother/scrollguard/internal/domain"
)

// LogPresenter is the default presentation layer: interventions and
// summaries are emitted as structured log events for the device-side
// bridge to render. Visual presentation lives outside this repo.
type LogPresenter struct {
	logger *zap.Logger
}

// NewLogPresenter creates a presenter writing to the given logger.
func NewLogPresenter(logger *zap.Logger) *LogPresenter {
	return &LogPresenter{logger: logger}
}

// ShowIntervention signals that the user should be nudged away from
// the feed.
func (p *LogPresenter) ShowIntervention() {
	p.logger.Info("intervention",
		zap.String("signal", "show_floating_window"))
}

// ShowStatisticsSummary surfaces the periodic usage report.
func (p *LogPresenter) ShowStatisticsSummary(stats domain.VideoStatistics) {
	p.logger.Info("statistics summary",
		zap.Int("today_count", stats.TodayCount),
		zap.String("today_time", stats.TodayTime),
		zap.Int("month_count", stats.MonthCount),
		zap.String("month_time", stats.MonthTime))
}

var _ domain.Presenter = (*LogPresenter)(nil)
