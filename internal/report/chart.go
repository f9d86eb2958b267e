package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
)

// EpisodeMetrics is one point on the training charts.
type EpisodeMetrics struct {
	Episode        int
	Reward         float64
	Steps          int
	RandomFraction float64
}

// WriteChart renders an HTML page with episode reward and exploration charts.
func WriteChart(w io.Writer, title string, episodes []EpisodeMetrics) error {
	if len(episodes) == 0 {
		return errors.New("no episodes to chart")
	}
	xs := make([]string, 0, len(episodes))
	rewards := make([]opts.LineData, 0, len(episodes))
	steps := make([]opts.LineData, 0, len(episodes))
	fractions := make([]opts.LineData, 0, len(episodes))
	for _, ep := range episodes {
		xs = append(xs, fmt.Sprintf("%d", ep.Episode))
		rewards = append(rewards, opts.LineData{Value: ep.Reward})
		steps = append(steps, opts.LineData{Value: ep.Steps})
		fractions = append(fractions, opts.LineData{Value: ep.RandomFraction})
	}

	rewardLine := charts.NewLine()
	rewardLine.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "reward and steps per episode"}),
		charts.WithInitializationOpts(opts.Initialization{Theme: "shine"}),
	)
	rewardLine.SetXAxis(xs).
		AddSeries("reward", rewards).
		AddSeries("steps", steps)

	exploreLine := charts.NewLine()
	exploreLine.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "exploration", Subtitle: "fraction of random actions"}),
		charts.WithInitializationOpts(opts.Initialization{Theme: "shine"}),
	)
	exploreLine.SetXAxis(xs).AddSeries("random fraction", fractions)

	page := components.NewPage()
	page.AddCharts(rewardLine, exploreLine)
	return errors.Wrap(page.Render(w), "render chart")
}
