package analytics

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// Widget keys. Each widget reads its own override query parameters:
// {key} (preset), {key}_start / {key}_end (explicit ISO bounds), and
// {key}_interval (bucket width, "<integer>h"). The page-level default uses
// the "range" key and the global "interval" parameter.
const (
	pageRangeKey = "range"

	WidgetOverview     = "overview"
	WidgetEngagement   = "engagement"
	WidgetActivation   = "activation"
	WidgetCohorts      = "cohorts"
	WidgetRetention    = "retention"
	WidgetFunnel       = "funnel"
	WidgetSessions     = "sessions"
	WidgetDistribution = "distribution"
	WidgetPowerUsers   = "power_users"
	WidgetSeasonality  = "seasonality"
	WidgetAudience     = "audience"
	WidgetGrowth       = "growth"
)

// defaultPreset is the fallback when neither the page nor a widget supplies
// a usable range.
const defaultPreset = Preset30d

const (
	defaultBucketCount   = 12
	defaultCohortDepth   = 8
	defaultRetentionDays = 14
	defaultBinCount      = 5
)

// defaultPercentiles are the power-user concentration cut points.
var defaultPercentiles = []float64{0.01, 0.05, 0.10, 0.25}

// Dashboard is the composed result of every widget's metric fetch.
type Dashboard struct {
	Ranges       map[string]TimeRange  `json:"ranges"`
	Overview     *NewVsReturningResult `json:"overview"`
	ActiveUsers  *ActiveUsersResult    `json:"active_users"`
	Engagement   *EngagementResult     `json:"engagement"`
	Activation   *ActivationResult     `json:"activation"`
	Cohorts      []CohortWeek          `json:"cohorts"`
	Retention    []RetentionCurve      `json:"retention"`
	Funnel       *FunnelResult         `json:"funnel"`
	Sessions     *SessionsResult       `json:"sessions"`
	Distribution []DistributionBin     `json:"distribution"`
	PowerUsers   []ConcentrationPoint  `json:"power_users"`
	Seasonality  []WeekdayLoad         `json:"seasonality"`
	Audience     *ActiveUsersResult    `json:"audience"`
	Growth       []GrowthBucket        `json:"growth"`
}

// Composer orchestrates the dashboard's widget fetches. Widgets run in
// parallel; any widget's error fails the whole request rather than
// rendering zeros that would mask data problems.
type Composer struct {
	engine *Engine
}

// NewComposer creates a Composer over the given engine.
func NewComposer(engine *Engine) *Composer {
	return &Composer{engine: engine}
}

// Compose resolves every widget's time range from the request parameters and
// fetches all widgets in parallel. now is injected for determinism.
func (c *Composer) Compose(ctx context.Context, params url.Values, now time.Time) (*Dashboard, error) {
	pageRange := ResolveRange(parseRangeQuery(params, pageRangeKey), now, defaultPreset)

	ranges := map[string]TimeRange{pageRangeKey: pageRange}
	rangeFor := func(key string) TimeRange {
		r := widgetRange(params, key, pageRange, now)
		ranges[key] = r
		return r
	}

	overviewRange := rangeFor(WidgetOverview)
	engagementRange := rangeFor(WidgetEngagement)
	activationRange := rangeFor(WidgetActivation)
	cohortsRange := rangeFor(WidgetCohorts)
	retentionRange := rangeFor(WidgetRetention)
	funnelRange := rangeFor(WidgetFunnel)
	sessionsRange := rangeFor(WidgetSessions)
	distributionRange := rangeFor(WidgetDistribution)
	powerRange := rangeFor(WidgetPowerUsers)
	seasonalityRange := rangeFor(WidgetSeasonality)

	// The audience widget always reports lifetime scope, whatever the page
	// default says.
	audienceRange := resolvePreset(PresetLifetime, now)
	ranges[WidgetAudience] = audienceRange

	// Growth needs both bounds; an unbounded inherited range is replaced by
	// the bounded fallback preset instead.
	growthRange := widgetRange(params, WidgetGrowth, pageRange, now)
	if !growthRange.Bounded() {
		growthRange = resolvePreset(defaultPreset, now)
	}
	ranges[WidgetGrowth] = growthRange

	sessionBuckets, err := bucketsFor(params, WidgetSessions, sessionsRange)
	if err != nil {
		return nil, err
	}
	growthBuckets, err := bucketsFor(params, WidgetGrowth, growthRange)
	if err != nil {
		return nil, err
	}

	dash := &Dashboard{Ranges: ranges}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		result, err := c.engine.NewVsReturning(gctx, overviewRange)
		dash.Overview = result
		return err
	})
	g.Go(func() error {
		result, err := c.engine.ActiveUsers(gctx, overviewRange)
		dash.ActiveUsers = result
		return err
	})
	g.Go(func() error {
		end := now
		if engagementRange.End != nil {
			end = *engagementRange.End
		}
		result, err := c.engine.Engagement(gctx, end)
		dash.Engagement = result
		return err
	})
	g.Go(func() error {
		result, err := c.engine.Activation(gctx, activationRange)
		dash.Activation = result
		return err
	})
	g.Go(func() error {
		result, err := c.engine.CohortRetention(gctx, cohortsRange, defaultCohortDepth)
		dash.Cohorts = result
		return err
	})
	g.Go(func() error {
		result, err := c.engine.RetentionCurves(gctx, retentionRange, defaultRetentionDays)
		dash.Retention = result
		return err
	})
	g.Go(func() error {
		result, err := c.engine.Funnel(gctx, funnelRange)
		dash.Funnel = result
		return err
	})
	g.Go(func() error {
		result, err := c.engine.Sessions(gctx, sessionsRange, sessionBuckets)
		dash.Sessions = result
		return err
	})
	g.Go(func() error {
		result, err := c.engine.MessageDistribution(gctx, distributionRange, defaultBinCount)
		dash.Distribution = result
		return err
	})
	g.Go(func() error {
		result, err := c.engine.PowerUserConcentration(gctx, powerRange, defaultPercentiles)
		dash.PowerUsers = result
		return err
	})
	g.Go(func() error {
		result, err := c.engine.WeekdaySeasonality(gctx, seasonalityRange, time.Monday)
		dash.Seasonality = result
		return err
	})
	g.Go(func() error {
		result, err := c.engine.ActiveUsers(gctx, audienceRange)
		dash.Audience = result
		return err
	})
	g.Go(func() error {
		result, err := c.engine.GrowthDecomposition(gctx, growthRange, growthBuckets)
		dash.Growth = result
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dash, nil
}

// parseRangeQuery reads {key}, {key}_start, and {key}_end from the params.
func parseRangeQuery(params url.Values, key string) RangeQuery {
	return RangeQuery{
		Preset: params.Get(key),
		Start:  parseISO(params.Get(key + "_start")),
		End:    parseISO(params.Get(key + "_end")),
	}
}

// widgetRange resolves a widget's range: its own override parameters win
// when present (a preset value, or a complete start/end pair); otherwise the
// widget inherits the page-level default.
func widgetRange(params url.Values, key string, pageDefault TimeRange, now time.Time) TimeRange {
	q := parseRangeQuery(params, key)
	if q.Preset == "" && (q.Start == nil || q.End == nil) {
		return pageDefault
	}
	return ResolveRange(q, now, defaultPreset)
}

var intervalPattern = regexp.MustCompile(`^(\d+)h$`)

// bucketsFor builds a widget's buckets: a {key}_interval or global interval
// parameter selects fixed hour widths, otherwise the range is divided into
// the default bucket count.
func bucketsFor(params url.Values, key string, r TimeRange) ([]Bucket, error) {
	raw := params.Get(key + "_interval")
	if raw == "" {
		raw = params.Get("interval")
	}
	if raw != "" {
		if m := intervalPattern.FindStringSubmatch(raw); m != nil {
			hours, err := strconv.Atoi(m[1])
			if err == nil && hours > 0 {
				return BucketizeHours(r, hours)
			}
		}
	}
	return BucketizeCount(r, defaultBucketCount)
}

// parseISO parses an RFC 3339 timestamp, returning nil on absence or error.
func parseISO(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &t
}
