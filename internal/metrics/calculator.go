package metrics

import (
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/fplsim/fpl-optimizer/internal/types"
)

// nailedMinutesShare is the share of available minutes above which a player
// counts as a nailed starter.
const nailedMinutesShare = 0.9

// Calculator derives the full MetricsRecord set for one snapshot. It is
// read-only after construction, so concurrent Calculate calls against the
// same instance need no coordination.
type Calculator struct {
	snap   *types.Snapshot
	logger *logrus.Entry

	// Table-wide aggregates for min-max normalization, computed once.
	ppmMin, ppmMax float64
	xgiMin, xgiMax float64
	epMin, epMax   float64
	tpMin, tpMax   float64
	maxMinutes     float64

	positionScores map[int]float64
}

// NewCalculator scans the snapshot once for the normalization aggregates
// every per-player calculation depends on.
func NewCalculator(snap *types.Snapshot, log *logrus.Logger) *Calculator {
	c := &Calculator{
		snap:   snap,
		logger: log.WithField("snapshot_version", snap.Version),
	}

	n := len(snap.Players)
	ppms := make([]float64, 0, n)
	xgis := make([]float64, 0, n)
	eps := make([]float64, 0, n)

	for _, p := range snap.Players {
		ppms = append(ppms, pointsPerMillion(p))
		xgis = append(xgis, xgiPer90(p))
		eps = append(eps, expectedPointsRaw(p))
		if m := float64(p.Minutes); m > c.maxMinutes {
			c.maxMinutes = m
		}
	}

	c.ppmMin, c.ppmMax = rangeOf(ppms)
	c.xgiMin, c.xgiMax = rangeOf(xgis)
	c.epMin, c.epMax = rangeOf(eps)

	// Transfer priority depends on maxMinutes, so it needs a second pass.
	tps := make([]float64, 0, n)
	for _, p := range snap.Players {
		tps = append(tps, transferPriorityRaw(p, c.maxMinutes))
	}
	c.tpMin, c.tpMax = rangeOf(tps)

	c.positionScores = computePositionScores(snap.Players)

	c.logger.WithFields(logrus.Fields{
		"players": n,
		"ppm_max": c.ppmMax,
		"xgi_max": c.xgiMax,
	}).Debug("Metrics calculator initialized")

	return c
}

// Calculate derives the full metrics record for one player. Zero-guarded
// fallbacks are recorded in Warnings, never raised as errors.
func (c *Calculator) Calculate(p types.Player) types.MetricsRecord {
	rec := types.MetricsRecord{PlayerID: p.ID}

	rec.PPM = pointsPerMillion(p)
	if p.Cost <= 0 {
		rec.Warnings = append(rec.Warnings, "ppm")
	}

	rec.XGIPer90 = xgiPer90(p)
	if p.Minutes <= 0 || p.XG == nil || p.XA == nil {
		rec.Warnings = append(rec.Warnings, "xgiPer90")
	}

	rec.FormRating = clamp(p.Form, 0, 10)
	rec.ValueScore = minMaxScale(rec.PPM, c.ppmMin, c.ppmMax)

	xgiNorm := minMaxScale(rec.XGIPer90, c.xgiMin, c.xgiMax)
	rec.OverallScore = clamp(
		0.30*rec.FormRating*10+0.40*rec.ValueScore+0.30*xgiNorm, 0, 100)

	var haveConsistency bool
	rec.Consistency, haveConsistency = consistency(p)
	if !haveConsistency {
		rec.Warnings = append(rec.Warnings, "consistency")
	}

	rec.NailedBonus = nailedBonus(p)
	if p.Appearances <= 0 {
		rec.Warnings = append(rec.Warnings, "nailedBonus")
	}

	rec.CaptainScore = rec.FormRating*4 + rec.XGIPer90*8 + rec.Consistency + rec.NailedBonus

	rec.Momentum = clamp(p.Form-p.PointsPerGame, -5, 5)
	rec.ExpectedPoints = expectedPointsRaw(p)
	rec.TransferPriority = minMaxScale(transferPriorityRaw(p, c.maxMinutes), c.tpMin, c.tpMax)

	epNorm := minMaxScale(rec.ExpectedPoints, c.epMin, c.epMax)
	rec.BuyScore = clamp(
		0.40*rec.TransferPriority+0.30*rec.ValueScore+0.30*epNorm, 0, 100)
	rec.SellScore = 100 - rec.BuyScore
	rec.HoldScore = 0.4*rec.Consistency + 0.3*rec.FormRating + 0.3*rec.Momentum

	rec.DifferentialScore = 0.30*(100-clamp(p.SelectedByPercent, 0, 100)) +
		0.40*rec.ValueScore + 0.30*rec.FormRating*10

	rec.Overperformance = overperformance(p)
	rec.BPSPer90 = per90(float64(p.BPS), p.Minutes)
	if p.Minutes <= 0 {
		rec.Warnings = append(rec.Warnings, "bpsPer90", "overperformance")
	}

	rec.PositionScore = c.positionScores[p.ID]

	return rec
}

// CalculateAll derives records for the whole player table in snapshot order.
func (c *Calculator) CalculateAll() []types.MetricsRecord {
	records := make([]types.MetricsRecord, 0, len(c.snap.Players))
	for _, p := range c.snap.Players {
		records = append(records, c.Calculate(p))
	}
	c.logger.WithField("records", len(records)).Debug("Metrics recomputed")
	return records
}

// pointsPerMillion is total points divided by cost in millions. A free or
// unpriced player yields 0, never a division error.
func pointsPerMillion(p types.Player) float64 {
	if p.Cost <= 0 {
		return 0
	}
	return float64(p.TotalPoints) / p.CostMillions()
}

// xgiPer90 is (xG + xA) projected to a 90-minute rate. Missing expected
// stats or zero minutes yield 0.
func xgiPer90(p types.Player) float64 {
	if p.Minutes <= 0 || p.XG == nil || p.XA == nil {
		return 0
	}
	return (*p.XG + *p.XA) * 90 / float64(p.Minutes)
}

// consistency is 10 minus the clamped standard deviation of the last five
// gameweek scores. The second return is false when the history is too short
// to compute a deviation, in which case the metric zero-guards.
func consistency(p types.Player) (float64, bool) {
	if len(p.Last5Points) < 2 {
		return 0, false
	}
	pts := make([]float64, len(p.Last5Points))
	for i, v := range p.Last5Points {
		pts[i] = float64(v)
	}
	sd := stat.StdDev(pts, nil)
	return 10 - clamp(sd, 0, 10), true
}

func nailedBonus(p types.Player) float64 {
	if p.Appearances <= 0 {
		return 0
	}
	if float64(p.Minutes)/(float64(p.Appearances)*90) > nailedMinutesShare {
		return 5
	}
	return 0
}

func expectedPointsRaw(p types.Player) float64 {
	return 0.4*p.Form + 0.3*p.PointsPerGame + 0.3*(2*xgiPer90(p))
}

func transferPriorityRaw(p types.Player, maxMinutes float64) float64 {
	minutesShare := 0.0
	if maxMinutes > 0 {
		minutesShare = float64(p.Minutes) / maxMinutes
	}
	return 3*p.Form + 5*xgiPer90(p) + pointsPerMillion(p) + 2*minutesShare
}

// overperformance compares realized goal involvements per 90 against the
// expected rate. Positive means running hot.
func overperformance(p types.Player) float64 {
	if p.Minutes <= 0 {
		return 0
	}
	actual := float64(p.Goals+p.Assists) * 90 / float64(p.Minutes)
	return actual - xgiPer90(p)
}

func per90(total float64, minutes int) float64 {
	if minutes <= 0 {
		return 0
	}
	return total * 90 / float64(minutes)
}
