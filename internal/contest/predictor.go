package contest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
)

// ErrModelsNotLoaded is returned by NewPredictor when either regression
// model is missing, following research_predictor.py's stricter variant
// (which raises RuntimeError rather than silently skipping prediction).
var ErrModelsNotLoaded = errors.New("contest: predictor regression models not loaded")

// RegressionModel predicts a single scalar from a fixed-length feature
// vector. The original trains a LightGBM regressor offline; no Go LightGBM
// binding exists in this module's dependency set, so this repo defines the
// narrow interface the predictor actually needs and ships LinearModel as the
// concrete implementation. Training a model is out of scope (spec.md's
// Non-goals) in both cases.
type RegressionModel interface {
	Predict(features []float64) (float64, error)
}

// Predictor estimates a predicted Sharpe ratio for an agent from its
// historical daily returns and the current day's judge scores. Grounded on
// research_predictor.py's ResearchPredictor.
type Predictor struct {
	meanModel RegressionModel
	stdModel  RegressionModel
}

// NewPredictor requires both models to be present; a nil model makes
// prediction meaningless, so construction fails loudly instead of
// degrading silently later.
func NewPredictor(meanModel, stdModel RegressionModel) (*Predictor, error) {
	if meanModel == nil || stdModel == nil {
		return nil, ErrModelsNotLoaded
	}
	return &Predictor{meanModel: meanModel, stdModel: stdModel}, nil
}

// PredictSharpe predicts predicted_sharpe = pred_mean / max(pred_std, 0.01)
// for one agent, grounded on
// research_predictor.py's _predict_single_agent_lightgbm.
func (p *Predictor) PredictSharpe(rewards []*float64, judgeScores []float64) (float64, error) {
	features, err := BuildFeatures(rewards, judgeScores)
	if err != nil {
		return 0, err
	}
	predMean, err := p.meanModel.Predict(features)
	if err != nil {
		return 0, fmt.Errorf("predict mean: %w", err)
	}
	predStd, err := p.stdModel.Predict(features)
	if err != nil {
		return 0, fmt.Errorf("predict std: %w", err)
	}
	if predStd < 0.01 {
		predStd = 0.01
	}
	return predMean / predStd, nil
}

// BuildFeatures assembles the 12 ordered features research_predictor.py's
// _create_features_from_history_and_scores computes: mean_1d, mean_3d,
// std_3d, mean_5d, std_5d (population std, ddof=0, over the median-imputed
// 5-day reward history, oldest to newest) followed by the current day's 5
// individual judge scores and their mean/population-std.
func BuildFeatures(rewards []*float64, judgeScores []float64) ([]float64, error) {
	if len(rewards) != 5 {
		return nil, fmt.Errorf("historical rewards must have length 5, got %d", len(rewards))
	}
	if len(judgeScores) < 5 {
		return nil, fmt.Errorf("judge scores must have at least 5 entries, got %d", len(judgeScores))
	}

	imputed, err := medianImpute(rewards)
	if err != nil {
		return nil, err
	}

	mean1d := imputed[4]
	mean3d := mean(imputed[2:5])
	std3d := stdDev(imputed[2:5])
	mean5d := mean(imputed)
	std5d := stdDev(imputed)

	j := judgeScores[:5]
	judgeMean := mean(j)
	judgeStd := stdDev(j)

	return []float64{mean1d, mean3d, std3d, mean5d, std5d, j[0], j[1], j[2], j[3], j[4], judgeMean, judgeStd}, nil
}

func medianImpute(rewards []*float64) ([]float64, error) {
	var present []float64
	for _, r := range rewards {
		if r != nil {
			present = append(present, *r)
		}
	}
	if len(present) == 0 {
		return nil, fmt.Errorf("historical rewards are entirely missing")
	}
	med := median(present)

	out := make([]float64, len(rewards))
	for i, r := range rewards {
		if r != nil {
			out[i] = *r
		} else {
			out[i] = med
		}
	}
	return out, nil
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the population standard deviation (ddof=0), matching pandas'
// default .std(ddof=0) usage in research_predictor.py's feature builder.
func stdDev(xs []float64) float64 {
	m := mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

// LinearModel is a plain linear regression (y = intercept + coefficients . features),
// the simplest RegressionModel that can be trained and shipped without a
// LightGBM binding. Coefficients load from a JSON sidecar rather than being
// trained in-process; training the model is out of scope.
type LinearModel struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// LoadLinearModel reads a LinearModel from a JSON file on disk.
func LoadLinearModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read regression model %s: %w", path, err)
	}
	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse regression model %s: %w", path, err)
	}
	return &m, nil
}

// Predict implements RegressionModel.
func (m *LinearModel) Predict(features []float64) (float64, error) {
	if len(features) != len(m.Coefficients) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.Coefficients), len(features))
	}
	y := m.Intercept
	for i, f := range features {
		y += m.Coefficients[i] * f
	}
	return y, nil
}
