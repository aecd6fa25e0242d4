package contest

import (
	"errors"
	"math"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestBuildFeaturesComputesExpectedMoments(t *testing.T) {
	rewards := []*float64{f(0.01), f(0.02), f(0.03), f(0.04), f(0.05)}
	judges := []float64{60, 70, 80, 90, 100}

	features, err := BuildFeatures(rewards, judges)
	if err != nil {
		t.Fatalf("BuildFeatures returned error: %v", err)
	}
	if len(features) != 12 {
		t.Fatalf("features length = %d, want 12", len(features))
	}

	if features[0] != 0.05 {
		t.Fatalf("mean_1d = %v, want 0.05 (most recent day)", features[0])
	}
	wantMean3d := (0.03 + 0.04 + 0.05) / 3
	if math.Abs(features[1]-wantMean3d) > 1e-9 {
		t.Fatalf("mean_3d = %v, want %v", features[1], wantMean3d)
	}
	wantMean5d := (0.01 + 0.02 + 0.03 + 0.04 + 0.05) / 5
	if math.Abs(features[3]-wantMean5d) > 1e-9 {
		t.Fatalf("mean_5d = %v, want %v", features[3], wantMean5d)
	}
	if features[5] != 60 || features[9] != 100 {
		t.Fatalf("judge features misplaced: %v", features[5:10])
	}
	if features[10] != 80 {
		t.Fatalf("judge_mean = %v, want 80", features[10])
	}
}

func TestBuildFeaturesMedianImputesMissingDays(t *testing.T) {
	rewards := []*float64{f(0.10), nil, f(0.10), f(0.10), f(0.10)}
	judges := []float64{50, 50, 50, 50, 50}

	features, err := BuildFeatures(rewards, judges)
	if err != nil {
		t.Fatalf("BuildFeatures returned error: %v", err)
	}
	// all present values are 0.10, so the median-imputed missing day is also
	// 0.10 and every moment over the vector collapses to that constant.
	if features[3] != 0.10 {
		t.Fatalf("mean_5d = %v, want 0.10", features[3])
	}
	if features[4] != 0 {
		t.Fatalf("std_5d = %v, want 0 (constant vector)", features[4])
	}
}

func TestBuildFeaturesRejectsWrongLengthInputs(t *testing.T) {
	if _, err := BuildFeatures([]*float64{f(0.1)}, []float64{1, 2, 3, 4, 5}); err == nil {
		t.Fatalf("expected error for wrong reward vector length")
	}
	if _, err := BuildFeatures([]*float64{f(0.1), f(0.1), f(0.1), f(0.1), f(0.1)}, []float64{1, 2}); err == nil {
		t.Fatalf("expected error for too-few judge scores")
	}
}

func TestBuildFeaturesRejectsAllMissingRewards(t *testing.T) {
	rewards := []*float64{nil, nil, nil, nil, nil}
	if _, err := BuildFeatures(rewards, []float64{1, 2, 3, 4, 5}); err == nil {
		t.Fatalf("expected error when every historical reward is missing")
	}
}

func TestNewPredictorRequiresBothModels(t *testing.T) {
	lm := &LinearModel{Intercept: 0, Coefficients: make([]float64, 12)}
	if _, err := NewPredictor(nil, lm); !errors.Is(err, ErrModelsNotLoaded) {
		t.Fatalf("expected ErrModelsNotLoaded, got %v", err)
	}
	if _, err := NewPredictor(lm, nil); !errors.Is(err, ErrModelsNotLoaded) {
		t.Fatalf("expected ErrModelsNotLoaded, got %v", err)
	}
}

func TestPredictorPredictSharpeClampsMinimumStd(t *testing.T) {
	meanModel := &LinearModel{Intercept: 1.0, Coefficients: make([]float64, 12)}
	stdModel := &LinearModel{Intercept: 0.0, Coefficients: make([]float64, 12)} // always predicts 0

	p, err := NewPredictor(meanModel, stdModel)
	if err != nil {
		t.Fatalf("NewPredictor returned error: %v", err)
	}

	rewards := []*float64{f(0.01), f(0.01), f(0.01), f(0.01), f(0.01)}
	judges := []float64{50, 50, 50, 50, 50}

	sharpe, err := p.PredictSharpe(rewards, judges)
	if err != nil {
		t.Fatalf("PredictSharpe returned error: %v", err)
	}
	// predMean=1.0, predStd clamped to 0.01 -> sharpe = 100
	if math.Abs(sharpe-100) > 1e-9 {
		t.Fatalf("sharpe = %v, want 100 (std floor applied)", sharpe)
	}
}

type failingModel struct{}

func (failingModel) Predict([]float64) (float64, error) { return 0, errors.New("model unavailable") }

func TestPredictorPredictSharpePropagatesModelError(t *testing.T) {
	p, err := NewPredictor(failingModel{}, failingModel{})
	if err != nil {
		t.Fatalf("NewPredictor returned error: %v", err)
	}
	rewards := []*float64{f(0.01), f(0.01), f(0.01), f(0.01), f(0.01)}
	judges := []float64{50, 50, 50, 50, 50}
	if _, err := p.PredictSharpe(rewards, judges); err == nil {
		t.Fatalf("expected PredictSharpe to surface the model error")
	}
}
