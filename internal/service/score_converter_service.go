package service

import (
	"fmt"
	"math"
)

type ScoreConverterService interface {
	// ToPercentage converts a raw score to a percentage of maxScore, rounded to
	// two decimals and capped at 100.
	ToPercentage(rawScore, maxScore int) (float64, error)
}

type scoreConverterServiceImpl struct{}

func NewScoreConverterService() ScoreConverterService {
	return &scoreConverterServiceImpl{}
}

func (s *scoreConverterServiceImpl) ToPercentage(rawScore, maxScore int) (float64, error) {
	if rawScore < 0 || maxScore < 0 {
		return 0, fmt.Errorf("scores must not be negative (raw %d, max %d)", rawScore, maxScore)
	}
	if maxScore == 0 {
		return 0, nil
	}
	pct := float64(rawScore) / float64(maxScore) * 100
	// maxScore is a snapshot taken at start, so points added later can push past it.
	if pct > 100 {
		pct = 100
	}
	return math.Round(pct*100) / 100, nil
}
