package solverlog

import "github.com/san-kum/damaskio/internal/solverlog/solverlogtest"

var (
	incRule  = solverlogtest.IncrementRule
	iterRule = solverlogtest.IterationRule
)

const (
	banner        = solverlogtest.Banner
	divergenceErr = solverlogtest.DivergenceErr
	stressBCErr   = solverlogtest.StressBCErr
	strainErr     = solverlogtest.StrainErr
)

var (
	iteration = solverlogtest.Iteration
	increment = solverlogtest.Increment
	box       = solverlogtest.Box
)
