package stats

import "math"

// InformationCriteria for model selection. AICc is +Inf when there are too few
// observations for the number of parameters.
type InformationCriteria struct {
	LogLik float64 `json:"log_likelihood"`
	AIC    float64 `json:"aic"`
	AICc   float64 `json:"aicc"`
	BIC    float64 `json:"bic"`
}

func NewInformationCriteria(logLik float64, nObs, nParams int) InformationCriteria {
	k := float64(nParams)
	n := float64(nObs)

	aic := -2*logLik + 2*k
	aicc := math.Inf(1)
	if n-k-1 > 0 {
		aicc = aic + 2*k*(k+1)/(n-k-1)
	}
	return InformationCriteria{
		LogLik: logLik,
		AIC:    aic,
		AICc:   aicc,
		BIC:    -2*logLik + k*math.Log(n),
	}
}

// GaussianLogLik is the concentrated gaussian log likelihood for a sum of squared errors
// over n observations. A perfect fit is floored to keep the result finite.
func GaussianLogLik(sse float64, n int) float64 {
	if n == 0 {
		return math.Inf(-1)
	}
	nf := float64(n)
	sse = math.Max(sse, 1e-10*nf)
	return -0.5 * nf * (math.Log(2*math.Pi*sse/nf) + 1)
}
