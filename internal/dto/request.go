package dto

import (
	"encoding/json"

	"github.com/aretw0/arbor/pkg/domain"
)

// AnalysisRequest is the body of every analysis endpoint.
// Model is kept raw so it can be compiled with the shared parser.
type AnalysisRequest struct {
	Model     json.RawMessage           `json:"model"`
	Variables map[string]float64        `json:"variables"`
	Params    []domain.SensitivityParam `json:"params,omitempty"`
}

// ErrorResponse is the JSON body returned on failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
