package assistant

import (
	"github.com/nnrg-cse/nnrg-assistant-go/internal/genai"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/responder"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/sitedata"
)

// ChainConfig selects the external responders.
type ChainConfig struct {
	// Pages enables the cached page search when non-nil.
	Pages    *sitedata.PageIndex
	MinScore float64
	// LLM is nil when no language model is configured.
	LLM *genai.Responder
}

// BuildChain assembles the external chain: site keywords, cached pages,
// then the language model. The website template stands in for the model
// when none is configured.
func BuildChain(k *Knowledge, cfg ChainConfig) []responder.Responder {
	chain := []responder.Responder{sitedata.NewKeywordResponder(k.Store)}
	if cfg.Pages != nil {
		chain = append(chain, sitedata.NewPageResponder(cfg.Pages, cfg.MinScore))
	}
	if cfg.LLM != nil {
		chain = append(chain, cfg.LLM)
	} else {
		chain = append(chain, sitedata.NewTemplateResponder(k.Store))
	}
	return chain
}
