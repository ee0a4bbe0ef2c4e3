// CLAUDE:SUMMARY MCP tool surface: fetch, batch, analysis, interview, recovery, and store tools.
package repeche

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/repeche/internal/analyze"
	"github.com/hazyhaar/repeche/internal/engine"
	"github.com/hazyhaar/repeche/internal/interview"
	"github.com/hazyhaar/repeche/internal/strategy"
)

// RegisterMCP registers all repeche tools on an MCP server.
func (svc *Service) RegisterMCP(srv *mcp.Server) {
	svc.registerFetchURL(srv)
	svc.registerFetchBatch(srv)
	svc.registerAnalyzeBatch(srv)
	svc.registerBuildInterview(srv)
	svc.registerProcessAnswers(srv)
	svc.registerExecuteRecovery(srv)
	svc.registerStrategiesForDomain(srv)
	svc.registerLearnStrategy(srv)
}

func (svc *Service) registerFetchURL(srv *mcp.Server) {
	type req struct {
		URL string `json:"url" jsonschema:"URL to fetch"`
	}
	tool := &mcp.Tool{
		Name:        "repeche_fetch_url",
		Description: "Fetch one URL, trying strategies in learned-first order until one succeeds",
	}
	mcp.AddTool(srv, tool, func(ctx context.Context, _ *mcp.CallToolRequest, r req) (*mcp.CallToolResult, *engine.Result, error) {
		return nil, svc.FetchURL(ctx, r.URL), nil
	})
}

func (svc *Service) registerFetchBatch(srv *mcp.Server) {
	type req struct {
		URLs []string `json:"urls" jsonschema:"URLs to fetch"`
	}
	type resp struct {
		Results []*engine.Result `json:"results"`
	}
	tool := &mcp.Tool{
		Name:        "repeche_fetch_batch",
		Description: "Fetch a batch of URLs with bounded concurrency; results match input order",
	}
	mcp.AddTool(srv, tool, func(ctx context.Context, _ *mcp.CallToolRequest, r req) (*mcp.CallToolResult, resp, error) {
		return nil, resp{Results: svc.FetchBatch(ctx, r.URLs)}, nil
	})
}

func (svc *Service) registerAnalyzeBatch(srv *mcp.Server) {
	type req struct {
		Results []*engine.Result `json:"results" jsonschema:"results from a previous fetch batch; empty uses the last batch"`
	}
	tool := &mcp.Tool{
		Name:        "repeche_analyze_batch",
		Description: "Group batch failures by status, verdict and domain, and detect systemic patterns",
	}
	mcp.AddTool(srv, tool, func(_ context.Context, _ *mcp.CallToolRequest, r req) (*mcp.CallToolResult, *analyze.BatchAnalysis, error) {
		results := r.Results
		if len(results) == 0 {
			results = svc.LastBatch()
		}
		return nil, svc.AnalyzeBatch(results), nil
	})
}

func (svc *Service) registerBuildInterview(srv *mcp.Server) {
	type req struct {
		Results       []*engine.Result `json:"results" jsonschema:"results from a previous fetch batch; empty uses the last batch"`
		GroupByDomain *bool            `json:"group_by_domain" jsonschema:"one question per failing domain instead of per URL (default true)"`
	}
	tool := &mcp.Tool{
		Name:        "repeche_build_interview",
		Description: "Turn unrecoverable fetch failures into human-answerable questions",
	}
	mcp.AddTool(srv, tool, func(_ context.Context, _ *mcp.CallToolRequest, r req) (*mcp.CallToolResult, *interview.Interview, error) {
		results := r.Results
		if len(results) == 0 {
			results = svc.LastBatch()
		}
		groupByDomain := true
		if r.GroupByDomain != nil {
			groupByDomain = *r.GroupByDomain
		}
		return nil, svc.BuildInterview(results, groupByDomain), nil
	})
}

func (svc *Service) registerProcessAnswers(srv *mcp.Server) {
	type req struct {
		Interview *interview.Interview `json:"interview" jsonschema:"the interview that was presented"`
		Response  *interview.Response  `json:"response" jsonschema:"the human's answers"`
	}
	type resp struct {
		Actions []interview.RecoveryAction `json:"actions"`
	}
	tool := &mcp.Tool{
		Name:        "repeche_process_answers",
		Description: "Classify interview answers into typed recovery actions",
	}
	mcp.AddTool(srv, tool, func(_ context.Context, _ *mcp.CallToolRequest, r req) (*mcp.CallToolResult, resp, error) {
		return nil, resp{Actions: svc.ProcessAnswers(r.Interview, r.Response)}, nil
	})
}

func (svc *Service) registerExecuteRecovery(srv *mcp.Server) {
	type req struct {
		Actions []interview.RecoveryAction `json:"actions" jsonschema:"recovery actions to execute"`
	}
	type resp struct {
		Results []*engine.Result `json:"results"`
	}
	tool := &mcp.Tool{
		Name:        "repeche_execute_recovery",
		Description: "Execute recovery actions; non-skip successes are learned as human-provided strategies",
	}
	mcp.AddTool(srv, tool, func(ctx context.Context, _ *mcp.CallToolRequest, r req) (*mcp.CallToolResult, resp, error) {
		return nil, resp{Results: svc.ExecuteRecovery(ctx, r.Actions)}, nil
	})
}

func (svc *Service) registerStrategiesForDomain(srv *mcp.Server) {
	type req struct {
		Domain string `json:"domain" jsonschema:"domain to look up"`
	}
	type resp struct {
		Records []*strategy.Record `json:"records"`
	}
	tool := &mcp.Tool{
		Name:        "repeche_strategies_for_domain",
		Description: "List the learned fetch strategies for a domain",
	}
	mcp.AddTool(srv, tool, func(ctx context.Context, _ *mcp.CallToolRequest, r req) (*mcp.CallToolResult, resp, error) {
		return nil, resp{Records: svc.StrategiesForDomain(ctx, r.Domain)}, nil
	})
}

func (svc *Service) registerLearnStrategy(srv *mcp.Server) {
	type req struct {
		URL      string `json:"url" jsonschema:"URL the strategy applies to"`
		Strategy string `json:"strategy" jsonschema:"strategy name (direct, playwright, wayback, brave, jina, proxy, ua_rotation)"`
		Notes    string `json:"notes" jsonschema:"free-text notes recorded with the strategy"`
	}
	type resp struct {
		Stored bool `json:"stored"`
	}
	tool := &mcp.Tool{
		Name:        "repeche_learn_strategy",
		Description: "Record a known-working strategy for a URL without fetching it",
	}
	mcp.AddTool(srv, tool, func(ctx context.Context, _ *mcp.CallToolRequest, r req) (*mcp.CallToolResult, resp, error) {
		return nil, resp{Stored: svc.LearnStrategy(ctx, r.URL, r.Strategy, r.Notes)}, nil
	})
}
