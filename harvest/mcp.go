package harvest

import (
	"context"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewMCPServer exposes the service as MCP tools so an agent can drive
// extractions over stdio. Run it with server.Run(ctx, &sdkmcp.StdioTransport{}).
func (s *Service) NewMCPServer(version string) *sdkmcp.Server {
	srv := sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "harvest", Version: version},
		nil,
	)

	sdkmcp.AddTool(srv, &sdkmcp.Tool{
		Name:        "harvest_extract",
		Description: "Extract content URLs for one creator account. Tries the learned-best methods in order and returns the links plus the attempt trail.",
	}, s.handleMCPExtract)

	sdkmcp.AddTool(srv, &sdkmcp.Tool{
		Name:        "harvest_stats",
		Description: "Read the learned per-method statistics for a (platform, account) pair.",
	}, s.handleMCPStats)

	sdkmcp.AddTool(srv, &sdkmcp.Tool{
		Name:        "harvest_methods",
		Description: "List the configured extraction methods and the platforms each one supports.",
	}, s.handleMCPMethods)

	return srv
}

type mcpExtractInput struct {
	Platform       string `json:"platform" jsonschema:"platform key (youtube, tiktok, instagram, facebook, twitter)"`
	AccountURL     string `json:"account_url" jsonschema:"creator profile/channel URL"`
	MaxItems       int    `json:"max_items,omitempty" jsonschema:"cap on returned links, 0 = service default"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" jsonschema:"per-method budget in seconds, 0 = service default"`
}

type mcpExtractOutput struct {
	Result *Result `json:"result"`
	// Exhausted duplicates Result.Exhausted at the top level so agents can
	// branch without digging.
	Exhausted bool `json:"exhausted"`
}

func (s *Service) handleMCPExtract(ctx context.Context, _ *sdkmcp.CallToolRequest, in mcpExtractInput) (*sdkmcp.CallToolResult, mcpExtractOutput, error) {
	res, err := s.Extract(ctx, Request{
		Platform:      Platform(in.Platform),
		AccountURL:    in.AccountURL,
		MaxItems:      in.MaxItems,
		MethodTimeout: time.Duration(in.TimeoutSeconds) * time.Second,
	})
	if res == nil {
		return nil, mcpExtractOutput{}, err
	}
	// Exhaustion is a valid outcome for the agent, not a tool error.
	return nil, mcpExtractOutput{Result: res, Exhausted: res.Exhausted}, nil
}

type mcpStatsInput struct {
	Platform   string `json:"platform" jsonschema:"platform key"`
	AccountURL string `json:"account_url" jsonschema:"creator profile/channel URL"`
}

type mcpStatsOutput struct {
	Stats []*MethodStat `json:"stats"`
}

func (s *Service) handleMCPStats(ctx context.Context, _ *sdkmcp.CallToolRequest, in mcpStatsInput) (*sdkmcp.CallToolResult, mcpStatsOutput, error) {
	stats, err := s.MethodStats(ctx, Platform(in.Platform), in.AccountURL)
	if err != nil {
		return nil, mcpStatsOutput{}, err
	}
	return nil, mcpStatsOutput{Stats: stats}, nil
}

type mcpMethodsInput struct{}

type mcpMethodInfo struct {
	Name      string   `json:"name"`
	Ordinal   int      `json:"ordinal"`
	Platforms []string `json:"platforms"`
}

type mcpMethodsOutput struct {
	Methods []mcpMethodInfo `json:"methods"`
}

func (s *Service) handleMCPMethods(_ context.Context, _ *sdkmcp.CallToolRequest, _ mcpMethodsInput) (*sdkmcp.CallToolResult, mcpMethodsOutput, error) {
	var out mcpMethodsOutput
	for _, m := range s.Methods() {
		mi := mcpMethodInfo{Name: m.Name(), Ordinal: m.Ordinal()}
		for _, p := range Platforms() {
			if m.Supports(p) {
				mi.Platforms = append(mi.Platforms, string(p))
			}
		}
		out.Methods = append(out.Methods, mi)
	}
	return nil, out, nil
}
