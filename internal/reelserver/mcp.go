package reelserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_reels/internal/engine"
)

// RegisterTools registers generate_reels_scripts on the MCP server.
func (s *Server) RegisterTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_reels_scripts",
		Description: "Generate Hinglish Instagram Reels scripts from Hindi/Marathi YouTube news videos. Transcribes and summarizes each video, cross-checks the stories against current news headlines, writes the requested number of scripts (1-5, default 2) and appends them to the configured Google Sheet. Returns the sheet URL, credibility score and script previews.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.GenerateInput) (*mcp.CallToolResult, *engine.GenerateOutput, error) {
		if err := s.cfg.CheckCredentials(); err != nil {
			return nil, nil, err
		}
		res, err := s.runner.Run(ctx, s.newID(), input)
		if err != nil {
			return nil, nil, err
		}
		if res == nil {
			return nil, nil, errors.New("empty result")
		}
		return nil, &res.Output, nil
	})
}
