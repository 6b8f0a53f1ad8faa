// Package mcp exposes the letter parser and fingerprint classifier as Model
// Context Protocol tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ppiankov/letteraudit/internal/extract"
	"github.com/ppiankov/letteraudit/internal/model"
	"github.com/ppiankov/letteraudit/internal/pipeline"
	"github.com/ppiankov/letteraudit/internal/score"
	"github.com/ppiankov/letteraudit/internal/validate"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Pipeline *pipeline.Pipeline
	Version  string // version string for MCP server info
}

// auditResult is what letter_audit returns; the letter text is never echoed back
type auditResult struct {
	Result      model.ParseResult `json:"result"`
	Fingerprint model.Fingerprint `json:"fingerprint"`
	Gate        model.Gate        `json:"gate"`
	PageCount   int               `json:"page_count"`
}

// NewServer creates a configured MCP server with all letter tools.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"letteraudit",
		ver,
		server.WithToolCapabilities(false),
	)

	parser := extract.NewParser()
	classifier := score.NewClassifier()

	registerParseTool(s, parser)
	registerClassifyTool(s, parser, classifier)
	if cfg.Pipeline != nil {
		registerAuditTool(s, cfg.Pipeline)
	}

	return s
}

// Serve runs the server on stdin/stdout until the client disconnects.
func Serve(cfg ServerConfig) error {
	return server.ServeStdio(NewServer(cfg))
}

func registerParseTool(s *server.MCPServer, parser *extract.Parser) {
	tool := mcp.NewTool("letter_parse",
		mcp.WithDescription("Extract claims, ratings, diagnostic codes, effective dates and sections from the plain text of a VA decision letter. Returns ParseResult JSON."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Full letter text, page order preserved"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}
		return jsonResult(parser.Parse(text))
	})
}

func registerClassifyTool(s *server.MCPServer, parser *extract.Parser, classifier *score.Classifier) {
	tool := mcp.NewTool("letter_classify",
		mcp.WithDescription("Score how likely a text is a VA decision letter. Returns Fingerprint JSON with score, confidence and fired signals."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Full letter text"),
		),
		mcp.WithString("parse_result",
			mcp.Description("Optional ParseResult JSON for this text (as returned by letter_parse). Parsed from text when omitted."),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}

		var result model.ParseResult
		if raw := req.GetString("parse_result", ""); raw != "" {
			supplied, err := validate.ParseResult([]byte(raw))
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid parse_result: %v", err)), nil
			}
			result = *supplied
		} else {
			result = parser.Parse(text)
		}

		return jsonResult(classifier.Classify(text, result))
	})
}

func registerAuditTool(s *server.MCPServer, p *pipeline.Pipeline) {
	tool := mcp.NewTool("letter_audit",
		mcp.WithDescription("Parse and fingerprint a letter, then report whether AI analysis would be allowed for it. Never sends the text anywhere."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Full letter text"),
		),
		mcp.WithString("name",
			mcp.Description("Label reported as the source (default: mcp)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}

		report, err := p.AuditText(ctx, req.GetString("name", "mcp"), text)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(auditResult{
			Result:      report.Result,
			Fingerprint: report.Fingerprint,
			Gate:        report.Gate,
			PageCount:   report.PageCount,
		})
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
