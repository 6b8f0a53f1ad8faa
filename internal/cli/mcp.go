package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/letteraudit/internal/mcp"
)

// serveMCPCmd represents the serve-mcp command
var serveMCPCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Serve the letter tools over MCP (stdio)",
	Long: `Start a Model Context Protocol server on stdin/stdout exposing:
- letter_parse     extract claims and facts from letter text
- letter_classify  fingerprint letter text
- letter_audit     parse, fingerprint and report the AI gate

All tools are read-only and never call an LLM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// stdout carries the protocol
		cfg.Output.Verbose = false
		cfg.LLM.Provider = ""

		return mcp.Serve(mcp.ServerConfig{
			Pipeline: newPipeline(cfg),
			Version:  Version,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveMCPCmd)
}
