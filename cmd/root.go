package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the graphmail application
var rootCmd = &cobra.Command{
	Use:   "graphmail",
	Short: "MCP server for Microsoft Graph mail",
	Long: `graphmail exposes a Microsoft 365 mailbox to AI assistants through the
Model Context Protocol (MCP).

It authenticates against Microsoft Entra ID with the OAuth2 delegated flow,
talks to the Microsoft Graph REST API for listing, reading and sending mail,
and can extract text from PDF attachments.

It can run as:
  - An MCP server over stdio (default)
  - An MCP server over SSE or streamable HTTP`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "graphmail version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("graphmail version %s\n", version)
		},
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newVersionCmd())
}
