package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ldenti/ropebwt2/pkg/api"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the ropebwt REST API server.

Example:
  ropebwt serve --api-key=mysecretkey --port=8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.Server.Port = port
		}
		if bind, _ := cmd.Flags().GetString("bind"); bind != "" {
			cfg.Server.Bind = bind
		}
		if key, _ := cmd.Flags().GetString("api-key"); key != "" {
			cfg.Server.APIKey = key
		}

		return api.StartServer(api.ServerConfig{
			Bind:            cfg.Server.Bind,
			Port:            cfg.Server.Port,
			APIKey:          cfg.Server.APIKey,
			DefaultMaxNodes: cfg.Rope.MaxNodes,
			DefaultBlockLen: cfg.Rope.BlockLen,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on")
	serveCmd.Flags().String("bind", "", "Bind address")
	serveCmd.Flags().String("api-key", "", "API key for authentication (empty disables auth)")
}
