// MockMate
//
// An AI mock interviewer. Pick a role, answer questions by text or voice, get
// feedback after every answer.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jxucoder/mockmate/pkg/client"
)

var (
	version   = "dev"
	serverURL string
	userID    string
)

var rootCmd = &cobra.Command{
	Use:   "mockmate",
	Short: "MockMate - AI Mock Interviewer",
	Long: `MockMate runs mock job interviews against a hosted language model.
The server holds the API key; the CLI talks to it over HTTP.

  mockmate config set GEMINI_API_KEY <key>          Set the provider key
  mockmate serve                                    Start the server
  mockmate interview --role "Backend Engineer"      Text interview
  mockmate voice --role "SRE" answer1.webm ...      Voice interview from recordings
  mockmate history list                             List saved interviews
  mockmate history show <id>                        Show a saved transcript`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("MOCKMATE_SERVER", "http://localhost:7080"), "MockMate server URL")
	rootCmd.PersistentFlags().StringVar(&userID, "user", envOr("MOCKMATE_USER", ""), "User ID for saved interviews (anonymous when empty)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newClient() *client.Client {
	return client.New(serverURL, userID)
}
