package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var serverUrl string

var rootCmd = &cobra.Command{
	Use:   "auportal-cli",
	Short: "auportal-cli drives the captcha login flow against a running auportal server.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&serverUrl,
		"server",
		"http://localhost:8330",
		"base url of the auportal server",
	)
}

func apiClient() *resty.Client {
	client := resty.New()
	client.SetBaseURL(serverUrl)
	client.SetTimeout(time.Second * 60)
	return client
}

type errorBody struct {
	Error string `json:"error"`
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
