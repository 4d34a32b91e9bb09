package commands

import (
	"encoding/json"
	"fmt"
	"os"

	auportal "auportal-backend/services/auportal"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Start a portal session and print the captcha challenge details.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var result auportal.InitSessionResult
		res, err := apiClient().R().
			SetContext(cmd.Context()).
			SetResult(&result).
			Get("/api/init-session")
		if err != nil {
			return err
		}
		if res.IsError() {
			return fmt.Errorf("init-session failed: %s", res.String())
		}

		fmt.Println("session id:", result.SessionId)
		if result.HasAudioCaptcha {
			fmt.Println("captcha audio:", result.CaptchaAudioUrl)
			fmt.Println("fetch it with: auportal-cli audio", result.SessionId)
		} else {
			fmt.Println("no audio captcha on this session")
		}
		return nil
	},
}

var audioOutput string

var audioCmd = &cobra.Command{
	Use:   "audio <session-id>",
	Short: "Download the captcha audio for a session.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := apiClient().R().
			SetContext(cmd.Context()).
			Get("/api/captcha-audio/" + args[0])
		if err != nil {
			return err
		}
		if res.IsError() {
			var body errorBody
			if json.Unmarshal(res.Body(), &body) == nil && body.Error != "" {
				return fmt.Errorf("captcha-audio failed: %s", body.Error)
			}
			return fmt.Errorf("captcha-audio failed: %s", res.Status())
		}

		err = os.WriteFile(audioOutput, res.Body(), 0644)
		if err != nil {
			return err
		}
		fmt.Println("wrote", audioOutput)
		return nil
	},
}

func init() {
	audioCmd.Flags().StringVarP(&audioOutput, "output", "o", "captcha.wav", "file to write the audio to")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(audioCmd)
}
