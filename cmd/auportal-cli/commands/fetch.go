package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	scraper "auportal-backend/lib/scrapers/auportal"
	auportal "auportal-backend/services/auportal"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var fetchFlags struct {
	sessionId string
	regno     string
	dob       string
	captcha   string
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Submit credentials and the solved captcha, then print the student data.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var data auportal.StudentData
		var body errorBody
		res, err := apiClient().R().
			SetContext(cmd.Context()).
			SetBody(auportal.FetchDataRequest{
				SessionId:       fetchFlags.sessionId,
				RegisterNo:      fetchFlags.regno,
				Dob:             fetchFlags.dob,
				CaptchaSolution: fetchFlags.captcha,
			}).
			SetResult(&data).
			SetError(&body).
			Post("/api/fetch-data")
		if err != nil {
			return err
		}
		if res.IsError() {
			return fmt.Errorf("fetch-data failed: %s", body.Error)
		}

		renderStudentData(data)
		return nil
	},
}

var legacyFlags struct {
	regno string
	dob   string
}

var legacyCmd = &cobra.Command{
	Use:   "legacy",
	Short: "Fetch student data through the old no-captcha endpoint.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var data auportal.StudentData
		res, err := apiClient().R().
			SetContext(cmd.Context()).
			SetQueryParam("register_no", legacyFlags.regno).
			SetQueryParam("dob", legacyFlags.dob).
			SetResult(&data).
			Get("/get")
		if err != nil {
			return err
		}
		if res.IsError() {
			return fmt.Errorf("legacy fetch failed: %s", res.String())
		}
		if len(data.Profile) == 0 {
			// the legacy route reports problems in a 200 body
			var body errorBody
			if err := json.Unmarshal(res.Body(), &body); err == nil && body.Error != "" {
				return fmt.Errorf("legacy fetch failed: %s", body.Error)
			}
		}

		renderStudentData(data)
		return nil
	},
}

func renderStudentData(data auportal.StudentData) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Profile")
	t.AppendHeader(table.Row{"Field", "Value"})

	keys := make([]string, 0, len(data.Profile))
	for k := range data.Profile {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.AppendRow(table.Row{k, data.Profile[k]})
	}
	t.Render()

	renderRecords("Exam Schedule", data.ExamSchedule)
	renderRecords("Assessment", data.Assessment)
	renderRecords("Exam Result", data.ExamResult)
	renderRecords("Internal Marks", data.Internals)
}

func renderRecords(title string, records []scraper.Record) {
	if len(records) == 0 {
		return
	}

	keys := make([]string, 0, len(records[0]))
	for k := range records[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(title)

	header := make(table.Row, len(keys))
	for i, k := range keys {
		header[i] = k
	}
	t.AppendHeader(header)

	for _, record := range records {
		row := make(table.Row, len(keys))
		for i, k := range keys {
			row[i] = record[k]
		}
		t.AppendRow(row)
	}
	t.Render()
}

func init() {
	fetchCmd.Flags().StringVar(&fetchFlags.sessionId, "session", "", "session id from `auportal-cli init`")
	fetchCmd.Flags().StringVar(&fetchFlags.regno, "regno", "", "register number")
	fetchCmd.Flags().StringVar(&fetchFlags.dob, "dob", "", "date of birth, DD-MM-YYYY")
	fetchCmd.Flags().StringVar(&fetchFlags.captcha, "captcha", "", "solved captcha text")
	fetchCmd.MarkFlagRequired("session")
	fetchCmd.MarkFlagRequired("regno")
	fetchCmd.MarkFlagRequired("dob")
	fetchCmd.MarkFlagRequired("captcha")

	legacyCmd.Flags().StringVar(&legacyFlags.regno, "regno", "", "register number")
	legacyCmd.Flags().StringVar(&legacyFlags.dob, "dob", "", "date of birth, DD-MM-YYYY")
	legacyCmd.MarkFlagRequired("regno")
	legacyCmd.MarkFlagRequired("dob")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(legacyCmd)
}
