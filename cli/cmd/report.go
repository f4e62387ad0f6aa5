/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ponyo877/callwatch/server/adaptor"
)

var reportJSON bool

var reportCmd = &cobra.Command{
	Use:   "report <studentId> <callId>",
	Short: "Prints the engagement report data of a student in a call.",
	Long: `Prints the student profile, every monitoring event (oldest first) and every
teacher note (newest first) recorded for a student in a call.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		studentID := args[0]
		callID := args[1]

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		var report adaptor.ReportView
		path := "/api/monitoring/report/" + url.PathEscape(studentID) + "/" + url.PathEscape(callID)
		if err := apiDo(ctx, http.MethodGet, path, nil, &report); err != nil {
			fmt.Fprintf(os.Stderr, "Error getting report: %v\n", err)
			return
		}

		if reportJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(report)
			return
		}

		name := studentID
		if report.Student != nil {
			name = nameOr(report.Student.UserName, studentID)
		}
		fmt.Printf("Student: %s\nCall: %s\n\nEvents (%d):\n", name, callID, len(report.Events))
		for _, e := range report.Events {
			fmt.Println("  " + formatEvent(e))
		}
		fmt.Printf("\nNotes (%d):\n", len(report.Notes))
		for _, n := range report.Notes {
			fmt.Printf("  [%s] %s: %s\n", n.CreatedAt.Local().Format("2006-01-02 15:04"), n.TeacherID, n.Note)
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Print the raw JSON report")
}
