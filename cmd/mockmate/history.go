package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jxucoder/mockmate/pkg/model"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved interviews",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved interviews for the current user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ivs, err := newClient().ListInterviews(context.Background())
		if err != nil {
			return err
		}
		if len(ivs) == 0 {
			fmt.Println("No saved interviews.")
			return nil
		}
		printInterviewTable(os.Stdout, ivs)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print a saved transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		iv, err := newClient().GetInterview(context.Background(), args[0])
		if err != nil {
			return err
		}
		printTranscript(os.Stdout, iv)
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func printInterviewTable(w io.Writer, ivs []*model.Interview) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROLE\tTURNS\tCREATED")
	for _, iv := range ivs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", iv.ID, iv.Role, len(iv.History), iv.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func printTranscript(w io.Writer, iv *model.Interview) {
	fmt.Fprintf(w, "Interview %s\nRole: %s\nCreated: %s\n", iv.ID, iv.Role, iv.CreatedAt.Local().Format("2006-01-02 15:04"))
	for _, t := range iv.History {
		if t.Role == model.SpeakerUser {
			text := t.Text()
			if text == "" {
				text = "(audio answer)"
			}
			fmt.Fprintf(w, "\nYou: %s\n", text)
			continue
		}
		printReply(w, t)
	}
}
