package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jxucoder/mockmate/pkg/interview"
	"github.com/jxucoder/mockmate/pkg/model"
)

var interviewRole string

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run a text interview",
	Long: `Start a text interview for a role. Type each answer on one line.

  /save   Save the transcript to the server
  /quit   End the interview`,
	RunE: runInterview,
}

func init() {
	interviewCmd.Flags().StringVar(&interviewRole, "role", "", "Job role to interview for (required)")
	interviewCmd.MarkFlagRequired("role")
	rootCmd.AddCommand(interviewCmd)
}

func runInterview(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := newClient()
	sess := interview.NewSession(c)

	fmt.Printf("Starting interview for %s...\n", interviewRole)
	first, err := sess.Start(ctx, interviewRole)
	if err != nil {
		return fmt.Errorf("starting interview: %w", err)
	}
	printReply(os.Stdout, first)

	return interviewLoop(ctx, sess, c, os.Stdin, os.Stdout)
}

// interviewLoop reads answers from in until EOF or /quit.
func interviewLoop(ctx context.Context, sess *interview.Session, saver interview.Saver, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/save":
			saved, err := sess.Save(ctx, saver, userID)
			if err != nil {
				fmt.Fprintf(out, "Save failed: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "Saved interview %s (%d turns)\n", saved.ID, len(saved.History))
			continue
		}

		reply, err := sess.SendText(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		printReply(out, reply)
	}
}

func printReply(w io.Writer, t model.Turn) {
	r := interview.ParseReply(t.Text())
	if r.Feedback != "" {
		fmt.Fprintf(w, "\nFeedback: %s\n", r.Feedback)
	}
	fmt.Fprintf(w, "\nInterviewer: %s\n", r.NextQuestion)
}
