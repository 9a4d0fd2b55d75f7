package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jxucoder/mockmate/internal/logging"
	"github.com/jxucoder/mockmate/pkg/eventbus"
	"github.com/jxucoder/mockmate/pkg/interview"
	"github.com/jxucoder/mockmate/pkg/voice"
)

var (
	voiceRole       string
	voiceTranscribe bool
	voiceSave       bool
	voiceVerbose    bool
)

var voiceCmd = &cobra.Command{
	Use:   "voice FILE...",
	Short: "Run a voice interview from recorded answers",
	Long: `Run a voice interview where each FILE is one spoken answer, played in
order. Replies are printed instead of spoken.

By default the audio is sent inline to the interviewer. With --transcribe
each answer is first converted to text by the server.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVoice,
}

func init() {
	voiceCmd.Flags().StringVar(&voiceRole, "role", "", "Job role to interview for (required)")
	voiceCmd.Flags().BoolVar(&voiceTranscribe, "transcribe", false, "Transcribe answers before sending them")
	voiceCmd.Flags().BoolVar(&voiceSave, "save", false, "Save the transcript when the call ends")
	voiceCmd.Flags().BoolVarP(&voiceVerbose, "verbose", "v", false, "Print call state changes")
	voiceCmd.MarkFlagRequired("role")
	rootCmd.AddCommand(voiceCmd)
}

func runVoice(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := newClient()
	sess := interview.NewSession(c)

	first, err := sess.Start(ctx, voiceRole)
	if err != nil {
		return fmt.Errorf("starting interview: %w", err)
	}
	spk := voice.NewWriterSpeaker(os.Stdout)
	spk.Speak(ctx, first.Text())

	bus := eventbus.NewInMemoryBus()
	cfg := voice.CallConfig{
		Bus:    bus,
		Logger: logging.New("warn", "console"),
	}
	if voiceTranscribe {
		cfg.Transcriber = c
	}
	call := voice.NewCall(sess, voice.NewFileRecorder(args...), spk, cfg)

	events := bus.Subscribe(call.ID())
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range events {
			switch ev.Type {
			case eventbus.TypeState:
				if voiceVerbose {
					fmt.Fprintf(os.Stderr, "[%s]\n", ev.Data)
				}
			case eventbus.TypeTranscript:
				fmt.Printf("\nYou: %s\n", ev.Data)
			case eventbus.TypeError:
				fmt.Fprintf(os.Stderr, "Error: %s\n", ev.Data)
			}
		}
	}()

	runErr := call.Run(ctx)
	bus.Unsubscribe(call.ID(), events)
	<-printed

	if voiceSave {
		saved, err := sess.Save(context.Background(), c, userID)
		if err != nil {
			return err
		}
		fmt.Printf("\nSaved interview %s\n", saved.ID)
	}
	return callExitError(runErr)
}

// callExitError maps the result of a voice call to the command's exit error.
// Ctrl-C ends the call like running out of recordings.
func callExitError(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
